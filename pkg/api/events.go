package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fmfleet/txmoncore/pkg/models"
)

const eventTickInterval = 5 * time.Second

type eventsPayload struct {
	Results       []models.DeviceResult              `json:"results"`
	LatestMetrics map[string]*models.TransmitterMetric `json:"latestMetrics"`
}

// handleEvents streams live poll activity over Server-Sent Events: a
// "connected" event once, then an "update" event every 5s carrying the last
// 10 results and each transmitter's latest metric row (spec.md §6).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("api: streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(eventTickInterval)
	defer ticker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.writeUpdateEvent(w, ctx) {
				return
			}

			flusher.Flush()
		}
	}
}

func (s *Server) writeUpdateEvent(w http.ResponseWriter, ctx context.Context) bool {
	payload := eventsPayload{
		Results:       s.poller.Results("", 10),
		LatestMetrics: s.latestMetricsByTransmitter(ctx),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	_, err = fmt.Fprintf(w, "event: update\ndata: %s\n\n", body)

	return err == nil
}

func (s *Server) latestMetricsByTransmitter(ctx context.Context) map[string]*models.TransmitterMetric {
	transmitters, err := s.store.ListTransmitters(ctx)
	if err != nil {
		return map[string]*models.TransmitterMetric{}
	}

	out := make(map[string]*models.TransmitterMetric, len(transmitters))

	for _, t := range transmitters {
		m, err := s.store.GetLatestMetrics(ctx, t.ID)
		if err != nil || m == nil {
			continue
		}

		out[t.ID] = m
	}

	return out
}
