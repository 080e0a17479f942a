package api

import (
	"context"
	"net/http"

	"github.com/fmfleet/txmoncore/pkg/models"
)

// statusView is the /api/snmp/status response: whether the poller is
// currently running plus the derived liveness of every known device.
type statusView struct {
	Running bool                          `json:"running"`
	Devices map[string]models.DeviceStatus `json:"devices"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	reqCtx, cancelReq := requestContext(r)
	defer cancelReq()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		writeJSON(w, http.StatusOK, statusView{Running: true, Devices: s.deviceStatusesLocked(reqCtx)})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := s.poller.Start(ctx); err != nil {
		cancel()
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.pollCtx = ctx
	s.pollCancel = cancel
	s.started = true

	writeJSON(w, http.StatusOK, statusView{Running: true, Devices: s.deviceStatusesLocked(reqCtx)})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.poller.Stop()

		if s.pollCancel != nil {
			s.pollCancel()
		}

		s.started = false
		s.pollCtx = nil
		s.pollCancel = nil
	}

	writeJSON(w, http.StatusOK, statusView{Running: false})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, statusView{Running: s.started, Devices: s.deviceStatusesLocked(ctx)})
}

// deviceStatusesLocked builds the per-device status map for the response.
// Caller must hold s.mu. A store failure here degrades to an empty map
// rather than failing the whole request — /status is a best-effort summary.
func (s *Server) deviceStatusesLocked(ctx context.Context) map[string]models.DeviceStatus {
	transmitters, err := s.store.ListTransmitters(ctx)
	if err != nil {
		return map[string]models.DeviceStatus{}
	}

	out := make(map[string]models.DeviceStatus, len(transmitters))
	for _, t := range transmitters {
		out[t.ID] = s.poller.DeviceStatus(t.ID)
	}

	return out
}

func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	limit := parseLimit(r, 100)

	writeJSON(w, http.StatusOK, s.poller.Results(deviceID, limit))
}

func (s *Server) clearResults(w http.ResponseWriter, _ *http.Request) {
	s.poller.ClearResults()
	writeJSON(w, http.StatusNoContent, nil)
}
