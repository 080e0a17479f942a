package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fmfleet/txmoncore/pkg/db"
	"github.com/fmfleet/txmoncore/pkg/models"
)

func (s *Server) listTransmitters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	transmitters, err := s.store.ListTransmitters(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, transmitters)
}

func (s *Server) getTransmitter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	t, err := s.store.GetTransmitter(ctx, mux.Vars(r)["id"])
	if errors.Is(err, db.ErrTransmitterNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (s *Server) createTransmitter(w http.ResponseWriter, r *http.Request) {
	var t models.Transmitter
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	created, err := s.store.UpsertTransmitter(ctx, &t)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateTransmitter(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	delete(body, "id")

	patch, err := db.TransmitterPatchFromJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	updated, err := s.store.PatchTransmitter(ctx, mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTransmitter(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	ok, err := s.store.DeleteTransmitter(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if !ok {
		writeError(w, http.StatusNotFound, db.ErrTransmitterNotFound)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) getLatestMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	id := mux.Vars(r)["id"]

	m, err := s.store.GetLatestMetrics(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if m == nil {
		writeJSON(w, http.StatusNoContent, nil)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (s *Server) getMetricsRange(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	id := mux.Vars(r)["id"]

	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	limit := parseLimit(r, 500)

	metrics, err := s.store.GetMetricsRange(ctx, id, start, end, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

// parseRange reads ?start=&end= as RFC3339 timestamps, defaulting to the
// trailing 24 hours when either is absent.
func parseRange(r *http.Request) (start, end time.Time, err error) {
	end = time.Now().UTC()
	start = end.Add(-24 * time.Hour)

	if v := r.URL.Query().Get("start"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if v := r.URL.Query().Get("end"); v != "" {
		end, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	return start, end, nil
}

func parseLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}

	return n
}
