package api

import (
	"net/http"

	"github.com/fmfleet/txmoncore/pkg/db"
	"github.com/fmfleet/txmoncore/pkg/models"
)

func trapFilterFromQuery(r *http.Request) db.TrapFilter {
	q := r.URL.Query()
	return db.TrapFilter{
		TransmitterID: q.Get("transmitterId"),
		SiteID:        q.Get("siteId"),
		SourceHost:    q.Get("sourceHost"),
	}
}

func (s *Server) getLatestTraps(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	traps, err := s.store.GetLatestTraps(ctx, trapFilterFromQuery(r), parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if traps == nil {
		traps = []models.SnmpTrap{}
	}

	writeJSON(w, http.StatusOK, traps)
}

func (s *Server) getTrapsRange(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	traps, err := s.store.GetTrapsRange(ctx, start, end, trapFilterFromQuery(r), parseLimit(r, 500))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, traps)
}
