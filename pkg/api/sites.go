package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fmfleet/txmoncore/pkg/db"
	"github.com/fmfleet/txmoncore/pkg/models"
)

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	sites, err := s.store.ListSites(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, sites)
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	site, err := s.store.GetSite(ctx, mux.Vars(r)["id"])
	if errors.Is(err, db.ErrSiteNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	var site models.Site
	if err := decodeJSON(r, &site); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	created, err := s.store.CreateSite(ctx, &site)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateSite(w http.ResponseWriter, r *http.Request) {
	var patch map[string]interface{}
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	updated, err := s.store.UpdateSite(ctx, mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	ok, err := s.store.DeleteSite(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if !ok {
		writeError(w, http.StatusNotFound, db.ErrSiteNotFound)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
