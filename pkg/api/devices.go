package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fmfleet/txmoncore/pkg/db"
	"github.com/fmfleet/txmoncore/pkg/models"
)

// deviceView is the device projection of a transmitter (spec.md §6): the
// SNMP connection tuple plus enough identity/UI fields for the fleet panel,
// omitting the operational fields (status, nominal power, timestamps) that
// belong to the fuller /api/snmp/transmitters representation.
type deviceView struct {
	ID           string             `json:"id"`
	Host         string             `json:"host"`
	Port         int                `json:"port"`
	Community    string             `json:"community"`
	Version      models.SNMPVersion `json:"version"`
	OIDs         []string           `json:"oids"`
	PollInterval int64              `json:"pollInterval"`
	IsActive     bool               `json:"isActive"`
	Name         string             `json:"name"`
	Label        string             `json:"label,omitempty"`
	DisplayOrder int                `json:"displayOrder"`
	SiteID       string             `json:"siteId"`
}

func toDeviceView(t models.Transmitter) deviceView {
	return deviceView{
		ID:           t.ID,
		Host:         t.Host,
		Port:         t.Port,
		Community:    t.Community,
		Version:      t.Version,
		OIDs:         t.OIDs,
		PollInterval: t.PollIntervalMS,
		IsActive:     t.IsActive,
		Name:         t.Name,
		Label:        t.Label,
		DisplayOrder: t.DisplayOrder,
		SiteID:       t.SiteID,
	}
}

func (v deviceView) toTransmitter() models.Transmitter {
	return models.Transmitter{
		ID:             v.ID,
		Host:           v.Host,
		Port:           v.Port,
		Community:      v.Community,
		Version:        v.Version,
		OIDs:           v.OIDs,
		PollIntervalMS: v.PollInterval,
		IsActive:       v.IsActive,
		Name:           v.Name,
		Label:          v.Label,
		DisplayOrder:   v.DisplayOrder,
		SiteID:         v.SiteID,
	}
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	transmitters, err := s.store.ListTransmitters(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	views := make([]deviceView, 0, len(transmitters))
	for _, t := range transmitters {
		views = append(views, toDeviceView(t))
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, toDeviceView(*t))
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	var view deviceView
	if err := decodeJSON(r, &view); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if view.SiteID == "" {
		writeError(w, http.StatusBadRequest, errSiteIDRequired)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	t := view.toTransmitter()

	created, err := s.store.UpsertTransmitter(ctx, &t)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDeviceView(*created))
}

// deviceProjectionFields whitelists the JSON keys a device PATCH body may
// carry — the device projection's own field set (models.Transmitter fields
// outside it, like status or nominalPower, aren't reachable through this
// endpoint at all).
var deviceProjectionFields = map[string]bool{
	"host": true, "port": true, "community": true, "version": true,
	"oids": true, "pollInterval": true, "isActive": true, "name": true,
	"label": true, "displayOrder": true, "siteId": true,
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	delete(body, "id")

	for k := range body {
		if !deviceProjectionFields[k] {
			writeError(w, http.StatusBadRequest, fmt.Errorf("api: unknown device field %q", k))
			return
		}
	}

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

	writeJSON(w, http.StatusOK, toDeviceView(*updated))
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
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

var errSiteIDRequired = errors.New("api: siteId is required")

// writeStoreError maps db sentinel errors onto their spec.md §7 HTTP codes:
// referential/validation failures are 400, not-found is 404, anything else
// is a 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrSiteRequired), errors.Is(err, db.ErrInvalidPatchColumn):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, db.ErrSiteNotFound), errors.Is(err, db.ErrTransmitterNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
