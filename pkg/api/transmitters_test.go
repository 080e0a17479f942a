package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmfleet/txmoncore/pkg/models"
)

func TestCreateTransmitterRequiresKnownSite(t *testing.T) {
	s, _, _ := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/api/snmp/transmitters", models.Transmitter{Host: "10.0.0.5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndListTransmitters(t *testing.T) {
	s, store, _ := newTestServer()

	site, err := store.CreateSite(context.Background(), &models.Site{Name: "Alpha"})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/api/snmp/transmitters", models.Transmitter{
		SiteID: site.ID,
		Host:   "10.0.0.5",
		Name:   "TX-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec2 := doJSON(t, s, http.MethodGet, "/api/snmp/transmitters", nil)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestUpdateTransmitterPreservesOmittedFields(t *testing.T) {
	s, store, _ := newTestServer()

	site, err := store.CreateSite(context.Background(), &models.Site{Name: "Alpha"})
	require.NoError(t, err)

	created, err := store.UpsertTransmitter(context.Background(), &models.Transmitter{
		SiteID:    site.ID,
		Host:      "10.0.0.5",
		Name:      "TX-1",
		Community: "private",
		Port:      1610,
	})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPut, "/api/snmp/transmitters/"+created.ID, map[string]interface{}{"name": "TX-1-renamed"})
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.Transmitter
	require.NoError(t, decodeBody(rec, &out))
	assert.Equal(t, "TX-1-renamed", out.Name)
	assert.Equal(t, "10.0.0.5", out.Host)
	assert.Equal(t, "private", out.Community)
	assert.Equal(t, 1610, out.Port)
	assert.Equal(t, site.ID, out.SiteID)
}

func TestUpdateTransmitterRejectsUnknownField(t *testing.T) {
	s, store, _ := newTestServer()

	site, err := store.CreateSite(context.Background(), &models.Site{Name: "Alpha"})
	require.NoError(t, err)

	created, err := store.UpsertTransmitter(context.Background(), &models.Transmitter{SiteID: site.ID, Host: "10.0.0.5"})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPut, "/api/snmp/transmitters/"+created.ID, map[string]interface{}{"bogus": "value"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLatestMetricsNoData(t *testing.T) {
	s, store, _ := newTestServer()

	site, err := store.CreateSite(context.Background(), &models.Site{Name: "Alpha"})
	require.NoError(t, err)

	tx, err := store.UpsertTransmitter(context.Background(), &models.Transmitter{SiteID: site.ID, Host: "10.0.0.5"})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodGet, "/api/snmp/transmitters/"+tx.ID+"/metrics/latest", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetLatestMetricsAfterStore(t *testing.T) {
	s, store, _ := newTestServer()

	site, err := store.CreateSite(context.Background(), &models.Site{Name: "Alpha"})
	require.NoError(t, err)

	tx, err := store.UpsertTransmitter(context.Background(), &models.Transmitter{SiteID: site.ID, Host: "10.0.0.5"})
	require.NoError(t, err)

	require.NoError(t, store.StoreMetrics(context.Background(), tx.ID, models.TransmitterMetricData{Status: models.StatusActive}))

	rec := doJSON(t, s, http.MethodGet, "/api/snmp/transmitters/"+tx.ID+"/metrics/latest", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
