package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmfleet/txmoncore/pkg/models"
)

func TestCreateListGetSite(t *testing.T) {
	s, _, _ := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/api/snmp/sites", models.Site{Name: "Alpha", IsActive: true})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec2 := doJSON(t, s, http.MethodGet, "/api/snmp/sites", nil)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestUpdateSitePatch(t *testing.T) {
	s, store, _ := newTestServer()

	created, err := store.CreateSite(context.Background(), &models.Site{Name: "Alpha"})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPut, "/api/snmp/sites/"+created.ID, map[string]interface{}{"name": "Beta"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateSiteNotFound(t *testing.T) {
	s, _, _ := newTestServer()

	rec := doJSON(t, s, http.MethodPut, "/api/snmp/sites/missing", map[string]interface{}{"name": "Beta"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSite(t *testing.T) {
	s, store, _ := newTestServer()

	created, err := store.CreateSite(context.Background(), &models.Site{Name: "Alpha"})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodDelete, "/api/snmp/sites/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
