package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmfleet/txmoncore/pkg/models"
)

func TestGetLatestTrapsEmpty(t *testing.T) {
	s, _, _ := newTestServer()

	rec := doJSON(t, s, http.MethodGet, "/api/snmp/traps/latest", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetLatestTrapsAfterStore(t *testing.T) {
	s, store, _ := newTestServer()

	require.NoError(t, store.StoreTrap(context.Background(), &models.SnmpTrap{SourceHost: "10.0.0.5", TrapOID: "1.3.6.1.6.3.1.1.5.3"}))

	rec := doJSON(t, s, http.MethodGet, "/api/snmp/traps/latest", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out []models.SnmpTrap
	require.NoError(t, decodeBody(rec, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "10.0.0.5", out[0].SourceHost)
}

func TestGetTrapsRangeBadTimestamp(t *testing.T) {
	s, _, _ := newTestServer()

	rec := doJSON(t, s, http.MethodGet, "/api/snmp/traps/range?start=not-a-time", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
