package trap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmfleet/txmoncore/pkg/models"
)

func TestAttributeMatchesBySourceHost(t *testing.T) {
	transmitters := []models.Transmitter{
		{ID: "tx-1", SiteID: "site-1", Host: "10.0.0.5"},
		{ID: "tx-2", SiteID: "site-2", Host: "10.0.0.6"},
	}

	trap := &models.SnmpTrap{SourceHost: "10.0.0.6"}
	attribute(transmitters, trap)

	require.NotNil(t, trap.TransmitterID)
	require.NotNil(t, trap.SiteID)
	assert.Equal(t, "tx-2", *trap.TransmitterID)
	assert.Equal(t, "site-2", *trap.SiteID)
}

func TestAttributeNoMatchLeavesTrapUnattributed(t *testing.T) {
	transmitters := []models.Transmitter{
		{ID: "tx-1", SiteID: "site-1", Host: "10.0.0.5"},
	}

	trap := &models.SnmpTrap{SourceHost: "10.0.0.99"}
	attribute(transmitters, trap)

	assert.Nil(t, trap.TransmitterID)
	assert.Nil(t, trap.SiteID)
}

func TestAttributeAmbiguousMatchLeavesTrapUnattributed(t *testing.T) {
	// spec.md §9 property 8: attribution requires exactly one match.
	transmitters := []models.Transmitter{
		{ID: "tx-1", SiteID: "site-1", Host: "10.0.0.5"},
		{ID: "tx-2", SiteID: "site-2", Host: "10.0.0.5"},
	}

	trap := &models.SnmpTrap{SourceHost: "10.0.0.5"}
	attribute(transmitters, trap)

	assert.Nil(t, trap.TransmitterID)
	assert.Nil(t, trap.SiteID)
}

func TestAttributeEmptySourceHostSkipped(t *testing.T) {
	transmitters := []models.Transmitter{
		{ID: "tx-1", SiteID: "site-1", Host: ""},
	}

	trap := &models.SnmpTrap{SourceHost: ""}
	attribute(transmitters, trap)

	assert.Nil(t, trap.TransmitterID)
}
