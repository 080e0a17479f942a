// Package trap pkg/trap/attribute.go implements source-host attribution
// (spec.md §4.6): a trap is attributed to the transmitter whose configured
// snmp_host matches the sender's address, carrying that transmitter's site
// along. Failure to attribute is non-fatal — the trap is still stored, just
// without a transmitter/site reference.
package trap

import (
	"context"

	"github.com/fmfleet/txmoncore/pkg/models"
)

// Store is the subset of db.Store the trap receiver consumes. Narrowed for
// the same reason as the scheduler's Store interface: tests inject a small
// fake rather than a full db.Store mock.
type Store interface {
	ListTransmitters(ctx context.Context) ([]models.Transmitter, error)
	StoreTrap(ctx context.Context, trap *models.SnmpTrap) error
}

// attribute fills in TransmitterID and SiteID on trap by matching its
// SourceHost against a transmitter's configured host. Property 8 (spec.md
// §9): attribution succeeds iff exactly one transmitter matches; an
// ambiguous or absent match leaves the trap unattributed rather than
// guessing.
func attribute(transmitters []models.Transmitter, trap *models.SnmpTrap) {
	if trap.SourceHost == "" {
		return
	}

	var match *models.Transmitter

	for i := range transmitters {
		if transmitters[i].Host != trap.SourceHost {
			continue
		}

		if match != nil {
			// More than one transmitter claims this host; attribution is
			// ambiguous, leave the trap unattributed.
			return
		}

		match = &transmitters[i]
	}

	if match == nil {
		return
	}

	id := match.ID
	site := match.SiteID
	trap.TransmitterID = &id
	trap.SiteID = &site
}
