// Package db pkg/db/interfaces.go
package db

import (
	"context"
	"time"

	"github.com/fmfleet/txmoncore/pkg/models"
)

// Row represents a database row.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result represents the result of a database operation.
type Result interface {
	RowsAffected() (int64, error)
}

// Rows represents multiple database rows.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Transaction represents operations that can be performed within a database transaction.
type Transaction interface {
	Exec(ctx context.Context, query string, args ...interface{}) (Result, error)
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Commit() error
	Rollback() error
}

// TrapFilter narrows a trap query by any combination of transmitter, site,
// and source host (spec.md §4.2, get_latest_traps / get_traps_range).
type TrapFilter struct {
	TransmitterID string
	SiteID        string
	SourceHost    string
}

// ReloadNotifier is invoked after any write that changes the poller's
// configuration surface (site or transmitter create/update/delete), per
// spec.md §4.7. The store never imports the scheduler package directly —
// wiring a notifier this way keeps the dependency direction store→callback
// instead of store→scheduler.
type ReloadNotifier func(ctx context.Context)

// Store is the persistence contract described in spec.md §4.2. All calls
// take a context so callers can bound them; internal I/O failures on the
// polling write path (StoreMetrics) are logged and swallowed rather than
// returned, per that section's failure model.
type Store interface {
	Close() error

	InitializeSchema(ctx context.Context) error

	// Sites

	GetSite(ctx context.Context, id string) (*models.Site, error)
	ListSites(ctx context.Context) ([]models.Site, error)
	CreateSite(ctx context.Context, site *models.Site) (*models.Site, error)
	UpdateSite(ctx context.Context, id string, patch map[string]interface{}) (*models.Site, error)
	DeleteSite(ctx context.Context, id string) (bool, error)

	// Transmitters

	GetTransmitter(ctx context.Context, id string) (*models.Transmitter, error)
	ListTransmitters(ctx context.Context) ([]models.Transmitter, error)
	UpsertTransmitter(ctx context.Context, tx *models.Transmitter) (*models.Transmitter, error)
	PatchTransmitter(ctx context.Context, id string, patch map[string]interface{}) (*models.Transmitter, error)
	DeleteTransmitter(ctx context.Context, id string) (bool, error)

	// Metrics

	StoreMetrics(ctx context.Context, transmitterID string, result models.TransmitterMetricData) error
	GetLatestMetrics(ctx context.Context, transmitterID string) (*models.TransmitterMetric, error)
	GetMetricsRange(ctx context.Context, transmitterID string, start, end time.Time, limit int) ([]models.TransmitterMetric, error)

	// Traps

	StoreTrap(ctx context.Context, trap *models.SnmpTrap) error
	GetLatestTraps(ctx context.Context, filter TrapFilter, limit int) ([]models.SnmpTrap, error)
	GetTrapsRange(ctx context.Context, start, end time.Time, filter TrapFilter, limit int) ([]models.SnmpTrap, error)

	// PruneOldData deletes metrics and traps older than the retention
	// window in a single transaction.
	PruneOldData(ctx context.Context, retention time.Duration) error

	// SetReloadNotifier registers the callback invoked after a
	// configuration-changing write commits (spec.md §4.7).
	SetReloadNotifier(fn ReloadNotifier)
}
