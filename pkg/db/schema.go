package db

import (
	"context"
	"fmt"
	"log"
)

// schemaStatements are additive-only and idempotent, per spec.md §4.2 —
// safe to run on every process start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		address TEXT NOT NULL DEFAULT '',
		contact JSONB NOT NULL DEFAULT '{}',
		timezone TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transmitters (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		display_label TEXT NOT NULL DEFAULT '',
		display_order INTEGER NOT NULL DEFAULT 0,
		nominal_frequency DOUBLE PRECISION NOT NULL DEFAULT 0,
		nominal_power DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'unknown',
		vendor TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		snmp_host TEXT NOT NULL,
		snmp_port INTEGER NOT NULL DEFAULT 161,
		snmp_community TEXT NOT NULL DEFAULT 'public',
		snmp_version INTEGER NOT NULL DEFAULT 1,
		oids JSONB NOT NULL DEFAULT '[]',
		poll_interval INTEGER NOT NULL DEFAULT 10000,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// Additive columns for deployments bootstrapped from an older schema
	// revision that predates display_label/display_order.
	`ALTER TABLE transmitters ADD COLUMN IF NOT EXISTS display_label TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE transmitters ADD COLUMN IF NOT EXISTS display_order INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE transmitters ALTER COLUMN poll_interval SET DEFAULT 10000`,
	// Migrate rows left at the legacy 30s default (or never set) up to the
	// current 10s default, per spec.md §4.2.
	`UPDATE transmitters SET poll_interval = 10000 WHERE poll_interval IS NULL OR poll_interval = 30000`,
	`CREATE TABLE IF NOT EXISTS transmitter_metrics (
		transmitter_id TEXT NOT NULL REFERENCES transmitters(id) ON DELETE CASCADE,
		timestamp TIMESTAMPTZ NOT NULL,
		power_output DOUBLE PRECISION,
		forward_power DOUBLE PRECISION,
		reflected_power DOUBLE PRECISION,
		frequency DOUBLE PRECISION,
		vswr DOUBLE PRECISION,
		temperature DOUBLE PRECISION,
		status TEXT NOT NULL DEFAULT 'unknown',
		raw JSONB,
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (transmitter_id, timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS alarms (
		id TEXT PRIMARY KEY,
		transmitter_id TEXT NOT NULL REFERENCES transmitters(id) ON DELETE CASCADE,
		severity TEXT NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT true,
		acked_by TEXT NOT NULL DEFAULT '',
		acked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS snmp_traps (
		id BIGSERIAL PRIMARY KEY,
		transmitter_id TEXT REFERENCES transmitters(id) ON DELETE SET NULL,
		site_id TEXT REFERENCES sites(id) ON DELETE SET NULL,
		source_host TEXT NOT NULL,
		source_port INTEGER NOT NULL,
		community TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		trap_oid TEXT NOT NULL DEFAULT '',
		enterprise_oid TEXT NOT NULL DEFAULT '',
		varbinds JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snmp_traps_created_at ON snmp_traps (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_snmp_traps_source_host ON snmp_traps (source_host)`,
	`CREATE INDEX IF NOT EXISTS idx_snmp_traps_transmitter_id ON snmp_traps (transmitter_id)`,
}

// hypertableStatements are best-effort: they only take effect when the
// TimescaleDB extension is installed. Failures are logged and ignored —
// plain Postgres tables already satisfy every Store operation.
var hypertableStatements = []string{
	`SELECT create_hypertable('transmitter_metrics', 'timestamp', if_not_exists => true, migrate_data => true)`,
	`SELECT create_hypertable('snmp_traps', 'created_at', if_not_exists => true, migrate_data => true)`,
}

// InitializeSchema implements Store. It is idempotent and additive-only,
// safe to call on every process start.
func (s *PostgresStore) InitializeSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrFailedToInit, err)
		}
	}

	for _, stmt := range hypertableStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			log.Printf("db: hypertable conversion skipped (timescaledb extension likely absent): %v", err)
		}
	}

	return nil
}
