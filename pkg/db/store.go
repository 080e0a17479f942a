// Package db pkg/db/store.go: Postgres-backed implementation of the Store
// contract in interfaces.go. Connectivity goes through database/sql with
// the github.com/jackc/pgx/v5/stdlib driver (registered as "pgx"),
// following the teacher's pattern of a thin *sql.DB-backed Service type but
// targeting Postgres/TimescaleDB instead of SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// PostgresStore implements Store against a Postgres/TimescaleDB database.
type PostgresStore struct {
	db     *sql.DB
	notify ReloadNotifier
}

// Open connects to Postgres using DATABASE_URL-shaped dsn and returns a
// ready-to-use store. It does not run InitializeSchema; callers do that
// explicitly during startup so schema-init failures can be distinguished
// from connectivity failures (spec.md §7).
func Open(dsn string) (*PostgresStore, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", ErrFailedOpenDB, err)
	}

	return &PostgresStore{db: sqlDB, notify: func(context.Context) {}}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SetReloadNotifier implements Store.
func (s *PostgresStore) SetReloadNotifier(fn ReloadNotifier) {
	if fn == nil {
		fn = func(context.Context) {}
	}

	s.notify = fn
}

func (s *PostgresStore) reload(ctx context.Context) {
	s.notify(ctx)
}

func (s *PostgresStore) begin(ctx context.Context) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToBeginTx, err)
	}

	return ToTransaction(tx), nil
}

func logAndSwallow(op string, err error) {
	if err != nil {
		log.Printf("db: %s failed (swallowed, polling path must not break): %v", op, err)
	}
}
