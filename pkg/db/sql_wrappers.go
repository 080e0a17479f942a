// Package db pkg/db/sql_wrappers.go provides wrappers for the sql package to implement the
// interfaces defined in pkg/db/interfaces.go. This allows the concrete sql package types to
// be used through the Store interface. The SQLRow, SQLRows, SQLResult, and SQLTx types wrap
// the sql.Row, sql.Rows, sql.Result, and sql.Tx types, respectively, to implement the Row,
// Rows, Result, and Transaction interfaces used elsewhere in this package.
package db

import (
	"context"
	"database/sql"
	"log"
)

// SQLRow wraps sql.Row to implement Row interface.
type SQLRow struct {
	*sql.Row
}

// SQLRows wraps sql.Rows to implement Rows interface.
type SQLRows struct {
	*sql.Rows
}

// SQLResult wraps sql.Result to implement Result interface.
type SQLResult struct {
	sql.Result
}

func (r *SQLResult) RowsAffected() (int64, error) {
	return r.Result.RowsAffected()
}

// SQLTx wraps sql.Tx to implement Transaction interface.
type SQLTx struct {
	*sql.Tx
}

func (tx *SQLTx) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	result, err := tx.Tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &SQLResult{result}, nil
}

func (tx *SQLTx) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := tx.Tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &SQLRows{rows}, nil
}

func (tx *SQLTx) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return &SQLRow{tx.Tx.QueryRowContext(ctx, query, args...)}
}

func ToTransaction(tx *sql.Tx) Transaction {
	return &SQLTx{tx}
}

// CloseRows safely closes a Rows type and logs any error.
func CloseRows(rows Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("db: failed to close rows: %v", err)
	}
}
