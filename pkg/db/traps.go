package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fmfleet/txmoncore/pkg/models"
)

const trapColumns = `id, transmitter_id, site_id, source_host, source_port, community, version,
	trap_oid, enterprise_oid, varbinds, created_at`

func scanTrap(row Row) (*models.SnmpTrap, error) {
	var (
		t          models.SnmpTrap
		varbinds   []byte
	)

	if err := row.Scan(
		&t.ID, &t.TransmitterID, &t.SiteID, &t.SourceHost, &t.SourcePort, &t.Community, &t.Version,
		&t.TrapOID, &t.EnterpriseOID, &varbinds, &t.CreatedAt,
	); err != nil {
		return nil, err
	}

	if len(varbinds) > 0 {
		if err := json.Unmarshal(varbinds, &t.Varbinds); err != nil {
			return nil, fmt.Errorf("%w: varbinds column: %w", ErrFailedToScan, err)
		}
	}

	return &t, nil
}

// StoreTrap appends one received trap. Traps are append-only and never
// rejected for lacking a transmitter/site attribution (spec.md §4.6): those
// columns are simply left NULL.
func (s *PostgresStore) StoreTrap(ctx context.Context, trap *models.SnmpTrap) error {
	varbinds, err := json.Marshal(trap.Varbinds)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO snmp_traps (
			transmitter_id, site_id, source_host, source_port, community, version,
			trap_oid, enterprise_oid, varbinds
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at`,
		trap.TransmitterID, trap.SiteID, trap.SourceHost, trap.SourcePort, trap.Community, trap.Version,
		trap.TrapOID, trap.EnterpriseOID, varbinds,
	)

	if err := row.Scan(&trap.ID, &trap.CreatedAt); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	return nil
}

func buildTrapFilter(filter TrapFilter, startIdx int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	i := startIdx

	if filter.TransmitterID != "" {
		clauses = append(clauses, fmt.Sprintf("transmitter_id = $%d", i))
		args = append(args, filter.TransmitterID)
		i++
	}

	if filter.SiteID != "" {
		clauses = append(clauses, fmt.Sprintf("site_id = $%d", i))
		args = append(args, filter.SiteID)
		i++
	}

	if filter.SourceHost != "" {
		clauses = append(clauses, fmt.Sprintf("source_host = $%d", i))
		args = append(args, filter.SourceHost)
		i++
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

// GetLatestTraps returns up to limit traps matching filter, newest first.
// limit<=0 defaults to 100 (spec.md §4.2).
func (s *PostgresStore) GetLatestTraps(ctx context.Context, filter TrapFilter, limit int) ([]models.SnmpTrap, error) {
	if limit <= 0 {
		limit = 100
	}

	where, args := buildTrapFilter(filter, 1)
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM snmp_traps WHERE true%s ORDER BY created_at DESC LIMIT $%d`,
		trapColumns, where, len(args))

	return s.queryTraps(ctx, query, args...)
}

// GetTrapsRange returns up to limit traps matching filter within
// [start, end], newest first. limit<=0 defaults to 1000.
func (s *PostgresStore) GetTrapsRange(ctx context.Context, start, end time.Time, filter TrapFilter, limit int) ([]models.SnmpTrap, error) {
	if limit <= 0 {
		limit = 1000
	}

	where, args := buildTrapFilter(filter, 3)
	args = append([]interface{}{start, end}, args...)
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM snmp_traps WHERE created_at BETWEEN $1 AND $2%s ORDER BY created_at DESC LIMIT $%d`,
		trapColumns, where, len(args))

	return s.queryTraps(ctx, query, args...)
}

func (s *PostgresStore) queryTraps(ctx context.Context, query string, args ...interface{}) ([]models.SnmpTrap, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.SnmpTrap

	for rows.Next() {
		t, err := scanTrap(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out = append(out, *t)
	}

	return out, rows.Err()
}
