package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fmfleet/txmoncore/pkg/models"
)

const metricColumns = `transmitter_id, timestamp, power_output, forward_power, reflected_power,
	frequency, vswr, temperature, status, raw, error`

func scanMetric(row Row) (*models.TransmitterMetric, error) {
	var m models.TransmitterMetric

	if err := row.Scan(
		&m.TransmitterID, &m.Timestamp, &m.PowerOutput, &m.ForwardPower, &m.ReflectedPower,
		&m.FrequencyMHz, &m.VSWR, &m.Temperature, &m.Status, &m.Raw, &m.Error,
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// StoreMetrics appends one poll result for transmitterID. Per spec.md §4.2
// this is a no-op (not an error) when the transmitter is unknown, and any
// I/O failure is logged and swallowed rather than propagated — the poll
// loop must never break because a write hiccuped. When the parsed data
// carries a radio-name passthrough that differs from the stored name, the
// transmitter's name is updated in the same call.
func (s *PostgresStore) StoreMetrics(ctx context.Context, transmitterID string, result models.TransmitterMetricData) error {
	existing, err := s.GetTransmitter(ctx, transmitterID)
	if errors.Is(err, ErrTransmitterNotFound) {
		return nil
	}

	if err != nil {
		logAndSwallow("store_metrics: lookup transmitter", err)
		return nil
	}

	raw, err := json.Marshal(result.Raw)
	if err != nil {
		logAndSwallow("store_metrics: marshal raw varbinds", err)
		raw = nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transmitter_metrics (
			transmitter_id, timestamp, power_output, forward_power, reflected_power,
			frequency, vswr, temperature, status, raw, error
		) VALUES ($1, now(), $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		transmitterID, result.PowerOutput, result.ForwardPower, result.ReflectedPower,
		result.FrequencyMHz, result.VSWR, result.Temperature, string(result.Status), raw, result.Error,
	)
	if err != nil {
		logAndSwallow("store_metrics: insert", err)
		return nil
	}

	if result.ProposedName != "" && result.ProposedName != existing.Name {
		_, err := s.db.ExecContext(ctx,
			`UPDATE transmitters SET name = $1, updated_at = now() WHERE id = $2`,
			result.ProposedName, transmitterID)
		if err != nil {
			logAndSwallow("store_metrics: radio-name passthrough", err)
		}
	}

	return nil
}

func (s *PostgresStore) GetLatestMetrics(ctx context.Context, transmitterID string) (*models.TransmitterMetric, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+metricColumns+` FROM transmitter_metrics
		 WHERE transmitter_id = $1 ORDER BY timestamp DESC LIMIT 1`, transmitterID)

	m, err := scanMetric(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
	}

	return m, nil
}

// GetMetricsRange returns up to limit metrics for transmitterID within
// [start, end], newest first. limit<=0 defaults to 1000 (spec.md §4.2).
func (s *PostgresStore) GetMetricsRange(ctx context.Context, transmitterID string, start, end time.Time, limit int) ([]models.TransmitterMetric, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+metricColumns+` FROM transmitter_metrics
		 WHERE transmitter_id = $1 AND timestamp BETWEEN $2 AND $3
		 ORDER BY timestamp DESC LIMIT $4`,
		transmitterID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.TransmitterMetric

	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out = append(out, *m)
	}

	return out, rows.Err()
}
