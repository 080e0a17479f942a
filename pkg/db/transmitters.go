package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fmfleet/txmoncore/pkg/models"
)

const transmitterColumns = `id, site_id, name, display_label, display_order, nominal_frequency, nominal_power,
	status, vendor, model, snmp_host, snmp_port, snmp_community, snmp_version, oids, poll_interval,
	is_active, created_at, updated_at`

// transmitterPatchColumns whitelists the columns PatchTransmitter's patch
// map may target. id/created_at/updated_at are deliberately excluded — the
// row identity and audit timestamps are never client-settable.
var transmitterPatchColumns = map[string]bool{
	"site_id":           true,
	"name":              true,
	"display_label":     true,
	"display_order":     true,
	"nominal_frequency": true,
	"nominal_power":     true,
	"status":            true,
	"vendor":            true,
	"model":             true,
	"snmp_host":         true,
	"snmp_port":         true,
	"snmp_community":    true,
	"snmp_version":      true,
	"oids":              true,
	"poll_interval":     true,
	"is_active":         true,
}

// transmitterJSONColumns translates the wire field names in models.Transmitter's
// tags to the db columns PatchTransmitter accepts.
var transmitterJSONColumns = map[string]string{
	"siteId":           "site_id",
	"name":             "name",
	"label":            "display_label",
	"displayOrder":     "display_order",
	"nominalFrequency": "nominal_frequency",
	"nominalPower":     "nominal_power",
	"status":           "status",
	"vendor":           "vendor",
	"model":            "model",
	"host":             "snmp_host",
	"port":             "snmp_port",
	"community":        "snmp_community",
	"version":          "snmp_version",
	"oids":             "oids",
	"pollInterval":     "poll_interval",
	"isActive":         "is_active",
}

// TransmitterPatchFromJSON translates a decoded JSON request body (keyed by
// the wire field names above) into the db-column patch map PatchTransmitter
// expects. An unrecognized key is rejected outright rather than silently
// dropped, so a client typo surfaces as a 400 instead of a no-op field.
func TransmitterPatchFromJSON(body map[string]interface{}) (map[string]interface{}, error) {
	patch := make(map[string]interface{}, len(body))

	for k, v := range body {
		col, ok := transmitterJSONColumns[k]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPatchColumn, k)
		}

		patch[col] = v
	}

	return patch, nil
}

func scanTransmitter(row Row) (*models.Transmitter, error) {
	var (
		t       models.Transmitter
		oidsRaw []byte
	)

	if err := row.Scan(
		&t.ID, &t.SiteID, &t.Name, &t.Label, &t.DisplayOrder, &t.NominalFreqMHz, &t.NominalPowerW,
		&t.Status, &t.Vendor, &t.Model, &t.Host, &t.Port, &t.Community, &t.Version, &oidsRaw, &t.PollIntervalMS,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(oidsRaw) > 0 {
		if err := json.Unmarshal(oidsRaw, &t.OIDs); err != nil {
			return nil, fmt.Errorf("%w: oids column: %w", ErrFailedToScan, err)
		}
	}

	return &t, nil
}

func (s *PostgresStore) GetTransmitter(ctx context.Context, id string) (*models.Transmitter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transmitterColumns+` FROM transmitters WHERE id = $1`, id)

	t, err := scanTransmitter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransmitterNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
	}

	return t, nil
}

// ListTransmitters returns every transmitter ordered by (site_id,
// display_order) ascending, matching the fleet-panel ordering contract from
// spec.md §4.2.
func (s *PostgresStore) ListTransmitters(ctx context.Context) ([]models.Transmitter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transmitterColumns+` FROM transmitters ORDER BY site_id ASC, display_order ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.Transmitter

	for rows.Next() {
		t, err := scanTransmitter(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out = append(out, *t)
	}

	return out, rows.Err()
}

// UpsertTransmitter inserts a new transmitter, keyed by ID. A caller
// supplying no ID always inserts; an ID that already exists has every column
// of its row overwritten with t's values (PatchTransmitter is the
// partial-update path). Presence of
// SiteID is checked before the write so a dangling reference surfaces as
// ErrSiteRequired instead of an opaque foreign-key failure.
func (s *PostgresStore) UpsertTransmitter(ctx context.Context, t *models.Transmitter) (*models.Transmitter, error) {
	if t.SiteID == "" {
		return nil, ErrSiteRequired
	}

	if _, err := s.GetSite(ctx, t.SiteID); err != nil {
		if errors.Is(err, ErrSiteNotFound) {
			return nil, ErrSiteRequired
		}

		return nil, err
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	if t.Community == "" {
		t.Community = "public"
	}

	if t.Port == 0 {
		t.Port = 161
	}

	if t.PollIntervalMS == 0 {
		t.PollIntervalMS = 10000
	}

	oids, err := json.Marshal(t.OIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transmitters (
			id, site_id, name, display_label, display_order, nominal_frequency, nominal_power,
			status, vendor, model, snmp_host, snmp_port, snmp_community, snmp_version, oids,
			poll_interval, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET
			site_id = EXCLUDED.site_id,
			name = EXCLUDED.name,
			display_label = EXCLUDED.display_label,
			display_order = EXCLUDED.display_order,
			nominal_frequency = EXCLUDED.nominal_frequency,
			nominal_power = EXCLUDED.nominal_power,
			status = EXCLUDED.status,
			vendor = EXCLUDED.vendor,
			model = EXCLUDED.model,
			snmp_host = EXCLUDED.snmp_host,
			snmp_port = EXCLUDED.snmp_port,
			snmp_community = EXCLUDED.snmp_community,
			snmp_version = EXCLUDED.snmp_version,
			oids = EXCLUDED.oids,
			poll_interval = EXCLUDED.poll_interval,
			is_active = EXCLUDED.is_active,
			updated_at = now()`,
		t.ID, t.SiteID, t.Name, t.Label, t.DisplayOrder, t.NominalFreqMHz, t.NominalPowerW,
		string(t.Status), t.Vendor, t.Model, t.Host, t.Port, t.Community, t.Version, oids,
		t.PollIntervalMS, t.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	s.reload(ctx)

	return s.GetTransmitter(ctx, t.ID)
}

// PatchTransmitter applies a partial update to an existing transmitter,
// merging only the supplied columns and leaving the rest of the row
// untouched — the PATCH half of upsert_transmitter (spec.md §4.2).
// UpsertTransmitter covers the insert half; the two never overlap because a
// caller with a known ID should always reach this instead.
func (s *PostgresStore) PatchTransmitter(ctx context.Context, id string, patch map[string]interface{}) (*models.Transmitter, error) {
	if len(patch) == 0 {
		return s.GetTransmitter(ctx, id)
	}

	if siteID, ok := patch["site_id"]; ok {
		sid, _ := siteID.(string)
		if sid == "" {
			return nil, ErrSiteRequired
		}

		if _, err := s.GetSite(ctx, sid); err != nil {
			if errors.Is(err, ErrSiteNotFound) {
				return nil, ErrSiteRequired
			}

			return nil, err
		}
	}

	set, args, err := buildPatch(patch, 1, transmitterPatchColumns, map[string]bool{"oids": true})
	if err != nil {
		return nil, err
	}

	args = append(args, id)

	query := fmt.Sprintf(`UPDATE transmitters SET %s, updated_at = now() WHERE id = $%d`, set, len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrTransmitterNotFound
	}

	s.reload(ctx)

	return s.GetTransmitter(ctx, id)
}

func (s *PostgresStore) DeleteTransmitter(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transmitters WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	s.reload(ctx)

	return n > 0, nil
}
