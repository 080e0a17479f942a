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

const siteColumns = `id, name, location, latitude, longitude, address, contact, timezone, is_active, created_at, updated_at`

// sitePatchColumns whitelists the columns UpdateSite's patch map may target.
// id/created_at/updated_at are deliberately excluded — the row identity and
// audit timestamps are never client-settable.
var sitePatchColumns = map[string]bool{
	"name":      true,
	"location":  true,
	"latitude":  true,
	"longitude": true,
	"address":   true,
	"contact":   true,
	"timezone":  true,
	"is_active": true,
}

func scanSite(row Row) (*models.Site, error) {
	var (
		site      models.Site
		lat, lon  sql.NullFloat64
		contactRaw []byte
	)

	if err := row.Scan(
		&site.ID, &site.Name, &site.Location, &lat, &lon, &site.Address,
		&contactRaw, &site.Timezone, &site.IsActive, &site.CreatedAt, &site.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if lat.Valid {
		site.Latitude = &lat.Float64
	}

	if lon.Valid {
		site.Longitude = &lon.Float64
	}

	site.Contact = NormalizeContactInfo(contactRaw)

	return &site, nil
}

func (s *PostgresStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id)

	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSiteNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
	}

	return site, nil
}

func (s *PostgresStore) ListSites(ctx context.Context) ([]models.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.Site

	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToScan, err)
		}

		out = append(out, *site)
	}

	return out, rows.Err()
}

func (s *PostgresStore) CreateSite(ctx context.Context, site *models.Site) (*models.Site, error) {
	if site.ID == "" {
		site.ID = uuid.NewString()
	}

	contact, err := json.Marshal(site.Contact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sites (id, name, location, latitude, longitude, address, contact, timezone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		site.ID, site.Name, site.Location, site.Latitude, site.Longitude, site.Address, contact, site.Timezone, site.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	s.reload(ctx)

	return s.GetSite(ctx, site.ID)
}

func (s *PostgresStore) UpdateSite(ctx context.Context, id string, patch map[string]interface{}) (*models.Site, error) {
	if len(patch) == 0 {
		return s.GetSite(ctx, id)
	}

	set, args, err := buildPatch(patch, 1, sitePatchColumns, map[string]bool{"contact": true})
	if err != nil {
		return nil, err
	}

	args = append(args, id)

	query := fmt.Sprintf(`UPDATE sites SET %s, updated_at = now() WHERE id = $%d`, set, len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSiteNotFound
	}

	s.reload(ctx)

	return s.GetSite(ctx, id)
}

func (s *PostgresStore) DeleteSite(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sites WHERE id = $1`, id)
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

// buildPatch renders a PATCH-style column map into a "col = $n, ..." SET
// clause plus its positional args, starting numbering at startIdx. allowed
// whitelists which columns may appear (rejecting anything else with
// ErrInvalidPatchColumn); jsonColumns names the subset that must be
// marshaled to JSON before binding.
func buildPatch(patch map[string]interface{}, startIdx int, allowed, jsonColumns map[string]bool) (string, []interface{}, error) {
	set := ""
	args := make([]interface{}, 0, len(patch))
	i := startIdx

	for col, val := range patch {
		if !allowed[col] {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidPatchColumn, col)
		}

		if jsonColumns[col] {
			b, err := json.Marshal(val)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %w", ErrFailedToInsert, err)
			}

			val = b
		}

		if set != "" {
			set += ", "
		}

		set += fmt.Sprintf("%s = $%d", col, i)
		args = append(args, val)
		i++
	}

	return set, args, nil
}
