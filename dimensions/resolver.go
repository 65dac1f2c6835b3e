// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package dimensions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/pollpulse/models"
)

// Unknown is the normalized value for attributes the client could not
// supply. The all-unknown row is the degraded fallback: dimension
// resolution must never fail event ingestion.
const Unknown = "unknown"

// Resolver maps raw client attributes to stable dimension-row IDs,
// creating rows lazily on first sighting. Rows are immutable once created;
// the attribute-tuple uniqueness constraint makes concurrent creates
// converge on a single row without client-side locking.
type Resolver struct {
	db    *sql.DB
	clock clockwork.Clock
}

func NewResolver(db *sql.DB, clock clockwork.Clock) *Resolver {
	return &Resolver{db: db, clock: clock}
}

// ResolveDevicePlatform returns the dimension-row ID for the given device
// attributes, inserting a new row if no match exists. Empty attributes
// normalize to "unknown" so lookup is always by value equality.
func (r *Resolver) ResolveDevicePlatform(ctx context.Context, attrs models.DeviceAttrs) (string, error) {
	a := normalizeDevice(attrs)

	const lookup = `
		SELECT id FROM device_platform
		WHERE device_type = $1 AND os = $2 AND os_version = $3
		  AND browser = $4 AND browser_version = $5 AND app_version = $6
	`

	var id string
	err := r.db.QueryRowContext(ctx, lookup,
		a.DeviceType, a.OS, a.OSVersion, a.Browser, a.BrowserVersion, a.AppVersion,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up device platform: %w", err)
	}

	// First sighting: insert-on-conflict, then reselect if we lost the race
	newID := uuid.NewString()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO device_platform (id, device_type, os, os_version, browser, browser_version, app_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`, newID, a.DeviceType, a.OS, a.OSVersion, a.Browser, a.BrowserVersion, a.AppVersion, r.clock.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert device platform: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		return newID, nil
	}

	// A concurrent caller created the row; converge on its ID
	err = r.db.QueryRowContext(ctx, lookup,
		a.DeviceType, a.OS, a.OSVersion, a.Browser, a.BrowserVersion, a.AppVersion,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to reselect device platform: %w", err)
	}
	return id, nil
}

// ResolveGeoLocation returns the dimension-row ID for the given geo
// attributes, inserting a new row if no match exists.
func (r *Resolver) ResolveGeoLocation(ctx context.Context, attrs models.GeoAttrs) (string, error) {
	a := normalizeGeo(attrs)

	const lookup = `
		SELECT id FROM geo_location
		WHERE country = $1 AND region = $2 AND city = $3
	`

	var id string
	err := r.db.QueryRowContext(ctx, lookup, a.Country, a.Region, a.City).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up geo location: %w", err)
	}

	newID := uuid.NewString()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO geo_location (id, country, region, city, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`, newID, a.Country, a.Region, a.City, r.clock.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert geo location: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		return newID, nil
	}

	err = r.db.QueryRowContext(ctx, lookup, a.Country, a.Region, a.City).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to reselect geo location: %w", err)
	}
	return id, nil
}

// ResolveDevicePlatformDegraded is ResolveDevicePlatform with the degraded
// contract the ingest path needs: on failure it logs and falls back to the
// all-unknown row instead of surfacing the error.
func (r *Resolver) ResolveDevicePlatformDegraded(ctx context.Context, attrs models.DeviceAttrs) (string, error) {
	id, err := r.ResolveDevicePlatform(ctx, attrs)
	if err == nil {
		return id, nil
	}
	slog.Warn("device platform resolution degraded", "error", err)
	return r.ResolveDevicePlatform(ctx, models.DeviceAttrs{})
}

// ResolveGeoLocationDegraded mirrors ResolveDevicePlatformDegraded for geo.
func (r *Resolver) ResolveGeoLocationDegraded(ctx context.Context, attrs models.GeoAttrs) (string, error) {
	id, err := r.ResolveGeoLocation(ctx, attrs)
	if err == nil {
		return id, nil
	}
	slog.Warn("geo location resolution degraded", "error", err)
	return r.ResolveGeoLocation(ctx, models.GeoAttrs{})
}

func normalizeDevice(a models.DeviceAttrs) models.DeviceAttrs {
	return models.DeviceAttrs{
		DeviceType:     orUnknown(a.DeviceType),
		OS:             orUnknown(a.OS),
		OSVersion:      orUnknown(a.OSVersion),
		Browser:        orUnknown(a.Browser),
		BrowserVersion: orUnknown(a.BrowserVersion),
		AppVersion:     orUnknown(a.AppVersion),
	}
}

func normalizeGeo(a models.GeoAttrs) models.GeoAttrs {
	return models.GeoAttrs{
		Country: orUnknown(a.Country),
		Region:  orUnknown(a.Region),
		City:    orUnknown(a.City),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
