// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package dimensions resolves raw client attributes to stable dimension-row
identifiers.

# Lookup-or-Create

Dimension rows (device_platform, geo_location) are created lazily on first
sighting of a distinct attribute combination and are immutable afterward; a
changed app version yields a new row, not a mutated one. Resolution is by
value equality:

	deviceID, err := resolver.ResolveDevicePlatform(ctx, attrs)
	geoID, err := resolver.ResolveGeoLocation(ctx, attrs)

Concurrent callers resolving the identical attribute set converge on the
same ID: the insert uses ON CONFLICT DO NOTHING against the attribute-tuple
uniqueness constraint, and a lost race falls through to a reselect.

# Degraded Resolution

Attribute parsing problems must never block event ingestion. Empty
attributes normalize to "unknown", and the Degraded variants fall back to
the all-unknown dimension row (logging a warning) rather than surfacing
resolution errors to the ingest path.
*/
package dimensions
