// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the analytics store.
// Safe to call multiple times - uses IF NOT EXISTS.
//
// The DDL sticks to the subset shared by PostgreSQL and SQLite so the same
// statements run under both drivers. Timestamps are always written from Go
// rather than via column defaults.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'closed')),
    start_time TIMESTAMP,
    end_time TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_status ON poll(status);

-- Options
CREATE TABLE IF NOT EXISTS option (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    display_order INTEGER NOT NULL,
    UNIQUE (poll_id, display_order)
);

CREATE INDEX IF NOT EXISTS idx_option_poll_id ON option(poll_id);

-- Device/platform dimension. Rows are created lazily on first sighting of a
-- distinct attribute combination and never updated afterward; the uniqueness
-- constraint is what makes concurrent lookup-or-create converge.
CREATE TABLE IF NOT EXISTS device_platform (
    id TEXT PRIMARY KEY,
    device_type TEXT NOT NULL,
    os TEXT NOT NULL,
    os_version TEXT NOT NULL,
    browser TEXT NOT NULL,
    browser_version TEXT NOT NULL,
    app_version TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (device_type, os, os_version, browser, browser_version, app_version)
);

-- Geo dimension. Same lazy-create, immutable contract as device_platform.
CREATE TABLE IF NOT EXISTS geo_location (
    id TEXT PRIMARY KEY,
    country TEXT NOT NULL,
    region TEXT NOT NULL,
    city TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (country, region, city)
);

-- Impression ledger. Append-only; the uniqueness constraint over the resolved
-- identity tuple is the deduplication mechanism. Identity columns are stored
-- resolved (zero-UUID sentinel, never NULL) so the constraint is total.
CREATE TABLE IF NOT EXISTS impression (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    session_id TEXT NOT NULL,
    device_platform_id TEXT NOT NULL REFERENCES device_platform(id),
    geo_location_id TEXT NOT NULL REFERENCES geo_location(id),
    user_id TEXT NOT NULL,
    occurred_at TIMESTAMP NOT NULL,
    user_agent TEXT,
    ip_hash TEXT,
    off_window BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (poll_id, session_id, device_platform_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_impression_poll_id ON impression(poll_id);

-- Vote ledger. Independent dedup domain from impressions: the same identity
-- may have one counted impression AND one counted vote per poll.
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES option(id) ON DELETE CASCADE,
    session_id TEXT NOT NULL,
    device_platform_id TEXT NOT NULL REFERENCES device_platform(id),
    geo_location_id TEXT NOT NULL REFERENCES geo_location(id),
    user_id TEXT NOT NULL,
    occurred_at TIMESTAMP NOT NULL,
    user_agent TEXT,
    ip_hash TEXT,
    off_window BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (poll_id, session_id, device_platform_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_poll_id ON vote(poll_id);
CREATE INDEX IF NOT EXISTS idx_vote_option_id ON vote(option_id);

-- First identified vote per (poll, user). One user voting from several
-- sessions/devices passes the vote dedup key each time but lands here once,
-- which is what drives unique_voter_count.
CREATE TABLE IF NOT EXISTS poll_voter (
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    first_vote_at TIMESTAMP NOT NULL,
    PRIMARY KEY (poll_id, user_id)
);

-- Rollup counters: a cache over the ledgers, maintained in the same
-- transaction as the accepting insert and rebuildable from scratch.
CREATE TABLE IF NOT EXISTS poll_rollup (
    poll_id TEXT PRIMARY KEY REFERENCES poll(id) ON DELETE CASCADE,
    impression_count INTEGER NOT NULL DEFAULT 0,
    vote_count INTEGER NOT NULL DEFAULT 0,
    unique_voter_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS option_rollup (
    option_id TEXT PRIMARY KEY REFERENCES option(id) ON DELETE CASCADE,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    vote_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_option_rollup_poll_id ON option_rollup(poll_id);
`
