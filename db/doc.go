// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The DDL is written in the dialect subset shared by PostgreSQL (lib/pq) and
SQLite (modernc.org/sqlite), so the same schema serves production and tests.

# Tables

The schema has three layers:

Fact ledgers (append-only, uniqueness-constrained):

  - impression: One counted impression per identity per poll
  - vote: One counted vote per identity per poll
  - poll_voter: First identified vote per (poll, user)

Dimensions (lazily created, immutable):

  - device_platform: Distinct device/OS/browser/app attribute combinations
  - geo_location: Distinct country/region/city combinations

Entities and rollups:

  - poll: Poll metadata and lifecycle state
  - option: Voting options per poll
  - poll_rollup: Per-poll counters (impressions, votes, unique voters)
  - option_rollup: Per-option vote counters

# Relationships

	poll 1──* option
	poll 1──* impression
	poll 1──* vote
	poll 1──1 poll_rollup
	option 1──1 option_rollup
	device_platform 1──* impression/vote
	geo_location 1──* impression/vote

# Deduplication

The UNIQUE constraints on impression and vote over
(poll_id, session_id, device_platform_id, user_id) are the engine's
deduplication mechanism: ingestion inserts with ON CONFLICT DO NOTHING and
treats zero rows affected as a suppressed duplicate. Identity columns are
stored resolved (the zero-UUID sentinel stands in for anonymous users and
missing sessions) so the constraint never has NULL holes.
*/
package db
