// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the PollPulse analytics server.

PollPulse ingests poll engagement events (impressions and votes), counts
each identity at most once per poll and event class, and maintains
always-fresh rollup counters that power poll summaries.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... ADMIN_KEY_SALT=... IP_HASH_SALT=... go run main.go

Or with flags:

	go run main.go -p 3324 -d "file:pollpulse.db" -t sqlite

# Configuration

Required settings:

  - DATABASE_URL (-d): Database connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - IP_HASH_SALT (--ip-salt): Secret for salted IP hashing

Optional settings:

  - PORT (-p): Server port (default: 3324)
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)
  - SUMMARY_CACHE_TTL (-cache-ttl): Hot summary cache lifetime (default: 30s)
  - VERBOSE (-v): Debug logging

A .env file in the working directory is loaded if present.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (polls, events, summaries)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - ingest: Deduplication engine and rollup maintenance
  - identity: Event identity resolution
  - dimensions: Device/geo dimension interning
  - auth: Admin key generation and IP hashing
  - db: Schema creation
  - cliparse: Configuration parsing

Ingestion flows through a single ingest.Engine per process: it resolves
dimensions, deduplicates via storage uniqueness reservations, and keeps
the rollup counters transactionally consistent with the event ledger.
*/
package main
