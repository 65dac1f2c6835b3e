// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the PollPulse API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, engine, cfg)

# Endpoints

Health:

	GET /health

Poll management (admin, requires X-Admin-Key):

	POST /polls                - Create poll
	POST /polls/{id}/options   - Add option (draft only)
	POST /polls/{id}/activate  - Open for traffic
	POST /polls/{id}/close     - Stop the lifecycle window

Event ingestion (public, idempotent):

	POST /polls/{id}/impressions - Record an impression
	POST /polls/{id}/votes       - Record a vote

Reads:

	GET  /polls/{id}                   - Poll info and options
	GET  /polls/{id}/summary           - Maintained rollup counters
	POST /polls/{id}/rollup/recompute  - Rebuild counters from the ledger (admin)

# Handler Initialization

The router creates handler instances with dependency injection:

	pollHandler := handlers.NewPollHandler(db, cfg)
	eventsHandler := handlers.NewEventsHandler(engine, cfg)
	summaryHandler := handlers.NewSummaryHandler(engine, cfg)

Poll management talks to the database directly; ingestion and summary
reads go through the shared ingest.Engine so deduplication, rollup
maintenance, and caching stay in one place.
*/
package router
