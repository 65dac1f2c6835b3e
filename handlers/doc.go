// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the PollPulse API.

# Handler Types

Each handler is a struct with its dependencies injected via constructor:

  - PollHandler: Poll authoring (create, add options, activate, close)
  - EventsHandler: Impression and vote ingestion
  - SummaryHandler: Rollup reads and operational recompute

PollHandler takes *sql.DB directly; the event and summary handlers go
through *ingest.Engine:

	eventsHandler := handlers.NewEventsHandler(engine, cfg)

# Poll Lifecycle

Polls progress through three states: draft → active → closed

	POST /polls                → CreatePoll (returns admin_key)
	POST /polls/{id}/options   → AddOption (draft only)
	POST /polls/{id}/activate  → ActivatePoll (needs at least 2 options)
	POST /polls/{id}/close     → ClosePoll

Authoring operations require the X-Admin-Key header.

# Ingestion

Ingestion is public, fire-and-forget idempotent:

	POST /polls/{id}/impressions → SubmitImpression
	POST /polls/{id}/votes       → SubmitVote

Both respond {accepted: bool}; accepted=false means the identity already
counted for that event class (a normal outcome, not an error). The only
hard failures are 404 for an unknown poll and 400 for a vote whose option
belongs to a different poll.

# Reads

	GET  /polls/{id}/summary           → GetSummary
	POST /polls/{id}/rollup/recompute  → RecomputeRollup (admin repair)
*/
package handlers
