// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ingest is the event ingestion and deduplication engine.

# Pipeline

Each incoming client event flows through:

 1. Poll lookup (ErrUnknownPoll) and, for votes, the referential check
    (ErrInvalidOption) - the only hard failures, raised before any state
    change.
 2. Dimension resolution (degraded-tolerant; never blocks ingestion).
 3. Identity key resolution (zero-UUID sentinel for anonymous traffic).
 4. The atomic reserve-and-increment unit: an ON CONFLICT DO NOTHING insert
    into the uniqueness-constrained ledger, plus the rollup increments, in
    one transaction under the poll's mutex.

Duplicate submissions lose the reservation and are acknowledged with
Accepted=false - a normal idempotent outcome, not an error. Impressions and
votes are independent dedup domains; a vote requires no prior impression.

# Concurrency

Coordination happens only at the reserve-and-increment step, scoped to one
poll via a lazily populated xsync.Map of mutexes; unrelated polls ingest
fully in parallel. Transient storage errors (SQLite busy, serialization
failures) are retried with exponential backoff inside the lock. A context
cancelled before commit leaves no side effect; once committed, the event is
permanent.

# Rollups

Rollup counters are a cache over the append-only ledgers. The incremental
updates in the submit path are the fast path; RecomputeRollup derives every
counter from scratch by scanning accepted events and is the authority for
correctness, used for drift detection and repair:

	summary, err := engine.RecomputeRollup(ctx, pollID)

# Query Facade

GetSummary serves reads from a TTL cache over the rollup rows:

	summary, err := engine.GetSummary(ctx, pollID)

Cache entries are dropped on every accepted event, so the bounded staleness
window is min(TTL, time to next accepted event). Cold polls (no rollup row
yet) fall back to RecomputeRollup transparently.

# Unique Voters

unique_voter_count counts distinct identified users with at least one
accepted vote on the poll. One user voting from several sessions/devices
passes the session-scoped dedup key each time (each vote counts) but lands
in poll_voter once. Anonymous votes never move the counter.
*/
package ingest
