// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/danielhkuo/pollpulse/dimensions"
	"github.com/danielhkuo/pollpulse/identity"
	"github.com/danielhkuo/pollpulse/models"
)

var (
	// ErrUnknownPoll is returned for reads or submissions against a poll
	// that does not exist.
	ErrUnknownPoll = errors.New("unknown poll")

	// ErrInvalidOption is returned when a vote references an option that
	// does not belong to the target poll. This is the only ingestion-time
	// hard failure: it indicates a malformed client request, not expected
	// duplicate traffic.
	ErrInvalidOption = errors.New("option does not belong to poll")
)

// Submission carries one incoming impression event. SessionID and UserID
// may be uuid.Nil for anonymous traffic.
type Submission struct {
	PollID    string
	SessionID uuid.UUID
	UserID    uuid.UUID
	Device    models.DeviceAttrs
	Geo       models.GeoAttrs
	UserAgent string
	IPHash    string
}

// VoteSubmission is a Submission with the chosen option.
type VoteSubmission struct {
	Submission
	OptionID string
}

// Result reports the dedup outcome. Accepted=false is the normal idempotent
// duplicate-suppressed outcome, not an error; callers never need to
// distinguish new from duplicate for correctness.
type Result struct {
	Accepted  bool
	OffWindow bool
}

// Engine is the event ingestion and deduplication engine. It accepts
// impression/vote submissions, enforces at-most-once-per-identity counting
// per poll and event class, and keeps the rollup counters consistent with
// the accepted-event ledger.
type Engine struct {
	db    *sql.DB
	dims  *dimensions.Resolver
	clock clockwork.Clock

	// Per-poll serialization boundary for the reserve-and-increment unit.
	// Contention is scoped to a single poll; unrelated polls ingest fully
	// in parallel.
	locks *xsync.Map[string, *sync.Mutex]

	// Hot-summary read cache; entries dropped on every accepted event and
	// expired by TTL otherwise.
	cache *ttlcache.Cache[string, models.Summary]
}

func NewEngine(conn *sql.DB, dims *dimensions.Resolver, clock clockwork.Clock, cacheTTL time.Duration) *Engine {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, models.Summary](cacheTTL),
	)
	go cache.Start()

	return &Engine{
		db:    conn,
		dims:  dims,
		clock: clock,
		locks: xsync.NewMap[string, *sync.Mutex](),
		cache: cache,
	}
}

// Close stops the summary cache's expiration loop.
func (e *Engine) Close() {
	e.cache.Stop()
}

// SubmitImpression records an impression event at most once per identity
// per poll. Duplicate submissions are acknowledged with Accepted=false and
// cause no state change.
func (e *Engine) SubmitImpression(ctx context.Context, sub Submission) (Result, error) {
	state, err := e.loadPoll(ctx, sub.PollID)
	if err != nil {
		return Result{}, err
	}

	deviceID, geoID, err := e.resolveDimensions(ctx, sub)
	if err != nil {
		return Result{}, err
	}

	key := identity.Resolve(sub.PollID, sub.SessionID, sub.UserID, deviceID)
	now := e.clock.Now().UTC()
	off := state.offWindow(now)

	accepted, err := e.withPollLock(ctx, sub.PollID, func() (bool, error) {
		return e.recordImpression(ctx, key, geoID, sub, now, off)
	})
	if err != nil {
		return Result{}, err
	}

	if accepted {
		e.cache.Delete(sub.PollID)
		slog.Debug("impression accepted", "poll_id", sub.PollID, "off_window", off)
	}
	return Result{Accepted: accepted, OffWindow: off}, nil
}

// SubmitVote records a vote event at most once per identity per poll.
// Votes are an independent dedup domain from impressions and require no
// prior impression. Fails with ErrInvalidOption before any state change if
// the option does not belong to the poll.
func (e *Engine) SubmitVote(ctx context.Context, sub VoteSubmission) (Result, error) {
	state, err := e.loadPoll(ctx, sub.PollID)
	if err != nil {
		return Result{}, err
	}

	// Referential check comes first: a bad option is a hard failure
	var optionPollID string
	err = e.db.QueryRowContext(ctx,
		`SELECT poll_id FROM option WHERE id = $1`, sub.OptionID,
	).Scan(&optionPollID)
	if err == sql.ErrNoRows || (err == nil && optionPollID != sub.PollID) {
		return Result{}, ErrInvalidOption
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to query option: %w", err)
	}

	deviceID, geoID, err := e.resolveDimensions(ctx, sub.Submission)
	if err != nil {
		return Result{}, err
	}

	key := identity.Resolve(sub.PollID, sub.SessionID, sub.UserID, deviceID)
	now := e.clock.Now().UTC()
	off := state.offWindow(now)

	accepted, err := e.withPollLock(ctx, sub.PollID, func() (bool, error) {
		return e.recordVote(ctx, key, geoID, sub, now, off)
	})
	if err != nil {
		return Result{}, err
	}

	if accepted {
		e.cache.Delete(sub.PollID)
		slog.Debug("vote accepted", "poll_id", sub.PollID, "option_id", sub.OptionID, "off_window", off)
	}
	return Result{Accepted: accepted, OffWindow: off}, nil
}

// recordImpression is the atomic reserve-and-increment unit for
// impressions: the uniqueness reservation and the rollup update commit
// together or not at all.
func (e *Engine) recordImpression(ctx context.Context, key identity.Key, geoID string, sub Submission, now time.Time, off bool) (bool, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO impression (id, poll_id, session_id, device_platform_id, geo_location_id,
			user_id, occurred_at, user_agent, ip_hash, off_window)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
	`, uuid.NewString(), key.PollID, key.SessionID, key.DevicePlatformID, geoID,
		key.UserID, now, sub.UserAgent, sub.IPHash, off)
	if err != nil {
		return false, fmt.Errorf("failed to insert impression: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		// Duplicate: the identity already holds the reservation
		return false, nil
	}

	if err := bumpPollRollup(ctx, tx, key.PollID, now, 1, 0, 0); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit impression: %w", err)
	}
	return true, nil
}

// recordVote is the atomic reserve-and-increment unit for votes, including
// the secondary unique-voter check via poll_voter.
func (e *Engine) recordVote(ctx context.Context, key identity.Key, geoID string, sub VoteSubmission, now time.Time, off bool) (bool, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO vote (id, poll_id, option_id, session_id, device_platform_id, geo_location_id,
			user_id, occurred_at, user_agent, ip_hash, off_window)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT DO NOTHING
	`, uuid.NewString(), key.PollID, sub.OptionID, key.SessionID, key.DevicePlatformID, geoID,
		key.UserID, now, sub.UserAgent, sub.IPHash, off)
	if err != nil {
		return false, fmt.Errorf("failed to insert vote: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	// unique_voter_count only moves for identified users, and only on their
	// first vote on this poll across all sessions/devices
	newVoter := 0
	if !key.Anonymous() {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO poll_voter (poll_id, user_id, first_vote_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, key.PollID, key.UserID, now)
		if err != nil {
			return false, fmt.Errorf("failed to insert poll voter: %w", err)
		}
		if vn, err := res.RowsAffected(); err != nil {
			return false, fmt.Errorf("failed to read rows affected: %w", err)
		} else if vn == 1 {
			newVoter = 1
		}
	}

	if err := bumpPollRollup(ctx, tx, key.PollID, now, 0, 1, newVoter); err != nil {
		return false, err
	}
	if err := bumpOptionRollup(ctx, tx, key.PollID, sub.OptionID, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit vote: %w", err)
	}
	return true, nil
}

func (e *Engine) resolveDimensions(ctx context.Context, sub Submission) (deviceID, geoID string, err error) {
	deviceID, err = e.dims.ResolveDevicePlatformDegraded(ctx, sub.Device)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve device platform: %w", err)
	}
	geoID, err = e.dims.ResolveGeoLocationDegraded(ctx, sub.Geo)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve geo location: %w", err)
	}
	return deviceID, geoID, nil
}

// withPollLock runs op under the poll's mutex, retrying transient storage
// errors (SQLite busy, serialization failures) with exponential backoff.
func (e *Engine) withPollLock(ctx context.Context, pollID string, op func() (bool, error)) (bool, error) {
	mu, _ := e.locks.LoadOrStore(pollID, &sync.Mutex{})
	mu.Lock()
	defer mu.Unlock()

	return backoff.Retry(ctx, func() (bool, error) {
		ok, err := op()
		if err != nil && !isTransient(err) {
			return false, backoff.Permanent(err)
		}
		return ok, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
}

type pollState struct {
	status string
	start  sql.NullTime
	end    sql.NullTime
}

func (e *Engine) loadPoll(ctx context.Context, pollID string) (pollState, error) {
	var st pollState
	err := e.db.QueryRowContext(ctx,
		`SELECT status, start_time, end_time FROM poll WHERE id = $1`, pollID,
	).Scan(&st.status, &st.start, &st.end)
	if err == sql.ErrNoRows {
		return pollState{}, ErrUnknownPoll
	}
	if err != nil {
		return pollState{}, fmt.Errorf("failed to query poll: %w", err)
	}
	return st, nil
}

// offWindow flags events against an inactive poll or outside its lifecycle
// window. Such events are still recorded, never dropped.
func (s pollState) offWindow(now time.Time) bool {
	if s.status != models.StatusActive {
		return true
	}
	if s.start.Valid && now.Before(s.start.Time) {
		return true
	}
	if s.end.Valid && now.After(s.end.Time) {
		return true
	}
	return false
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize")
}
