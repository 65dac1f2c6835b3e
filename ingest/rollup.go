// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jellydator/ttlcache/v3"

	"github.com/danielhkuo/pollpulse/identity"
	"github.com/danielhkuo/pollpulse/models"
)

// bumpPollRollup applies a bounded incremental update to the poll's
// counters, creating the rollup row on first touch. Runs inside the
// accepting transaction.
func bumpPollRollup(ctx context.Context, tx *sql.Tx, pollID string, now time.Time, impressions, votes, uniqueVoters int) error {
	if err := ensurePollRollup(ctx, tx, pollID, now); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE poll_rollup
		SET impression_count = impression_count + $2,
		    vote_count = vote_count + $3,
		    unique_voter_count = unique_voter_count + $4,
		    updated_at = $5
		WHERE poll_id = $1
	`, pollID, impressions, votes, uniqueVoters, now)
	if err != nil {
		return fmt.Errorf("failed to update poll rollup: %w", err)
	}
	return nil
}

// bumpOptionRollup increments the per-option vote counter.
func bumpOptionRollup(ctx context.Context, tx *sql.Tx, pollID, optionID string, now time.Time) error {
	if err := ensureOptionRollup(ctx, tx, pollID, optionID, now); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE option_rollup
		SET vote_count = vote_count + 1, updated_at = $2
		WHERE option_id = $1
	`, optionID, now)
	if err != nil {
		return fmt.Errorf("failed to update option rollup: %w", err)
	}
	return nil
}

func ensurePollRollup(ctx context.Context, tx *sql.Tx, pollID string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO poll_rollup (poll_id, impression_count, vote_count, unique_voter_count, updated_at)
		VALUES ($1, 0, 0, 0, $2)
		ON CONFLICT DO NOTHING
	`, pollID, now)
	if err != nil {
		return fmt.Errorf("failed to ensure poll rollup: %w", err)
	}
	return nil
}

func ensureOptionRollup(ctx context.Context, tx *sql.Tx, pollID, optionID string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO option_rollup (option_id, poll_id, vote_count, updated_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT DO NOTHING
	`, optionID, pollID, now)
	if err != nil {
		return fmt.Errorf("failed to ensure option rollup: %w", err)
	}
	return nil
}

// RecomputeRollup derives every counter for the poll from scratch by
// scanning the accepted-event ledgers, rewrites the rollup rows (and the
// poll_voter set), and returns the fresh summary. The incremental path is a
// performance optimization; this is the specification of correctness, used
// for drift detection and repair.
func (e *Engine) RecomputeRollup(ctx context.Context, pollID string) (models.Summary, error) {
	if _, err := e.loadPoll(ctx, pollID); err != nil {
		return models.Summary{}, err
	}

	mu, _ := e.locks.LoadOrStore(pollID, &sync.Mutex{})
	mu.Lock()
	defer mu.Unlock()

	summary, err := backoff.Retry(ctx, func() (models.Summary, error) {
		s, err := e.recompute(ctx, pollID)
		if err != nil && !isTransient(err) {
			return models.Summary{}, backoff.Permanent(err)
		}
		return s, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(5))
	if err != nil {
		return models.Summary{}, err
	}

	e.cache.Set(pollID, summary, ttlcache.DefaultTTL)
	slog.Info("rollup recomputed",
		"poll_id", pollID,
		"impressions", summary.Impressions,
		"votes", summary.Votes,
		"unique_voters", summary.UniqueVoters,
	)
	return summary, nil
}

func (e *Engine) recompute(ctx context.Context, pollID string) (models.Summary, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	s := models.Summary{PollID: pollID, OptionVotes: map[string]int64{}}

	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM impression WHERE poll_id = $1`, pollID,
	).Scan(&s.Impressions)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to count impressions: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vote WHERE poll_id = $1`, pollID,
	).Scan(&s.Votes)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to count votes: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id) FROM vote
		WHERE poll_id = $1 AND user_id <> $2
	`, pollID, identity.Sentinel).Scan(&s.UniqueVoters)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to count unique voters: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT o.id, COUNT(v.id)
		FROM option o
		LEFT JOIN vote v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id
	`, pollID)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to count option votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var optionID string
		var count int64
		if err := rows.Scan(&optionID, &count); err != nil {
			return models.Summary{}, fmt.Errorf("failed to scan option count: %w", err)
		}
		s.OptionVotes[optionID] = count
	}
	if err := rows.Err(); err != nil {
		return models.Summary{}, fmt.Errorf("failed to iterate option counts: %w", err)
	}

	now := e.clock.Now().UTC()

	// Rebuild the first-vote set from the ledger so unique-voter drift is
	// repaired along with the counters
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM poll_voter WHERE poll_id = $1`, pollID,
	); err != nil {
		return models.Summary{}, fmt.Errorf("failed to clear poll voters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO poll_voter (poll_id, user_id, first_vote_at)
		SELECT poll_id, user_id, MIN(occurred_at)
		FROM vote
		WHERE poll_id = $1 AND user_id <> $2
		GROUP BY poll_id, user_id
	`, pollID, identity.Sentinel); err != nil {
		return models.Summary{}, fmt.Errorf("failed to rebuild poll voters: %w", err)
	}

	if err := ensurePollRollup(ctx, tx, pollID, now); err != nil {
		return models.Summary{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE poll_rollup
		SET impression_count = $2, vote_count = $3, unique_voter_count = $4, updated_at = $5
		WHERE poll_id = $1
	`, pollID, s.Impressions, s.Votes, s.UniqueVoters, now); err != nil {
		return models.Summary{}, fmt.Errorf("failed to rewrite poll rollup: %w", err)
	}

	for optionID, count := range s.OptionVotes {
		if err := ensureOptionRollup(ctx, tx, pollID, optionID, now); err != nil {
			return models.Summary{}, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE option_rollup SET vote_count = $2, updated_at = $3 WHERE option_id = $1
		`, optionID, count, now); err != nil {
			return models.Summary{}, fmt.Errorf("failed to rewrite option rollup: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Summary{}, fmt.Errorf("failed to commit recompute: %w", err)
	}
	return s, nil
}
