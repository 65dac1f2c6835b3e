// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jellydator/ttlcache/v3"

	"github.com/danielhkuo/pollpulse/models"
)

// GetSummary serves the poll_summary read from the maintained rollups. Hot
// polls hit the TTL cache; maintained-but-uncached polls are an O(1) rollup
// row read; a poll with no rollup yet (first read after creation, or
// storage was reset) falls back to a full recompute, which also seeds the
// rollup rows. Fails with ErrUnknownPoll for nonexistent polls.
func (e *Engine) GetSummary(ctx context.Context, pollID string) (models.Summary, error) {
	if item := e.cache.Get(pollID); item != nil {
		return item.Value(), nil
	}

	if _, err := e.loadPoll(ctx, pollID); err != nil {
		return models.Summary{}, err
	}

	summary, ok, err := e.readRollup(ctx, pollID)
	if err != nil {
		return models.Summary{}, err
	}
	if !ok {
		// Cold poll: derive from the ledger and seed the rollup.
		// RecomputeRollup caches on success, so no second Set here.
		return e.RecomputeRollup(ctx, pollID)
	}

	e.cache.Set(pollID, summary, ttlcache.DefaultTTL)
	return summary, nil
}

// readRollup reads the maintained counters in a single transaction so the
// result is consistent with one prefix of accepted events, never a torn
// update. Returns ok=false when no rollup row exists yet.
func (e *Engine) readRollup(ctx context.Context, pollID string) (models.Summary, bool, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Summary{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	s := models.Summary{PollID: pollID, OptionVotes: map[string]int64{}}

	err = tx.QueryRowContext(ctx, `
		SELECT impression_count, vote_count, unique_voter_count
		FROM poll_rollup WHERE poll_id = $1
	`, pollID).Scan(&s.Impressions, &s.Votes, &s.UniqueVoters)
	if err == sql.ErrNoRows {
		return models.Summary{}, false, nil
	}
	if err != nil {
		return models.Summary{}, false, fmt.Errorf("failed to read poll rollup: %w", err)
	}

	// Every option appears in the summary, zero counts included
	rows, err := tx.QueryContext(ctx, `
		SELECT o.id, COALESCE(r.vote_count, 0)
		FROM option o
		LEFT JOIN option_rollup r ON r.option_id = o.id
		WHERE o.poll_id = $1
	`, pollID)
	if err != nil {
		return models.Summary{}, false, fmt.Errorf("failed to read option rollups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var optionID string
		var count int64
		if err := rows.Scan(&optionID, &count); err != nil {
			return models.Summary{}, false, fmt.Errorf("failed to scan option rollup: %w", err)
		}
		s.OptionVotes[optionID] = count
	}
	if err := rows.Err(); err != nil {
		return models.Summary{}, false, fmt.Errorf("failed to iterate option rollups: %w", err)
	}

	return s, true, nil
}
