// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/danielhkuo/pollpulse/auth"
	"github.com/danielhkuo/pollpulse/ingest"
	"github.com/danielhkuo/pollpulse/models"
	"github.com/danielhkuo/pollpulse/testutil"
)

func TestGetSummaryEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	engine := newTestEngine(t, db)
	handler := NewSummaryHandler(engine, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusActive)
	optionA := testutil.AddTestOption(t, db, pollID, "Option A", 1)
	optionB := testutil.AddTestOption(t, db, pollID, "Option B", 2)

	ctx := context.Background()
	userID := uuid.New()

	// One impression, one vote from the same identified user
	_, err := engine.SubmitImpression(ctx, ingest.Submission{
		PollID:    pollID,
		SessionID: uuid.New(),
		UserID:    userID,
	})
	if err != nil {
		t.Fatalf("Failed to submit impression: %v", err)
	}
	_, err = engine.SubmitVote(ctx, ingest.VoteSubmission{
		Submission: ingest.Submission{
			PollID:    pollID,
			SessionID: uuid.New(),
			UserID:    userID,
		},
		OptionID: optionA,
	})
	if err != nil {
		t.Fatalf("Failed to submit vote: %v", err)
	}

	req := testutil.MakeRequest("GET", "/polls/"+pollID+"/summary", nil, nil)
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()

	handler.GetSummary(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var summary models.Summary
	testutil.AssertJSON(t, w, &summary)

	if summary.PollID != pollID {
		t.Errorf("Expected poll_id %s, got %s", pollID, summary.PollID)
	}
	if summary.Impressions != 1 {
		t.Errorf("Expected 1 impression, got %d", summary.Impressions)
	}
	if summary.Votes != 1 {
		t.Errorf("Expected 1 vote, got %d", summary.Votes)
	}
	if summary.UniqueVoters != 1 {
		t.Errorf("Expected 1 unique voter, got %d", summary.UniqueVoters)
	}
	if summary.OptionVotes[optionA] != 1 {
		t.Errorf("Expected 1 vote for option A, got %d", summary.OptionVotes[optionA])
	}
	// Zero-vote options still appear in the breakdown
	if got, ok := summary.OptionVotes[optionB]; !ok || got != 0 {
		t.Errorf("Expected option B present with 0 votes, got %d (present=%v)", got, ok)
	}
}

func TestGetSummaryUnknownPoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewSummaryHandler(newTestEngine(t, db), cfg)

	req := testutil.MakeRequest("GET", "/polls/nonexistent/summary", nil, nil)
	req.SetPathValue("id", "nonexistent")
	w := httptest.NewRecorder()

	handler.GetSummary(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestRecomputeRollupEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	engine := newTestEngine(t, db)
	handler := NewSummaryHandler(engine, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusActive)
	optionID := testutil.AddTestOption(t, db, pollID, "Option A", 1)
	adminKey := auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)

	_, err := engine.SubmitVote(context.Background(), ingest.VoteSubmission{
		Submission: ingest.Submission{
			PollID:    pollID,
			SessionID: uuid.New(),
			UserID:    uuid.New(),
		},
		OptionID: optionID,
	})
	if err != nil {
		t.Fatalf("Failed to submit vote: %v", err)
	}

	// Corrupt the maintained counter; recompute must repair it from the ledger
	if _, err := db.Exec("UPDATE poll_rollup SET vote_count = 99 WHERE poll_id = $1", pollID); err != nil {
		t.Fatalf("Failed to corrupt rollup: %v", err)
	}

	tests := []struct {
		name           string
		pollID         string
		adminKey       string
		expectedStatus int
	}{
		{
			name:           "invalid admin key",
			pollID:         pollID,
			adminKey:       "invalid-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing admin key",
			pollID:         pollID,
			adminKey:       "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "poll not found",
			pollID:         "nonexistent",
			adminKey:       auth.GenerateAdminKey("nonexistent", cfg.AdminKeySalt),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "valid recompute",
			pollID:         pollID,
			adminKey:       adminKey,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/polls/"+tt.pollID+"/rollup/recompute", nil, map[string]string{
				"X-Admin-Key": tt.adminKey,
			})
			req.SetPathValue("id", tt.pollID)
			w := httptest.NewRecorder()

			handler.RecomputeRollup(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var summary models.Summary
				testutil.AssertJSON(t, w, &summary)
				if summary.Votes != 1 {
					t.Errorf("Expected recompute to repair vote count to 1, got %d", summary.Votes)
				}
			}
		})
	}

	var voteCount int64
	if err := db.QueryRow("SELECT vote_count FROM poll_rollup WHERE poll_id = $1", pollID).Scan(&voteCount); err != nil {
		t.Fatalf("Failed to query rollup: %v", err)
	}
	if voteCount != 1 {
		t.Errorf("Expected stored vote_count 1 after recompute, got %d", voteCount)
	}
}
