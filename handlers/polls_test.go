// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/pollpulse/auth"
	"github.com/danielhkuo/pollpulse/models"
	"github.com/danielhkuo/pollpulse/testutil"
)

func TestCreatePoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	backwards := start.Add(-time.Hour)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, resp *models.CreatePollResponse)
	}{
		{
			name: "valid poll creation",
			requestBody: models.CreatePollRequest{
				Title: "Favorite Language",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.CreatePollResponse) {
				if resp.PollID == "" {
					t.Error("Expected non-empty poll_id")
				}
				if resp.AdminKey == "" {
					t.Error("Expected non-empty admin_key")
				}

				// Verify admin key is valid
				expectedKey := auth.GenerateAdminKey(resp.PollID, cfg.AdminKeySalt)
				if resp.AdminKey != expectedKey {
					t.Error("Admin key does not match expected value")
				}

				// Verify poll was created as a draft
				var status string
				err := db.QueryRow("SELECT status FROM poll WHERE id = $1", resp.PollID).Scan(&status)
				if err != nil {
					t.Fatalf("Failed to query poll: %v", err)
				}
				if status != models.StatusDraft {
					t.Errorf("Expected status 'draft', got '%s'", status)
				}
			},
		},
		{
			name: "valid poll with lifecycle window",
			requestBody: models.CreatePollRequest{
				Title:     "Windowed Poll",
				StartTime: &start,
				EndTime:   &end,
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.CreatePollResponse) {
				var st, en time.Time
				err := db.QueryRow("SELECT start_time, end_time FROM poll WHERE id = $1", resp.PollID).Scan(&st, &en)
				if err != nil {
					t.Fatalf("Failed to query poll window: %v", err)
				}
				if !st.Equal(start) || !en.Equal(end) {
					t.Errorf("Window mismatch: got [%v, %v]", st, en)
				}
			},
		},
		{
			name:           "missing title",
			requestBody:    models.CreatePollRequest{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "end before start",
			requestBody: models.CreatePollRequest{
				Title:     "Backwards Window",
				StartTime: &start,
				EndTime:   &backwards,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/polls", tt.requestBody, nil)
			w := httptest.NewRecorder()

			handler.CreatePoll(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated && tt.checkResponse != nil {
				var resp models.CreatePollResponse
				testutil.AssertJSON(t, w, &resp)
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestAddOption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusDraft)
	adminKey := auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)

	tests := []struct {
		name           string
		pollID         string
		adminKey       string
		requestBody    interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, resp *models.AddOptionResponse)
	}{
		{
			name:           "valid option addition",
			pollID:         pollID,
			adminKey:       adminKey,
			requestBody:    models.AddOptionRequest{Label: "Option A"},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.AddOptionResponse) {
				if resp.OptionID == "" {
					t.Error("Expected non-empty option_id")
				}
				if resp.DisplayOrder != 1 {
					t.Errorf("Expected display_order 1, got %d", resp.DisplayOrder)
				}

				var label string
				err := db.QueryRow("SELECT label FROM option WHERE id = $1", resp.OptionID).Scan(&label)
				if err != nil {
					t.Fatalf("Failed to query option: %v", err)
				}
				if label != "Option A" {
					t.Errorf("Expected label 'Option A', got '%s'", label)
				}
			},
		},
		{
			name:           "second option gets next display order",
			pollID:         pollID,
			adminKey:       adminKey,
			requestBody:    models.AddOptionRequest{Label: "Option B"},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.AddOptionResponse) {
				if resp.DisplayOrder != 2 {
					t.Errorf("Expected display_order 2, got %d", resp.DisplayOrder)
				}
			},
		},
		{
			name:           "missing label",
			pollID:         pollID,
			adminKey:       adminKey,
			requestBody:    models.AddOptionRequest{Label: ""},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid admin key",
			pollID:         pollID,
			adminKey:       "invalid-key",
			requestBody:    models.AddOptionRequest{Label: "Option C"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing admin key",
			pollID:         pollID,
			adminKey:       "",
			requestBody:    models.AddOptionRequest{Label: "Option D"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "poll not found",
			pollID:         "nonexistent",
			adminKey:       auth.GenerateAdminKey("nonexistent", cfg.AdminKeySalt),
			requestBody:    models.AddOptionRequest{Label: "Option E"},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/polls/"+tt.pollID+"/options", tt.requestBody, map[string]string{
				"X-Admin-Key": tt.adminKey,
			})
			req.SetPathValue("id", tt.pollID)
			w := httptest.NewRecorder()

			handler.AddOption(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated && tt.checkResponse != nil {
				var resp models.AddOptionResponse
				testutil.AssertJSON(t, w, &resp)
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestAddOptionToNonDraftPoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusActive)
	adminKey := auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)

	req := testutil.MakeRequest("POST", "/polls/"+pollID+"/options", models.AddOptionRequest{Label: "Too Late"}, map[string]string{
		"X-Admin-Key": adminKey,
	})
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()

	handler.AddOption(w, req)

	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestActivatePoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusDraft)
	adminKey := auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)
	testutil.AddTestOption(t, db, pollID, "Option A", 1)
	testutil.AddTestOption(t, db, pollID, "Option B", 2)

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
			name:           "poll not found",
			pollID:         "nonexistent",
			adminKey:       auth.GenerateAdminKey("nonexistent", cfg.AdminKeySalt),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "valid activation",
			pollID:         pollID,
			adminKey:       adminKey,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "already active",
			pollID:         pollID,
			adminKey:       adminKey,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/polls/"+tt.pollID+"/activate", nil, map[string]string{
				"X-Admin-Key": tt.adminKey,
			})
			req.SetPathValue("id", tt.pollID)
			w := httptest.NewRecorder()

			handler.ActivatePoll(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	var status string
	if err := db.QueryRow("SELECT status FROM poll WHERE id = $1", pollID).Scan(&status); err != nil {
		t.Fatalf("Failed to query poll: %v", err)
	}
	if status != models.StatusActive {
		t.Errorf("Expected status 'active', got '%s'", status)
	}
}

func TestActivatePollWithInsufficientOptions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusDraft)
	adminKey := auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)
	testutil.AddTestOption(t, db, pollID, "Only Option", 1)

	req := testutil.MakeRequest("POST", "/polls/"+pollID+"/activate", nil, map[string]string{
		"X-Admin-Key": adminKey,
	})
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()

	handler.ActivatePoll(w, req)

	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestClosePoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusActive)
	adminKey := auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)

	req := testutil.MakeRequest("POST", "/polls/"+pollID+"/close", nil, map[string]string{
		"X-Admin-Key": adminKey,
	})
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()

	handler.ClosePoll(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var status string
	if err := db.QueryRow("SELECT status FROM poll WHERE id = $1", pollID).Scan(&status); err != nil {
		t.Fatalf("Failed to query poll: %v", err)
	}
	if status != models.StatusClosed {
		t.Errorf("Expected status 'closed', got '%s'", status)
	}
}

func TestCloseDraftPoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusDraft)
	adminKey := auth.GenerateAdminKey(pollID, cfg.AdminKeySalt)

	req := testutil.MakeRequest("POST", "/polls/"+pollID+"/close", nil, map[string]string{
		"X-Admin-Key": adminKey,
	})
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()

	handler.ClosePoll(w, req)

	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestGetPoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	pollID := testutil.CreateTestPoll(t, db, models.StatusActive)
	testutil.AddTestOption(t, db, pollID, "Option A", 1)
	testutil.AddTestOption(t, db, pollID, "Option B", 2)

	req := testutil.MakeRequest("GET", "/polls/"+pollID, nil, nil)
	req.SetPathValue("id", pollID)
	w := httptest.NewRecorder()

	handler.GetPoll(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.PollWithOptions
	testutil.AssertJSON(t, w, &resp)

	if resp.Poll.ID != pollID {
		t.Errorf("Expected poll ID %s, got %s", pollID, resp.Poll.ID)
	}
	if resp.Poll.Status != models.StatusActive {
		t.Errorf("Expected status 'active', got '%s'", resp.Poll.Status)
	}
	if len(resp.Options) != 2 {
		t.Fatalf("Expected 2 options, got %d", len(resp.Options))
	}
	if resp.Options[0].Label != "Option A" || resp.Options[1].Label != "Option B" {
		t.Error("Options not returned in display order")
	}
}

func TestGetPollNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	req := testutil.MakeRequest("GET", "/polls/nonexistent", nil, nil)
	req.SetPathValue("id", "nonexistent")
	w := httptest.NewRecorder()

	handler.GetPoll(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}
