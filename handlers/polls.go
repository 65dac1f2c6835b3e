// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/pollpulse/auth"
	"github.com/danielhkuo/pollpulse/cliparse"
	"github.com/danielhkuo/pollpulse/middleware"
	"github.com/danielhkuo/pollpulse/models"
)

type PollHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config) *PollHandler {
	return &PollHandler{db: db, cfg: cfg}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "end_time must be after start_time")
		return
	}

	pollID := uuid.NewString()
	adminKey := auth.GenerateAdminKey(pollID, h.cfg.AdminKeySalt)

	_, err := h.db.Exec(`
		INSERT INTO poll (id, title, status, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, pollID, req.Title, models.StatusDraft, req.StartTime, req.EndTime, time.Now().UTC())

	if err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID)

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID:   pollID,
		AdminKey: adminKey,
	})
}

// AddOption handles POST /polls/:id/options
func (h *PollHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var req models.AddOptionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "label is required")
		return
	}

	// Options can only be added while the poll is a draft
	var status string
	err := h.db.QueryRow("SELECT status FROM poll WHERE id = $1", pollID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if status != models.StatusDraft {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add options to non-draft poll")
		return
	}

	optionID := uuid.NewString()

	// display_order is (poll, order)-unique; assign the next slot inside a
	// transaction so concurrent authors don't collide
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var order int
	err = tx.QueryRow(`
		SELECT COALESCE(MAX(display_order), 0) + 1 FROM option WHERE poll_id = $1
	`, pollID).Scan(&order)
	if err != nil {
		slog.Error("failed to compute display order", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO option (id, poll_id, label, display_order)
		VALUES ($1, $2, $3, $4)
	`, optionID, pollID, req.Label, order)
	if err != nil {
		slog.Error("failed to insert option", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add option")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add option")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.AddOptionResponse{
		OptionID:     optionID,
		DisplayOrder: order,
	})
}

// ActivatePoll handles POST /polls/:id/activate
func (h *PollHandler) ActivatePoll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusDraft, models.StatusActive, true)
}

// ClosePoll handles POST /polls/:id/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusActive, models.StatusClosed, false)
}

func (h *PollHandler) transition(w http.ResponseWriter, r *http.Request, from, to string, needOptions bool) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var status string
	err := h.db.QueryRow("SELECT status FROM poll WHERE id = $1", pollID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if status != from {
		middleware.ErrorResponse(w, http.StatusConflict, "Poll is not "+from)
		return
	}

	if needOptions {
		var count int
		if err := h.db.QueryRow(
			"SELECT COUNT(*) FROM option WHERE poll_id = $1", pollID,
		).Scan(&count); err != nil {
			slog.Error("failed to count options", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if count < 2 {
			middleware.ErrorResponse(w, http.StatusConflict, "Poll needs at least 2 options")
			return
		}
	}

	_, err = h.db.Exec("UPDATE poll SET status = $1 WHERE id = $2", to, pollID)
	if err != nil {
		slog.Error("failed to update poll status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	slog.Info("poll status changed", "poll_id", pollID, "status", to)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": to})
}

// GetPoll handles GET /polls/:id
// Returns poll details and options
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	var poll models.Poll
	err := h.db.QueryRow(`
		SELECT id, title, status, start_time, end_time, created_at
		FROM poll WHERE id = $1
	`, pollID).Scan(&poll.ID, &poll.Title, &poll.Status, &poll.StartTime, &poll.EndTime, &poll.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT id, poll_id, label, display_order
		FROM option
		WHERE poll_id = $1
		ORDER BY display_order
	`, poll.ID)
	if err != nil {
		slog.Error("failed to query options", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	options := []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Label, &opt.DisplayOrder); err != nil {
			slog.Error("failed to scan option", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		options = append(options, opt)
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollWithOptions{
		Poll:    poll,
		Options: options,
	})
}
