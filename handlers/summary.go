// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pollpulse/auth"
	"github.com/danielhkuo/pollpulse/cliparse"
	"github.com/danielhkuo/pollpulse/ingest"
	"github.com/danielhkuo/pollpulse/middleware"
)

type SummaryHandler struct {
	engine *ingest.Engine
	cfg    cliparse.Config
}

func NewSummaryHandler(engine *ingest.Engine, cfg cliparse.Config) *SummaryHandler {
	return &SummaryHandler{engine: engine, cfg: cfg}
}

// GetSummary handles GET /polls/:id/summary
// Serves the maintained rollup; cold polls are aggregated on demand.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	summary, err := h.engine.GetSummary(r.Context(), pollID)
	if err != nil {
		if errors.Is(err, ingest.ErrUnknownPoll) {
			middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
			return
		}
		slog.Error("failed to get summary", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to get summary")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, summary)
}

// RecomputeRollup handles POST /polls/:id/rollup/recompute
// Operational repair entry point: rebuilds the poll's counters from the
// event ledger. Admin only.
func (h *SummaryHandler) RecomputeRollup(w http.ResponseWriter, r *http.Request) {
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

	summary, err := h.engine.RecomputeRollup(r.Context(), pollID)
	if err != nil {
		if errors.Is(err, ingest.ErrUnknownPoll) {
			middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
			return
		}
		slog.Error("failed to recompute rollup", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to recompute rollup")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, summary)
}
