// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/danielhkuo/pollpulse/auth"
	"github.com/danielhkuo/pollpulse/cliparse"
	"github.com/danielhkuo/pollpulse/ingest"
	"github.com/danielhkuo/pollpulse/middleware"
	"github.com/danielhkuo/pollpulse/models"
)

type EventsHandler struct {
	engine *ingest.Engine
	cfg    cliparse.Config
}

func NewEventsHandler(engine *ingest.Engine, cfg cliparse.Config) *EventsHandler {
	return &EventsHandler{engine: engine, cfg: cfg}
}

// SubmitImpression handles POST /polls/:id/impressions
// Idempotent: resubmitting the same identity acknowledges with accepted=false.
func (h *EventsHandler) SubmitImpression(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	var req models.SubmitImpressionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sub, ok := h.buildSubmission(w, r, pollID, req.SessionID, req.UserID, req.Device, req.Geo)
	if !ok {
		return
	}

	res, err := h.engine.SubmitImpression(r.Context(), sub)
	if err != nil {
		writeEngineError(w, err, "impression")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SubmitEventResponse{Accepted: res.Accepted})
}

// SubmitVote handles POST /polls/:id/votes
// Fails with 400 if the option does not belong to the poll.
func (h *EventsHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	sub, ok := h.buildSubmission(w, r, pollID, req.SessionID, req.UserID, req.Device, req.Geo)
	if !ok {
		return
	}

	res, err := h.engine.SubmitVote(r.Context(), ingest.VoteSubmission{
		Submission: sub,
		OptionID:   req.OptionID,
	})
	if err != nil {
		writeEngineError(w, err, "vote")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SubmitEventResponse{Accepted: res.Accepted})
}

// buildSubmission assembles the engine submission from the request,
// validating the optional identity UUIDs. A false return means an error
// response was already written.
func (h *EventsHandler) buildSubmission(w http.ResponseWriter, r *http.Request, pollID, sessionID, userID string, device models.DeviceAttrs, geo models.GeoAttrs) (ingest.Submission, bool) {
	session, err := parseOptionalUUID(sessionID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "session_id must be a UUID")
		return ingest.Submission{}, false
	}

	user, err := parseOptionalUUID(userID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user_id must be a UUID")
		return ingest.Submission{}, false
	}

	return ingest.Submission{
		PollID:    pollID,
		SessionID: session,
		UserID:    user,
		Device:    device,
		Geo:       geo,
		UserAgent: r.UserAgent(),
		IPHash:    auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt),
	}, true
}

func writeEngineError(w http.ResponseWriter, err error, kind string) {
	switch {
	case errors.Is(err, ingest.ErrUnknownPoll):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
	case errors.Is(err, ingest.ErrInvalidOption):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Option does not belong to poll")
	default:
		slog.Error("failed to submit "+kind, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit "+kind)
	}
}

func parseOptionalUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
