// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/pollpulse/cliparse"
	"github.com/danielhkuo/pollpulse/handlers"
	"github.com/danielhkuo/pollpulse/ingest"
	"github.com/danielhkuo/pollpulse/middleware"
)

func NewRouter(db *sql.DB, engine *ingest.Engine, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(db, cfg)
	eventsHandler := handlers.NewEventsHandler(engine, cfg)
	summaryHandler := handlers.NewSummaryHandler(engine, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll management (admin operations)
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("POST /polls/{id}/options", middleware.WithLogging(pollHandler.AddOption))
	mux.HandleFunc("POST /polls/{id}/activate", middleware.WithLogging(pollHandler.ActivatePoll))
	mux.HandleFunc("POST /polls/{id}/close", middleware.WithLogging(pollHandler.ClosePoll))

	// Poll retrieval (public)
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))

	// Event ingestion (public, idempotent)
	mux.HandleFunc("POST /polls/{id}/impressions", middleware.WithLogging(eventsHandler.SubmitImpression))
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(eventsHandler.SubmitVote))

	// Summary reads and operational repair
	mux.HandleFunc("GET /polls/{id}/summary", middleware.WithLogging(summaryHandler.GetSummary))
	mux.HandleFunc("POST /polls/{id}/rollup/recompute", middleware.WithLogging(summaryHandler.RecomputeRollup))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pollpulse API v1"))
	})

	return mux
}
