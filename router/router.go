// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/quickly-poll/cliparse"
	"github.com/danielhkuo/quickly-poll/events"
	"github.com/danielhkuo/quickly-poll/handlers"
	"github.com/danielhkuo/quickly-poll/live"
	"github.com/danielhkuo/quickly-poll/middleware"
	"github.com/danielhkuo/quickly-poll/store"
)

func NewRouter(repo *store.Repository, dispatcher *events.Dispatcher, hub *live.Hub, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(repo, dispatcher)
	dashboardHandler := handlers.NewDashboardHandler(repo)
	liveHandler := handlers.NewLiveHandler(repo, hub, cfg.CORSOrigins)
	systemHandler := handlers.NewSystemHandler(repo)

	// Health check and backend diagnostics
	mux.HandleFunc("GET /health", systemHandler.Health)
	mux.HandleFunc("GET /debug/backend", middleware.WithLogging(systemHandler.DebugBackend))

	// Poll lifecycle
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(pollHandler.Vote))
	mux.HandleFunc("DELETE /polls/{id}", middleware.WithLogging(pollHandler.DeletePoll))

	// Live updates over websocket
	mux.HandleFunc("GET /polls/{id}/live", middleware.WithLogging(liveHandler.Subscribe))

	// Creator dashboard
	mux.HandleFunc("GET /me/polls", middleware.WithLogging(dashboardHandler.MyPolls))
	mux.HandleFunc("GET /polls/{id}/analytics", middleware.WithLogging(dashboardHandler.Analytics))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-poll API v1"))
	})

	return middleware.CORS(cfg.CORSOrigins, middleware.WithIdentity(cfg.AuthSecret, mux))
}
