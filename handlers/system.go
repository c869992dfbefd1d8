// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielhkuo/quickly-poll/middleware"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

const pingTimeout = 2 * time.Second

type SystemHandler struct {
	repo *store.Repository
}

func NewSystemHandler(repo *store.Repository) *SystemHandler {
	return &SystemHandler{repo: repo}
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// DebugBackend handles GET /debug/backend. It resolves the selector if
// no request has done so yet.
func (h *SystemHandler) DebugBackend(w http.ResponseWriter, r *http.Request) {
	sel := h.repo.Selector()
	if sel == nil {
		middleware.JSONResponse(w, http.StatusOK, models.BackendStatus{
			Resolved: true,
			Backend:  "memory",
			Profiles: []models.ProfileStatus{},
			Ping:     "skipped",
		})
		return
	}

	backend := sel.Resolve(r.Context())
	status := sel.Status()
	status.Ping = "skipped"

	if backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := backend.Ping(ctx); err != nil {
			status.Ping = "error: " + err.Error()
		} else {
			status.Ping = "ok"
		}
	}

	middleware.JSONResponse(w, http.StatusOK, status)
}
