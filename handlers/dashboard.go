// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quickly-poll/middleware"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

type DashboardHandler struct {
	repo *store.Repository
}

func NewDashboardHandler(repo *store.Repository) *DashboardHandler {
	return &DashboardHandler{repo: repo}
}

// MyPolls handles GET /me/polls
func (h *DashboardHandler) MyPolls(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	polls, source, err := h.repo.GetUserPolls(r.Context(), id.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	resp := models.MyPollsResponse{
		Polls:   make([]models.PollSummary, 0, len(polls)),
		Storage: source.String(),
	}
	for i := range polls {
		resp.Polls = append(resp.Polls, models.NewPollSummary(&polls[i]))
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Analytics handles GET /polls/{id}/analytics
func (h *DashboardHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	analytics, err := h.repo.GetAnalytics(r.Context(), r.PathValue("id"), id.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, analytics)
}
