// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-poll/events"
	"github.com/danielhkuo/quickly-poll/middleware"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

type PollHandler struct {
	repo   *store.Repository
	events *events.Dispatcher
}

func NewPollHandler(repo *store.Repository, dispatcher *events.Dispatcher) *PollHandler {
	if dispatcher == nil {
		dispatcher = events.NewDispatcher(nil, nil, nil)
	}
	return &PollHandler{repo: repo, events: dispatcher}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in to create a poll")
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	poll, source, err := h.repo.CreatePoll(r.Context(), req.Question, req.Options, id.UserID, id.Name)
	if err != nil {
		storeError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID:  poll.ID,
		Storage: source.String(),
	})
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	poll, _, err := h.repo.GetPoll(r.Context(), pollID)
	if err != nil {
		storeError(w, err)
		return
	}

	id, _ := middleware.IdentityFrom(r.Context())
	middleware.JSONResponse(w, http.StatusOK, models.NewPollView(poll, id.UserID))
}

// Vote handles POST /polls/{id}/votes
func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in to vote")
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	poll, source, err := h.repo.VotePoll(r.Context(), pollID, req.OptionID, id.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	h.events.VoteRecorded(r.Context(), poll, req.OptionID, id.UserID)

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		Poll:    models.NewPollView(poll, id.UserID),
		Storage: source.String(),
	})
}

// DeletePoll handles DELETE /polls/{id}. Only the creator may delete;
// deleting a poll that no longer exists succeeds.
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in to delete a poll")
		return
	}

	poll, _, err := h.repo.GetPoll(r.Context(), pollID)
	if errors.Is(err, store.ErrPollNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		storeError(w, err)
		return
	}
	if poll.CreatorID != id.UserID {
		storeError(w, store.ErrForbidden)
		return
	}

	source := h.repo.DeletePoll(r.Context(), pollID)
	h.events.PollDeleted(pollID)

	slog.Info("poll deleted via api", "poll_id", pollID, "source", source.String())
	w.WriteHeader(http.StatusNoContent)
}
