// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/quickly-poll/live"
	"github.com/danielhkuo/quickly-poll/middleware"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

type LiveHandler struct {
	repo     *store.Repository
	hub      *live.Hub
	upgrader websocket.Upgrader
}

// NewLiveHandler accepts upgrades from the given origins ("*" for any)
func NewLiveHandler(repo *store.Repository, hub *live.Hub, origins []string) *LiveHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &LiveHandler{
		repo: repo,
		hub:  hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

// Subscribe handles GET /polls/{id}/live: the current snapshot first,
// then one message per vote until the viewer disconnects.
func (h *LiveHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	poll, _, err := h.repo.GetPoll(r.Context(), pollID)
	if err != nil {
		storeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		slog.Debug("websocket upgrade failed", "poll_id", pollID, "error", err)
		return
	}
	client := live.NewWebsocketClient(conn)

	id, _ := middleware.IdentityFrom(r.Context())
	snapshot, err := live.EncodePoll(models.NewPollView(poll, id.UserID))
	if err == nil {
		err = client.WriteMessage(websocket.TextMessage, snapshot)
	}
	if err != nil {
		client.Close()
		return
	}

	// The hub is the only writer from here on
	h.hub.Register(pollID, client)
	defer h.hub.Unregister(pollID, client)

	for {
		if _, _, err := client.ReadMessage(); err != nil {
			return
		}
	}
}
