// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/quickly-poll/models"
)

// broadcastBuffer is how many pending updates Broadcast queues before
// dropping; a dropped update is superseded by the next vote's snapshot.
const broadcastBuffer = 64

// Update is the message pushed to viewers of a poll
type Update struct {
	Poll    *models.PollView `json:"poll,omitempty"`
	Deleted bool             `json:"deleted,omitempty"`
}

type subscription struct {
	pollID string
	client Client
}

type message struct {
	pollID string
	data   []byte
}

// Hub fans poll updates out to the websocket viewers of each poll.
// Run owns delivery; Register, Unregister and Broadcast only send to it.
type Hub struct {
	log *slog.Logger

	mu    sync.Mutex
	rooms map[string]map[Client]bool

	register   chan subscription
	unregister chan subscription
	broadcast  chan message
	done       chan struct{}
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:        log,
		rooms:      make(map[string]map[Client]bool),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		broadcast:  make(chan message, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run delivers until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case sub := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[sub.pollID]
			if !ok {
				room = make(map[Client]bool)
				h.rooms[sub.pollID] = room
			}
			room[sub.client] = true
			h.mu.Unlock()
		case sub := <-h.unregister:
			h.remove(sub.pollID, sub.client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver writes outside the lock so a slow viewer does not hold up
// Viewers or the other rooms' bookkeeping
func (h *Hub) deliver(msg message) {
	h.mu.Lock()
	clients := make([]Client, 0, len(h.rooms[msg.pollID]))
	for client := range h.rooms[msg.pollID] {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	var failed []Client
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, msg.data); err != nil {
			h.log.Debug("dropping viewer", slog.String("poll_id", msg.pollID), slog.Any("error", err))
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		h.remove(msg.pollID, client)
	}
}

func (h *Hub) remove(pollID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[pollID]
	if _, ok := room[client]; ok {
		delete(room, client)
		client.Close()
	}
	if len(room) == 0 {
		delete(h.rooms, pollID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for pollID, room := range h.rooms {
		for client := range room {
			client.Close()
		}
		delete(h.rooms, pollID)
	}
}

// Register adds client to the viewers of pollID
func (h *Hub) Register(pollID string, client Client) {
	select {
	case h.register <- subscription{pollID: pollID, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes client
func (h *Hub) Unregister(pollID string, client Client) {
	select {
	case h.unregister <- subscription{pollID: pollID, client: client}:
	case <-h.done:
	}
}

// Broadcast queues data for the viewers of pollID. It never blocks the
// caller: when the queue is full the update is dropped.
func (h *Hub) Broadcast(pollID string, data []byte) {
	select {
	case h.broadcast <- message{pollID: pollID, data: data}:
	case <-h.done:
	default:
		h.log.Warn("live update dropped, hub is behind", slog.String("poll_id", pollID))
	}
}

// Viewers returns the number of viewers currently registered for pollID
func (h *Hub) Viewers(pollID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[pollID])
}

// EncodePoll builds the message for a poll snapshot
func EncodePoll(view models.PollView) ([]byte, error) {
	return json.Marshal(Update{Poll: &view})
}

// EncodeDeleted builds the message sent when a poll is removed
func EncodeDeleted() []byte {
	data, _ := json.Marshal(Update{Deleted: true})
	return data
}
