// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-poll/live"
	"github.com/danielhkuo/quickly-poll/models"
)

const publishTimeout = 3 * time.Second

// VoteEvent is published once per recorded vote
type VoteEvent struct {
	PollID     string    `json:"poll_id"`
	OptionID   string    `json:"option_id"`
	UserID     string    `json:"user_id"`
	TotalVotes int       `json:"total_votes"`
	At         time.Time `json:"at"`
}

// Publisher sends vote events to an external consumer
type Publisher interface {
	PublishVote(ctx context.Context, event VoteEvent) error
	Close() error
}

// Broadcaster delivers a message to the live viewers of a poll
type Broadcaster interface {
	Broadcast(pollID string, data []byte)
}

// Dispatcher tells live viewers and the optional event queue about poll
// changes. Delivery failures are logged and never reach the caller.
type Dispatcher struct {
	hub       Broadcaster
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewDispatcher accepts nil for either sink
func NewDispatcher(hub Broadcaster, publisher Publisher, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		hub:       hub,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// VoteRecorded pushes the new snapshot to viewers and publishes the event
func (d *Dispatcher) VoteRecorded(ctx context.Context, poll *models.Poll, optionID, userID string) {
	const op = "events.Dispatcher.VoteRecorded"
	log := d.log.With(slog.String("op", op), slog.String("poll_id", poll.ID))

	if d.hub != nil {
		data, err := live.EncodePoll(models.NewPollView(poll, ""))
		if err != nil {
			log.Error("encoding live update", slog.Any("error", err))
		} else {
			d.hub.Broadcast(poll.ID, data)
		}
	}

	if d.publisher == nil {
		return
	}

	// The request may finish before the broker answers
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := VoteEvent{
		PollID:     poll.ID,
		OptionID:   optionID,
		UserID:     userID,
		TotalVotes: poll.TotalVotes(),
		At:         d.now().UTC(),
	}
	if err := d.publisher.PublishVote(pubCtx, event); err != nil {
		log.Warn("publishing vote event failed", slog.Any("error", err))
	}
}

// PollDeleted tells viewers the poll is gone
func (d *Dispatcher) PollDeleted(pollID string) {
	if d.hub != nil {
		d.hub.Broadcast(pollID, live.EncodeDeleted())
	}
}

// Close releases the publisher
func (d *Dispatcher) Close() error {
	if d.publisher == nil {
		return nil
	}
	return d.publisher.Close()
}
