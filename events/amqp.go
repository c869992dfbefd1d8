// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	dialAttempts = 5
	dialDelay    = 2 * time.Second
)

// AMQPPublisher writes vote events as persistent JSON messages to a
// durable queue on the default exchange.
type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	// amqp.Channel is not safe for concurrent publishing
	mu sync.Mutex
}

// DialAMQP connects, retrying while the broker starts up, and declares the queue
func DialAMQP(ctx context.Context, url, queue string, log *slog.Logger) (*AMQPPublisher, error) {
	const op = "events.DialAMQP"
	if log == nil {
		log = slog.Default()
	}

	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		if conn, err = amqp.Dial(url); err == nil {
			break
		}
		if attempt == dialAttempts {
			break
		}
		log.Warn("rabbitmq not reachable, retrying",
			slog.Int("attempt", attempt), slog.Duration("delay", dialDelay), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(dialDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: could not connect after %d attempts: %w", op, dialAttempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: channel: %w", op, err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: declare %q: %w", op, queue, err)
	}

	log.Info("connected to rabbitmq", slog.String("queue", queue))
	return &AMQPPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *AMQPPublisher) PublishVote(ctx context.Context, event VoteEvent) error {
	const op = "events.AMQPPublisher.PublishVote"

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.At,
		Type:         "vote.recorded",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
