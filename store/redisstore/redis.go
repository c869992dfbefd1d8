// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

// Store keeps each poll as a JSON string under poll:<id> and indexes poll
// ids per creator in a set, since listing by key pattern would need KEYS.
type Store struct {
	client *redis.Client
}

// New wraps an existing client
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Open connects with a redis:// or rediss:// URL. A non-empty token
// replaces any password in the URL.
func Open(ctx context.Context, rawURL, token string) (*Store, error) {
	const op = "redisstore.Open"

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if token != "" {
		opts.Password = token
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Store{client: client}, nil
}

// Opener adapts Open to store.Opener
func Opener(ctx context.Context, p store.Profile) (store.Backend, error) {
	s, err := Open(ctx, p.URL, p.Token)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func creatorKey(creatorID string) string {
	return "creator:" + creatorID + ":polls"
}

func (s *Store) Name() string { return "redis" }

func (s *Store) Get(ctx context.Context, id string) (*models.Poll, error) {
	const op = "redisstore.Get"

	data, err := s.client.Get(ctx, store.PollKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return decode(op, data)
}

func (s *Store) Put(ctx context.Context, poll *models.Poll) error {
	const op = "redisstore.Put"

	data, err := json.Marshal(poll)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, store.PollKey(poll.ID), data, 0)
		pipe.SAdd(ctx, creatorKey(poll.CreatorID), poll.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Update retries on redis.TxFailedErr, which EXEC reports when a watched
// key changed between GET and EXEC.
func (s *Store) Update(ctx context.Context, id string, fn func(*models.Poll) error) (*models.Poll, error) {
	const op = "redisstore.Update"
	key := store.PollKey(id)

	for attempt := 0; attempt < store.MaxUpdateRetries; attempt++ {
		var updated *models.Poll

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return store.ErrPollNotFound
			}
			if err != nil {
				return err
			}

			poll, err := decode(op, data)
			if err != nil {
				return err
			}
			if err := fn(poll); err != nil {
				return err
			}

			out, err := json.Marshal(poll)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, 0)
				return nil
			})
			if err == nil {
				updated = poll
			}
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, store.ErrPollNotFound) || errors.Is(err, store.ErrAlreadyVoted) || errors.Is(err, store.ErrOptionNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return updated, nil
	}

	return nil, fmt.Errorf("%s: %w", op, store.ErrConflict)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "redisstore.Delete"
	key := store.PollKey(id)

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var creatorID string
	if poll, err := decode(op, data); err == nil {
		creatorID = poll.CreatorID
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if creatorID != "" {
			pipe.SRem(ctx, creatorKey(creatorID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) ListByCreator(ctx context.Context, creatorID string) ([]models.Poll, error) {
	const op = "redisstore.ListByCreator"

	ids, err := s.client.SMembers(ctx, creatorKey(creatorID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return []models.Poll{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = store.PollKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	polls := make([]models.Poll, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		poll, err := decode(op, []byte(raw))
		if err != nil || poll.CreatorID != creatorID {
			continue
		}
		polls = append(polls, *poll)
	}

	// Records deleted without going through Delete leave ids behind
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, creatorKey(creatorID), stale...).Err()
	}

	store.SortNewestFirst(polls)
	return polls, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func decode(op string, data []byte) (*models.Poll, error) {
	var poll models.Poll
	if err := json.Unmarshal(data, &poll); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}
	if poll.Voters == nil {
		poll.Voters = []string{}
	}
	return &poll, nil
}
