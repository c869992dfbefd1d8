// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"sync"

	"github.com/danielhkuo/quickly-poll/models"
)

// Memory is the process-local backend. It is the only store when no
// profile is configured and the fallback when the configured one fails.
// Records do not survive a restart.
type Memory struct {
	mu    sync.RWMutex
	polls map[string]*models.Poll
}

func NewMemory() *Memory {
	return &Memory{polls: make(map[string]*models.Poll)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(_ context.Context, id string) (*models.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	poll, ok := m.polls[PollKey(id)]
	if !ok {
		return nil, ErrPollNotFound
	}
	return poll.Clone(), nil
}

func (m *Memory) Put(_ context.Context, poll *models.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.polls[PollKey(poll.ID)] = poll.Clone()
	return nil
}

// Seed stores poll unless a record with its id already exists. It reports
// whether poll was stored.
func (m *Memory) Seed(_ context.Context, poll *models.Poll) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := PollKey(poll.ID)
	if _, ok := m.polls[key]; ok {
		return false
	}
	m.polls[key] = poll.Clone()
	return true
}

func (m *Memory) Update(_ context.Context, id string, fn func(*models.Poll) error) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.polls[PollKey(id)]
	if !ok {
		return nil, ErrPollNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.polls[PollKey(id)] = next
	return next.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.polls, PollKey(id))
	return nil
}

func (m *Memory) ListByCreator(_ context.Context, creatorID string) ([]models.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []models.Poll
	for _, p := range m.polls {
		if p.CreatorID == creatorID {
			list = append(list, *p.Clone())
		}
	}
	SortNewestFirst(list)
	return list, nil
}

// Len returns the number of stored polls
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.polls)
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
