// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"

	"github.com/danielhkuo/quickly-poll/models"
)

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrOptionNotFound  = errors.New("option not found")
	ErrAlreadyVoted    = errors.New("user already voted on this poll")
	ErrEmptyQuestion   = errors.New("question is required")
	ErrTooFewOptions   = errors.New("at least 2 non-blank options are required")
	ErrUnauthenticated = errors.New("identity required")
	ErrForbidden       = errors.New("only the poll creator may do this")
	ErrConflict        = errors.New("poll changed concurrently, retries exhausted")
)

// MaxUpdateRetries bounds optimistic retries in Backend.Update implementations
const MaxUpdateRetries = 8

// Backend is a physical poll store. Implementations key records by
// PollKey(id) and must make Update atomic with respect to other writers.
type Backend interface {
	Name() string
	Get(ctx context.Context, id string) (*models.Poll, error)
	Put(ctx context.Context, poll *models.Poll) error
	// Update applies fn to the current record and commits the result only if
	// nobody else wrote the record meanwhile. An error from fn aborts without
	// writing and is returned unchanged.
	Update(ctx context.Context, id string, fn func(*models.Poll) error) (*models.Poll, error)
	Delete(ctx context.Context, id string) error
	ListByCreator(ctx context.Context, creatorID string) ([]models.Poll, error)
	Ping(ctx context.Context) error
	Close() error
}

// PollKey is the namespaced key of a poll record
func PollKey(id string) string {
	return "poll:" + id
}

// Source tells callers which path served an operation
type Source int

const (
	// SourceBackend means the configured backend served the operation
	SourceBackend Source = iota
	// SourceMemory means no backend is configured
	SourceMemory
	// SourceFallback means process memory served the operation although a
	// backend is configured: either the backend failed just now, or the
	// record was moved to memory by an earlier failed write. A healthy
	// backend that simply has no such poll reports SourceBackend.
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceBackend:
		return models.SourceBackend
	case SourceFallback:
		return models.SourceFallback
	default:
		return models.SourceMemory
	}
}

// Degraded reports whether a configured backend was bypassed
func (s Source) Degraded() bool {
	return s == SourceFallback
}
