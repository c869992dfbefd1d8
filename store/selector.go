// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/danielhkuo/quickly-poll/models"
)

// Kind names the driver a profile is opened with
type Kind string

const (
	KindRedis    Kind = "redis"
	KindPostgres Kind = "postgres"
	KindSQLite   Kind = "sqlite"
)

// Profile is one named set of connection values, e.g. KV_URL + KV_REST_API_TOKEN.
type Profile struct {
	Name          string
	Kind          Kind
	URL           string
	Token         string
	TokenRequired bool
}

// Ready reports whether every required value is present
func (p Profile) Ready() bool {
	if p.URL == "" {
		return false
	}
	return p.Token != "" || !p.TokenRequired
}

// Opener builds a live backend from a ready profile
type Opener func(ctx context.Context, p Profile) (Backend, error)

var errNoOpener = errors.New("no opener registered for profile kind")

// Selector resolves the active backend once per process. Profiles are
// probed in order; the first one that is ready and opens cleanly wins.
type Selector struct {
	profiles []Profile
	openers  map[Kind]Opener
	log      *slog.Logger

	mu       sync.Mutex
	resolved bool
	backend  Backend
	active   string
}

func NewSelector(profiles []Profile, openers map[Kind]Opener, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{
		profiles: profiles,
		openers:  openers,
		log:      log,
	}
}

// NewStaticSelector returns a selector that is already resolved to b.
// A nil b means "no backend configured".
func NewStaticSelector(name string, b Backend) *Selector {
	return &Selector{
		log:      slog.Default(),
		resolved: true,
		backend:  b,
		active:   name,
	}
}

// Resolve returns the active backend or nil. The outcome of the first call
// is cached, including the nil outcome when every profile failed.
func (s *Selector) Resolve(ctx context.Context) Backend {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return s.backend
	}
	s.resolved = true

	for _, p := range s.profiles {
		if !p.Ready() {
			continue
		}

		log := s.log.With(slog.String("profile", p.Name), slog.String("kind", string(p.Kind)))

		b, err := s.open(ctx, p)
		if err != nil {
			log.Warn("backend profile failed, trying next", slog.Any("error", err))
			continue
		}

		log.Info("backend resolved", slog.String("backend", b.Name()))
		s.backend = b
		s.active = p.Name
		return b
	}

	s.log.Info("no backend available, using process memory")
	return nil
}

func (s *Selector) open(ctx context.Context, p Profile) (b Backend, err error) {
	const op = "store.Selector.open"

	opener, ok := s.openers[p.Kind]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", op, p.Kind, errNoOpener)
	}

	// A panicking client constructor is treated like any other failed profile
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("%s: panic: %v", op, r)
		}
	}()

	b, err = opener(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// Status describes configuration and resolution for diagnostics
func (s *Selector) Status() models.BackendStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.BackendStatus{
		Resolved:      s.resolved,
		ActiveProfile: s.active,
		Backend:       "memory",
		Profiles:      make([]models.ProfileStatus, 0, len(s.profiles)),
	}
	if s.backend != nil {
		status.Backend = s.backend.Name()
	}
	for _, p := range s.profiles {
		status.Profiles = append(status.Profiles, models.ProfileStatus{
			Name:       p.Name,
			Kind:       string(p.Kind),
			Configured: p.Ready(),
		})
	}
	return status
}

// Close releases the active backend, if any
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	err := s.backend.Close()
	s.backend = nil
	return err
}
