// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedMemory struct {
	*Memory
	name string
}

func (n namedMemory) Name() string { return n.name }

func TestProfile_Ready(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
		want bool
	}{
		{"empty", Profile{}, false},
		{"url only", Profile{URL: "redis://x"}, true},
		{"token required but missing", Profile{URL: "redis://x", TokenRequired: true}, false},
		{"token required and present", Profile{URL: "redis://x", Token: "t", TokenRequired: true}, true},
		{"token without url", Profile{Token: "t"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Ready())
		})
	}
}

func TestSelector_ProbesInOrder(t *testing.T) {
	var mu sync.Mutex
	var tried []string

	open := func(_ context.Context, p Profile) (Backend, error) {
		mu.Lock()
		tried = append(tried, p.Name)
		mu.Unlock()
		if p.Name == "broken" {
			return nil, errors.New("connection refused")
		}
		return namedMemory{NewMemory(), p.Name}, nil
	}

	s := NewSelector([]Profile{
		{Name: "unset", Kind: KindRedis},
		{Name: "broken", Kind: KindRedis, URL: "redis://broken"},
		{Name: "good", Kind: KindPostgres, URL: "postgres://good"},
		{Name: "later", Kind: KindSQLite, URL: "later.db"},
	}, map[Kind]Opener{KindRedis: open, KindPostgres: open, KindSQLite: open}, nil)

	b := s.Resolve(context.Background())
	require.NotNil(t, b)
	assert.Equal(t, "good", b.Name())
	assert.Equal(t, []string{"broken", "good"}, tried)

	// Cached: no further probing
	assert.Same(t, b.(namedMemory).Memory, s.Resolve(context.Background()).(namedMemory).Memory)
	assert.Equal(t, []string{"broken", "good"}, tried)

	status := s.Status()
	assert.True(t, status.Resolved)
	assert.Equal(t, "good", status.ActiveProfile)
	assert.Equal(t, "good", status.Backend)
	require.Len(t, status.Profiles, 4)
	assert.False(t, status.Profiles[0].Configured)
	assert.True(t, status.Profiles[1].Configured)
}

func TestSelector_CachesNilOutcome(t *testing.T) {
	calls := 0
	s := NewSelector([]Profile{
		{Name: "kv", Kind: KindRedis, URL: "redis://down"},
	}, map[Kind]Opener{
		KindRedis: func(context.Context, Profile) (Backend, error) {
			calls++
			return nil, errors.New("down")
		},
	}, nil)

	assert.Nil(t, s.Resolve(context.Background()))
	assert.Nil(t, s.Resolve(context.Background()))
	assert.Equal(t, 1, calls)

	status := s.Status()
	assert.True(t, status.Resolved)
	assert.Equal(t, "memory", status.Backend)
	assert.Empty(t, status.ActiveProfile)
}

func TestSelector_PanickingOpenerIsSkipped(t *testing.T) {
	s := NewSelector([]Profile{
		{Name: "bad", Kind: KindRedis, URL: "redis://x"},
		{Name: "fine", Kind: KindSQLite, URL: ":memory:"},
	}, map[Kind]Opener{
		KindRedis: func(context.Context, Profile) (Backend, error) {
			panic("malformed url")
		},
		KindSQLite: func(_ context.Context, p Profile) (Backend, error) {
			return namedMemory{NewMemory(), p.Name}, nil
		},
	}, nil)

	b := s.Resolve(context.Background())
	require.NotNil(t, b)
	assert.Equal(t, "fine", b.Name())
}

func TestSelector_MissingOpener(t *testing.T) {
	s := NewSelector([]Profile{{Name: "pg", Kind: KindPostgres, URL: "postgres://x"}}, nil, nil)
	assert.Nil(t, s.Resolve(context.Background()))
}

func TestSelector_ConcurrentResolveOpensOnce(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	s := NewSelector([]Profile{{Name: "redis", Kind: KindRedis, URL: "redis://x"}}, map[Kind]Opener{
		KindRedis: func(context.Context, Profile) (Backend, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return NewMemory(), nil
		},
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Resolve(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestStaticSelector(t *testing.T) {
	m := NewMemory()
	s := NewStaticSelector("test", m)
	assert.Same(t, m, s.Resolve(context.Background()))
	assert.NoError(t, s.Close())
	assert.Nil(t, s.Resolve(context.Background()))

	none := NewStaticSelector("", nil)
	assert.Nil(t, none.Resolve(context.Background()))
}
