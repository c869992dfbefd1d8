// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists polls and enforces the one-vote-per-user rule.

# Backends

A Backend stores whole poll records keyed by PollKey(id). Three exist:

  - Memory (this package): process-local map, no persistence
  - redisstore.Store: Redis protocol key-value service
  - db.Store: PostgreSQL or SQLite table

Update is the only mutation path for votes and must be atomic per poll:
Memory holds its lock, Redis uses WATCH/MULTI, SQL compares a version column.

# Selector

The Selector probes named profiles in order and opens the first one whose
values are present:

	sel := store.NewSelector(cfg.Profiles(), map[store.Kind]store.Opener{
		store.KindRedis:    redisstore.Opener,
		store.KindPostgres: db.Opener,
		store.KindSQLite:   db.Opener,
	}, logger)

Resolution happens on first use and is cached for the life of the process.
When nothing resolves, Resolve returns nil and the Repository uses Memory.

# Repository

	repo := store.NewRepository(sel, store.NewMemory(), logger)
	poll, src, err := repo.CreatePoll(ctx, "Who is more likely to...", opts, userID, name)

Every operation reports a Source: SourceBackend, SourceMemory, or
SourceFallback when the backend failed and memory stood in. Business
outcomes are errors: ErrPollNotFound, ErrAlreadyVoted, ErrOptionNotFound,
ErrForbidden, ErrUnauthenticated.
*/
package store
