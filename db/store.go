// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

// Driver names as registered with database/sql
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store keeps each poll as a JSON payload row keyed by store.PollKey. The
// version column makes Update a compare-and-swap.
type Store struct {
	db     *sql.DB
	driver string
}

// New wraps an open connection. The schema must already exist.
func New(conn *sql.DB, driver string) *Store {
	return &Store{db: conn, driver: driver}
}

// Open connects, pings and creates the schema
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	const op = "db.Open"

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if driver == DriverSQLite {
		// A single connection serialises writers and keeps :memory: databases shared
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	if err := CreateSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return New(conn, driver), nil
}

// Opener adapts Open to store.Opener for the postgres and sqlite kinds
func Opener(ctx context.Context, p store.Profile) (store.Backend, error) {
	driver := DriverPostgres
	if p.Kind == store.KindSQLite {
		driver = DriverSQLite
	}

	s, err := Open(ctx, driver, p.URL)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// rebind rewrites ? placeholders to $N for postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (s *Store) Name() string { return s.driver }

func (s *Store) Get(ctx context.Context, id string) (*models.Poll, error) {
	const op = "db.Store.Get"

	poll, _, err := s.load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrPollNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return poll, nil
}

func (s *Store) load(ctx context.Context, id string) (*models.Poll, int64, error) {
	var version int64
	var payload string

	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT version, payload FROM poll_record WHERE record_key = ?
	`), store.PollKey(id)).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, store.ErrPollNotFound
	}
	if err != nil {
		return nil, 0, err
	}

	poll, err := decode(payload)
	if err != nil {
		return nil, 0, err
	}
	return poll, version, nil
}

func (s *Store) Put(ctx context.Context, poll *models.Poll) error {
	const op = "db.Store.Put"

	payload, err := json.Marshal(poll)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO poll_record (record_key, poll_id, creator_id, created_at, version, payload)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (record_key) DO UPDATE SET
			creator_id = excluded.creator_id,
			created_at = excluded.created_at,
			version = poll_record.version + 1,
			payload = excluded.payload
	`), store.PollKey(poll.ID), poll.ID, poll.CreatorID, poll.CreatedAt, string(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Update reads the row, applies fn and writes back only if the version is
// unchanged. A lost race re-reads and retries.
func (s *Store) Update(ctx context.Context, id string, fn func(*models.Poll) error) (*models.Poll, error) {
	const op = "db.Store.Update"

	for attempt := 0; attempt < store.MaxUpdateRetries; attempt++ {
		poll, version, err := s.load(ctx, id)
		if errors.Is(err, store.ErrPollNotFound) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if err := fn(poll); err != nil {
			return nil, err
		}

		payload, err := json.Marshal(poll)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		res, err := s.db.ExecContext(ctx, s.rebind(`
			UPDATE poll_record SET payload = ?, version = version + 1
			WHERE record_key = ? AND version = ?
		`), string(payload), store.PollKey(id), version)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if n == 1 {
			return poll, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, store.ErrConflict)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "db.Store.Delete"

	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM poll_record WHERE record_key = ?`), store.PollKey(id))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) ListByCreator(ctx context.Context, creatorID string) ([]models.Poll, error) {
	const op = "db.Store.ListByCreator"

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT payload FROM poll_record
		WHERE creator_id = ?
		ORDER BY created_at DESC, poll_id ASC
	`), creatorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		poll, err := decode(payload)
		if err != nil {
			continue
		}
		polls = append(polls, *poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return polls, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func decode(payload string) (*models.Poll, error) {
	var poll models.Poll
	if err := json.Unmarshal([]byte(payload), &poll); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if poll.Voters == nil {
		poll.Voters = []string{}
	}
	return &poll, nil
}
