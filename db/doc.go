// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db is the SQL poll backend, for PostgreSQL (lib/pq) or SQLite
(modernc.org/sqlite).

# Opening

Open connects, pings and creates the schema:

	s, err := db.Open(ctx, db.DriverPostgres, os.Getenv("DATABASE_URL"))
	s, err := db.Open(ctx, db.DriverSQLite, "polls.db")

Opener plugs the same into the backend selector for both SQL profile kinds.

# Schema

One table holds every poll as a JSON payload, the same record layout the
key-value backends use:

	poll_record(record_key PK, poll_id, creator_id, created_at, version, payload)

creator_id and created_at are copied out of the payload so the dashboard
listing can use the (creator_id, created_at) index.

# Concurrency

Update is a compare-and-swap on version:

	UPDATE poll_record SET payload = ?, version = version + 1
	WHERE record_key = ? AND version = ?

Zero affected rows means another writer got there first; the row is re-read
and the mutation re-applied, up to store.MaxUpdateRetries times.

Queries are written with ? placeholders and rebound to $N for PostgreSQL.
*/
package db
