// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Poll API server.

Quickly Poll runs "who is more likely to" polls: a signed-in user asks a
question with two or more options, shares the link, and everyone else
votes once. Tallies stream to open pages over websockets.

# Starting the Server

	AUTH_SECRET=... REDIS_URL=redis://localhost:6379 go run .

Or with flags:

	go run . -p 3318 -auth-secret ... -sqlite ./polls.db

Variables in a local .env file are loaded first.

# Configuration

Required settings:

  - AUTH_SECRET (-auth-secret): HS256 secret shared with the identity provider

Storage profiles, tried in order until one connects:

  - KV_URL + KV_REST_API_TOKEN
  - UPSTASH_REDIS_URL + UPSTASH_REDIS_TOKEN
  - REDIS_URL (-redis), REDIS_PASSWORD
  - DATABASE_URL (-d): PostgreSQL
  - SQLITE_PATH (-sqlite)

With none configured, or none reachable, polls live in process memory.

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - APP_ENV (-env): local, dev or prod; selects the log format
  - CORS_ORIGINS: comma-separated allowed origins (default: *)
  - RABBITMQ_URL, RABBITMQ_QUEUE: publish vote events

# Architecture

  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, identity, logging, JSON helpers
  - store: Backend selection, fallback and poll operations
  - store/redisstore, db: Redis and SQL backends
  - live: Websocket fan-out
  - events: Vote notifications (websocket and RabbitMQ)
  - auth: Tokens and id generation
  - models: Poll records and API types
  - cliparse, logging: Configuration and log setup
*/
package main
