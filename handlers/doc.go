// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Poll API.

# Handler Types

Each handler is a struct holding the poll repository and whatever
side channels it needs:

  - PollHandler: create, view, vote, delete
  - DashboardHandler: the caller's own polls and per-poll analytics
  - LiveHandler: websocket subscriptions to a poll's tallies
  - SystemHandler: health and storage diagnostics

	pollHandler := handlers.NewPollHandler(repo, dispatcher)

# Identity

Handlers read the caller from the request context (see
middleware.WithIdentity). Creating, voting, deleting and analytics need
a signed-in user; viewing a poll does not.

# Storage Source

Write and list responses carry a "storage" field naming where the data
came from: "backend", "memory" (no backend configured) or "fallback"
(the backend failed and the in-process store answered).

# Errors

Repository errors map to statuses in one place (statusFor):

	ErrUnauthenticated → 401
	ErrForbidden       → 403
	ErrPollNotFound    → 404
	ErrAlreadyVoted    → 409
	ErrConflict        → 503
	validation errors  → 400

Anything else is logged and reported as a generic 500.
*/
package handlers
