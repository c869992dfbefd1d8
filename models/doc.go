// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the persisted poll record and the API request and
response types.

# Domain Types

The record stored under poll:<id> in every backend:

  - Poll: question, ordered options, voters, creator identity
  - PollOption: option label and its vote counter

Poll keeps camelCase JSON names (createdAt, creatorId, creatorName) so that
records written by the web client remain readable.

# Request Types

  - CreatePollRequest: question, options
  - VoteRequest: option_id

# Response Types

  - CreatePollResponse: poll_id, storage
  - PollView: public poll projection (no voter ids)
  - VoteResponse: poll, storage
  - MyPollsResponse: dashboard listing
  - PollAnalytics: per-option breakdown for the creator
  - BackendStatus: storage diagnostics
  - ErrorResponse: error, message

# Storage Sources

Mutating and reading endpoints report where the data came from:

	SourceBackend  = "backend"   // the configured key-value backend
	SourceMemory   = "memory"    // no backend configured
	SourceFallback = "fallback"  // backend failed, process memory used
*/
package models
