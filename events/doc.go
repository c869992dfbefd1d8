// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package events fans out poll changes after they are stored.

A recorded vote goes to two places:

  - the live hub, as the poll's new public snapshot
  - a RabbitMQ queue (when RABBITMQ_URL is set), as a VoteEvent

The queue message body is JSON:

	{"poll_id":"3kTMd9vQ2bX","option_id":"Q9x","user_id":"user_123","total_votes":4,"at":"2025-06-01T12:00:00Z"}

Neither sink can fail a vote; errors are only logged.
*/
package events
