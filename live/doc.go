// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package live pushes poll results to websocket viewers.

Each poll has its own room. A viewer connects to /polls/{id}/live, gets the
current snapshot, then one Update per recorded vote:

	{"poll": {"id": "...", "options": [...], "total_votes": 3, ...}}

and, when the creator deletes the poll:

	{"deleted": true}

The hub runs in one goroutine started by main:

	hub := live.NewHub(logger)
	go hub.Run(ctx)
*/
package live
