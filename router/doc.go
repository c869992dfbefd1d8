// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Poll API.

NewRouter returns the complete handler, CORS and identity included:

	handler := router.NewRouter(repo, dispatcher, hub, cfg)

# Endpoints

	GET    /health                 - Liveness
	GET    /debug/backend          - Selected storage backend and ping
	POST   /polls                  - Create poll (signed in)
	GET    /polls/{id}             - Poll with tallies
	POST   /polls/{id}/votes       - Cast a vote (signed in)
	DELETE /polls/{id}             - Delete poll (creator only)
	GET    /polls/{id}/live        - Websocket tally updates
	GET    /me/polls               - Caller's polls, newest first
	GET    /polls/{id}/analytics   - Percent breakdown (creator only)
*/
package router
