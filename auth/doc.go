// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides id generation and bearer-token identity.

# Identity

Users authenticate with the external identity provider, which issues HS256
JWTs signed with the shared AUTH_SECRET. The subject is the user id and the
"name" claim is the display name:

	id, err := auth.ParseToken(secret, bearer)
	// id.UserID, id.Name

IssueToken produces compatible tokens for tests and local development:

	token, err := auth.IssueToken(secret, auth.Identity{UserID: "u1", Name: "Uma"}, time.Hour)

# ID Generation

Poll and option ids are base62 strings cut from a random UUID:

	pollID := auth.NewPollID()     // e.g. "3kTMd9vQ2bX"
	optionID := auth.NewOptionID()

Ids are alphanumeric so they can be used directly in share links.
*/
package auth
