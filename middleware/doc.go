// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, client IP) and completion (duration_ms).

# CORS Middleware

Enable cross-origin requests for the configured origins (rs/cors):

	handler := middleware.CORS(cfg.CORSOrigins, mux)

Allows GET, POST, DELETE and OPTIONS with Content-Type and Authorization.

# Identity

WithIdentity verifies "Authorization: Bearer <jwt>" and stores the caller
in the request context:

	handler := middleware.WithIdentity(cfg.AuthSecret, mux)

	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		// id.UserID, id.Name
	}

No token means anonymous. A bad token is answered with 401.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
*/
package middleware
