// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/quickly-poll/auth"
)

type identityKey struct{}

// WithIdentity verifies an optional bearer token. Requests without one
// continue anonymously; a token that fails verification is rejected with 401.
func WithIdentity(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := auth.ParseToken(secret, token)
		if err != nil {
			slog.Debug("rejected bearer token", "path", r.URL.Path, "error", err)
			ErrorResponse(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}

// ContextWithIdentity attaches id to ctx
func ContextWithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller's identity, if the request carried one
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok && id.UserID != ""
}

// extractBearerToken reads "Authorization: Bearer <token>". Browsers cannot
// set headers on websocket upgrades, so an access_token query parameter is
// accepted there as well.
func extractBearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
