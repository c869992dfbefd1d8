// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-poll/middleware"
	"github.com/danielhkuo/quickly-poll/store"
)

// statusFor maps repository errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrPollNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyVoted):
		return http.StatusConflict
	case errors.Is(err, store.ErrOptionNotFound),
		errors.Is(err, store.ErrEmptyQuestion),
		errors.Is(err, store.ErrTooFewOptions):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// storeError writes the error response for a repository error
func storeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("unexpected repository error", "error", err)
		middleware.ErrorResponse(w, status, "Internal error")
		return
	}
	if status == http.StatusServiceUnavailable {
		middleware.ErrorResponse(w, status, "Poll is busy, try again")
		return
	}
	middleware.ErrorResponse(w, status, err.Error())
}
