// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-poll/auth"
	"github.com/danielhkuo/quickly-poll/cliparse"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
)

// TestSecret signs every token issued by BearerToken
const TestSecret = "test-auth-secret"

// QuietLogger discards output
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupRepository returns a repository backed by b. A nil b means no
// backend is configured and every poll lives in process memory.
func SetupRepository(t *testing.T, b store.Backend) *store.Repository {
	t.Helper()

	var sel *store.Selector
	if b != nil {
		sel = store.NewStaticSelector("test", b)
	}
	return store.NewRepository(sel, store.NewMemory(), QuietLogger())
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		Env:           "local",
		AuthSecret:    TestSecret,
		CORSOrigins:   []string{"*"},
		RabbitMQQueue: "poll-votes",
	}
}

// BearerToken returns an Authorization header map for userID
func BearerToken(t *testing.T, userID, name string) map[string]string {
	t.Helper()

	token, err := auth.IssueToken(TestSecret, auth.Identity{UserID: userID, Name: name}, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// CreateTestPoll stores a poll created by creatorID and returns it
func CreateTestPoll(t *testing.T, repo *store.Repository, creatorID string, options ...string) *models.Poll {
	t.Helper()

	if len(options) == 0 {
		options = []string{"Alice", "Bob"}
	}
	poll, _, err := repo.CreatePoll(context.Background(), "Who is more likely to win?", options, creatorID, "Test Creator")
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return poll
}

// CastTestVote records a vote and fails the test if it is rejected
func CastTestVote(t *testing.T, repo *store.Repository, pollID, optionID, userID string) {
	t.Helper()

	if _, _, err := repo.VotePoll(context.Background(), pollID, optionID, userID); err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
