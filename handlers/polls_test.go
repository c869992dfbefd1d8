// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/danielhkuo/quickly-poll/events"
	"github.com/danielhkuo/quickly-poll/middleware"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
	"github.com/danielhkuo/quickly-poll/testutil"
)

type capturedBroadcast struct {
	pollID string
	data   string
}

type captureHub struct {
	mu   sync.Mutex
	sent []capturedBroadcast
}

func (h *captureHub) Broadcast(pollID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, capturedBroadcast{pollID, string(data)})
}

// newTestServer wires the poll and dashboard routes the way the router does
func newTestServer(repo *store.Repository, hub events.Broadcaster) http.Handler {
	polls := NewPollHandler(repo, events.NewDispatcher(hub, nil, testutil.QuietLogger()))
	dashboard := NewDashboardHandler(repo)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /polls", polls.CreatePoll)
	mux.HandleFunc("GET /polls/{id}", polls.GetPoll)
	mux.HandleFunc("POST /polls/{id}/votes", polls.Vote)
	mux.HandleFunc("DELETE /polls/{id}", polls.DeletePoll)
	mux.HandleFunc("GET /me/polls", dashboard.MyPolls)
	mux.HandleFunc("GET /polls/{id}/analytics", dashboard.Analytics)

	return middleware.WithIdentity(testutil.TestSecret, mux)
}

func TestCreatePoll(t *testing.T) {
	repo := testutil.SetupRepository(t, nil)
	srv := newTestServer(repo, nil)
	alice := testutil.BearerToken(t, "user_alice", "Alice")

	tests := []struct {
		name           string
		requestBody    interface{}
		headers        map[string]string
		expectedStatus int
		checkResponse  func(t *testing.T, resp *models.CreatePollResponse)
	}{
		{
			name: "valid poll creation",
			requestBody: models.CreatePollRequest{
				Question: "Who is more likely to forget a birthday?",
				Options:  []string{"Alice", "Bob", "  "},
			},
			headers:        alice,
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.CreatePollResponse) {
				if resp.PollID == "" {
					t.Error("Expected non-empty poll_id")
				}
				if resp.Storage != models.SourceMemory {
					t.Errorf("Expected storage 'memory', got '%s'", resp.Storage)
				}

				poll, _, err := repo.GetPoll(context.Background(), resp.PollID)
				if err != nil {
					t.Fatalf("Created poll not readable: %v", err)
				}
				if len(poll.Options) != 2 {
					t.Errorf("Expected blank option to be dropped, got %d options", len(poll.Options))
				}
				if poll.CreatorID != "user_alice" || poll.CreatorName != "Alice" {
					t.Errorf("Expected creator from token, got %s/%s", poll.CreatorID, poll.CreatorName)
				}
			},
		},
		{
			name:           "missing question",
			requestBody:    models.CreatePollRequest{Options: []string{"a", "b"}},
			headers:        alice,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "too few options",
			requestBody:    models.CreatePollRequest{Question: "Q?", Options: []string{"only", ""}},
			headers:        alice,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "anonymous",
			requestBody:    models.CreatePollRequest{Question: "Q?", Options: []string{"a", "b"}},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			requestBody:    models.CreatePollRequest{Question: "Q?", Options: []string{"a", "b"}},
			headers:        map[string]string{"Authorization": "Bearer forged"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			headers:        alice,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/polls", tt.requestBody, tt.headers)
			w := httptest.NewRecorder()

			srv.ServeHTTP(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.checkResponse != nil && w.Code == tt.expectedStatus {
				var resp models.CreatePollResponse
				testutil.AssertJSON(t, w, &resp)
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestGetPoll(t *testing.T) {
	repo := testutil.SetupRepository(t, store.NewMemory())
	srv := newTestServer(repo, nil)

	poll := testutil.CreateTestPoll(t, repo, "user_owner")
	testutil.CastTestVote(t, repo, poll.ID, poll.Options[0].ID, "user_voter")

	tests := []struct {
		name           string
		path           string
		headers        map[string]string
		expectedStatus int
		hasVoted       bool
		isCreator      bool
	}{
		{"anonymous viewer", "/polls/" + poll.ID, nil, http.StatusOK, false, false},
		{"voter", "/polls/" + poll.ID, testutil.BearerToken(t, "user_voter", ""), http.StatusOK, true, false},
		{"creator", "/polls/" + poll.ID, testutil.BearerToken(t, "user_owner", ""), http.StatusOK, false, true},
		{"unknown poll", "/polls/nope", nil, http.StatusNotFound, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, testutil.MakeRequest("GET", tt.path, nil, tt.headers))

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			body := w.Body.String()
			var view models.PollView
			testutil.AssertJSON(t, w, &view)

			if view.TotalVotes != 1 {
				t.Errorf("Expected total_votes 1, got %d", view.TotalVotes)
			}
			if view.HasVoted != tt.hasVoted {
				t.Errorf("Expected has_voted %v, got %v", tt.hasVoted, view.HasVoted)
			}
			if view.IsCreator != tt.isCreator {
				t.Errorf("Expected is_creator %v, got %v", tt.isCreator, view.IsCreator)
			}
			if strings.Contains(body, "user_voter") || strings.Contains(body, "user_owner") {
				t.Errorf("Public view leaks user ids: %s", body)
			}
		})
	}
}

func TestVote(t *testing.T) {
	repo := testutil.SetupRepository(t, store.NewMemory())
	hub := &captureHub{}
	srv := newTestServer(repo, hub)

	poll := testutil.CreateTestPoll(t, repo, "user_owner")
	optA := poll.Options[0].ID
	voter := testutil.BearerToken(t, "user_voter", "Vic")

	tests := []struct {
		name           string
		pollID         string
		body           interface{}
		headers        map[string]string
		expectedStatus int
	}{
		{"first vote", poll.ID, models.VoteRequest{OptionID: optA}, voter, http.StatusOK},
		{"second vote same option", poll.ID, models.VoteRequest{OptionID: optA}, voter, http.StatusConflict},
		{"second vote other option", poll.ID, models.VoteRequest{OptionID: poll.Options[1].ID}, voter, http.StatusConflict},
		{"unknown option", poll.ID, models.VoteRequest{OptionID: "nope"}, testutil.BearerToken(t, "user_other", ""), http.StatusBadRequest},
		{"missing option", poll.ID, models.VoteRequest{}, voter, http.StatusBadRequest},
		{"unknown poll", "ghost", models.VoteRequest{OptionID: optA}, voter, http.StatusNotFound},
		{"anonymous", poll.ID, models.VoteRequest{OptionID: optA}, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, testutil.MakeRequest("POST", "/polls/"+tt.pollID+"/votes", tt.body, tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	stored, _, _ := repo.GetPoll(context.Background(), poll.ID)
	if stored.TotalVotes() != 1 || len(stored.Voters) != 1 {
		t.Errorf("Expected exactly one vote, got %d votes / %d voters", stored.TotalVotes(), len(stored.Voters))
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if len(hub.sent) != 1 || hub.sent[0].pollID != poll.ID {
		t.Errorf("Expected one live update for %s, got %+v", poll.ID, hub.sent)
	}
}

func TestVoteResponse(t *testing.T) {
	repo := testutil.SetupRepository(t, nil)
	srv := newTestServer(repo, nil)
	poll := testutil.CreateTestPoll(t, repo, "user_owner", "Red", "Green", "Blue")

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, testutil.MakeRequest("POST", "/polls/"+poll.ID+"/votes",
		models.VoteRequest{OptionID: poll.Options[2].ID}, testutil.BearerToken(t, "user_v", "")))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.VoteResponse
	testutil.AssertJSON(t, w, &resp)

	if !resp.Poll.HasVoted {
		t.Error("Expected has_voted after voting")
	}
	if resp.Poll.Options[2].Votes != 1 {
		t.Errorf("Expected Blue to have 1 vote, got %d", resp.Poll.Options[2].Votes)
	}
	if resp.Storage != models.SourceMemory {
		t.Errorf("Expected storage 'memory', got '%s'", resp.Storage)
	}
}

func TestDeletePoll(t *testing.T) {
	repo := testutil.SetupRepository(t, store.NewMemory())
	hub := &captureHub{}
	srv := newTestServer(repo, hub)

	poll := testutil.CreateTestPoll(t, repo, "user_owner")
	owner := testutil.BearerToken(t, "user_owner", "")

	tests := []struct {
		name           string
		headers        map[string]string
		expectedStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"not the creator", testutil.BearerToken(t, "user_intruder", ""), http.StatusForbidden},
		{"creator", owner, http.StatusNoContent},
		{"already deleted", owner, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, testutil.MakeRequest("DELETE", "/polls/"+poll.ID, nil, tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	if _, _, err := repo.GetPoll(context.Background(), poll.ID); !errors.Is(err, store.ErrPollNotFound) {
		t.Errorf("Expected poll to be gone, got err=%v", err)
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if len(hub.sent) != 1 || hub.sent[0].data != `{"deleted":true}` {
		t.Errorf("Expected one deleted notice, got %+v", hub.sent)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{store.ErrUnauthenticated, http.StatusUnauthorized},
		{store.ErrForbidden, http.StatusForbidden},
		{store.ErrPollNotFound, http.StatusNotFound},
		{store.ErrAlreadyVoted, http.StatusConflict},
		{store.ErrOptionNotFound, http.StatusBadRequest},
		{store.ErrEmptyQuestion, http.StatusBadRequest},
		{store.ErrTooFewOptions, http.StatusBadRequest},
		{store.ErrConflict, http.StatusServiceUnavailable},
		{fmt.Errorf("redisstore.Update: %w", store.ErrConflict), http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.expected {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

// busyBackend never wins an optimistic update
type busyBackend struct {
	*store.Memory
}

func (busyBackend) Update(context.Context, string, func(*models.Poll) error) (*models.Poll, error) {
	return nil, store.ErrConflict
}

func TestVote_BusyPoll(t *testing.T) {
	repo := testutil.SetupRepository(t, busyBackend{store.NewMemory()})
	srv := newTestServer(repo, nil)
	poll := testutil.CreateTestPoll(t, repo, "user_creator")

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, testutil.MakeRequest("POST", "/polls/"+poll.ID+"/votes",
		models.VoteRequest{OptionID: poll.Options[0].ID}, testutil.BearerToken(t, "user_voter", "")))
	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)

	// Nothing was recorded anywhere
	got, _, err := repo.GetPoll(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("GetPoll() error = %v", err)
	}
	if got.TotalVotes() != 0 {
		t.Errorf("Expected 0 votes, got %d", got.TotalVotes())
	}
}
