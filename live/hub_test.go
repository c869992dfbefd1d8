// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-poll/models"
)

type fakeClient struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failing  bool
}

func (c *fakeClient) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeClient) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("not implemented")
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_BroadcastReachesOnlyThatPoll(t *testing.T) {
	h, _ := startHub(t)

	a1, a2, b := &fakeClient{}, &fakeClient{}, &fakeClient{}
	h.Register("poll-a", a1)
	h.Register("poll-a", a2)
	h.Register("poll-b", b)

	h.Broadcast("poll-a", []byte(`{"deleted":true}`))

	require.Eventually(t, func() bool { return a1.count() == 1 && a2.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.count())
	assert.Equal(t, 2, h.Viewers("poll-a"))
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	h, _ := startHub(t)

	c := &fakeClient{}
	h.Register("p1", c)
	h.Unregister("p1", c)

	require.Eventually(t, c.isClosed, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.Viewers("p1"))
}

func TestHub_DropsFailingClient(t *testing.T) {
	h, _ := startHub(t)

	good, bad := &fakeClient{}, &fakeClient{failing: true}
	h.Register("p1", good)
	h.Register("p1", bad)
	h.Broadcast("p1", []byte("x"))

	require.Eventually(t, bad.isClosed, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.Viewers("p1"))
	assert.Equal(t, 1, good.count())
}

func TestHub_ShutdownClosesEverything(t *testing.T) {
	h, cancel := startHub(t)

	c := &fakeClient{}
	h.Register("p1", c)
	cancel()

	require.Eventually(t, c.isClosed, time.Second, 5*time.Millisecond)

	// After shutdown nothing blocks
	late := &fakeClient{}
	h.Register("p1", late)
	assert.True(t, late.isClosed())
	h.Unregister("p1", late)
	h.Broadcast("p1", []byte("x"))
}

func TestEncode(t *testing.T) {
	data, err := EncodePoll(models.PollView{ID: "p1", TotalVotes: 2})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"poll":{"id":"p1"`)
	assert.NotContains(t, string(data), "deleted")

	var u Update
	require.NoError(t, json.Unmarshal(EncodeDeleted(), &u))
	assert.True(t, u.Deleted)
	assert.Nil(t, u.Poll)
}

func TestHub_WebsocketClient(t *testing.T) {
	h, _ := startHub(t)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewWebsocketClient(conn)
		h.Register("p1", client)
		defer h.Unregister("p1", client)
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Viewers("p1") == 1 }, time.Second, 5*time.Millisecond)
	h.Broadcast("p1", EncodeDeleted())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"deleted":true}`, string(data))
}

// stalledClient blocks in WriteMessage until released
type stalledClient struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *stalledClient) WriteMessage(int, []byte) error {
	c.once.Do(func() { close(c.started) })
	<-c.release
	return nil
}

func (c *stalledClient) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("not implemented")
}

func (c *stalledClient) Close() error { return nil }

func TestHub_StalledViewerDoesNotHoldLock(t *testing.T) {
	h, _ := startHub(t)
	stalled := &stalledClient{started: make(chan struct{}), release: make(chan struct{})}
	other := &fakeClient{}
	h.Register("p1", stalled)
	h.Register("p2", other)

	h.Broadcast("p1", []byte("x"))
	<-stalled.started

	viewers := make(chan int, 1)
	go func() { viewers <- h.Viewers("p2") }()
	select {
	case n := <-viewers:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("Viewers blocked while a write was in progress")
	}

	close(stalled.release)
	h.Broadcast("p2", []byte("y"))
	require.Eventually(t, func() bool { return other.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWebsocketClient_WriteDeadline(t *testing.T) {
	prev := writeWait
	writeWait = 50 * time.Millisecond
	t.Cleanup(func() { writeWait = prev })

	upgrader := websocket.Upgrader{}
	writeErr := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewWebsocketClient(conn)
		defer client.Close()

		payload := make([]byte, 1<<20)
		for i := 0; i < 512; i++ {
			if err := client.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				writeErr <- err
				return
			}
		}
		writeErr <- nil
	}))
	defer srv.Close()

	// The dialing side never reads, so the socket buffers fill up
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case err := <-writeErr:
		require.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("write to a stalled viewer never timed out")
	}
}
