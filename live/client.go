// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single write to a viewer that stopped reading
var writeWait = 10 * time.Second

// Client is one viewer connection. The hub only needs to write to it and
// close it; the handler owns the read loop.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type websocketClient struct {
	conn *websocket.Conn
}

// NewWebsocketClient wraps a gorilla/websocket connection
func NewWebsocketClient(conn *websocket.Conn) Client {
	return &websocketClient{conn: conn}
}

func (c *websocketClient) WriteMessage(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *websocketClient) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *websocketClient) Close() error {
	return c.conn.Close()
}
