package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the engine's view of a live duplex connection. It is satisfied by
// a thin gorilla/websocket adapter in production and by in-memory fakes in
// tests.
type Conn interface {
	// ReadMessage blocks until the next inbound text message arrives.
	ReadMessage() ([]byte, error)

	// WriteMessage transmits one outbound text message.
	WriteMessage(data []byte) error

	// WriteClose sends a close frame with the given status code.
	WriteClose(code int) error

	// Close tears down the underlying socket.
	Close() error
}

// Dialer opens a Conn to the given URL.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// wsDialer dials over gorilla/websocket.
type wsDialer struct {
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
}

// NewWebSocketDialer returns the production Dialer.
func NewWebSocketDialer(handshakeTimeout, writeTimeout time.Duration) Dialer {
	return &wsDialer{handshakeTimeout: handshakeTimeout, writeTimeout: writeTimeout}
}

func (d *wsDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &wsConn{conn: conn, writeTimeout: d.writeTimeout}, nil
}

// wsConn adapts *websocket.Conn to the engine's Conn. The engine serializes
// writes, so no additional locking is needed here.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) WriteClose(code int) error {
	deadline := time.Now().Add(c.writeTimeout)
	return c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
