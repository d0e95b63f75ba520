package engine_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforum/chatsync/internal/domain"
	"github.com/openforum/chatsync/internal/engine"
	"github.com/openforum/chatsync/internal/store"
)

// chatServer is a minimal scripted chat endpoint for end-to-end exercising
// of the real gorilla transport.
type chatServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	paths    []string
	conns    []*websocket.Conn
	received [][]byte
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()
	cs := &chatServer{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := cs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		cs.mu.Lock()
		cs.paths = append(cs.paths, r.URL.Path)
		cs.conns = append(cs.conns, conn)
		cs.mu.Unlock()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			cs.mu.Lock()
			cs.received = append(cs.received, data)
			cs.mu.Unlock()
		}
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *chatServer) host() string {
	return strings.TrimPrefix(cs.srv.URL, "http://")
}

func (cs *chatServer) lastConn(t *testing.T) *websocket.Conn {
	t.Helper()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	require.NotEmpty(t, cs.conns)
	return cs.conns[len(cs.conns)-1]
}

func (cs *chatServer) connCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.conns)
}

func (cs *chatServer) messages() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]string, len(cs.received))
	for i, data := range cs.received {
		out[i] = string(data)
	}
	return out
}

func TestEngineOverRealWebSocket(t *testing.T) {
	cs := newChatServer(t)

	st := store.New()
	st.SeedConversations([]domain.Conversation{{CounterpartID: "456", ChatUUID: "c1"}})

	e := engine.New(engine.Params{
		Config: engine.Config{
			Host:           cs.host(),
			InitialBackoff: 5 * time.Millisecond,
			MaxBackoff:     20 * time.Millisecond,
			MaxAttempts:    3,
		},
		Store:  st,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer e.Close()

	require.NoError(t, e.Connect(context.Background(), "123"))
	waitState(t, e, engine.StateConnected)
	assert.Equal(t, []string{"/ws/chat/123/"}, cs.paths)

	// Server pushes presence; the store picks it up.
	require.NoError(t, cs.lastConn(t).WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"user_list","users":["456"]}`)))
	waitSnapshot(t, st, func(s *domain.Snapshot) bool { return s.IsOnline("456") })

	// Client command reaches the server.
	require.NoError(t, e.NotifyTyping("c1", "456", true))
	require.Eventually(t, func() bool { return len(cs.messages()) == 1 },
		2*time.Second, time.Millisecond)
	assert.Contains(t, cs.messages()[0], `"typing_status"`)

	// Server drops the socket; the engine reconnects on its own.
	require.NoError(t, cs.lastConn(t).Close())
	require.Eventually(t, func() bool { return cs.connCount() == 2 },
		2*time.Second, time.Millisecond)
	waitState(t, e, engine.StateConnected)

	// User-initiated disconnect sends the notice and stays down.
	e.Disconnect()
	require.Eventually(t, func() bool {
		msgs := cs.messages()
		return len(msgs) == 2 && strings.Contains(msgs[1], `"user_disconnect"`)
	}, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, cs.connCount(), "no reconnect after user disconnect")
}
