// Package engine owns the single live WebSocket per logged-in user: the
// connection state machine, the bounded-backoff reconnection policy, and the
// reconciliation of inbound events into the shared conversation store.
//
// All transport callbacks and command invocations execute as discrete,
// non-overlapping turns serialized on the engine mutex; inbound events are
// applied strictly in the order the transport delivers them.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/openforum/chatsync/internal/domain"
	"github.com/openforum/chatsync/internal/store"
	"github.com/openforum/chatsync/pkg/protocol"
)

var tracer = otel.Tracer("chatsync/engine")

var (
	connectsTotal          metric.Int64Counter
	reconnectAttemptsTotal metric.Int64Counter
	reconnectsExhausted    metric.Int64Counter
	framesReceivedTotal    metric.Int64Counter
	framesSentTotal        metric.Int64Counter
	decodeFailuresTotal    metric.Int64Counter
	droppedCommandsTotal   metric.Int64Counter
)

func init() {
	m := otel.Meter("chatsync/engine")

	connectsTotal, _ = m.Int64Counter("chat_connects_total",
		metric.WithDescription("Total successful WebSocket connects"))
	reconnectAttemptsTotal, _ = m.Int64Counter("chat_reconnect_attempts_total",
		metric.WithDescription("Total scheduled reconnect attempts"))
	reconnectsExhausted, _ = m.Int64Counter("chat_reconnects_exhausted_total",
		metric.WithDescription("Times the reconnect budget ran out"))
	framesReceivedTotal, _ = m.Int64Counter("chat_frames_received_total",
		metric.WithDescription("Total inbound wire messages"))
	framesSentTotal, _ = m.Int64Counter("chat_frames_sent_total",
		metric.WithDescription("Total outbound wire messages"))
	decodeFailuresTotal, _ = m.Int64Counter("chat_decode_failures_total",
		metric.WithDescription("Inbound messages dropped as malformed or unknown"))
	droppedCommandsTotal, _ = m.Int64Counter("chat_dropped_commands_total",
		metric.WithDescription("Outbound commands dropped while not connected"))
}

// WebSocket close code for user-initiated disconnect (RFC 6455).
const closeNormalClosure = 1000

// Config holds the engine's connection parameters.
type Config struct {
	// Host is the chat server authority, e.g. "chat.example.com:8000".
	Host string

	// TLS selects wss:// over ws://.
	TLS bool

	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// Reconnection policy: exponential backoff doubling from InitialBackoff
	// up to MaxBackoff, at most MaxAttempts consecutive attempts.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int
}

func (c *Config) applyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = domain.DialTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = domain.WriteTimeout
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = domain.ReconnectInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = domain.ReconnectMaxBackoff
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = domain.ReconnectMaxAttempts
	}
}

// Params wires the engine's dependencies. Zero-valued optional fields fall
// back to production implementations.
type Params struct {
	Config Config
	Store  *store.Store

	Dialer Dialer        // optional; defaults to gorilla/websocket
	Clock  domain.Clock  // optional; defaults to RealClock
	Logger *slog.Logger  // optional; defaults to slog.Default()
	NewID  func() string // optional; temp message ids, defaults to uuid.NewString
}

// Engine is the realtime chat synchronization engine. Construct one per
// session with New and hand it by reference to UI collaborators.
type Engine struct {
	cfg    Config
	st     *store.Store
	dialer Dialer
	clock  domain.Clock
	logger *slog.Logger
	newID  func() string

	mu         sync.Mutex
	state      State
	userID     string
	conn       Conn
	gen        uint64 // connection generation; callbacks from older gens are stale
	attempts   int    // consecutive failed attempts charged to the reconnect budget
	retry      *backoff.ExponentialBackOff
	retryTimer *time.Timer // pending backoff timer, cancelled on teardown
	closed     bool
	wg         sync.WaitGroup

	// gorilla permits one concurrent writer; all outbound frames go
	// through writeMu.
	writeMu sync.Mutex
}

// New creates an Engine. The store must already exist (and is typically
// seeded by the roster loader before Connect).
func New(p Params) *Engine {
	p.Config.applyDefaults()
	if p.Dialer == nil {
		p.Dialer = NewWebSocketDialer(p.Config.DialTimeout, p.Config.WriteTimeout)
	}
	if p.Clock == nil {
		p.Clock = domain.RealClock{}
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.NewID == nil {
		p.NewID = uuid.NewString
	}

	retry := &backoff.ExponentialBackOff{
		InitialInterval:     p.Config.InitialBackoff,
		RandomizationFactor: 0, // the schedule must be exact: 1s, 2s, 4s
		Multiplier:          2,
		MaxInterval:         p.Config.MaxBackoff,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	retry.Reset()

	return &Engine{
		cfg:    p.Config,
		st:     p.Store,
		dialer: p.Dialer,
		clock:  p.Clock,
		logger: p.Logger,
		newID:  p.NewID,
		retry:  retry,
	}
}

// State returns the current connection state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// UserID returns the user the engine is connected (or connecting) for.
func (e *Engine) UserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

// Connect initializes the connection for userID. Calling it again while
// already connected for the same user is a no-op; a different user tears the
// old connection down first. The dial itself happens asynchronously; watch
// State for the outcome.
func (e *Engine) Connect(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "engine.connect")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.ErrEngineClosed
	}
	if e.userID == userID && e.state != StateDisconnected {
		// Idempotent: exactly one underlying connection per user.
		e.logger.DebugContext(ctx, "connect ignored, already initialized", "user_id", userID)
		return nil
	}
	if e.state != StateDisconnected {
		e.teardownLocked()
	}

	e.userID = userID
	e.attempts = 0
	e.retry.Reset()
	e.dialLocked(ctx)
	return nil
}

// Disconnect closes the connection on the user's behalf: a best-effort
// user_disconnect notice, then a normal-closure close frame. Any pending
// reconnect is cancelled and none is scheduled; the engine stays
// disconnected until Connect is called again.
func (e *Engine) Disconnect() {
	_, span := tracer.Start(context.Background(), "engine.disconnect")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
	e.attempts = 0
	e.retry.Reset()
}

// Close is Disconnect plus final teardown: after Close returns no engine
// goroutine is running and the engine accepts no further commands.
func (e *Engine) Close() {
	e.mu.Lock()
	e.teardownLocked()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}

// teardownLocked detaches transport callbacks (by bumping the generation),
// cancels any pending backoff timer, and closes the live socket if any.
// Callers hold e.mu.
func (e *Engine) teardownLocked() {
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
	// Invalidate in-flight dials and the read loop before touching the
	// socket so their exit never schedules a reconnect.
	e.gen++

	if e.conn != nil {
		conn := e.conn
		e.conn = nil
		if notice, err := protocol.Encode(protocol.UserDisconnect{
			UserID:    e.userID,
			Timestamp: e.wireTimestamp(),
		}); err == nil {
			e.writeFrame(conn, notice)
		}
		if err := conn.WriteClose(closeNormalClosure); err != nil {
			e.logger.Debug("close frame not delivered", "error", err)
		}
		_ = conn.Close()
		e.logger.Info("disconnected", "user_id", e.userID)
	}
	e.state = StateDisconnected
}

// dialLocked transitions to connecting and starts an asynchronous dial.
// Callers hold e.mu.
func (e *Engine) dialLocked(ctx context.Context) {
	e.state = StateConnecting
	e.gen++
	gen := e.gen
	url := e.connectionURL()
	userID := e.userID

	e.logger.Info("connecting", "url", url, "attempt", e.attempts)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.DialTimeout)
		defer cancel()
		conn, err := e.dialer.DialContext(dialCtx, url)

		e.mu.Lock()
		if e.closed || gen != e.gen {
			e.mu.Unlock()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			e.state = StateDisconnected
			e.logger.Warn("dial failed", "url", url, "error", err)
			e.scheduleReconnectLocked()
			e.mu.Unlock()
			return
		}

		e.conn = conn
		e.state = StateConnected
		e.attempts = 0
		e.retry.Reset()
		e.mu.Unlock()

		connectsTotal.Add(context.Background(), 1)
		e.logger.Info("connected", "user_id", userID)

		e.wg.Add(1)
		go e.readLoop(conn, gen)
	}()
}

// readLoop drains inbound messages for one connection generation.
func (e *Engine) readLoop(conn Conn, gen uint64) {
	defer e.wg.Done()
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			e.handleTransportClose(gen, err)
			return
		}
		e.handleFrame(data)
	}
}

// handleTransportClose reacts to an unexpected close or error signal.
// Signals from a detached (older-generation) socket are ignored.
func (e *Engine) handleTransportClose(gen uint64, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || gen != e.gen {
		return
	}

	if e.conn != nil {
		_ = e.conn.Close()
		e.conn = nil
	}
	e.state = StateDisconnected
	e.logger.Warn("connection lost", "user_id", e.userID, "error", cause)
	e.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the next backoff timer, or gives up silently
// once the budget is exhausted. Callers hold e.mu.
func (e *Engine) scheduleReconnectLocked() {
	if e.attempts >= e.cfg.MaxAttempts {
		reconnectsExhausted.Add(context.Background(), 1)
		e.logger.Warn("reconnect attempts exhausted, staying disconnected",
			"user_id", e.userID, "attempts", e.attempts)
		return
	}
	e.attempts++
	delay := e.retry.NextBackOff()
	reconnectAttemptsTotal.Add(context.Background(), 1)
	e.logger.Info("scheduling reconnect", "attempt", e.attempts, "delay", delay)

	// The generation guard covers the window where the timer has fired but
	// is waiting on the mutex while a teardown runs: the teardown bumps the
	// generation, so the late callback must not redial.
	gen := e.gen
	e.retryTimer = time.AfterFunc(delay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || gen != e.gen || e.state != StateDisconnected {
			return
		}
		e.retryTimer = nil
		e.dialLocked(context.Background())
	})
}

// Send encodes and transmits an outbound command. Commands issued while not
// connected are silently dropped (no queuing); that is the contract, not a
// failure.
func (e *Engine) Send(cmd protocol.Command) error {
	e.mu.Lock()
	conn := e.conn
	connected := e.state == StateConnected
	e.mu.Unlock()

	if !connected || conn == nil {
		droppedCommandsTotal.Add(context.Background(), 1)
		e.logger.Debug("command dropped, not connected", "command", fmt.Sprintf("%T", cmd))
		return nil
	}

	data, err := protocol.Encode(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	return e.writeFrame(conn, data)
}

func (e *Engine) writeFrame(conn Conn, data []byte) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	framesSentTotal.Add(context.Background(), 1)
	return nil
}

// SendChatMessage performs an optimistic send: the message is appended to
// the local conversation with a client-generated temporary id before the
// server confirms it, and the id is rewritten when the matching
// message_delivery event arrives. Dropped entirely while not connected.
func (e *Engine) SendChatMessage(chatUUID, recipientID, content string) error {
	e.mu.Lock()
	connected := e.state == StateConnected
	e.mu.Unlock()
	if !connected {
		droppedCommandsTotal.Add(context.Background(), 1)
		e.logger.Debug("chat message dropped, not connected", "recipient_id", recipientID)
		return nil
	}

	tempID := e.newID()
	ts := e.wireTimestamp()

	e.st.AppendMessage(recipientID, domain.Message{
		ID:        tempID,
		SenderID:  e.UserID(),
		Content:   content,
		Timestamp: ts,
		Read:      false,
	}, false)

	return e.Send(protocol.ChatMessage{
		ChatUUID:    chatUUID,
		RecipientID: recipientID,
		Content:     content,
		Timestamp:   ts,
		MessageID:   tempID,
	})
}

// NotifyTyping transmits a typing_status command. The idle-timeout decision
// of when isTyping flips to false belongs to the caller. No-op while not
// connected.
func (e *Engine) NotifyTyping(chatUUID, recipientID string, isTyping bool) error {
	return e.Send(protocol.TypingStatus{
		IsTyping:    isTyping,
		RecipientID: recipientID,
		ChatUUID:    chatUUID,
	})
}

// NotifySelection transmits a mark_messages_read command, used when the
// user opens a conversation with unread messages. No-op while not connected.
func (e *Engine) NotifySelection(chatUUID, senderID string) error {
	return e.Send(protocol.MarkMessagesRead{
		SenderID:      senderID,
		ChatUUID:      chatUUID,
		CurrentUserID: e.UserID(),
	})
}

func (e *Engine) connectionURL() string {
	scheme := "ws"
	if e.cfg.TLS {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws/chat/%s/", scheme, e.cfg.Host, e.userID)
}

func (e *Engine) wireTimestamp() string {
	return e.clock.Now().UTC().Format(time.RFC3339)
}
