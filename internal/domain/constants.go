package domain

import "time"

// Normative limits for the synchronization engine.
// These are compiled defaults that can be overridden via configuration.
const (
	// Reconnection policy: exponential backoff, doubling per attempt.
	// The schedule for consecutive failures is 1s, 2s, 4s.
	ReconnectInitialBackoff = 1 * time.Second
	ReconnectMaxBackoff     = 10 * time.Second
	ReconnectMaxAttempts    = 3

	// Transport timeouts
	DialTimeout  = 10 * time.Second // Max time for the WebSocket handshake
	WriteTimeout = 5 * time.Second  // Max time for a single outbound frame

	// Roster loader
	RosterTimeout = 10 * time.Second // Max time for the initial conversation-list fetch

	// Graceful shutdown
	ShutdownOTELTimeout = 5 * time.Second // Max time to flush metrics/traces on exit
)
