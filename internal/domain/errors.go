package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// Connection lifecycle errors
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected for this user")
	ErrConnectBusy      = errors.New("connection attempt already in progress")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	ErrEngineClosed     = errors.New("engine has been torn down")

	// Store errors
	ErrConversationNotFound = errors.New("conversation not found")

	// Identity errors
	ErrInvalidToken = errors.New("invalid access token")
	ErrTokenExpired = errors.New("access token has expired")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// IsAuthError returns true if the error represents a credential problem the
// caller must resolve before initializing a connection.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenExpired)
}
