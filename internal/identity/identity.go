// Package identity resolves the local user id from a stored access token.
// The server issues and verifies tokens; the client only needs the subject
// claim and an expiry check, so the signature is not validated here.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openforum/chatsync/internal/domain"
)

// Lookup extracts user identity from access tokens.
type Lookup struct {
	clock domain.Clock
}

// NewLookup creates a Lookup using the given clock for expiry checks.
func NewLookup(clock domain.Clock) *Lookup {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Lookup{clock: clock}
}

// UserID returns the subject claim of the access token. An unparseable
// token yields ErrInvalidToken; an expired one yields ErrTokenExpired.
func (l *Lookup) UserID(accessToken string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}

	if claims.ExpiresAt != nil && !l.clock.Now().Before(claims.ExpiresAt.Time) {
		return "", domain.ErrTokenExpired
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}

	return claims.Subject, nil
}
