// Package statestore persists in-flight single sign-on logins between
// the authorization redirect and the provider callback.
package statestore

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long a login attempt can stay pending.
const DefaultTTL = 10 * time.Minute

// ErrNotFound is returned when a login state does not exist, is expired or was already consumed.
var ErrNotFound = errors.New("login state not found")

// Login is an in-flight login attempt, keyed by its state value.
type Login struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	Nonce        string    `json:"nonce"`
	RedirectURI  string    `json:"redirect_uri,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired tells whether the login attempt is expired at the given time.
func (l Login) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !l.ExpiresAt.After(now)
}

// Store persists in-flight logins.
type Store interface {
	// Save persists a login attempt under its state value.
	Save(ctx context.Context, login Login) error

	// Consume removes and returns the login attempt stored under the state value.
	// A login is consumed exactly once: concurrent callbacks presenting the same
	// state see at most one winner.
	//
	// Consume returns ErrNotFound when nothing (valid) is stored under the state value.
	Consume(ctx context.Context, state string) (Login, error)
}
