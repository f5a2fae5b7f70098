package auth

import (
	"context"
	"errors"
)

// ErrAuthenticationFailed is returned when authentication fails.
//
// This error should only be returned if credential verification fails.
// Any other error (eg. connection problems) should be returned directly.
var ErrAuthenticationFailed = errors.New("authentication failed")

// PasswordAuthenticator authenticates a subject using the "password" grant or basic auth.
//
// The secret is not necessarily a password: implementations may accept other
// credentials transported in the password field (eg. a personal access token).
//
// It returns an ErrAuthenticationFailed error in case credentials are invalid.
type PasswordAuthenticator interface {
	AuthenticatePassword(ctx context.Context, username string, password string) (Subject, error)
}

// RefreshTokenAuthenticator authenticates a subject using a refresh token.
//
// It returns an ErrAuthenticationFailed error in case the token is invalid.
type RefreshTokenAuthenticator interface {
	AuthenticateRefreshToken(ctx context.Context, service string, refreshToken string) (Subject, error)
}
