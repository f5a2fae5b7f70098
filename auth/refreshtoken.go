package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when token verification fails.
//
// All verification failures (bad signature, expired token, wrong audience, etc.)
// collapse into this single error: callers learn that the token is invalid,
// the reason is only logged server-side.
var ErrInvalidToken = errors.New("invalid token")

// RefreshTokenIssuer issues a token that a client can use to issue a new token for a subject without presenting credentials again.
//
// Refresh tokens are only issued to authenticated subjects, never for anonymous access.
type RefreshTokenIssuer interface {
	IssueRefreshToken(ctx context.Context, service string, subject Subject) (string, error)
}

// RefreshTokenVerifier verifies a refresh token and returns the name of the subject it was issued to.
//
// It returns an error wrapping ErrInvalidToken when verification fails.
type RefreshTokenVerifier interface {
	VerifyRefreshToken(ctx context.Context, service string, refreshToken string) (string, error)
}
