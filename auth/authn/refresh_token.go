package authn

import (
	"context"
	"errors"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/user"
)

// RefreshTokenAuthenticator authenticates a subject using a refresh token.
//
// The subject (and its privileges) is re-derived from the user store on every
// refresh, so privilege changes take effect without waiting for token expiry.
type RefreshTokenAuthenticator struct {
	verifier auth.RefreshTokenVerifier
	users    user.UserStore
}

// NewRefreshTokenAuthenticator returns a new RefreshTokenAuthenticator.
func NewRefreshTokenAuthenticator(verifier auth.RefreshTokenVerifier, users user.UserStore) RefreshTokenAuthenticator {
	return RefreshTokenAuthenticator{
		verifier: verifier,
		users:    users,
	}
}

// AuthenticateRefreshToken implements the auth.RefreshTokenAuthenticator interface.
func (a RefreshTokenAuthenticator) AuthenticateRefreshToken(ctx context.Context, service string, refreshToken string) (auth.Subject, error) {
	username, err := a.verifier.VerifyRefreshToken(ctx, service, refreshToken)
	if errors.Is(err, auth.ErrInvalidToken) {
		return nil, auth.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, err
	}

	u, err := a.users.FindUserByUsername(ctx, username)
	if errors.Is(err, user.ErrNotFound) {
		return nil, auth.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, err
	}

	if u.Disabled {
		return nil, auth.ErrAuthenticationFailed
	}

	return newUserSubject(u), nil
}
