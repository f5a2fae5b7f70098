package authn

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/user"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// AccessTokenAuthenticator authenticates a subject using a personal access token
// transported in the password field of basic auth (or the "password" grant).
//
// A credential that does not look like a token secret is rejected immediately,
// so the authenticator can be chained after password authentication.
type AccessTokenAuthenticator struct {
	users  user.UserStore
	tokens user.AccessTokenStore

	clock Clock
}

// AccessTokenAuthenticatorOption configures an AccessTokenAuthenticator.
type AccessTokenAuthenticatorOption interface {
	applyAccessTokenAuthenticator(a *AccessTokenAuthenticator)
}

type withClock struct {
	clock Clock
}

func (o withClock) applyAccessTokenAuthenticator(a *AccessTokenAuthenticator) {
	a.clock = o.clock
}

// WithClock sets the clock used for checking token expiry.
func WithClock(clock Clock) AccessTokenAuthenticatorOption {
	return withClock{clock: clock}
}

// NewAccessTokenAuthenticator returns a new AccessTokenAuthenticator.
func NewAccessTokenAuthenticator(users user.UserStore, tokens user.AccessTokenStore, opts ...AccessTokenAuthenticatorOption) AccessTokenAuthenticator {
	a := AccessTokenAuthenticator{
		users:  users,
		tokens: tokens,
	}

	for _, opt := range opts {
		opt.applyAccessTokenAuthenticator(&a)
	}

	if a.clock == nil {
		a.clock = clockwork.NewRealClock()
	}

	return a
}

// AuthenticatePassword implements the auth.PasswordAuthenticator interface.
func (a AccessTokenAuthenticator) AuthenticatePassword(ctx context.Context, username string, password string) (auth.Subject, error) {
	if !user.IsSecret(password) {
		return nil, auth.ErrAuthenticationFailed
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

	tokens, err := a.tokens.ListAccessTokens(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()

	for _, token := range tokens {
		if token.Expired(now) {
			continue
		}

		if user.VerifySecret(password, token.Digest) {
			return newAccessTokenSubject(u, token), nil
		}
	}

	return nil, auth.ErrAuthenticationFailed
}
