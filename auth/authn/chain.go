package authn

import (
	"context"
	"errors"

	"github.com/portside-registry/auth/auth"
)

// Chain composes an ordered list of password authentication strategies.
//
// Strategies are tried in order, the first accepting one wins.
// A strategy rejecting the credentials (auth.ErrAuthenticationFailed) hands
// over to the next one: an invalid password must not short-circuit a later
// access token check. Any other error stops the chain immediately.
type Chain struct {
	authenticators []auth.PasswordAuthenticator
}

// NewChain returns a new Chain.
func NewChain(authenticators ...auth.PasswordAuthenticator) Chain {
	return Chain{
		authenticators: authenticators,
	}
}

// AuthenticatePassword implements the auth.PasswordAuthenticator interface.
func (c Chain) AuthenticatePassword(ctx context.Context, username string, password string) (auth.Subject, error) {
	for _, authenticator := range c.authenticators {
		subject, err := authenticator.AuthenticatePassword(ctx, username, password)
		if err == nil {
			return subject, nil
		}

		if !errors.Is(err, auth.ErrAuthenticationFailed) {
			return nil, err
		}
	}

	return nil, auth.ErrAuthenticationFailed
}
