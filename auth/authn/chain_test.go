package authn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portside-registry/auth/auth"
)

type passwordAuthenticatorStub struct {
	subject auth.Subject
	err     error
}

func (a passwordAuthenticatorStub) AuthenticatePassword(_ context.Context, _ string, _ string) (auth.Subject, error) {
	return a.subject, a.err
}

func TestChain(t *testing.T) {
	accepted := subject{id: "user"}

	t.Run("FirstMatch", func(t *testing.T) {
		chain := NewChain(
			passwordAuthenticatorStub{subject: accepted},
			passwordAuthenticatorStub{err: errors.New("should not be reached")},
		)

		subject, err := chain.AuthenticatePassword(context.Background(), "user", "password")
		require.NoError(t, err)

		assert.Equal(t, accepted, subject)
	})

	t.Run("Fallback", func(t *testing.T) {
		chain := NewChain(
			passwordAuthenticatorStub{err: auth.ErrAuthenticationFailed},
			passwordAuthenticatorStub{subject: accepted},
		)

		subject, err := chain.AuthenticatePassword(context.Background(), "user", "password")
		require.NoError(t, err)

		assert.Equal(t, accepted, subject)
	})

	t.Run("AllReject", func(t *testing.T) {
		chain := NewChain(
			passwordAuthenticatorStub{err: auth.ErrAuthenticationFailed},
			passwordAuthenticatorStub{err: auth.ErrAuthenticationFailed},
		)

		_, err := chain.AuthenticatePassword(context.Background(), "user", "password")

		assert.Equal(t, auth.ErrAuthenticationFailed, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := NewChain().AuthenticatePassword(context.Background(), "user", "password")

		assert.Equal(t, auth.ErrAuthenticationFailed, err)
	})

	t.Run("FatalError", func(t *testing.T) {
		storeDown := errors.New("store is down")

		chain := NewChain(
			passwordAuthenticatorStub{err: storeDown},
			passwordAuthenticatorStub{subject: accepted},
		)

		_, err := chain.AuthenticatePassword(context.Background(), "user", "password")

		assert.Equal(t, storeDown, err)
	})
}
