package authn

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/user"
)

func TestAccessTokenAuthenticator(t *testing.T) {
	now := time.Date(2023, time.April, 1, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	secret, err := user.GenerateSecret()
	require.NoError(t, err)

	store := &user.InMemoryStore{}

	owner, err := store.CreateUser(context.Background(), user.User{Username: "owner"})
	require.NoError(t, err)

	_, err = store.CreateAccessToken(context.Background(), user.AccessToken{
		UserID:      owner.ID,
		Name:        "ci",
		Digest:      user.DigestSecret(secret),
		Permissions: []string{"pull", "push"},
	})
	require.NoError(t, err)

	authenticator := NewAccessTokenAuthenticator(store, store, WithClock(clock))

	t.Run("OK", func(t *testing.T) {
		subject, err := authenticator.AuthenticatePassword(context.Background(), "owner", secret)
		require.NoError(t, err)

		assert.Equal(t, "owner", subject.ID())

		subjectType, _ := subject.Attribute(auth.SubjectType)
		assert.Equal(t, auth.SubjectTypeAccessToken, subjectType)

		permissions, _ := subject.Attribute(auth.SubjectPermissions)
		assert.Equal(t, "pull,push", permissions)
	})

	t.Run("NotASecret", func(t *testing.T) {
		_, err := authenticator.AuthenticatePassword(context.Background(), "owner", "password")

		assert.Equal(t, auth.ErrAuthenticationFailed, err)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := authenticator.AuthenticatePassword(context.Background(), "stranger", secret)

		assert.Equal(t, auth.ErrAuthenticationFailed, err)
	})

	t.Run("ForeignToken", func(t *testing.T) {
		_, err := store.CreateUser(context.Background(), user.User{Username: "other"})
		require.NoError(t, err)

		_, err = authenticator.AuthenticatePassword(context.Background(), "other", secret)

		assert.Equal(t, auth.ErrAuthenticationFailed, err)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		wrong, err := user.GenerateSecret()
		require.NoError(t, err)

		_, err = authenticator.AuthenticatePassword(context.Background(), "owner", wrong)

		assert.Equal(t, auth.ErrAuthenticationFailed, err)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		expiredSecret, err := user.GenerateSecret()
		require.NoError(t, err)

		_, err = store.CreateAccessToken(context.Background(), user.AccessToken{
			UserID:      owner.ID,
			Name:        "expired",
			Digest:      user.DigestSecret(expiredSecret),
			Permissions: []string{"pull"},
			ExpiresAt:   now.Add(-time.Hour),
		})
		require.NoError(t, err)

		_, err = authenticator.AuthenticatePassword(context.Background(), "owner", expiredSecret)

		assert.Equal(t, auth.ErrAuthenticationFailed, err)
	})
}
