package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_Users(t *testing.T) {
	store := NewInMemoryStore()

	created, err := store.CreateUser(context.Background(), User{
		Username: "alice",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	found, err := store.FindUserByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)

	// Username and email lookups are case-insensitive.
	found, err = store.FindUserByUsername(context.Background(), "ALICE")
	require.NoError(t, err)
	assert.Equal(t, created, found)

	found, err = store.FindUserByEmail(context.Background(), "Alice@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestInMemoryStore_Users_NotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.FindUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindUserByUsername(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindUserByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_Users_Conflict(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.CreateUser(context.Background(), User{
		Username: "alice",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)

	_, err = store.CreateUser(context.Background(), User{
		Username: "Alice",
		Email:    "other@example.com",
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.CreateUser(context.Background(), User{
		Username: "bob",
		Email:    "ALICE@example.com",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestInMemoryStore_AccessTokens(t *testing.T) {
	store := NewInMemoryStore()

	account, err := store.CreateUser(context.Background(), User{Username: "alice"})
	require.NoError(t, err)

	token, err := store.CreateAccessToken(context.Background(), AccessToken{
		UserID:      account.ID,
		Name:        "ci",
		Digest:      "digest",
		Permissions: []string{"pull"},
		ExpiresAt:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, token.ID)

	tokens, err := store.ListAccessTokens(context.Background(), account.ID)
	require.NoError(t, err)

	assert.Equal(t, []AccessToken{token}, tokens)
}

func TestInMemoryStore_AccessTokens_UnknownUser(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.CreateAccessToken(context.Background(), AccessToken{UserID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_Identities(t *testing.T) {
	store := NewInMemoryStore()

	identity := Identity{
		Provider: "https://issuer.example.com",
		Subject:  "subject-1",
		UserID:   "user-1",
		Email:    "alice@example.com",
	}

	created, err := store.CreateIdentity(context.Background(), identity)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	found, err := store.FindIdentity(context.Background(), "https://issuer.example.com", "subject-1")
	require.NoError(t, err)
	assert.Equal(t, created, found)

	// A second link for the same (provider, subject) pair is a conflict.
	_, err = store.CreateIdentity(context.Background(), identity)
	assert.ErrorIs(t, err, ErrConflict)

	created.DisplayName = "Alice Smith"

	updated, err := store.UpdateIdentity(context.Background(), created)
	require.NoError(t, err)

	found, err = store.FindIdentity(context.Background(), "https://issuer.example.com", "subject-1")
	require.NoError(t, err)
	assert.Equal(t, updated, found)
}

func TestInMemoryStore_Identities_NotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.FindIdentity(context.Background(), "https://issuer.example.com", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.UpdateIdentity(context.Background(), Identity{
		Provider: "https://issuer.example.com",
		Subject:  "missing",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
