package user

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record cannot be found in a store.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a record cannot be created because it collides
// with an existing one (eg. username or email already taken).
var ErrConflict = errors.New("already exists")

// UserStore provides access to local user accounts.
type UserStore interface {
	// FindUserByID returns the user with the given ID.
	// It returns an error wrapping ErrNotFound when no user matches.
	FindUserByID(ctx context.Context, id string) (User, error)

	// FindUserByUsername returns the user with the given username.
	// The lookup is case-insensitive.
	// It returns an error wrapping ErrNotFound when no user matches.
	FindUserByUsername(ctx context.Context, username string) (User, error)

	// FindUserByEmail returns the user with the given email address.
	// The lookup is case-insensitive.
	// It returns an error wrapping ErrNotFound when no user matches.
	FindUserByEmail(ctx context.Context, email string) (User, error)

	// CreateUser inserts a new user.
	// It returns an error wrapping ErrConflict when the username or the email is already taken.
	CreateUser(ctx context.Context, user User) (User, error)
}

// AccessTokenStore provides access to personal access tokens.
type AccessTokenStore interface {
	// ListAccessTokens returns every access token of a user, including expired ones.
	ListAccessTokens(ctx context.Context, userID string) ([]AccessToken, error)

	// CreateAccessToken inserts a new access token.
	CreateAccessToken(ctx context.Context, token AccessToken) (AccessToken, error)
}

// IdentityStore provides access to federated identity links.
type IdentityStore interface {
	// FindIdentity returns the identity link for a (provider, subject) pair.
	// It returns an error wrapping ErrNotFound when no link exists.
	FindIdentity(ctx context.Context, provider string, subject string) (Identity, error)

	// CreateIdentity inserts a new identity link.
	// It returns an error wrapping ErrConflict when a link already exists for the (provider, subject) pair.
	CreateIdentity(ctx context.Context, identity Identity) (Identity, error)

	// UpdateIdentity updates the display metadata (email, display name) of an identity link.
	UpdateIdentity(ctx context.Context, identity Identity) (Identity, error)
}

// Store combines all user-facing stores.
type Store interface {
	UserStore
	AccessTokenStore
	IdentityStore
}
