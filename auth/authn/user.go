package authn

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/user"
)

// UserAuthenticator authenticates a subject against the user store using a password.
type UserAuthenticator struct {
	users user.UserStore
}

// NewUserAuthenticator returns a new UserAuthenticator.
func NewUserAuthenticator(users user.UserStore) UserAuthenticator {
	return UserAuthenticator{
		users: users,
	}
}

// AuthenticatePassword implements the auth.PasswordAuthenticator interface.
func (a UserAuthenticator) AuthenticatePassword(ctx context.Context, username string, password string) (auth.Subject, error) {
	u, err := a.users.FindUserByUsername(ctx, username)
	if errors.Is(err, user.ErrNotFound) {
		// timing attack paranoia
		bcrypt.CompareHashAndPassword([]byte{}, []byte(password))

		return nil, auth.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, err
	}

	// Accounts provisioned through single sign-on have no password.
	if u.Disabled || u.PasswordHash == "" {
		bcrypt.CompareHashAndPassword([]byte{}, []byte(password))

		return nil, auth.ErrAuthenticationFailed
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if err != nil {
		return nil, auth.ErrAuthenticationFailed
	}

	return newUserSubject(u), nil
}
