package auth

import (
	"context"
	"errors"

	"github.com/sagikazarmark/go-option"
)

// ErrUnauthorized is returned when a client did not provide any credentials
// and the authorization server does not support anonymous access.
var ErrUnauthorized = errors.New("unauthorized")

// Authorizer authorizes an access request to a list of resources (scopes) and returns the list of granted scopes.
//
// The granted scopes are always a subset of the requested ones:
// an Authorizer may narrow or drop requested entries, but never add to them.
type Authorizer interface {
	Authorize(ctx context.Context, subject option.Option[Subject], requestedScopes []Scope) ([]Scope, error)
}
