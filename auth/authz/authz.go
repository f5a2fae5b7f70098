// Package authz implements the authorization policies of the token service.
package authz

import (
	"context"

	"github.com/sagikazarmark/go-option"

	"github.com/portside-registry/auth/auth"
)

// DefaultAuthorizer implements a basic set of authorization rules
// and delegates authorization for repository resources.
//
// Registry catalog access is always granted in full:
// catalog listings are filtered downstream, not denied here.
// Access to everything else is denied.
type DefaultAuthorizer struct {
	repoAuthorizer RepositoryAuthorizer
	allowAnonymous bool
}

// RepositoryAuthorizer authorizes access requests to a specific repository.
type RepositoryAuthorizer interface {
	Authorize(ctx context.Context, name string, subject option.Option[auth.Subject], requestedActions []string) ([]string, error)
}

// NewDefaultAuthorizer returns a new DefaultAuthorizer.
func NewDefaultAuthorizer(repoAuthorizer RepositoryAuthorizer, allowAnonymous bool) DefaultAuthorizer {
	return DefaultAuthorizer{
		repoAuthorizer: repoAuthorizer,
		allowAnonymous: allowAnonymous,
	}
}

func (a DefaultAuthorizer) Authorize(ctx context.Context, subject option.Option[auth.Subject], requestedScopes []auth.Scope) ([]auth.Scope, error) {
	if !a.allowAnonymous && option.IsNone[auth.Subject](subject) {
		return nil, auth.ErrUnauthorized
	}

	// Let's be optimistic about the amount of granted scopes
	grantedScopes := make([]auth.Scope, 0, len(requestedScopes))

	for _, scope := range requestedScopes {
		if scope.Type == "repository" {
			grantedActions, err := a.repoAuthorizer.Authorize(ctx, scope.Name, subject, scope.Actions)
			if err != nil {
				return nil, err
			}

			// Don't add a scope with no actions
			if len(grantedActions) == 0 {
				continue
			}

			scope.Actions = grantedActions
		} else if scope.Type == "registry" {
			// TODO: tighten catalog access for multi-tenant deployments
			if scope.Name != "catalog" {
				continue
			}
		} else {
			continue
		}

		grantedScopes = append(grantedScopes, scope)
	}

	return grantedScopes, nil
}
