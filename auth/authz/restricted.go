package authz

import (
	"context"
	"strings"

	"github.com/sagikazarmark/go-option"

	"github.com/portside-registry/auth/auth"
)

// PermissionRestrictedAuthorizer restricts the scopes granted by another Authorizer
// to the permission set of the authenticating personal access token (if any).
// Subjects authenticated by other means pass through untouched.
//
// A wildcard action survives the restriction only when the token carries
// every permission the wildcard expands to (pull, push and delete).
// Scopes left without actions are dropped entirely.
type PermissionRestrictedAuthorizer struct {
	authorizer auth.Authorizer
}

// NewPermissionRestrictedAuthorizer returns a new PermissionRestrictedAuthorizer.
func NewPermissionRestrictedAuthorizer(authorizer auth.Authorizer) PermissionRestrictedAuthorizer {
	return PermissionRestrictedAuthorizer{
		authorizer: authorizer,
	}
}

func (a PermissionRestrictedAuthorizer) Authorize(ctx context.Context, subject option.Option[auth.Subject], requestedScopes []auth.Scope) ([]auth.Scope, error) {
	grantedScopes, err := a.authorizer.Authorize(ctx, subject, requestedScopes)
	if err != nil {
		return nil, err
	}

	permissions, restricted := tokenPermissions(subject)
	if !restricted {
		return grantedScopes, nil
	}

	restrictedScopes := make([]auth.Scope, 0, len(grantedScopes))

	for _, scope := range grantedScopes {
		actions := make([]string, 0, len(scope.Actions))

		for _, action := range scope.Actions {
			if action == "*" {
				if permissions["pull"] && permissions["push"] && permissions["delete"] {
					actions = append(actions, action)
				}

				continue
			}

			if permissions[action] {
				actions = append(actions, action)
			}
		}

		// Don't keep a scope with no actions
		if len(actions) == 0 {
			continue
		}

		scope.Actions = actions

		restrictedScopes = append(restrictedScopes, scope)
	}

	return restrictedScopes, nil
}

// tokenPermissions extracts the permission set of the authenticating personal access token.
// The second return value reports whether the subject is restricted at all.
func tokenPermissions(optionalSubject option.Option[auth.Subject]) (map[string]bool, bool) {
	if option.IsNone[auth.Subject](optionalSubject) {
		return nil, false
	}

	subject := option.Unwrap[auth.Subject](optionalSubject)

	if subjectType, _ := subject.Attribute(auth.SubjectType); subjectType != auth.SubjectTypeAccessToken {
		return nil, false
	}

	raw, _ := subject.Attribute(auth.SubjectPermissions)

	permissions := make(map[string]bool)

	for _, permission := range strings.Split(raw, ",") {
		permission = strings.TrimSpace(permission)
		if permission == "" {
			continue
		}

		permissions[permission] = true
	}

	return permissions, true
}
