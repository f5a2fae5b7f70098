package authz

import (
	"context"
	"strings"

	"github.com/sagikazarmark/go-option"

	"github.com/portside-registry/auth/auth"
)

// NamespaceRepositoryAuthorizer implements a namespace-ownership policy:
// a subject owns the namespace matching its own name and nothing else.
//
// Rules (in order):
//
//   - administrators are granted all requested actions
//   - repositories without a namespace are reserved for administrators
//   - a namespace equal to the subject's name (compared case-insensitively) grants all requested actions
//   - everything else is denied
//
// Denial is always complete: actions are granted in full or not at all.
type NamespaceRepositoryAuthorizer struct{}

// NewNamespaceRepositoryAuthorizer returns a new NamespaceRepositoryAuthorizer.
func NewNamespaceRepositoryAuthorizer() NamespaceRepositoryAuthorizer {
	return NamespaceRepositoryAuthorizer{}
}

func (a NamespaceRepositoryAuthorizer) Authorize(_ context.Context, name string, optionalSubject option.Option[auth.Subject], requestedActions []string) ([]string, error) {
	// Anonymous subjects own no namespace.
	if option.IsNone[auth.Subject](optionalSubject) {
		return []string{}, nil
	}

	subject := option.Unwrap[auth.Subject](optionalSubject)

	if auth.IsSubjectAdmin(subject) {
		return requestedActions, nil
	}

	namespace, _, found := strings.Cut(name, "/")
	if !found {
		// Top-level repositories are reserved for administrators.
		return []string{}, nil
	}

	if !strings.EqualFold(namespace, auth.GetSubjectName(subject)) {
		return []string{}, nil
	}

	return requestedActions, nil
}
