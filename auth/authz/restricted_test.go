package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/sagikazarmark/go-option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portside-registry/auth/auth"
)

type authorizerStub struct {
	err error
}

func (a authorizerStub) Authorize(_ context.Context, _ option.Option[auth.Subject], requestedScopes []auth.Scope) ([]auth.Scope, error) {
	if a.err != nil {
		return nil, a.err
	}

	return requestedScopes, nil
}

func tokenSubject(permissions string) option.Option[auth.Subject] {
	return option.Some[auth.Subject](subjectStub{
		id: "user",
		attributes: map[string]string{
			auth.SubjectType:        auth.SubjectTypeAccessToken,
			auth.SubjectPermissions: permissions,
		},
	})
}

func TestPermissionRestrictedAuthorizer(t *testing.T) {
	repositoryScope := func(actions ...string) auth.Scope {
		return auth.Scope{
			Resource: auth.Resource{
				Type: "repository",
				Name: "user/repository",
			},
			Actions: actions,
		}
	}

	testCases := []struct {
		name           string
		subject        option.Option[auth.Subject]
		scopes         []auth.Scope
		expectedScopes []auth.Scope
	}{
		{
			name:           "UserUnrestricted",
			subject:        option.Some[auth.Subject](subjectStub{id: "user"}),
			scopes:         []auth.Scope{repositoryScope("push", "pull", "delete")},
			expectedScopes: []auth.Scope{repositoryScope("push", "pull", "delete")},
		},
		{
			name:           "AnonymousUnrestricted",
			subject:        option.None[auth.Subject](),
			scopes:         []auth.Scope{repositoryScope("pull")},
			expectedScopes: []auth.Scope{repositoryScope("pull")},
		},
		{
			name:           "Intersection",
			subject:        tokenSubject("pull"),
			scopes:         []auth.Scope{repositoryScope("push", "pull")},
			expectedScopes: []auth.Scope{repositoryScope("pull")},
		},
		{
			name:           "EmptyIntersection",
			subject:        tokenSubject("delete"),
			scopes:         []auth.Scope{repositoryScope("push", "pull")},
			expectedScopes: []auth.Scope{},
		},
		{
			name:           "WildcardRequiresAllPermissions",
			subject:        tokenSubject("pull,push"),
			scopes:         []auth.Scope{repositoryScope("*")},
			expectedScopes: []auth.Scope{},
		},
		{
			name:           "WildcardWithAllPermissions",
			subject:        tokenSubject("pull,push,delete"),
			scopes:         []auth.Scope{repositoryScope("*")},
			expectedScopes: []auth.Scope{repositoryScope("*")},
		},
		{
			name:           "NoPermissions",
			subject:        tokenSubject(""),
			scopes:         []auth.Scope{repositoryScope("pull")},
			expectedScopes: []auth.Scope{},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			authorizer := NewPermissionRestrictedAuthorizer(authorizerStub{})

			grantedScopes, err := authorizer.Authorize(context.Background(), testCase.subject, testCase.scopes)
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedScopes, grantedScopes)
		})
	}
}

func TestPermissionRestrictedAuthorizer_Error(t *testing.T) {
	expectedErr := errors.New("authorizer is down")

	authorizer := NewPermissionRestrictedAuthorizer(authorizerStub{err: expectedErr})

	_, err := authorizer.Authorize(context.Background(), tokenSubject("pull"), []auth.Scope{})

	assert.True(t, errors.Is(err, expectedErr))
}
