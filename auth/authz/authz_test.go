package authz

import (
	"context"
	"testing"

	"github.com/sagikazarmark/go-option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portside-registry/auth/auth"
)

type subjectStub struct {
	id         string
	attributes map[string]string
}

func (s subjectStub) ID() string {
	return s.id
}

func (s subjectStub) Attribute(key string) (string, bool) {
	v, ok := s.attributes[key]

	return v, ok
}

func (s subjectStub) Attributes() map[string]string {
	return s.attributes
}

type repositoryAuthorizerStub struct {
	repositories map[string]bool
}

func (a repositoryAuthorizerStub) Authorize(_ context.Context, name string, _ option.Option[auth.Subject], actions []string) ([]string, error) {
	if !a.repositories[name] {
		return []string{}, nil
	}

	return actions, nil
}

func TestDefaultAuthorizer(t *testing.T) {
	subject := option.Some[auth.Subject](subjectStub{id: "user"})

	testCases := []struct {
		subject        option.Option[auth.Subject]
		scopes         []auth.Scope
		expectedScopes []auth.Scope
	}{
		{
			subject: subject,
			scopes: []auth.Scope{
				{
					Resource: auth.Resource{
						Type: "registry",
						Name: "catalog",
					},
					Actions: []string{"search"},
				},
			},
			expectedScopes: []auth.Scope{
				{
					Resource: auth.Resource{
						Type: "registry",
						Name: "catalog",
					},
					Actions: []string{"search"},
				},
			},
		},
		{
			subject: subject,
			scopes: []auth.Scope{
				{
					Resource: auth.Resource{
						Type: "repository",
						Name: "user/repository",
					},
					Actions: []string{"push", "pull"},
				},
			},
			expectedScopes: []auth.Scope{
				{
					Resource: auth.Resource{
						Type: "repository",
						Name: "user/repository",
					},
					Actions: []string{"push", "pull"},
				},
			},
		},
		{
			subject: subject,
			scopes: []auth.Scope{
				{
					Resource: auth.Resource{
						Type: "repository",
						Name: "someoneelse/repository",
					},
					Actions: []string{"pull"},
				},
			},
			expectedScopes: []auth.Scope{},
		},
		{
			subject: subject,
			scopes: []auth.Scope{
				{
					Resource: auth.Resource{
						Type: "registry",
						Name: "snapshots",
					},
					Actions: []string{"*"},
				},
			},
			expectedScopes: []auth.Scope{},
		},
		{
			subject: subject,
			scopes: []auth.Scope{
				{
					Resource: auth.Resource{
						Type: "conveyorbelt",
						Name: "depth/12",
					},
					Actions: []string{"pull"},
				},
			},
			expectedScopes: []auth.Scope{},
		},
	}

	authorizer := NewDefaultAuthorizer(
		repositoryAuthorizerStub{
			repositories: map[string]bool{
				"user/repository": true,
			},
		},
		false,
	)

	for _, testCase := range testCases {
		testCase := testCase

		t.Run("", func(t *testing.T) {
			grantedScopes, err := authorizer.Authorize(context.Background(), testCase.subject, testCase.scopes)
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedScopes, grantedScopes)
		})
	}
}

func TestDefaultAuthorizer_Anonymous(t *testing.T) {
	scopes := []auth.Scope{
		{
			Resource: auth.Resource{
				Type: "registry",
				Name: "catalog",
			},
			Actions: []string{"*"},
		},
		{
			Resource: auth.Resource{
				Type: "repository",
				Name: "user/repository",
			},
			Actions: []string{"pull"},
		},
	}

	t.Run("Denied", func(t *testing.T) {
		authorizer := NewDefaultAuthorizer(NewNamespaceRepositoryAuthorizer(), false)

		_, err := authorizer.Authorize(context.Background(), option.None[auth.Subject](), scopes)

		assert.Equal(t, auth.ErrUnauthorized, err)
	})

	t.Run("CatalogOnly", func(t *testing.T) {
		authorizer := NewDefaultAuthorizer(NewNamespaceRepositoryAuthorizer(), true)

		grantedScopes, err := authorizer.Authorize(context.Background(), option.None[auth.Subject](), scopes)
		require.NoError(t, err)

		expectedScopes := []auth.Scope{
			{
				Resource: auth.Resource{
					Type: "registry",
					Name: "catalog",
				},
				Actions: []string{"*"},
			},
		}

		assert.Equal(t, expectedScopes, grantedScopes)
	})
}
