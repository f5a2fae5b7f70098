package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portside-registry/auth/auth"
)

func TestParseScope(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		testCases := []struct {
			scope    string
			expected auth.Scope
		}{
			{
				"repository:path/to/repo:pull,push",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "path/to/repo",
					},
					Actions: []string{"pull", "push"},
				},
			},
			{
				"repository:path/to/repo: pull , push ",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "path/to/repo",
					},
					Actions: []string{"pull", "push"},
				},
			},
			{
				"repository(class):path/to/repo:pull",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "class",
						Name:  "path/to/repo",
					},
					Actions: []string{"pull"},
				},
			},
			{
				"repository:registry.example.com:8080/path/to/repo:pull",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "registry.example.com:8080/path/to/repo",
					},
					Actions: []string{"pull"},
				},
			},
			{
				"registry:catalog:*",
				auth.Scope{
					Resource: auth.Resource{
						Type:  "registry",
						Class: "",
						Name:  "catalog",
					},
					Actions: []string{"*"},
				},
			},
			{
				"repository:path/to/repo:pull,push,pull", // duplicates are allowed for now
				auth.Scope{
					Resource: auth.Resource{
						Type:  "repository",
						Class: "",
						Name:  "path/to/repo",
					},
					Actions: []string{"pull", "push", "pull"},
				},
			},
		}

		for _, testCase := range testCases {
			testCase := testCase

			t.Run("", func(t *testing.T) {
				actual, err := auth.ParseScope(testCase.scope)
				require.NoError(t, err)

				assert.Equal(t, testCase.expected, actual)
			})
		}
	})

	t.Run("Error", func(t *testing.T) {
		testCases := []string{
			"repository : path/to/repo : pull , push ",
			"repository",
			"repository:path/to/repo",
			"",
		}

		for _, testCase := range testCases {
			testCase := testCase

			t.Run("", func(t *testing.T) {
				_, err := auth.ParseScope(testCase)
				require.Error(t, err)
			})
		}
	})
}

func TestParseScopes(t *testing.T) {
	scopes := auth.ParseScopes([]string{
		"repository:path/to/repo:pull,push registry:catalog:*",
		"malformed",
		"repository:other/repo:pull",
	})

	expected := auth.Scopes{
		{
			Resource: auth.Resource{
				Type: "repository",
				Name: "path/to/repo",
			},
			Actions: []string{"pull", "push"},
		},
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
				Name: "other/repo",
			},
			Actions: []string{"pull"},
		},
	}

	assert.Equal(t, expected, scopes)
}

func TestParseScopes_Empty(t *testing.T) {
	assert.Empty(t, auth.ParseScopes(nil))
	assert.Empty(t, auth.ParseScopes([]string{"repository", "noscope"}))
}

func TestScope_String(t *testing.T) {
	testCases := []struct {
		scope    auth.Scope
		expected string
	}{
		{
			auth.Scope{
				Resource: auth.Resource{
					Type:  "repository",
					Class: "",
					Name:  "path/to/repo",
				},
				Actions: []string{"pull", "push"},
			},
			"repository:path/to/repo:pull,push",
		},
		{
			auth.Scope{
				Resource: auth.Resource{
					Type:  "repository",
					Class: "class",
					Name:  "path/to/repo",
				},
				Actions: []string{"pull"},
			},
			"repository(class):path/to/repo:pull",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run("", func(t *testing.T) {
			actual := testCase.scope.String()

			assert.Equal(t, testCase.expected, actual)
		})
	}
}

func TestScopes_String(t *testing.T) {
	scopes := auth.Scopes{
		{
			Resource: auth.Resource{
				Type: "repository",
				Name: "path/to/repo",
			},
			Actions: []string{"pull", "push"},
		},
		{
			Resource: auth.Resource{
				Type: "registry",
				Name: "catalog",
			},
			Actions: []string{"*"},
		},
	}

	assert.Equal(t, "repository:path/to/repo:pull,push registry:catalog:*", scopes.String())
}
