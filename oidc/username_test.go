package oidc

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveUsername(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":                "a1b2c3d4",
		"email":              "Alice.Smith@Example.COM",
		"preferred_username": "Alice Smith",
		"upn":                "alice/admin",
		"emoji":              "🐙🐙🐙",
	}

	testCases := []struct {
		name     string
		claim    string
		expected string
	}{
		{
			name:     "Subject",
			claim:    "sub",
			expected: "a1b2c3d4",
		},
		{
			name:  "EmailLocalPart",
			claim: "email",
			// The domain is dropped, the rest is lower cased and sanitized.
			expected: "alicesmith",
		},
		{
			name:     "ArbitraryClaim",
			claim:    "preferred_username",
			expected: "alicesmith",
		},
		{
			name:     "InvalidRunesDropped",
			claim:    "upn",
			expected: "aliceadmin",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			username, err := DeriveUsername(claims, testCase.claim)
			require.NoError(t, err)

			assert.Equal(t, testCase.expected, username)
		})
	}
}

func TestDeriveUsername_Error(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   "a1b2c3d4",
		"emoji": "🐙🐙🐙",
		"count": 42,
	}

	testCases := []struct {
		name  string
		claim string
	}{
		{
			name:  "MissingClaim",
			claim: "preferred_username",
		},
		{
			name: "NoAcceptableRunes",
			// Sanitizing leaves nothing, which must not become an empty username.
			claim: "emoji",
		},
		{
			name:  "NotAString",
			claim: "count",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			_, err := DeriveUsername(claims, testCase.claim)
			require.Error(t, err)
		})
	}
}
