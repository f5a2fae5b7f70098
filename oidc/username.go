package oidc

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// DeriveUsername derives the local username for a federated login from the
// named claim. The "email" claim contributes its local part only (the part
// before the @). The value is lower cased and stripped to [a-z0-9_-].
//
// A missing claim or a value with no acceptable runes left is an error:
// a federated login never falls back to a default username.
func DeriveUsername(claims jwt.MapClaims, claim string) (string, error) {
	value, err := stringClaim(claims, claim)
	if err != nil {
		return "", err
	}

	if claim == "email" {
		value, _, _ = strings.Cut(value, "@")
	}

	username := sanitizeUsername(value)
	if username == "" {
		return "", fmt.Errorf("%q claim value %q yields an empty username", claim, value)
	}

	return username, nil
}

func sanitizeUsername(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return -1
		}
	}, strings.ToLower(value))
}
