// Package pkce implements the basic options required for RFC 7636: Proof Key for Code Exchange (PKCE).
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

// Code is a PKCE code verifier.
type Code string

// Generate generates a new random PKCE code.
func Generate() (Code, error) { return generate(rand.Reader) }

func generate(rand io.Reader) (Code, error) {
	var buf [32]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return "", fmt.Errorf("could not generate PKCE code: %w", err)
	}

	return Code(hex.EncodeToString(buf[:])), nil
}

// Challenge returns the OAuth2 auth code parameter for sending the PKCE code challenge
// during the authorization request.
func (p Code) Challenge() oauth2.AuthCodeOption {
	b := sha256.Sum256([]byte(p))

	return oauth2.SetAuthURLParam("code_challenge", base64.RawURLEncoding.EncodeToString(b[:]))
}

// Method returns the OAuth2 auth code parameter for sending the PKCE code challenge method.
//
// Only the S256 method is supported: the plain method would reveal the verifier in the authorization request.
func (p Code) Method() oauth2.AuthCodeOption {
	return oauth2.SetAuthURLParam("code_challenge_method", "S256")
}

// Verifier returns the OAuth2 auth code parameter for sending the PKCE code verifier
// during the code exchange.
func (p Code) Verifier() oauth2.AuthCodeOption {
	return oauth2.SetAuthURLParam("code_verifier", string(p))
}
