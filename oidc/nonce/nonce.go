// Package nonce implements utilities for working with OIDC nonce parameters.
package nonce

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

// Nonce binds an ID token to the authorization request it was issued for.
type Nonce string

// Generate generates a new random OIDC nonce parameter of an appropriate size.
func Generate() (Nonce, error) { return generate(rand.Reader) }

func generate(rand io.Reader) (Nonce, error) {
	var buf [32]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return "", fmt.Errorf("could not generate random nonce: %w", err)
	}

	return Nonce(hex.EncodeToString(buf[:])), nil
}

// String returns the string encoding of this nonce value.
func (n Nonce) String() string {
	return string(n)
}

// Param returns the OAuth2 auth code parameter for sending the nonce during the authorization request.
func (n Nonce) Param() oauth2.AuthCodeOption {
	return oauth2.SetAuthURLParam("nonce", string(n))
}

// Validate compares the nonce claim of an ID token against this one in constant time.
func (n Nonce) Validate(returnedNonce string) error {
	if subtle.ConstantTimeCompare([]byte(returnedNonce), []byte(n)) != 1 {
		return InvalidNonceError{Expected: n, Got: Nonce(returnedNonce)}
	}

	return nil
}

// InvalidNonceError is returned by Validate when the observed nonce is invalid.
type InvalidNonceError struct {
	Expected Nonce
	Got      Nonce
}

func (e InvalidNonceError) Error() string {
	return fmt.Sprintf("invalid nonce (expected %q, got %q)", string(e.Expected), string(e.Got))
}
