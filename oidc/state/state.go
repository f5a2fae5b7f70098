// Package state implements utilities for working with OAuth2 state parameters.
package state

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

// State is a single-use CSRF token binding an authorization redirect to its callback.
type State string

// Generate generates a new random state parameter of an appropriate size.
func Generate() (State, error) { return generate(rand.Reader) }

func generate(rand io.Reader) (State, error) {
	var buf [32]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return "", fmt.Errorf("could not generate random state: %w", err)
	}

	return State(hex.EncodeToString(buf[:])), nil
}

// String returns the string encoding of this state value.
func (s State) String() string {
	return string(s)
}

// Param returns the OAuth2 auth code parameter for sending the state during the authorization request.
func (s State) Param() oauth2.AuthCodeOption {
	return oauth2.SetAuthURLParam("state", string(s))
}

// Validate compares the state returned on the callback against this one in constant time.
func (s State) Validate(returnedState string) error {
	if subtle.ConstantTimeCompare([]byte(returnedState), []byte(s)) != 1 {
		return InvalidStateError{Expected: s, Got: State(returnedState)}
	}

	return nil
}

// InvalidStateError is returned by Validate when the returned state is invalid.
type InvalidStateError struct {
	Expected State
	Got      State
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state (expected %q, got %q)", string(e.Expected), string(e.Got))
}
