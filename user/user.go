// Package user provides the credential and identity model of the registry console:
// local users, their personal access tokens and their federated identity links.
package user

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// User is a local account of the registry console.
type User struct {
	ID       string
	Username string
	Email    string

	// PasswordHash is a bcrypt hash.
	// It is empty for accounts provisioned through single sign-on:
	// such accounts cannot authenticate with a password.
	PasswordHash string

	Admin    bool
	Disabled bool

	CreatedAt time.Time
}

// AccessToken is a personal access token of a User.
//
// The token secret itself is never stored: only a SHA-256 digest of it.
type AccessToken struct {
	ID     string
	UserID string
	Name   string

	// Digest is the hex encoded SHA-256 digest of the token secret.
	Digest string

	// Permissions is the subset of {pull, push, delete} the token is limited to.
	Permissions []string

	// ExpiresAt is the expiry of the token. The zero value means the token never expires.
	ExpiresAt time.Time

	CreatedAt time.Time
}

// Expired tells whether the token is expired at the given time.
func (t AccessToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !t.ExpiresAt.After(now)
}

// Identity is a federated identity link: the association between a local User
// and the stable subject identifier asserted by an identity provider.
//
// There is at most one Identity per (provider, subject) pair.
// Email and DisplayName are display metadata cached from the provider
// and are refreshed on subsequent logins.
type Identity struct {
	ID       string
	Provider string
	Subject  string
	UserID   string

	Email       string
	DisplayName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SecretPrefix marks personal access token secrets,
// so they can be told apart from passwords sent in the same credential field.
const SecretPrefix = "pat_"

const secretBytes = 32

// SecretLength is the length of a personal access token secret, prefix included.
const SecretLength = len(SecretPrefix) + 43 // 32 bytes base64 encoded without padding

// GenerateSecret returns a new personal access token secret.
func GenerateSecret() (string, error) {
	randomBytes := make([]byte, secretBytes)
	_, err := io.ReadFull(rand.Reader, randomBytes)
	if err != nil {
		return "", fmt.Errorf("generating access token secret: %w", err)
	}

	return SecretPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// IsSecret tells whether a credential looks like a personal access token secret.
func IsSecret(secret string) bool {
	return len(secret) == SecretLength && strings.HasPrefix(secret, SecretPrefix)
}

// DigestSecret returns the hex encoded SHA-256 digest of a token secret.
func DigestSecret(secret string) string {
	digest := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(digest[:])
}

// VerifySecret compares a token secret against a stored digest in constant time.
func VerifySecret(secret string, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(DigestSecret(secret)), []byte(digest)) == 1
}
