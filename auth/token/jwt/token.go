// Package jwt issues and verifies tokens according to the [Token Authentication Specification] and [Token Authentication Implementation].
//
// [Token Authentication Specification]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
// [Token Authentication Implementation]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/jwt.md
package jwt

import (
	"fmt"
	"time"

	"github.com/docker/libtrust"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v4"

	"github.com/portside-registry/auth/auth"
)

// tokenClaims is the claim set of both access and refresh tokens.
//
// The two are told apart by the access claim:
// an access token always carries one (even if it grants nothing),
// a refresh token never does (it is issued from plain registered claims).
type tokenClaims struct {
	jwt.RegisteredClaims

	Access []auth.Scope `json:"access"`
}

// Clock provides the current time to token issuers and verifiers.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates a unique ID for every issued token.
type IDGenerator interface {
	GenerateID() (string, error)
}

type uuidIDGenerator struct{}

func (uuidIDGenerator) GenerateID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generating token ID: %w", err)
	}

	return id.String(), nil
}

func detectSigningMethod(key interface{ KeyType() string }) (jwt.SigningMethod, error) {
	switch keyType := key.KeyType(); keyType {
	case "RSA":
		return jwt.SigningMethodRS256, nil
	case "EC":
		return jwt.SigningMethodES256, nil
	default:
		return nil, fmt.Errorf("unsupported signing key type %q", keyType)
	}
}

// verifyToken runs the verification steps shared by access and refresh tokens:
// signature (with the accepted algorithm pinned to the key type), issuer, audience and validity window.
//
// Failures collapse into auth.ErrInvalidToken, the reason is only preserved for server-side logs.
func verifyToken(rawToken string, verifyKey libtrust.PublicKey, issuer string, service string, clock Clock) (tokenClaims, error) {
	alg, err := detectSigningMethod(verifyKey)
	if err != nil {
		return tokenClaims{}, err
	}

	var claims tokenClaims

	_, err = jwt.ParseWithClaims(
		rawToken,
		&claims,
		func(_ *jwt.Token) (interface{}, error) {
			return verifyKey.CryptoPublicKey(), nil
		},
		jwt.WithValidMethods([]string{alg.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return tokenClaims{}, fmt.Errorf("%w: %s", auth.ErrInvalidToken, err)
	}

	if !claims.VerifyIssuer(issuer, true) {
		return tokenClaims{}, fmt.Errorf("%w: invalid issuer", auth.ErrInvalidToken)
	}

	if !claims.VerifyAudience(service, true) {
		return tokenClaims{}, fmt.Errorf("%w: invalid audience", auth.ErrInvalidToken)
	}

	now := clock.Now()

	if !claims.VerifyExpiresAt(now, true) {
		return tokenClaims{}, fmt.Errorf("%w: token is expired", auth.ErrInvalidToken)
	}

	if !claims.VerifyNotBefore(now, false) {
		return tokenClaims{}, fmt.Errorf("%w: token is not valid yet", auth.ErrInvalidToken)
	}

	return claims, nil
}

// AccessTokenIssuerOption configures an AccessTokenIssuer.
type AccessTokenIssuerOption interface {
	applyAccessTokenIssuer(i *AccessTokenIssuer)
}

// RefreshTokenIssuerOption configures a RefreshTokenIssuer.
type RefreshTokenIssuerOption interface {
	applyRefreshTokenIssuer(i *RefreshTokenIssuer)
}

// AccessTokenVerifierOption configures an AccessTokenVerifier.
type AccessTokenVerifierOption interface {
	applyAccessTokenVerifier(v *AccessTokenVerifier)
}

// RefreshTokenVerifierOption configures a RefreshTokenVerifier.
type RefreshTokenVerifierOption interface {
	applyRefreshTokenVerifier(v *RefreshTokenVerifier)
}

// IssuerOption configures any token issuer.
type IssuerOption interface {
	AccessTokenIssuerOption
	RefreshTokenIssuerOption
}

// Option configures any token issuer or verifier.
type Option interface {
	IssuerOption
	AccessTokenVerifierOption
	RefreshTokenVerifierOption
}

// WithClock configures the clock in a token issuer or verifier.
//
// Useful for testing.
func WithClock(clock Clock) Option {
	return withClock{clock}
}

type withClock struct {
	clock Clock
}

func (o withClock) applyAccessTokenIssuer(i *AccessTokenIssuer) { i.clock = o.clock }

func (o withClock) applyRefreshTokenIssuer(i *RefreshTokenIssuer) { i.clock = o.clock }

func (o withClock) applyAccessTokenVerifier(v *AccessTokenVerifier) { v.clock = o.clock }

func (o withClock) applyRefreshTokenVerifier(v *RefreshTokenVerifier) { v.clock = o.clock }

// WithIDGenerator configures the token ID generator in a token issuer.
//
// Useful for testing.
func WithIDGenerator(idGenerator IDGenerator) IssuerOption {
	return withIDGenerator{idGenerator}
}

type withIDGenerator struct {
	idGenerator IDGenerator
}

func (o withIDGenerator) applyAccessTokenIssuer(i *AccessTokenIssuer) { i.idGenerator = o.idGenerator }

func (o withIDGenerator) applyRefreshTokenIssuer(i *RefreshTokenIssuer) { i.idGenerator = o.idGenerator }
