package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/libtrust"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"

	"github.com/portside-registry/auth/auth"
)

// DefaultRefreshTokenExpiration is the expiration of issued refresh tokens when none is configured.
const DefaultRefreshTokenExpiration = 7 * 24 * time.Hour

// RefreshTokenIssuer issues refresh tokens.
//
// A refresh token is signed with the same key as an access token,
// but it carries no access claim: it grants nothing by itself.
type RefreshTokenIssuer struct {
	issuer     string
	signingKey libtrust.PrivateKey
	expiration time.Duration

	clock       Clock
	idGenerator IDGenerator
}

// NewRefreshTokenIssuer returns a new RefreshTokenIssuer.
func NewRefreshTokenIssuer(issuer string, signingKey libtrust.PrivateKey, expiration time.Duration, opts ...RefreshTokenIssuerOption) RefreshTokenIssuer {
	i := RefreshTokenIssuer{
		issuer:     issuer,
		signingKey: signingKey,
		expiration: expiration,
	}

	for _, opt := range opts {
		opt.applyRefreshTokenIssuer(&i)
	}

	if i.clock == nil {
		i.clock = clockwork.NewRealClock()
	}

	if i.idGenerator == nil {
		i.idGenerator = uuidIDGenerator{}
	}

	return i
}

// IssueRefreshToken implements the auth.RefreshTokenIssuer interface.
func (i RefreshTokenIssuer) IssueRefreshToken(_ context.Context, service string, subject auth.Subject) (string, error) {
	alg, err := detectSigningMethod(i.signingKey)
	if err != nil {
		return "", err
	}

	id, err := i.idGenerator.GenerateID()
	if err != nil {
		return "", err
	}

	expiration := i.expiration
	if expiration == 0 {
		expiration = DefaultRefreshTokenExpiration
	}

	now := i.clock.Now()

	claims := jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   subject.ID(),
		Audience:  []string{service},
		ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        id,
	}

	token := jwt.NewWithClaims(alg, claims)

	return token.SignedString(i.signingKey.CryptoPrivateKey())
}

// RefreshTokenVerifier verifies refresh tokens issued by a RefreshTokenIssuer.
type RefreshTokenVerifier struct {
	issuer    string
	verifyKey libtrust.PublicKey

	clock Clock
}

// NewRefreshTokenVerifier returns a new RefreshTokenVerifier.
func NewRefreshTokenVerifier(issuer string, verifyKey libtrust.PublicKey, opts ...RefreshTokenVerifierOption) RefreshTokenVerifier {
	v := RefreshTokenVerifier{
		issuer:    issuer,
		verifyKey: verifyKey,
	}

	for _, opt := range opts {
		opt.applyRefreshTokenVerifier(&v)
	}

	if v.clock == nil {
		v.clock = clockwork.NewRealClock()
	}

	return v
}

// VerifyRefreshToken implements the auth.RefreshTokenVerifier interface.
func (v RefreshTokenVerifier) VerifyRefreshToken(_ context.Context, service string, refreshToken string) (string, error) {
	claims, err := verifyToken(refreshToken, v.verifyKey, v.issuer, service, v.clock)
	if err != nil {
		return "", err
	}

	// An access token must never pass as a refresh token.
	if claims.Access != nil {
		return "", fmt.Errorf("%w: unexpected access claim", auth.ErrInvalidToken)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", auth.ErrInvalidToken)
	}

	return claims.Subject, nil
}
