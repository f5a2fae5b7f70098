package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docker/libtrust"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"
	"github.com/sagikazarmark/go-option"

	"github.com/portside-registry/auth/auth"
)

// DefaultAccessTokenExpiration is the expiration of issued access tokens when none is configured.
const DefaultAccessTokenExpiration = 5 * time.Minute

// anonymousSubject is the subject claim of tokens issued for anonymous access.
// The subject claim is never empty.
const anonymousSubject = "anonymous"

// AccessTokenIssuer issues access tokens that a client can present to a registry.
type AccessTokenIssuer struct {
	issuer     string
	signingKey libtrust.PrivateKey
	expiration time.Duration

	clock       Clock
	idGenerator IDGenerator
}

// NewAccessTokenIssuer returns a new AccessTokenIssuer.
func NewAccessTokenIssuer(issuer string, signingKey libtrust.PrivateKey, expiration time.Duration, opts ...AccessTokenIssuerOption) AccessTokenIssuer {
	i := AccessTokenIssuer{
		issuer:     issuer,
		signingKey: signingKey,
		expiration: expiration,
	}

	for _, opt := range opts {
		opt.applyAccessTokenIssuer(&i)
	}

	if i.clock == nil {
		i.clock = clockwork.NewRealClock()
	}

	if i.idGenerator == nil {
		i.idGenerator = uuidIDGenerator{}
	}

	return i
}

// IssueAccessToken implements the auth.AccessTokenIssuer interface.
func (i AccessTokenIssuer) IssueAccessToken(_ context.Context, service string, subject option.Option[auth.Subject], grantedScopes []auth.Scope) (auth.AccessToken, error) {
	alg, err := detectSigningMethod(i.signingKey)
	if err != nil {
		return auth.AccessToken{}, err
	}

	id, err := i.idGenerator.GenerateID()
	if err != nil {
		return auth.AccessToken{}, err
	}

	expiration := i.expiration
	if expiration == 0 {
		expiration = DefaultAccessTokenExpiration
	}

	if grantedScopes == nil {
		grantedScopes = []auth.Scope{}
	}

	now := i.clock.Now()

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   option.MapOr[auth.Subject](subject, anonymousSubject, func(s auth.Subject) string { return s.ID() }),
			Audience:  []string{service},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        id,
		},
		Access: grantedScopes,
	}

	token := jwt.NewWithClaims(alg, claims)

	signedToken, err := signToken(token, i.signingKey)
	if err != nil {
		return auth.AccessToken{}, err
	}

	return auth.AccessToken{
		Payload:   signedToken,
		ExpiresIn: expiration,
		IssuedAt:  now,
	}, nil
}

// signToken signs a token with a key hint in the header,
// so a registry can verify the signature without sharing state with the issuer.
func signToken(token *jwt.Token, signingKey libtrust.PrivateKey) (string, error) {
	token.Header["kid"] = signingKey.KeyID()

	if x5c := signingKey.GetExtendedField("x5c"); x5c != nil {
		token.Header["x5c"] = x5c
	} else {
		jwkMessage, err := signingKey.PublicKey().MarshalJSON()
		if err != nil {
			return "", fmt.Errorf("embedding signing key: %w", err)
		}

		token.Header["jwk"] = json.RawMessage(jwkMessage)
	}

	return token.SignedString(signingKey.CryptoPrivateKey())
}

// AccessTokenClaims is the decoded claim set of a verified access token.
type AccessTokenClaims struct {
	// Subject is the name of the subject the token was issued to ("anonymous" for anonymous access).
	Subject string

	// Access is the list of granted scopes. It may be empty, but it is never nil.
	Access []auth.Scope
}

// AccessTokenVerifier verifies access tokens issued by an AccessTokenIssuer.
//
// It only needs the public half of the signing key,
// so it can run on the resource server side as well.
type AccessTokenVerifier struct {
	issuer    string
	verifyKey libtrust.PublicKey

	clock Clock
}

// NewAccessTokenVerifier returns a new AccessTokenVerifier.
func NewAccessTokenVerifier(issuer string, verifyKey libtrust.PublicKey, opts ...AccessTokenVerifierOption) AccessTokenVerifier {
	v := AccessTokenVerifier{
		issuer:    issuer,
		verifyKey: verifyKey,
	}

	for _, opt := range opts {
		opt.applyAccessTokenVerifier(&v)
	}

	if v.clock == nil {
		v.clock = clockwork.NewRealClock()
	}

	return v
}

// VerifyAccessToken verifies the signature and the claims of an access token
// and returns the decoded claim set.
//
// It returns an error wrapping auth.ErrInvalidToken when verification fails.
func (v AccessTokenVerifier) VerifyAccessToken(_ context.Context, service string, rawToken string) (AccessTokenClaims, error) {
	claims, err := verifyToken(rawToken, v.verifyKey, v.issuer, service, v.clock)
	if err != nil {
		return AccessTokenClaims{}, err
	}

	// A refresh token must never pass as an access token.
	if claims.Access == nil {
		return AccessTokenClaims{}, fmt.Errorf("%w: missing access claim", auth.ErrInvalidToken)
	}

	return AccessTokenClaims{
		Subject: claims.Subject,
		Access:  claims.Access,
	}, nil
}
