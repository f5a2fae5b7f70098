package oidc

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/portside-registry/auth/oidc/nonce"
)

// supportedSigningMethods is the closed set of ID token signature algorithms,
// each mapped to its verification method. An algorithm outside this table
// fails before key lookup; there is no path for "none".
var supportedSigningMethods = map[string]jwt.SigningMethod{
	"RS256": jwt.SigningMethodRS256,
	"RS384": jwt.SigningMethodRS384,
	"RS512": jwt.SigningMethodRS512,
	"PS256": jwt.SigningMethodPS256,
	"PS384": jwt.SigningMethodPS384,
	"PS512": jwt.SigningMethodPS512,
	"ES256": jwt.SigningMethodES256,
	"ES384": jwt.SigningMethodES384,
	"ES512": jwt.SigningMethodES512,
}

// ecdsaCurves pins the key curve expected for each ECDSA algorithm.
var ecdsaCurves = map[string]elliptic.Curve{
	"ES256": elliptic.P256(),
	"ES384": elliptic.P384(),
	"ES512": elliptic.P521(),
}

func supportedAlgorithms() []string {
	algorithms := maps.Keys(supportedSigningMethods)
	slices.Sort(algorithms)

	return algorithms
}

// maxIssuedAtSkew is how far in the future an ID token's iat claim may lie
// before the token is rejected. Provider clocks are not perfectly in sync with ours.
const maxIssuedAtSkew = 5 * time.Minute

// IDTokenVerifier verifies ID tokens against the signing keys published by the provider.
type IDTokenVerifier struct {
	keySets *KeySetClient
	clock   clockwork.Clock
}

// NewIDTokenVerifier returns a new IDTokenVerifier fetching keys through the given client.
func NewIDTokenVerifier(keySets *KeySetClient, opts ...IDTokenVerifierOption) *IDTokenVerifier {
	v := &IDTokenVerifier{
		keySets: keySets,
		clock:   clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt.applyIDTokenVerifier(v)
	}

	return v
}

// VerifyIDToken verifies the signature and the claims of an ID token
// and returns the verified claim set.
//
// The token must be signed by one of the provider's published keys with an
// algorithm from the supported set, issued by the configured issuer (a single
// trailing slash of difference is tolerated), addressed to the client ID and
// valid at the current time. When expectedNonce is not empty, the token must
// carry the matching nonce claim.
func (v *IDTokenVerifier) VerifyIDToken(
	ctx context.Context,
	rawIDToken string,
	provider Provider,
	document Document,
	expectedNonce string,
) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(
		rawIDToken,
		claims,
		v.keyFunc(ctx, document.JWKSURI),
		jwt.WithValidMethods(supportedAlgorithms()),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing ID token: %w", err)
	}

	issuer, err := stringClaim(claims, "iss")
	if err != nil {
		return nil, err
	}

	if !sameIssuer(issuer, provider.Issuer) {
		return nil, fmt.Errorf("ID token issuer %q does not match %q", issuer, provider.Issuer)
	}

	if !claims.VerifyAudience(provider.ClientID, true) {
		return nil, errors.New("ID token audience does not contain the client ID")
	}

	now := v.clock.Now()

	if !claims.VerifyExpiresAt(now.Unix(), true) {
		return nil, errors.New("ID token is expired")
	}

	if !claims.VerifyIssuedAt(now.Add(maxIssuedAtSkew).Unix(), false) {
		return nil, errors.New("ID token is issued in the future")
	}

	if expectedNonce != "" {
		tokenNonce, err := stringClaim(claims, "nonce")
		if err != nil {
			return nil, err
		}

		err = nonce.Nonce(expectedNonce).Validate(tokenNonce)
		if err != nil {
			return nil, err
		}
	}

	return claims, nil
}

// keyFunc resolves the verification key for a token from the provider's key
// set, pinning ECDSA keys to the curve their algorithm mandates.
func (v *IDTokenVerifier) keyFunc(ctx context.Context, jwksURI string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		keySet, err := v.keySets.KeySet(ctx, jwksURI)
		if err != nil {
			return nil, err
		}

		kid, _ := token.Header["kid"].(string)

		key, err := selectKey(keySet, kid)
		if err != nil {
			return nil, err
		}

		if curve, ok := ecdsaCurves[token.Method.Alg()]; ok {
			ecdsaKey, ok := key.Key.(*ecdsa.PublicKey)
			if !ok || ecdsaKey.Curve != curve {
				return nil, fmt.Errorf("verification key does not match the %s curve", token.Method.Alg())
			}
		}

		return key.Key, nil
	}
}

// stringClaim returns the named claim, failing when it is absent or not a string.
func stringClaim(claims jwt.MapClaims, name string) (string, error) {
	value, ok := claims[name]
	if !ok {
		return "", fmt.Errorf("token has no %q claim", name)
	}

	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%q claim is not a string", name)
	}

	return s, nil
}
