package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/docker/libtrust"
	"github.com/golang-jwt/jwt/v4"

	"github.com/portside-registry/auth/user"
)

// sessionCookie is the name of the cookie carrying the console session token.
const sessionCookie = "portside_session"

// sessionExpiration bounds how long a browser session stays valid.
const sessionExpiration = 12 * time.Hour

// cookieSessionStarter establishes browser sessions as signed JWT cookies.
//
// The cookie only asserts the account identity towards the console:
// it grants no registry access and is verified with the token signing key.
type cookieSessionStarter struct {
	issuer     string
	signingKey libtrust.PrivateKey
}

// StartSession implements the oidc.SessionStarter interface.
func (s cookieSessionStarter) StartSession(w http.ResponseWriter, r *http.Request, account user.User) error {
	method, err := sessionSigningMethod(s.signingKey)
	if err != nil {
		return err
	}

	now := time.Now()

	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   account.ID,
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionExpiration)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = s.signingKey.KeyID()

	signedToken, err := token.SignedString(s.signingKey.CryptoPrivateKey())
	if err != nil {
		return fmt.Errorf("signing session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    signedToken,
		Path:     "/",
		Expires:  now.Add(sessionExpiration),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func sessionSigningMethod(key interface{ KeyType() string }) (jwt.SigningMethod, error) {
	switch keyType := key.KeyType(); keyType {
	case "RSA":
		return jwt.SigningMethodRS256, nil
	case "EC":
		return jwt.SigningMethodES256, nil
	default:
		return nil, fmt.Errorf("unsupported signing key type %q", keyType)
	}
}
