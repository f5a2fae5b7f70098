package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/docker/libtrust"
	"github.com/go-jose/go-jose/v4"
	"github.com/gorilla/schema"
	"go.uber.org/zap"
)

// Set a Decoder instance as a package global, because it caches
// meta-data about structs, and an instance can be shared safely.
var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()

	// Clients send all kinds of extra parameters, they are not an error.
	d.IgnoreUnknownKeys(true)

	return d
}

// TokenServer implements the HTTP interface of the [Docker Registry v2 authentication] specification.
//
// [Docker Registry v2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/index.md
type TokenServer struct {
	Service TokenService

	// SigningKeys are the public halves of the token signing keys,
	// served on the key discovery endpoint.
	SigningKeys []libtrust.PublicKey

	Logger *zap.Logger
}

func (s TokenServer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}

	return s.Logger
}

// TokenHandler implements the [Docker Registry v2 authentication] specification.
//
// [Docker Registry v2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
func (s TokenServer) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var tokenRequest TokenRequest

	err := decoder.Decode(&tokenRequest, r.URL.Query())
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}

	// Malformed scopes are dropped: an empty scope list requests authentication only.
	tokenRequest.Scopes = ParseScopes(r.URL.Query()["scope"])

	username, password, ok := r.BasicAuth()
	tokenRequest.Username = username
	tokenRequest.Password = password

	if !ok {
		tokenRequest.RefreshToken = bearerToken(r)
	}

	tokenRequest.Anonymous = !ok && tokenRequest.RefreshToken == ""

	response, err := s.Service.TokenHandler(r.Context(), tokenRequest)
	if err != nil {
		s.handleTokenError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, response)
}

// OAuth2Handler implements the [Docker Registry v2 OAuth2 authentication] specification.
//
// [Docker Registry v2 OAuth2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/oauth.md
func (s TokenServer) OAuth2Handler(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "invalid form data"})

		return
	}

	var tokenRequest OAuth2Request

	err = decoder.Decode(&tokenRequest, r.PostForm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "invalid form data"})

		return
	}

	tokenRequest.Scopes = ParseScopes(r.PostForm["scope"])

	response, err := s.Service.OAuth2Handler(r.Context(), tokenRequest)
	if err != nil {
		s.handleOAuth2Error(w, err)

		return
	}

	writeJSON(w, http.StatusOK, response)
}

// KeyHandler serves the public signing keys as a JSON Web Key Set.
//
// A relying registry fetches the keys from here to verify tokens without sharing state with the issuer.
// Signing keys rotate rarely, so the response allows caching and background revalidation.
func (s TokenServer) KeyHandler(w http.ResponseWriter, _ *http.Request) {
	keySet := jose.JSONWebKeySet{
		Keys: make([]jose.JSONWebKey, 0, len(s.SigningKeys)),
	}

	for _, key := range s.SigningKeys {
		keySet.Keys = append(keySet.Keys, jose.JSONWebKey{
			Key:   key.CryptoPublicKey(),
			KeyID: key.KeyID(),
			Use:   "sig",
		})
	}

	w.Header().Set("Cache-Control", "public, max-age=900, stale-while-revalidate=300")

	writeJSON(w, http.StatusOK, keySet)
}

// bearerToken extracts the token of a Bearer Authorization header (if any).
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "

	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}

	return ""
}

func (s TokenServer) handleTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAuthenticationFailed), errors.Is(err, ErrUnauthorized):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	case errors.Is(err, ErrMissingService):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger().Error("token request failed", zap.Error(err))

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s TokenServer) handleOAuth2Error(w http.ResponseWriter, err error) {
	var oauth2Err OAuth2Error

	switch {
	case errors.Is(err, ErrAuthenticationFailed), errors.Is(err, ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, OAuth2Error{Code: OAuth2ErrorInvalidGrant, Description: "invalid credentials"})
	case errors.As(err, &oauth2Err):
		writeJSON(w, http.StatusBadRequest, oauth2Err)
	default:
		s.logger().Error("token request failed", zap.Error(err))

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(body)
}
