package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sagikazarmark/go-option"
	"go.uber.org/zap"

	"github.com/portside-registry/auth/pkg/metrics"
)

// ErrMissingService is returned when a token request does not specify a service.
var ErrMissingService = errors.New("missing service value")

// TokenService issues tokens to registry clients.
type TokenService interface {
	// TokenHandler implements the [Docker Registry v2 authentication] specification.
	//
	// [Docker Registry v2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
	TokenHandler(ctx context.Context, r TokenRequest) (TokenResponse, error)

	// OAuth2Handler implements the [Docker Registry v2 OAuth2 authentication] specification.
	//
	// [Docker Registry v2 OAuth2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/oauth.md
	OAuth2Handler(ctx context.Context, r OAuth2Request) (OAuth2Response, error)
}

type TokenRequest struct {
	Service  string `schema:"service"`
	ClientID string `schema:"client_id"`
	Offline  bool   `schema:"offline_token"`
	Account  string `schema:"account"`

	Scopes Scopes `schema:"-"`

	Anonymous    bool   `schema:"-"`
	Username     string `schema:"-"`
	Password     string `schema:"-"`
	RefreshToken string `schema:"-"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	AccessToken  string `json:"access_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	IssuedAt     string `json:"issued_at,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type OAuth2Request struct {
	GrantType string `schema:"grant_type"`

	Service    string `schema:"service"`
	ClientID   string `schema:"client_id"`
	AccessType string `schema:"access_type"`

	Scopes Scopes `schema:"-"`

	Username     string `schema:"username"`
	Password     string `schema:"password"`
	RefreshToken string `schema:"refresh_token"`
}

type OAuth2Response struct {
	Token        string `json:"access_token"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	IssuedAt     string `json:"issued_at,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// OAuth2 error codes from [RFC 6749 Section 5.2].
//
// [RFC 6749 Section 5.2]: https://datatracker.ietf.org/doc/html/rfc6749#section-5.2
const (
	OAuth2ErrorInvalidRequest       = "invalid_request"
	OAuth2ErrorInvalidClient        = "invalid_client"
	OAuth2ErrorInvalidGrant         = "invalid_grant"
	OAuth2ErrorUnauthorizedClient   = "unauthorized_client"
	OAuth2ErrorUnsupportedGrantType = "unsupported_grant_type"
	OAuth2ErrorInvalidScope         = "invalid_scope"
)

// OAuth2Error is an error response of the [Docker Registry v2 OAuth2 authentication] protocol.
//
// [Docker Registry v2 OAuth2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/oauth.md
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Authenticator is a facade combining different type of authenticators.
type Authenticator struct {
	PasswordAuthenticator
	RefreshTokenAuthenticator
}

// TokenIssuer is a facade combining different type of token issuers.
type TokenIssuer struct {
	AccessTokenIssuer
	RefreshTokenIssuer
}

// TokenServiceImpl implements the [Docker Registry v2 authentication] specification.
//
// [Docker Registry v2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/index.md
type TokenServiceImpl struct {
	Authenticator Authenticator
	Authorizer    Authorizer
	TokenIssuer   TokenIssuer

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (s TokenServiceImpl) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}

	return s.Logger
}

// TokenHandler implements the [Docker Registry v2 authentication] specification.
//
// [Docker Registry v2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
func (s TokenServiceImpl) TokenHandler(ctx context.Context, r TokenRequest) (TokenResponse, error) {
	if r.Service == "" {
		return TokenResponse{}, ErrMissingService
	}

	subject := option.None[Subject]()

	switch {
	case r.RefreshToken != "":
		authenticated, err := s.Authenticator.AuthenticateRefreshToken(ctx, r.Service, r.RefreshToken)
		if err != nil {
			s.countAuthenticationFailure(err)

			return TokenResponse{}, err
		}

		subject = option.Some(authenticated)
	case !r.Anonymous:
		authenticated, err := s.Authenticator.AuthenticatePassword(ctx, r.Username, r.Password)
		if err != nil {
			s.countAuthenticationFailure(err)

			return TokenResponse{}, err
		}

		subject = option.Some(authenticated)
	}

	if err := checkAccount(r.Account, subject); err != nil {
		s.countAuthenticationFailure(err)

		return TokenResponse{}, err
	}

	grantedScopes, err := s.Authorizer.Authorize(ctx, subject, r.Scopes)
	if err != nil {
		return TokenResponse{}, err
	}

	token, err := s.TokenIssuer.IssueAccessToken(ctx, r.Service, subject, grantedScopes)
	if err != nil {
		return TokenResponse{}, err
	}

	s.Metrics.IncrementAccessTokensIssued("token")

	s.logger().Debug(
		"client authorized",
		zap.String("service", r.Service),
		zap.String("subject", option.MapOr[Subject](subject, "anonymous", GetSubjectName)),
	)

	response := TokenResponse{
		Token:       token.Payload,
		AccessToken: token.Payload,
		ExpiresIn:   int(token.ExpiresIn.Seconds()),
		IssuedAt:    token.IssuedAt.Format(time.RFC3339),
	}

	switch {
	case r.Offline && r.RefreshToken != "":
		// The presented refresh token remains valid: hand it back instead of issuing a new one.
		response.RefreshToken = r.RefreshToken
	case r.Offline:
		refreshToken, err := s.issueRefreshToken(ctx, r.Service, subject)
		if err != nil {
			return TokenResponse{}, err
		}

		response.RefreshToken = refreshToken
	}

	return response, nil
}

// OAuth2Handler implements the [Docker Registry v2 OAuth2 authentication] specification.
//
// [Docker Registry v2 OAuth2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/oauth.md
func (s TokenServiceImpl) OAuth2Handler(ctx context.Context, r OAuth2Request) (OAuth2Response, error) {
	if r.Service == "" {
		return OAuth2Response{}, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "missing service value"}
	}

	if r.ClientID == "" {
		return OAuth2Response{}, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "missing client_id value"}
	}

	switch r.AccessType {
	case "", "online", "offline":
	default:
		return OAuth2Response{}, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "unknown access_type value"}
	}

	subject := option.None[Subject]()

	switch r.GrantType {
	case "refresh_token":
		if r.RefreshToken == "" {
			return OAuth2Response{}, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "missing refresh_token value"}
		}

		authenticated, err := s.Authenticator.AuthenticateRefreshToken(ctx, r.Service, r.RefreshToken)
		if err != nil {
			s.countAuthenticationFailure(err)

			return OAuth2Response{}, err
		}

		subject = option.Some(authenticated)
	case "password":
		if r.Username == "" {
			return OAuth2Response{}, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "missing username value"}
		}

		if r.Password == "" {
			return OAuth2Response{}, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "missing password value"}
		}

		authenticated, err := s.Authenticator.AuthenticatePassword(ctx, r.Username, r.Password)
		if err != nil {
			s.countAuthenticationFailure(err)

			return OAuth2Response{}, err
		}

		subject = option.Some(authenticated)
	case "":
		return OAuth2Response{}, OAuth2Error{Code: OAuth2ErrorInvalidRequest, Description: "missing grant_type value"}
	default:
		return OAuth2Response{}, OAuth2Error{Code: OAuth2ErrorUnsupportedGrantType, Description: "unknown grant_type value"}
	}

	grantedScopes, err := s.Authorizer.Authorize(ctx, subject, r.Scopes)
	if err != nil {
		return OAuth2Response{}, err
	}

	token, err := s.TokenIssuer.IssueAccessToken(ctx, r.Service, subject, grantedScopes)
	if err != nil {
		return OAuth2Response{}, err
	}

	s.Metrics.IncrementAccessTokensIssued(r.GrantType)

	s.logger().Debug(
		"client authorized",
		zap.String("service", r.Service),
		zap.String("subject", option.MapOr[Subject](subject, "anonymous", GetSubjectName)),
	)

	response := OAuth2Response{
		Token:     token.Payload,
		Scope:     Scopes(grantedScopes).String(),
		ExpiresIn: int(token.ExpiresIn.Seconds()),
		IssuedAt:  token.IssuedAt.Format(time.RFC3339),
	}

	switch {
	case r.GrantType == "refresh_token":
		// The presented refresh token remains valid: hand it back instead of issuing a new one.
		response.RefreshToken = r.RefreshToken
	case r.AccessType == "offline":
		refreshToken, err := s.issueRefreshToken(ctx, r.Service, subject)
		if err != nil {
			return OAuth2Response{}, err
		}

		response.RefreshToken = refreshToken
	}

	return response, nil
}

// issueRefreshToken issues a refresh token when the subject is eligible for one.
//
// Anonymous subjects have no identity to refresh.
// Subjects authenticated with a personal access token do not receive a refresh token either:
// their access should not outlive the personal access token they presented.
func (s TokenServiceImpl) issueRefreshToken(ctx context.Context, service string, optionalSubject option.Option[Subject]) (string, error) {
	if option.IsNone[Subject](optionalSubject) {
		return "", nil
	}

	subject := option.Unwrap[Subject](optionalSubject)

	if subjectType, _ := subject.Attribute(SubjectType); subjectType == SubjectTypeAccessToken {
		return "", nil
	}

	refreshToken, err := s.TokenIssuer.IssueRefreshToken(ctx, service, subject)
	if err != nil {
		return "", err
	}

	s.Metrics.IncrementRefreshTokensIssued()

	return refreshToken, nil
}

// countAuthenticationFailure records rejected credentials.
//
// Infrastructure errors surfacing from an authenticator are not credential failures.
func (s TokenServiceImpl) countAuthenticationFailure(err error) {
	if errors.Is(err, ErrAuthenticationFailed) {
		s.Metrics.IncrementAuthenticationFailures()
	}
}

// checkAccount verifies that the account hint of a request (if any) matches the authenticated subject.
func checkAccount(account string, subject option.Option[Subject]) error {
	if account == "" {
		return nil
	}

	if option.IsNone[Subject](subject) {
		return ErrAuthenticationFailed
	}

	if GetSubjectName(option.Unwrap[Subject](subject)) != account {
		return ErrAuthenticationFailed
	}

	return nil
}
