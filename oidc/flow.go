package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/portside-registry/auth/oidc/nonce"
	"github.com/portside-registry/auth/oidc/pkce"
	"github.com/portside-registry/auth/oidc/state"
	"github.com/portside-registry/auth/oidc/statestore"
	"github.com/portside-registry/auth/user"
)

// AccountResolver resolves a federated login to a local account.
type AccountResolver interface {
	Resolve(ctx context.Context, login user.FederatedLogin) (user.User, error)
}

// CallbackRequest carries the parameters the identity provider redirects back with.
type CallbackRequest struct {
	Code  string `schema:"code"`
	State string `schema:"state"`

	// Error and ErrorDescription are set when the provider denied the
	// authorization request.
	Error            string `schema:"error"`
	ErrorDescription string `schema:"error_description"`
}

// LoginResult is the outcome of a completed federated login.
type LoginResult struct {
	User user.User

	// RedirectTarget is where the browser should land once the session is
	// established. Empty means the default landing page.
	RedirectTarget string
}

// LoginError is a failed login attempt.
//
// Message is safe to show on the login page.
// The wrapped error carries the detail and stays in the server logs.
type LoginError struct {
	Message string
	Err     error
}

func (e LoginError) Error() string {
	return e.Err.Error()
}

func (e LoginError) Unwrap() error {
	return e.Err
}

// Flow drives the OpenID Connect authorization code flow against the configured provider.
type Flow struct {
	// Provider is the upstream identity provider.
	// A nil Provider means single sign-on is not configured:
	// every flow entry point fails closed.
	Provider *Provider

	Discovery *DiscoveryClient
	Verifier  *IDTokenVerifier
	Logins    statestore.Store
	Accounts  AccountResolver

	// LoginTTL bounds how long an initiated login may take until the callback
	// arrives. Defaults to statestore.DefaultTTL.
	LoginTTL time.Duration

	// HTTPClient performs the authorization code exchange.
	// Defaults to a client bounded by DefaultTimeout.
	HTTPClient *http.Client

	Clock  clockwork.Clock
	Logger *zap.Logger
}

func (f *Flow) clock() clockwork.Clock {
	if f.Clock == nil {
		return clockwork.NewRealClock()
	}

	return f.Clock
}

func (f *Flow) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}

	return f.Logger
}

func (f *Flow) loginTTL() time.Duration {
	if f.LoginTTL == 0 {
		return statestore.DefaultTTL
	}

	return f.LoginTTL
}

func (f *Flow) httpClient() *http.Client {
	if f.HTTPClient == nil {
		return &http.Client{Timeout: DefaultTimeout}
	}

	return f.HTTPClient
}

// Authorize initiates a login: it persists the transient login state and
// returns the provider's authorization URL to redirect the browser to.
//
// redirectTarget is where the browser is sent after a completed login.
// Only site local targets are kept, anything else falls back to the default
// landing page. The target travels server side in the login state, it is
// never round-tripped through the provider.
func (f *Flow) Authorize(ctx context.Context, redirectTarget string) (string, error) {
	f.deleteExpiredLogins(ctx)

	if f.Provider == nil {
		return "", ErrProviderNotConfigured
	}

	document, err := f.Discovery.Document(ctx, f.Provider.Issuer)
	if err != nil {
		return "", err
	}

	loginState, err := state.Generate()
	if err != nil {
		return "", err
	}

	pkceCode, err := pkce.Generate()
	if err != nil {
		return "", err
	}

	loginNonce, err := nonce.Generate()
	if err != nil {
		return "", err
	}

	login := statestore.Login{
		State:        loginState.String(),
		CodeVerifier: string(pkceCode),
		Nonce:        loginNonce.String(),
		RedirectURI:  sanitizeRedirectTarget(redirectTarget),
		ExpiresAt:    f.clock().Now().Add(f.loginTTL()),
	}

	err = f.Logins.Save(ctx, login)
	if err != nil {
		return "", fmt.Errorf("saving login state: %w", err)
	}

	authCodeURL := f.Provider.oauth2Config(document).AuthCodeURL(
		loginState.String(),
		pkceCode.Challenge(),
		pkceCode.Method(),
		loginNonce.Param(),
	)

	return authCodeURL, nil
}

// Callback completes a login with the parameters the provider redirected back with.
//
// Failures carry a user presentable message as a LoginError.
func (f *Flow) Callback(ctx context.Context, callback CallbackRequest) (LoginResult, error) {
	if callback.Error != "" {
		return LoginResult{}, LoginError{
			Message: providerErrorMessage(callback),
			Err:     fmt.Errorf("%w: provider returned error %q", ErrUpstream, callback.Error),
		}
	}

	if callback.Code == "" || callback.State == "" {
		return LoginResult{}, LoginError{
			Message: "Missing authorization code or state.",
			Err:     errors.New("callback request without code or state"),
		}
	}

	if f.Provider == nil {
		return LoginResult{}, LoginError{
			Message: "Single sign-on is not configured.",
			Err:     ErrProviderNotConfigured,
		}
	}

	// Consuming deletes the login state: a replayed state value fails here.
	login, err := f.Logins.Consume(ctx, callback.State)
	if err != nil {
		return LoginResult{}, LoginError{
			Message: "Invalid or expired state.",
			Err:     fmt.Errorf("consuming login state: %w", err),
		}
	}

	document, err := f.Discovery.Document(ctx, f.Provider.Issuer)
	if err != nil {
		return LoginResult{}, LoginError{
			Message: upstreamErrorMessage,
			Err:     err,
		}
	}

	// The exchange runs on a timeout bounded client, never on http.DefaultClient.
	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, f.httpClient())

	token, err := f.Provider.oauth2Config(document).Exchange(
		exchangeCtx,
		callback.Code,
		pkce.Code(login.CodeVerifier).Verifier(),
	)
	if err != nil {
		return LoginResult{}, LoginError{
			Message: "The identity provider rejected the login.",
			Err:     fmt.Errorf("%w: exchanging authorization code: %v", ErrUpstream, err),
		}
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return LoginResult{}, LoginError{
			Message: "The identity provider returned no identity.",
			Err:     fmt.Errorf("%w: token response carries no id_token", ErrUpstream),
		}
	}

	claims, err := f.Verifier.VerifyIDToken(ctx, rawIDToken, *f.Provider, document, login.Nonce)
	if err != nil {
		message := "The identity provider returned an invalid token."
		if errors.Is(err, ErrUpstream) {
			message = upstreamErrorMessage
		}

		return LoginResult{}, LoginError{
			Message: message,
			Err:     fmt.Errorf("verifying ID token: %w", err),
		}
	}

	username, err := DeriveUsername(claims, f.Provider.usernameClaim())
	if err != nil {
		return LoginResult{}, LoginError{
			Message: "Could not derive a username from the identity provider claims.",
			Err:     fmt.Errorf("deriving username: %w", err),
		}
	}

	subject, err := stringClaim(claims, "sub")
	if err != nil {
		return LoginResult{}, LoginError{
			Message: "The identity provider returned an invalid token.",
			Err:     err,
		}
	}

	// Display metadata is best effort, these claims are optional.
	email, _ := stringClaim(claims, "email")
	displayName, _ := stringClaim(claims, "name")

	account, err := f.Accounts.Resolve(ctx, user.FederatedLogin{
		Provider:    f.Provider.Issuer,
		Subject:     subject,
		Username:    username,
		Email:       email,
		DisplayName: displayName,
	})
	if err != nil {
		return LoginResult{}, LoginError{
			Message: accountErrorMessage(err),
			Err:     fmt.Errorf("resolving account: %w", err),
		}
	}

	f.logger().Info(
		"federated login completed",
		zap.String("username", account.Username),
		zap.String("provider", f.Provider.Issuer),
	)

	return LoginResult{
		User:           account,
		RedirectTarget: login.RedirectURI,
	}, nil
}

// deleteExpiredLogins sweeps abandoned login state when the store supports it.
// Best effort: a failing sweep never blocks a login attempt.
func (f *Flow) deleteExpiredLogins(ctx context.Context) {
	sweeper, ok := f.Logins.(interface {
		DeleteExpired(ctx context.Context) error
	})
	if !ok {
		return
	}

	err := sweeper.DeleteExpired(ctx)
	if err != nil {
		f.logger().Warn("failed to delete expired login state", zap.Error(err))
	}
}

// sanitizeRedirectTarget keeps site local redirect targets only. Anything
// absolute or protocol relative could send a fresh login off site.
func sanitizeRedirectTarget(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return ""
	}

	return target
}

const upstreamErrorMessage = "The identity provider is unreachable. Try again later."

func providerErrorMessage(callback CallbackRequest) string {
	if callback.ErrorDescription != "" {
		return "The identity provider reported an error: " + callback.ErrorDescription
	}

	return "The identity provider reported an error: " + callback.Error
}

func accountErrorMessage(err error) string {
	switch {
	case errors.Is(err, user.ErrProvisioningDisabled):
		return "No matching account exists and automatic account creation is disabled."
	case errors.Is(err, user.ErrDisabled):
		return "This account is disabled."
	case errors.Is(err, user.ErrConflict):
		return "The identity collides with an existing account."
	default:
		return "Could not sign you in."
	}
}
