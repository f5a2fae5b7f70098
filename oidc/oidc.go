// Package oidc implements the relying party side of an OpenID Connect login:
// provider discovery, the authorization code flow with PKCE and the
// verification of the returned ID tokens.
package oidc

import (
	"errors"
	"net/http"

	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
)

// ErrProviderNotConfigured is returned when a login is attempted
// while no identity provider is configured.
var ErrProviderNotConfigured = errors.New("identity provider is not configured")

// ErrUpstream is returned when the identity provider is unreachable
// or publishes invalid metadata.
var ErrUpstream = errors.New("identity provider unreachable or misconfigured")

// Provider is the configuration of the upstream OpenID Connect identity provider.
type Provider struct {
	// Issuer is the issuer URL of the provider.
	// Discovery and issuer verification run against it and it keys
	// the federated identity links of the accounts logging in through the provider.
	Issuer string

	ClientID     string
	ClientSecret string

	// RedirectURL is the absolute URL of the callback endpoint,
	// registered at the provider.
	RedirectURL string

	// ExtraScopes are requested in addition to the standard
	// openid, profile and email scopes.
	ExtraScopes []string

	// UsernameClaim selects the ID token claim local usernames are derived from.
	// Empty means "sub". See DeriveUsername.
	UsernameClaim string
}

// oauth2Config assembles the OAuth2 client configuration
// for the endpoints discovered for the provider.
func (p Provider) oauth2Config(document Document) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       append([]string{"openid", "profile", "email"}, p.ExtraScopes...),
		Endpoint: oauth2.Endpoint{
			AuthURL:  document.AuthorizationEndpoint,
			TokenURL: document.TokenEndpoint,
		},
	}
}

func (p Provider) usernameClaim() string {
	if p.UsernameClaim == "" {
		return "sub"
	}

	return p.UsernameClaim
}

// DiscoveryClientOption configures a DiscoveryClient.
type DiscoveryClientOption interface {
	applyDiscoveryClient(c *DiscoveryClient)
}

// KeySetClientOption configures a KeySetClient.
type KeySetClientOption interface {
	applyKeySetClient(c *KeySetClient)
}

// IDTokenVerifierOption configures an IDTokenVerifier.
type IDTokenVerifierOption interface {
	applyIDTokenVerifier(v *IDTokenVerifier)
}

// ClientOption configures any client fetching from the identity provider.
type ClientOption interface {
	DiscoveryClientOption
	KeySetClientOption
}

// Option configures any component of this package.
type Option interface {
	ClientOption
	IDTokenVerifierOption
}

// WithClock configures the clock used for cache expiry and token validation.
//
// Useful for testing.
func WithClock(clock clockwork.Clock) Option {
	return withClock{clock}
}

type withClock struct {
	clock clockwork.Clock
}

func (o withClock) applyDiscoveryClient(c *DiscoveryClient) { c.cache.clock = o.clock }

func (o withClock) applyKeySetClient(c *KeySetClient) { c.cache.clock = o.clock }

func (o withClock) applyIDTokenVerifier(v *IDTokenVerifier) { v.clock = o.clock }

// WithHTTPClient configures the HTTP client calling the identity provider.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return withHTTPClient{httpClient}
}

type withHTTPClient struct {
	httpClient *http.Client
}

func (o withHTTPClient) applyDiscoveryClient(c *DiscoveryClient) { c.httpClient = o.httpClient }

func (o withHTTPClient) applyKeySetClient(c *KeySetClient) { c.httpClient = o.httpClient }
