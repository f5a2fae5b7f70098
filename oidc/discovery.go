package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultCacheTTL bounds how long discovery documents and key sets
	// are served from the cache before they are fetched again.
	DefaultCacheTTL = time.Hour

	// DefaultTimeout bounds every outbound call to the identity provider.
	DefaultTimeout = 10 * time.Second

	// maxResponseSize caps provider responses. Discovery documents and key
	// sets are small, anything larger is not worth parsing.
	maxResponseSize = 1 << 20
)

// Document is the provider metadata published at the OpenID Connect discovery endpoint.
type Document struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	UserinfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
}

// DiscoveryClient fetches and caches provider discovery documents.
type DiscoveryClient struct {
	httpClient *http.Client
	cache      *ttlCache[Document]
}

// NewDiscoveryClient returns a new DiscoveryClient.
func NewDiscoveryClient(opts ...DiscoveryClientOption) *DiscoveryClient {
	c := &DiscoveryClient{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      newTTLCache[Document](DefaultCacheTTL),
	}

	for _, opt := range opts {
		opt.applyDiscoveryClient(c)
	}

	return c
}

// Document returns the discovery document of an issuer.
//
// Results are cached: within the TTL a call is served from memory
// without touching the network. The login flow hits this on every attempt.
func (c *DiscoveryClient) Document(ctx context.Context, issuer string) (Document, error) {
	if document, ok := c.cache.get(issuer); ok {
		return document, nil
	}

	document, err := c.fetchDocument(ctx, issuer)
	if err != nil {
		return Document{}, err
	}

	c.cache.set(issuer, document)

	return document, nil
}

// Invalidate drops the cached documents.
// Call it when the provider configuration changes.
func (c *DiscoveryClient) Invalidate() {
	c.cache.invalidate()
}

func (c *DiscoveryClient) fetchDocument(ctx context.Context, issuer string) (Document, error) {
	discoveryURL := strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"

	var document Document

	err := fetchJSON(ctx, c.httpClient, discoveryURL, &document)
	if err != nil {
		return Document{}, err
	}

	// A provider missing any of these cannot serve a login: fail fast instead
	// of discovering the gap halfway through a flow.
	if !sameIssuer(document.Issuer, issuer) {
		return Document{}, fmt.Errorf("%w: document issuer %q does not match %q", ErrUpstream, document.Issuer, issuer)
	}

	if document.AuthorizationEndpoint == "" {
		return Document{}, fmt.Errorf("%w: discovery document has no authorization_endpoint", ErrUpstream)
	}

	if document.TokenEndpoint == "" {
		return Document{}, fmt.Errorf("%w: discovery document has no token_endpoint", ErrUpstream)
	}

	if document.JWKSURI == "" {
		return Document{}, fmt.Errorf("%w: discovery document has no jwks_uri", ErrUpstream)
	}

	return document, nil
}

// sameIssuer compares issuer identifiers, tolerating a single trailing slash:
// providers are inconsistent about it between configuration and metadata.
func sameIssuer(a string, b string) bool {
	return a != "" && strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

func fetchJSON(ctx context.Context, httpClient *http.Client, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrUpstream, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUpstream, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: unexpected status %d", ErrUpstream, url, resp.StatusCode)
	}

	err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(v)
	if err != nil {
		return fmt.Errorf("%w: GET %s: decoding response: %v", ErrUpstream, url, err)
	}

	return nil
}
