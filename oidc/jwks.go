package oidc

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-jose/go-jose/v4"
)

// KeySetClient fetches and caches the signing keys published by the identity provider.
type KeySetClient struct {
	httpClient *http.Client
	cache      *ttlCache[jose.JSONWebKeySet]
}

// NewKeySetClient returns a new KeySetClient.
func NewKeySetClient(opts ...KeySetClientOption) *KeySetClient {
	c := &KeySetClient{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      newTTLCache[jose.JSONWebKeySet](DefaultCacheTTL),
	}

	for _, opt := range opts {
		opt.applyKeySetClient(c)
	}

	return c
}

// KeySet returns the key set published at a JWKS URI.
//
// Results are cached: within the TTL a call is served from memory
// without touching the network.
func (c *KeySetClient) KeySet(ctx context.Context, jwksURI string) (jose.JSONWebKeySet, error) {
	if keySet, ok := c.cache.get(jwksURI); ok {
		return keySet, nil
	}

	var keySet jose.JSONWebKeySet

	err := fetchJSON(ctx, c.httpClient, jwksURI, &keySet)
	if err != nil {
		return jose.JSONWebKeySet{}, err
	}

	c.cache.set(jwksURI, keySet)

	return keySet, nil
}

// Invalidate drops the cached key sets.
// Call it when the provider configuration changes.
func (c *KeySetClient) Invalidate() {
	c.cache.invalidate()
}

// selectKey picks the verification key for a token from a key set.
// A key matching the token's kid wins; without a match any key marked for
// signature use (or carrying no use marker at all) is accepted.
func selectKey(keySet jose.JSONWebKeySet, kid string) (jose.JSONWebKey, error) {
	if kid != "" {
		for _, key := range keySet.Keys {
			if key.KeyID == kid {
				return key, nil
			}
		}
	}

	for _, key := range keySet.Keys {
		if key.Use == "sig" || key.Use == "" {
			return key, nil
		}
	}

	return jose.JSONWebKey{}, errors.New("no usable verification key in the provider key set")
}
