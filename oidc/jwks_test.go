package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return key
}

func TestKeySetClient_KeySet(t *testing.T) {
	key := generateRSAKey(t)

	keySet := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{Key: key.Public(), KeyID: "key-1", Use: "sig", Algorithm: "RS256"},
		},
	}

	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++

		_ = json.NewEncoder(w).Encode(keySet)
	}))
	t.Cleanup(server.Close)

	clock := clockwork.NewFakeClock()
	client := NewKeySetClient(WithClock(clock))

	fetched, err := client.KeySet(context.Background(), server.URL)
	require.NoError(t, err)

	require.Len(t, fetched.Keys, 1)
	assert.Equal(t, "key-1", fetched.Keys[0].KeyID)

	// A second call within the TTL is served from the cache.
	_, err = client.KeySet(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, 1, requests)

	// Expiry forces a refetch.
	clock.Advance(DefaultCacheTTL + time.Minute)

	_, err = client.KeySet(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, 2, requests)

	// So does an explicit invalidation.
	client.Invalidate()

	_, err = client.KeySet(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, 3, requests)
}

func TestKeySetClient_KeySet_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := NewKeySetClient()

	_, err := client.KeySet(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSelectKey(t *testing.T) {
	key := generateRSAKey(t)

	keySet := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{Key: key.Public(), KeyID: "encryption", Use: "enc"},
			{Key: key.Public(), KeyID: "first-signature", Use: "sig"},
			{Key: key.Public(), KeyID: "unmarked"},
		},
	}

	testCases := []struct {
		name     string
		kid      string
		expected string
	}{
		{
			name:     "KidMatch",
			kid:      "unmarked",
			expected: "unmarked",
		},
		{
			name:     "NoKid",
			kid:      "",
			expected: "first-signature",
		},
		{
			name: "UnknownKidFallsBackToSignatureKey",
			kid:  "rotated-away",
			// The first key marked for signature use wins.
			expected: "first-signature",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			selected, err := selectKey(keySet, testCase.kid)
			require.NoError(t, err)

			assert.Equal(t, testCase.expected, selected.KeyID)
		})
	}
}

func TestSelectKey_NoUsableKey(t *testing.T) {
	key := generateRSAKey(t)

	keySet := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{Key: key.Public(), KeyID: "encryption", Use: "enc"},
		},
	}

	_, err := selectKey(keySet, "")
	require.Error(t, err)

	_, err = selectKey(jose.JSONWebKeySet{}, "")
	require.Error(t, err)
}
