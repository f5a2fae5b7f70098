package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portside-registry/auth/oidc/statestore"
	"github.com/portside-registry/auth/user"
)

type sessionStarterStub struct {
	err error

	started bool
	account user.User
}

func (s *sessionStarterStub) StartSession(_ http.ResponseWriter, _ *http.Request, account user.User) error {
	if s.err != nil {
		return s.err
	}

	s.started = true
	s.account = account

	return nil
}

func requireRedirect(t *testing.T, resp *httptest.ResponseRecorder) *url.URL {
	t.Helper()

	require.Equal(t, http.StatusFound, resp.Code)

	location, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)

	return location
}

func TestHandler_LoginHandler(t *testing.T) {
	provider := newFakeIdentityProvider(t)
	flow, _ := newLoginFlow(provider)

	handler := Handler{
		Flow:     flow,
		Sessions: &sessionStarterStub{},
	}

	req := httptest.NewRequest(http.MethodGet, "/oidc/login?redirect_uri=%2Frepositories", nil)
	resp := httptest.NewRecorder()

	handler.LoginHandler(resp, req)

	location := requireRedirect(t, resp)

	assert.True(t, strings.HasPrefix(location.String(), provider.URL+"/auth?"))
	assert.NotEmpty(t, location.Query().Get("state"))
}

func TestHandler_LoginHandler_NotConfigured(t *testing.T) {
	handler := Handler{
		Flow:     &Flow{Logins: statestore.NewInMemoryStore()},
		Sessions: &sessionStarterStub{},
	}

	req := httptest.NewRequest(http.MethodGet, "/oidc/login", nil)
	resp := httptest.NewRecorder()

	handler.LoginHandler(resp, req)

	location := requireRedirect(t, resp)

	assert.Equal(t, "/login", location.Path)
	assert.Equal(t, "Single sign-on is not configured.", location.Query().Get("login_error"))
}

func TestHandler_CallbackHandler(t *testing.T) {
	provider := newFakeIdentityProvider(t)
	flow, _ := newLoginFlow(provider)

	sessions := &sessionStarterStub{}

	handler := Handler{
		Flow:     flow,
		Sessions: sessions,
	}

	authCodeURL, err := flow.Authorize(context.Background(), "/repositories/alice")
	require.NoError(t, err)

	query := requireParseQuery(t, authCodeURL)

	provider.claims = provider.idTokenClaims(query.Get("nonce"))

	callbackURL := "/oidc/callback?" + url.Values{
		"code":  []string{"authorization-code"},
		"state": []string{query.Get("state")},
	}.Encode()

	req := httptest.NewRequest(http.MethodGet, callbackURL, nil)
	resp := httptest.NewRecorder()

	handler.CallbackHandler(resp, req)

	location := requireRedirect(t, resp)

	assert.Equal(t, "/repositories/alice", location.String())
	assert.True(t, sessions.started)
	assert.Equal(t, "alice", sessions.account.Username)
}

func TestHandler_CallbackHandler_DefaultRedirect(t *testing.T) {
	provider := newFakeIdentityProvider(t)
	flow, _ := newLoginFlow(provider)

	sessions := &sessionStarterStub{}

	handler := Handler{
		Flow:     flow,
		Sessions: sessions,
	}

	authCodeURL, err := flow.Authorize(context.Background(), "")
	require.NoError(t, err)

	query := requireParseQuery(t, authCodeURL)

	provider.claims = provider.idTokenClaims(query.Get("nonce"))

	callbackURL := "/oidc/callback?" + url.Values{
		"code":  []string{"authorization-code"},
		"state": []string{query.Get("state")},
	}.Encode()

	req := httptest.NewRequest(http.MethodGet, callbackURL, nil)
	resp := httptest.NewRecorder()

	handler.CallbackHandler(resp, req)

	location := requireRedirect(t, resp)

	assert.Equal(t, "/", location.String())
}

func TestHandler_CallbackHandler_InvalidState(t *testing.T) {
	provider := newFakeIdentityProvider(t)
	flow, _ := newLoginFlow(provider)

	handler := Handler{
		Flow:     flow,
		Sessions: &sessionStarterStub{},
	}

	req := httptest.NewRequest(http.MethodGet, "/oidc/callback?code=authorization-code&state=never-issued", nil)
	resp := httptest.NewRecorder()

	handler.CallbackHandler(resp, req)

	location := requireRedirect(t, resp)

	assert.Equal(t, "/login", location.Path)
	assert.Equal(t, "Invalid or expired state.", location.Query().Get("login_error"))
}

func TestHandler_CallbackHandler_SessionError(t *testing.T) {
	provider := newFakeIdentityProvider(t)
	flow, _ := newLoginFlow(provider)

	sessions := &sessionStarterStub{err: errors.New("cookie jar is full")}

	handler := Handler{
		Flow:     flow,
		Sessions: sessions,
		LoginURL: "/signin",
	}

	authCodeURL, err := flow.Authorize(context.Background(), "")
	require.NoError(t, err)

	query := requireParseQuery(t, authCodeURL)

	provider.claims = provider.idTokenClaims(query.Get("nonce"))

	callbackURL := "/oidc/callback?" + url.Values{
		"code":  []string{"authorization-code"},
		"state": []string{query.Get("state")},
	}.Encode()

	req := httptest.NewRequest(http.MethodGet, callbackURL, nil)
	resp := httptest.NewRecorder()

	handler.CallbackHandler(resp, req)

	location := requireRedirect(t, resp)

	assert.Equal(t, "/signin", location.Path)
	assert.Equal(t, "Could not sign you in.", location.Query().Get("login_error"))
}

func TestHandler_CallbackHandler_ProviderError(t *testing.T) {
	provider := newFakeIdentityProvider(t)
	flow, _ := newLoginFlow(provider)

	handler := Handler{
		Flow:     flow,
		Sessions: &sessionStarterStub{},
	}

	req := httptest.NewRequest(http.MethodGet, "/oidc/callback?error=access_denied&error_description=User+cancelled", nil)
	resp := httptest.NewRecorder()

	handler.CallbackHandler(resp, req)

	location := requireRedirect(t, resp)

	assert.Equal(t, "/login", location.Path)
	assert.Equal(t, "The identity provider reported an error: User cancelled", location.Query().Get("login_error"))
}
