package oidc

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/schema"
	"go.uber.org/zap"

	"github.com/portside-registry/auth/pkg/metrics"
	"github.com/portside-registry/auth/user"
)

// Set a Decoder instance as a package global, because it caches
// meta-data about structs, and an instance can be shared safely.
var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()

	// Providers send extra parameters (session_state and friends), they are not an error.
	d.IgnoreUnknownKeys(true)

	return d
}

// SessionStarter establishes the session of a logged in user,
// typically by setting a signed cookie on the response.
type SessionStarter interface {
	StartSession(w http.ResponseWriter, r *http.Request, account user.User) error
}

// Handler serves the browser facing endpoints of the login flow.
type Handler struct {
	Flow *Flow

	// Sessions establishes the browser session once a login completed.
	Sessions SessionStarter

	// LoginURL is the page login failures redirect to, with the failure
	// message in the login_error query parameter. Defaults to "/login".
	LoginURL string

	// DefaultRedirect is where a completed login lands when no explicit
	// target was requested. Defaults to "/".
	DefaultRedirect string

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (h Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}

	return h.Logger
}

func (h Handler) loginURL() string {
	if h.LoginURL == "" {
		return "/login"
	}

	return h.LoginURL
}

func (h Handler) defaultRedirect() string {
	if h.DefaultRedirect == "" {
		return "/"
	}

	return h.DefaultRedirect
}

// LoginHandler initiates a login with the identity provider.
//
// An optional redirect_uri query parameter selects where the browser lands
// after a completed login; only site local targets are honored.
func (h Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	authCodeURL, err := h.Flow.Authorize(r.Context(), r.URL.Query().Get("redirect_uri"))
	if err != nil {
		h.logger().Warn("failed to initiate federated login", zap.Error(err))

		h.redirectWithError(w, r, loginErrorMessage(err))

		return
	}

	http.Redirect(w, r, authCodeURL, http.StatusFound)
}

// CallbackHandler completes a login when the identity provider redirects back.
func (h Handler) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	var callback CallbackRequest

	err := decoder.Decode(&callback, r.URL.Query())
	if err != nil {
		h.logger().Warn("failed to decode callback request", zap.Error(err))

		h.redirectWithError(w, r, "Invalid callback request.")

		return
	}

	result, err := h.Flow.Callback(r.Context(), callback)
	if err != nil {
		h.logger().Warn("federated login failed", zap.Error(err))
		h.Metrics.IncrementFederatedLogins("failure")

		h.redirectWithError(w, r, loginErrorMessage(err))

		return
	}

	err = h.Sessions.StartSession(w, r, result.User)
	if err != nil {
		h.logger().Error("failed to establish session", zap.Error(err))
		h.Metrics.IncrementFederatedLogins("failure")

		h.redirectWithError(w, r, "Could not sign you in.")

		return
	}

	h.Metrics.IncrementFederatedLogins("success")

	target := result.RedirectTarget
	if target == "" {
		target = h.defaultRedirect()
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// redirectWithError sends the browser back to the login page with a message.
// The message is the only detail leaving the server, internals stay in the logs.
func (h Handler) redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	query := url.Values{"login_error": []string{message}}

	http.Redirect(w, r, h.loginURL()+"?"+query.Encode(), http.StatusFound)
}

// loginErrorMessage picks the user visible message for a failed login.
func loginErrorMessage(err error) string {
	var loginErr LoginError
	if errors.As(err, &loginErr) {
		return loginErr.Message
	}

	switch {
	case errors.Is(err, ErrProviderNotConfigured):
		return "Single sign-on is not configured."
	case errors.Is(err, ErrUpstream):
		return upstreamErrorMessage
	default:
		return "Could not sign you in."
	}
}
