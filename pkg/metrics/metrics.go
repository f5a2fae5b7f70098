// Package metrics provides Prometheus instrumentation for the token service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the token service.
//
// All methods are safe to call on a nil receiver,
// so instrumentation remains optional for every collaborator.
type Metrics struct {
	// Access tokens issued by grant
	AccessTokensIssued *prometheus.CounterVec

	// Refresh tokens handed out to offline clients
	RefreshTokensIssued prometheus.Counter

	// Rejected credentials (basic auth, password grant, refresh token grant)
	AuthenticationFailures prometheus.Counter

	// Completed federated login attempts by result
	FederatedLogins *prometheus.CounterVec
}

// New creates a new Metrics instance with all token service metrics registered.
func New() *Metrics {
	return &Metrics{
		AccessTokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portside_auth_access_tokens_issued_total",
			Help: "Total number of access tokens issued by grant",
		}, []string{"grant"}), // grant: "token", "password", "refresh_token"

		RefreshTokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portside_auth_refresh_tokens_issued_total",
			Help: "Total number of refresh tokens issued",
		}),

		AuthenticationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portside_auth_authentication_failures_total",
			Help: "Total number of requests rejected with invalid credentials",
		}),

		FederatedLogins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portside_auth_federated_logins_total",
			Help: "Total number of completed federated login attempts by result",
		}, []string{"result"}), // result: "success", "failure"
	}
}

// IncrementAccessTokensIssued records an issued access token.
func (m *Metrics) IncrementAccessTokensIssued(grant string) {
	if m != nil {
		m.AccessTokensIssued.WithLabelValues(grant).Inc()
	}
}

// IncrementRefreshTokensIssued records an issued refresh token.
func (m *Metrics) IncrementRefreshTokensIssued() {
	if m != nil {
		m.RefreshTokensIssued.Inc()
	}
}

// IncrementAuthenticationFailures records a request rejected with invalid credentials.
func (m *Metrics) IncrementAuthenticationFailures() {
	if m != nil {
		m.AuthenticationFailures.Inc()
	}
}

// IncrementFederatedLogins records the result of a federated login attempt.
func (m *Metrics) IncrementFederatedLogins(result string) {
	if m != nil {
		m.FederatedLogins.WithLabelValues(result).Inc()
	}
}
