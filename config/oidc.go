package config

import (
	"fmt"

	"github.com/portside-registry/auth/oidc"
)

// OIDC is the configuration of the federated login flow.
//
// The section is optional: without an issuer, single sign-on is disabled
// and the login endpoints fail closed.
type OIDC struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	RedirectURL  string `yaml:"redirectUrl"`

	// ExtraScopes are requested in addition to the standard openid, profile and email scopes.
	ExtraScopes []string `yaml:"extraScopes"`

	// UsernameClaim selects the ID token claim local usernames are derived from.
	// Defaults to the subject claim.
	UsernameClaim string `yaml:"usernameClaim"`

	// AutoProvision enables creating a local account on first login.
	AutoProvision bool `yaml:"autoProvision"`

	// ProvisionAsAdmin grants administrative privileges to provisioned accounts.
	ProvisionAsAdmin bool `yaml:"provisionAsAdmin"`
}

// Enabled tells whether single sign-on is configured.
func (c OIDC) Enabled() bool {
	return c.Issuer != ""
}

// Validate validates the configuration.
func (c OIDC) Validate() error {
	if !c.Enabled() {
		return nil
	}

	if c.ClientID == "" {
		return fmt.Errorf("oidc: clientId is required")
	}

	if c.RedirectURL == "" {
		return fmt.Errorf("oidc: redirectUrl is required")
	}

	return nil
}

// Provider returns the provider definition for the login flow.
func (c OIDC) Provider() oidc.Provider {
	return oidc.Provider{
		Issuer:        c.Issuer,
		ClientID:      c.ClientID,
		ClientSecret:  c.ClientSecret,
		RedirectURL:   c.RedirectURL,
		ExtraScopes:   c.ExtraScopes,
		UsernameClaim: c.UsernameClaim,
	}
}
