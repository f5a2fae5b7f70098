package config

import (
	"fmt"
	"time"

	"github.com/docker/libtrust"
	"gopkg.in/yaml.v3"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/auth/token/jwt"
)

// AccessTokenIssuer is the configuration for an auth.AccessTokenIssuer.
type AccessTokenIssuer struct {
	Type   string `yaml:"type"`
	Config AccessTokenIssuerFactory
}

func (c *AccessTokenIssuer) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig rawConfig

	err := value.Decode(&rawConfig)
	if err != nil {
		return err
	}

	var config AccessTokenIssuerFactory

	switch rawConfig.Type {
	case "jwt":
		var factory jwtAccessTokenIssuer

		err := decode(rawConfig.Config, &factory)
		if err != nil {
			return err
		}

		config = factory
	default:
		return fmt.Errorf("unknown access token issuer type: %s", rawConfig.Type)
	}

	c.Type = rawConfig.Type
	c.Config = config

	return nil
}

// AccessTokenIssuerFactory creates a new auth.AccessTokenIssuer.
//
// The signing key is owned by the caller: access tokens, refresh tokens and
// the key discovery endpoint must all agree on it.
type AccessTokenIssuerFactory interface {
	CreateAccessTokenIssuer(signingKey libtrust.PrivateKey) (auth.AccessTokenIssuer, error)
	Validate() error
}

type jwtAccessTokenIssuer struct {
	Issuer     string        `mapstructure:"issuer"`
	Expiration time.Duration `mapstructure:"expiration"`
}

func (c jwtAccessTokenIssuer) CreateAccessTokenIssuer(signingKey libtrust.PrivateKey) (auth.AccessTokenIssuer, error) {
	return jwt.NewAccessTokenIssuer(c.Issuer, signingKey, c.Expiration), nil
}

func (c jwtAccessTokenIssuer) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("access token issuer: jwt: issuer is required")
	}

	return nil
}
