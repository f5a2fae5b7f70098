package config

import (
	"fmt"
	"time"

	"github.com/docker/libtrust"
	"gopkg.in/yaml.v3"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/auth/token/jwt"
)

// RefreshTokenIssuer is the configuration for an auth.RefreshTokenIssuer.
type RefreshTokenIssuer struct {
	Type   string `yaml:"type"`
	Config RefreshTokenIssuerFactory
}

func (c *RefreshTokenIssuer) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig rawConfig

	err := value.Decode(&rawConfig)
	if err != nil {
		return err
	}

	var config RefreshTokenIssuerFactory

	switch rawConfig.Type {
	case "jwt":
		var factory jwtRefreshTokenIssuer

		err := decode(rawConfig.Config, &factory)
		if err != nil {
			return err
		}

		config = factory
	default:
		return fmt.Errorf("unknown refresh token issuer type: %s", rawConfig.Type)
	}

	c.Type = rawConfig.Type
	c.Config = config

	return nil
}

// RefreshTokenIssuerFactory creates a new auth.RefreshTokenIssuer
// along with the matching verifier.
type RefreshTokenIssuerFactory interface {
	CreateRefreshTokenIssuer(signingKey libtrust.PrivateKey) (auth.RefreshTokenIssuer, error)
	CreateRefreshTokenVerifier(verifyKey libtrust.PublicKey) (auth.RefreshTokenVerifier, error)
	Validate() error
}

type jwtRefreshTokenIssuer struct {
	Issuer     string        `mapstructure:"issuer"`
	Expiration time.Duration `mapstructure:"expiration"`
}

func (c jwtRefreshTokenIssuer) CreateRefreshTokenIssuer(signingKey libtrust.PrivateKey) (auth.RefreshTokenIssuer, error) {
	return jwt.NewRefreshTokenIssuer(c.Issuer, signingKey, c.Expiration), nil
}

func (c jwtRefreshTokenIssuer) CreateRefreshTokenVerifier(verifyKey libtrust.PublicKey) (auth.RefreshTokenVerifier, error) {
	return jwt.NewRefreshTokenVerifier(c.Issuer, verifyKey), nil
}

func (c jwtRefreshTokenIssuer) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("refresh token issuer: jwt: issuer is required")
	}

	return nil
}
