package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config collects all configuration options of the token service.
type Config struct {
	Server Server `yaml:"server"`

	UserStore  UserStore  `yaml:"userStore"`
	StateStore StateStore `yaml:"stateStore"`

	AccessTokenIssuer  AccessTokenIssuer  `yaml:"accessTokenIssuer"`
	RefreshTokenIssuer RefreshTokenIssuer `yaml:"refreshTokenIssuer"`
	Authorizer         Authorizer         `yaml:"authorizer"`

	OIDC OIDC `yaml:"oidc"`
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config

	err = yaml.Unmarshal(raw, &config)
	if err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}

	if c.UserStore.Type == "" {
		return fmt.Errorf("user store type is required")
	}

	if err := c.UserStore.Config.Validate(); err != nil {
		return err
	}

	// The state store is optional: logins fall back to process memory.
	if c.StateStore.Config != nil {
		if err := c.StateStore.Config.Validate(); err != nil {
			return err
		}
	}

	if c.AccessTokenIssuer.Type == "" {
		return fmt.Errorf("access token issuer type is required")
	}

	if err := c.AccessTokenIssuer.Config.Validate(); err != nil {
		return err
	}

	if c.RefreshTokenIssuer.Type == "" {
		return fmt.Errorf("refresh token issuer type is required")
	}

	if err := c.RefreshTokenIssuer.Config.Validate(); err != nil {
		return err
	}

	if c.Authorizer.Type == "" {
		return fmt.Errorf("authorizer type is required")
	}

	if err := c.Authorizer.Config.Validate(); err != nil {
		return err
	}

	return c.OIDC.Validate()
}

// rawConfig is a general struct to be used by other config structs to unmarshal yaml config first.
type rawConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// decode decodes a raw config section into a factory.
func decode(input map[string]interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     output,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
