package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/auth/authz"
)

// Authorizer is the configuration for an auth.Authorizer.
type Authorizer struct {
	Type   string `yaml:"type"`
	Config AuthorizerFactory
}

func (c *Authorizer) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig rawConfig

	err := value.Decode(&rawConfig)
	if err != nil {
		return err
	}

	var config AuthorizerFactory

	switch rawConfig.Type {
	case "namespace":
		var factory namespaceAuthorizer

		err := decode(rawConfig.Config, &factory)
		if err != nil {
			return err
		}

		config = factory
	default:
		return fmt.Errorf("unknown authorizer type: %s", rawConfig.Type)
	}

	c.Type = rawConfig.Type
	c.Config = config

	return nil
}

// AuthorizerFactory creates a new auth.Authorizer.
type AuthorizerFactory interface {
	CreateAuthorizer() (auth.Authorizer, error)
	Validate() error
}

type namespaceAuthorizer struct {
	AllowAnonymous bool `mapstructure:"allowAnonymous"`
}

func (c namespaceAuthorizer) CreateAuthorizer() (auth.Authorizer, error) {
	authorizer := authz.NewDefaultAuthorizer(authz.NewNamespaceRepositoryAuthorizer(), c.AllowAnonymous)

	// Personal access tokens never grant more than their permission set.
	return authz.NewPermissionRestrictedAuthorizer(authorizer), nil
}

func (c namespaceAuthorizer) Validate() error {
	return nil
}
