package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/portside-registry/auth/oidc/statestore"
)

// StateStore is the configuration for a statestore.Store.
//
// The section is optional: without one, logins are tracked in process memory,
// which is enough for a single instance.
type StateStore struct {
	Type   string `yaml:"type"`
	Config StateStoreFactory
}

func (c *StateStore) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig rawConfig

	err := value.Decode(&rawConfig)
	if err != nil {
		return err
	}

	var config StateStoreFactory

	switch rawConfig.Type {
	case "memory":
		var factory memoryStateStore

		err := decode(rawConfig.Config, &factory)
		if err != nil {
			return err
		}

		config = factory
	case "redis":
		var factory redisStateStore

		err := decode(rawConfig.Config, &factory)
		if err != nil {
			return err
		}

		config = factory
	default:
		return fmt.Errorf("unknown state store type: %s", rawConfig.Type)
	}

	c.Type = rawConfig.Type
	c.Config = config

	return nil
}

// CreateStateStore builds the configured store,
// falling back to the in-process store when none is configured.
func (c StateStore) CreateStateStore(ctx context.Context) (statestore.Store, error) {
	if c.Config == nil {
		return statestore.NewInMemoryStore(), nil
	}

	return c.Config.CreateStateStore(ctx)
}

// StateStoreFactory creates a new statestore.Store.
type StateStoreFactory interface {
	CreateStateStore(ctx context.Context) (statestore.Store, error)
	Validate() error
}

type memoryStateStore struct{}

func (c memoryStateStore) CreateStateStore(_ context.Context) (statestore.Store, error) {
	return statestore.NewInMemoryStore(), nil
}

func (c memoryStateStore) Validate() error {
	return nil
}

type redisStateStore struct {
	URL string `mapstructure:"url"`
}

func (c redisStateStore) CreateStateStore(ctx context.Context) (statestore.Store, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		client.Close()

		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return statestore.NewRedisStore(client), nil
}

func (c redisStateStore) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("state store: redis: url is required")
	}

	return nil
}
