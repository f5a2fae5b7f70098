package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/portside-registry/auth/user"
)

// UserStore is the configuration for a user.Store.
type UserStore struct {
	Type   string `yaml:"type"`
	Config UserStoreFactory
}

func (c *UserStore) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig rawConfig

	err := value.Decode(&rawConfig)
	if err != nil {
		return err
	}

	var config UserStoreFactory

	switch rawConfig.Type {
	case "memory":
		var factory memoryUserStore

		err := decode(rawConfig.Config, &factory)
		if err != nil {
			return err
		}

		config = factory
	case "postgres":
		var factory postgresUserStore

		err := decode(rawConfig.Config, &factory)
		if err != nil {
			return err
		}

		config = factory
	default:
		return fmt.Errorf("unknown user store type: %s", rawConfig.Type)
	}

	c.Type = rawConfig.Type
	c.Config = config

	return nil
}

// UserStoreFactory creates a new user.Store.
type UserStoreFactory interface {
	CreateUserStore(ctx context.Context) (user.Store, error)
	Validate() error
}

type memoryUserStore struct {
	Users []seedUser `mapstructure:"users"`
}

// seedUser is a user account bootstrapped from static configuration.
// An entry without a password hash can only sign in through single sign-on.
type seedUser struct {
	Username     string `mapstructure:"username"`
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"passwordHash"`
	Admin        bool   `mapstructure:"admin"`
	Disabled     bool   `mapstructure:"disabled"`
}

func (c memoryUserStore) CreateUserStore(ctx context.Context) (user.Store, error) {
	store := user.NewInMemoryStore()

	for _, entry := range c.Users {
		_, err := store.CreateUser(ctx, user.User{
			Username:     entry.Username,
			Email:        entry.Email,
			PasswordHash: entry.PasswordHash,
			Admin:        entry.Admin,
			Disabled:     entry.Disabled,
			CreatedAt:    time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("seeding user store: %w", err)
		}
	}

	return store, nil
}

func (c memoryUserStore) Validate() error {
	for i, entry := range c.Users {
		if entry.Username == "" {
			return fmt.Errorf("user store: memory: users[%d]: username is required", i)
		}
	}

	return nil
}

type postgresUserStore struct {
	URL string `mapstructure:"url"`
}

func (c postgresUserStore) CreateUserStore(ctx context.Context) (user.Store, error) {
	pool, err := pgxpool.New(ctx, c.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return user.NewPostgresStore(pool), nil
}

func (c postgresUserStore) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("user store: postgres: url is required")
	}

	return nil
}
