package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "portside:oidc:login:"

// RedisStore is a Store implementation backed by Redis,
// for deployments where the login may land on a different instance than the callback.
//
// Logins are stored as JSON values with a server-side TTL
// and consumed with GETDEL, so concurrent callbacks see at most one winner.
type RedisStore struct {
	client *redis.Client

	clock clockwork.Clock
}

// NewRedisStore returns a new RedisStore.
func NewRedisStore(client *redis.Client) RedisStore {
	return RedisStore{
		client: client,
		clock:  clockwork.NewRealClock(),
	}
}

func (s RedisStore) key(state string) string {
	return redisKeyPrefix + state
}

// Save implements the Store interface.
func (s RedisStore) Save(ctx context.Context, login Login) error {
	payload, err := json.Marshal(login)
	if err != nil {
		return fmt.Errorf("encoding login state: %w", err)
	}

	ttl := login.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return fmt.Errorf("login state is already expired")
	}

	err = s.client.Set(ctx, s.key(login.State), payload, ttl).Err()
	if err != nil {
		return fmt.Errorf("saving login state: %w", err)
	}

	return nil
}

// Consume implements the Store interface.
func (s RedisStore) Consume(ctx context.Context, state string) (Login, error) {
	payload, err := s.client.GetDel(ctx, s.key(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Login{}, ErrNotFound
	}
	if err != nil {
		return Login{}, fmt.Errorf("consuming login state: %w", err)
	}

	var login Login
	if err := json.Unmarshal(payload, &login); err != nil {
		return Login{}, fmt.Errorf("decoding login state: %w", err)
	}

	return login, nil
}
