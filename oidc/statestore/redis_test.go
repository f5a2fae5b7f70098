package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)

	login := Login{
		State:        "state",
		CodeVerifier: "verifier",
		Nonce:        "nonce",
		RedirectURI:  "/repositories",
		ExpiresAt:    time.Now().UTC().Add(DefaultTTL),
	}

	require.NoError(t, store.Save(context.Background(), login))

	consumed, err := store.Consume(context.Background(), "state")
	require.NoError(t, err)

	assert.Equal(t, login, consumed)

	_, err = store.Consume(context.Background(), "state")
	assert.Equal(t, ErrNotFound, err)
}

func TestRedisStore_UnknownState(t *testing.T) {
	store, _ := newRedisStore(t)

	_, err := store.Consume(context.Background(), "bogus")

	assert.Equal(t, ErrNotFound, err)
}

func TestRedisStore_Expired(t *testing.T) {
	store, mr := newRedisStore(t)

	login := Login{
		State:     "state",
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}

	require.NoError(t, store.Save(context.Background(), login))

	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(context.Background(), "state")
	assert.Equal(t, ErrNotFound, err)
}

func TestRedisStore_InjectedClock(t *testing.T) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2023, time.March, 10, 12, 0, 0, 0, time.UTC))

	store := RedisStore{client: client, clock: clock}

	// The server-side TTL follows the injected clock, not the wall clock.
	require.NoError(t, store.Save(context.Background(), Login{
		State:     "state",
		ExpiresAt: clock.Now().Add(DefaultTTL),
	}))

	assert.Equal(t, DefaultTTL, mr.TTL(redisKeyPrefix+"state"))

	err := store.Save(context.Background(), Login{
		State:     "other",
		ExpiresAt: clock.Now().Add(-time.Minute),
	})
	assert.Error(t, err)
}

func TestRedisStore_SaveExpired(t *testing.T) {
	store, _ := newRedisStore(t)

	err := store.Save(context.Background(), Login{
		State:     "state",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	})

	assert.Error(t, err)
}
