package statestore

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// InMemoryStore is an in-process Store implementation.
//
// The zero value is ready to use, but the stored logins do not survive a restart:
// use it for development and single-instance deployments only.
type InMemoryStore struct {
	logins map[string]Login

	clock clockwork.Clock

	initOnce sync.Once
	mu       sync.Mutex
}

// NewInMemoryStore returns a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) init() {
	s.initOnce.Do(func() {
		s.logins = make(map[string]Login)

		if s.clock == nil {
			s.clock = clockwork.NewRealClock()
		}
	})
}

// Save implements the Store interface.
func (s *InMemoryStore) Save(_ context.Context, login Login) error {
	s.init()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep abandoned logins, so the map cannot grow without bound.
	s.sweep()

	s.logins[login.State] = login

	return nil
}

// DeleteExpired removes abandoned logins.
func (s *InMemoryStore) DeleteExpired(_ context.Context) error {
	s.init()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()

	return nil
}

// sweep deletes expired logins. The caller must hold the mutex.
func (s *InMemoryStore) sweep() {
	now := s.clock.Now()
	for state, stored := range s.logins {
		if stored.Expired(now) {
			delete(s.logins, state)
		}
	}
}

// Consume implements the Store interface.
func (s *InMemoryStore) Consume(_ context.Context, state string) (Login, error) {
	s.init()

	s.mu.Lock()
	defer s.mu.Unlock()

	login, ok := s.logins[state]
	if !ok {
		return Login{}, ErrNotFound
	}

	delete(s.logins, state)

	if login.Expired(s.clock.Now()) {
		return Login{}, ErrNotFound
	}

	return login, nil
}
