package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gofrs/uuid"
)

type identityKey struct {
	provider string
	subject  string
}

// InMemoryStore is a Store backed by process memory.
//
// It is safe for concurrent use. The zero value is ready to use,
// but the records do not survive a restart: use it for development
// and for bootstrapping users from static configuration.
type InMemoryStore struct {
	users      map[string]User
	usernames  map[string]string // lowercase username -> user ID
	emails     map[string]string // lowercase email -> user ID
	tokens     map[string][]AccessToken
	identities map[identityKey]Identity

	initOnce sync.Once
	mu       sync.RWMutex
}

// NewInMemoryStore returns a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) init() {
	s.initOnce.Do(func() {
		s.users = make(map[string]User)
		s.usernames = make(map[string]string)
		s.emails = make(map[string]string)
		s.tokens = make(map[string][]AccessToken)
		s.identities = make(map[identityKey]Identity)
	})
}

func (s *InMemoryStore) FindUserByID(_ context.Context, id string) (User, error) {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}

	return user, nil
}

func (s *InMemoryStore) FindUserByUsername(_ context.Context, username string) (User, error) {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[strings.ToLower(username)]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}

	return s.users[id], nil
}

func (s *InMemoryStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return User{}, fmt.Errorf("user with email %q: %w", email, ErrNotFound)
	}

	return s.users[id], nil
}

func (s *InMemoryStore) CreateUser(_ context.Context, user User) (User, error) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return User{}, err
		}

		user.ID = id.String()
	}

	if _, ok := s.usernames[strings.ToLower(user.Username)]; ok {
		return User{}, fmt.Errorf("username %q: %w", user.Username, ErrConflict)
	}

	if user.Email != "" {
		if _, ok := s.emails[strings.ToLower(user.Email)]; ok {
			return User{}, fmt.Errorf("email %q: %w", user.Email, ErrConflict)
		}
	}

	s.users[user.ID] = user
	s.usernames[strings.ToLower(user.Username)] = user.ID

	if user.Email != "" {
		s.emails[strings.ToLower(user.Email)] = user.ID
	}

	return user, nil
}

func (s *InMemoryStore) ListAccessTokens(_ context.Context, userID string) ([]AccessToken, error) {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]AccessToken, len(s.tokens[userID]))
	copy(tokens, s.tokens[userID])

	return tokens, nil
}

func (s *InMemoryStore) CreateAccessToken(_ context.Context, token AccessToken) (AccessToken, error) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return AccessToken{}, err
		}

		token.ID = id.String()
	}

	if _, ok := s.users[token.UserID]; !ok {
		return AccessToken{}, fmt.Errorf("user %q: %w", token.UserID, ErrNotFound)
	}

	s.tokens[token.UserID] = append(s.tokens[token.UserID], token)

	return token, nil
}

func (s *InMemoryStore) FindIdentity(_ context.Context, provider string, subject string) (Identity, error) {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[identityKey{provider, subject}]
	if !ok {
		return Identity{}, fmt.Errorf("identity %s/%s: %w", provider, subject, ErrNotFound)
	}

	return identity, nil
}

func (s *InMemoryStore) CreateIdentity(_ context.Context, identity Identity) (Identity, error) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey{identity.Provider, identity.Subject}
	if _, ok := s.identities[key]; ok {
		return Identity{}, fmt.Errorf("identity %s/%s: %w", identity.Provider, identity.Subject, ErrConflict)
	}

	if identity.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return Identity{}, err
		}

		identity.ID = id.String()
	}

	s.identities[key] = identity

	return identity, nil
}

func (s *InMemoryStore) UpdateIdentity(_ context.Context, identity Identity) (Identity, error) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey{identity.Provider, identity.Subject}
	if _, ok := s.identities[key]; !ok {
		return Identity{}, fmt.Errorf("identity %s/%s: %w", identity.Provider, identity.Subject, ErrNotFound)
	}

	s.identities[key] = identity

	return identity, nil
}
