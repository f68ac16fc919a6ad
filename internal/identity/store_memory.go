package identity

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore keeps user identities in a map. It backs unit tests and dev
// deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (s *InMemoryStore) Save(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Claims.Modules = append([]string(nil), user.Claims.Modules...)
	s.byID[user.ID] = user
	s.byEmail[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.byID[id]; ok {
		return cloneUser(user), nil
	}
	return User{}, ErrUserNotFound
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[strings.ToLower(email)]; ok {
		return cloneUser(s.byID[id]), nil
	}
	return User{}, ErrUserNotFound
}

func cloneUser(user User) User {
	user.Claims.Modules = append([]string(nil), user.Claims.Modules...)
	user.PasswordHash = append([]byte(nil), user.PasswordHash...)
	return user
}
