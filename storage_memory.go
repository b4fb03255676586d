package credentials

import (
	"context"
	"sync"
)

// MemoryStorage is a process-local SecretStorage. It is the default session
// store of a Login and is suited to tests and single-user tools.
type MemoryStorage struct {
	mu   sync.RWMutex
	user *User
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

var _ SecretStorage = (*MemoryStorage)(nil)

func (s *MemoryStorage) Get(context.Context) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.clone(), nil
}

func (s *MemoryStorage) Set(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user.WithToken("")
	return nil
}

func (s *MemoryStorage) Remove(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	return nil
}

func (s *MemoryStorage) Has(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil, nil
}
