package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/goliatone/go-credentials"
	goerrors "github.com/goliatone/go-errors"
)

// SessionStorage is a credentials.SecretStorage keeping one user under one
// backend key. Every Set refreshes the expiry.
type SessionStorage struct {
	backend Backend
	key     string
	ttl     time.Duration
}

// Session binds key in backend to a credentials.SecretStorage.
func Session(backend Backend, key string, ttl time.Duration) *SessionStorage {
	return &SessionStorage{
		backend: backend,
		key:     key,
		ttl:     ttl,
	}
}

var _ credentials.SecretStorage = (*SessionStorage)(nil)

// Key returns the backend key.
func (s *SessionStorage) Key() string {
	return s.key
}

func (s *SessionStorage) Get(ctx context.Context) (*credentials.User, error) {
	payload, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read session")
	}

	var user credentials.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode session")
	}
	return &user, nil
}

func (s *SessionStorage) Set(ctx context.Context, user *credentials.User) error {
	if user == nil {
		return s.Remove(ctx)
	}

	payload, err := json.Marshal(user.WithToken(""))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode session")
	}
	return s.backend.Set(ctx, s.key, payload, s.ttl)
}

func (s *SessionStorage) Remove(ctx context.Context) error {
	return s.backend.Delete(ctx, s.key)
}

func (s *SessionStorage) Has(ctx context.Context) (bool, error) {
	return s.backend.Exists(ctx, s.key)
}
