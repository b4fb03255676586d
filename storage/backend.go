// Package storage provides keyed session backends and the SecretStorage
// adapter that keeps a logged in user in them.
package storage

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrMiss is returned by Backend.Get when the key is absent or expired.
var ErrMiss = goerrors.New("session key not found", goerrors.CategoryNotFound).
	WithTextCode("SESSION_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// Backend is a byte oriented key/value store with expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
