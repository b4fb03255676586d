package credentials

import (
	"context"
	"fmt"
)

// Logger is the logging collaborator used by every workflow.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserGateway is the persistence contract for user records. Lookups return
// ErrUserNotFound when nothing matches. Email and username lookups are
// case-insensitive.
type UserGateway interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// Add persists a new record. Implementations must enforce email and
	// username uniqueness and report conflicts as ErrEmailTaken or
	// ErrUsernameTaken.
	Add(ctx context.Context, email, username string, state UserState, passwordHash string) (*User, error)
	UpdateState(ctx context.Context, id string, state UserState) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error)
}

// TokenGateway persists opaque token to user id mappings.
// FindToken returns ErrTokenNotFound for unknown tokens.
type TokenGateway interface {
	StoreToken(ctx context.Context, token, userID string) error
	FindToken(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, token string) error
	DeleteUserTokens(ctx context.Context, userID string) error
}

// Gateway is the full persistence contract.
type Gateway interface {
	UserGateway
	TokenGateway
}

// SecretStorage caches the logged in user between requests.
// Get returns a nil user when nothing is stored.
type SecretStorage interface {
	Get(ctx context.Context) (*User, error)
	Set(ctx context.Context, user *User) error
	Remove(ctx context.Context) error
	Has(ctx context.Context) (bool, error)
}

// Validator checks caller supplied fields before any workflow touches storage.
type Validator interface {
	CheckEmail(email string) error
	CheckUsername(username string) error
	CheckPassword(password string) error
	CheckPasswordConfirmation(password, confirmation string) error
}

// PasswordHasher is the one-way adaptive hash used for passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
	NeedsRehash(hash string) bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CREDENTIALS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CREDENTIALS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CREDENTIALS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CREDENTIALS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
