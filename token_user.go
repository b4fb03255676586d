package credentials

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

// UserToken derives tokens from the account itself. Nothing is stored: a
// token stops resolving as soon as the password hash, email or state of its
// user changes, which makes activation and reset tokens single-use.
type UserToken struct {
	users  UserGateway
	logger Logger
}

// UserTokenOption customizes a UserToken strategy.
type UserTokenOption func(*UserToken)

// WithUserTokenLogger sets the logger.
func WithUserTokenLogger(logger Logger) UserTokenOption {
	return func(t *UserToken) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewUserToken returns the derived token strategy backed by users.
func NewUserToken(users UserGateway, opts ...UserTokenOption) *UserToken {
	t := &UserToken{
		users:  users,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

var (
	_ TokenStrategy      = (*UserToken)(nil)
	_ ActivationReplayer = (*UserToken)(nil)
)

func (t *UserToken) Generate(ctx context.Context, userID string) (string, error) {
	user, err := t.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUnknownUser
		}
		return "", wrapInternal(err, "failed to load user for token generation")
	}

	raw := user.ID + "." + userDigest(user)
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

func (t *UserToken) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	id, digest, ok := splitUserToken(token)
	if !ok {
		return "", ErrInvalidToken
	}

	user, err := t.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", wrapInternal(err, "failed to load user for token resolution")
	}

	if subtle.ConstantTimeCompare([]byte(digest), []byte(userDigest(user))) != 1 {
		t.logger.Debug("stale token presented for user %s", user)
		return "", ErrInvalidToken
	}

	return user.ID, nil
}

// MatchesInactive checks token against the record of its ACTIVE user as it
// was before activation.
func (t *UserToken) MatchesInactive(ctx context.Context, token string) (bool, error) {
	id, digest, ok := splitUserToken(token)
	if !ok {
		return false, nil
	}

	user, err := t.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, wrapInternal(err, "failed to load user for token replay")
	}

	if !user.IsActive() {
		return false, nil
	}

	inactive := user.WithState(StateInactive)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(userDigest(inactive))) == 1, nil
}

// Invalidate is a no-op: changing the user record invalidates the token.
func (t *UserToken) Invalidate(context.Context, string) error {
	return nil
}

func splitUserToken(token string) (id, digest string, ok bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", false
	}

	id, digest, found := strings.Cut(string(raw), ".")
	if !found || id == "" || digest == "" {
		return "", "", false
	}
	return id, digest, true
}

func userDigest(u *User) string {
	sum := sha512.Sum512([]byte(u.ID + u.PasswordHash + u.Email + strconv.Itoa(int(u.State))))
	return hex.EncodeToString(sum[:])
}
