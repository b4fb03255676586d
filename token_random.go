package credentials

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// DefaultRandomTokenLength is the number of characters in a random token.
const DefaultRandomTokenLength = 128

// RandomToken issues opaque random tokens and keeps the token to user
// mapping in a TokenGateway. Tokens are removed when invalidated.
type RandomToken struct {
	tokens TokenGateway
	length int
	logger Logger
}

// RandomTokenOption customizes a RandomToken strategy.
type RandomTokenOption func(*RandomToken)

// WithTokenLength sets the token length. Non-positive values are ignored.
func WithTokenLength(length int) RandomTokenOption {
	return func(t *RandomToken) {
		if length > 0 {
			t.length = length
		}
	}
}

// WithRandomTokenLogger sets the logger.
func WithRandomTokenLogger(logger Logger) RandomTokenOption {
	return func(t *RandomToken) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewRandomToken returns the stored token strategy.
func NewRandomToken(tokens TokenGateway, opts ...RandomTokenOption) *RandomToken {
	t := &RandomToken{
		tokens: tokens,
		length: DefaultRandomTokenLength,
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
	_ TokenStrategy    = (*RandomToken)(nil)
	_ UserTokenRevoker = (*RandomToken)(nil)
)

func (t *RandomToken) Generate(ctx context.Context, userID string) (string, error) {
	token, err := randomString(t.length)
	if err != nil {
		return "", err
	}

	if err := t.tokens.StoreToken(ctx, token, userID); err != nil {
		return "", wrapInternal(err, "failed to store token")
	}

	return token, nil
}

func (t *RandomToken) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	userID, err := t.tokens.FindToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrInvalidToken
		}
		return "", wrapInternal(err, "failed to look up token")
	}

	return userID, nil
}

func (t *RandomToken) Invalidate(ctx context.Context, token string) error {
	if err := t.tokens.DeleteToken(ctx, token); err != nil {
		return wrapInternal(err, "failed to delete token")
	}
	return nil
}

func (t *RandomToken) RevokeUserTokens(ctx context.Context, userID string) error {
	if err := t.tokens.DeleteUserTokens(ctx, userID); err != nil {
		return wrapInternal(err, "failed to delete user tokens")
	}
	return nil
}

// randomString reads from crypto/rand only; a failing source is an error.
func randomString(length int) (string, error) {
	buf := make([]byte, base64.RawURLEncoding.DecodedLen(length)+1)
	if _, err := rand.Read(buf); err != nil {
		return "", wrapInternal(err, "failed to read random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
