package credentials_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-credentials"
	"github.com/goliatone/go-credentials/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	user := seedUser(t, gw, "a@example.com", "alice", credentials.StateInactive)

	strategy := credentials.NewUserToken(gw)

	token, err := strategy.Generate(ctx, user.ID)
	require.NoError(t, err)
	assert.NotContains(t, token, "=")

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), user.ID+"."))

	again, err := strategy.Generate(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, token, again, "derived tokens are deterministic")

	id, err := strategy.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	assert.NoError(t, strategy.Invalidate(ctx, token))
	id, err = strategy.Resolve(ctx, token)
	require.NoError(t, err, "invalidate is a no-op for derived tokens")
	assert.Equal(t, user.ID, id)
}

func TestUserTokenInvalidAfterUserChanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ctx context.Context, gw *memory.Gateway, id string)
	}{
		{
			name: "password change",
			mutate: func(ctx context.Context, gw *memory.Gateway, id string) {
				_, _ = gw.UpdatePassword(ctx, id, "new-hash")
			},
		},
		{
			name: "state change",
			mutate: func(ctx context.Context, gw *memory.Gateway, id string) {
				_, _ = gw.UpdateState(ctx, id, credentials.StateActive)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gw := memory.New()
			user := seedUser(t, gw, "a@example.com", "alice", credentials.StateInactive)
			strategy := credentials.NewUserToken(gw, credentials.WithUserTokenLogger(newRecordingLogger()))

			token, err := strategy.Generate(ctx, user.ID)
			require.NoError(t, err)

			tt.mutate(ctx, gw, user.ID)

			_, err = strategy.Resolve(ctx, token)
			assert.ErrorIs(t, err, credentials.ErrInvalidToken)
		})
	}
}

func TestUserTokenRejectsMalformedTokens(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	user := seedUser(t, gw, "a@example.com", "alice", credentials.StateInactive)
	strategy := credentials.NewUserToken(gw, credentials.WithUserTokenLogger(newRecordingLogger()))

	encode := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	for name, token := range map[string]string{
		"empty":         "",
		"not base64":    "%%%",
		"no separator":  encode(user.ID),
		"unknown user":  encode("missing.abcdef"),
		"wrong digest":  encode(user.ID + ".deadbeef"),
		"empty id part": encode(".abcdef"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := strategy.Resolve(ctx, token)
			assert.ErrorIs(t, err, credentials.ErrInvalidToken)
		})
	}
}

func TestUserTokenGenerateForMissingUser(t *testing.T) {
	strategy := credentials.NewUserToken(memory.New())
	_, err := strategy.Generate(context.Background(), "nope")
	assert.ErrorIs(t, err, credentials.ErrUnknownUser)
}

func TestUserTokenMatchesInactive(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	user := seedUser(t, gw, "a@example.com", "alice", credentials.StateInactive)
	strategy := credentials.NewUserToken(gw)

	token, err := strategy.Generate(ctx, user.ID)
	require.NoError(t, err)

	ok, err := strategy.MatchesInactive(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok, "user is still inactive")

	_, err = gw.UpdateState(ctx, user.ID, credentials.StateActive)
	require.NoError(t, err)

	_, err = strategy.Resolve(ctx, token)
	assert.ErrorIs(t, err, credentials.ErrInvalidToken)

	ok, err = strategy.MatchesInactive(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	forged := base64.RawURLEncoding.EncodeToString([]byte(user.ID + ".deadbeef"))
	for _, bad := range []string{"%%%", forged, base64.RawURLEncoding.EncodeToString([]byte("no-separator"))} {
		ok, err = strategy.MatchesInactive(ctx, bad)
		require.NoError(t, err)
		assert.False(t, ok, bad)
	}

	hash, err := testHasher().HashPassword("Other1!pass")
	require.NoError(t, err)
	_, err = gw.UpdatePassword(ctx, user.ID, hash)
	require.NoError(t, err)

	ok, err = strategy.MatchesInactive(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok, "a changed password invalidates the replay")
}

func TestRandomTokenGenerate(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()

	strategy := credentials.NewRandomToken(gw)

	first, err := strategy.Generate(ctx, "user-1")
	require.NoError(t, err)
	second, err := strategy.Generate(ctx, "user-1")
	require.NoError(t, err)

	assert.Len(t, first, credentials.DefaultRandomTokenLength)
	assert.NotEqual(t, first, second)

	short := credentials.NewRandomToken(gw, credentials.WithTokenLength(16))
	token, err := short.Generate(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, token, 16)
}

func TestRandomTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	strategy := credentials.NewRandomToken(gw)

	token, err := strategy.Generate(ctx, "user-1")
	require.NoError(t, err)

	id, err := strategy.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	require.NoError(t, strategy.Invalidate(ctx, token))

	_, err = strategy.Resolve(ctx, token)
	assert.ErrorIs(t, err, credentials.ErrInvalidToken)
}

func TestRandomTokenIsolation(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	strategy := credentials.NewRandomToken(gw)

	mine, err := strategy.Generate(ctx, "user-1")
	require.NoError(t, err)
	theirs, err := strategy.Generate(ctx, "user-2")
	require.NoError(t, err)

	require.NoError(t, strategy.Invalidate(ctx, theirs))

	id, err := strategy.Resolve(ctx, mine)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestRandomTokenRevokeUserTokens(t *testing.T) {
	ctx := context.Background()
	gw := memory.New()
	strategy := credentials.NewRandomToken(gw)

	a, _ := strategy.Generate(ctx, "user-1")
	b, _ := strategy.Generate(ctx, "user-1")
	other, _ := strategy.Generate(ctx, "user-2")

	require.NoError(t, strategy.RevokeUserTokens(ctx, "user-1"))

	for _, tok := range []string{a, b} {
		_, err := strategy.Resolve(ctx, tok)
		assert.ErrorIs(t, err, credentials.ErrInvalidToken)
	}

	id, err := strategy.Resolve(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "user-2", id)
}

func TestRandomTokenGatewayFailures(t *testing.T) {
	ctx := context.Background()
	gw := &MockGateway{}
	boom := errors.New("db down")

	gw.On("StoreToken", mock.Anything, mock.Anything, "user-1").Return(boom).Once()
	gw.On("FindToken", mock.Anything, "tok").Return("", boom).Once()

	strategy := credentials.NewRandomToken(gw)

	_, err := strategy.Generate(ctx, "user-1")
	require.Error(t, err)
	assert.True(t, credentials.IsDataIntegrityError(err))

	_, err = strategy.Resolve(ctx, "tok")
	require.Error(t, err)
	assert.True(t, credentials.IsDataIntegrityError(err))

	gw.AssertExpectations(t)
}
