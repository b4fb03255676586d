package credentials_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	storage := credentials.NewMemoryStorage()

	user, err := storage.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	has, err := storage.Has(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	in := &credentials.User{ID: "u1", Username: "demo", Token: "secret", State: credentials.StateActive}
	require.NoError(t, storage.Set(ctx, in))

	out, err := storage.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "u1", out.ID)
	assert.Empty(t, out.Token, "tokens are never kept in a session")

	out.Username = "changed"
	again, err := storage.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "demo", again.Username)

	require.NoError(t, storage.Remove(ctx))
	has, err = storage.Has(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}
