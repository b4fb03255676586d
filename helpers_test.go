package credentials_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-credentials"
	"github.com/goliatone/go-credentials/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoEmail    = "demo@example.com"
	demoUsername = "demo"
	demoPassword = "Aa1!aaaa"
)

func testHasher() *credentials.BcryptHasher {
	return credentials.NewBcryptHasher(credentials.WithBcryptCost(bcrypt.MinCost))
}

func testOptions(opts ...credentials.Option) []credentials.Option {
	base := []credentials.Option{
		credentials.WithPasswordHasher(testHasher()),
		credentials.WithLogger(newRecordingLogger()),
	}
	return append(base, opts...)
}

func newTestService(t *testing.T, opts ...credentials.Option) (*credentials.Service, *memory.Gateway) {
	t.Helper()
	gw := memory.New()
	return credentials.NewService(gw, testOptions(opts...)...), gw
}

// seedUser stores a user in the given state with demoPassword.
func seedUser(t *testing.T, gw *memory.Gateway, email, username string, state credentials.UserState) *credentials.User {
	t.Helper()
	hash, err := testHasher().HashPassword(demoPassword)
	require.NoError(t, err)

	user, err := gw.Add(context.Background(), email, username, state, hash)
	require.NoError(t, err)
	return user
}

// registerAndActivate runs the demo registration and activation.
func registerAndActivate(t *testing.T, svc *credentials.Service) *credentials.User {
	t.Helper()
	ctx := context.Background()

	user, err := svc.Register(ctx, demoEmail, demoUsername, demoPassword, demoPassword)
	require.NoError(t, err)

	res, err := svc.Activate(ctx, user.Token)
	require.NoError(t, err)
	require.NotNil(t, res.User)
	return res.User
}
