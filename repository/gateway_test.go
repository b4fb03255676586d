package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupGateway(t *testing.T, opts ...Option) (*Gateway, *bun.DB) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	applied, err := Migrate(context.Background(), bunDB)
	require.NoError(t, err)
	require.Len(t, applied, 2)

	return NewGateway(bunDB, opts...), bunDB
}

func TestMigrateIsIdempotent(t *testing.T) {
	_, db := setupGateway(t)

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestGatewayAddAndLookup(t *testing.T) {
	ctx := context.Background()
	gw, _ := setupGateway(t)

	user, err := gw.Add(ctx, "Demo@Example.com", "Demo", credentials.StateInactive, "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, credentials.StateInactive, user.State)

	byID, err := gw.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Demo", byID.Username)
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := gw.GetByEmail(ctx, "demo@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := gw.GetByUsername(ctx, "dEMO")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
}

func TestGatewayNotFound(t *testing.T) {
	ctx := context.Background()
	gw, _ := setupGateway(t)

	_, err := gw.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, credentials.ErrUserNotFound)

	_, err = gw.GetByID(ctx, "6f1c4f5e-8a1b-4a57-9a57-1d2f0b7f4a11")
	assert.ErrorIs(t, err, credentials.ErrUserNotFound)

	_, err = gw.GetByEmail(ctx, "")
	assert.ErrorIs(t, err, credentials.ErrUserNotFound)

	_, err = gw.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, credentials.ErrUserNotFound)
}

func TestGatewayUniqueIndexes(t *testing.T) {
	ctx := context.Background()
	gw, _ := setupGateway(t)

	_, err := gw.Add(ctx, "demo@example.com", "demo", credentials.StateInactive, "hash")
	require.NoError(t, err)

	_, err = gw.Add(ctx, "DEMO@example.com", "other", credentials.StateInactive, "hash")
	assert.ErrorIs(t, err, credentials.ErrEmailTaken)

	_, err = gw.Add(ctx, "other@example.com", "DEMO", credentials.StateInactive, "hash")
	assert.ErrorIs(t, err, credentials.ErrUsernameTaken)
}

func TestGatewayHashidIDs(t *testing.T) {
	ctx := context.Background()
	gw, _ := setupGateway(t, WithHashidIDs())

	user, err := gw.Add(ctx, "demo@example.com", "demo", credentials.StateInactive, "hash")
	require.NoError(t, err)

	_, err = gw.Add(ctx, "demo@example.com", "again", credentials.StateInactive, "hash")
	assert.ErrorIs(t, err, credentials.ErrEmailTaken)

	loaded, err := gw.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo", loaded.Username)
}

func TestGatewayUpdates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	gw, db := setupGateway(t, WithClock(func() time.Time { return now }))

	user, err := gw.Add(ctx, "demo@example.com", "demo", credentials.StateInactive, "old")
	require.NoError(t, err)

	ok, err := gw.UpdateState(ctx, user.ID, credentials.StateActive)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gw.UpdatePassword(ctx, user.ID, "new")
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := gw.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, credentials.StateActive, loaded.State)
	assert.Equal(t, "new", loaded.PasswordHash)

	record := &UserRecord{}
	require.NoError(t, db.NewSelect().Model(record).Where("id = ?", user.ID).Scan(ctx))
	require.NotNil(t, record.PasswordChangedAt)
	assert.True(t, now.Equal(record.PasswordChangedAt.UTC()))

	ok, err = gw.UpdateState(ctx, "6f1c4f5e-8a1b-4a57-9a57-1d2f0b7f4a11", credentials.StateBlocked)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = gw.UpdatePassword(ctx, "6f1c4f5e-8a1b-4a57-9a57-1d2f0b7f4a11", "x")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = gw.UpdateState(ctx, user.ID, credentials.UserState(9))
	assert.ErrorIs(t, err, credentials.ErrUnexpectedState)
}

func TestGatewayTokens(t *testing.T) {
	ctx := context.Background()
	gw, _ := setupGateway(t)

	first, err := gw.Add(ctx, "one@example.com", "one", credentials.StateActive, "hash")
	require.NoError(t, err)
	second, err := gw.Add(ctx, "two@example.com", "two", credentials.StateActive, "hash")
	require.NoError(t, err)

	require.NoError(t, gw.StoreToken(ctx, "t1", first.ID))
	require.NoError(t, gw.StoreToken(ctx, "t2", first.ID))
	require.NoError(t, gw.StoreToken(ctx, "t3", second.ID))

	id, err := gw.FindToken(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	require.NoError(t, gw.DeleteToken(ctx, "t1"))
	_, err = gw.FindToken(ctx, "t1")
	assert.ErrorIs(t, err, credentials.ErrTokenNotFound)

	require.NoError(t, gw.DeleteUserTokens(ctx, first.ID))
	_, err = gw.FindToken(ctx, "t2")
	assert.ErrorIs(t, err, credentials.ErrTokenNotFound)

	id, err = gw.FindToken(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)
}

func TestGatewayWithService(t *testing.T) {
	ctx := context.Background()
	gw, _ := setupGateway(t)
	svc := credentials.NewService(gw,
		credentials.WithTokenStrategy(credentials.NewRandomToken(gw)),
		credentials.WithPasswordHasher(credentials.NewBcryptHasher(credentials.WithBcryptCost(4))),
	)

	user, err := svc.Register(ctx, "demo@example.com", "demo", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)

	res, err := svc.Activate(ctx, user.Token)
	require.NoError(t, err)
	require.NotNil(t, res.User)

	_, err = svc.Login(ctx, "DEMO@example.com", "Aa1!aaaa")
	require.NoError(t, err)

	_, err = svc.Activate(ctx, user.Token)
	assert.ErrorIs(t, err, credentials.ErrInvalidToken)
}
