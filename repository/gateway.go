// Package repository implements credentials.Gateway on top of Bun. Users go
// through go-repository-bun; token rows and conditional updates use Bun
// queries directly so affected row counts can be reported.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-credentials"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Gateway is the SQL backed credentials.Gateway.
type Gateway struct {
	db    *bun.DB
	users repository.Repository[*UserRecord]
	now   func() time.Time
	newID func(email string) (uuid.UUID, error)
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithClock sets the time source for bookkeeping columns.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithHashidIDs derives user ids from the email through hashid. Accounts
// without email fall back to random ids.
func WithHashidIDs() Option {
	return func(g *Gateway) {
		g.newID = func(email string) (uuid.UUID, error) {
			if email == "" {
				return uuid.New(), nil
			}
			return hashid.NewUUID(email)
		}
	}
}

// NewGateway returns a Gateway. The schema is expected to be in place, see Migrate.
func NewGateway(db *bun.DB, opts ...Option) *Gateway {
	g := &Gateway{
		db:    db,
		users: NewUsersRepository(db),
		now:   time.Now,
		newID: func(string) (uuid.UUID, error) {
			return uuid.New(), nil
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// NewUsersRepository returns the generic repository for UserRecord.
func NewUsersRepository(db *bun.DB) repository.Repository[*UserRecord] {
	handlers := repository.ModelHandlers[*UserRecord]{
		NewRecord: func() *UserRecord {
			return &UserRecord{}
		},
		GetID: func(record *UserRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *UserRecord, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	}
	return repository.NewRepository(db, handlers)
}

var _ credentials.Gateway = (*Gateway)(nil)

func (g *Gateway) GetByID(ctx context.Context, id string) (*credentials.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, credentials.ErrUserNotFound
	}

	record, err := g.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "failed to load user by id")
	}
	return record.toUser()
}

func (g *Gateway) GetByEmail(ctx context.Context, email string) (*credentials.User, error) {
	if email == "" {
		return nil, credentials.ErrUserNotFound
	}
	return g.getByLower(ctx, "email", email)
}

func (g *Gateway) GetByUsername(ctx context.Context, username string) (*credentials.User, error) {
	if username == "" {
		return nil, credentials.ErrUserNotFound
	}
	return g.getByLower(ctx, "username", username)
}

func (g *Gateway) getByLower(ctx context.Context, column, value string) (*credentials.User, error) {
	record := &UserRecord{}
	err := g.db.NewSelect().
		Model(record).
		Where("LOWER(?) = ?", bun.Ident("usr."+column), strings.ToLower(value)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "failed to load user by "+column)
	}
	return record.toUser()
}

func (g *Gateway) Add(ctx context.Context, email, username string, state credentials.UserState, passwordHash string) (*credentials.User, error) {
	if !state.Valid() {
		return nil, credentials.ErrUnexpectedState
	}

	id, err := g.newID(email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate user id")
	}

	record := &UserRecord{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		State:        int(state),
		CreatedAt:    g.now(),
	}

	created, err := g.users.Create(ctx, record)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return nil, conflict
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user")
	}
	return created.toUser()
}

func (g *Gateway) UpdateState(ctx context.Context, id string, state credentials.UserState) (bool, error) {
	if !state.Valid() {
		return false, credentials.ErrUnexpectedState
	}

	res, err := g.db.NewUpdate().
		Model((*UserRecord)(nil)).
		Set("state = ?", int(state)).
		Set("updated_at = ?", g.now()).
		Where("id = ?", id).
		Exec(ctx)
	return affected(res, err, "failed to update user state")
}

func (g *Gateway) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	now := g.now()
	res, err := g.db.NewUpdate().
		Model((*UserRecord)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("password_changed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return affected(res, err, "failed to update user password")
}

func (g *Gateway) StoreToken(ctx context.Context, token, userID string) error {
	record := &TokenRecord{
		Token:     token,
		UserID:    userID,
		CreatedAt: g.now(),
	}

	if _, err := g.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store token")
	}
	return nil
}

func (g *Gateway) FindToken(ctx context.Context, token string) (string, error) {
	record := &TokenRecord{}
	err := g.db.NewSelect().
		Model(record).
		Where("token = ?", token).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", credentials.ErrTokenNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to find token")
	}
	return record.UserID, nil
}

func (g *Gateway) DeleteToken(ctx context.Context, token string) error {
	_, err := g.db.NewDelete().
		Model((*TokenRecord)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete token")
	}
	return nil
}

func (g *Gateway) DeleteUserTokens(ctx context.Context, userID string) error {
	_, err := g.db.NewDelete().
		Model((*TokenRecord)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user tokens")
	}
	return nil
}

func notFoundOr(err error, message string) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return credentials.ErrUserNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}

func affected(res sql.Result, err error, message string) (bool, error) {
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, message)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, message)
	}
	return n == 1, nil
}

// uniqueConflict maps unique index violations from SQLite and Postgres to the
// credentials conflict errors.
func uniqueConflict(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique constraint") && !strings.Contains(msg, "duplicate key") {
		return nil
	}

	switch {
	case strings.Contains(msg, "email"):
		return credentials.ErrEmailTaken
	case strings.Contains(msg, "username"):
		return credentials.ErrUsernameTaken
	case strings.Contains(msg, "users.id"), strings.Contains(msg, "users_pkey"):
		// hashid ids collide only when the email is already registered
		return credentials.ErrEmailTaken
	default:
		return nil
	}
}
