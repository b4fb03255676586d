// Package memory provides an in-process credentials.Gateway. It enforces the
// same uniqueness rules as the SQL gateway and is meant for tests and demos.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-credentials"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Gateway keeps users and tokens in maps guarded by a single mutex. Every
// value handed out is a copy.
type Gateway struct {
	mu        sync.RWMutex
	users     map[string]*credentials.User
	emails    map[string]string
	usernames map[string]string
	tokens    map[string]string

	newID func(email string) (string, error)
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithHashidIDs derives user ids from the email through hashid, so the same
// email always maps to the same id.
func WithHashidIDs() Option {
	return func(g *Gateway) {
		g.newID = func(email string) (string, error) {
			id, err := hashid.NewUUID(email)
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
	}
}

// WithUsers seeds the gateway with existing records.
func WithUsers(users ...*credentials.User) Option {
	return func(g *Gateway) {
		for _, u := range users {
			if u == nil {
				continue
			}
			g.put(u)
		}
	}
}

// New returns an empty Gateway.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		users:     map[string]*credentials.User{},
		emails:    map[string]string{},
		usernames: map[string]string{},
		tokens:    map[string]string{},
		newID: func(string) (string, error) {
			return uuid.NewString(), nil
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

var _ credentials.Gateway = (*Gateway)(nil)

func (g *Gateway) GetByID(_ context.Context, id string) (*credentials.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.get(id)
}

func (g *Gateway) GetByEmail(_ context.Context, email string) (*credentials.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if email == "" {
		return nil, credentials.ErrUserNotFound
	}
	return g.get(g.emails[normalize(email)])
}

func (g *Gateway) GetByUsername(_ context.Context, username string) (*credentials.User, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.get(g.usernames[normalize(username)])
}

func (g *Gateway) Add(_ context.Context, email, username string, state credentials.UserState, passwordHash string) (*credentials.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if email != "" {
		if _, ok := g.emails[normalize(email)]; ok {
			return nil, credentials.ErrEmailTaken
		}
	}

	if _, ok := g.usernames[normalize(username)]; ok {
		return nil, credentials.ErrUsernameTaken
	}

	id, err := g.newID(email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate user id")
	}

	if _, ok := g.users[id]; ok {
		return nil, credentials.ErrEmailTaken
	}

	user, err := credentials.NewUser(id, username, email, state, passwordHash)
	if err != nil {
		return nil, err
	}

	g.put(user)
	return copyUser(user), nil
}

func (g *Gateway) UpdateState(_ context.Context, id string, state credentials.UserState) (bool, error) {
	if !state.Valid() {
		return false, credentials.ErrUnexpectedState
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	u, ok := g.users[id]
	if !ok {
		return false, nil
	}
	g.users[id] = u.WithState(state)
	return true, nil
}

func (g *Gateway) UpdatePassword(_ context.Context, id, passwordHash string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, ok := g.users[id]
	if !ok {
		return false, nil
	}
	g.users[id] = u.WithPassword(passwordHash)
	return true, nil
}

func (g *Gateway) StoreToken(_ context.Context, token, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens[token] = userID
	return nil
}

func (g *Gateway) FindToken(_ context.Context, token string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	id, ok := g.tokens[token]
	if !ok {
		return "", credentials.ErrTokenNotFound
	}
	return id, nil
}

func (g *Gateway) DeleteToken(_ context.Context, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tokens, token)
	return nil
}

func (g *Gateway) DeleteUserTokens(_ context.Context, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for token, id := range g.tokens {
		if id == userID {
			delete(g.tokens, token)
		}
	}
	return nil
}

// Len returns the number of stored users.
func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.users)
}

func (g *Gateway) get(id string) (*credentials.User, error) {
	u, ok := g.users[id]
	if !ok || id == "" {
		return nil, credentials.ErrUserNotFound
	}
	return copyUser(u), nil
}

// put must be called with the lock held.
func (g *Gateway) put(u *credentials.User) {
	stored := copyUser(u)
	stored.Token = ""

	g.users[stored.ID] = stored
	if stored.Email != "" {
		g.emails[normalize(stored.Email)] = stored.ID
	}
	g.usernames[normalize(stored.Username)] = stored.ID
}

func copyUser(u *credentials.User) *credentials.User {
	c := *u
	return &c
}

func normalize(s string) string {
	return strings.ToLower(s)
}
