package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Login authenticates credentials and owns the session of one caller.
// The session lives in the configured SecretStorage; a Login value is meant
// to be scoped to a single user agent.
type Login struct {
	users        UserGateway
	hasher       PasswordHasher
	storage      SecretStorage
	logger       Logger
	activitySink ActivitySink

	mu      sync.Mutex
	current *User

	dummy *dummyHash
}

// dummyHash is compared against when no real hash exists. It is built once
// per settings and shared by every Login derived from them.
type dummyHash struct {
	once sync.Once
	hash string
}

// NewLogin returns a Login backed by users.
func NewLogin(users UserGateway, opts ...Option) *Login {
	return newLogin(users, newSettings(opts))
}

func newLogin(users UserGateway, s *settings) *Login {
	return &Login{
		users:        users,
		hasher:       s.hasher,
		storage:      s.storage,
		logger:       s.logger,
		activitySink: s.activitySink,
		dummy:        s.dummy,
	}
}

// Login checks identifier and password and starts a session. The identifier
// is treated as an email when it contains "@" past the first character.
// Unknown identifiers and wrong passwords both return ErrInvalidCredentials.
func (l *Login) Login(ctx context.Context, identifier, password string) (*User, error) {
	if identifier == "" {
		return nil, ErrMissingIdentifier
	}

	if password == "" {
		return nil, ErrMissingPassword
	}

	user, err := l.lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			l.logger.Debug("login attempt for unknown identifier %q", identifier)
			l.compareDummy(password)
			l.recordFailure(ctx, "", "unknown_identifier")
			return nil, ErrInvalidCredentials
		}
		l.logger.Error("login lookup failed for %q: %v", identifier, err)
		return nil, wrapInternal(err, "failed to load user")
	}

	if user.PasswordHash == "" {
		l.logger.Debug("login attempt for user %s without password", user)
		l.compareDummy(password)
		l.recordFailure(ctx, user.ID, "no_password")
		return nil, ErrInvalidCredentials
	}

	if err := l.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			l.logger.Error("password compare failed for user %s: %v", user, err)
		}
		l.recordFailure(ctx, user.ID, "wrong_password")
		return nil, ErrInvalidCredentials
	}

	if err := checkLoginState(user.State); err != nil {
		if errors.Is(err, ErrUnexpectedState) {
			l.logger.Error("user %s has unexpected state %d", user, user.State)
		}
		l.recordFailure(ctx, user.ID, user.State.String())
		return nil, err
	}

	user = l.rehash(ctx, user, password)

	if err := l.startSession(ctx, user); err != nil {
		return nil, err
	}

	emitActivity(ctx, l.activitySink, l.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID,
	})

	return user.Public(), nil
}

// GetUser returns the logged in user or ErrNotLoggedIn. A changed password
// hash or a state other than ACTIVE ends the session.
func (l *Login) GetUser(ctx context.Context) (*User, error) {
	user, err := l.sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// Logout clears the session unconditionally.
func (l *Login) Logout(ctx context.Context) error {
	l.mu.Lock()
	prev := l.current
	l.current = nil
	l.mu.Unlock()

	if err := l.storage.Remove(ctx); err != nil {
		return wrapInternal(err, "failed to remove session")
	}

	if prev != nil {
		emitActivity(ctx, l.activitySink, l.logger, ActivityEvent{
			EventType: ActivityEventLogout,
			UserID:    prev.ID,
		})
	}
	return nil
}

func (l *Login) lookup(ctx context.Context, identifier string) (*User, error) {
	if strings.Index(identifier, "@") > 0 {
		return l.users.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return l.users.GetByUsername(ctx, identifier)
}

// sessionUser returns the full record of the logged in user. The session is
// checked against the gateway on every call.
func (l *Login) sessionUser(ctx context.Context) (*User, error) {
	l.mu.Lock()
	candidate := l.current
	l.mu.Unlock()

	if candidate == nil {
		stored, err := l.storage.Get(ctx)
		if err != nil {
			return nil, wrapInternal(err, "failed to read session")
		}
		if stored == nil {
			return nil, ErrNotLoggedIn
		}
		candidate = stored
	}

	fresh, err := l.users.GetByID(ctx, candidate.ID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, wrapInternal(err, "failed to load session user")
	}

	if fresh == nil || fresh.State != StateActive || fresh.PasswordHash != candidate.PasswordHash {
		l.logger.Info("discarding stale session for user %s", candidate)
		l.mu.Lock()
		l.current = nil
		l.mu.Unlock()
		if err := l.storage.Remove(ctx); err != nil {
			l.logger.Warn("failed to remove stale session: %v", err)
		}
		return nil, ErrNotLoggedIn
	}

	l.mu.Lock()
	l.current = fresh
	l.mu.Unlock()

	return fresh.clone(), nil
}

// storedUserID returns the id of the session owner without revalidating it.
func (l *Login) storedUserID(ctx context.Context) string {
	l.mu.Lock()
	current := l.current
	l.mu.Unlock()

	if current != nil {
		return current.ID
	}

	stored, err := l.storage.Get(ctx)
	if err != nil || stored == nil {
		return ""
	}
	return stored.ID
}

// startSession replaces any previous session with user.
func (l *Login) startSession(ctx context.Context, user *User) error {
	user = user.WithToken("")
	if err := l.storage.Set(ctx, user); err != nil {
		return wrapInternal(err, "failed to store session")
	}

	l.mu.Lock()
	l.current = user
	l.mu.Unlock()
	return nil
}

func (l *Login) rehash(ctx context.Context, user *User, password string) *User {
	if !l.hasher.NeedsRehash(user.PasswordHash) {
		return user
	}

	hash, err := l.hasher.HashPassword(password)
	if err != nil {
		l.logger.Warn("rehash failed for user %s: %v", user, err)
		return user
	}

	ok, err := l.users.UpdatePassword(ctx, user.ID, hash)
	if err != nil || !ok {
		l.logger.Warn("rehash was not stored for user %s: %v", user, err)
		return user
	}

	return user.WithPassword(hash)
}

// compareDummy spends the same time as a real comparison.
func (l *Login) compareDummy(password string) {
	d := l.dummy
	d.once.Do(func() {
		hash, err := l.hasher.HashPassword("credentials-dummy-password")
		if err != nil {
			l.logger.Warn("failed to prepare dummy hash: %v", err)
		}
		d.hash = hash
	})

	if d.hash != "" {
		_ = l.hasher.ComparePasswordAndHash(password, d.hash)
	}
}

func (l *Login) recordFailure(ctx context.Context, userID, reason string) {
	emitActivity(ctx, l.activitySink, l.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		UserID:    userID,
		Metadata:  map[string]any{"reason": reason},
	})
}
