package credentials

import (
	"context"
	"errors"
	"strings"
)

// Registration creates INACTIVE accounts and issues their activation token.
type Registration struct {
	users        UserGateway
	tokens       TokenStrategy
	hasher       PasswordHasher
	validator    Validator
	logger       Logger
	activitySink ActivitySink
}

// NewRegistration returns a Registration backed by users.
func NewRegistration(users UserGateway, opts ...Option) *Registration {
	return newRegistration(users, newSettings(opts))
}

func newRegistration(users UserGateway, s *settings) *Registration {
	return &Registration{
		users:        users,
		tokens:       s.tokenStrategy(users),
		hasher:       s.hasher,
		validator:    s.validator,
		logger:       s.logger,
		activitySink: s.activitySink,
	}
}

// Register validates the input, stores a new INACTIVE user and returns its
// public view with the activation token attached. Email conflicts are
// checked before username conflicts.
func (r *Registration) Register(ctx context.Context, email, username, password, confirmation string) (*User, error) {
	email = strings.ToLower(email)

	if err := r.validator.CheckEmail(email); err != nil {
		return nil, err
	}

	if err := r.validator.CheckUsername(username); err != nil {
		return nil, err
	}

	if err := r.validator.CheckPassword(password); err != nil {
		return nil, err
	}

	if err := r.validator.CheckPasswordConfirmation(password, confirmation); err != nil {
		return nil, err
	}

	if err := r.ensureFree(ctx, r.users.GetByEmail, email, ErrEmailTaken); err != nil {
		return nil, err
	}

	if err := r.ensureFree(ctx, r.users.GetByUsername, username, ErrUsernameTaken); err != nil {
		return nil, err
	}

	hash, err := r.hasher.HashPassword(password)
	if err != nil {
		r.logger.Error("failed to hash password for %q: %v", username, err)
		return nil, ErrRegistrationFailed
	}

	user, err := r.users.Add(ctx, email, username, StateInactive, hash)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		r.logger.Error("failed to add user %q <%s>: %v", username, email, err)
		return nil, ErrRegistrationFailed
	}

	if user == nil || user.ID == "" {
		r.logger.Error("gateway returned no identity for new user %q", username)
		return nil, ErrRegistrationFailed
	}

	token, err := r.tokens.Generate(ctx, user.ID)
	if err != nil {
		r.logger.Error("failed to generate activation token for user %s: %v", user, err)
		return nil, err
	}

	emitActivity(ctx, r.activitySink, r.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID,
		ToState:   user.State,
	})

	r.logger.Info("registered user %s", user)

	return user.Public().WithToken(token), nil
}

type lookupFunc func(ctx context.Context, value string) (*User, error)

func (r *Registration) ensureFree(ctx context.Context, lookup lookupFunc, value string, conflict error) error {
	existing, err := lookup(ctx, value)
	if err == nil && existing != nil {
		return conflict
	}

	if err != nil && !errors.Is(err, ErrUserNotFound) {
		r.logger.Error("uniqueness check failed for %q: %v", value, err)
		return wrapInternal(err, "failed to check uniqueness")
	}
	return nil
}
