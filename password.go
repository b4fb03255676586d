package credentials

import (
	"context"
	"errors"
	"strings"
)

// PasswordService issues reset tokens, consumes them, and changes the
// password of the logged in user.
type PasswordService struct {
	users        UserGateway
	login        *Login
	tokens       TokenStrategy
	stateMachine UserStateMachine
	hasher       PasswordHasher
	validator    Validator
	logger       Logger
	activitySink ActivitySink
}

// NewPasswordService returns a PasswordService. login provides the session
// used by ChangePassword and refreshed after ResetPassword.
func NewPasswordService(users UserGateway, login *Login, opts ...Option) *PasswordService {
	return newPasswordService(users, login, newSettings(opts))
}

func newPasswordService(users UserGateway, login *Login, s *settings) *PasswordService {
	if login == nil {
		login = newLogin(users, s)
	}
	return &PasswordService{
		users:        users,
		login:        login,
		tokens:       s.tokenStrategy(users),
		stateMachine: s.userStateMachine(users),
		hasher:       s.hasher,
		validator:    s.validator,
		logger:       s.logger,
		activitySink: s.activitySink,
	}
}

// GenToken issues a reset token for the account registered with email and
// returns the public view of the user carrying it.
func (p *PasswordService) GenToken(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, ErrMissingIdentifier
	}

	user, err := p.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			p.logger.Debug("password reset requested for unknown email %q", email)
			return nil, ErrUserNotFound
		}
		return nil, wrapInternal(err, "failed to load user")
	}

	if _, err := checkTokenState(user.State); err != nil {
		if errors.Is(err, ErrUnexpectedState) {
			p.logger.Error("user %s has unexpected state %d", user, user.State)
		}
		return nil, err
	}

	token, err := p.tokens.Generate(ctx, user.ID)
	if err != nil {
		p.logger.Error("failed to generate reset token for user %s: %v", user, err)
		return nil, err
	}

	emitActivity(ctx, p.activitySink, p.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetRequested,
		UserID:    user.ID,
	})

	return user.Public().WithToken(token), nil
}

// ResetPassword sets a new password for the owner of token. An INACTIVE owner
// is activated first. The token and every other outstanding token of the
// user stop resolving afterwards.
//
// The two writes are not atomic. If storing the password fails after the
// activation, the account stays ACTIVE with its old password and
// ErrPasswordUpdateFailed is returned. A stored random token remains usable
// for a retry, a derived token does not since the state changed. An INACTIVE
// account never ends up with the new password.
func (p *PasswordService) ResetPassword(ctx context.Context, token, password, confirmation string) (*User, error) {
	if err := p.validator.CheckPassword(password); err != nil {
		return nil, err
	}

	if err := p.validator.CheckPasswordConfirmation(password, confirmation); err != nil {
		return nil, err
	}

	if token == "" {
		return nil, ErrMissingToken
	}

	userID, err := p.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			p.logger.Error("reset token resolved to missing user %s", userID)
			return nil, ErrUnknownUser
		}
		return nil, wrapInternal(err, "failed to load user")
	}

	active, err := checkTokenState(user.State)
	if err != nil {
		if errors.Is(err, ErrUnexpectedState) {
			p.logger.Error("user %s has unexpected state %d", user, user.State)
		}
		return nil, err
	}

	hash, err := p.hasher.HashPassword(password)
	if err != nil {
		p.logger.Error("failed to hash password for user %s: %v", user, err)
		return nil, ErrPasswordUpdateFailed
	}

	if !active {
		user, err = p.stateMachine.Transition(ctx, ActorRef{ID: user.ID, Type: "user"}, user, StateActive,
			WithTransitionReason("password_reset"),
		)
		if err != nil {
			return nil, err
		}
	}

	user, err = p.storePassword(ctx, user, hash)
	if err != nil {
		return nil, err
	}

	if err := p.tokens.Invalidate(ctx, token); err != nil {
		p.logger.Warn("failed to invalidate reset token of user %s: %v", user, err)
	}
	revokeUserTokens(ctx, p.tokens, p.logger, user.ID)

	if p.login.storedUserID(ctx) == user.ID {
		if err := p.login.startSession(ctx, user); err != nil {
			p.logger.Warn("failed to refresh session of user %s: %v", user, err)
		}
	}

	emitActivity(ctx, p.activitySink, p.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		UserID:    user.ID,
	})

	return user.Public(), nil
}

// ChangePassword replaces the password of the logged in user. A wrong old
// password returns ErrPasswordChangeFailed.
func (p *PasswordService) ChangePassword(ctx context.Context, oldPassword, password, confirmation string) (*User, error) {
	user, err := p.login.sessionUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.validator.CheckPassword(password); err != nil {
		return nil, err
	}

	if err := p.validator.CheckPasswordConfirmation(password, confirmation); err != nil {
		return nil, err
	}

	if oldPassword == "" {
		return nil, ErrPasswordChangeFailed
	}

	if err := p.hasher.ComparePasswordAndHash(oldPassword, user.PasswordHash); err != nil {
		p.logger.Debug("password change rejected for user %s: %v", user, err)
		return nil, ErrPasswordChangeFailed
	}

	hash, err := p.hasher.HashPassword(password)
	if err != nil {
		p.logger.Error("failed to hash password for user %s: %v", user, err)
		return nil, ErrPasswordChangeFailed
	}

	user, err = p.storePassword(ctx, user, hash)
	if err != nil {
		return nil, err
	}

	revokeUserTokens(ctx, p.tokens, p.logger, user.ID)

	if err := p.login.startSession(ctx, user); err != nil {
		p.logger.Warn("failed to refresh session of user %s: %v", user, err)
	}

	emitActivity(ctx, p.activitySink, p.logger, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		UserID:    user.ID,
	})

	return user.Public(), nil
}

func (p *PasswordService) storePassword(ctx context.Context, user *User, hash string) (*User, error) {
	ok, err := p.users.UpdatePassword(ctx, user.ID, hash)
	if err != nil {
		p.logger.Error("failed to store password for user %s: %v", user, err)
		return nil, ErrPasswordUpdateFailed
	}

	if !ok {
		p.logger.Error("password update for user %s did not apply", user)
		return nil, ErrPasswordUpdateFailed
	}

	return user.WithPassword(hash), nil
}
