package credentials

import (
	"context"
	"errors"
)

// Service wires the workflows around one Gateway. It is safe to share the
// gateway-facing parts across requests; the session is bound to the
// SecretStorage given at construction or through ForStorage.
type Service struct {
	gateway  Gateway
	settings *settings

	login        *Login
	registration *Registration
	activation   *Activation
	passwords    *PasswordService
}

// NewService returns a Service. Without WithTokenStrategy the derived
// UserToken strategy is used.
func NewService(gateway Gateway, opts ...Option) *Service {
	return newService(gateway, newSettings(opts))
}

func newService(gateway Gateway, s *settings) *Service {
	s.tokenStrategy(gateway)
	s.userStateMachine(gateway)

	login := newLogin(gateway, s)
	return &Service{
		gateway:      gateway,
		settings:     s,
		login:        login,
		registration: newRegistration(gateway, s),
		activation:   newActivation(gateway, login, s),
		passwords:    newPasswordService(gateway, login, s),
	}
}

// ForStorage returns a Service sharing every collaborator except the session
// store, which is replaced by storage.
func (s *Service) ForStorage(storage SecretStorage) *Service {
	cp := *s.settings
	cp.storage = storage
	if cp.storage == nil {
		cp.storage = NewMemoryStorage()
	}
	return newService(s.gateway, &cp)
}

// Tokens returns the configured TokenStrategy.
func (s *Service) Tokens() TokenStrategy {
	return s.settings.tokens
}

func (s *Service) Register(ctx context.Context, email, username, password, confirmation string) (*User, error) {
	return s.registration.Register(ctx, email, username, password, confirmation)
}

func (s *Service) Activate(ctx context.Context, token string) (ActivationResult, error) {
	return s.activation.Activate(ctx, token)
}

func (s *Service) Login(ctx context.Context, identifier, password string) (*User, error) {
	return s.login.Login(ctx, identifier, password)
}

func (s *Service) GetUser(ctx context.Context) (*User, error) {
	return s.login.GetUser(ctx)
}

func (s *Service) Logout(ctx context.Context) error {
	return s.login.Logout(ctx)
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (*User, error) {
	return s.passwords.GenToken(ctx, email)
}

func (s *Service) ResetPassword(ctx context.Context, token, password, confirmation string) (*User, error) {
	return s.passwords.ResetPassword(ctx, token, password, confirmation)
}

func (s *Service) ChangePassword(ctx context.Context, oldPassword, password, confirmation string) (*User, error) {
	return s.passwords.ChangePassword(ctx, oldPassword, password, confirmation)
}

// Block locks the account. Sessions of the user end on their next GetUser.
func (s *Service) Block(ctx context.Context, actor ActorRef, userID string, opts ...TransitionOption) (*User, error) {
	return s.transition(ctx, actor, userID, StateBlocked, opts...)
}

// Unblock reactivates a blocked account.
func (s *Service) Unblock(ctx context.Context, actor ActorRef, userID string, opts ...TransitionOption) (*User, error) {
	return s.transition(ctx, actor, userID, StateActive, opts...)
}

func (s *Service) transition(ctx context.Context, actor ActorRef, userID string, target UserState, opts ...TransitionOption) (*User, error) {
	user, err := s.gateway.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, wrapInternal(err, "failed to load user")
	}

	if target == StateActive && user.State != StateBlocked {
		return nil, ErrInvalidTransition
	}

	updated, err := s.settings.stateMachine.Transition(ctx, actor, user, target, opts...)
	if err != nil {
		return nil, err
	}

	if target == StateBlocked {
		revokeUserTokens(ctx, s.settings.tokens, s.settings.logger, user.ID)
	}

	return updated.Public(), nil
}
