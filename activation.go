package credentials

import (
	"context"
	"errors"
)

// ActivationResult is returned by Activate. AlreadyActive is set, and User
// left nil, when the token belongs to an account that is already ACTIVE.
type ActivationResult struct {
	User          *User
	AlreadyActive bool
}

// Activation consumes activation tokens.
type Activation struct {
	users        UserGateway
	tokens       TokenStrategy
	stateMachine UserStateMachine
	login        *Login
	signIn       bool
	logger       Logger
	activitySink ActivitySink
}

// NewActivation returns an Activation backed by users. login is only used
// when WithSignInOnActivation is enabled and may be nil otherwise.
func NewActivation(users UserGateway, login *Login, opts ...Option) *Activation {
	return newActivation(users, login, newSettings(opts))
}

func newActivation(users UserGateway, login *Login, s *settings) *Activation {
	return &Activation{
		users:        users,
		tokens:       s.tokenStrategy(users),
		stateMachine: s.userStateMachine(users),
		login:        login,
		signIn:       s.signIn,
		logger:       s.logger,
		activitySink: s.activitySink,
	}
}

// Activate moves the token owner from INACTIVE to ACTIVE and invalidates the
// token. Replaying a token of an ACTIVE user reports AlreadyActive and
// returns no user data.
func (a *Activation) Activate(ctx context.Context, token string) (ActivationResult, error) {
	if token == "" {
		return ActivationResult{}, ErrMissingToken
	}

	userID, err := a.tokens.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			return ActivationResult{}, err
		}
		replayed, rerr := a.replayed(ctx, token)
		if rerr != nil {
			return ActivationResult{}, rerr
		}
		if replayed {
			a.logger.Debug("stale activation token replayed for an active user")
			return ActivationResult{AlreadyActive: true}, nil
		}
		return ActivationResult{}, err
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			a.logger.Error("activation token resolved to missing user %s", userID)
			return ActivationResult{}, ErrUnknownUser
		}
		return ActivationResult{}, wrapInternal(err, "failed to load user")
	}

	active, err := checkTokenState(user.State)
	if err != nil {
		if errors.Is(err, ErrUnexpectedState) {
			a.logger.Error("user %s has unexpected state %d", user, user.State)
		}
		return ActivationResult{}, err
	}

	if active {
		a.logger.Debug("activation replay for active user %s", user)
		return ActivationResult{AlreadyActive: true}, nil
	}

	actor := ActorRef{ID: user.ID, Type: "user"}
	activated, err := a.stateMachine.Transition(ctx, actor, user, StateActive,
		WithTransitionReason("activation"),
	)
	if err != nil {
		if errors.Is(err, ErrStateUpdateFailed) {
			return ActivationResult{}, ErrActivationFailed
		}
		a.logger.Error("activation of user %s failed: %v", user, err)
		return ActivationResult{}, err
	}

	if err := a.tokens.Invalidate(ctx, token); err != nil {
		a.logger.Warn("failed to invalidate activation token of user %s: %v", activated, err)
	}

	if a.signIn && a.login != nil {
		if err := a.login.startSession(ctx, activated); err != nil {
			a.logger.Warn("failed to sign in activated user %s: %v", activated, err)
		}
	}

	emitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventUserActivated,
		Actor:     actor,
		UserID:    activated.ID,
		FromState: StateInactive,
		ToState:   StateActive,
	})

	return ActivationResult{User: activated.Public().WithToken("")}, nil
}

// replayed reports whether a token that no longer resolves was a genuine
// activation token of a user that is ACTIVE now.
func (a *Activation) replayed(ctx context.Context, token string) (bool, error) {
	replayer, ok := a.tokens.(ActivationReplayer)
	if !ok {
		return false, nil
	}
	return replayer.MatchesInactive(ctx, token)
}
