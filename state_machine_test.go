package credentials_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStateUser(t *testing.T, state credentials.UserState) *credentials.User {
	t.Helper()
	user, err := credentials.NewUser("user-1", "demo", "demo@example.com", state, "hash")
	require.NoError(t, err)
	return user
}

func TestUserStateMachineCanTransition(t *testing.T) {
	sm := credentials.NewUserStateMachine(&MockGateway{})

	tests := []struct {
		from, to credentials.UserState
		allowed  bool
	}{
		{credentials.StateInactive, credentials.StateActive, true},
		{credentials.StateInactive, credentials.StateBlocked, true},
		{credentials.StateActive, credentials.StateBlocked, true},
		{credentials.StateBlocked, credentials.StateActive, true},
		{credentials.StateActive, credentials.StateInactive, false},
		{credentials.StateBlocked, credentials.StateInactive, false},
		{credentials.UserState(9), credentials.StateActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, sm.CanTransition(tt.from, tt.to))
		})
	}
}

func TestUserStateMachineTransitionPersistsAndReturnsCopy(t *testing.T) {
	repo := &MockGateway{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sink := &activityRecorder{}
	user := newStateUser(t, credentials.StateInactive)

	repo.On("UpdateState", mock.Anything, user.ID, credentials.StateActive).Return(true, nil).Once()

	sm := credentials.NewUserStateMachine(repo,
		credentials.WithStateMachineClock(func() time.Time { return now }),
		credentials.WithStateMachineActivitySink(sink),
	)

	result, err := sm.Transition(context.Background(), credentials.ActorRef{ID: "admin", Type: "operator"}, user, credentials.StateActive,
		credentials.WithTransitionReason("activation"),
		credentials.WithTransitionMetadata(map[string]any{"source": "test"}),
	)
	require.NoError(t, err)
	assert.True(t, result.IsActive())
	assert.True(t, user.IsInactive())
	repo.AssertExpectations(t)

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, credentials.ActivityEventUserStateChanged, event.EventType)
	assert.Equal(t, credentials.StateInactive, event.FromState)
	assert.Equal(t, credentials.StateActive, event.ToState)
	assert.Equal(t, now, event.OccurredAt)
	assert.Equal(t, "activation", event.Metadata["reason"])
	assert.Equal(t, "test", event.Metadata["source"])
	assert.Equal(t, "admin", event.Actor.ID)
}

func TestUserStateMachineRejectsInvalidTransition(t *testing.T) {
	repo := &MockGateway{}
	user := newStateUser(t, credentials.StateActive)

	sm := credentials.NewUserStateMachine(repo, credentials.WithStateMachineLogger(newRecordingLogger()))

	_, err := sm.Transition(context.Background(), credentials.ActorRef{}, user, credentials.StateInactive)
	require.Error(t, err)
	assert.ErrorIs(t, err, credentials.ErrInvalidTransition)
	repo.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserStateMachineSameStateIsNoop(t *testing.T) {
	repo := &MockGateway{}
	user := newStateUser(t, credentials.StateBlocked)

	sm := credentials.NewUserStateMachine(repo)

	result, err := sm.Transition(context.Background(), credentials.ActorRef{}, user, credentials.StateBlocked)
	require.NoError(t, err)
	assert.Same(t, user, result)
	repo.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserStateMachineRejectsUnknownStates(t *testing.T) {
	sm := credentials.NewUserStateMachine(&MockGateway{})
	user := newStateUser(t, credentials.StateActive)

	_, err := sm.Transition(context.Background(), credentials.ActorRef{}, user, credentials.UserState(42))
	assert.ErrorIs(t, err, credentials.ErrUnexpectedState)

	corrupt := &credentials.User{ID: "x", Username: "x", State: 0}
	_, err = sm.Transition(context.Background(), credentials.ActorRef{}, corrupt, credentials.StateActive)
	assert.ErrorIs(t, err, credentials.ErrUnexpectedState)
}

func TestUserStateMachineUpdateNotApplied(t *testing.T) {
	repo := &MockGateway{}
	logger := newRecordingLogger()
	user := newStateUser(t, credentials.StateInactive)

	repo.On("UpdateState", mock.Anything, user.ID, credentials.StateActive).Return(false, nil).Once()

	sm := credentials.NewUserStateMachine(repo, credentials.WithStateMachineLogger(logger))

	_, err := sm.Transition(context.Background(), credentials.ActorRef{}, user, credentials.StateActive)
	assert.ErrorIs(t, err, credentials.ErrStateUpdateFailed)
	assert.Equal(t, 1, logger.count("error"))
}

func TestUserStateMachineUpdateError(t *testing.T) {
	repo := &MockGateway{}
	user := newStateUser(t, credentials.StateActive)

	repo.On("UpdateState", mock.Anything, user.ID, credentials.StateBlocked).Return(false, errors.New("db down")).Once()

	sm := credentials.NewUserStateMachine(repo)

	_, err := sm.Transition(context.Background(), credentials.ActorRef{}, user, credentials.StateBlocked)
	require.Error(t, err)
	assert.True(t, credentials.IsDataIntegrityError(err))
}

func TestUserStateMachineHooks(t *testing.T) {
	repo := &MockGateway{}
	user := newStateUser(t, credentials.StateActive)

	var calls []string
	before := func(_ context.Context, tc credentials.TransitionContext) error {
		calls = append(calls, "before:"+tc.User.State.String())
		return nil
	}
	after := func(_ context.Context, tc credentials.TransitionContext) error {
		calls = append(calls, "after:"+tc.User.State.String())
		return nil
	}

	repo.On("UpdateState", mock.Anything, user.ID, credentials.StateBlocked).Return(true, nil).Once()

	sm := credentials.NewUserStateMachine(repo)
	_, err := sm.Transition(context.Background(), credentials.ActorRef{}, user, credentials.StateBlocked,
		credentials.WithBeforeTransitionHook(before),
		credentials.WithAfterTransitionHook(after),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"before:active", "after:blocked"}, calls)
}

func TestUserStateMachineBeforeHookAborts(t *testing.T) {
	repo := &MockGateway{}
	user := newStateUser(t, credentials.StateActive)
	boom := errors.New("nope")

	sm := credentials.NewUserStateMachine(repo)
	_, err := sm.Transition(context.Background(), credentials.ActorRef{}, user, credentials.StateBlocked,
		credentials.WithBeforeTransitionHook(func(context.Context, credentials.TransitionContext) error { return boom }),
	)
	assert.ErrorIs(t, err, boom)
	repo.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
}
