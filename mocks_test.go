package credentials_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-credentials"
	"github.com/stretchr/testify/mock"
)

// MockGateway implements credentials.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetByID(ctx context.Context, id string) (*credentials.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*credentials.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) GetByEmail(ctx context.Context, email string) (*credentials.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*credentials.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) GetByUsername(ctx context.Context, username string) (*credentials.User, error) {
	args := m.Called(ctx, username)
	if u, ok := args.Get(0).(*credentials.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) Add(ctx context.Context, email, username string, state credentials.UserState, passwordHash string) (*credentials.User, error) {
	args := m.Called(ctx, email, username, state, passwordHash)
	if u, ok := args.Get(0).(*credentials.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) UpdateState(ctx context.Context, id string, state credentials.UserState) (bool, error) {
	args := m.Called(ctx, id, state)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	args := m.Called(ctx, id, passwordHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) StoreToken(ctx context.Context, token, userID string) error {
	args := m.Called(ctx, token, userID)
	return args.Error(0)
}

func (m *MockGateway) FindToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) DeleteToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockGateway) DeleteUserTokens(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockTokenStrategy implements credentials.TokenStrategy
type MockTokenStrategy struct {
	mock.Mock
}

func (m *MockTokenStrategy) Generate(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStrategy) Resolve(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStrategy) Invalidate(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// recordingLogger captures formatted messages per level.
type recordingLogger struct {
	mu      sync.Mutex
	entries map[string][]string
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{entries: map[string][]string{}}
}

func (l *recordingLogger) add(level, format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[level] = append(l.entries[level], format)
}

func (l *recordingLogger) Debug(format string, _ ...any) { l.add("debug", format) }
func (l *recordingLogger) Info(format string, _ ...any)  { l.add("info", format) }
func (l *recordingLogger) Warn(format string, _ ...any)  { l.add("warn", format) }
func (l *recordingLogger) Error(format string, _ ...any) { l.add("error", format) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries[level])
}

// activityRecorder collects emitted activity events.
type activityRecorder struct {
	mu     sync.Mutex
	events []credentials.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, e credentials.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *activityRecorder) types() []credentials.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]credentials.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
