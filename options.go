package credentials

import "time"

// Option configures the workflows and the Service facade. Options a
// component has no use for are ignored.
type Option func(*settings)

type settings struct {
	logger       Logger
	activitySink ActivitySink
	hasher       PasswordHasher
	validator    Validator
	tokens       TokenStrategy
	storage      SecretStorage
	stateMachine UserStateMachine
	signIn       bool
	now          func() time.Time
	dummy        *dummyHash
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.logger = normalizeLogger(s.logger)
	s.activitySink = normalizeActivitySink(s.activitySink)

	if s.hasher == nil {
		s.hasher = NewBcryptHasher()
	}

	if s.validator == nil {
		s.validator = NewValidator(s.logger)
	}

	if s.storage == nil {
		s.storage = NewMemoryStorage()
	}

	if s.now == nil {
		s.now = time.Now
	}

	s.dummy = &dummyHash{}
	return s
}

// tokenStrategy returns the configured strategy or the derived default.
func (s *settings) tokenStrategy(users UserGateway) TokenStrategy {
	if s.tokens == nil {
		s.tokens = NewUserToken(users, WithUserTokenLogger(s.logger))
	}
	return s.tokens
}

func (s *settings) userStateMachine(users StateUpdater) UserStateMachine {
	if s.stateMachine == nil {
		s.stateMachine = NewUserStateMachine(users,
			WithStateMachineLogger(s.logger),
			WithStateMachineActivitySink(s.activitySink),
			WithStateMachineClock(s.now),
		)
	}
	return s.stateMachine
}

// WithLogger sets the logger. Defaults to stdout.
func WithLogger(logger Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithActivitySink sets the sink receiving lifecycle events.
func WithActivitySink(sink ActivitySink) Option {
	return func(s *settings) {
		s.activitySink = sink
	}
}

// WithPasswordHasher overrides the bcrypt default.
func WithPasswordHasher(hasher PasswordHasher) Option {
	return func(s *settings) {
		s.hasher = hasher
	}
}

// WithValidator overrides the default field validator.
func WithValidator(validator Validator) Option {
	return func(s *settings) {
		s.validator = validator
	}
}

// WithTokenStrategy selects how activation and reset tokens are issued.
// Defaults to UserToken.
func WithTokenStrategy(tokens TokenStrategy) Option {
	return func(s *settings) {
		s.tokens = tokens
	}
}

// WithStorage sets the session store. Defaults to a MemoryStorage.
func WithStorage(storage SecretStorage) Option {
	return func(s *settings) {
		s.storage = storage
	}
}

// WithStateMachine overrides the default UserStateMachine.
func WithStateMachine(sm UserStateMachine) Option {
	return func(s *settings) {
		s.stateMachine = sm
	}
}

// WithSignInOnActivation makes a successful activation start a session for
// the activated user. Off by default.
func WithSignInOnActivation(enabled bool) Option {
	return func(s *settings) {
		s.signIn = enabled
	}
}

// WithClock injects the time source used for events.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}
