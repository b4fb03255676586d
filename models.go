package credentials

import (
	"strconv"

	goerrors "github.com/goliatone/go-errors"
)

// UserState is the lifecycle state of an account.
type UserState int

const (
	// StateActive users can log in and use their account.
	StateActive UserState = 1
	// StateInactive users must confirm their email address first.
	StateInactive UserState = 2
	// StateBlocked users have been locked by an operator.
	StateBlocked UserState = 3
)

// Valid reports whether s is one of the three known states.
func (s UserState) Valid() bool {
	switch s {
	case StateActive, StateInactive, StateBlocked:
		return true
	default:
		return false
	}
}

func (s UserState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// User is the account entity. Values are treated as immutable: the With*
// helpers return a modified copy carrying the same ID.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"`
	State        UserState `json:"state"`
	// Token is only set on values returned by workflows that just issued one.
	Token string `json:"token,omitempty"`
}

// NewUser builds a User and rejects empty ids, empty usernames and unknown states.
func NewUser(id, username, email string, state UserState, passwordHash string) (*User, error) {
	if id == "" {
		return nil, goerrors.New("the user ID cannot be empty", goerrors.CategoryInternal)
	}

	if username == "" {
		return nil, goerrors.New("the username cannot be empty", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"user_id": id})
	}

	if !state.Valid() {
		return nil, ErrUnexpectedState
	}

	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		State:        state,
	}, nil
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// WithState returns a copy of the user in the given state.
func (u *User) WithState(state UserState) *User {
	c := u.clone()
	if c != nil {
		c.State = state
	}
	return c
}

// WithPassword returns a copy of the user carrying the given hash.
func (u *User) WithPassword(hash string) *User {
	c := u.clone()
	if c != nil {
		c.PasswordHash = hash
	}
	return c
}

// WithToken returns a copy of the user carrying a freshly issued token.
func (u *User) WithToken(token string) *User {
	c := u.clone()
	if c != nil {
		c.Token = token
	}
	return c
}

// Public returns the projection handed to callers: no password hash.
func (u *User) Public() *User {
	return u.WithPassword("")
}

func (u *User) IsActive() bool {
	return u != nil && u.State == StateActive
}

func (u *User) IsInactive() bool {
	return u != nil && u.State == StateInactive
}

func (u *User) IsBlocked() bool {
	return u != nil && u.State == StateBlocked
}

// String identifies the user in log lines.
func (u *User) String() string {
	if u == nil {
		return "<nil>"
	}
	return u.ID + " (" + u.Username + "<" + u.Email + ">)"
}
