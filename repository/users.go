package repository

import (
	"time"

	"github.com/goliatone/go-credentials"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRecord is the Bun model for the users table.
type UserRecord struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID                uuid.UUID  `bun:"id,pk,type:varchar(36)"`
	Username          string     `bun:"username,notnull"`
	Email             string     `bun:"email,nullzero"`
	PasswordHash      string     `bun:"password_hash,nullzero"`
	State             int        `bun:"state,notnull"`
	PasswordChangedAt *time.Time `bun:"password_changed_at,nullzero"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero"`
}

// TokenRecord is the Bun model for the user_tokens table.
type TokenRecord struct {
	bun.BaseModel `bun:"table:user_tokens,alias:tok"`

	Token     string    `bun:"token,pk"`
	UserID    string    `bun:"user_id,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *UserRecord) toUser() (*credentials.User, error) {
	return credentials.NewUser(
		r.ID.String(),
		r.Username,
		r.Email,
		credentials.UserState(r.State),
		r.PasswordHash,
	)
}
