package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RolePoster    Role = "POSTER"
	RoleSolver    Role = "SOLVER"
)

// User is the engine's view of an already-authenticated account.
// Authentication and role resolution happen upstream; the engine only
// performs ownership and role checks against this record.
type User struct {
	ID              uuid.UUID
	Name            string
	Email           string
	Role            Role
	PayoutAccountID string
	CreatedAt       time.Time
}

// HasPayoutDestination reports whether released funds can be transferred
// to this user.
func (u *User) HasPayoutDestination() bool {
	return u.PayoutAccountID != ""
}
