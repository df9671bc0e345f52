// CivicVoice | 2026
// entity.go

package user

import (
	"time"
)

// User is the store-of-record row. PasswordHash is nil for accounts
// created through OAuth.
type User struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	PasswordHash     *string    `db:"password_hash"`
	Name             string     `db:"name"`
	Phone            *string    `db:"phone"`
	District         *string    `db:"district"`
	Verified         bool       `db:"verified"`
	IsRepresentative bool       `db:"is_representative"`
	Role             string     `db:"role"`
	Position         *string    `db:"position"`
	Party            *string    `db:"party"`
	Rating           *float64   `db:"rating"`
	Balance          int        `db:"balance"`
	OAuthProvider    *string    `db:"oauth_provider"`
	OAuthID          *string    `db:"oauth_id"`
	LastActivity     *time.Time `db:"last_activity"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

const (
	RoleUser           = "USER"
	RoleRepresentative = "REPRESENTATIVE"
	RoleAdmin          = "ADMIN"
)

// Starting balances assigned at account creation.
const (
	StartingBalanceUser           = 10
	StartingBalanceRepresentative = 0
)

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Sanitized returns a copy safe to leave the service boundary: the
// password hash never crosses it.
func (u *User) Sanitized() *User {
	clone := *u
	clone.PasswordHash = nil
	return &clone
}
