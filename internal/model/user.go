package model

import (
	"strings"
	"time"
)

// Role is the closed set of account roles.  Every authorization decision is
// expressed in terms of these three values; anything else is rejected when
// parsed from input or from a token.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleFreelancer Role = "FREELANCER"
	RoleAdmin      Role = "ADMIN"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleFreelancer, RoleAdmin:
		return true
	}
	return false
}

// Authority returns the "ROLE_" prefixed form some older clients still send.
func (r Role) Authority() string { return "ROLE_" + string(r) }

// User represents an account record as stored in the `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name; the token subject.
//	Email        – unique email address used for verification mail.
//	PasswordHash – bcrypt hash of the password.
//	Role         – CLIENT, FREELANCER or ADMIN.
//	Verified     – set by an administrator after manual review.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}
