package service

import "github.com/iliyamo/freelance-marketplace/internal/model"

// Actor is the authenticated caller on whose behalf an operation runs.
type Actor struct {
	UserID   uint64
	Username string
	Role     model.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// owns reports whether the actor may act on a resource owned by userID.
// Administrators own everything.
func (a Actor) owns(userID uint64) bool { return a.IsAdmin() || a.UserID == userID }
