package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// Identity is the authenticated caller bound to a request by Authenticate.
type Identity struct {
	UserID   uint64
	Subject  string
	Role     model.Role
	Verified bool
}

// HasRole reports whether the caller holds one of roles.
func (i Identity) HasRole(roles ...model.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

const identityKey = "identity"

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// CurrentIdentity returns the caller bound to c, if any.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

func setIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
	c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
}

// subjectOrAnon names the caller for rate limit keys.
func subjectOrAnon(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return id.Subject
	}
	return "anon"
}
