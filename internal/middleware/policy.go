package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// Access is the requirement a Rule places on the caller.
type Access struct {
	public bool
	roles  []model.Role
}

var (
	// Public lets anonymous callers through.
	Public = Access{public: true}
	// Authenticated admits any identity regardless of role.
	Authenticated = Access{}
)

// Roles admits identities holding one of roles.
func Roles(roles ...model.Role) Access { return Access{roles: roles} }

func (a Access) allows(id *Identity) bool {
	if a.public {
		return true
	}
	if id == nil {
		return false
	}
	return len(a.roles) == 0 || id.HasRole(a.roles...)
}

// Rule binds a method and path pattern to an Access.  Method "" matches
// every method.  Pattern segments are literal, "*" or "{name}" for exactly
// one segment, or a trailing "**" for any remainder including none.
type Rule struct {
	Method  string
	Pattern string
	Access  Access
}

type compiledRule struct {
	Rule
	segs []string
}

func (r compiledRule) matches(method string, path []string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	for i, s := range r.segs {
		if s == "**" {
			return true
		}
		if i >= len(path) {
			return false
		}
		if s == "*" || (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) {
			continue
		}
		if s != path[i] {
			return false
		}
	}
	return len(path) == len(r.segs)
}

// Policy is an ordered rule table evaluated first match wins.  Requests no
// rule matches require an authenticated identity.
type Policy struct {
	rules []compiledRule
}

// NewPolicy builds a policy from rules in priority order.
func NewPolicy(rules ...Rule) *Policy {
	p := &Policy{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		p.rules = append(p.rules, compiledRule{Rule: r, segs: splitPath(r.Pattern)})
	}
	return p
}

// Allows reports whether id (nil for anonymous) may call method on path.
func (p *Policy) Allows(method, path string, id *Identity) bool {
	segs := splitPath(path)
	for _, r := range p.rules {
		if r.matches(method, segs) {
			return r.Access.allows(id)
		}
	}
	return Authenticated.allows(id)
}

// Enforce rejects denied requests with 403 before any handler runs.  Rules
// are matched against the same path the echo router resolves, the raw
// escaped path when the request has one, so an encoded slash splits
// segments identically for routing and for the policy.
func (p *Policy) Enforce() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id *Identity
			if v, ok := CurrentIdentity(c); ok {
				id = &v
			}
			if !p.Allows(c.Request().Method, echo.GetPath(c.Request()), id) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
