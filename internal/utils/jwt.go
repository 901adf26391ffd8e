package utils // package utils provides the token codec and password hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/freelance-marketplace/internal/model"
)

// DefaultTokenTTL is the validity window of an identity token.
const DefaultTokenTTL = 24 * time.Hour

// Verification failures.  Verify returns exactly one of these so callers
// can log the reason without inspecting library errors.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims is the payload of an identity token.  sub carries the username.
type Claims struct {
	Role     model.Role `json:"role"`
	Verified bool       `json:"isVerified"`
	jwt.RegisteredClaims
}

// Expiry returns the exp claim as a time.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// BelongsTo reports whether the token was issued for username.
func (c *Claims) BelongsTo(username string) bool {
	return c.Subject != "" && c.Subject == username
}

// TokenCodec issues and verifies HS256 identity tokens.  The secret is
// copied at construction and never changes afterwards, so a codec can be
// shared by every request goroutine.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec returns a codec signing with secret.  A non-positive ttl
// selects DefaultTokenTTL.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// TTL reports the validity window.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject with iat = now and exp = now + TTL.
// Times are truncated to whole seconds, the resolution of the claims.
func (c *TokenCodec) Issue(subject string, role model.Role, verified bool) (string, time.Time, error) {
	if subject == "" || !role.Valid() {
		return "", time.Time{}, ErrTokenMalformed
	}
	now := c.now().UTC().Truncate(time.Second)
	exp := now.Add(c.ttl)
	claims := Claims{
		Role:     role,
		Verified: verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the signature, algorithm and expiry of token.  A token
// whose exp is at or before now is expired.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrTokenSignature
	default:
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
