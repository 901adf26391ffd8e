package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/utils"
)

// UserLookup resolves the account a token claims to belong to.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// Authenticate reads a Bearer token, verifies it with codec and binds the
// resulting Identity to the request.  It never rejects: a missing, invalid
// or expired token leaves the request anonymous and Policy decides.
//
// The account is loaded so that the token's subject can be matched against
// it and the caller's numeric id made available to handlers.
func Authenticate(codec *utils.TokenCodec, users UserLookup, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}
			claims, err := codec.Verify(raw)
			if err != nil {
				log.WithError(err).Debug("ignoring invalid token")
				return next(c)
			}
			u, err := users.GetByUsername(c.Request().Context(), claims.Subject)
			if err != nil {
				log.WithError(err).WithField("subject", claims.Subject).Debug("token subject not resolvable")
				return next(c)
			}
			if !claims.BelongsTo(u.Username) {
				return next(c)
			}
			setIdentity(c, Identity{
				UserID:   u.ID,
				Subject:  claims.Subject,
				Role:     claims.Role,
				Verified: claims.Verified,
			})
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
