package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
	"github.com/iliyamo/freelance-marketplace/internal/utils"
)

type usersByName map[string]*model.User

func (u usersByName) GetByUsername(_ context.Context, name string) (*model.User, error) {
	if v, ok := u[name]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

// serve runs one request through Authenticate and reports what the handler
// saw.
func serve(t *testing.T, codec *utils.TokenCodec, users UserLookup, header string) (Identity, bool) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	e := echo.New()
	var (
		got Identity
		ok  bool
	)
	e.GET("/x", func(c echo.Context) error {
		got, ok = CurrentIdentity(c)
		if fromCtx, ctxOK := FromContext(c.Request().Context()); ctxOK != ok || fromCtx != got {
			t.Errorf("echo and request context disagree")
		}
		return c.NoContent(http.StatusNoContent)
	}, Authenticate(codec, users, logger))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, "gate must never reject")
	return got, ok
}

func TestAuthenticateBindsIdentity(t *testing.T) {
	codec := utils.NewTokenCodec("secret", 0)
	users := usersByName{"bob": {ID: 7, Username: "bob", Role: model.RoleFreelancer}}
	tok, _, err := codec.Issue("bob", model.RoleFreelancer, true)
	require.NoError(t, err)

	id, ok := serve(t, codec, users, "Bearer "+tok)
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: 7, Subject: "bob", Role: model.RoleFreelancer, Verified: true}, id)

	id, ok = serve(t, codec, users, "bearer "+tok)
	assert.True(t, ok, "scheme is case-insensitive")
	assert.Equal(t, "bob", id.Subject)
}

func TestAuthenticateLeavesBadRequestsAnonymous(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	codec := utils.NewTokenCodec("secret", time.Hour).WithClock(func() time.Time { return now })
	users := usersByName{"bob": {ID: 7, Username: "bob", Role: model.RoleFreelancer}}

	valid, _, err := codec.Issue("bob", model.RoleFreelancer, false)
	require.NoError(t, err)
	ghost, _, err := codec.Issue("ghost", model.RoleAdmin, false)
	require.NoError(t, err)
	foreign, _, err := utils.NewTokenCodec("other", time.Hour).WithClock(func() time.Time { return now }).
		Issue("bob", model.RoleAdmin, true)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic Ym9iOnB3",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not.a.token",
		"unknown user": "Bearer " + ghost,
		"wrong secret": "Bearer " + foreign,
	} {
		_, ok := serve(t, codec, users, header)
		assert.False(t, ok, name)
	}

	now = now.Add(2 * time.Hour)
	_, ok := serve(t, codec, users, "Bearer "+valid)
	assert.False(t, ok, "expired")
}

func TestAuthenticateLogsAtDebugOnly(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	codec := utils.NewTokenCodec("secret", 0)

	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		Authenticate(codec, usersByName{}, logger))
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer junk")
	e.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, hook.AllEntries())
}
