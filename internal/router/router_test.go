package router_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/freelance-marketplace/internal/config"
	"github.com/iliyamo/freelance-marketplace/internal/mail"
	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository/memory"
	"github.com/iliyamo/freelance-marketplace/internal/router"
	"github.com/iliyamo/freelance-marketplace/internal/service"
	"github.com/iliyamo/freelance-marketplace/internal/storage"
	"github.com/iliyamo/freelance-marketplace/internal/utils"
)

type server struct {
	t     *testing.T
	e     *echo.Echo
	store *memory.Store
	codec *utils.TokenCodec
}

func newServer(t *testing.T) *server {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := memory.New()
	codec := utils.NewTokenCodec("router-test-secret", time.Hour)
	e := router.New(router.Deps{
		Codec:         codec,
		Users:         store.Users(),
		Auth:          service.NewAuthService(store.Users(), codec, bcrypt.MinCost, log),
		Projects:      service.NewProjectLifecycle(store, log),
		Applications:  service.NewApplicationLifecycle(store, storage.NewMemoryStore(), log, service.ApplicationOptions{}),
		Notifications: service.NewNotificationService(store.Notifications()),
		Reports:       service.NewReportService(store, log),
		Chat:          service.NewChatService(store),
		Accounts:      service.NewUserService(store.Users(), store.Mails(), mail.LogMailer{Log: log}, log),
		RateLimit:     config.RateLimitConfig{Enabled: false},
		Log:           log,
	})
	return &server{t: t, e: e, store: store, codec: codec}
}

// admin provisions an administrator directly in the store and returns a
// token for it.
func (s *server) admin() string {
	s.t.Helper()
	hash, err := utils.HashPassword("rootpass", bcrypt.MinCost)
	require.NoError(s.t, err)
	u := &model.User{Username: "root", Email: "root@example.com", PasswordHash: hash, Role: model.RoleAdmin, Verified: true}
	require.NoError(s.t, s.store.Users().Create(context.Background(), u))
	tok, _, err := s.codec.Issue(u.Username, u.Role, u.Verified)
	require.NoError(s.t, err)
	return tok
}

func (s *server) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) register(username, role string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/register", "",
		fmt.Sprintf(`{"username":%q,"email":"%s@example.com","password":"secret1","role":%q}`, username, username, role))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess service.Session
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPublicEndpoints(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(http.MethodGet, "/api/home", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "freelance_http_requests_total")
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t)
	s.register("carol", "CLIENT")

	rec := s.do(http.MethodPost, "/api/register", "",
		`{"username":"carol","email":"other@example.com","password":"secret1","role":"CLIENT"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/register", "",
		`{"username":"mallory","email":"m@example.com","password":"secret1","role":"ADMIN"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/login", "", `{"username":"carol","password":"wrong!"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/login", "", `{"username":"carol","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := decode[service.Session](t, rec)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, model.RoleClient, sess.Role)
}

func TestPolicyRejectsBeforeHandlers(t *testing.T) {
	s := newServer(t)
	carol := s.register("carol", "CLIENT")
	alice := s.register("alice", "FREELANCER")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous project list", http.MethodGet, "/api/project/available", "", http.StatusForbidden},
		{"garbage token", http.MethodGet, "/api/project/available", "not-a-token", http.StatusForbidden},
		{"client browsing available", http.MethodGet, "/api/project/available", carol, http.StatusForbidden},
		{"freelancer browsing available", http.MethodGet, "/api/project/available", alice, http.StatusOK},
		{"freelancer posting", http.MethodPost, "/api/project/post", alice, http.StatusForbidden},
		{"client listing users", http.MethodGet, "/api/user", carol, http.StatusForbidden},
		{"freelancer moderating", http.MethodPut, "/api/project/1/approve", alice, http.StatusForbidden},
		{"anonymous notifications", http.MethodGet, "/api/notifications", "", http.StatusForbidden},
		{"unlisted route needs identity", http.MethodGet, "/api/nowhere", "", http.StatusForbidden},
		{"unlisted route with identity", http.MethodGet, "/api/nowhere", carol, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, tc.token, "")
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestTokenForDeletedAccountIsAnonymous(t *testing.T) {
	s := newServer(t)
	tok, _, err := s.codec.Issue("ghost", model.RoleFreelancer, false)
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/api/project/available", tok, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHiringFlow(t *testing.T) {
	s := newServer(t)
	root := s.admin()
	carol := s.register("carol", "CLIENT")
	alice := s.register("alice", "FREELANCER")
	bob := s.register("bob", "FREELANCER")

	rec := s.do(http.MethodPost, "/api/project/post", carol,
		`{"title":"Landing page","description":"One page","budget":500,"deadline":"2030-01-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Project](t, rec)
	assert.Equal(t, model.ProjectPending, p.Status)

	// Not yet moderated, so nobody can apply.
	rec = s.do(http.MethodPost, fmt.Sprintf("/api/project/%d/apply/alice", p.ID), alice, `{"coverLetter":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/project/%d/approve", p.ID), root, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ProjectApproved, decode[model.Project](t, rec).Status)

	rec = s.do(http.MethodGet, "/api/project/available", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Project](t, rec), 1)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/project/%d/apply/alice", p.ID), alice, `{"coverLetter":"I build pages"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	winner := decode[model.Application](t, rec)

	// Applying on behalf of someone else is refused.
	rec = s.do(http.MethodPost, fmt.Sprintf("/api/project/%d/apply/alice", p.ID), bob, `{"coverLetter":"me too"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Older clients post the cover letter as plain text.
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/project/%d/apply/bob", p.ID), strings.NewReader("Fast and cheap"))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+bob)
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loser := decode[model.Application](t, rec)
	assert.Equal(t, "Fast and cheap", loser.CoverLetter)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/project/%d/applications", p.ID), carol, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Application](t, rec), 2)

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/application/%d/approve", winner.ID), carol, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ApplicationApproved, decode[model.Application](t, rec).Status)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/application/%d", loser.ID), root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ApplicationRejected, decode[model.Application](t, rec).Status)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/project/id/%d", p.ID), carol, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.Project](t, rec)
	assert.Equal(t, model.ProjectInProgress, got.Status)
	require.NotNil(t, got.FreelancerID)
	assert.Equal(t, winner.FreelancerID, *got.FreelancerID)

	// A second accept on the closed project is refused.
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/application/%d/approve", loser.ID), carol, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/project/%d/complete", p.ID), bob, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/project/%d/complete", p.ID), alice, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.ProjectCompleted, decode[model.Project](t, rec).Status)
}

func TestBadPathParameters(t *testing.T) {
	s := newServer(t)
	root := s.admin()

	rec := s.do(http.MethodGet, "/api/application/abc", root, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/application/999", root, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/api/project/999/status", root, `{"status":"SHIPPED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEscapedSlashDoesNotSkipRoleRules(t *testing.T) {
	s := newServer(t)
	carol := s.register("carol", "CLIENT")
	alice := s.register("alice", "FREELANCER")

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/project/title/web%2Fapp", ""},
		{http.MethodPost, "/api/project/1/apply/alice%2Fx", `{"coverLetter":"x"}`},
		{http.MethodGet, "/api/freelancer/alice%2Fx/my-applications", ""},
	} {
		rec := s.do(tc.method, tc.path, carol, tc.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}

	rec := s.do(http.MethodGet, "/api/project/title/web%2Fapp", alice, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestStatusEndpointCannotStartProject(t *testing.T) {
	s := newServer(t)
	root := s.admin()
	carol := s.register("carol", "CLIENT")
	alice := s.register("alice", "FREELANCER")

	rec := s.do(http.MethodPost, "/api/project/post", carol,
		`{"title":"Logo","description":"svg","budget":100,"deadline":"2030-01-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Project](t, rec)
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/project/%d/approve", p.ID), root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, fmt.Sprintf("/api/project/%d/apply/alice", p.ID), alice, `{"coverLetter":"me"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	app := decode[model.Application](t, rec)

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/project/%d/status", p.ID), root, `{"status":"IN_PROGRESS"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/project/id/%d", p.ID), root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.Project](t, rec)
	assert.Equal(t, model.ProjectApproved, got.Status)
	assert.Nil(t, got.FreelancerID)

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/application/%d/approve", app.ID), carol, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestMailLogIsAdminOnly(t *testing.T) {
	s := newServer(t)
	root := s.admin()
	carol := s.register("carol", "CLIENT")

	rec := s.do(http.MethodGet, "/api/user", root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var carolID uint64
	for _, u := range decode[[]model.User](t, rec) {
		if u.Username == "carol" {
			carolID = u.ID
		}
	}
	require.NotZero(t, carolID)
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/user/%d/verify", carolID), root, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, path := range []string{"/api/mail/all", "/api/mail/sent", "/api/mail/user/carol@example.com"} {
		rec = s.do(http.MethodGet, path, carol, "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)

		rec = s.do(http.MethodGet, path, root, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		logged := decode[[]model.MailRecord](t, rec)
		require.Len(t, logged, 1, path)
		assert.Equal(t, "carol@example.com", logged[0].Recipient)
	}

	rec = s.do(http.MethodGet, "/api/mail/failed", root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
