package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/repository"
	"github.com/iliyamo/freelance-marketplace/internal/service"
)

// UserHandler serves account administration.
type UserHandler struct {
	Users *service.UserService
	Log   logrus.FieldLogger
}

// NewUserHandler returns the account and mail log handlers.
func NewUserHandler(users *service.UserService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{Users: users, Log: log}
}

// List returns every account.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Users.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// Get returns one account by id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.Get(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Verify marks the account verified and mails its owner.
func (h *UserHandler) Verify(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Users.Verify(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// AllMail returns the whole mail audit log.
func (h *UserHandler) AllMail(c echo.Context) error {
	return h.mailLog(c, repository.MailFilter{})
}

// SentMail returns the mail that reached the SMTP server.
func (h *UserHandler) SentMail(c echo.Context) error {
	sent := true
	return h.mailLog(c, repository.MailFilter{Sent: &sent})
}

// FailedMail returns the mail whose delivery failed.
func (h *UserHandler) FailedMail(c echo.Context) error {
	sent := false
	return h.mailLog(c, repository.MailFilter{Sent: &sent})
}

// MailTo returns the mail addressed to :email.
func (h *UserHandler) MailTo(c echo.Context) error {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" {
		return badParam(c, "email")
	}
	return h.mailLog(c, repository.MailFilter{Recipient: email})
}

func (h *UserHandler) mailLog(c echo.Context, f repository.MailFilter) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Users.MailLog(ctx, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}
