package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/service"
)

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	Notifications *service.NotificationService
	Log           logrus.FieldLogger
}

// NewNotificationHandler returns the inbox handlers.
func NewNotificationHandler(n *service.NotificationService, log logrus.FieldLogger) *NotificationHandler {
	return &NotificationHandler{Notifications: n, Log: log}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Notifications.List(ctx, a.UserID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// UnreadCount reports how many of the caller's notifications are unread.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := h.Notifications.UnreadCount(ctx, a.UserID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// MarkRead flags one notification.  Another user's id is a 404.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Notifications.MarkRead(ctx, a.UserID, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusOK)
}

// MarkAllRead flags all of the caller's notifications.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Notifications.MarkAllRead(ctx, a.UserID); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusOK)
}
