package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/service"
)

// ChatHandler serves the per-project conversation.
type ChatHandler struct {
	Chat *service.ChatService
	Log  logrus.FieldLogger
}

// NewChatHandler returns the /chat handlers.
func NewChatHandler(chat *service.ChatService, log logrus.FieldLogger) *ChatHandler {
	return &ChatHandler{Chat: chat, Log: log}
}

type sendReq struct {
	Content string `json:"content"`
}

// Messages lists a project's chat history for its participants.
func (h *ChatHandler) Messages(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	pid, ok := pathID(c, "projectId")
	if !ok {
		return badParam(c, "projectId")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Chat.Messages(ctx, a, pid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// Send posts a chat message on a project.
func (h *ChatHandler) Send(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	pid, ok := pathID(c, "projectId")
	if !ok {
		return badParam(c, "projectId")
	}
	var req sendReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Chat.Send(ctx, a, pid, req.Content)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, m)
}
