package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/service"
	"github.com/iliyamo/freelance-marketplace/internal/storage"
)

// maxCoverLetter caps the plain body of an application.
const maxCoverLetter = 64 << 10

// ApplicationHandler serves the application endpoints.
type ApplicationHandler struct {
	Applications *service.ApplicationLifecycle
	Log          logrus.FieldLogger
}

// NewApplicationHandler returns the application handlers.
func NewApplicationHandler(apps *service.ApplicationLifecycle, log logrus.FieldLogger) *ApplicationHandler {
	return &ApplicationHandler{Applications: apps, Log: log}
}

// coverLetter reads the body either as {"coverLetter": "..."} or as the
// bare text older clients send.
func coverLetter(c echo.Context) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCoverLetter))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var body struct {
			CoverLetter string `json:"coverLetter"`
		}
		if err := json.Unmarshal(raw, &body); err == nil {
			return body.CoverLetter, nil
		}
	}
	return string(raw), nil
}

// Apply files an application without an attachment.
func (h *ApplicationHandler) Apply(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	pid, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	letter, err := coverLetter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	app, err := h.Applications.Create(ctx, a, service.CreateApplication{
		ProjectID:   pid,
		Username:    c.Param("username"),
		CoverLetter: letter,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, app)
}

// ApplyWithCV files an application from a multipart form with the fields
// coverLetter and, optionally, cvFile.
func (h *ApplicationHandler) ApplyWithCV(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	pid, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	in := service.CreateApplication{
		ProjectID:   pid,
		Username:    c.Param("username"),
		CoverLetter: c.FormValue("coverLetter"),
	}
	fh, err := c.FormFile("cvFile")
	switch {
	case err == nil && fh.Size > 0:
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable cvFile"})
		}
		defer f.Close()
		in.Attachment = &service.Attachment{Filename: fh.Filename, Size: fh.Size, Body: f}
	case err != nil && !errors.Is(err, http.ErrMissingFile):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid multipart body"})
	}

	// Uploads are bounded by the server's read timeout rather than
	// requestTimeout.
	app, err := h.Applications.Create(c.Request().Context(), a, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, app)
}

// Approve accepts an application and starts its project.
func (h *ApplicationHandler) Approve(c echo.Context) error {
	return h.decide(c, h.Applications.Accept)
}

// Reject rejects a WAITING application.
func (h *ApplicationHandler) Reject(c echo.Context) error {
	return h.decide(c, h.Applications.Reject)
}

func (h *ApplicationHandler) decide(c echo.Context, fn func(context.Context, service.Actor, uint64) (*model.Application, error)) error {
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
	app, err := fn(ctx, a, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, app)
}

// Delete removes an application and its CV.
func (h *ApplicationHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Applications.Delete(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get returns one application by id.
func (h *ApplicationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	app, err := h.Applications.Get(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, app)
}

// ByProject lists a project's applications for its client.
func (h *ApplicationHandler) ByProject(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	pid, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Applications.ListByProject(ctx, a, pid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// ByFreelancer lists the applications :username filed.
func (h *ApplicationHandler) ByFreelancer(c echo.Context) error {
	return h.byUser(c, h.Applications.ListByFreelancer)
}

// ByClient lists the applications received on :username's projects.
func (h *ApplicationHandler) ByClient(c echo.Context) error {
	return h.byUser(c, h.Applications.ListByClient)
}

func (h *ApplicationHandler) byUser(c echo.Context, fn func(context.Context, service.Actor, string) ([]model.Application, error)) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := fn(ctx, a, c.Param("username"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// ByStatus lists applications in the given status.  The status is
// case-insensitive.
func (h *ApplicationHandler) ByStatus(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	status := model.ApplicationStatus(strings.ToUpper(c.Param("status")))
	list, err := h.Applications.ListByStatus(ctx, status)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// ByProjectAndFreelancer returns the application a freelancer filed for
// a project.
func (h *ApplicationHandler) ByProjectAndFreelancer(c echo.Context) error {
	pid, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	fid, ok := pathID(c, "freelancerId")
	if !ok {
		return badParam(c, "freelancerId")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	app, err := h.Applications.FindByProjectAndFreelancer(ctx, pid, fid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, app)
}

// DownloadCV streams the attachment of an application.
func (h *ApplicationHandler) DownloadCV(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	rc, key, err := h.Applications.OpenAttachment(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	defer rc.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+path.Base(key)+`"`)
	return c.Stream(http.StatusOK, storage.ContentType(key), rc)
}
