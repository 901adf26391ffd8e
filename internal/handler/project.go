package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/service"
)

// ProjectHandler serves the project endpoints.
type ProjectHandler struct {
	Projects *service.ProjectLifecycle
	Log      logrus.FieldLogger
}

// NewProjectHandler returns the /project handlers.
func NewProjectHandler(projects *service.ProjectLifecycle, log logrus.FieldLogger) *ProjectHandler {
	return &ProjectHandler{Projects: projects, Log: log}
}

type projectReq struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
	Deadline    string  `json:"deadline"` // YYYY-MM-DD or RFC 3339
}

func (r projectReq) input() (service.ProjectInput, bool) {
	in := service.ProjectInput{Title: r.Title, Description: r.Description, Budget: r.Budget}
	d := strings.TrimSpace(r.Deadline)
	if d == "" {
		return in, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, d); err == nil {
			in.Deadline = t.UTC()
			return in, true
		}
	}
	return in, false
}

// Post creates a project awaiting moderation.
func (h *ProjectHandler) Post(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req projectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, valid := req.input()
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deadline"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Projects.Post(ctx, a, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Get returns one project by id.
func (h *ProjectHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Projects.Get(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// SearchByTitle lists available projects whose title contains :title.
func (h *ProjectHandler) SearchByTitle(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Projects.SearchByTitle(ctx, c.Param("title"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// All lists every project in any status.
func (h *ProjectHandler) All(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Projects.ListAll(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// Available lists the APPROVED projects.
func (h *ProjectHandler) Available(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Projects.Available(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// Mine lists the caller's own projects as a client.
func (h *ProjectHandler) Mine(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Projects.ListByClient(ctx, a.UserID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// Assigned lists the projects the calling freelancer works on.
func (h *ProjectHandler) Assigned(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Projects.ListByFreelancer(ctx, a.UserID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// Update edits a project's details.  Only its client or an administrator
// may do so.
func (h *ProjectHandler) Update(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var req projectReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, valid := req.input()
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid deadline"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Projects.Update(ctx, a, id, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete removes a project and answers 204.
func (h *ProjectHandler) Delete(c echo.Context) error {
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
	if err := h.Projects.Delete(ctx, a, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Approve moves a PENDING project to APPROVED.
func (h *ProjectHandler) Approve(c echo.Context) error {
	return h.decide(c, h.Projects.Approve)
}

// Deny moves a PENDING project to DENIED.
func (h *ProjectHandler) Deny(c echo.Context) error {
	return h.decide(c, h.Projects.Deny)
}

func (h *ProjectHandler) decide(c echo.Context, fn func(ctx context.Context, id uint64) (*model.Project, error)) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := fn(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Complete finishes an IN_PROGRESS project.
func (h *ProjectHandler) Complete(c echo.Context) error {
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
	p, err := h.Projects.Complete(ctx, a, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus applies an arbitrary legal transition.
func (h *ProjectHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	next := model.ProjectStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	p, err := h.Projects.UpdateStatus(ctx, id, next)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ClientStats counts the caller's projects by status.
func (h *ProjectHandler) ClientStats(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	st, err := h.Projects.ClientStats(ctx, a.UserID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// orEmpty keeps empty lists encoded as [] rather than null.
func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
