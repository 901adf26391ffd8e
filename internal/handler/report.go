package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/service"
)

// ReportHandler serves report filing and moderation.
type ReportHandler struct {
	Reports *service.ReportService
	Log     logrus.FieldLogger
}

// NewReportHandler returns the /report handlers.
func NewReportHandler(r *service.ReportService, log logrus.FieldLogger) *ReportHandler {
	return &ReportHandler{Reports: r, Log: log}
}

type createReportReq struct {
	ProjectID   uint64 `json:"projectId"`
	Description string `json:"description"`
}

type updateReportReq struct {
	Status        string  `json:"status"`
	AdminResponse *string `json:"adminResponse"`
}

// Create files a report against a project.
func (h *ReportHandler) Create(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req createReportReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	r, err := h.Reports.Create(ctx, a, req.ProjectID, req.Description)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// List returns every report for administrators.
func (h *ReportHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Reports.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, orEmpty(list))
}

// UpdateStatus records an administrator's decision on a report.
func (h *ReportHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var req updateReportReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	status := model.ReportStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	r, err := h.Reports.UpdateStatus(ctx, id, status, req.AdminResponse)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}
