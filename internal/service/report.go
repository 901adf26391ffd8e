package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
)

// ReportService files reports and lets administrators answer them.
type ReportService struct {
	store repository.Store
	log   logrus.FieldLogger
}

// NewReportService returns the report service over store.
func NewReportService(store repository.Store, log logrus.FieldLogger) *ReportService {
	return &ReportService{store: store, log: log}
}

// Create files a PENDING report on an existing project.
func (s *ReportService) Create(ctx context.Context, actor Actor, projectID uint64, description string) (*model.Report, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, invalidInput("description is required")
	}
	if _, err := s.store.Projects().GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	r := &model.Report{ProjectID: projectID, ReporterID: actor.UserID, Description: description, Status: model.ReportPending}
	if err := s.store.Reports().Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"report_id": r.ID, "project_id": projectID}).Info("report filed")
	return s.store.Reports().GetByID(ctx, r.ID)
}

// List returns every report.
func (s *ReportService) List(ctx context.Context) ([]model.Report, error) {
	return s.store.Reports().List(ctx)
}

// UpdateStatus records the administrator's decision and tells the
// reporter.
func (s *ReportService) UpdateStatus(ctx context.Context, id uint64, status model.ReportStatus, adminResponse *string) (*model.Report, error) {
	if !status.Valid() {
		return nil, invalidInput("unknown report status %q", status)
	}
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		r, err := tx.Reports().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Reports().UpdateStatus(ctx, id, status, adminResponse); err != nil {
			return err
		}
		return enqueue(ctx, tx, reportStatusChanged(r.ReporterID, r.ProjectTitle, status))
	})
	if err != nil {
		return nil, err
	}
	return s.store.Reports().GetByID(ctx, id)
}
