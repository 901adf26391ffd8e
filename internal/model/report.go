package model

import "time"

// ReportStatus tracks how an administrator handled a report.
type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportInReview ReportStatus = "IN_REVIEW"
	ReportResolved ReportStatus = "RESOLVED"
	ReportRejected ReportStatus = "REJECTED"
)

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportInReview, ReportResolved, ReportRejected:
		return true
	}
	return false
}

// Report is a complaint filed by a client or freelancer about a project.
type Report struct {
	ID               uint64       `json:"id"`
	ProjectID        uint64       `json:"project_id"`
	ProjectTitle     string       `json:"projectTitle,omitempty"`
	ReporterID       uint64       `json:"reporter_id"`
	ReporterUsername string       `json:"reporterUsername,omitempty"`
	Description      string       `json:"description"`
	Status           ReportStatus `json:"status"`
	AdminResponse    *string      `json:"adminResponse,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}
