package model

import "time"

// ApplicationStatus is the state of a freelancer's application.
type ApplicationStatus string

const (
	ApplicationWaiting  ApplicationStatus = "WAITING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationWaiting, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationApproved || s == ApplicationRejected
}

// Application links a freelancer to a project they want to work on.
//
// Fields:
//
//	ID             – primary key identifier.
//	ProjectID      – project applied to.
//	ProjectTitle   – title of that project (read-only, joined).
//	FreelancerID   – applicant.
//	FreelancerName – applicant username (read-only, joined).
//	CoverLetter    – free text.
//	AttachmentKey  – object storage key of an uploaded CV, if any.
//	Status         – WAITING, APPROVED or REJECTED.
//	CreatedAt      – creation timestamp.
type Application struct {
	ID             uint64            `json:"id"`
	ProjectID      uint64            `json:"project_id"`
	ProjectTitle   string            `json:"project_title,omitempty"`
	FreelancerID   uint64            `json:"freelancer_id"`
	FreelancerName string            `json:"freelancer,omitempty"`
	CoverLetter    string            `json:"cover_letter"`
	AttachmentKey  *string           `json:"cv_file_path,omitempty"`
	Status         ApplicationStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}
