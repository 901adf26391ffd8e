package model

import "time"

// ProjectStatus is the moderation and delivery state of a project.
type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "PENDING"
	ProjectApproved   ProjectStatus = "APPROVED"
	ProjectDenied     ProjectStatus = "DENIED"
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectCompleted  ProjectStatus = "COMPLETED"
)

// projectTransitions lists every legal (from, to) pair.  Moves not listed
// here are rejected by CanTransition.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectPending:    {ProjectApproved, ProjectDenied},
	ProjectApproved:   {ProjectInProgress},
	ProjectInProgress: {ProjectCompleted},
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPending, ProjectApproved, ProjectDenied, ProjectInProgress, ProjectCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a project may move from s to next.
func (s ProjectStatus) CanTransition(next ProjectStatus) bool {
	for _, to := range projectTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// AcceptsApplications reports whether freelancers may still apply.  Only
// approved projects are listed as available.
func (s ProjectStatus) AcceptsApplications() bool { return s == ProjectApproved }

// Project is a job posted by a client.
//
// Fields:
//
//	ID           – primary key identifier.
//	Title        – short title shown in listings.
//	Description  – free text description.
//	Budget       – offered budget.
//	Deadline     – delivery deadline (date only).
//	ClientID     – owning client.
//	ClientName   – username of the owning client (read-only, joined).
//	FreelancerID – assigned freelancer; nil until an application is accepted.
//	Status       – lifecycle state.
//	CreatedAt    – creation timestamp.
type Project struct {
	ID           uint64        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Budget       float64       `json:"budget"`
	Deadline     time.Time     `json:"deadline"`
	ClientID     uint64        `json:"client_id"`
	ClientName   string        `json:"client,omitempty"`
	FreelancerID *uint64       `json:"freelancer_id,omitempty"`
	Status       ProjectStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ClientStats summarizes a client's projects for their dashboard.
type ClientStats struct {
	ActiveProjects      int `json:"activeProjects"`
	CompletedProjects   int `json:"completedProjects"`
	PendingApplications int `json:"pendingApplications"`
}
