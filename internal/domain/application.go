package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

// ApplicationStatuses lists every status in display order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPending,
	ApplicationStatusUnderReview,
	ApplicationStatusApproved,
	ApplicationStatusRejected,
}

// Valid reports whether s is a known status. Any valid status may follow any
// other; there is no transition table.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusUnderReview, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	}
	return false
}

// Label is the human readable status name.
func (s ApplicationStatus) Label() string {
	switch s {
	case ApplicationStatusPending:
		return "Pending"
	case ApplicationStatusUnderReview:
		return "Under Review"
	case ApplicationStatusApproved:
		return "Approved"
	case ApplicationStatusRejected:
		return "Rejected"
	}
	return string(s)
}

type Application struct {
	ID                 string            `json:"id"`
	ApplicantID        string            `json:"applicant_id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Status             ApplicationStatus `json:"status"`
	AssignedReviewerID *string           `json:"assigned_reviewer_id"`
	SubmittedAt        time.Time         `json:"submitted_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Applicant          *PersonSummary    `json:"applicant,omitempty"`        // Populated on list
	AssignedReviewer   *PersonSummary    `json:"assigned_reviewer,omitempty"` // Populated on list when assigned
}

// ApplicationFilter narrows a list query. Empty fields do not filter.
type ApplicationFilter struct {
	ApplicantID        string
	AssignedReviewerID string
}
