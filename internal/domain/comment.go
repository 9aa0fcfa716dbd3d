package domain

import "time"

// Comment is append-only; there is no update or delete path.
type Comment struct {
	ID            string         `json:"id"`
	ApplicationID string         `json:"application_id"`
	ReviewerID    string         `json:"reviewer_id"`
	Comment       string         `json:"comment"`
	CreatedAt     time.Time      `json:"created_at"`
	Reviewer      *PersonSummary `json:"reviewer,omitempty"`
}
