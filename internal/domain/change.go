package domain

type Table string

const (
	TableProfiles            Table = "profiles"
	TableApplications        Table = "applications"
	TableApplicationComments Table = "application_comments"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is a row-level change notification. ApplicationID is set for
// application rows (their own id) and comment rows (the parent application).
type ChangeEvent struct {
	Table         Table      `json:"table"`
	Type          ChangeType `json:"type"`
	RecordID      string     `json:"id"`
	ApplicationID string     `json:"application_id,omitempty"`
}
