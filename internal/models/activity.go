package models

import "time"

// ActivityAction constants enumerate the tracked mutation kinds.
const (
	ActivityProjectCreated       = "project_created"
	ActivityProjectUpdated       = "project_updated"
	ActivityStatusChanged        = "status_changed"
	ActivityProjectDeleted       = "project_deleted"
	ActivityTaskCreated          = "task_created"
	ActivityTaskUpdated          = "task_updated"
	ActivityTaskStatusChanged    = "task_status_changed"
	ActivityTaskDeleted          = "task_deleted"
	ActivityCollaboratorAdded    = "collaborator_added"
	ActivityCollaboratorRemoved  = "collaborator_removed"
	ActivityCommentAdded         = "comment_added"
	ActivityFileUploaded         = "file_uploaded"
	ActivityFileDeleted          = "file_deleted"
	ActivityOwnershipTransferred = "ownership_transferred"
)

// ActivityEntry is an immutable audit record of one project mutation.
// Rows are appended in the same transaction as the mutation they
// describe and are never updated or deleted, surviving even project
// deletion behind a terminal project_deleted marker.
type ActivityEntry struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined column for list views.
	ActorName string `db:"actor_name" json:"actor_name,omitempty"`
}
