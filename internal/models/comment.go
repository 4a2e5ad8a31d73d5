package models

import "time"

// ProjectComment is a note posted on a project. Comments are immutable
// once posted; there are no edit semantics.
type ProjectComment struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Joined column for list views.
	AuthorName string `db:"author_name" json:"author_name,omitempty"`
}
