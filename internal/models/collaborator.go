package models

import "time"

// CollaboratorRole is the grantable subset of roles. The owner is
// carried on the project row itself, never as a collaborator row, so
// ownership can only move through an explicit transfer.
type CollaboratorRole string

const (
	CollaboratorRoleCollaborator CollaboratorRole = "collaborator"
	CollaboratorRoleViewer       CollaboratorRole = "viewer"
)

// Valid reports whether the role may be granted through an invite.
func (r CollaboratorRole) Valid() bool {
	return r == CollaboratorRoleCollaborator || r == CollaboratorRoleViewer
}

// Role maps the stored collaborator role onto the effective role enum.
func (r CollaboratorRole) Role() Role {
	switch r {
	case CollaboratorRoleCollaborator:
		return RoleCollaborator
	case CollaboratorRoleViewer:
		return RoleViewer
	}
	return RoleNone
}

// ProjectCollaborator pairs a project with an invited user and their
// role. At most one row exists per (project, user).
type ProjectCollaborator struct {
	ID        string           `db:"id" json:"id"`
	ProjectID string           `db:"project_id" json:"project_id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Role      CollaboratorRole `db:"role" json:"role"`
	InvitedBy string           `db:"invited_by" json:"invited_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`

	// Joined columns for list views.
	Email    string `db:"email" json:"email,omitempty"`
	FullName string `db:"full_name" json:"full_name,omitempty"`
}
