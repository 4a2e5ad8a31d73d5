package models

import "time"

// ProjectStatus enumerates the lifecycle states of a project.
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "Planning"
	ProjectStatusInProgress ProjectStatus = "In Progress"
	ProjectStatusCompleted  ProjectStatus = "Completed"
	ProjectStatusOnHold     ProjectStatus = "On Hold"
)

// Valid reports whether the status is one of the known states.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusOnHold:
		return true
	}
	return false
}

// Project is an academic project owned by exactly one user.
type Project struct {
	ID          string        `db:"id" json:"id"`
	OwnerID     string        `db:"owner_id" json:"owner_id"`
	CourseID    *string       `db:"course_id" json:"course_id,omitempty"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Status      ProjectStatus `db:"status" json:"status"`
	Deadline    *time.Time    `db:"deadline" json:"deadline,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// IsOverdue reports whether the project deadline has passed without completion.
func (p *Project) IsOverdue(now time.Time) bool {
	return Overdue(p.Deadline, p.Status == ProjectStatusCompleted, now)
}

// Overdue is the shared deadline check for projects and tasks.
// Comparison happens in UTC so mixed-zone inputs cannot skew the result.
func Overdue(deadline *time.Time, completed bool, now time.Time) bool {
	if deadline == nil || completed {
		return false
	}
	return deadline.UTC().Before(now.UTC())
}

// ProjectFilter captures list criteria for a user's visible projects.
type ProjectFilter struct {
	CourseID  string
	Status    ProjectStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ProjectView is the read model handed to the presentation layer:
// the pre-computed overdue flag and role booleans keep authorization
// logic out of templates.
type ProjectView struct {
	Project
	Overdue          bool `json:"overdue"`
	Role             Role `json:"role"`
	CanEditTasks     bool `json:"can_edit_tasks"`
	CanManageMembers bool `json:"can_manage_members"`
	CanEditProject   bool `json:"can_edit_project"`
}
