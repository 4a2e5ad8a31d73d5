package models

import "time"

// TaskStatus enumerates the lifecycle states of a task. Transitions are
// free-form: Done is reachable directly from To Do.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "To Do"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusDone       TaskStatus = "Done"
)

// Valid reports whether the status is one of the known states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority enumerates task priorities.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "High"
	PriorityMedium TaskPriority = "Medium"
	PriorityLow    TaskPriority = "Low"
)

// Valid reports whether the priority is one of the known values.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task belongs to exactly one project. Its due date is never validated
// against the project deadline; overdue is computed independently.
type Task struct {
	ID          string       `db:"id" json:"id"`
	ProjectID   string       `db:"project_id" json:"project_id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Status      TaskStatus   `db:"status" json:"status"`
	Priority    TaskPriority `db:"priority" json:"priority"`
	DueDate     *time.Time   `db:"due_date" json:"due_date,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// IsOverdue reports whether the task due date has passed without completion.
func (t *Task) IsOverdue(now time.Time) bool {
	return Overdue(t.DueDate, t.Status == TaskStatusDone, now)
}
