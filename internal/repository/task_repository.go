package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyhub-app/studyhub-api/internal/models"
)

const taskColumns = `id, project_id, title, description, status, priority, due_date, created_at, updated_at`

// TaskRepository provides database access for tasks. Mutations lock the
// parent project row and append the activity entry in one transaction.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new instance of TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID returns a task by identifier.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1 LIMIT 1`, taskColumns)
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task by id: %w", err)
	}
	return &task, nil
}

// ListByProject returns every task of a project, newest first.
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE project_id = $1 ORDER BY created_at DESC`, taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, projectID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create inserts the task and its activity entry atomically.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task, entry *models.ActivityEntry) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	entry.ProjectID = task.ProjectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, task.ProjectID); err != nil {
		return err
	}

	const query = `INSERT INTO tasks (id, project_id, title, description, status, priority, due_date, created_at, updated_at)
		VALUES (:id, :project_id, :title, :description, :status, :priority, :due_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Update persists mutable task fields and the activity entry atomically.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task, entry *models.ActivityEntry) error {
	task.UpdatedAt = time.Now().UTC()
	entry.ProjectID = task.ProjectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, task.ProjectID); err != nil {
		return err
	}

	const query = `UPDATE tasks SET title = :title, description = :description, status = :status, priority = :priority, due_date = :due_date, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes the task and records the activity entry atomically.
func (r *TaskRepository) Delete(ctx context.Context, taskID, projectID string, entry *models.ActivityEntry) error {
	entry.ProjectID = projectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, projectID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}
