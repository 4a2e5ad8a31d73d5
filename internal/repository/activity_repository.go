package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyhub-app/studyhub-api/internal/models"
)

// Sentinel errors surfaced by repositories for invariant violations.
// Services map these onto the domain error taxonomy.
var (
	ErrDuplicateCollaborator = errors.New("collaborator row already exists")
	ErrActiveSessionExists   = errors.New("user already has an open study session")
	ErrCourseInUse           = errors.New("course is still referenced by projects")
)

// ActivityRepository reads the append-only activity log. Writes happen
// exclusively through insertActivityTx inside the transaction of the
// mutation being recorded.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ListByProject returns entries newest-first with total count.
func (r *ActivityRepository) ListByProject(ctx context.Context, projectID string, page, pageSize int) ([]models.ActivityEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT a.id, a.project_id, a.actor_id, a.action, a.detail, a.created_at, u.full_name AS actor_name
		FROM activity_entries a JOIN users u ON u.id = a.actor_id
		WHERE a.project_id = $1 ORDER BY a.created_at DESC, a.id DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var entries []models.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, query, projectID); err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM activity_entries WHERE project_id = $1`, projectID); err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}

	return entries, total, nil
}

// insertActivityTx appends one activity row inside the caller's
// transaction so the mutation and its log entry commit or roll back
// together.
func insertActivityTx(ctx context.Context, tx *sqlx.Tx, e *models.ActivityEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_entries (id, project_id, actor_id, action, detail, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, query, e.ID, e.ProjectID, e.ActorID, e.Action, e.Detail, e.CreatedAt); err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

// lockProjectTx serializes the transaction against other mutations of
// the same project. Returns sql.ErrNoRows when the project is gone.
func lockProjectTx(ctx context.Context, tx *sqlx.Tx, projectID string) error {
	var id string
	if err := tx.GetContext(ctx, &id, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID); err != nil {
		return err
	}
	return nil
}
