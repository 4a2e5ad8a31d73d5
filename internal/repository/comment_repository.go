package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyhub-app/studyhub-api/internal/models"
)

// CommentRepository stores immutable project comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new instance of CommentRepository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByProject returns comments newest-first with total count.
func (r *CommentRepository) ListByProject(ctx context.Context, projectID string, page, pageSize int) ([]models.ProjectComment, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT c.id, c.project_id, c.author_id, c.body, c.created_at, u.full_name AS author_name
		FROM project_comments c JOIN users u ON u.id = c.author_id
		WHERE c.project_id = $1 ORDER BY c.created_at DESC, c.id DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var comments []models.ProjectComment
	if err := r.db.SelectContext(ctx, &comments, query, projectID); err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM project_comments WHERE project_id = $1`, projectID); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	return comments, total, nil
}

// Create inserts the comment and its activity entry atomically.
func (r *CommentRepository) Create(ctx context.Context, comment *models.ProjectComment, entry *models.ActivityEntry) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	entry.ProjectID = comment.ProjectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin comment create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, comment.ProjectID); err != nil {
		return err
	}

	const query = `INSERT INTO project_comments (id, project_id, author_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, comment.ID, comment.ProjectID, comment.AuthorID, comment.Body, comment.CreatedAt); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}
