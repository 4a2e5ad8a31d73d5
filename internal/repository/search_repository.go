package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/studyhub-app/studyhub-api/internal/models"
)

// visibleProjects restricts a query to projects the user owns or
// collaborates on. Every search query embeds it so no entity on an
// invisible project can surface, even in counts.
const visibleProjects = `(p.owner_id = :user_id OR EXISTS (SELECT 1 FROM project_collaborators pc WHERE pc.project_id = p.id AND pc.user_id = :user_id))`

// SearchRepository performs permission-scoped substring search.
type SearchRepository struct {
	db *sqlx.DB
}

// NewSearchRepository creates a new instance of SearchRepository.
func NewSearchRepository(db *sqlx.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

type searchArgs struct {
	UserID string `db:"user_id"`
	Query  string `db:"query"`
	Limit  int    `db:"limit"`
}

func (r *SearchRepository) run(ctx context.Context, dest interface{}, query string, args searchArgs) error {
	stmt, err := r.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare search: %w", err)
	}
	defer stmt.Close() //nolint:errcheck
	if err := stmt.SelectContext(ctx, dest, args); err != nil {
		return fmt.Errorf("run search: %w", err)
	}
	return nil
}

func likePattern(q string) string {
	return "%" + strings.ToLower(q) + "%"
}

// Projects matches visible project titles and descriptions.
func (r *SearchRepository) Projects(ctx context.Context, userID, q string, limit int) ([]models.Project, error) {
	query := `SELECT p.id, p.owner_id, p.course_id, p.title, p.description, p.status, p.deadline, p.created_at, p.updated_at
		FROM projects p WHERE ` + visibleProjects + `
		AND (LOWER(p.title) LIKE :query OR LOWER(p.description) LIKE :query)
		ORDER BY p.updated_at DESC LIMIT :limit`
	var projects []models.Project
	if err := r.run(ctx, &projects, query, searchArgs{UserID: userID, Query: likePattern(q), Limit: limit}); err != nil {
		return nil, err
	}
	return projects, nil
}

// Tasks matches task titles and descriptions on visible projects.
func (r *SearchRepository) Tasks(ctx context.Context, userID, q string, limit int) ([]models.Task, error) {
	query := `SELECT t.id, t.project_id, t.title, t.description, t.status, t.priority, t.due_date, t.created_at, t.updated_at
		FROM tasks t JOIN projects p ON p.id = t.project_id WHERE ` + visibleProjects + `
		AND (LOWER(t.title) LIKE :query OR LOWER(t.description) LIKE :query)
		ORDER BY t.updated_at DESC LIMIT :limit`
	var tasks []models.Task
	if err := r.run(ctx, &tasks, query, searchArgs{UserID: userID, Query: likePattern(q), Limit: limit}); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Comments matches comment bodies on visible projects.
func (r *SearchRepository) Comments(ctx context.Context, userID, q string, limit int) ([]models.ProjectComment, error) {
	query := `SELECT c.id, c.project_id, c.author_id, c.body, c.created_at
		FROM project_comments c JOIN projects p ON p.id = c.project_id WHERE ` + visibleProjects + `
		AND LOWER(c.body) LIKE :query
		ORDER BY c.created_at DESC LIMIT :limit`
	var comments []models.ProjectComment
	if err := r.run(ctx, &comments, query, searchArgs{UserID: userID, Query: likePattern(q), Limit: limit}); err != nil {
		return nil, err
	}
	return comments, nil
}

// Files matches original filenames on visible projects.
func (r *SearchRepository) Files(ctx context.Context, userID, q string, limit int) ([]models.ProjectFile, error) {
	query := `SELECT f.id, f.project_id, f.uploader_id, f.stored_path, f.original_name, f.size_bytes, f.thumbnail_path, f.created_at
		FROM project_files f JOIN projects p ON p.id = f.project_id WHERE ` + visibleProjects + `
		AND LOWER(f.original_name) LIKE :query
		ORDER BY f.created_at DESC LIMIT :limit`
	var files []models.ProjectFile
	if err := r.run(ctx, &files, query, searchArgs{UserID: userID, Query: likePattern(q), Limit: limit}); err != nil {
		return nil, err
	}
	return files, nil
}
