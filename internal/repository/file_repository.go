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

const fileColumns = `id, project_id, uploader_id, stored_path, original_name, size_bytes, thumbnail_path, created_at`

// FileRepository stores metadata rows for uploaded project files.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository creates a new instance of FileRepository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// FindByID returns a file row by identifier.
func (r *FileRepository) FindByID(ctx context.Context, id string) (*models.ProjectFile, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_files WHERE id = $1 LIMIT 1`, fileColumns)
	var file models.ProjectFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find file by id: %w", err)
	}
	return &file, nil
}

// ListByProject returns file rows for a project, newest first.
func (r *FileRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProjectFile, error) {
	query := fmt.Sprintf(`SELECT %s FROM project_files WHERE project_id = $1 ORDER BY created_at DESC`, fileColumns)
	var files []models.ProjectFile
	if err := r.db.SelectContext(ctx, &files, query, projectID); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// Create inserts the file metadata and its activity entry atomically.
func (r *FileRepository) Create(ctx context.Context, file *models.ProjectFile, entry *models.ActivityEntry) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	entry.ProjectID = file.ProjectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin file create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, file.ProjectID); err != nil {
		return err
	}

	const query = `INSERT INTO project_files (id, project_id, uploader_id, stored_path, original_name, size_bytes, thumbnail_path, created_at)
		VALUES (:id, :project_id, :uploader_id, :stored_path, :original_name, :size_bytes, :thumbnail_path, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes the file metadata row and records the activity entry
// atomically. Returns sql.ErrNoRows when no row matches.
func (r *FileRepository) Delete(ctx context.Context, fileID, projectID string, entry *models.ActivityEntry) error {
	entry.ProjectID = projectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin file delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, projectID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM project_files WHERE id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}
