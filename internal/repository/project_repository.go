package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyhub-app/studyhub-api/internal/models"
)

const projectColumns = `id, owner_id, course_id, title, description, status, deadline, created_at, updated_at`

// ProjectRepository provides database access for projects. Every
// mutation runs in a transaction that also appends the activity entry,
// locking the project row first so mutations on the same project are
// serialized.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new instance of ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID returns a project by identifier.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	return &project, nil
}

// ListVisible returns projects the user owns or collaborates on.
func (r *ProjectRepository) ListVisible(ctx context.Context, userID string, filter models.ProjectFilter) ([]models.Project, int, error) {
	baseQuery := `FROM projects p WHERE (p.owner_id = $1 OR EXISTS (SELECT 1 FROM project_collaborators pc WHERE pc.project_id = p.id AND pc.user_id = $1))`
	args := []interface{}{userID}

	var conditions []string
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("p.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.title) LIKE $%d OR LOWER(p.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"title":      true,
		"deadline":   true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	cols := strings.ReplaceAll(projectColumns, ", ", ", p.")
	listQuery := fmt.Sprintf("SELECT p.%s %s ORDER BY p.%s %s LIMIT %d OFFSET %d", cols, baseQuery, sortBy, sortOrder, pageSize, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	return projects, total, nil
}

// ListByOwner returns every project owned by the user, unpaginated.
// Used by the dashboard reducers.
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE owner_id = $1 ORDER BY created_at DESC`, projectColumns)
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, ownerID); err != nil {
		return nil, fmt.Errorf("list projects by owner: %w", err)
	}
	return projects, nil
}

// CountByCourse returns the number of projects referencing a course.
func (r *ProjectRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM projects WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count projects by course: %w", err)
	}
	return total, nil
}

// Create inserts the project and its activity entry atomically.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project, entry *models.ActivityEntry) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	entry.ProjectID = project.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO projects (id, owner_id, course_id, title, description, status, deadline, created_at, updated_at)
		VALUES (:id, :owner_id, :course_id, :title, :description, :status, :deadline, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Update persists mutable project fields and the activity entry atomically.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project, entry *models.ActivityEntry) error {
	project.UpdatedAt = time.Now().UTC()
	entry.ProjectID = project.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, project.ID); err != nil {
		return err
	}

	const query = `UPDATE projects SET course_id = :course_id, title = :title, description = :description, status = :status, deadline = :deadline, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes the project and its children in one transaction:
// terminal activity entry first, then sessions, files, comments, tasks
// and collaborator rows before the project itself. Activity rows are
// retained as the post-deletion audit trail. The stored paths of the
// project's files are returned so the caller can clean up the storage
// layer after commit.
func (r *ProjectRepository) Delete(ctx context.Context, projectID string, entry *models.ActivityEntry) ([]string, error) {
	entry.ProjectID = projectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin project delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, projectID); err != nil {
		return nil, err
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	var storedPaths []string
	if err := tx.SelectContext(ctx, &storedPaths, `SELECT stored_path FROM project_files WHERE project_id = $1`, projectID); err != nil {
		return nil, fmt.Errorf("collect project file paths: %w", err)
	}

	teardown := []string{
		`DELETE FROM study_sessions WHERE project_id = $1`,
		`DELETE FROM project_files WHERE project_id = $1`,
		`DELETE FROM project_comments WHERE project_id = $1`,
		`DELETE FROM tasks WHERE project_id = $1`,
		`DELETE FROM project_collaborators WHERE project_id = $1`,
		`DELETE FROM projects WHERE id = $1`,
	}
	for _, stmt := range teardown {
		if _, err := tx.ExecContext(ctx, stmt, projectID); err != nil {
			return nil, fmt.Errorf("cascade project delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit project delete: %w", err)
	}
	return storedPaths, nil
}
