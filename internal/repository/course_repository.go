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

const courseColumns = `id, owner_id, name, code, semester, year, instructor, credits, created_at`

// CourseRepository stores the per-user course catalogue.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new instance of CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 LIMIT 1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// ListByOwner returns the user's courses ordered by year and semester.
func (r *CourseRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE owner_id = $1 ORDER BY year DESC, semester ASC`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, ownerID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, owner_id, name, code, semester, year, instructor, credits, created_at)
		VALUES (:id, :owner_id, :name, :code, :semester, :year, :instructor, :credits, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	const query = `UPDATE courses SET name = :name, code = :code, semester = :semester, year = :year, instructor = :instructor, credits = :credits WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course unless projects still reference it, in which
// case ErrCourseInUse is returned. The check and delete share one
// transaction so a concurrent project create cannot slip through.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin course delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var inUse int
	if err := tx.GetContext(ctx, &inUse, `SELECT COUNT(*) FROM projects WHERE course_id = $1`, id); err != nil {
		return fmt.Errorf("check course references: %w", err)
	}
	if inUse > 0 {
		return ErrCourseInUse
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}
