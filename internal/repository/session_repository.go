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

const sessionColumns = `id, user_id, project_id, state, started_at, last_resumed_at, accumulated_seconds, ended_at, notes`

// SessionRepository stores study session timers. The single-open-session
// invariant is enforced inside the Create transaction by locking the
// user row before checking for an existing open session, so two
// concurrent starts cannot both succeed.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindOpenByUser returns the user's active or paused session.
func (r *SessionRepository) FindOpenByUser(ctx context.Context, userID string) (*models.StudySession, error) {
	query := fmt.Sprintf(`SELECT %s FROM study_sessions WHERE user_id = $1 AND state != $2 LIMIT 1`, sessionColumns)
	var session models.StudySession
	if err := r.db.GetContext(ctx, &session, query, userID, models.SessionCompleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return &session, nil
}

// Create inserts the session after verifying no other open session
// exists for the user. Returns ErrActiveSessionExists on violation.
func (r *SessionRepository) Create(ctx context.Context, session *models.StudySession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var userID string
	if err := tx.GetContext(ctx, &userID, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, session.UserID); err != nil {
		return err
	}

	var open int
	if err := tx.GetContext(ctx, &open, `SELECT COUNT(*) FROM study_sessions WHERE user_id = $1 AND state != $2`, session.UserID, models.SessionCompleted); err != nil {
		return fmt.Errorf("check open session: %w", err)
	}
	if open > 0 {
		return ErrActiveSessionExists
	}

	const query = `INSERT INTO study_sessions (id, user_id, project_id, state, started_at, last_resumed_at, accumulated_seconds, ended_at, notes)
		VALUES (:id, :user_id, :project_id, :state, :started_at, :last_resumed_at, :accumulated_seconds, :ended_at, :notes)`
	if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return tx.Commit()
}

// Update persists timer state changes for a session.
func (r *SessionRepository) Update(ctx context.Context, session *models.StudySession) error {
	const query = `UPDATE study_sessions SET state = :state, last_resumed_at = :last_resumed_at, accumulated_seconds = :accumulated_seconds, ended_at = :ended_at, notes = :notes WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// ListCompleted returns the user's completed sessions since the given
// instant, newest first. Feeds the analytics reducers.
func (r *SessionRepository) ListCompleted(ctx context.Context, userID string, since time.Time) ([]models.StudySession, error) {
	query := fmt.Sprintf(`SELECT %s FROM study_sessions WHERE user_id = $1 AND state = $2 AND ended_at >= $3 ORDER BY ended_at DESC`, sessionColumns)
	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, query, userID, models.SessionCompleted, since); err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	return sessions, nil
}
