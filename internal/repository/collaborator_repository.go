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

// CollaboratorRepository manages project_collaborators rows. The unique
// (project_id, user_id) constraint plus the project row lock keep the
// at-most-one-role invariant under concurrent invites.
type CollaboratorRepository struct {
	db *sqlx.DB
}

// NewCollaboratorRepository creates a new instance of CollaboratorRepository.
func NewCollaboratorRepository(db *sqlx.DB) *CollaboratorRepository {
	return &CollaboratorRepository{db: db}
}

// FindRole returns the collaborator row for (project, user).
func (r *CollaboratorRepository) FindRole(ctx context.Context, projectID, userID string) (*models.ProjectCollaborator, error) {
	const query = `SELECT id, project_id, user_id, role, invited_by, created_at FROM project_collaborators WHERE project_id = $1 AND user_id = $2 LIMIT 1`
	var collab models.ProjectCollaborator
	if err := r.db.GetContext(ctx, &collab, query, projectID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find collaborator role: %w", err)
	}
	return &collab, nil
}

// ListByProject returns collaborator rows joined with user identity.
func (r *CollaboratorRepository) ListByProject(ctx context.Context, projectID string) ([]models.ProjectCollaborator, error) {
	const query = `SELECT c.id, c.project_id, c.user_id, c.role, c.invited_by, c.created_at, u.email, u.full_name
		FROM project_collaborators c JOIN users u ON u.id = c.user_id
		WHERE c.project_id = $1 ORDER BY c.created_at ASC`
	var collabs []models.ProjectCollaborator
	if err := r.db.SelectContext(ctx, &collabs, query, projectID); err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	return collabs, nil
}

// Insert adds a collaborator row and the activity entry atomically.
// Returns ErrDuplicateCollaborator when a row already exists; the
// project row lock makes the check race-free.
func (r *CollaboratorRepository) Insert(ctx context.Context, collab *models.ProjectCollaborator, entry *models.ActivityEntry) error {
	if collab.ID == "" {
		collab.ID = uuid.NewString()
	}
	if collab.CreatedAt.IsZero() {
		collab.CreatedAt = time.Now().UTC()
	}
	entry.ProjectID = collab.ProjectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin collaborator insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, collab.ProjectID); err != nil {
		return err
	}

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM project_collaborators WHERE project_id = $1 AND user_id = $2`, collab.ProjectID, collab.UserID); err != nil {
		return fmt.Errorf("check collaborator exists: %w", err)
	}
	if existing > 0 {
		return ErrDuplicateCollaborator
	}

	const query = `INSERT INTO project_collaborators (id, project_id, user_id, role, invited_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, query, collab.ID, collab.ProjectID, collab.UserID, collab.Role, collab.InvitedBy, collab.CreatedAt); err != nil {
		return fmt.Errorf("insert collaborator: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateRole changes a collaborator's role and records the activity
// entry atomically. Returns sql.ErrNoRows when no row matches.
func (r *CollaboratorRepository) UpdateRole(ctx context.Context, projectID, userID string, role models.CollaboratorRole, entry *models.ActivityEntry) error {
	entry.ProjectID = projectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, projectID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `UPDATE project_collaborators SET role = $3 WHERE project_id = $1 AND user_id = $2`, projectID, userID, role)
	if err != nil {
		return fmt.Errorf("update collaborator role: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a collaborator row and records the activity entry
// atomically. Returns sql.ErrNoRows when no row matches.
func (r *CollaboratorRepository) Delete(ctx context.Context, projectID, userID string, entry *models.ActivityEntry) error {
	entry.ProjectID = projectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin collaborator delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, projectID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM project_collaborators WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("delete collaborator: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}

// TransferOwnership atomically reassigns the project owner: the new
// owner's collaborator row (if any) is removed, the previous owner is
// demoted to collaborator, the project row is updated and a single
// activity entry records the swap.
func (r *CollaboratorRepository) TransferOwnership(ctx context.Context, projectID, oldOwnerID, newOwnerID string, entry *models.ActivityEntry) error {
	entry.ProjectID = projectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ownership transfer: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockProjectTx(ctx, tx, projectID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_collaborators WHERE project_id = $1 AND user_id = $2`, projectID, newOwnerID); err != nil {
		return fmt.Errorf("remove new owner collaborator row: %w", err)
	}

	const demote = `INSERT INTO project_collaborators (id, project_id, user_id, role, invited_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, demote, uuid.NewString(), projectID, oldOwnerID, models.CollaboratorRoleCollaborator, newOwnerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("demote previous owner: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE projects SET owner_id = $2, updated_at = $3 WHERE id = $1`, projectID, newOwnerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("reassign project owner: %w", err)
	}

	if err := insertActivityTx(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit()
}
