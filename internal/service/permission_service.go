package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type permissionProjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

type permissionCollaboratorRepository interface {
	FindRole(ctx context.Context, projectID, userID string) (*models.ProjectCollaborator, error)
}

// PermissionService resolves the effective role of a user on a project
// and gates every mutating operation through the capability table.
type PermissionService struct {
	projects permissionProjectRepository
	collabs  permissionCollaboratorRepository
	logger   *zap.Logger
}

// NewPermissionService constructs a permission resolver.
func NewPermissionService(projects permissionProjectRepository, collabs permissionCollaboratorRepository, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{projects: projects, collabs: collabs, logger: logger}
}

// Resolve computes the effective role: owner match first, then the
// collaborator row, else none.
func (s *PermissionService) Resolve(ctx context.Context, userID string, project *models.Project) (models.Role, error) {
	if project.OwnerID == userID {
		return models.RoleOwner, nil
	}
	collab, err := s.collabs.FindRole(ctx, project.ID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoleNone, nil
		}
		return models.RoleNone, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve role")
	}
	return collab.Role.Role(), nil
}

// RequireProject loads the project and verifies the actor holds the
// capability. A project the actor cannot even view is reported as
// NotFound so its existence never leaks; an insufficient role on a
// visible project is Forbidden.
func (s *PermissionService) RequireProject(ctx context.Context, userID, projectID string, capability models.Capability) (*models.Project, models.Role, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.RoleNone, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, models.RoleNone, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}

	role, err := s.Resolve(ctx, userID, project)
	if err != nil {
		return nil, models.RoleNone, err
	}

	if !role.Can(models.CapabilityView) {
		return nil, models.RoleNone, appErrors.Clone(appErrors.ErrNotFound, "project not found")
	}
	if !role.Can(capability) {
		return nil, role, appErrors.Clone(appErrors.ErrForbidden, "you do not have permission to perform this action")
	}

	return project, role, nil
}
