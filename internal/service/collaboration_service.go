package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	"github.com/studyhub-app/studyhub-api/internal/repository"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type collaboratorRepository interface {
	FindRole(ctx context.Context, projectID, userID string) (*models.ProjectCollaborator, error)
	ListByProject(ctx context.Context, projectID string) ([]models.ProjectCollaborator, error)
	Insert(ctx context.Context, collab *models.ProjectCollaborator, entry *models.ActivityEntry) error
	UpdateRole(ctx context.Context, projectID, userID string, role models.CollaboratorRole, entry *models.ActivityEntry) error
	Delete(ctx context.Context, projectID, userID string, entry *models.ActivityEntry) error
	TransferOwnership(ctx context.Context, projectID, oldOwnerID, newOwnerID string, entry *models.ActivityEntry) error
}

type collaborationUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type inviteNotifier interface {
	NotifyInvite(project *models.Project, invitee *models.User, role models.CollaboratorRole)
}

// InviteRequest adds a user to a project by email.
type InviteRequest struct {
	Email string                  `json:"email" validate:"required,email"`
	Role  models.CollaboratorRole `json:"role" validate:"required"`
}

// ChangeRoleRequest switches a collaborator between the grantable roles.
type ChangeRoleRequest struct {
	Role models.CollaboratorRole `json:"role" validate:"required"`
}

// TransferOwnershipRequest hands the project to a new owner.
type TransferOwnershipRequest struct {
	NewOwnerID string `json:"new_owner_id" validate:"required"`
}

// CollaborationService manages project membership. Only owners may
// invite, remove or re-role collaborators.
type CollaborationService struct {
	repo        collaboratorRepository
	users       collaborationUserRepository
	permissions *PermissionService
	notifier    inviteNotifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCollaborationService creates a new collaboration service instance.
func NewCollaborationService(repo collaboratorRepository, users collaborationUserRepository, permissions *PermissionService, notifier inviteNotifier, validate *validator.Validate, logger *zap.Logger) *CollaborationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollaborationService{repo: repo, users: users, permissions: permissions, notifier: notifier, validator: validate, logger: logger}
}

// Invite adds the user identified by email with the requested role. The
// owner role cannot be granted this way; a duplicate row is a Conflict.
// Notification delivery is best-effort and never fails the invite.
func (s *CollaborationService) Invite(ctx context.Context, actorID, projectID string, req InviteRequest) (*models.ProjectCollaborator, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invite payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be collaborator or viewer")
	}

	project, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityManageCollaborators)
	if err != nil {
		return nil, err
	}

	invitee, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no user with that email")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user")
	}

	if invitee.ID == project.OwnerID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already owns this project")
	}

	collab := &models.ProjectCollaborator{
		ProjectID: projectID,
		UserID:    invitee.ID,
		Role:      req.Role,
		InvitedBy: actorID,
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityCollaboratorAdded,
		Detail:  fmt.Sprintf("added %s as %s", invitee.Email, req.Role),
	}

	if err := s.repo.Insert(ctx, collab, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateCollaborator) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user is already a collaborator on this project")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add collaborator")
	}

	if s.notifier != nil {
		s.notifier.NotifyInvite(project, invitee, req.Role)
	}

	collab.Email = invitee.Email
	collab.FullName = invitee.FullName
	return collab, nil
}

// ChangeRole switches a collaborator's role. Changing to the role the
// collaborator already holds is a no-op and records nothing. The
// owner's role cannot be targeted.
func (s *CollaborationService) ChangeRole(ctx context.Context, actorID, projectID, userID string, req ChangeRoleRequest) (*models.ProjectCollaborator, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be collaborator or viewer")
	}

	project, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityManageCollaborators)
	if err != nil {
		return nil, err
	}

	if userID == project.OwnerID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the owner's role can only change through an ownership transfer")
	}

	existing, err := s.repo.FindRole(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collaborator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collaborator")
	}

	if existing.Role == req.Role {
		return existing, nil
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityProjectUpdated,
		Detail:  fmt.Sprintf("changed collaborator role from %s to %s", existing.Role, req.Role),
	}

	if err := s.repo.UpdateRole(ctx, projectID, userID, req.Role, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "collaborator changed concurrently, refetch and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change role")
	}

	existing.Role = req.Role
	return existing, nil
}

// Remove deletes a collaborator row.
func (s *CollaborationService) Remove(ctx context.Context, actorID, projectID, userID string) error {
	project, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityManageCollaborators)
	if err != nil {
		return err
	}

	if userID == project.OwnerID {
		return appErrors.Clone(appErrors.ErrConflict, "the owner cannot be removed from their own project")
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityCollaboratorRemoved,
		Detail:  fmt.Sprintf("removed collaborator %s", userID),
	}

	if err := s.repo.Delete(ctx, projectID, userID, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "collaborator not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove collaborator")
	}

	return nil
}

// TransferOwnership atomically hands the project to the new owner and
// demotes the previous owner to collaborator, recording one entry that
// names both parties.
func (s *CollaborationService) TransferOwnership(ctx context.Context, actorID, projectID string, req TransferOwnershipRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}

	project, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityManageCollaborators)
	if err != nil {
		return err
	}

	if req.NewOwnerID == project.OwnerID {
		return appErrors.Clone(appErrors.ErrConflict, "user already owns this project")
	}

	newOwner, err := s.users.FindByID(ctx, req.NewOwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user")
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityOwnershipTransferred,
		Detail:  fmt.Sprintf("ownership transferred from %s to %s", project.OwnerID, newOwner.ID),
	}

	if err := s.repo.TransferOwnership(ctx, projectID, project.OwnerID, newOwner.ID, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer ownership")
	}

	return nil
}

// List returns collaborator rows for any viewer of the project.
func (s *CollaborationService) List(ctx context.Context, actorID, projectID string) ([]models.ProjectCollaborator, error) {
	if _, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityView); err != nil {
		return nil, err
	}

	collabs, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collaborators")
	}
	return collabs, nil
}
