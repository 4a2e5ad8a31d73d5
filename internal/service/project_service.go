package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type projectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
	ListVisible(ctx context.Context, userID string, filter models.ProjectFilter) ([]models.Project, int, error)
	Create(ctx context.Context, project *models.Project, entry *models.ActivityEntry) error
	Update(ctx context.Context, project *models.Project, entry *models.ActivityEntry) error
	Delete(ctx context.Context, projectID string, entry *models.ActivityEntry) ([]string, error)
}

type projectCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type projectFileStore interface {
	Delete(relPath string) error
	DeleteProject(projectID string) error
}

// CreateProjectRequest is the payload for project creation.
type CreateProjectRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	CourseID    *string    `json:"course_id"`
	Deadline    *time.Time `json:"deadline"`
}

// UpdateProjectRequest updates mutable project fields.
type UpdateProjectRequest struct {
	Title       string               `json:"title" validate:"required"`
	Description string               `json:"description"`
	CourseID    *string              `json:"course_id"`
	Status      models.ProjectStatus `json:"status" validate:"required"`
	Deadline    *time.Time           `json:"deadline"`
}

// ProjectService orchestrates project workflows, gated by the
// permission resolver and recorded through the activity log.
type ProjectService struct {
	repo        projectRepository
	courses     projectCourseRepository
	permissions *PermissionService
	store       projectFileStore
	analytics   analyticsInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewProjectService creates a new project service instance. A nil
// analytics invalidator disables cache invalidation.
func NewProjectService(repo projectRepository, courses projectCourseRepository, permissions *PermissionService, store projectFileStore, analytics analyticsInvalidator, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{repo: repo, courses: courses, permissions: permissions, store: store, analytics: analytics, validator: validate, logger: logger}
}

// Create validates the payload and persists a new project owned by the
// actor, with status Planning and a project_created entry.
func (s *ProjectService) Create(ctx context.Context, actorID string, req CreateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	if req.CourseID != nil && *req.CourseID != "" {
		if err := s.checkCourse(ctx, actorID, *req.CourseID); err != nil {
			return nil, err
		}
	} else {
		req.CourseID = nil
	}

	project := &models.Project{
		OwnerID:     actorID,
		CourseID:    req.CourseID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.ProjectStatusPlanning,
		Deadline:    req.Deadline,
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityProjectCreated,
		Detail:  fmt.Sprintf("created project %q", project.Title),
	}

	if err := s.repo.Create(ctx, project, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}

	s.invalidate(ctx, project.OwnerID)
	return project, nil
}

// Update applies the field diff. A status change is recorded as
// status_changed with old and new values; any other change as
// project_updated.
func (s *ProjectService) Update(ctx context.Context, actorID, projectID string, req UpdateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid project status")
	}

	project, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityManageProject)
	if err != nil {
		return nil, err
	}

	if req.CourseID != nil && *req.CourseID != "" {
		if err := s.checkCourse(ctx, actorID, *req.CourseID); err != nil {
			return nil, err
		}
	} else {
		req.CourseID = nil
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityProjectUpdated,
		Detail:  fmt.Sprintf("updated project %q", req.Title),
	}
	if project.Status != req.Status {
		entry.Action = models.ActivityStatusChanged
		entry.Detail = fmt.Sprintf("status changed from %q to %q", project.Status, req.Status)
	}

	project.Title = req.Title
	project.Description = req.Description
	project.CourseID = req.CourseID
	project.Status = req.Status
	project.Deadline = req.Deadline

	if err := s.repo.Update(ctx, project, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}

	s.invalidate(ctx, project.OwnerID)
	return project, nil
}

// Delete removes the project with an ordered transactional cascade.
// Activity rows are retained behind a terminal project_deleted marker;
// stored file bytes are cleaned up best-effort after commit.
func (s *ProjectService) Delete(ctx context.Context, actorID, projectID string) error {
	project, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityManageProject)
	if err != nil {
		return err
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityProjectDeleted,
		Detail:  fmt.Sprintf("deleted project %q", project.Title),
	}

	storedPaths, err := s.repo.Delete(ctx, projectID, entry)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}

	if s.store != nil {
		for _, path := range storedPaths {
			if err := s.store.Delete(path); err != nil {
				s.logger.Warn("failed to remove stored file", zap.String("path", path), zap.Error(err))
			}
		}
		if err := s.store.DeleteProject(projectID); err != nil {
			s.logger.Warn("failed to remove project upload directory", zap.String("project_id", projectID), zap.Error(err))
		}
	}

	s.invalidate(ctx, project.OwnerID)
	return nil
}

// Get returns the project view with the pre-computed overdue flag and
// capability booleans for the presentation layer.
func (s *ProjectService) Get(ctx context.Context, actorID, projectID string) (*models.ProjectView, error) {
	project, role, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityView)
	if err != nil {
		return nil, err
	}

	return &models.ProjectView{
		Project:          *project,
		Overdue:          project.IsOverdue(time.Now()),
		Role:             role,
		CanEditTasks:     role.Can(models.CapabilityManageTasks),
		CanManageMembers: role.Can(models.CapabilityManageCollaborators),
		CanEditProject:   role.Can(models.CapabilityManageProject),
	}, nil
}

// List returns the actor's visible projects (owned plus collaborating).
func (s *ProjectService) List(ctx context.Context, actorID string, filter models.ProjectFilter) ([]models.Project, *models.Pagination, error) {
	projects, total, err := s.repo.ListVisible(ctx, actorID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return projects, pagination, nil
}

// invalidate drops the owner's cached dashboard after a mutation that
// changes project counts or status.
func (s *ProjectService) invalidate(ctx context.Context, ownerID string) {
	if s.analytics != nil {
		s.analytics.InvalidateUser(ctx, ownerID)
	}
}

func (s *ProjectService) checkCourse(ctx context.Context, actorID, courseID string) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if course.OwnerID != actorID {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return nil
}
