package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type taskRepository interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task, entry *models.ActivityEntry) error
	Update(ctx context.Context, task *models.Task, entry *models.ActivityEntry) error
	Delete(ctx context.Context, taskID, projectID string, entry *models.ActivityEntry) error
}

// CreateTaskRequest is the payload for task creation.
type CreateTaskRequest struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

// UpdateTaskRequest updates mutable task fields. Status transitions are
// free-form among the known states.
type UpdateTaskRequest struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status" validate:"required"`
	Priority    models.TaskPriority `json:"priority" validate:"required"`
	DueDate     *time.Time          `json:"due_date"`
}

// TaskService orchestrates task workflows within a project.
type TaskService struct {
	repo        taskRepository
	permissions *PermissionService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTaskService creates a new task service instance.
func NewTaskService(repo taskRepository, permissions *PermissionService, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{repo: repo, permissions: permissions, validator: validate, logger: logger}
}

// Create adds a task to the project with status To Do.
func (s *TaskService) Create(ctx context.Context, actorID, projectID string, req CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid task priority")
	}

	if _, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityManageTasks); err != nil {
		return nil, err
	}

	task := &models.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatusTodo,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityTaskCreated,
		Detail:  fmt.Sprintf("created task %q", task.Title),
	}

	if err := s.repo.Create(ctx, task, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}

	return task, nil
}

// Update applies the field diff. A status change is recorded as
// task_status_changed with old and new values.
func (s *TaskService) Update(ctx context.Context, actorID, taskID string, req UpdateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid task status")
	}
	if !req.Priority.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid task priority")
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.permissions.RequireProject(ctx, actorID, task.ProjectID, models.CapabilityManageTasks); err != nil {
		return nil, err
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityTaskUpdated,
		Detail:  fmt.Sprintf("updated task %q", req.Title),
	}
	if task.Status != req.Status {
		entry.Action = models.ActivityTaskStatusChanged
		entry.Detail = fmt.Sprintf("task %q status changed from %q to %q", req.Title, task.Status, req.Status)
	}

	task.Title = req.Title
	task.Description = req.Description
	task.Status = req.Status
	task.Priority = req.Priority
	task.DueDate = req.DueDate

	if err := s.repo.Update(ctx, task, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}

	return task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, actorID, taskID string) error {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return err
	}

	if _, _, err := s.permissions.RequireProject(ctx, actorID, task.ProjectID, models.CapabilityManageTasks); err != nil {
		return err
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityTaskDeleted,
		Detail:  fmt.Sprintf("deleted task %q", task.Title),
	}

	if err := s.repo.Delete(ctx, task.ID, task.ProjectID, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}

	return nil
}

// List returns the project's tasks for any viewer.
func (s *TaskService) List(ctx context.Context, actorID, projectID string) ([]models.Task, error) {
	if _, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityView); err != nil {
		return nil, err
	}

	tasks, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	return tasks, nil
}

func (s *TaskService) findTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}
