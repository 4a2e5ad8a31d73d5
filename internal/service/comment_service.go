package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type commentRepository interface {
	ListByProject(ctx context.Context, projectID string, page, pageSize int) ([]models.ProjectComment, int, error)
	Create(ctx context.Context, comment *models.ProjectComment, entry *models.ActivityEntry) error
}

// CreateCommentRequest posts a discussion comment on a project.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

// CommentService handles project discussion threads. Comments are
// immutable once posted.
type CommentService struct {
	repo        commentRepository
	permissions *PermissionService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCommentService creates a new comment service instance.
func NewCommentService(repo commentRepository, permissions *PermissionService, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{repo: repo, permissions: permissions, validator: validate, logger: logger}
}

// Create posts a comment. Viewers can read the thread but only
// collaborators and the owner may post.
func (s *CommentService) Create(ctx context.Context, actorID, projectID string, req CreateCommentRequest) (*models.ProjectComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}

	if _, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityComment); err != nil {
		return nil, err
	}

	comment := &models.ProjectComment{
		ProjectID: projectID,
		AuthorID:  actorID,
		Body:      req.Body,
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityCommentAdded,
		Detail:  fmt.Sprintf("commented on project (%d chars)", len(req.Body)),
	}

	if err := s.repo.Create(ctx, comment, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}

	return comment, nil
}

// List returns the project's comments, newest first.
func (s *CommentService) List(ctx context.Context, actorID, projectID string, page, limit int) ([]models.ProjectComment, *models.Pagination, error) {
	if _, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityView); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	comments, total, err := s.repo.ListByProject(ctx, projectID, page, limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}

	pagination := &models.Pagination{Page: page, PageSize: limit, TotalCount: total}
	return comments, pagination, nil
}
