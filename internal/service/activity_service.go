package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type activityRepository interface {
	ListByProject(ctx context.Context, projectID string, page, pageSize int) ([]models.ActivityEntry, int, error)
}

// ActivityService exposes the append-only project activity log. Entries
// are written by the mutation paths; this service only reads.
type ActivityService struct {
	repo        activityRepository
	permissions *PermissionService
	logger      *zap.Logger
}

// NewActivityService creates a new activity service instance.
func NewActivityService(repo activityRepository, permissions *PermissionService, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, permissions: permissions, logger: logger}
}

// List returns the project's activity entries, newest first.
func (s *ActivityService) List(ctx context.Context, actorID, projectID string, page, limit int) ([]models.ActivityEntry, *models.Pagination, error) {
	if _, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityView); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, total, err := s.repo.ListByProject(ctx, projectID, page, limit)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}

	pagination := &models.Pagination{Page: page, PageSize: limit, TotalCount: total}
	return entries, pagination, nil
}
