package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	"github.com/studyhub-app/studyhub-api/internal/repository"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type sessionRepository interface {
	FindOpenByUser(ctx context.Context, userID string) (*models.StudySession, error)
	Create(ctx context.Context, session *models.StudySession) error
	Update(ctx context.Context, session *models.StudySession) error
}

// StartSessionRequest begins a study timer, optionally bound to one of
// the user's visible projects.
type StartSessionRequest struct {
	ProjectID *string `json:"project_id,omitempty"`
	Notes     string  `json:"notes" validate:"max=1000"`
}

// StopSessionRequest completes the open session.
type StopSessionRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// SessionService drives the study timer state machine:
// active -> paused -> active ... -> completed. A user has at most one
// session that is not completed.
type SessionService struct {
	repo        sessionRepository
	permissions *PermissionService
	analytics   analyticsInvalidator
	validator   *validator.Validate
	logger      *zap.Logger

	now func() time.Time
}

// NewSessionService creates a new session service instance. A nil
// analytics invalidator disables cache invalidation.
func NewSessionService(repo sessionRepository, permissions *PermissionService, analytics analyticsInvalidator, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, permissions: permissions, analytics: analytics, validator: validate, logger: logger, now: time.Now}
}

// Start opens a new active session. Starting while another session is
// open is a Conflict regardless of which project either belongs to.
func (s *SessionService) Start(ctx context.Context, userID string, req StartSessionRequest) (*models.StudySession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	if req.ProjectID != nil {
		if _, _, err := s.permissions.RequireProject(ctx, userID, *req.ProjectID, models.CapabilityView); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	session := &models.StudySession{
		UserID:        userID,
		ProjectID:     req.ProjectID,
		State:         models.SessionActive,
		StartedAt:     now,
		LastResumedAt: now,
		Notes:         req.Notes,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrActiveSessionExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "another study session is already open")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start session")
	}

	return session, nil
}

// Pause freezes the open session's timer. Pausing a paused session is a
// Conflict.
func (s *SessionService) Pause(ctx context.Context, userID string) (*models.StudySession, error) {
	session, err := s.open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.State != models.SessionActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session is not active")
	}

	now := s.now().UTC()
	session.AccumulatedSeconds += int64(now.Sub(session.LastResumedAt.UTC()).Seconds())
	session.State = models.SessionPaused

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pause session")
	}
	return session, nil
}

// Resume restarts a paused session's timer.
func (s *SessionService) Resume(ctx context.Context, userID string) (*models.StudySession, error) {
	session, err := s.open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.State != models.SessionPaused {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session is not paused")
	}

	session.State = models.SessionActive
	session.LastResumedAt = s.now().UTC()

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resume session")
	}
	return session, nil
}

// Stop completes the open session from either state, folding any
// running interval into the accumulated total.
func (s *SessionService) Stop(ctx context.Context, userID string, req StopSessionRequest) (*models.StudySession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	session, err := s.open(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if session.State == models.SessionActive {
		session.AccumulatedSeconds += int64(now.Sub(session.LastResumedAt.UTC()).Seconds())
	}
	session.State = models.SessionCompleted
	session.EndedAt = &now
	if req.Notes != "" {
		session.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stop session")
	}

	// The completed session feeds the analytics aggregates.
	if s.analytics != nil {
		s.analytics.InvalidateUser(ctx, userID)
	}
	return session, nil
}

// Current returns the user's open session, if any.
func (s *SessionService) Current(ctx context.Context, userID string) (*models.StudySession, error) {
	return s.open(ctx, userID)
}

func (s *SessionService) open(ctx context.Context, userID string) (*models.StudySession, error) {
	session, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no open study session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}
