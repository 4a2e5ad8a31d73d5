package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	"github.com/studyhub-app/studyhub-api/pkg/jobs"
)

// InviteNotification is the payload delivered for a collaboration
// invite.
type InviteNotification struct {
	ProjectID    string                  `json:"project_id"`
	ProjectTitle string                  `json:"project_title"`
	InviteeID    string                  `json:"invitee_id"`
	InviteeEmail string                  `json:"invitee_email"`
	Role         models.CollaboratorRole `json:"role"`
}

// NotificationService delivers fire-and-forget notifications through a
// background worker pool. Delivery failure never propagates to the
// request that triggered it.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService creates a new notification service instance.
func NewNotificationService(cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyInvite enqueues an invite notification. Errors are logged and
// dropped.
func (s *NotificationService) NotifyInvite(project *models.Project, invitee *models.User, role models.CollaboratorRole) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "collaborator_invite",
		Payload: InviteNotification{
			ProjectID:    project.ID,
			ProjectTitle: project.Title,
			InviteeID:    invitee.ID,
			InviteeEmail: invitee.Email,
			Role:         role,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue invite notification",
			zap.String("project_id", project.ID), zap.Error(err))
	}
}

// deliver is the queue handler. There is no external mail transport;
// delivery writes a structured log line that downstream shippers pick
// up.
func (s *NotificationService) deliver(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(InviteNotification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	s.logger.Info("collaboration invite notification",
		zap.String("project_id", payload.ProjectID),
		zap.String("project_title", payload.ProjectTitle),
		zap.String("invitee_email", payload.InviteeEmail),
		zap.String("role", string(payload.Role)),
	)
	return nil
}
