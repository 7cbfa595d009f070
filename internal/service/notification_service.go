package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-ops/proctor-api/internal/models"
	"github.com/campus-ops/proctor-api/pkg/config"
	"github.com/campus-ops/proctor-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	MarkSent(ctx context.Context, id string, at time.Time) error
}

// NotificationService persists outbound notifications and dispatches them
// through an in-memory worker queue. Delivery is best-effort: failures are
// logged and retried by the queue, but never propagated to the caller, so a
// notification problem can never roll back an assignment.
type NotificationService struct {
	repo   notificationStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService builds the service and its dispatch queue. Start
// must be called before notifications flow.
func NewNotificationService(repo notificationStore, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify records a notification and enqueues it for delivery.
func (s *NotificationService) Notify(ctx context.Context, recipientID, subject, body string) {
	if s == nil {
		return
	}

	notification := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Subject:     subject,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.Warn("failed to persist notification",
			zap.String("recipient_id", recipientID),
			zap.Error(err))
		return
	}

	err := s.queue.Enqueue(jobs.Job{ID: notification.ID, Type: "notification", Payload: *notification})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("notification_id", notification.ID),
			zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	// Delivery transport is a structured log line; campus mail relay
	// integration hangs off this hook.
	s.logger.Info("notification delivered",
		zap.String("notification_id", notification.ID),
		zap.String("recipient_id", notification.RecipientID),
		zap.String("subject", notification.Subject))

	return s.repo.MarkSent(ctx, notification.ID, time.Now().UTC())
}
