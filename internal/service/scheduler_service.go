package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-scheduler/internal/domain"
	"github.com/notifyhub/mail-scheduler/internal/repository"
)

// Waker lets the coordinator nudge the dispatch engine after scheduling
// without depending on the worker package.
type Waker interface {
	Wake()
}

// Hooks carries the metric callback functions injected by main.
// Both are optional (nil = no-op).
type Hooks struct {
	OnScheduled func()
	OnCancelled func()
}

// SchedulerService is the scheduling coordinator: the public operation
// surface that keeps the notification record and its timer in lockstep.
// HTTP handlers and the dispatch engine depend on this service and the
// store, not on each other.
type SchedulerService struct {
	store  repository.Store
	waker  Waker
	logger *zap.Logger
	hooks  Hooks
}

func NewSchedulerService(
	store repository.Store,
	waker Waker,
	logger *zap.Logger,
	hooks Hooks,
) *SchedulerService {
	if waker == nil {
		waker = noopWaker{}
	}
	if hooks.OnScheduled == nil {
		hooks.OnScheduled = func() {}
	}
	if hooks.OnCancelled == nil {
		hooks.OnCancelled = func() {}
	}
	return &SchedulerService{store: store, waker: waker, logger: logger, hooks: hooks}
}

// Schedule validates the request, upserts the notification record and its
// timer under one transaction, and returns the (possibly generated) user ID
// plus the derived job ID. Scheduling again for an existing user replaces
// every field and re-arms the notification: the prior sent state is wiped and
// the prior timer is overwritten, never duplicated.
func (s *SchedulerService) Schedule(ctx context.Context, req domain.ScheduleRequest) (*domain.Notification, string, error) {
	fireAt, err := req.Validate()
	if err != nil {
		return nil, "", err
	}

	userID := req.UserID
	if userID == "" {
		userID = uuid.New().String()
	}
	subject := req.Subject
	if subject == "" {
		subject = domain.DefaultSubject
	}

	n := &domain.Notification{
		UserID:        userID,
		ToEmail:       req.Email,
		Subject:       subject,
		Body:          req.Body,
		ScheduledTime: fireAt,
		CreatedAt:     time.Now().UTC(),
	}

	jobID := domain.JobIDFor(userID)
	t := &domain.Timer{JobID: jobID, FireAt: fireAt, Payload: userID}

	if err := s.store.Schedule(ctx, n, t); err != nil {
		return nil, "", fmt.Errorf("persist schedule: %w", err)
	}

	s.hooks.OnScheduled()
	s.waker.Wake()

	s.logger.Info("notification scheduled",
		zap.String("user_id", userID),
		zap.String("job_id", jobID),
		zap.Time("fire_at", fireAt),
	)
	return n, jobID, nil
}

// ListNotifications returns all records, newest first. Read-only.
func (s *SchedulerService) ListNotifications(ctx context.Context) ([]*domain.Notification, error) {
	return s.store.ListRecords(ctx)
}

// ListJobs returns all pending timers. Read-only.
func (s *SchedulerService) ListJobs(ctx context.Context) ([]*domain.Timer, error) {
	return s.store.ListPendingTimers(ctx)
}

// Cancel removes the timer for jobID, reporting ErrNotFound if no timer
// existed. When the job ID encodes a notification identity the matching
// record is deleted too, best-effort: a missing record is not an error.
// A delivery already in flight runs to completion regardless.
func (s *SchedulerService) Cancel(ctx context.Context, jobID string) error {
	removed, err := s.store.DeleteTimer(ctx, jobID)
	if err != nil {
		return fmt.Errorf("delete timer: %w", err)
	}
	if !removed {
		return domain.ErrNotFound
	}

	if userID, ok := domain.UserIDFromJobID(jobID); ok {
		if err := s.store.DeleteRecord(ctx, userID); err != nil {
			s.logger.Warn("failed to delete record after cancel",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.hooks.OnCancelled()
	s.logger.Info("job cancelled", zap.String("job_id", jobID))
	return nil
}

type noopWaker struct{}

func (noopWaker) Wake() {}
