package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-scheduler/internal/domain"
	"github.com/notifyhub/mail-scheduler/internal/mailer"
	"github.com/notifyhub/mail-scheduler/internal/ratelimiter"
	"github.com/notifyhub/mail-scheduler/internal/repository"
)

// Outcome is the terminal state of one delivery attempt.
type Outcome string

const (
	OutcomeSent           Outcome = "sent"
	OutcomeNoRecord       Outcome = "no-record"
	OutcomeAlreadySent    Outcome = "already-sent"
	OutcomeTransportError Outcome = "transport-error"
	OutcomeStoreError     Outcome = "store-error"
)

// Deliverer runs the per-notification delivery action: load the record, guard
// against duplicate delivery, send through the mail transport, and mark the
// record sent. A keyed mutex serializes attempts per user while attempts for
// different users run in parallel.
type Deliverer struct {
	store     repository.Store
	transport mailer.Transport
	limiter   *ratelimiter.SendLimiter
	locks     *KeyedMutex
	logger    *zap.Logger

	// Hook for metrics, injected by main so the deliverer stays metrics-agnostic.
	onDelivery func(outcome string, latency time.Duration)
}

// NewDeliverer constructs a deliverer. onDelivery is optional (nil = no-op).
func NewDeliverer(
	store repository.Store,
	transport mailer.Transport,
	limiter *ratelimiter.SendLimiter,
	logger *zap.Logger,
	onDelivery func(outcome string, latency time.Duration),
) *Deliverer {
	if onDelivery == nil {
		onDelivery = func(string, time.Duration) {}
	}
	return &Deliverer{
		store:      store,
		transport:  transport,
		limiter:    limiter,
		locks:      NewKeyedMutex(),
		logger:     logger,
		onDelivery: onDelivery,
	}
}

// Deliver executes the delivery action for one fired timer payload and
// returns its terminal state.
func (d *Deliverer) Deliver(ctx context.Context, userID string) Outcome {
	start := time.Now()
	outcome := d.deliver(ctx, userID)
	d.onDelivery(string(outcome), time.Since(start))
	return outcome
}

func (d *Deliverer) deliver(ctx context.Context, userID string) Outcome {
	d.locks.Lock(userID)
	defer d.locks.Unlock(userID)

	log := d.logger.With(zap.String("user_id", userID))

	n, err := d.store.GetRecord(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Timer fired for a record that was cancelled or never existed.
		log.Warn("no notification found for fired timer")
		return OutcomeNoRecord
	case err != nil:
		log.Error("failed to load notification", zap.Error(err))
		return OutcomeStoreError
	}

	// At-most-once guard: a replayed timer for an already-delivered
	// notification is a no-op.
	if n.Sent {
		log.Info("notification already sent")
		return OutcomeAlreadySent
	}

	if err := d.limiter.Wait(ctx); err != nil {
		// ctx cancelled while waiting; dispatcher is shutting down.
		// The record stays pending and can be re-scheduled.
		log.Warn("shutdown while waiting for send slot")
		return OutcomeTransportError
	}

	if err := d.transport.Send(ctx, n.ToEmail, n.Subject, n.Body); err != nil {
		// No automatic retry: the record stays pending so the caller can
		// recover it with a re-schedule.
		log.Error("mail transport failed", zap.Error(err))
		return OutcomeTransportError
	}

	updated, err := d.store.MarkSent(ctx, userID, time.Now().UTC())
	if err != nil {
		log.Error("failed to mark notification sent", zap.Error(err))
		return OutcomeStoreError
	}
	if !updated {
		// A concurrent re-schedule or cancel replaced the record mid-send;
		// its sent flag is left to the newer state.
		log.Debug("record changed during send, sent flag untouched")
	}

	log.Info("notification sent", zap.String("to", n.ToEmail))
	return OutcomeSent
}
