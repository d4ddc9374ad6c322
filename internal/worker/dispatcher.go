package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-scheduler/internal/domain"
	"github.com/notifyhub/mail-scheduler/internal/repository"
)

// Dispatcher is the single scheduling authority for durable one-shot timers.
// It polls the timer store for due entries, claims them (the claim removes
// the row, so each timer is consumed at most once) and fans the fired
// payloads out to a fixed pool of delivery goroutines.
//
// Timers live in the database, not in memory: the immediate poll on Start
// re-arms everything pending after a process restart, and entries whose fire
// time passed while the process was down fire right away.
type Dispatcher struct {
	store     repository.Store
	deliverer *Deliverer
	interval  time.Duration
	workers   int
	batch     int
	logger    *zap.Logger
	onPending func(count int)

	wake  chan struct{}
	fired chan domain.Timer
	wg    sync.WaitGroup
}

// NewDispatcher constructs a dispatcher. onPending is the pending-timer gauge
// hook, optional (nil = no-op).
func NewDispatcher(
	store repository.Store,
	deliverer *Deliverer,
	interval time.Duration,
	workers, batch int,
	logger *zap.Logger,
	onPending func(count int),
) *Dispatcher {
	if onPending == nil {
		onPending = func(int) {}
	}
	return &Dispatcher{
		store:     store,
		deliverer: deliverer,
		interval:  interval,
		workers:   workers,
		batch:     batch,
		logger:    logger,
		onPending: onPending,
		wake:      make(chan struct{}, 1),
		fired:     make(chan domain.Timer, batch),
	}
}

// Start launches the delivery workers and the poll loop.
// The provided ctx is forwarded to every goroutine; cancelling it triggers a
// graceful shutdown of the whole engine.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.runWorker(ctx, id)
		}(i)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runPoll(ctx)
	}()
}

// Wake nudges the poll loop without waiting for the next tick. The
// coordinator calls this after scheduling so a near-term fire time is not
// delayed by a full poll interval. Non-blocking: one pending wake is enough.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until the poll loop and every delivery worker have returned
// after ctx is cancelled. Call this after cancelling the context to ensure
// in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) runPoll(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started",
		zap.Duration("interval", d.interval),
		zap.Int("workers", d.workers),
	)

	// Late timers fire immediately; no coalescing, no skip-if-missed.
	d.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		case <-d.wake:
			d.poll(ctx)
		}
	}
}

func (d *Dispatcher) poll(ctx context.Context) {
	timers, err := d.store.ClaimDueTimers(ctx, time.Now().UTC(), d.batch)
	if err != nil {
		d.logger.Error("claim due timers failed", zap.Error(err))
		return
	}

	for _, t := range timers {
		select {
		case d.fired <- *t:
		case <-ctx.Done():
			return
		}
	}

	if len(timers) > 0 {
		d.logger.Info("claimed due timers", zap.Int("count", len(timers)))
	}

	if count, err := d.store.CountPendingTimers(ctx); err == nil {
		d.onPending(count)
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	log := d.logger.With(zap.Int("worker_id", id))
	log.Info("delivery worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("delivery worker stopping")
			return
		case t := <-d.fired:
			outcome := d.deliverer.Deliver(ctx, t.Payload)
			log.Debug("timer fired",
				zap.String("job_id", t.JobID),
				zap.String("outcome", string(outcome)),
			)
		}
	}
}
