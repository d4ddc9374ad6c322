package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-scheduler/internal/domain"
	"github.com/notifyhub/mail-scheduler/internal/ratelimiter"
	"github.com/notifyhub/mail-scheduler/internal/repository"
)

func seedDueTimer(t *testing.T, store *repository.MockStore, userID string, fireAt time.Time) {
	t.Helper()
	err := store.UpsertTimer(context.Background(), &domain.Timer{
		JobID:   domain.JobIDFor(userID),
		FireAt:  fireAt,
		Payload: userID,
	})
	if err != nil {
		t.Fatalf("seed timer: %v", err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcher_FiresDueTimerAndRemovesIt(t *testing.T) {
	store := repository.NewMockStore()
	transport := &fakeTransport{}
	seedRecord(t, store, "user-1")
	// Fire time already in the past: must fire on the startup poll.
	seedDueTimer(t, store, "user-1", time.Now().UTC().Add(-time.Minute))

	d := NewDispatcher(store, newDeliverer(store, transport), time.Hour, 2, 10, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	waitFor(t, 2*time.Second, func() bool { return transport.sends() == 1 })

	timers, _ := store.ListPendingTimers(context.Background())
	if len(timers) != 0 {
		t.Fatalf("expected fired timer to be consumed, %d remain", len(timers))
	}

	cancel()
	d.Wait()
}

func TestDispatcher_FutureTimerDoesNotFire(t *testing.T) {
	store := repository.NewMockStore()
	transport := &fakeTransport{}
	seedRecord(t, store, "user-1")
	seedDueTimer(t, store, "user-1", time.Now().UTC().Add(time.Hour))

	d := NewDispatcher(store, newDeliverer(store, transport), 20*time.Millisecond, 1, 10, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	if transport.sends() != 0 {
		t.Fatal("a timer must not fire before its fire time")
	}

	count, _ := store.CountPendingTimers(context.Background())
	if count != 1 {
		t.Fatalf("expected the timer to stay pending, got %d", count)
	}

	cancel()
	d.Wait()
}

func TestDispatcher_WakeTriggersImmediatePoll(t *testing.T) {
	store := repository.NewMockStore()
	transport := &fakeTransport{}

	// A one-hour interval: without Wake the timer added below would wait.
	d := NewDispatcher(store, newDeliverer(store, transport), time.Hour, 1, 10, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	seedRecord(t, store, "user-1")
	seedDueTimer(t, store, "user-1", time.Now().UTC())
	d.Wake()

	waitFor(t, 2*time.Second, func() bool { return transport.sends() == 1 })

	cancel()
	d.Wait()
}

func TestDispatcher_OrphanedTimerIsTolerated(t *testing.T) {
	store := repository.NewMockStore()
	transport := &fakeTransport{}
	// Timer without a record: fired-after-cancel degenerate state.
	seedDueTimer(t, store, "ghost", time.Now().UTC().Add(-time.Second))

	outcomes := make(chan string, 1)
	deliverer := NewDeliverer(store, transport, ratelimiter.New(1000), zap.NewNop(),
		func(outcome string, _ time.Duration) { outcomes <- outcome })

	d := NewDispatcher(store, deliverer, time.Hour, 1, 10, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	select {
	case outcome := <-outcomes:
		if outcome != string(OutcomeNoRecord) {
			t.Fatalf("expected no-record, got %s", outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("orphaned timer was never processed")
	}

	if transport.sends() != 0 {
		t.Fatal("an orphaned timer must not reach the transport")
	}

	cancel()
	d.Wait()
}

func TestDispatcher_PendingGaugeHook(t *testing.T) {
	store := repository.NewMockStore()
	transport := &fakeTransport{}
	seedDueTimer(t, store, "user-1", time.Now().UTC().Add(time.Hour))

	counts := make(chan int, 1)
	d := NewDispatcher(store, newDeliverer(store, transport), time.Hour, 1, 10, zap.NewNop(),
		func(count int) {
			select {
			case counts <- count:
			default:
			}
		})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	select {
	case count := <-counts:
		if count != 1 {
			t.Fatalf("expected 1 pending timer, got %d", count)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gauge hook never observed")
	}

	cancel()
	d.Wait()
}
