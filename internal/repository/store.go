package repository

import (
	"context"
	"time"

	"github.com/notifyhub/mail-scheduler/internal/domain"
)

// Store bundles the two durable contracts the coordinator keeps in lockstep:
// the notification record table and the one-shot timer table. Every write is
// an atomic per-key operation (insert-or-replace, conditional update, or
// delete); no caller ever reads a row and writes it back unguarded.
// The pgx implementation is in pg_store.go; tests use a hand-written mock
// (mock_store.go).
type Store interface {
	// Record store contract.
	GetRecord(ctx context.Context, userID string) (*domain.Notification, error)
	UpsertRecord(ctx context.Context, n *domain.Notification) error
	DeleteRecord(ctx context.Context, userID string) error
	ListRecords(ctx context.Context) ([]*domain.Notification, error)
	// MarkSent flips sent to true only while it is still false and reports
	// whether a row was updated. The compare-and-set keeps a racing
	// re-schedule or cancel from being overwritten silently.
	MarkSent(ctx context.Context, userID string, sentAt time.Time) (bool, error)

	// Timer store contract.
	GetTimer(ctx context.Context, jobID string) (*domain.Timer, error)
	UpsertTimer(ctx context.Context, t *domain.Timer) error
	// DeleteTimer reports whether a timer existed for jobID.
	DeleteTimer(ctx context.Context, jobID string) (bool, error)
	ListPendingTimers(ctx context.Context) ([]*domain.Timer, error)
	CountPendingTimers(ctx context.Context) (int, error)
	// ClaimDueTimers atomically removes and returns up to limit timers whose
	// fire time is at or before now. Removal-with-return is what guarantees
	// each timer is consumed at most once, even across concurrent pollers.
	ClaimDueTimers(ctx context.Context, now time.Time, limit int) ([]*domain.Timer, error)

	// Schedule upserts the record and its timer in a single transaction so a
	// failed write never leaves the pair inconsistent.
	Schedule(ctx context.Context, n *domain.Notification, t *domain.Timer) error
}
