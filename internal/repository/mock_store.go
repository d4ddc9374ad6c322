package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/mail-scheduler/internal/domain"
)

// MockStore is a hand-written, in-memory implementation of Store used in
// unit tests. No mock-generation library needed.
type MockStore struct {
	mu      sync.RWMutex
	records map[string]*domain.Notification
	timers  map[string]*domain.Timer

	// Optional error overrides, set in tests to simulate failure paths.
	ScheduleErr  error
	GetRecordErr error
	MarkSentErr  error
}

func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]*domain.Notification),
		timers:  make(map[string]*domain.Timer),
	}
}

func (m *MockStore) GetRecord(_ context.Context, userID string) (*domain.Notification, error) {
	if m.GetRecordErr != nil {
		return nil, m.GetRecordErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.records[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *MockStore) UpsertRecord(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertRecordLocked(n)
	return nil
}

// upsertRecordLocked applies replace-on-conflict semantics: every field is
// overwritten except created_at, which survives from the first insert.
func (m *MockStore) upsertRecordLocked(n *domain.Notification) {
	clone := *n
	clone.Sent = false
	clone.SentTime = nil
	if existing, ok := m.records[n.UserID]; ok {
		clone.CreatedAt = existing.CreatedAt
	}
	m.records[n.UserID] = &clone
}

func (m *MockStore) DeleteRecord(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, userID)
	return nil
}

func (m *MockStore) ListRecords(_ context.Context) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Notification, 0, len(m.records))
	for _, n := range m.records {
		clone := *n
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockStore) MarkSent(_ context.Context, userID string, sentAt time.Time) (bool, error) {
	if m.MarkSentErr != nil {
		return false, m.MarkSentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[userID]
	if !ok || n.Sent {
		return false, nil
	}
	n.Sent = true
	n.SentTime = &sentAt
	return true, nil
}

func (m *MockStore) GetTimer(_ context.Context, jobID string) (*domain.Timer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.timers[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MockStore) UpsertTimer(_ context.Context, t *domain.Timer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *t
	m.timers[t.JobID] = &clone
	return nil
}

func (m *MockStore) DeleteTimer(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[jobID]
	delete(m.timers, jobID)
	return ok, nil
}

func (m *MockStore) ListPendingTimers(_ context.Context) ([]*domain.Timer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Timer, 0, len(m.timers))
	for _, t := range m.timers {
		clone := *t
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FireAt.Before(result[j].FireAt)
	})
	return result, nil
}

func (m *MockStore) CountPendingTimers(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.timers), nil
}

func (m *MockStore) ClaimDueTimers(_ context.Context, now time.Time, limit int) ([]*domain.Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*domain.Timer
	for _, t := range m.timers {
		if !t.FireAt.After(now) {
			clone := *t
			due = append(due, &clone)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].FireAt.Before(due[j].FireAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	for _, t := range due {
		delete(m.timers, t.JobID)
	}
	return due, nil
}

func (m *MockStore) Schedule(_ context.Context, n *domain.Notification, t *domain.Timer) error {
	if m.ScheduleErr != nil {
		return m.ScheduleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertRecordLocked(n)
	timerClone := *t
	m.timers[t.JobID] = &timerClone
	return nil
}

// SetSent force-marks a stored record as sent. Test helper for exercising
// the already-sent guard and re-arm-on-reschedule behaviour.
func (m *MockStore) SetSent(userID string, sentAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.records[userID]; ok {
		n.Sent = true
		n.SentTime = &sentAt
	}
}

var _ Store = (*MockStore)(nil)
