package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/mail-scheduler/internal/domain"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by PostgreSQL.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx, letting the upsert
// statements run standalone or inside the Schedule transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const upsertRecordSQL = `
	INSERT INTO notifications
		(user_id, to_email, subject, body, scheduled_time, sent, sent_time, created_at)
	VALUES ($1, $2, $3, $4, $5, FALSE, NULL, $6)
	ON CONFLICT (user_id) DO UPDATE SET
		to_email       = EXCLUDED.to_email,
		subject        = EXCLUDED.subject,
		body           = EXCLUDED.body,
		scheduled_time = EXCLUDED.scheduled_time,
		sent           = FALSE,
		sent_time      = NULL`

const upsertTimerSQL = `
	INSERT INTO timers (job_id, fire_at, payload)
	VALUES ($1, $2, $3)
	ON CONFLICT (job_id) DO UPDATE SET
		fire_at = EXCLUDED.fire_at,
		payload = EXCLUDED.payload`

func upsertRecord(ctx context.Context, ex execer, n *domain.Notification) error {
	_, err := ex.Exec(ctx, upsertRecordSQL,
		n.UserID, n.ToEmail, n.Subject, n.Body, n.ScheduledTime, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert notification: %w", err)
	}
	return nil
}

func upsertTimer(ctx context.Context, ex execer, t *domain.Timer) error {
	_, err := ex.Exec(ctx, upsertTimerSQL, t.JobID, t.FireAt, t.Payload)
	if err != nil {
		return fmt.Errorf("upsert timer: %w", err)
	}
	return nil
}

func (s *pgStore) GetRecord(ctx context.Context, userID string) (*domain.Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, to_email, subject, body, scheduled_time, sent, sent_time, created_at
		FROM notifications WHERE user_id = $1`, userID)

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (s *pgStore) UpsertRecord(ctx context.Context, n *domain.Notification) error {
	return upsertRecord(ctx, s.pool, n)
}

func (s *pgStore) DeleteRecord(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *pgStore) ListRecords(ctx context.Context) ([]*domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, to_email, subject, body, scheduled_time, sent, sent_time, created_at
		FROM notifications
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var result []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *pgStore) MarkSent(ctx context.Context, userID string, sentAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET sent = TRUE, sent_time = $2
		WHERE user_id = $1 AND sent = FALSE`, userID, sentAt)
	if err != nil {
		return false, fmt.Errorf("mark sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *pgStore) GetTimer(ctx context.Context, jobID string) (*domain.Timer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT job_id, fire_at, payload FROM timers WHERE job_id = $1`, jobID)

	var t domain.Timer
	err := row.Scan(&t.JobID, &t.FireAt, &t.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get timer: %w", err)
	}
	return &t, nil
}

func (s *pgStore) UpsertTimer(ctx context.Context, t *domain.Timer) error {
	return upsertTimer(ctx, s.pool, t)
}

func (s *pgStore) DeleteTimer(ctx context.Context, jobID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM timers WHERE job_id = $1`, jobID)
	if err != nil {
		return false, fmt.Errorf("delete timer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *pgStore) ListPendingTimers(ctx context.Context) ([]*domain.Timer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT job_id, fire_at, payload FROM timers ORDER BY fire_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list timers: %w", err)
	}
	defer rows.Close()
	return scanTimers(rows)
}

func (s *pgStore) CountPendingTimers(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM timers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count timers: %w", err)
	}
	return count, nil
}

// ClaimDueTimers deletes due timers and returns them in one statement.
// SKIP LOCKED lets future replicas poll the same table without double-firing.
func (s *pgStore) ClaimDueTimers(ctx context.Context, now time.Time, limit int) ([]*domain.Timer, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM timers
		WHERE job_id IN (
			SELECT job_id FROM timers
			WHERE fire_at <= $1
			ORDER BY fire_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING job_id, fire_at, payload`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due timers: %w", err)
	}
	defer rows.Close()
	return scanTimers(rows)
}

func (s *pgStore) Schedule(ctx context.Context, n *domain.Notification, t *domain.Timer) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := upsertRecord(ctx, tx, n); err != nil {
		return err
	}
	if err := upsertTimer(ctx, tx, t); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schedule: %w", err)
	}
	return nil
}

// ---- helpers ----

// scanNotification reads a single notification row from any pgx row type.
func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.UserID, &n.ToEmail, &n.Subject, &n.Body,
		&n.ScheduledTime, &n.Sent, &n.SentTime, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func scanTimers(rows pgx.Rows) ([]*domain.Timer, error) {
	var result []*domain.Timer
	for rows.Next() {
		var t domain.Timer
		if err := rows.Scan(&t.JobID, &t.FireAt, &t.Payload); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}
