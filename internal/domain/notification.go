package domain

import (
	"strings"
	"time"
)

// jobIDPrefix maps a notification's user ID to its timer store key.
const jobIDPrefix = "email_"

// DefaultSubject is used when the caller omits a subject.
const DefaultSubject = "Scheduled Notification"

// Notification is one scheduled (or delivered) email, keyed by user ID.
// Scheduling again under the same user ID replaces every field and re-arms
// the notification: sent drops back to false and sent_time to null.
type Notification struct {
	UserID        string     `json:"user_id"`
	ToEmail       string     `json:"to_email"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	Sent          bool       `json:"sent"`
	SentTime      *time.Time `json:"sent_time"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Timer is one durable entry in the timer store. Payload carries the
// notification's user ID and is opaque to the store itself.
type Timer struct {
	JobID   string    `json:"id"`
	FireAt  time.Time `json:"next_run_time"`
	Payload string    `json:"-"`
}

// ScheduleRequest is the inbound payload for POST /schedule.
type ScheduleRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	SendTime string `json:"send_time"`
}

// Validate checks the required fields and parses send_time.
func (r *ScheduleRequest) Validate() (time.Time, error) {
	if r.Email == "" {
		return time.Time{}, ErrMissingRecipient
	}
	if r.SendTime == "" {
		return time.Time{}, ErrMissingSendTime
	}
	return ParseSendTime(r.SendTime)
}

// sendTimeLayouts: RFC3339 first, then the zone-less ISO-8601 form
// ("2030-01-01T00:00:00"), which is interpreted as UTC.
var sendTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// ParseSendTime parses an ISO-8601 timestamp. Unparseable input is a
// validation error, never silently coerced.
func ParseSendTime(s string) (time.Time, error) {
	for _, layout := range sendTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidSendTime
}

// JobIDFor derives the timer store key for a notification. The derivation is
// deterministic so re-scheduling the same user always replaces the same timer.
func JobIDFor(userID string) string { return jobIDPrefix + userID }

// UserIDFromJobID inverts JobIDFor. ok is false for job IDs that do not
// encode a notification identity.
func UserIDFromJobID(jobID string) (string, bool) {
	if !strings.HasPrefix(jobID, jobIDPrefix) {
		return "", false
	}
	return jobID[len(jobIDPrefix):], true
}
