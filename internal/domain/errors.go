package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrMissingRecipient = errors.New("email is required")
	ErrMissingSendTime  = errors.New("send_time is required")
	ErrInvalidSendTime  = errors.New("send_time must be ISO8601 like 2025-10-31T18:00:00")
)
