package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// SendLimiter is a token bucket shared by all delivery workers. It enforces a
// steady-state cap on outbound SMTP sends so a burst of due timers cannot
// hammer the mail server. Burst is set equal to the rate so no extra burst
// capacity is allowed beyond the configured per-second maximum.
type SendLimiter struct {
	limiter *rate.Limiter
}

// New creates a SendLimiter with ratePerSec tokens per second.
func New(ratePerSec int) *SendLimiter {
	return &SendLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Wait blocks until the limiter grants a token. Called by each delivery
// worker immediately before the transport send. Returns a non-nil error only
// if ctx is cancelled while waiting.
func (s *SendLimiter) Wait(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}
