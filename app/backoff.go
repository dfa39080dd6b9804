package app

import "time"

// Rate-limit backoff schedule for timer-driven refreshes.
const (
	initialBackoff = 30 * time.Second
	maxBackoff     = time.Hour
	maxAttempts    = 10
)

// backoffDelay returns the deferral for the given attempt (1-based):
// initialBackoff * 2^(attempt-1), capped at maxBackoff.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > maxAttempts {
		attempt = maxAttempts
	}

	delay := initialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// nextDeferral computes when the next timer-driven refresh is allowed
// after a rate-limit response. A server-provided reset time wins when it
// is in the future; otherwise the exponential schedule applies.
func nextDeferral(now time.Time, resetAt *time.Time, attempt int) time.Time {
	if resetAt != nil && resetAt.After(now) {
		return *resetAt
	}
	return now.Add(backoffDelay(attempt))
}
