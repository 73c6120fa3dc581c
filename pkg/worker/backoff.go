package worker

import "time"

// backoffSchedule is the fixed, capped retry ladder keyed by attempt
// count: the first failure retries after 10s, the second after 30s, then
// 60s, then 120s for every attempt after that.
var backoffSchedule = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
}

// Backoff returns the delay before the next retry for the given attempt
// number (1-based).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[attempt-1]
}

// permanentHold parks an event rejected as non-retryable far enough in
// the future that the scheduler never re-selects it on its own. A manual
// retry still resets the event to PENDING immediately.
const permanentHold = 10 * 365 * 24 * time.Hour
