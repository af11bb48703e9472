package notifications

import (
	"math/rand/v2"
	"time"
)

// NextAttempt returns when a message that has failed attempts times should
// be retried: exponential backoff from retryBaseDelay, capped at
// retryMaxDelay, plus up to 20% jitter.
func NextAttempt(now time.Time, attempts int) time.Time {
	delay := retryBaseDelay
	for i := 1; i < attempts && delay < retryMaxDelay; i++ {
		delay *= 2
	}
	delay = min(delay, retryMaxDelay)
	jitter := time.Duration(rand.Int64N(int64(delay)/5 + 1))
	return now.Add(delay + jitter)
}
