package deliver

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryDelay returns the ack-and-schedule delay before attempt
// attempts+1, per spec.md §9's resolved open question: base 5s,
// doubling, capped at 10 minutes, using cenkalti/backoff/v4's
// ExponentialBackOff for the base*2^(attempts-1)+jitter formula
// rather than hand-rolling jittered exponential math.
func retryDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 10 * time.Minute
	b.RandomizationFactor = 0.2

	var d time.Duration
	for i := 0; i < attempts; i++ {
		d = b.NextBackOff()
	}
	if d <= 0 {
		d = b.InitialInterval
	}
	return d
}

// maxAttempts is the attempt count at which a retryable failure is
// instead treated as permanent and dead-lettered.
const maxAttempts = 3
