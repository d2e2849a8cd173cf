package monitor

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff configures reconnect delays: min(Max, Base * 2^attempt) for 1-indexed attempts,
// giving up after MaxRetries delays.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

func DefaultBackoff() Backoff {
	return Backoff{Base: 1 * time.Second, Max: 30 * time.Second, MaxRetries: 10}
}

// NewPolicy builds a fresh retry policy. NextBackOff returns backoff.Stop once MaxRetries
// delays have been handed out; Reset restarts the sequence.
func (b Backoff) NewPolicy() backoff.BackOff {
	maxInterval := b.Max
	if maxInterval <= 0 {
		maxInterval = time.Duration(math.MaxInt64)
	}
	initial := 2 * b.Base
	if initial > maxInterval {
		initial = maxInterval
	}
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initial),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	retries := b.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(exp, uint64(retries))
}
