package connection

import (
	"context"
	"time"
)

// DelayPolicy decides how long to wait after a failed connect attempt.
// attempt starts at 1 for the first failure.
type DelayPolicy interface {
	Next(attempt int) time.Duration
}

// FixedDelay waits the same duration after every failure.
type FixedDelay time.Duration

// Next implements DelayPolicy.
func (d FixedDelay) Next(int) time.Duration {
	return time.Duration(d)
}

// ExponentialDelay doubles the wait after each failure up to Max.
type ExponentialDelay struct {
	Initial time.Duration
	Max     time.Duration
}

// Next implements DelayPolicy.
func (d ExponentialDelay) Next(attempt int) time.Duration {
	delay := d.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= d.Max {
			return d.Max
		}
	}
	return delay
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
