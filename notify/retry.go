// notify/retry.go
package notify

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy bounds delivery attempts on one transport. The zero value
// makes a single attempt.
type RetryPolicy struct {
	// Attempts includes the first try. Default: 1.
	Attempts int

	// InitialDelay precedes the first retry. Default: 200ms.
	InitialDelay time.Duration

	// MaxDelay caps the backoff. Default: 5 seconds.
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry. Default: 2.
	Multiplier float64

	// Jitter randomizes delays by ±Jitter (0.0 to 1.0).
	Jitter float64
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 200 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	return p
}

// do calls fn until it succeeds, returns a permanent error, attempts run
// out, or ctx is done. onRetry runs before each wait.
func (p RetryPolicy) do(ctx context.Context, fn func(ctx context.Context) error, onRetry func(attempt int, err error, delay time.Duration)) error {
	p = p.withDefaults()
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return lastErr
			}
			return ctx.Err()
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if IsPermanent(err) || attempt == p.Attempts {
			break
		}

		wait := jitter(delay, p.Jitter)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return lastErr
		case <-t.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}

func jitter(d time.Duration, j float64) time.Duration {
	if j <= 0 {
		return d
	}
	delta := float64(d) * j
	return time.Duration(float64(d) - delta + rand.Float64()*2*delta)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying on the same transport.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
