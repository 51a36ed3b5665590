package client

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/teco-project/teco-core/tcerr"
)

// Decision is a retry policy's verdict on a failed attempt.
type Decision int

const (
	// DontRetry stops and surfaces the error.
	DontRetry Decision = iota
	// Retry resubmits after the accompanying delay.
	Retry
	// RetryIfIdempotent resubmits only when the request method is
	// idempotent (GET); otherwise the error surfaces.
	RetryIfIdempotent
)

// RetryPolicy decides whether a failed attempt is resubmitted and how long
// to wait first. attempt is 1-based and counts attempts already made;
// elapsed is time since the first attempt started; status is the HTTP
// status of the failed attempt, or 0 when no response arrived.
type RetryPolicy interface {
	ShouldRetry(attempt int, elapsed time.Duration, err error, status int) (Decision, time.Duration)
}

// Defaults for DefaultRetryPolicy.
const (
	DefaultMaxRetries = 4
	DefaultBaseDelay  = 100 * time.Millisecond
	DefaultMaxDelay   = 20 * time.Second
)

// defaultRetryStatuses are the response codes worth another attempt:
// throttling and transient server-side failure.
var defaultRetryStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// DefaultRetryPolicy retries transport failures and throttling or transient
// server statuses, with capped exponential backoff and full jitter. The zero
// value uses the package defaults.
type DefaultRetryPolicy struct {
	// MaxRetries bounds resubmissions; the total attempt count is one more.
	MaxRetries int
	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// jitter draws the sleep from [0, d]. Tests pin it.
	jitter func(d time.Duration) time.Duration
}

func (p *DefaultRetryPolicy) maxRetries() int {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return DefaultMaxRetries
}

// Backoff returns the un-jittered delay before retry number n (1-based):
// BaseDelay doubled per retry, capped at MaxDelay.
func (p *DefaultRetryPolicy) Backoff(n int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	cap := p.MaxDelay
	if cap <= 0 {
		cap = DefaultMaxDelay
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}

// ShouldRetry implements RetryPolicy.
func (p *DefaultRetryPolicy) ShouldRetry(attempt int, elapsed time.Duration, err error, status int) (Decision, time.Duration) {
	if attempt > p.maxRetries() {
		return DontRetry, 0
	}
	if !p.retryable(err, status) {
		return DontRetry, 0
	}
	delay := p.Backoff(attempt)
	if p.jitter != nil {
		delay = p.jitter(delay)
	} else {
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	}
	return Retry, delay
}

// retryable reports whether the failure class is worth another attempt.
// Context expiry is final: the caller's deadline binds every attempt.
func (p *DefaultRetryPolicy) retryable(err error, status int) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var transport *tcerr.TransportError
	if errors.As(err, &transport) {
		return true
	}
	return defaultRetryStatuses[status]
}

// NoRetryPolicy never retries.
type NoRetryPolicy struct{}

// ShouldRetry implements RetryPolicy.
func (NoRetryPolicy) ShouldRetry(int, time.Duration, error, int) (Decision, time.Duration) {
	return DontRetry, 0
}
