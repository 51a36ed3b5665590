package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teco-project/teco-core/tcerr"
)

func TestDefaultRetryPolicyBackoffSchedule(t *testing.T) {
	p := &DefaultRetryPolicy{}

	var prev time.Duration
	for n := 1; n <= 12; n++ {
		d := p.Backoff(n)
		if d < prev {
			t.Errorf("Backoff(%d) = %v, decreased from %v", n, d, prev)
		}
		if d > DefaultMaxDelay {
			t.Errorf("Backoff(%d) = %v, exceeds cap %v", n, d, DefaultMaxDelay)
		}
		prev = d
	}

	if got := p.Backoff(1); got != DefaultBaseDelay {
		t.Errorf("Backoff(1) = %v, want %v", got, DefaultBaseDelay)
	}
	if got := p.Backoff(2); got != 2*DefaultBaseDelay {
		t.Errorf("Backoff(2) = %v, want %v", got, 2*DefaultBaseDelay)
	}
	if got := p.Backoff(12); got != DefaultMaxDelay {
		t.Errorf("Backoff(12) = %v, want cap %v", got, DefaultMaxDelay)
	}
}

func TestDefaultRetryPolicyAttemptBudget(t *testing.T) {
	p := &DefaultRetryPolicy{jitter: func(d time.Duration) time.Duration { return d }}
	transportErr := &tcerr.TransportError{Cause: errors.New("conn reset")}

	for attempt := 1; attempt <= DefaultMaxRetries; attempt++ {
		decision, _ := p.ShouldRetry(attempt, 0, transportErr, 0)
		if decision != Retry {
			t.Errorf("attempt %d: decision = %v, want Retry", attempt, decision)
		}
	}
	decision, _ := p.ShouldRetry(DefaultMaxRetries+1, 0, transportErr, 0)
	if decision != DontRetry {
		t.Errorf("attempt %d: decision = %v, want DontRetry", DefaultMaxRetries+1, decision)
	}
}

func TestDefaultRetryPolicyStatuses(t *testing.T) {
	p := &DefaultRetryPolicy{jitter: func(d time.Duration) time.Duration { return d }}
	err := errors.New("server said no")

	tests := []struct {
		status int
		want   Decision
	}{
		{429, Retry},
		{500, Retry},
		{502, Retry},
		{503, Retry},
		{504, Retry},
		{200, DontRetry},
		{400, DontRetry},
		{403, DontRetry},
		{404, DontRetry},
	}
	for _, tc := range tests {
		if got, _ := p.ShouldRetry(1, 0, err, tc.status); got != tc.want {
			t.Errorf("status %d: decision = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestDefaultRetryPolicyContextExpiryIsFinal(t *testing.T) {
	p := &DefaultRetryPolicy{}
	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		err := &tcerr.TransportError{Cause: cause}
		if got, _ := p.ShouldRetry(1, 0, err, 0); got != DontRetry {
			t.Errorf("%v: decision = %v, want DontRetry", cause, got)
		}
	}
}

func TestDefaultRetryPolicyJitterBounds(t *testing.T) {
	p := &DefaultRetryPolicy{}
	for i := 0; i < 100; i++ {
		_, delay := p.ShouldRetry(3, 0, &tcerr.TransportError{Cause: errors.New("x")}, 0)
		if max := p.Backoff(3); delay < 0 || delay > max {
			t.Fatalf("jittered delay %v outside [0, %v]", delay, max)
		}
	}
}
