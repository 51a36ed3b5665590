package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/teco-project/teco-core/tcerr"
)

// WaitState is an acceptor's verdict on one poll.
type WaitState int

const (
	// WaitRetry keeps polling.
	WaitRetry WaitState = iota
	// WaitSuccess ends the wait successfully.
	WaitSuccess
	// WaitFailure ends the wait with a terminal failure.
	WaitFailure
)

// Acceptor inspects the outcome of one poll. out is the decoded output when
// err is nil.
type Acceptor func(out any, err error) WaitState

// Waiter polls an operation until an acceptor reports success, with
// exponential backoff between polls.
type Waiter struct {
	// Client performs the polls.
	Client *Client
	// Action is the polled operation.
	Action string
	// MaxDuration bounds the whole wait. Zero means DefaultWaitDuration.
	MaxDuration time.Duration
	// NewBackOff supplies the poll schedule. Nil means exponential from
	// one second, capped at thirty.
	NewBackOff func() backoff.BackOff
}

// DefaultWaitDuration bounds a wait when the caller does not.
const DefaultWaitDuration = 5 * time.Minute

// Wait polls until the acceptor reports success or failure, or until the
// schedule or context gives up. Each poll decodes into a fresh output from
// newOut.
func (w *Waiter) Wait(ctx context.Context, in InputModel, newOut func() any, accept Acceptor) error {
	maxDuration := w.MaxDuration
	if maxDuration <= 0 {
		maxDuration = DefaultWaitDuration
	}
	ctx, cancel := context.WithTimeout(ctx, maxDuration)
	defer cancel()

	var schedule backoff.BackOff
	if w.NewBackOff != nil {
		schedule = w.NewBackOff()
	} else {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = time.Second
		bo.MaxInterval = 30 * time.Second
		bo.MaxElapsedTime = maxDuration
		schedule = bo
	}
	schedule = backoff.WithContext(schedule, ctx)

	for {
		out := newOut()
		err := w.Client.Execute(ctx, w.Action, in, out)
		switch accept(out, err) {
		case WaitSuccess:
			return nil
		case WaitFailure:
			msg := w.Action + ": terminal state reached"
			if err != nil {
				msg = w.Action + ": " + err.Error()
			}
			return tcerr.WaiterFailed(msg)
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return tcerr.WaiterTimeout(w.Action + ": gave up waiting")
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return tcerr.WaiterTimeout(w.Action + ": " + ctx.Err().Error())
		}
	}
}
