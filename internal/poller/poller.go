// Package poller implements a bounded-interval polling engine for
// long-running backend jobs. A session repeatedly fetches job status until a
// terminal state is observed or the attempt budget is exhausted. Ticks are
// strictly sequential: the next fetch is never issued before the previous
// one has resolved.
package poller

import (
	"context"
	"log/slog"
	"time"
)

// State is a job state as reported by the status fetch.
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

// Snapshot is one observation of a job's status.
type Snapshot struct {
	State   State
	Result  any
	Message string
}

// FetchFunc queries the current status of a job. A returned error is treated
// as a transient transport failure: the tick is consumed but polling
// continues.
type FetchFunc func(ctx context.Context, jobID string) (Snapshot, error)

// Outcome classifies how a polling session ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	// OutcomeTimeout means the attempt budget ran out with no terminal
	// state observed. The job's true final state is unknown; it may still
	// complete on the backend.
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// Result is the final report of a polling session.
type Result struct {
	Outcome  Outcome
	Result   any
	Message  string
	Attempts int
}

// Options bounds a polling session.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultOptions matches the itinerary-generation call site: one fetch per
// second for at most sixty attempts, a sixty-second soft deadline.
func DefaultOptions() Options {
	return Options{Interval: time.Second, MaxAttempts: 60}
}

// Poll runs a polling session to completion. The first fetch is issued
// immediately; subsequent fetches are spaced by opts.Interval. Exactly
// opts.MaxAttempts fetches occur when no terminal state is seen. Cancel the
// context to stop the session early.
func Poll(ctx context.Context, jobID string, fetch FetchFunc, opts Options) Result {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 60
	}

	attempts := 0
	for {
		if ctx.Err() != nil {
			return Result{Outcome: OutcomeCancelled, Attempts: attempts}
		}

		snap, err := fetch(ctx, jobID)
		attempts++
		if err != nil {
			if ctx.Err() != nil {
				return Result{Outcome: OutcomeCancelled, Attempts: attempts}
			}
			// Transient transport failure: the tick is spent, the
			// session keeps going.
			slog.Warn("job status fetch failed",
				"job_id", jobID,
				"attempt", attempts,
				"error", err,
			)
		} else {
			switch snap.State {
			case StateSuccess:
				return Result{
					Outcome:  OutcomeSuccess,
					Result:   snap.Result,
					Message:  snap.Message,
					Attempts: attempts,
				}
			case StateFailed:
				return Result{
					Outcome:  OutcomeFailed,
					Message:  snap.Message,
					Attempts: attempts,
				}
			}
		}

		if attempts >= opts.MaxAttempts {
			slog.Warn("job polling budget exhausted",
				"job_id", jobID,
				"attempts", attempts,
			)
			return Result{Outcome: OutcomeTimeout, Attempts: attempts}
		}

		timer := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Outcome: OutcomeCancelled, Attempts: attempts}
		case <-timer.C:
		}
	}
}

// Session is one in-progress background poll. It owns a single goroutine
// running Poll; Cancel stops it cooperatively.
type Session struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// Start begins polling in the background. The session ends when a terminal
// or timeout outcome is reached, the parent context is cancelled, or Cancel
// is called.
func Start(ctx context.Context, jobID string, fetch FetchFunc, opts Options) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer cancel()
		s.result = Poll(ctx, jobID, fetch, opts)
	}()
	return s
}

// Cancel stops the session. Safe to call more than once and after the
// session has already finished; a tick observed after cancellation is a
// no-op.
func (s *Session) Cancel() {
	s.cancel()
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns its result.
func (s *Session) Wait() Result {
	<-s.done
	return s.result
}
