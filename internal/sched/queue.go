// Package sched provides the cooperative step queue behind chunked
// geometry construction.
//
// Long-running builds must not block the render goroutine in one
// synchronous call. A Queue runs a lazy, finite, non-restartable sequence
// of steps with an explicit scheduling point between consecutive steps;
// cancellation is checked at every boundary.
package sched

import (
	"context"
	"errors"
	"runtime"
)

// ErrConsumed is returned when Run is called on a queue that already ran.
// Queues are single-use by design; rebuilding means making a new queue.
var ErrConsumed = errors.New("sched: queue already consumed")

// Step is one bounded unit of work.
type Step func() error

// Yield runs between consecutive steps, giving up the scheduling turn.
// Implementations must return promptly and propagate ctx cancellation.
type Yield func(ctx context.Context) error

// defaultYield checks for cancellation, then yields the processor.
func defaultYield(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	runtime.Gosched()
	return nil
}

// Queue executes steps pulled lazily from a generator function.
type Queue struct {
	next  func() (Step, bool)
	yield Yield
	ran   bool
	steps int
	turns int
}

// New creates a queue over a generator. The generator returns the next
// step and true, or false when the sequence is exhausted. Steps are pulled
// lazily, one per scheduling turn.
func New(next func() (Step, bool)) *Queue {
	return &Queue{next: next, yield: defaultYield}
}

// Of creates a queue over a fixed step slice.
func Of(steps ...Step) *Queue {
	i := 0
	return New(func() (Step, bool) {
		if i >= len(steps) {
			return nil, false
		}
		s := steps[i]
		i++
		return s, true
	})
}

// SetYield replaces the scheduling point, mainly so tests can observe and
// count turns. A nil yield restores the default.
func (q *Queue) SetYield(y Yield) {
	if y == nil {
		y = defaultYield
	}
	q.yield = y
}

// Run consumes the queue: each step runs in its own scheduling turn, with
// a yield between consecutive steps. Run returns the first step error, the
// context error if cancelled at a boundary, or nil on completion.
//
// A queue is non-restartable: the second Run returns ErrConsumed.
func (q *Queue) Run(ctx context.Context) error {
	if q.ran {
		return ErrConsumed
	}
	q.ran = true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		step, ok := q.next()
		if !ok {
			return nil
		}
		if q.steps > 0 {
			q.turns++
			if err := q.yield(ctx); err != nil {
				return err
			}
		}
		q.steps++
		if err := step(); err != nil {
			return err
		}
	}
}

// StepsRun returns how many steps executed.
func (q *Queue) StepsRun() int { return q.steps }

// Turns returns how many scheduling points were taken between steps.
func (q *Queue) Turns() int { return q.turns }
