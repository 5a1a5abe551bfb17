// Package sched provides the periodic-trigger collaborator for the update
// manager. The engine's update logic never touches a timer API directly;
// it only registers callbacks against a Scheduler.
package sched

import (
	"context"
	"time"

	"github.com/haukened/domrep/internal/rep/common/log"
)

// Scheduler registers callbacks that fire on a fixed interval until the
// provided context is cancelled.
type Scheduler interface {
	RegisterPeriodic(ctx context.Context, interval time.Duration, fn func(context.Context))
}

// TickScheduler runs each registered callback on its own ticker goroutine.
type TickScheduler struct {
	logger log.Logger
}

func New(logger log.Logger) *TickScheduler {
	return &TickScheduler{logger: logger}
}

func (s *TickScheduler) RegisterPeriodic(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		s.logger.Warn(map[string]any{"interval": interval.String()}, "Refusing to register non-positive periodic interval")
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// ManualScheduler collects callbacks and fires them on demand. Test double.
type ManualScheduler struct {
	callbacks []func(context.Context)
	intervals []time.Duration
}

func NewManual() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) RegisterPeriodic(_ context.Context, interval time.Duration, fn func(context.Context)) {
	s.callbacks = append(s.callbacks, fn)
	s.intervals = append(s.intervals, interval)
}

// Fire invokes every registered callback once.
func (s *ManualScheduler) Fire(ctx context.Context) {
	for _, fn := range s.callbacks {
		fn(ctx)
	}
}

// Registered returns the number of registered callbacks.
func (s *ManualScheduler) Registered() int {
	return len(s.callbacks)
}

// Intervals returns the intervals callbacks were registered with.
func (s *ManualScheduler) Intervals() []time.Duration {
	return s.intervals
}

var _ Scheduler = (*TickScheduler)(nil)
var _ Scheduler = (*ManualScheduler)(nil)
