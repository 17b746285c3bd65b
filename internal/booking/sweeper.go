package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LifecycleStore performs the guarded status writes of the sweeper. Each
// method only touches rows that are still in a live status and returns the
// ids it changed.
type LifecycleStore interface {
	ExpireEnded(ctx context.Context, now time.Time) ([]string, error)
	ActivateStarted(ctx context.Context, now time.Time) ([]string, error)
}

// SweepResult lists the reservations a sweep transitioned.
type SweepResult struct {
	Expired   []string
	Activated []string
}

// Changed reports whether the sweep wrote anything.
func (r SweepResult) Changed() bool {
	return len(r.Expired) > 0 || len(r.Activated) > 0
}

// Sweeper moves reservations through time-driven transitions. Running it
// twice with no new data changes nothing the second time, and it never
// touches a terminal reservation, so concurrent runs are safe.
type Sweeper struct {
	store  LifecycleStore
	clock  Clock
	logger *zap.Logger
}

// NewSweeper constructs a Sweeper.
func NewSweeper(store LifecycleStore, clock Clock, logger *zap.Logger) *Sweeper {
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{store: store, clock: clock, logger: logger}
}

// Sweep expires live reservations whose end has passed, then activates
// upcoming ones whose interval contains now.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()

	expired, err := s.store.ExpireEnded(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("expire ended reservations: %w", err)
	}
	activated, err := s.store.ActivateStarted(ctx, now)
	if err != nil {
		return SweepResult{Expired: expired}, fmt.Errorf("activate started reservations: %w", err)
	}

	result := SweepResult{Expired: expired, Activated: activated}
	if result.Changed() {
		s.logger.Info("lifecycle sweep",
			zap.Int("expired", len(expired)),
			zap.Int("activated", len(activated)))
	}
	return result, nil
}
