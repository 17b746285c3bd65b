package booking

import (
	"context"
	"time"

	"github.com/spec-kit/labbook/internal/domain"
)

// CooldownSource returns the creation time of a user's most recent
// reservation, ignoring the excluded statuses. nil means no history.
type CooldownSource interface {
	LastCreatedAt(ctx context.Context, userID string, excluded []domain.ReservationStatus) (*time.Time, error)
}

// CooldownResult is the outcome of a cooldown check.
type CooldownResult struct {
	Allowed   bool
	Remaining time.Duration
}

// CooldownGate enforces a minimum time between a user's bookings, measured
// from the creation time of the previous reservation. Cancelled
// reservations are skipped unless countCancelled is set.
type CooldownGate struct {
	source         CooldownSource
	window         time.Duration
	countCancelled bool
}

// NewCooldownGate constructs a gate. A zero window disables it.
func NewCooldownGate(source CooldownSource, window time.Duration, countCancelled bool) *CooldownGate {
	return &CooldownGate{source: source, window: window, countCancelled: countCancelled}
}

// Window returns the configured cooldown length.
func (g *CooldownGate) Window() time.Duration {
	return g.window
}

// Check decides whether userID may book at now. Exactly window after the
// last booking is allowed.
func (g *CooldownGate) Check(ctx context.Context, userID string, now time.Time) (CooldownResult, error) {
	if g.window <= 0 {
		return CooldownResult{Allowed: true}, nil
	}
	var excluded []domain.ReservationStatus
	if !g.countCancelled {
		excluded = []domain.ReservationStatus{domain.ReservationStatusCancelled}
	}
	last, err := g.source.LastCreatedAt(ctx, userID, excluded)
	if err != nil {
		return CooldownResult{}, err
	}
	if last == nil {
		return CooldownResult{Allowed: true}, nil
	}
	ends := last.Add(g.window)
	if now.Before(ends) {
		return CooldownResult{Allowed: false, Remaining: ends.Sub(now)}, nil
	}
	return CooldownResult{Allowed: true}, nil
}
