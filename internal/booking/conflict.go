package booking

import (
	"context"
	"time"

	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/repository"
)

// ReservationSource is the read side of reservation persistence.
type ReservationSource interface {
	List(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error)
}

// ConflictChecker decides whether a candidate interval collides with a live
// reservation on the same exclusivity key.
//
// A candidate C conflicts with an existing reservation R when
// Overlaps(C, Expand(R, buffer, buffer)). A gap of exactly buffer between
// the two is allowed.
type ConflictChecker struct {
	reservations ReservationSource
	buffer       time.Duration
}

// NewConflictChecker constructs a checker with the maintenance buffer.
func NewConflictChecker(reservations ReservationSource, buffer time.Duration) *ConflictChecker {
	return &ConflictChecker{reservations: reservations, buffer: buffer}
}

// Buffer returns the maintenance gap applied around reservations.
func (c *ConflictChecker) Buffer() time.Duration {
	return c.buffer
}

// Conflicts returns the number of live reservations on lockKey that collide
// with candidate. excludeID skips one reservation, used when revalidating an
// edit.
func (c *ConflictChecker) Conflicts(ctx context.Context, lockKey string, candidate Interval, excludeID string) (int, error) {
	window := Expand(candidate, c.buffer, c.buffer)
	filter := repository.ReservationFilter{
		LockKey:     &lockKey,
		Statuses:    domain.LiveReservationStatuses,
		OverlapFrom: &window.Start,
		OverlapTo:   &window.End,
	}
	if excludeID != "" {
		filter.ExcludeID = &excludeID
	}
	existing, err := c.reservations.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, r := range existing {
		if r.Status.IsTerminal() || (excludeID != "" && r.ID == excludeID) {
			continue
		}
		held := Expand(Interval{Start: r.StartTime, End: r.EndTime}, c.buffer, c.buffer)
		if Overlaps(candidate, held) {
			count++
		}
	}
	return count, nil
}

// Available reports whether lockKey has no conflicts for candidate.
func (c *ConflictChecker) Available(ctx context.Context, lockKey string, candidate Interval, excludeID string) (bool, error) {
	n, err := c.Conflicts(ctx, lockKey, candidate, excludeID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
