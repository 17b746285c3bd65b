package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/labbook/internal/domain"
)

func TestConflictCheckerBufferBoundary(t *testing.T) {
	store := newMemStore()
	store.addReservation(domain.Reservation{
		ID: "r1", ResourceID: strPtr("res-1"), StartTime: at(10, 0), EndTime: at(14, 0),
	})
	checker := NewConflictChecker(store, 2*time.Hour)
	ctx := context.Background()
	const eps = time.Second

	cases := []struct {
		name      string
		start     time.Time
		end       time.Time
		available bool
	}{
		{"starts exactly end plus buffer", at(16, 0), at(18, 0), true},
		{"starts just inside buffer", at(16, 0).Add(-eps), at(18, 0), false},
		{"ends exactly start minus buffer", at(6, 0), at(8, 0), true},
		{"ends just inside buffer", at(6, 0), at(8, 0).Add(eps), false},
		{"one hour gap", at(15, 0), at(17, 0), false},
		{"overlapping", at(12, 0), at(13, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := checker.Available(ctx, "res-1", Interval{Start: tc.start, End: tc.end}, "")
			require.NoError(t, err)
			assert.Equal(t, tc.available, ok)
		})
	}
}

func TestConflictCheckerIgnoresTerminalOtherKeysAndExcluded(t *testing.T) {
	store := newMemStore()
	for i, status := range []domain.ReservationStatus{
		domain.ReservationStatusCancelled,
		domain.ReservationStatusExpired,
		domain.ReservationStatusCompleted,
	} {
		store.addReservation(domain.Reservation{
			ID: "t" + string(rune('a'+i)), ResourceID: strPtr("res-1"), Status: status,
			StartTime: at(10, 0), EndTime: at(14, 0),
		})
	}
	store.addReservation(domain.Reservation{
		ID: "other", ResourceID: strPtr("res-2"), StartTime: at(10, 0), EndTime: at(14, 0),
	})
	store.addReservation(domain.Reservation{
		ID: "self", ResourceID: strPtr("res-1"), Status: domain.ReservationStatusActive,
		StartTime: at(10, 0), EndTime: at(14, 0),
	})

	checker := NewConflictChecker(store, 2*time.Hour)
	candidate := Interval{Start: at(11, 0), End: at(13, 0)}

	n, err := checker.Conflicts(context.Background(), "res-1", candidate, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = checker.Conflicts(context.Background(), "res-1", candidate, "self")
	require.NoError(t, err)
	assert.Zero(t, n)

	last := store.filters[len(store.filters)-1]
	require.NotNil(t, last.LockKey)
	assert.Equal(t, "res-1", *last.LockKey)
	assert.Equal(t, domain.LiveReservationStatuses, last.Statuses)
	assert.Equal(t, at(9, 0), *last.OverlapFrom)
	assert.Equal(t, at(15, 0), *last.OverlapTo)
}

func TestConflictCheckerPropagatesErrors(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("db down")
	_, err := NewConflictChecker(store, time.Hour).Available(context.Background(), "res-1",
		Interval{Start: at(10, 0), End: at(11, 0)}, "")
	assert.EqualError(t, err, "db down")
}
