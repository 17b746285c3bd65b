package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/labbook/internal/domain"
)

func TestSweepExpiresAndIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.addReservation(domain.Reservation{
		ID: "ended", Status: domain.ReservationStatusActive, StartTime: at(6, 0), EndTime: at(8, 0),
	})
	store.addReservation(domain.Reservation{
		ID: "started", StartTime: at(9, 0), EndTime: at(11, 0),
	})
	store.addReservation(domain.Reservation{
		ID: "future", StartTime: at(12, 0), EndTime: at(14, 0),
	})
	store.addReservation(domain.Reservation{
		ID: "cancelled", Status: domain.ReservationStatusCancelled, StartTime: at(6, 0), EndTime: at(7, 0),
	})
	sweeper := NewSweeper(store, fixedClock(at(10, 0)), nil)

	result, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ended"}, result.Expired)
	assert.Equal(t, []string{"started"}, result.Activated)
	assert.True(t, result.Changed())

	assert.Equal(t, domain.ReservationStatusExpired, store.status("ended"))
	assert.Equal(t, domain.ReservationStatusActive, store.status("started"))
	assert.Equal(t, domain.ReservationStatusUpcoming, store.status("future"))
	assert.Equal(t, domain.ReservationStatusCancelled, store.status("cancelled"))

	again, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.False(t, again.Changed())
	assert.Equal(t, domain.ReservationStatusExpired, store.status("ended"))
}

func TestSweepExpiresUpcomingThatNeverStarted(t *testing.T) {
	store := newMemStore()
	store.addReservation(domain.Reservation{ID: "missed", StartTime: at(6, 0), EndTime: at(8, 0)})

	result, err := NewSweeper(store, fixedClock(at(8, 0)), nil).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"missed"}, result.Expired)
	assert.Empty(t, result.Activated)
}

func TestPolicyFromConfigDefaults(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 8*time.Hour, p.MaxDurationFor(0))
	assert.Equal(t, 12*time.Hour, p.MaxDurationFor(12*time.Hour))
	assert.Equal(t, "res-1", p.LockKey("T", "res-1"))
	p.Exclusivity = ExclusivityType
	assert.Equal(t, "type:T", p.LockKey("T", "res-1"))
}
