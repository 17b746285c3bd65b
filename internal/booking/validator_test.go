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

// clockNow is the validator clock for every case: the morning of the test day.
var clockNow = at(8, 0)

func newTestValidator(store *memStore, mutate func(*Policy)) *Validator {
	policy := DefaultPolicy()
	if mutate != nil {
		mutate(&policy)
	}
	return NewValidator(ValidatorDependencies{
		Types:        store,
		Resources:    store,
		Reservations: store,
		History:      store,
		Policy:       policy,
		Clock:        fixedClock(clockNow),
	})
}

func requireRejection(t *testing.T, err error, reason Reason) *Rejection {
	t.Helper()
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "expected rejection, got %v", err)
	assert.Equal(t, reason, rej.Reason)
	return rej
}

func TestValidatorSingleResourceSucceeds(t *testing.T) {
	store := newMemStore()
	store.addType("T", 0, online("R"))

	decision, err := newTestValidator(store, nil).Validate(context.Background(), Request{
		UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(14, 0),
	})
	require.NoError(t, err)
	require.NotNil(t, decision.Resource)
	assert.Equal(t, "R", decision.Resource.ID)
	assert.Equal(t, "R", decision.LockKey)
	assert.Equal(t, at(16, 0), decision.GuardUntil)
	assert.Equal(t, "R", *decision.ResourceID())
}

func TestValidatorMaintenanceBuffer(t *testing.T) {
	store := newMemStore()
	store.addType("T", 0, online("R"))
	store.addReservation(domain.Reservation{
		ID: "existing", UserID: "other", ResourceID: strPtr("R"), StartTime: at(10, 0), EndTime: at(14, 0),
	})
	v := newTestValidator(store, nil)

	_, err := v.Validate(context.Background(), Request{UserID: "u1", BookingTypeID: "T", Start: at(15, 0), End: at(17, 0)})
	requireRejection(t, err, ReasonNoAvailability)

	decision, err := v.Validate(context.Background(), Request{UserID: "u1", BookingTypeID: "T", Start: at(16, 0), End: at(18, 0)})
	require.NoError(t, err)
	assert.Equal(t, "R", decision.Resource.ID)
}

func TestValidatorCooldown(t *testing.T) {
	store := newMemStore()
	store.addType("T", 0, online("R"))
	store.addReservation(domain.Reservation{
		ID: "prev", UserID: "u1", ResourceID: strPtr("R"),
		StartTime: day.Add(-48 * time.Hour), EndTime: day.Add(-46 * time.Hour),
		Status:    domain.ReservationStatusExpired,
		CreatedAt: clockNow.Add(-24 * time.Hour),
	})

	_, err := newTestValidator(store, nil).Validate(context.Background(), Request{
		UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0),
	})
	rej := requireRejection(t, err, ReasonCooldownActive)
	assert.Equal(t, KindPolicy, rej.Kind)
	assert.Equal(t, 2, rej.DaysRemaining())
	assert.Contains(t, rej.Error(), "2 day(s) remaining")
}

func TestValidatorRevalidationSkipsCooldownAndSelf(t *testing.T) {
	store := newMemStore()
	store.addType("T", 0, online("R"))
	store.addReservation(domain.Reservation{
		ID: "mine", UserID: "u1", ResourceID: strPtr("R"),
		StartTime: at(10, 0), EndTime: at(12, 0), CreatedAt: clockNow.Add(-time.Hour),
	})

	decision, err := newTestValidator(store, nil).Validate(context.Background(), Request{
		UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0),
		ExcludeReservationID: "mine",
	})
	require.NoError(t, err)
	assert.Equal(t, "R", decision.Resource.ID)
}

func TestValidatorAllocatesPastOfflineResource(t *testing.T) {
	first := online("R1")
	first.Status = domain.ResourceStatusOffline
	store := newMemStore()
	store.addType("T", 0, first, online("R2"))

	_, err := newTestValidator(store, nil).Validate(context.Background(), Request{
		UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0),
	})
	requireRejection(t, err, ReasonResourcesOffline)

	decision, err := newTestValidator(store, func(p *Policy) { p.ResourcePolicy = ResourcePolicyAny }).
		Validate(context.Background(), Request{UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0)})
	require.NoError(t, err)
	assert.Equal(t, "R2", decision.Resource.ID)
}

func TestValidatorDeactivatedResourceDoesNotBlockType(t *testing.T) {
	inactive := online("R1")
	inactive.Active = false
	store := newMemStore()
	store.addType("T", 0, inactive, online("R2"))

	decision, err := newTestValidator(store, nil).Validate(context.Background(), Request{
		UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "R2", decision.Resource.ID)
}

func TestValidatorMaintenanceResourceIsBookable(t *testing.T) {
	maintenance := online("R1")
	maintenance.Status = domain.ResourceStatusMaintenance
	store := newMemStore()
	store.addType("T", 0, maintenance)

	decision, err := newTestValidator(store, nil).Validate(context.Background(), Request{
		UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "R1", decision.Resource.ID)
}

func TestValidatorAllDeactivatedHasNoAvailability(t *testing.T) {
	inactive := online("R1")
	inactive.Active = false
	store := newMemStore()
	store.addType("T", 0, inactive)

	_, err := newTestValidator(store, nil).Validate(context.Background(), Request{
		UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0),
	})
	requireRejection(t, err, ReasonNoAvailability)
}

func TestValidatorCheckOrder(t *testing.T) {
	store := newMemStore()
	store.addType("T", 0, online("R"))
	store.addType("off", 0)
	store.types["off"].Active = false
	store.addType("empty", 0)
	// A recent booking makes the cooldown fail for u1 so earlier checks
	// must win when they also fail.
	store.addReservation(domain.Reservation{
		ID: "recent", UserID: "u1", ResourceID: strPtr("R"),
		StartTime: at(20, 0), EndTime: at(22, 0), CreatedAt: clockNow.Add(-time.Hour),
	})
	v := newTestValidator(store, nil)

	cases := []struct {
		name   string
		req    Request
		reason Reason
	}{
		{"end before start", Request{UserID: "u1", BookingTypeID: "T", Start: at(12, 0), End: at(10, 0)}, ReasonDurationOutOfBounds},
		{"below minimum", Request{UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(10, 30)}, ReasonDurationOutOfBounds},
		{"above default maximum", Request{UserID: "u1", BookingTypeID: "T", Start: at(9, 0), End: at(18, 0)}, ReasonDurationOutOfBounds},
		{"past start beats missing type", Request{UserID: "u1", BookingTypeID: "missing", Start: at(6, 0), End: at(7, 0)}, ReasonStartInPast},
		{"missing type", Request{UserID: "u1", BookingTypeID: "missing", Start: at(10, 0), End: at(12, 0)}, ReasonTypeNotFound},
		{"inactive type", Request{UserID: "u1", BookingTypeID: "off", Start: at(10, 0), End: at(12, 0)}, ReasonTypeInactive},
		{"no resources mapped", Request{UserID: "u1", BookingTypeID: "empty", Start: at(10, 0), End: at(12, 0)}, ReasonResourcesOffline},
		{"cooldown", Request{UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0)}, ReasonCooldownActive},
		{"no availability", Request{UserID: "u2", BookingTypeID: "T", Start: at(19, 0), End: at(21, 0)}, ReasonNoAvailability},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), tc.req)
			requireRejection(t, err, tc.reason)
		})
	}
}

func TestValidatorRejectionKinds(t *testing.T) {
	store := newMemStore()
	v := newTestValidator(store, nil)

	_, err := v.Validate(context.Background(), Request{UserID: "u1", BookingTypeID: "missing", Start: at(10, 0), End: at(12, 0)})
	rej := requireRejection(t, err, ReasonTypeNotFound)
	assert.Equal(t, KindNotFound, rej.Kind)

	_, err = v.Validate(context.Background(), Request{UserID: "u1", BookingTypeID: "missing", Start: at(7, 0), End: at(9, 0)})
	rej = requireRejection(t, err, ReasonStartInPast)
	assert.Equal(t, KindValidation, rej.Kind)
}

func TestValidatorTypeMaximumOverridesDefault(t *testing.T) {
	store := newMemStore()
	store.addType("long", 12, online("R"))
	store.addType("short", 2, online("S"))
	v := newTestValidator(store, nil)

	_, err := v.Validate(context.Background(), Request{UserID: "u1", BookingTypeID: "long", Start: at(9, 0), End: at(19, 0)})
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), Request{UserID: "u2", BookingTypeID: "short", Start: at(9, 0), End: at(12, 0)})
	requireRejection(t, err, ReasonDurationOutOfBounds)
}

func TestValidatorTypeExclusivity(t *testing.T) {
	store := newMemStore()
	store.addType("T", 0, online("R1"), online("R2"))
	store.addReservation(domain.Reservation{
		ID: "held", UserID: "other", ResourceID: strPtr("R1"), LockKey: TypeLockKey("T"),
		StartTime: at(10, 0), EndTime: at(12, 0),
	})
	v := newTestValidator(store, func(p *Policy) { p.Exclusivity = ExclusivityType })

	_, err := v.Validate(context.Background(), Request{UserID: "u1", BookingTypeID: "T", Start: at(13, 0), End: at(15, 0)})
	requireRejection(t, err, ReasonNoAvailability)

	decision, err := v.Validate(context.Background(), Request{UserID: "u1", BookingTypeID: "T", Start: at(14, 0), End: at(16, 0)})
	require.NoError(t, err)
	assert.Equal(t, TypeLockKey("T"), decision.LockKey)
	assert.Equal(t, "R1", decision.Resource.ID)
}

func TestValidatorPropagatesInfrastructureErrors(t *testing.T) {
	store := newMemStore()
	store.addType("T", 0, online("R"))
	store.listErr = errors.New("db down")

	_, err := newTestValidator(store, nil).Validate(context.Background(), Request{
		UserID: "u1", BookingTypeID: "T", Start: at(10, 0), End: at(12, 0),
	})
	require.Error(t, err)
	var rej *Rejection
	assert.False(t, errors.As(err, &rej))
	assert.ErrorContains(t, err, "db down")
}

func TestPreview(t *testing.T) {
	store := newMemStore()
	store.addType("T", 0, online("R1"), online("R2"))
	store.addReservation(domain.Reservation{
		ID: "busy", ResourceID: strPtr("R1"), StartTime: at(10, 0), EndTime: at(12, 0),
	})
	v := newTestValidator(store, nil)

	res, ok, err := v.Preview(context.Background(), "T", Interval{Start: at(11, 0), End: at(12, 0)})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "R2", res.ID)

	store.addReservation(domain.Reservation{
		ID: "busy2", ResourceID: strPtr("R2"), StartTime: at(10, 0), EndTime: at(12, 0),
	})
	_, ok, err = v.Preview(context.Background(), "T", Interval{Start: at(11, 0), End: at(12, 0)})
	require.NoError(t, err)
	assert.False(t, ok)
}
