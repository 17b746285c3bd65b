package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/domain"
)

// BookingTypeSource loads booking types.
type BookingTypeSource interface {
	GetByID(ctx context.Context, id string) (*domain.BookingType, error)
}

// Request is one inbound booking attempt from an authenticated user.
type Request struct {
	UserID        string
	BookingTypeID string
	Start         time.Time
	End           time.Time
	// ExcludeReservationID is set when revalidating an existing reservation.
	// That reservation is ignored by conflict checks and the cooldown gate
	// is skipped.
	ExcludeReservationID string
}

// Decision is the successful outcome of validation.
type Decision struct {
	BookingType *domain.BookingType
	// Resource is nil only when a type-exclusive booking type has no
	// resources mapped.
	Resource   *domain.Resource
	LockKey    string
	Interval   Interval
	GuardUntil time.Time
}

// ResourceID returns the chosen resource id, if any.
func (d *Decision) ResourceID() *string {
	if d == nil || d.Resource == nil {
		return nil
	}
	id := d.Resource.ID
	return &id
}

// ValidatorDependencies bundles the persistence views the engine reads.
type ValidatorDependencies struct {
	Types        BookingTypeSource
	Resources    ResourceSource
	Reservations ReservationSource
	History      CooldownSource
	Policy       Policy
	Clock        Clock
	Logger       *zap.Logger
}

// Validator runs the ordered booking checks and short-circuits on the first
// failure:
//  1. duration bounds
//  2. start not in the past
//  3. booking type exists, is active and its resources are operational
//  4. cooldown gate
//  5. allocation (or a type-level conflict check)
type Validator struct {
	types     BookingTypeSource
	directory *Directory
	checker   *ConflictChecker
	allocator *Allocator
	cooldown  *CooldownGate
	policy    Policy
	clock     Clock
	logger    *zap.Logger
}

// NewValidator wires the engine components.
func NewValidator(deps ValidatorDependencies) *Validator {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	directory := NewDirectory(deps.Resources)
	checker := NewConflictChecker(deps.Reservations, deps.Policy.Buffer)
	return &Validator{
		types:     deps.Types,
		directory: directory,
		checker:   checker,
		allocator: NewAllocator(directory, checker),
		cooldown:  NewCooldownGate(deps.History, deps.Policy.Cooldown, deps.Policy.CooldownCountsCancelled),
		policy:    deps.Policy,
		clock:     clock,
		logger:    logger,
	}
}

// Policy returns the rules in force.
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate returns a Decision, a *Rejection for a business-rule failure, or
// another error when persistence fails.
func (v *Validator) Validate(ctx context.Context, req Request) (*Decision, error) {
	decision, err := v.validate(ctx, req)
	var rejection *Rejection
	if errors.As(err, &rejection) {
		v.logger.Debug("booking rejected",
			zap.String("user_id", req.UserID),
			zap.String("booking_type_id", req.BookingTypeID),
			zap.String("reason", string(rejection.Reason)))
	}
	return decision, err
}

func (v *Validator) validate(ctx context.Context, req Request) (*Decision, error) {
	now := v.clock.Now()

	// The type is loaded up front because its maximum feeds the duration
	// check; a missing type is still reported at its own step.
	bookingType, err := v.types.GetByID(ctx, req.BookingTypeID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("load booking type: %w", err)
		}
		bookingType = nil
	}

	var typeMax time.Duration
	if bookingType != nil {
		typeMax = bookingType.MaxDuration()
	}
	candidate, rej := v.checkDuration(req.Start, req.End, typeMax)
	if rej != nil {
		return nil, rej
	}
	if candidate.Start.Before(now) {
		return nil, rejectPastStart()
	}

	if bookingType == nil {
		return nil, rejectTypeNotFound(req.BookingTypeID)
	}
	if !bookingType.Active {
		return nil, rejectTypeInactive()
	}

	resources, err := v.directory.Resources(ctx, bookingType.ID)
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	operational := Operational(resources)
	if rej := v.checkResources(resources); rej != nil {
		return nil, rej
	}

	if req.ExcludeReservationID == "" {
		result, err := v.cooldown.Check(ctx, req.UserID, now)
		if err != nil {
			return nil, fmt.Errorf("cooldown lookup: %w", err)
		}
		if !result.Allowed {
			return nil, rejectCooldown(result.Remaining, v.cooldown.Window())
		}
	}

	decision := &Decision{
		BookingType: bookingType,
		Interval:    candidate,
		GuardUntil:  candidate.End.Add(v.policy.Buffer),
	}

	if v.policy.Exclusivity == ExclusivityType {
		key := TypeLockKey(bookingType.ID)
		ok, err := v.checker.Available(ctx, key, candidate, req.ExcludeReservationID)
		if err != nil {
			return nil, fmt.Errorf("conflict check: %w", err)
		}
		if !ok {
			return nil, rejectNoAvailability()
		}
		decision.LockKey = key
		if len(operational) > 0 {
			res := operational[0]
			decision.Resource = &res
		}
		return decision, nil
	}

	resource, err := v.allocator.FirstFit(ctx, operational, candidate, req.ExcludeReservationID)
	if err != nil {
		if errors.Is(err, ErrNoResourceAvailable) {
			return nil, rejectNoAvailability()
		}
		return nil, fmt.Errorf("allocate: %w", err)
	}
	decision.Resource = resource
	decision.LockKey = v.policy.LockKey(bookingType.ID, resource.ID)
	return decision, nil
}

// checkDuration validates start < end and the min/max bounds. typeMax of zero
// falls back to the policy default.
func (v *Validator) checkDuration(start, end time.Time, typeMax time.Duration) (Interval, *Rejection) {
	upper := v.policy.MaxDurationFor(typeMax)
	candidate, err := NewInterval(start, end)
	if err != nil {
		return Interval{}, rejectDuration(end.Sub(start), v.policy.MinDuration, upper)
	}
	d := candidate.Duration()
	if d < v.policy.MinDuration || (upper > 0 && d > upper) {
		return Interval{}, rejectDuration(d, v.policy.MinDuration, upper)
	}
	return candidate, nil
}

// checkResources applies the offline policy. Deactivated resources never
// reject the type; the allocator skips them.
func (v *Validator) checkResources(all []domain.Resource) *Rejection {
	if len(all) == 0 {
		if v.policy.Exclusivity == ExclusivityType {
			return nil
		}
		return rejectResourcesOffline("no resources mapped to this type")
	}
	offline := 0
	for _, r := range all {
		if r.Offline() {
			offline++
		}
	}
	if offline == len(all) {
		return rejectResourcesOffline("all resources offline")
	}
	if v.policy.ResourcePolicy == ResourcePolicyAll && offline > 0 {
		return rejectResourcesOffline(fmt.Sprintf("%d of %d resources offline", offline, len(all)))
	}
	return nil
}

// Preview reports which resource a request would land on without applying
// the time-of-request or cooldown checks.
func (v *Validator) Preview(ctx context.Context, bookingTypeID string, candidate Interval) (*domain.Resource, bool, error) {
	if v.policy.Exclusivity == ExclusivityType {
		ok, err := v.checker.Available(ctx, TypeLockKey(bookingTypeID), candidate, "")
		return nil, ok, err
	}
	res, err := v.allocator.Allocate(ctx, bookingTypeID, candidate, "")
	if err != nil {
		if errors.Is(err, ErrNoResourceAvailable) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return res, true, nil
}
