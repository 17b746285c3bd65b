package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/auth"
	"github.com/spec-kit/labbook/internal/booking"
	"github.com/spec-kit/labbook/internal/config"
	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/events"
	"github.com/spec-kit/labbook/internal/observability"
	"github.com/spec-kit/labbook/internal/persistence"
	"github.com/spec-kit/labbook/internal/repository"
	apperrors "github.com/spec-kit/labbook/pkg/util/errorutil"
)

const (
	userLockPrefix = "labbook:lock:booking:user:"
	sweepLockKey   = "labbook:lock:sweeper"

	defaultListLimit = 50
	maxListLimit     = 200
)

// overridableStatuses are the targets an admin may force a reservation into.
var overridableStatuses = map[domain.ReservationStatus]struct{}{
	domain.ReservationStatusUpcoming:  {},
	domain.ReservationStatusActive:    {},
	domain.ReservationStatusCompleted: {},
	domain.ReservationStatusCancelled: {},
}

// BookingService coordinates reservation workflows around the booking engine.
type BookingService struct {
	reservations   repository.ReservationRepository
	bookingTypes   repository.BookingTypeRepository
	resources      repository.ResourceRepository
	templates      repository.TemplateRepository
	connections    repository.ConnectionInfoRepository
	validator      *booking.Validator
	sweeper        *booking.Sweeper
	locker         persistence.Locker
	dispatcher     events.Dispatcher
	metrics        *observability.Metrics
	clock          booking.Clock
	logger         *zap.Logger
	commitAttempts int
	userLockTTL    time.Duration
	sweepLockTTL   time.Duration
	passwords      *auth.PasswordHasher
	newSecret      func() (string, error)
}

// BookingDependencies bundles collaborators for the booking service.
type BookingDependencies struct {
	ReservationRepo    repository.ReservationRepository
	BookingTypeRepo    repository.BookingTypeRepository
	ResourceRepo       repository.ResourceRepository
	TemplateRepo       repository.TemplateRepository
	ConnectionInfoRepo repository.ConnectionInfoRepository
	Validator          *booking.Validator
	Sweeper            *booking.Sweeper
	// Locker may be nil, in which case requests are not serialized per user.
	Locker         persistence.Locker
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Clock          booking.Clock
	Logger         *zap.Logger
	CommitAttempts int
	UserLockTTL    time.Duration
	SweepLockTTL   time.Duration
	// Passwords defaults to a hasher at auth.DefaultBcryptCost.
	Passwords *auth.PasswordHasher
}

// CreateBookingInput describes a booking request.
type CreateBookingInput struct {
	BookingTypeID string
	StartTime     time.Time
	EndTime       time.Time
}

// BookingResult is returned once on creation. Password is the only time the
// plaintext booking password leaves the service.
type BookingResult struct {
	Reservation *domain.Reservation
	Password    string
	Connection  *domain.ConnectionInfo
}

// ListBookingsInput filters reservation listings. UserID is honoured for
// admins only.
type ListBookingsInput struct {
	UserID        *string
	BookingTypeID *string
	Statuses      []domain.ReservationStatus
	Limit         int
	Offset        int
}

// AvailabilityResult answers an availability query.
type AvailabilityResult struct {
	Available  bool
	ResourceID *string
}

// NewBookingService constructs the service.
func NewBookingService(deps BookingDependencies) *BookingService {
	clock := deps.Clock
	if clock == nil {
		clock = booking.SystemClock
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := deps.CommitAttempts
	if attempts < 1 {
		attempts = 1
	}
	passwords := deps.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordHasher(config.AuthConfig{})
	}
	return &BookingService{
		reservations:   deps.ReservationRepo,
		bookingTypes:   deps.BookingTypeRepo,
		resources:      deps.ResourceRepo,
		templates:      deps.TemplateRepo,
		connections:    deps.ConnectionInfoRepo,
		validator:      deps.Validator,
		sweeper:        deps.Sweeper,
		locker:         deps.Locker,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		clock:          clock,
		logger:         logger,
		commitAttempts: attempts,
		userLockTTL:    deps.UserLockTTL,
		sweepLockTTL:   deps.SweepLockTTL,
		passwords:      passwords,
		newSecret:      auth.NewSecret,
	}
}

// Create validates and persists a reservation. A storage-level slot
// conflict triggers revalidation, possibly landing on another resource,
// until the commit attempts are spent.
func (s *BookingService) Create(ctx context.Context, actor Actor, input CreateBookingInput) (*BookingResult, error) {
	release, err := s.lock(ctx, userLockPrefix+actor.UserID, s.userLockTTL)
	if err != nil {
		if errors.Is(err, persistence.ErrLockHeld) {
			return nil, apperrors.NewConflict("another booking request for this user is in progress",
				map[string]any{"reason": "request_in_progress"})
		}
		return nil, err
	}
	defer release()

	accessCode, err := auth.NewAccessCode()
	if err != nil {
		return nil, fmt.Errorf("generate access code: %w", err)
	}
	password, err := auth.NewBookingPassword()
	if err != nil {
		return nil, fmt.Errorf("generate booking password: %w", err)
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash booking password: %w", err)
	}

	req := booking.Request{
		UserID:        actor.UserID,
		BookingTypeID: input.BookingTypeID,
		Start:         input.StartTime,
		End:           input.EndTime,
	}

	raced := false
	for attempt := 1; attempt <= s.commitAttempts; attempt++ {
		decision, err := s.validator.Validate(ctx, req)
		if err != nil {
			var rejection *booking.Rejection
			if raced && errors.As(err, &rejection) && rejection.Reason == booking.ReasonNoAvailability {
				break
			}
			s.recordRejection(err)
			return nil, rejectionError(err)
		}

		reservation := &domain.Reservation{
			UserID:        actor.UserID,
			BookingTypeID: decision.BookingType.ID,
			ResourceID:    decision.ResourceID(),
			LockKey:       decision.LockKey,
			StartTime:     decision.Interval.Start,
			EndTime:       decision.Interval.End,
			GuardUntil:    decision.GuardUntil,
			Status:        domain.ReservationStatusUpcoming,
			AccessCode:    accessCode,
			PasswordHash:  hash,
		}
		err = s.reservations.Create(ctx, reservation)
		if errors.Is(err, repository.ErrSlotConflict) {
			raced = true
			s.metrics.RecordBooking("conflict_retry")
			s.logger.Info("slot taken at commit, revalidating",
				zap.String("user_id", actor.UserID),
				zap.String("lock_key", decision.LockKey),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create reservation: %w", err)
		}

		info := s.attachConnectionInfo(ctx, reservation, decision.Resource)
		s.metrics.RecordBooking("created")
		s.publishReservation(ctx, events.EventReservationCreated, actor.eventActor(), reservation, "")
		return &BookingResult{Reservation: reservation, Password: password, Connection: info}, nil
	}

	s.metrics.RecordBooking("conflict")
	return nil, apperrors.NewConflict("slot no longer available, please retry", map[string]any{"reason": "slot_conflict"})
}

// Get returns a reservation visible to the actor.
func (s *BookingService) Get(ctx context.Context, actor Actor, id string) (*domain.Reservation, error) {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("reservation", map[string]any{"id": id})
		}
		return nil, err
	}
	if !actor.IsAdmin() && reservation.UserID != actor.UserID {
		return nil, apperrors.NewForbidden("reservation belongs to another user")
	}
	return reservation, nil
}

// List returns the actor's reservations, or anyone's for admins.
func (s *BookingService) List(ctx context.Context, actor Actor, input ListBookingsInput) ([]domain.Reservation, error) {
	filter := repository.ReservationFilter{
		BookingTypeID: input.BookingTypeID,
		Statuses:      input.Statuses,
		Limit:         clampLimit(input.Limit),
		Offset:        input.Offset,
	}
	if actor.IsAdmin() {
		filter.UserID = input.UserID
	} else {
		userID := actor.UserID
		filter.UserID = &userID
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.reservations.List(ctx, filter)
}

// Cancel moves a live reservation to CANCELLED. Owners and admins may cancel.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id string) (*domain.Reservation, error) {
	reservation, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status.IsTerminal() {
		return nil, terminalStatusError(reservation.Status)
	}

	ok, err := s.reservations.TransitionStatus(ctx, id, domain.ReservationStatusCancelled, domain.LiveReservationStatuses)
	if err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}
	if !ok {
		// The sweeper finished it between the read and the write.
		current, err := s.reservations.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, terminalStatusError(current.Status)
	}

	reservation.Status = domain.ReservationStatusCancelled
	s.publishReservation(ctx, events.EventReservationCancelled, actor.eventActor(), reservation, "")
	return reservation, nil
}

// SetStatus is the admin override. It is the only path that rewrites a
// terminal reservation; reviving one still goes through the storage guard.
func (s *BookingService) SetStatus(ctx context.Context, actor Actor, id string, status domain.ReservationStatus) (*domain.Reservation, error) {
	if _, ok := overridableStatuses[status]; !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	reservation, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	old := reservation.Status
	if err := s.reservations.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrSlotConflict) {
			return nil, apperrors.NewConflict("status change would overlap a live reservation",
				map[string]any{"reason": "slot_conflict"})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("reservation", map[string]any{"id": id})
		}
		return nil, fmt.Errorf("set reservation status: %w", err)
	}
	reservation.Status = status
	s.publishReservation(ctx, events.EventReservationStatusOverride, actor.eventActor(), reservation, old)
	return reservation, nil
}

// Availability reports whether a slot could be allocated right now. It does
// not apply the cooldown or start-time checks.
func (s *BookingService) Availability(ctx context.Context, bookingTypeID string, start, end time.Time) (*AvailabilityResult, error) {
	candidate, err := booking.NewInterval(start, end)
	if err != nil {
		return nil, apperrors.NewValidationError("start time must be before end time", nil)
	}
	bookingType, err := s.bookingTypes.GetByID(ctx, bookingTypeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("booking type", map[string]any{"id": bookingTypeID})
		}
		return nil, err
	}
	if !bookingType.Active {
		return &AvailabilityResult{Available: false}, nil
	}
	resource, ok, err := s.validator.Preview(ctx, bookingTypeID, candidate)
	if err != nil {
		return nil, fmt.Errorf("preview availability: %w", err)
	}
	result := &AvailabilityResult{Available: ok}
	if resource != nil {
		id := resource.ID
		result.ResourceID = &id
	}
	return result, nil
}

// VerifyPassword checks a booking password. Admins always pass.
func (s *BookingService) VerifyPassword(ctx context.Context, actor Actor, id, password string) (bool, error) {
	reservation, err := s.Get(ctx, actor, id)
	if err != nil {
		return false, err
	}
	if actor.IsAdmin() {
		return true, nil
	}
	if reservation.PasswordHash == "" {
		return false, nil
	}
	return s.passwords.Compare(reservation.PasswordHash, password) == nil, nil
}

// ResetPassword issues a new booking password and returns it in plaintext.
func (s *BookingService) ResetPassword(ctx context.Context, actor Actor, id string) (string, error) {
	reservation, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}
	password, err := auth.NewBookingPassword()
	if err != nil {
		return "", fmt.Errorf("generate booking password: %w", err)
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash booking password: %w", err)
	}
	if err := s.reservations.UpdatePasswordHash(ctx, id, hash); err != nil {
		return "", err
	}
	s.publishReservation(ctx, events.EventReservationPasswordReset, actor.eventActor(), reservation, "")
	return password, nil
}

// ConnectionInfo returns the access values of a reservation, generating them
// when booking-time generation did not happen.
func (s *BookingService) ConnectionInfo(ctx context.Context, actor Actor, id string) (*domain.ConnectionInfo, error) {
	reservation, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status == domain.ReservationStatusCancelled {
		return nil, apperrors.NewPolicyViolation("reservation is cancelled", map[string]any{"reason": "terminal_status"})
	}

	info, err := s.connections.GetByReservation(ctx, id)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var resource *domain.Resource
	if reservation.ResourceID != nil {
		resource, err = s.resources.GetByID(ctx, *reservation.ResourceID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	info, err = s.buildConnectionInfo(ctx, reservation, resource)
	if err != nil {
		return nil, err
	}
	if err := s.connections.Create(ctx, info); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.connections.GetByReservation(ctx, id)
		}
		return nil, err
	}
	return info, nil
}

// Sweep runs the lifecycle sweeper once. Only one sweep runs at a time
// across processes; a sweep that finds the lock taken does nothing.
func (s *BookingService) Sweep(ctx context.Context) (booking.SweepResult, error) {
	release, err := s.lock(ctx, sweepLockKey, s.sweepLockTTL)
	if err != nil {
		if errors.Is(err, persistence.ErrLockHeld) {
			s.logger.Info("sweep already running elsewhere")
			return booking.SweepResult{}, nil
		}
		return booking.SweepResult{}, err
	}
	defer release()

	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return result, err
	}
	s.metrics.RecordSweep(len(result.Expired), len(result.Activated))
	for _, id := range result.Expired {
		s.publishTransition(ctx, events.EventReservationExpired, id, domain.ReservationStatusExpired)
	}
	for _, id := range result.Activated {
		s.publishTransition(ctx, events.EventReservationActivated, id, domain.ReservationStatusActive)
	}
	return result, nil
}

// lock takes a redis lease. Redis being unreachable degrades to running
// without the lease; the storage guard still protects slot overlap.
func (s *BookingService) lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	held, err := s.locker.AcquireLock(ctx, key, ttl)
	if err != nil {
		if errors.Is(err, persistence.ErrLockHeld) {
			return nil, err
		}
		s.logger.Warn("lock unavailable, continuing without it", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	return func() {
		// The request context may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := held.Release(releaseCtx); err != nil {
			s.logger.Warn("release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *BookingService) attachConnectionInfo(ctx context.Context, reservation *domain.Reservation, resource *domain.Resource) *domain.ConnectionInfo {
	info, err := s.buildConnectionInfo(ctx, reservation, resource)
	if err == nil {
		err = s.connections.Create(ctx, info)
	}
	if err != nil {
		s.logger.Warn("connection info not generated; it will be built on first read",
			zap.String("reservation_id", reservation.ID), zap.Error(err))
		return nil
	}
	return info
}

func (s *BookingService) buildConnectionInfo(ctx context.Context, reservation *domain.Reservation, resource *domain.Resource) (*domain.ConnectionInfo, error) {
	info := &domain.ConnectionInfo{ReservationID: reservation.ID, Values: map[string]any{}}
	if resource != nil {
		values, err := BuildConnectionValues(resource, s.newSecret)
		if err != nil {
			return nil, fmt.Errorf("build connection values: %w", err)
		}
		info.Values = values
	}
	if s.templates != nil {
		tpl, err := s.templates.ActiveForBookingType(ctx, reservation.BookingTypeID)
		switch {
		case err == nil:
			tplID := tpl.ID
			info.TemplateID = &tplID
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("load template: %w", err)
		}
	}
	return info, nil
}

func (s *BookingService) recordRejection(err error) {
	var rejection *booking.Rejection
	if errors.As(err, &rejection) {
		s.metrics.RecordRejection(string(rejection.Reason))
	}
}

func (s *BookingService) publishReservation(ctx context.Context, eventType events.EventType, actor events.Actor, reservation *domain.Reservation, old domain.ReservationStatus) {
	payload := events.NewReservationPayload(reservation)
	payload.OldStatus = old
	publish(ctx, s.dispatcher, s.logger, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TargetType: "reservation",
		TargetID:   reservation.ID,
		Actor:      actor,
		Timestamp:  s.clock.Now(),
		Payload:    payload,
	})
}

func (s *BookingService) publishTransition(ctx context.Context, eventType events.EventType, id string, status domain.ReservationStatus) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TargetType: "reservation",
		TargetID:   id,
		Actor:      events.SystemActor,
		Timestamp:  s.clock.Now(),
		Payload:    map[string]any{"status": status},
	})
}

func terminalStatusError(status domain.ReservationStatus) error {
	return apperrors.NewPolicyViolation("reservation already "+strings.ToLower(string(status)),
		map[string]any{"reason": "terminal_status", "status": status})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
