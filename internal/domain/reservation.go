package domain

import "time"

// ReservationStatus enumerates lifecycle states for reservations.
type ReservationStatus string

const (
	ReservationStatusUpcoming  ReservationStatus = "UPCOMING"
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// LiveReservationStatuses are the non-terminal states. Only reservations in
// these states hold a slot on a resource.
var LiveReservationStatuses = []ReservationStatus{
	ReservationStatusUpcoming,
	ReservationStatusActive,
}

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationStatusCompleted, ReservationStatusExpired, ReservationStatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusUpcoming, ReservationStatusActive, ReservationStatusCompleted,
		ReservationStatusExpired, ReservationStatusCancelled:
		return true
	}
	return false
}

// Reservation is a granted half-open interval [StartTime, EndTime) on a
// booking type, and on a concrete resource when resources are exclusive.
type Reservation struct {
	ID            string
	UserID        string
	BookingTypeID string
	ResourceID    *string
	// LockKey is the exclusivity key the storage guard is keyed on.
	LockKey      string
	StartTime    time.Time
	EndTime      time.Time
	GuardUntil   time.Time
	Status       ReservationStatus
	AccessCode   string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
