package events

import (
	"time"

	"github.com/spec-kit/labbook/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReservationCreated        EventType = "reservation_created"
	EventReservationCancelled      EventType = "reservation_cancelled"
	EventReservationActivated      EventType = "reservation_activated"
	EventReservationExpired        EventType = "reservation_expired"
	EventReservationStatusOverride EventType = "reservation_status_overridden"
	EventReservationPasswordReset  EventType = "reservation_password_reset"
	EventResourceChanged           EventType = "resource_changed"
	EventBookingTypeChanged        EventType = "booking_type_changed"
	EventUserChanged               EventType = "user_changed"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventReservationCreated,
	EventReservationCancelled,
	EventReservationActivated,
	EventReservationExpired,
	EventReservationStatusOverride,
	EventReservationPasswordReset,
	EventResourceChanged,
	EventBookingTypeChanged,
	EventUserChanged,
}

// Actor identifies who caused an event. A nil UserID means the system.
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// SystemActor is used for sweeper-driven transitions.
var SystemActor = Actor{}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TargetType string      `json:"target_type"`
	TargetID   string      `json:"target_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// ReservationPayload describes the reservation an event refers to.
type ReservationPayload struct {
	UserID        string                   `json:"user_id"`
	BookingTypeID string                   `json:"booking_type_id"`
	ResourceID    *string                  `json:"resource_id,omitempty"`
	StartTime     time.Time                `json:"start_time"`
	EndTime       time.Time                `json:"end_time"`
	Status        domain.ReservationStatus `json:"status"`
	OldStatus     domain.ReservationStatus `json:"old_status,omitempty"`
}

// NewReservationPayload builds a payload from a reservation.
func NewReservationPayload(r *domain.Reservation) ReservationPayload {
	return ReservationPayload{
		UserID:        r.UserID,
		BookingTypeID: r.BookingTypeID,
		ResourceID:    r.ResourceID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        r.Status,
	}
}

// ChangePayload describes an admin mutation.
type ChangePayload struct {
	Operation string         `json:"operation"`
	Fields    map[string]any `json:"fields,omitempty"`
}
