package dto

import (
	"time"

	"github.com/spec-kit/labbook/internal/domain"
)

// CreateBookingRequest payload.
type CreateBookingRequest struct {
	BookingTypeID string    `json:"booking_type_id" validate:"required,uuid"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"required"`
}

// AvailabilityQuery is parsed from the query string.
type AvailabilityQuery struct {
	BookingTypeID string    `json:"booking_type_id" validate:"required,uuid"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"required"`
}

// VerifyPasswordRequest payload.
type VerifyPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// SetStatusRequest payload for the admin override.
type SetStatusRequest struct {
	Status domain.ReservationStatus `json:"status" validate:"required,oneof=UPCOMING ACTIVE COMPLETED CANCELLED"`
}

// ReservationResponse is the public view of a reservation. The password
// hash never leaves the service.
type ReservationResponse struct {
	ID            string                   `json:"id"`
	UserID        string                   `json:"user_id"`
	BookingTypeID string                   `json:"booking_type_id"`
	ResourceID    *string                  `json:"resource_id"`
	StartTime     time.Time                `json:"start_time"`
	EndTime       time.Time                `json:"end_time"`
	Status        domain.ReservationStatus `json:"status"`
	AccessCode    string                   `json:"access_code"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// NewReservationResponse maps a domain reservation.
func NewReservationResponse(r *domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		BookingTypeID: r.BookingTypeID,
		ResourceID:    r.ResourceID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        r.Status,
		AccessCode:    r.AccessCode,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// NewReservationList maps a slice of reservations.
func NewReservationList(items []domain.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(items))
	for i := range items {
		out = append(out, NewReservationResponse(&items[i]))
	}
	return out
}

// CreateBookingResponse adds the one-time password to the reservation.
type CreateBookingResponse struct {
	Reservation    ReservationResponse     `json:"reservation"`
	Password       string                  `json:"password"`
	ConnectionInfo *ConnectionInfoResponse `json:"connection_info,omitempty"`
}

// AvailabilityResponse answers an availability query.
type AvailabilityResponse struct {
	Available  bool    `json:"available"`
	ResourceID *string `json:"resource_id"`
}

// ConnectionInfoResponse carries a reservation's access values.
type ConnectionInfoResponse struct {
	ReservationID string         `json:"reservation_id"`
	TemplateID    *string        `json:"template_id"`
	Values        map[string]any `json:"values"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewConnectionInfoResponse maps a domain connection info. It returns nil
// for nil input.
func NewConnectionInfoResponse(info *domain.ConnectionInfo) *ConnectionInfoResponse {
	if info == nil {
		return nil
	}
	return &ConnectionInfoResponse{
		ReservationID: info.ReservationID,
		TemplateID:    info.TemplateID,
		Values:        info.Values,
		CreatedAt:     info.CreatedAt,
	}
}
