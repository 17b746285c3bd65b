package domain

import "time"

// ConnectionTemplate describes the fields shown to users of a booking type.
type ConnectionTemplate struct {
	ID            string
	Name          string
	Type          ResourceType
	Fields        map[string]any
	BookingTypeID *string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ConnectionInfo holds the per-reservation access values.
type ConnectionInfo struct {
	ID            string
	ReservationID string
	TemplateID    *string
	Values        map[string]any
	CreatedAt     time.Time
}
