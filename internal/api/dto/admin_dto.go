package dto

import (
	"time"

	"github.com/spec-kit/labbook/internal/domain"
)

// ResourceRequest payload for create and update.
type ResourceRequest struct {
	Name               string                `json:"name" validate:"required,max=200"`
	Description        string                `json:"description" validate:"max=2000"`
	Type               domain.ResourceType   `json:"resource_type" validate:"omitempty,oneof=SSH RDP WEB_URL VPN API_KEY"`
	Active             *bool                 `json:"is_active"`
	Status             domain.ResourceStatus `json:"status" validate:"omitempty,oneof=ONLINE OFFLINE MAINTENANCE"`
	ConnectionMetadata map[string]any        `json:"connection_metadata"`
}

// ResourceResponse is the admin view of a resource.
type ResourceResponse struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	Description        string                `json:"description"`
	Type               domain.ResourceType   `json:"resource_type"`
	Active             bool                  `json:"is_active"`
	Status             domain.ResourceStatus `json:"status"`
	ConnectionMetadata map[string]any        `json:"connection_metadata"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// NewResourceResponse maps a domain resource.
func NewResourceResponse(r *domain.Resource) ResourceResponse {
	return ResourceResponse{
		ID:                 r.ID,
		Name:               r.Name,
		Description:        r.Description,
		Type:               r.Type,
		Active:             r.Active,
		Status:             r.Status,
		ConnectionMetadata: r.ConnectionMetadata,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// NewResourceList maps a slice of resources.
func NewResourceList(items []domain.Resource) []ResourceResponse {
	out := make([]ResourceResponse, 0, len(items))
	for i := range items {
		out = append(out, NewResourceResponse(&items[i]))
	}
	return out
}

// BookingTypeRequest payload for create and update.
type BookingTypeRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Description      string `json:"description" validate:"max=2000"`
	MaxDurationHours *int   `json:"max_duration_hours" validate:"omitempty,min=1,max=720"`
	Active           *bool  `json:"is_active"`
}

// BookingTypeResponse is the public view of a booking type.
type BookingTypeResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	MaxDurationHours *int      `json:"max_duration_hours"`
	Active           bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewBookingTypeResponse maps a domain booking type.
func NewBookingTypeResponse(b *domain.BookingType) BookingTypeResponse {
	return BookingTypeResponse{
		ID:               b.ID,
		Name:             b.Name,
		Description:      b.Description,
		MaxDurationHours: b.MaxDurationHours,
		Active:           b.Active,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// NewBookingTypeList maps a slice of booking types.
func NewBookingTypeList(items []domain.BookingType) []BookingTypeResponse {
	out := make([]BookingTypeResponse, 0, len(items))
	for i := range items {
		out = append(out, NewBookingTypeResponse(&items[i]))
	}
	return out
}

// AssignResourceRequest payload.
type AssignResourceRequest struct {
	ResourceID string `json:"resource_id" validate:"required,uuid"`
}

// TemplateRequest payload.
type TemplateRequest struct {
	Name          string              `json:"name" validate:"required,max=200"`
	Type          domain.ResourceType `json:"template_type" validate:"required,oneof=SSH RDP WEB_URL VPN API_KEY"`
	Fields        map[string]any      `json:"fields"`
	BookingTypeID *string             `json:"booking_type_id" validate:"omitempty,uuid"`
	Active        *bool               `json:"is_active"`
}

// TemplateResponse is the admin view of a connection template.
type TemplateResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Type          domain.ResourceType `json:"template_type"`
	Fields        map[string]any      `json:"fields"`
	BookingTypeID *string             `json:"booking_type_id"`
	Active        bool                `json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NewTemplateResponse maps a domain template.
func NewTemplateResponse(t *domain.ConnectionTemplate) TemplateResponse {
	return TemplateResponse{
		ID:            t.ID,
		Name:          t.Name,
		Type:          t.Type,
		Fields:        t.Fields,
		BookingTypeID: t.BookingTypeID,
		Active:        t.Active,
		CreatedAt:     t.CreatedAt,
	}
}

// AuditEntryResponse is one action log row.
type AuditEntryResponse struct {
	ID         string         `json:"id"`
	ActorID    *string        `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewAuditEntryResponse maps a domain audit entry.
func NewAuditEntryResponse(e *domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
}

// BoolOr returns *b, or fallback when b is nil.
func BoolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
