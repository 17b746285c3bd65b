package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/events"
	"github.com/spec-kit/labbook/internal/repository"
	apperrors "github.com/spec-kit/labbook/pkg/util/errorutil"
)

// AdminService manages the catalogue: resources, booking types, their
// mapping, connection templates and user roles.
type AdminService struct {
	resources    repository.ResourceRepository
	bookingTypes repository.BookingTypeRepository
	templates    repository.TemplateRepository
	users        repository.UserRepository
	audit        repository.AuditRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// AdminDependencies bundles repositories for the admin service.
type AdminDependencies struct {
	ResourceRepo    repository.ResourceRepository
	BookingTypeRepo repository.BookingTypeRepository
	TemplateRepo    repository.TemplateRepository
	UserRepo        repository.UserRepository
	AuditRepo       repository.AuditRepository
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// ResourceInput describes a resource create or update.
type ResourceInput struct {
	Name               string
	Description        string
	Type               domain.ResourceType
	Active             bool
	Status             domain.ResourceStatus
	ConnectionMetadata map[string]any
}

// BookingTypeInput describes a booking type create or update.
type BookingTypeInput struct {
	Name             string
	Description      string
	MaxDurationHours *int
	Active           bool
}

// TemplateInput describes a connection template.
type TemplateInput struct {
	Name          string
	Type          domain.ResourceType
	Fields        map[string]any
	BookingTypeID *string
	Active        bool
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		resources:    deps.ResourceRepo,
		bookingTypes: deps.BookingTypeRepo,
		templates:    deps.TemplateRepo,
		users:        deps.UserRepo,
		audit:        deps.AuditRepo,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
	}
}

// ListResources returns every resource.
func (s *AdminService) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return s.resources.List(ctx)
}

// GetResource returns one resource.
func (s *AdminService) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	resource, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "resource", id)
	}
	return resource, nil
}

// CreateResource adds a resource. Status defaults to ONLINE.
func (s *AdminService) CreateResource(ctx context.Context, actor Actor, input ResourceInput) (*domain.Resource, error) {
	resource := &domain.Resource{}
	if err := applyResourceInput(resource, input); err != nil {
		return nil, err
	}
	if err := s.resources.Create(ctx, resource); err != nil {
		return nil, err
	}
	s.publishChange(ctx, actor, events.EventResourceChanged, "resource", resource.ID, "create",
		map[string]any{"name": resource.Name, "status": resource.Status})
	return resource, nil
}

// UpdateResource replaces a resource's attributes.
func (s *AdminService) UpdateResource(ctx context.Context, actor Actor, id string, input ResourceInput) (*domain.Resource, error) {
	resource, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyResourceInput(resource, input); err != nil {
		return nil, err
	}
	if err := s.resources.Update(ctx, resource); err != nil {
		return nil, notFound(err, "resource", id)
	}
	s.publishChange(ctx, actor, events.EventResourceChanged, "resource", id, "update",
		map[string]any{"active": resource.Active, "status": resource.Status})
	return resource, nil
}

// DeleteResource removes a resource that no reservation references.
func (s *AdminService) DeleteResource(ctx context.Context, actor Actor, id string) error {
	if err := s.resources.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return apperrors.NewConflict("resource is referenced by reservations; deactivate it instead",
				map[string]any{"id": id})
		}
		return notFound(err, "resource", id)
	}
	s.publishChange(ctx, actor, events.EventResourceChanged, "resource", id, "delete", nil)
	return nil
}

// ListBookingTypes returns booking types, optionally only the active ones.
func (s *AdminService) ListBookingTypes(ctx context.Context, activeOnly bool) ([]domain.BookingType, error) {
	return s.bookingTypes.List(ctx, activeOnly)
}

// GetBookingType returns one booking type.
func (s *AdminService) GetBookingType(ctx context.Context, id string) (*domain.BookingType, error) {
	bookingType, err := s.bookingTypes.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "booking type", id)
	}
	return bookingType, nil
}

// CreateBookingType adds a booking type.
func (s *AdminService) CreateBookingType(ctx context.Context, actor Actor, input BookingTypeInput) (*domain.BookingType, error) {
	bookingType := &domain.BookingType{}
	if err := applyBookingTypeInput(bookingType, input); err != nil {
		return nil, err
	}
	if err := s.bookingTypes.Create(ctx, bookingType); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("booking type name already used", map[string]any{"name": bookingType.Name})
		}
		return nil, err
	}
	s.publishChange(ctx, actor, events.EventBookingTypeChanged, "booking_type", bookingType.ID, "create",
		map[string]any{"name": bookingType.Name})
	return bookingType, nil
}

// UpdateBookingType replaces a booking type's attributes.
func (s *AdminService) UpdateBookingType(ctx context.Context, actor Actor, id string, input BookingTypeInput) (*domain.BookingType, error) {
	bookingType, err := s.GetBookingType(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyBookingTypeInput(bookingType, input); err != nil {
		return nil, err
	}
	if err := s.bookingTypes.Update(ctx, bookingType); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("booking type name already used", map[string]any{"name": bookingType.Name})
		}
		return nil, notFound(err, "booking type", id)
	}
	s.publishChange(ctx, actor, events.EventBookingTypeChanged, "booking_type", id, "update",
		map[string]any{"active": bookingType.Active, "max_duration_hours": bookingType.MaxDurationHours})
	return bookingType, nil
}

// DeleteBookingType removes a booking type without reservations.
func (s *AdminService) DeleteBookingType(ctx context.Context, actor Actor, id string) error {
	if err := s.bookingTypes.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return apperrors.NewConflict("booking type is referenced by reservations; deactivate it instead",
				map[string]any{"id": id})
		}
		return notFound(err, "booking type", id)
	}
	s.publishChange(ctx, actor, events.EventBookingTypeChanged, "booking_type", id, "delete", nil)
	return nil
}

// ListTypeResources returns the resources mapped to a booking type in
// allocation order.
func (s *AdminService) ListTypeResources(ctx context.Context, bookingTypeID string) ([]domain.Resource, error) {
	if _, err := s.GetBookingType(ctx, bookingTypeID); err != nil {
		return nil, err
	}
	return s.resources.ListForType(ctx, bookingTypeID)
}

// AssignResource appends a resource to a booking type's allocation order.
func (s *AdminService) AssignResource(ctx context.Context, actor Actor, bookingTypeID, resourceID string) error {
	if err := s.bookingTypes.AssignResource(ctx, bookingTypeID, resourceID); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return apperrors.NewConflict("resource already assigned", map[string]any{"resource_id": resourceID})
		case errors.Is(err, repository.ErrReferenced):
			return apperrors.NewNotFound("booking type or resource", map[string]any{
				"booking_type_id": bookingTypeID, "resource_id": resourceID,
			})
		}
		return err
	}
	s.publishChange(ctx, actor, events.EventBookingTypeChanged, "booking_type", bookingTypeID, "assign_resource",
		map[string]any{"resource_id": resourceID})
	return nil
}

// UnassignResource removes a resource from a booking type.
func (s *AdminService) UnassignResource(ctx context.Context, actor Actor, bookingTypeID, resourceID string) error {
	if err := s.bookingTypes.UnassignResource(ctx, bookingTypeID, resourceID); err != nil {
		return notFound(err, "resource assignment", resourceID)
	}
	s.publishChange(ctx, actor, events.EventBookingTypeChanged, "booking_type", bookingTypeID, "unassign_resource",
		map[string]any{"resource_id": resourceID})
	return nil
}

// ListTemplates returns every connection template.
func (s *AdminService) ListTemplates(ctx context.Context) ([]domain.ConnectionTemplate, error) {
	return s.templates.List(ctx)
}

// CreateTemplate adds a connection template.
func (s *AdminService) CreateTemplate(ctx context.Context, actor Actor, input TemplateInput) (*domain.ConnectionTemplate, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid template type", map[string]any{"type": input.Type})
	}
	template := &domain.ConnectionTemplate{
		Name:          name,
		Type:          input.Type,
		Fields:        input.Fields,
		BookingTypeID: input.BookingTypeID,
		Active:        input.Active,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, apperrors.NewNotFound("booking type", map[string]any{"id": input.BookingTypeID})
		}
		return nil, err
	}
	s.publishChange(ctx, actor, events.EventBookingTypeChanged, "connection_template", template.ID, "create",
		map[string]any{"name": template.Name})
	return template, nil
}

// ListUsers returns accounts page by page.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.users.List(ctx, clampLimit(limit), offset)
}

// SetUserRole changes a user's role. An admin cannot demote themselves,
// which keeps at least one admin around.
func (s *AdminService) SetUserRole(ctx context.Context, actor Actor, userID string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	if userID == actor.UserID && role != domain.RoleAdmin {
		return nil, apperrors.NewPolicyViolation("admins cannot demote themselves", map[string]any{"reason": "self_demotion"})
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFound(err, "user", userID)
	}
	s.publishChange(ctx, actor, events.EventUserChanged, "user", userID, "set_role", map[string]any{"role": role})
	return user, nil
}

// ListAuditLogs returns the newest audit entries first.
func (s *AdminService) ListAuditLogs(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	return s.audit.List(ctx, clampLimit(limit), offset)
}

func (s *AdminService) publishChange(ctx context.Context, actor Actor, eventType events.EventType, targetType, targetID, operation string, fields map[string]any) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TargetType: targetType,
		TargetID:   targetID,
		Actor:      actor.eventActor(),
		Timestamp:  time.Now().UTC(),
		Payload:    events.ChangePayload{Operation: operation, Fields: fields},
	})
}

func applyResourceInput(resource *domain.Resource, input ResourceInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	kind := input.Type
	if kind == "" {
		kind = domain.ResourceTypeSSH
	}
	if !kind.Valid() {
		return apperrors.NewValidationError("invalid resource type", map[string]any{"type": input.Type})
	}
	status := input.Status
	if status == "" {
		status = domain.ResourceStatusOnline
	}
	if !status.Valid() {
		return apperrors.NewValidationError("invalid resource status", map[string]any{"status": input.Status})
	}
	resource.Name = name
	resource.Description = strings.TrimSpace(input.Description)
	resource.Type = kind
	resource.Active = input.Active
	resource.Status = status
	resource.ConnectionMetadata = input.ConnectionMetadata
	return nil
}

func applyBookingTypeInput(bookingType *domain.BookingType, input BookingTypeInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	if input.MaxDurationHours != nil && *input.MaxDurationHours <= 0 {
		return apperrors.NewValidationError("max duration must be positive", map[string]any{
			"max_duration_hours": *input.MaxDurationHours,
		})
	}
	bookingType.Name = name
	bookingType.Description = strings.TrimSpace(input.Description)
	bookingType.MaxDurationHours = input.MaxDurationHours
	bookingType.Active = input.Active
	return nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(what, map[string]any{"id": id})
	}
	return err
}
