package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/labbook/internal/api/dto"
	"github.com/spec-kit/labbook/internal/service"
)

// AdminHandler exposes catalogue management and reservation overrides.
type AdminHandler struct {
	admin    *service.AdminService
	bookings *service.BookingService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService, bookings *service.BookingService) *AdminHandler {
	return &AdminHandler{admin: admin, bookings: bookings}
}

// ListResources GET /admin/resources.
func (h *AdminHandler) ListResources(c *fiber.Ctx) error {
	items, err := h.admin.ListResources(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResourceList(items)})
}

// GetResource GET /admin/resources/:id.
func (h *AdminHandler) GetResource(c *fiber.Ctx) error {
	resource, err := h.admin.GetResource(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResourceResponse(resource)})
}

// CreateResource POST /admin/resources.
func (h *AdminHandler) CreateResource(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ResourceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	resource, err := h.admin.CreateResource(c.UserContext(), actor, resourceInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewResourceResponse(resource)})
}

// UpdateResource PUT /admin/resources/:id.
func (h *AdminHandler) UpdateResource(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ResourceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	resource, err := h.admin.UpdateResource(c.UserContext(), actor, c.Params("id"), resourceInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResourceResponse(resource)})
}

// DeleteResource DELETE /admin/resources/:id.
func (h *AdminHandler) DeleteResource(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteResource(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListBookingTypes GET /admin/booking-types, including inactive ones.
func (h *AdminHandler) ListBookingTypes(c *fiber.Ctx) error {
	items, err := h.admin.ListBookingTypes(c.UserContext(), false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBookingTypeList(items)})
}

// CreateBookingType POST /admin/booking-types.
func (h *AdminHandler) CreateBookingType(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.BookingTypeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	bookingType, err := h.admin.CreateBookingType(c.UserContext(), actor, bookingTypeInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewBookingTypeResponse(bookingType)})
}

// UpdateBookingType PUT /admin/booking-types/:id.
func (h *AdminHandler) UpdateBookingType(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.BookingTypeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	bookingType, err := h.admin.UpdateBookingType(c.UserContext(), actor, c.Params("id"), bookingTypeInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBookingTypeResponse(bookingType)})
}

// DeleteBookingType DELETE /admin/booking-types/:id.
func (h *AdminHandler) DeleteBookingType(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteBookingType(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListTypeResources GET /admin/booking-types/:id/resources.
func (h *AdminHandler) ListTypeResources(c *fiber.Ctx) error {
	items, err := h.admin.ListTypeResources(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResourceList(items)})
}

// AssignResource POST /admin/booking-types/:id/resources.
func (h *AdminHandler) AssignResource(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignResourceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.admin.AssignResource(c.UserContext(), actor, c.Params("id"), req.ResourceID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UnassignResource DELETE /admin/booking-types/:id/resources/:resourceId.
func (h *AdminHandler) UnassignResource(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.admin.UnassignResource(c.UserContext(), actor, c.Params("id"), c.Params("resourceId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListTemplates GET /admin/templates.
func (h *AdminHandler) ListTemplates(c *fiber.Ctx) error {
	items, err := h.admin.ListTemplates(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.TemplateResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewTemplateResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateTemplate POST /admin/templates.
func (h *AdminHandler) CreateTemplate(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TemplateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	template, err := h.admin.CreateTemplate(c.UserContext(), actor, service.TemplateInput{
		Name:          req.Name,
		Type:          req.Type,
		Fields:        req.Fields,
		BookingTypeID: req.BookingTypeID,
		Active:        dto.BoolOr(req.Active, true),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTemplateResponse(template)})
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	limit, offset := parsePaging(c)
	users, err := h.admin.ListUsers(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SetUserRole PATCH /admin/users/:id/role.
func (h *AdminHandler) SetUserRole(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SetUserRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.admin.SetUserRole(c.UserContext(), actor, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListBookings GET /admin/bookings.
func (h *AdminHandler) ListBookings(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	input, err := listInput(c)
	if err != nil {
		return err
	}
	items, err := h.bookings.List(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReservationList(items)})
}

// SetBookingStatus PATCH /admin/bookings/:id/status.
func (h *AdminHandler) SetBookingStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SetStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reservation, err := h.bookings.SetStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReservationResponse(reservation)})
}

// ResetBookingPassword POST /admin/bookings/:id/reset-password.
func (h *AdminHandler) ResetBookingPassword(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	password, err := h.bookings.ResetPassword(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"password": password}})
}

// ListAuditLogs GET /admin/audit-logs.
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	limit, offset := parsePaging(c)
	entries, err := h.admin.ListAuditLogs(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, dto.NewAuditEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Sweep POST /internal/sweep runs the lifecycle sweeper once.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	result, err := h.bookings.Sweep(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"expired":   len(result.Expired),
		"activated": len(result.Activated),
	}})
}

func resourceInput(req dto.ResourceRequest) service.ResourceInput {
	return service.ResourceInput{
		Name:               req.Name,
		Description:        req.Description,
		Type:               req.Type,
		Active:             dto.BoolOr(req.Active, true),
		Status:             req.Status,
		ConnectionMetadata: req.ConnectionMetadata,
	}
}

func bookingTypeInput(req dto.BookingTypeRequest) service.BookingTypeInput {
	return service.BookingTypeInput{
		Name:             req.Name,
		Description:      req.Description,
		MaxDurationHours: req.MaxDurationHours,
		Active:           dto.BoolOr(req.Active, true),
	}
}

