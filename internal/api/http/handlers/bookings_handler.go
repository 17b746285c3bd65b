package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/labbook/internal/api/dto"
	"github.com/spec-kit/labbook/internal/service"
)

// BookingsHandler manages user-facing reservation endpoints.
type BookingsHandler struct {
	bookings *service.BookingService
	catalog  *service.AdminService
}

// NewBookingsHandler constructs handler.
func NewBookingsHandler(bookings *service.BookingService, catalog *service.AdminService) *BookingsHandler {
	return &BookingsHandler{bookings: bookings, catalog: catalog}
}

// ListBookingTypes GET /booking-types. Only active types are shown.
func (h *BookingsHandler) ListBookingTypes(c *fiber.Ctx) error {
	items, err := h.catalog.ListBookingTypes(c.UserContext(), true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBookingTypeList(items)})
}

// Create POST /bookings.
func (h *BookingsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateBookingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.bookings.Create(c.UserContext(), actor, service.CreateBookingInput{
		BookingTypeID: req.BookingTypeID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateBookingResponse{
		Reservation:    dto.NewReservationResponse(result.Reservation),
		Password:       result.Password,
		ConnectionInfo: dto.NewConnectionInfoResponse(result.Connection),
	}})
}

// List GET /bookings.
func (h *BookingsHandler) List(c *fiber.Ctx) error {
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

// Availability GET /bookings/availability.
func (h *BookingsHandler) Availability(c *fiber.Ctx) error {
	start, err := parseTimeQuery(c, "start_time")
	if err != nil {
		return err
	}
	end, err := parseTimeQuery(c, "end_time")
	if err != nil {
		return err
	}
	query := dto.AvailabilityQuery{BookingTypeID: c.Query("booking_type_id"), StartTime: start, EndTime: end}
	if err := dto.Validate(&query); err != nil {
		return err
	}
	result, err := h.bookings.Availability(c.UserContext(), query.BookingTypeID, query.StartTime, query.EndTime)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AvailabilityResponse{Available: result.Available, ResourceID: result.ResourceID}})
}

// Get GET /bookings/:id.
func (h *BookingsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	reservation, err := h.bookings.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReservationResponse(reservation)})
}

// Cancel DELETE /bookings/:id.
func (h *BookingsHandler) Cancel(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	reservation, err := h.bookings.Cancel(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReservationResponse(reservation)})
}

// Verify POST /bookings/:id/verify.
func (h *BookingsHandler) Verify(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.VerifyPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ok, err := h.bookings.VerifyPassword(c.UserContext(), actor, c.Params("id"), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"valid": ok}})
}

// ConnectionInfo GET /bookings/:id/connection-info.
func (h *BookingsHandler) ConnectionInfo(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	info, err := h.bookings.ConnectionInfo(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewConnectionInfoResponse(info)})
}

func listInput(c *fiber.Ctx) (service.ListBookingsInput, error) {
	statuses, err := parseStatuses(c.Query("status"))
	if err != nil {
		return service.ListBookingsInput{}, err
	}
	limit, offset := parsePaging(c)
	return service.ListBookingsInput{
		UserID:        optionalQuery(c, "user_id"),
		BookingTypeID: optionalQuery(c, "booking_type_id"),
		Statuses:      statuses,
		Limit:         limit,
		Offset:        offset,
	}, nil
}
