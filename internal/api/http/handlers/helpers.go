package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/labbook/internal/api/dto"
	"github.com/spec-kit/labbook/internal/auth"
	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/service"
	apperrors "github.com/spec-kit/labbook/pkg/util/errorutil"
)

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return service.Actor{UserID: principal.UserID, Role: principal.Role}, nil
}

// parseBody decodes and validates a JSON payload.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func parsePaging(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func parseTimeQuery(c *fiber.Ctx, key string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("invalid "+key, map[string]any{key: "must be RFC3339"})
	}
	return t, nil
}

func parseStatuses(raw string) ([]domain.ReservationStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []domain.ReservationStatus
	for _, part := range strings.Split(raw, ",") {
		status := domain.ReservationStatus(strings.ToUpper(strings.TrimSpace(part)))
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
		}
		out = append(out, status)
	}
	return out, nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}
