package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/labbook/internal/domain"
	"github.com/spec-kit/labbook/internal/observability"
	apperrors "github.com/spec-kit/labbook/pkg/util/errorutil"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestHealthReady(t *testing.T) {
	healthy := pingerFunc(func(context.Context) error { return nil })
	broken := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	app := fiber.New()
	ok := NewHealthHandler("labbook", "test", map[string]Pinger{"postgres": healthy}, nil)
	bad := NewHealthHandler("labbook", "test", map[string]Pinger{"postgres": healthy, "redis": broken}, nil)
	app.Get("/ok", ok.Ready)
	app.Get("/bad", bad.Ready)
	app.Get("/live", ok.Live)

	status, body := get(t, app, "/ok")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body = get(t, app, "/bad")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "ok", details["postgres"])
	assert.Equal(t, "connection refused", details["redis"])

	status, body = get(t, app, "/live")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "labbook", body["service"])
}

func TestHealthMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.RecordBooking("created")
	app := fiber.New()
	app.Get("/metrics", NewHealthHandler("labbook", "test", nil, metrics).Metrics)

	status, body := get(t, app, "/metrics")
	assert.Equal(t, fiber.StatusOK, status)
	bookings := body["data"].(map[string]any)["bookings"].(map[string]any)
	assert.Equal(t, float64(1), bookings["created"])
}

func TestParseStatuses(t *testing.T) {
	statuses, err := parseStatuses(" upcoming, ACTIVE ")
	require.NoError(t, err)
	assert.Equal(t, []domain.ReservationStatus{domain.ReservationStatusUpcoming, domain.ReservationStatusActive}, statuses)

	statuses, err = parseStatuses("")
	require.NoError(t, err)
	assert.Nil(t, statuses)

	_, err = parseStatuses("active,pending")
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
}

func TestQueryHelpers(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		start, err := parseTimeQuery(c, "start_time")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		limit, offset := parsePaging(c)
		return c.JSON(fiber.Map{
			"start":  start.UTC().Format("15:04"),
			"limit":  limit,
			"offset": offset,
			"type":   optionalQuery(c, "booking_type_id"),
		})
	})

	status, body := get(t, app, "/?start_time=2030-03-04T12:30:00%2B02:00&limit=5&offset=-3&booking_type_id=lab")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "10:30", body["start"])
	assert.Equal(t, float64(5), body["limit"])
	assert.Equal(t, float64(0), body["offset"])
	assert.Equal(t, "lab", body["type"])

	status, body = get(t, app, "/")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, body["type"])

	status, _ = get(t, app, "/?start_time=tomorrow")
	assert.Equal(t, fiber.StatusBadRequest, status)
}
