package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/labbook/internal/api/http/handlers"
	"github.com/spec-kit/labbook/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Bookings       *handlers.BookingsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Auth.Register)
	authGroup.Post("/users/login", cfg.Auth.Login)
	authGroup.Post("/setup", cfg.Auth.Setup)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	app.Get("/booking-types", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Bookings.ListBookingTypes)

	bookings := app.Group("/bookings", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	bookings.Get("/", cfg.Bookings.List)
	bookings.Post("/", cfg.Bookings.Create)
	bookings.Get("/availability", cfg.Bookings.Availability)
	bookings.Get("/:id", cfg.Bookings.Get)
	bookings.Delete("/:id", cfg.Bookings.Cancel)
	bookings.Post("/:id/verify", cfg.Bookings.Verify)
	bookings.Get("/:id/connection-info", cfg.Bookings.ConnectionInfo)

	app.Post("/internal/sweep", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Admin.Sweep)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/resources", cfg.Admin.ListResources)
	admin.Post("/resources", cfg.Admin.CreateResource)
	admin.Get("/resources/:id", cfg.Admin.GetResource)
	admin.Put("/resources/:id", cfg.Admin.UpdateResource)
	admin.Delete("/resources/:id", cfg.Admin.DeleteResource)

	admin.Get("/booking-types", cfg.Admin.ListBookingTypes)
	admin.Post("/booking-types", cfg.Admin.CreateBookingType)
	admin.Put("/booking-types/:id", cfg.Admin.UpdateBookingType)
	admin.Delete("/booking-types/:id", cfg.Admin.DeleteBookingType)
	admin.Get("/booking-types/:id/resources", cfg.Admin.ListTypeResources)
	admin.Post("/booking-types/:id/resources", cfg.Admin.AssignResource)
	admin.Delete("/booking-types/:id/resources/:resourceId", cfg.Admin.UnassignResource)

	admin.Get("/templates", cfg.Admin.ListTemplates)
	admin.Post("/templates", cfg.Admin.CreateTemplate)

	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Patch("/users/:id/role", cfg.Admin.SetUserRole)

	admin.Get("/bookings", cfg.Admin.ListBookings)
	admin.Patch("/bookings/:id/status", cfg.Admin.SetBookingStatus)
	admin.Post("/bookings/:id/reset-password", cfg.Admin.ResetBookingPassword)
	admin.Get("/audit-logs", cfg.Admin.ListAuditLogs)
}
