package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/labbook/internal/api/http"
	"github.com/spec-kit/labbook/internal/api/http/handlers"
	"github.com/spec-kit/labbook/internal/auth"
	"github.com/spec-kit/labbook/internal/booking"
	"github.com/spec-kit/labbook/internal/config"
	"github.com/spec-kit/labbook/internal/events"
	"github.com/spec-kit/labbook/internal/observability"
	"github.com/spec-kit/labbook/internal/persistence"
	"github.com/spec-kit/labbook/internal/repository"
	"github.com/spec-kit/labbook/internal/service"
	"github.com/spec-kit/labbook/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	policy, err := booking.PolicyFromConfig(cfg.Booking)
	if err != nil {
		logger.Fatal("invalid booking policy", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	publisher, err := events.NewAMQPPublisher(cfg.AMQP, logger)
	if err != nil {
		logger.Fatal("failed to connect amqp", zap.Error(err))
	}
	defer publisher.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	resourceRepo := repository.NewResourceRepository(pool)
	bookingTypeRepo := repository.NewBookingTypeRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	connectionRepo := repository.NewConnectionInfoRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var forward events.EventHandler
	if publisher != nil {
		forward = publisher.Handle
	}
	worker.StartNotificationWorker(
		service.NewNotificationService(dispatcher, logger, forward),
		service.NewAuditService(dispatcher, auditRepo, logger),
	)

	validator := booking.NewValidator(booking.ValidatorDependencies{
		Types:        bookingTypeRepo,
		Resources:    resourceRepo,
		Reservations: reservationRepo,
		History:      reservationRepo,
		Policy:       policy,
		Logger:       logger,
	})
	sweeper := booking.NewSweeper(reservationRepo, booking.SystemClock, logger)

	bookingService := service.NewBookingService(service.BookingDependencies{
		ReservationRepo:    reservationRepo,
		BookingTypeRepo:    bookingTypeRepo,
		ResourceRepo:       resourceRepo,
		TemplateRepo:       templateRepo,
		ConnectionInfoRepo: connectionRepo,
		Validator:          validator,
		Sweeper:            sweeper,
		Locker:             redis,
		Dispatcher:         dispatcher,
		Metrics:            metrics,
		Logger:             logger,
		CommitAttempts:     cfg.Booking.CommitAttempts,
		UserLockTTL:        cfg.Booking.UserLockTTL(),
		SweepLockTTL:       cfg.Sweeper.LockTTL(),
		Passwords:          auth.NewPasswordHasher(cfg.Auth),
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		ResourceRepo:    resourceRepo,
		BookingTypeRepo: bookingTypeRepo,
		TemplateRepo:    templateRepo,
		UserRepo:        userRepo,
		AuditRepo:       auditRepo,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Locker:   redis,
		Logger:   logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Bookings:       handlers.NewBookingsHandler(bookingService, adminService),
		Admin:          handlers.NewAdminHandler(adminService, bookingService),
		AuthMiddleware: authMiddleware,
	})

	sweepDone := worker.StartSweepWorker(ctx, cfg.Sweeper.Interval(), bookingService.Sweep, logger)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	<-sweepDone
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
