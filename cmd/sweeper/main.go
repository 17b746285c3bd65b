// Command sweeper runs the reservation lifecycle sweep once. It is meant to
// be invoked by an external scheduler and exits non-zero on failure.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

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
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sweeper.LockTTL())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return 1
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		logger.Error("POSTGRES_DSN is required for the sweeper")
		return 1
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	publisher, err := events.NewAMQPPublisher(cfg.AMQP, logger)
	if err != nil {
		// Events are informational; the sweep itself must still run.
		logger.Warn("amqp unavailable", zap.Error(err))
		publisher = nil
	}
	defer publisher.Close()

	pool := pg.PoolHandle()
	reservationRepo := repository.NewReservationRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	var forward events.EventHandler
	if publisher != nil {
		forward = publisher.Handle
	}
	worker.StartNotificationWorker(
		service.NewNotificationService(dispatcher, logger, forward),
		service.NewAuditService(dispatcher, auditRepo, logger),
	)

	bookingService := service.NewBookingService(service.BookingDependencies{
		ReservationRepo: reservationRepo,
		Sweeper:         booking.NewSweeper(reservationRepo, booking.SystemClock, logger),
		Locker:          redis,
		Dispatcher:      dispatcher,
		Logger:          logger,
		SweepLockTTL:    cfg.Sweeper.LockTTL(),
	})

	start := time.Now()
	result, err := bookingService.Sweep(ctx)
	if err != nil {
		logger.Error("lifecycle sweep failed", zap.Error(err))
		return 1
	}
	logger.Info("lifecycle sweep finished",
		zap.Int("expired", len(result.Expired)),
		zap.Int("activated", len(result.Activated)),
		zap.Duration("took", time.Since(start)))
	return 0
}
