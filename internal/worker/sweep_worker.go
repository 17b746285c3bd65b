package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/booking"
)

// SweepFunc runs one lifecycle sweep.
type SweepFunc func(ctx context.Context) (booking.SweepResult, error)

// StartSweepWorker runs sweep every interval until ctx is done. It returns a
// channel that is closed once the loop has stopped. A non-positive interval
// starts nothing and returns an already closed channel.
func StartSweepWorker(ctx context.Context, interval time.Duration, sweep SweepFunc, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 || sweep == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("sweep worker started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("sweep worker stopped")
				return
			case <-ticker.C:
				if _, err := sweep(ctx); err != nil && ctx.Err() == nil {
					logger.Error("lifecycle sweep failed", zap.Error(err))
				}
			}
		}
	}()
	return done
}
