package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/labbook/internal/booking"
)

func TestSweepWorkerRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := StartSweepWorker(ctx, 5*time.Millisecond, func(context.Context) (booking.SweepResult, error) {
		if runs.Add(1)%2 == 0 {
			return booking.SweepResult{}, errors.New("transient")
		}
		return booking.SweepResult{}, nil
	}, zap.NewNop())

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep worker did not stop")
	}
}

func TestSweepWorkerDisabled(t *testing.T) {
	done := StartSweepWorker(context.Background(), 0, func(context.Context) (booking.SweepResult, error) {
		t.Fatal("sweep must not run")
		return booking.SweepResult{}, nil
	}, zap.NewNop())

	_, open := <-done
	assert.False(t, open)
}
