package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/clock"
	"github.com/spec-kit/attendance-service/internal/observability"
)

// Sweeper removes expired attendance tokens.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

// TokenSweeper runs Sweep on a fixed interval until its context ends.
type TokenSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	clock    clock.Clock
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewTokenSweeper builds the worker. A non-positive interval defaults to two minutes.
func NewTokenSweeper(sweeper Sweeper, interval time.Duration, clk clock.Clock, metrics *observability.Metrics, logger *zap.Logger) *TokenSweeper {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSweeper{
		sweeper:  sweeper,
		interval: interval,
		clock:    clk,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. Failures are logged and the next tick
// tries again.
func (w *TokenSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("token sweeper started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("token sweeper stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns the number of removed tokens.
func (w *TokenSweeper) RunOnce(ctx context.Context) int64 {
	removed, err := w.sweeper.Sweep(ctx, w.clock.Now())
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("token sweep failed", zap.Error(err))
		}
		return 0
	}
	w.metrics.RecordSweep(removed)
	if removed > 0 {
		w.logger.Debug("expired attendance tokens removed", zap.Int64("count", removed))
	}
	return removed
}
