package aggregation

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Ticker is the part of Coordinator the scheduler drives.
type Ticker interface {
	PerformThenCleanup(ctx context.Context) (TickReport, error)
}

// Scheduler invokes aggregation followed by cleanup on a fixed interval.
// It is stateless: each tick works off whatever the ledger holds.
type Scheduler struct {
	interval        time.Duration
	coordinator     Ticker
	shutdownTimeout time.Duration
}

// NewScheduler creates a scheduler ticking every interval.
func NewScheduler(interval time.Duration, coordinator Ticker) *Scheduler {
	return &Scheduler{
		interval:        interval,
		coordinator:     coordinator,
		shutdownTimeout: 30 * time.Second,
	}
}

// Start runs one tick immediately to catch up with any backlog, then one per
// interval until ctx is cancelled, and a final tick on shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting aggregation scheduler", "interval", s.interval)

	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()

			slog.Info("[Scheduler] Running final tick before shutdown...")
			s.tick(shutdownCtx)
			slog.Info("[Scheduler] Final tick complete")

			return nil
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.coordinator.PerformThenCleanup(ctx)
	switch {
	case errors.Is(err, ErrTickInProgress):
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Info("[Scheduler] Tick interrupted", "batches", len(report.Batches))
	case err != nil:
		slog.Error("[Scheduler] Tick failed", "error", err, "batches", len(report.Batches))
	default:
		slog.Info("[Scheduler] Tick complete",
			"batches", len(report.Batches),
			"purged", report.Purged,
		)
	}
}
