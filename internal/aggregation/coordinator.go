package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage"
)

const (
	defaultBatchSize         = 1000
	defaultWorkerCount       = 10
	defaultRunTimeout        = 30 * time.Second
	defaultRetention         = 7 * 24 * time.Hour
	defaultMaxBatchesPerTick = 100
)

// ErrTickInProgress is returned when PerformThenCleanup is invoked while a
// previous invocation is still running.
var ErrTickInProgress = errors.New("aggregation tick already in progress")

// PairUpdater is the part of Updater the coordinator depends on.
type PairUpdater interface {
	Update(ctx context.Context, learnerID, courseID string, opts UpdateOptions) (Result, error)
}

// CoordinatorOptions controls batch throughput.
type CoordinatorOptions struct {
	BatchSize         int
	WorkerCount       int
	RunTimeout        time.Duration
	Retention         time.Duration
	MaxBatchesPerTick int
}

// DefaultCoordinatorOptions returns safe defaults for scheduled processing.
func DefaultCoordinatorOptions() CoordinatorOptions {
	return CoordinatorOptions{
		BatchSize:         defaultBatchSize,
		WorkerCount:       defaultWorkerCount,
		RunTimeout:        defaultRunTimeout,
		Retention:         defaultRetention,
		MaxBatchesPerTick: defaultMaxBatchesPerTick,
	}
}

func (o CoordinatorOptions) normalized() CoordinatorOptions {
	n := o
	if n.BatchSize <= 0 {
		n.BatchSize = defaultBatchSize
	}
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	if n.RunTimeout <= 0 {
		n.RunTimeout = defaultRunTimeout
	}
	if n.Retention <= 0 {
		n.Retention = defaultRetention
	}
	if n.MaxBatchesPerTick <= 0 {
		n.MaxBatchesPerTick = defaultMaxBatchesPerTick
	}
	return n
}

// PairFailure records one pair whose run failed in a batch.
type PairFailure struct {
	Pair completion.Pair
	Err  error
}

// BatchReport summarises one PerformAggregation call.
type BatchReport struct {
	Selected  int
	Succeeded int
	Discarded int
	Failed    int
	Resolved  int64
	Failures  []PairFailure
}

// TickReport summarises one PerformThenCleanup call.
type TickReport struct {
	Batches []BatchReport
	Purged  int64
}

// Coordinator drains the staleness ledger in bounded, deduplicated batches.
type Coordinator struct {
	updater PairUpdater
	ledger  storage.StalenessLedger
	metrics *Metrics
	opts    CoordinatorOptions
	nowFn   func() time.Time

	tickMu sync.Mutex
}

// NewCoordinator wires a Coordinator. A nil metrics records nothing.
func NewCoordinator(updater PairUpdater, ledger storage.StalenessLedger, metrics *Metrics, opts CoordinatorOptions) *Coordinator {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &Coordinator{
		updater: updater,
		ledger:  ledger,
		metrics: metrics,
		opts:    opts.normalized(),
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Options returns the effective options.
func (c *Coordinator) Options() CoordinatorOptions {
	return c.opts
}

// PerformAggregation runs the updater for one batch of stale pairs. Pair
// failures are logged and counted; their markers stay unresolved. Only a
// failure to select the batch is returned as an error.
func (c *Coordinator) PerformAggregation(ctx context.Context) (BatchReport, error) {
	pairs, err := c.ledger.SelectBatch(ctx, c.opts.BatchSize)
	if err != nil {
		return BatchReport{}, fmt.Errorf("select stale batch: %w", err)
	}

	report := BatchReport{Selected: len(pairs)}
	c.metrics.ObserveBatchSize(ctx, len(pairs))
	if len(pairs) == 0 {
		slog.Debug("[Coordinator] No stale pairs to process")
		return report, nil
	}

	slog.Info("[Coordinator] Processing batch",
		"pairs", len(pairs),
		"workers", c.opts.WorkerCount,
		"run_timeout", c.opts.RunTimeout,
	)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.opts.WorkerCount)

	for _, pair := range pairs {
		g.Go(func() error {
			outcome, resolved, err := c.processPair(ctx, pair)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
				report.Failures = append(report.Failures, PairFailure{Pair: pair, Err: err})
			case outcome == OutcomeDiscarded:
				report.Discarded++
			default:
				report.Succeeded++
			}
			report.Resolved += resolved
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("[Coordinator] Batch complete",
		"selected", report.Selected,
		"succeeded", report.Succeeded,
		"discarded", report.Discarded,
		"failed", report.Failed,
		"markers_resolved", report.Resolved,
	)
	return report, nil
}

// processPair runs one pair under the run timeout and resolves its markers
// with the run's fact-read time.
func (c *Coordinator) processPair(ctx context.Context, pair completion.Pair) (string, int64, error) {
	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, c.opts.RunTimeout)
	result, err := c.updater.Update(runCtx, pair.LearnerID, pair.CourseID, UpdateOptions{})
	cancel()

	if err != nil {
		outcome := OutcomeFailed
		if errors.Is(err, coreerrors.ErrStructural) {
			outcome = OutcomeStructural
			slog.Error("[Coordinator] Content tree is malformed, pair skipped",
				"pair", pair.String(),
				"error", err,
			)
		} else {
			slog.Warn("[Coordinator] Pair run failed, will retry next batch",
				"pair", pair.String(),
				"error", err,
			)
		}
		c.metrics.ObserveRun(ctx, outcome, time.Since(started))
		return outcome, 0, err
	}

	outcome := OutcomeApplied
	if !result.Applied {
		outcome = OutcomeDiscarded
	}
	c.metrics.ObserveRun(ctx, outcome, time.Since(started))

	resolved, err := c.ledger.Resolve(ctx, pair, result.SnapshotAt)
	if err != nil {
		slog.Warn("[Coordinator] Resolve failed, markers stay pending",
			"pair", pair.String(),
			"run_id", result.RunID,
			"error", err,
		)
		return outcome, 0, fmt.Errorf("resolve markers for %s: %w", pair, err)
	}
	c.metrics.AddResolved(ctx, resolved)
	return outcome, resolved, nil
}

// PerformCleanup purges markers resolved longer ago than the retention window.
func (c *Coordinator) PerformCleanup(ctx context.Context) (int64, error) {
	cutoff := c.nowFn().Add(-c.opts.Retention)

	purged, err := c.ledger.PurgeResolved(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge resolved markers: %w", err)
	}
	c.metrics.AddPurged(ctx, purged)

	slog.Info("[Coordinator] Cleanup complete", "purged", purged, "cutoff", cutoff)
	return purged, nil
}

// PerformThenCleanup drains the backlog batch by batch and then runs cleanup.
// Concurrent calls do not interleave: a call made while another is running
// returns ErrTickInProgress immediately.
func (c *Coordinator) PerformThenCleanup(ctx context.Context) (TickReport, error) {
	if !c.tickMu.TryLock() {
		slog.Warn("[Coordinator] Previous tick still running, skipping")
		return TickReport{}, ErrTickInProgress
	}
	defer c.tickMu.Unlock()

	var tick TickReport
	for len(tick.Batches) < c.opts.MaxBatchesPerTick {
		if err := ctx.Err(); err != nil {
			slog.Info("[Coordinator] Drain interrupted by context cancellation",
				"batches_processed", len(tick.Batches))
			return tick, err
		}

		report, err := c.PerformAggregation(ctx)
		if err != nil {
			return tick, err
		}
		tick.Batches = append(tick.Batches, report)

		// A short batch means the backlog is drained. A full batch where
		// nothing succeeded would just reselect the same failing pairs.
		if report.Selected < c.opts.BatchSize || report.Succeeded+report.Discarded == 0 {
			break
		}
		slog.Info("[Coordinator] Backlog detected, continuing to drain",
			"batches_so_far", len(tick.Batches))
	}
	if len(tick.Batches) == c.opts.MaxBatchesPerTick {
		slog.Warn("[Coordinator] Max consecutive batches reached, pausing drain",
			"max_batches", c.opts.MaxBatchesPerTick,
			"note", "Will resume on next tick",
		)
	}

	purged, err := c.PerformCleanup(ctx)
	if err != nil {
		return tick, err
	}
	tick.Purged = purged
	return tick, nil
}
