package aggregation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage/memory"
	aggregationmocks "github.com/aevon-lab/completion-aggregator/internal/mocks/aggregation"
	storagemocks "github.com/aevon-lab/completion-aggregator/internal/mocks/storage"
)

var (
	pairA = completion.Pair{LearnerID: "learner-a", CourseID: "course-1"}
	pairB = completion.Pair{LearnerID: "learner-b", CourseID: "course-1"}
)

func tickingClock(start time.Time) func() time.Time {
	var (
		mu  sync.Mutex
		cur = start
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func markStale(t *testing.T, store *memory.Store, pair completion.Pair, blocks ...string) {
	t.Helper()
	for _, b := range blocks {
		require.NoError(t, store.MarkStale(context.Background(), pair, b))
	}
}

func appliedAt(at time.Time) aggregation.Result {
	return aggregation.Result{SnapshotAt: at, Applied: true}
}

func TestCoordinator_DefaultOptions(t *testing.T) {
	c := aggregation.NewCoordinator(aggregationmocks.NewPairUpdater(t), storagemocks.NewStalenessLedger(t), nil, aggregation.CoordinatorOptions{})
	assert.Equal(t, aggregation.DefaultCoordinatorOptions(), c.Options())
}

func TestCoordinator_DuplicateMarkersCauseOneRun(t *testing.T) {
	store := memory.NewStore()
	markStale(t, store, pairA, "html0", "html1", "html0")
	markStale(t, store, pairB, "html3")

	snapshot := time.Now().UTC().Add(time.Hour)
	updater := aggregationmocks.NewPairUpdater(t)
	updater.EXPECT().Update(mock.Anything, pairA.LearnerID, pairA.CourseID, aggregation.UpdateOptions{}).
		Return(appliedAt(snapshot), nil).Once()
	updater.EXPECT().Update(mock.Anything, pairB.LearnerID, pairB.CourseID, aggregation.UpdateOptions{}).
		Return(appliedAt(snapshot), nil).Once()

	c := aggregation.NewCoordinator(updater, store, nil, aggregation.DefaultCoordinatorOptions())
	report, err := c.PerformAggregation(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Selected)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, int64(4), report.Resolved)

	for _, p := range []completion.Pair{pairA, pairB} {
		pending, err := store.HasUnresolved(context.Background(), p)
		require.NoError(t, err)
		assert.False(t, pending, p.String())
	}
}

func TestCoordinator_MarkerCreatedDuringRunStaysPending(t *testing.T) {
	store := memory.NewStore()
	store.SetClock(tickingClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	markStale(t, store, pairA, "html0")

	updater := aggregationmocks.NewPairUpdater(t)
	updater.EXPECT().Update(mock.Anything, pairA.LearnerID, pairA.CourseID, aggregation.UpdateOptions{}).
		RunAndReturn(func(ctx context.Context, learnerID, courseID string, _ aggregation.UpdateOptions) (aggregation.Result, error) {
			snap, err := store.FactsFor(ctx, pairA)
			if err != nil {
				return aggregation.Result{}, err
			}
			// A fact lands after the read but before the run finishes.
			if err := store.MarkStale(ctx, pairA, "html1"); err != nil {
				return aggregation.Result{}, err
			}
			return appliedAt(snap.ReadAt), nil
		}).Once()

	c := aggregation.NewCoordinator(updater, store, nil, aggregation.DefaultCoordinatorOptions())
	report, err := c.PerformAggregation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Resolved)

	pending, err := store.HasUnresolved(context.Background(), pairA)
	require.NoError(t, err)
	assert.True(t, pending)

	var open []string
	for _, m := range store.Markers() {
		if !m.Resolved {
			open = append(open, m.BlockID)
		}
	}
	assert.Equal(t, []string{"html1"}, open)
}

func TestCoordinator_FailedPairKeepsMarkers(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"provider unavailable", fmt.Errorf("content root: %w: %w", coreerrors.ErrProviderUnavailable, context.DeadlineExceeded)},
		{"structural", fmt.Errorf("block %q is its own ancestor: %w", "seq1", coreerrors.ErrStructural)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			markStale(t, store, pairA, "html0")
			markStale(t, store, pairB, "html0")

			updater := aggregationmocks.NewPairUpdater(t)
			updater.EXPECT().Update(mock.Anything, pairA.LearnerID, pairA.CourseID, mock.Anything).
				Return(aggregation.Result{}, tc.err).Once()
			updater.EXPECT().Update(mock.Anything, pairB.LearnerID, pairB.CourseID, mock.Anything).
				Return(appliedAt(time.Now().UTC().Add(time.Hour)), nil).Once()

			c := aggregation.NewCoordinator(updater, store, nil, aggregation.DefaultCoordinatorOptions())
			report, err := c.PerformAggregation(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 1, report.Failed)
			assert.Equal(t, 1, report.Succeeded)
			require.Len(t, report.Failures, 1)
			assert.Equal(t, pairA, report.Failures[0].Pair)
			assert.ErrorIs(t, report.Failures[0].Err, tc.err)

			pending, err := store.HasUnresolved(context.Background(), pairA)
			require.NoError(t, err)
			assert.True(t, pending)

			pending, err = store.HasUnresolved(context.Background(), pairB)
			require.NoError(t, err)
			assert.False(t, pending)
		})
	}
}

func TestCoordinator_DiscardedRunStillResolves(t *testing.T) {
	store := memory.NewStore()
	markStale(t, store, pairA, "html0")

	updater := aggregationmocks.NewPairUpdater(t)
	updater.EXPECT().Update(mock.Anything, pairA.LearnerID, pairA.CourseID, mock.Anything).
		Return(aggregation.Result{SnapshotAt: time.Now().UTC().Add(time.Hour), Applied: false}, nil).Once()

	c := aggregation.NewCoordinator(updater, store, nil, aggregation.DefaultCoordinatorOptions())
	report, err := c.PerformAggregation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Discarded)
	assert.Equal(t, int64(1), report.Resolved)
}

func TestCoordinator_ResolveFailureCountsAsFailed(t *testing.T) {
	snapshot := time.Now().UTC()
	ledger := storagemocks.NewStalenessLedger(t)
	ledger.EXPECT().SelectBatch(mock.Anything, 1000).Return([]completion.Pair{pairA}, nil).Once()
	ledger.EXPECT().Resolve(mock.Anything, pairA, snapshot).Return(0, errors.New("connection reset")).Once()

	updater := aggregationmocks.NewPairUpdater(t)
	updater.EXPECT().Update(mock.Anything, pairA.LearnerID, pairA.CourseID, mock.Anything).
		Return(appliedAt(snapshot), nil).Once()

	c := aggregation.NewCoordinator(updater, ledger, nil, aggregation.DefaultCoordinatorOptions())
	report, err := c.PerformAggregation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Resolved)
}

func TestCoordinator_SelectFailureIsReturned(t *testing.T) {
	ledger := storagemocks.NewStalenessLedger(t)
	ledger.EXPECT().SelectBatch(mock.Anything, 1000).Return(nil, errors.New("relation does not exist")).Once()

	c := aggregation.NewCoordinator(aggregationmocks.NewPairUpdater(t), ledger, nil, aggregation.DefaultCoordinatorOptions())
	_, err := c.PerformAggregation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select stale batch")
}

func TestCoordinator_RunsUnderTimeoutAndWorkerLimit(t *testing.T) {
	store := memory.NewStore()
	for i := 0; i < 8; i++ {
		markStale(t, store, completion.Pair{LearnerID: fmt.Sprintf("learner-%d", i), CourseID: "course-1"}, "html0")
	}

	var inFlight, peak atomic.Int32
	updater := aggregationmocks.NewPairUpdater(t)
	updater.EXPECT().Update(mock.Anything, mock.Anything, "course-1", mock.Anything).
		RunAndReturn(func(ctx context.Context, _, _ string, _ aggregation.UpdateOptions) (aggregation.Result, error) {
			if _, ok := ctx.Deadline(); !ok {
				return aggregation.Result{}, errors.New("run has no deadline")
			}
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				cur := peak.Load()
				if n <= cur || peak.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			return appliedAt(time.Now().UTC().Add(time.Hour)), nil
		}).Times(8)

	opts := aggregation.DefaultCoordinatorOptions()
	opts.WorkerCount = 2
	opts.RunTimeout = time.Second
	c := aggregation.NewCoordinator(updater, store, nil, opts)

	report, err := c.PerformAggregation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, report.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCoordinator_PerformCleanupUsesRetention(t *testing.T) {
	retention := 48 * time.Hour
	before := time.Now().UTC()

	ledger := storagemocks.NewStalenessLedger(t)
	ledger.EXPECT().PurgeResolved(mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return !cutoff.Before(before.Add(-retention)) && !cutoff.After(time.Now().UTC().Add(-retention))
	})).Return(5, nil).Once()

	opts := aggregation.DefaultCoordinatorOptions()
	opts.Retention = retention
	c := aggregation.NewCoordinator(aggregationmocks.NewPairUpdater(t), ledger, nil, opts)

	purged, err := c.PerformCleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), purged)
}

func TestCoordinator_PerformThenCleanup(t *testing.T) {
	t.Run("drains until a short batch", func(t *testing.T) {
		full := []completion.Pair{pairA, pairB}
		ledger := storagemocks.NewStalenessLedger(t)
		ledger.EXPECT().SelectBatch(mock.Anything, 2).Return(full, nil).Twice()
		ledger.EXPECT().SelectBatch(mock.Anything, 2).Return([]completion.Pair{pairA}, nil).Once()
		ledger.EXPECT().Resolve(mock.Anything, mock.Anything, mock.Anything).Return(1, nil).Times(5)
		ledger.EXPECT().PurgeResolved(mock.Anything, mock.Anything).Return(3, nil).Once()

		updater := aggregationmocks.NewPairUpdater(t)
		updater.EXPECT().Update(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(appliedAt(time.Now().UTC()), nil).Times(5)

		opts := aggregation.DefaultCoordinatorOptions()
		opts.BatchSize = 2
		c := aggregation.NewCoordinator(updater, ledger, nil, opts)

		tick, err := c.PerformThenCleanup(context.Background())
		require.NoError(t, err)
		assert.Len(t, tick.Batches, 3)
		assert.Equal(t, int64(3), tick.Purged)
	})

	t.Run("stops when a full batch makes no progress", func(t *testing.T) {
		ledger := storagemocks.NewStalenessLedger(t)
		ledger.EXPECT().SelectBatch(mock.Anything, 2).Return([]completion.Pair{pairA, pairB}, nil).Once()
		ledger.EXPECT().PurgeResolved(mock.Anything, mock.Anything).Return(0, nil).Once()

		updater := aggregationmocks.NewPairUpdater(t)
		updater.EXPECT().Update(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(aggregation.Result{}, coreerrors.ErrProviderUnavailable).Twice()

		opts := aggregation.DefaultCoordinatorOptions()
		opts.BatchSize = 2
		c := aggregation.NewCoordinator(updater, ledger, nil, opts)

		tick, err := c.PerformThenCleanup(context.Background())
		require.NoError(t, err)
		require.Len(t, tick.Batches, 1)
		assert.Equal(t, 2, tick.Batches[0].Failed)
	})

	t.Run("pauses at the batch cap", func(t *testing.T) {
		ledger := storagemocks.NewStalenessLedger(t)
		ledger.EXPECT().SelectBatch(mock.Anything, 1).Return([]completion.Pair{pairA}, nil).Times(3)
		ledger.EXPECT().Resolve(mock.Anything, pairA, mock.Anything).Return(1, nil).Times(3)
		ledger.EXPECT().PurgeResolved(mock.Anything, mock.Anything).Return(0, nil).Once()

		updater := aggregationmocks.NewPairUpdater(t)
		updater.EXPECT().Update(mock.Anything, pairA.LearnerID, pairA.CourseID, mock.Anything).
			Return(appliedAt(time.Now().UTC()), nil).Times(3)

		opts := aggregation.DefaultCoordinatorOptions()
		opts.BatchSize = 1
		opts.MaxBatchesPerTick = 3
		c := aggregation.NewCoordinator(updater, ledger, nil, opts)

		tick, err := c.PerformThenCleanup(context.Background())
		require.NoError(t, err)
		assert.Len(t, tick.Batches, 3)
	})

	t.Run("cancelled context does no work", func(t *testing.T) {
		c := aggregation.NewCoordinator(aggregationmocks.NewPairUpdater(t), storagemocks.NewStalenessLedger(t), nil, aggregation.DefaultCoordinatorOptions())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		tick, err := c.PerformThenCleanup(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, tick.Batches)
	})
}

func TestCoordinator_OverlappingTickIsSkipped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	ledger := storagemocks.NewStalenessLedger(t)
	ledger.EXPECT().SelectBatch(mock.Anything, 1000).
		RunAndReturn(func(context.Context, int) ([]completion.Pair, error) {
			close(entered)
			<-release
			return nil, nil
		}).Once()
	ledger.EXPECT().PurgeResolved(mock.Anything, mock.Anything).Return(0, nil).Once()

	c := aggregation.NewCoordinator(aggregationmocks.NewPairUpdater(t), ledger, nil, aggregation.DefaultCoordinatorOptions())

	done := make(chan error, 1)
	go func() {
		_, err := c.PerformThenCleanup(context.Background())
		done <- err
	}()

	<-entered
	_, err := c.PerformThenCleanup(context.Background())
	assert.ErrorIs(t, err, aggregation.ErrTickInProgress)

	close(release)
	require.NoError(t, <-done)
}
