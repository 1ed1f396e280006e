package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aevon-lab/completion-aggregator/internal/content"
	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage"
)

// Change describes one aggregate whose percent moved (or which did not exist
// before) in a committed run.
type Change struct {
	RunID      string
	Aggregate  completion.Aggregate
	Role       completion.Role
	IsNew      bool
	OldPercent float64
	NewPercent float64
	Revoke     bool
}

// NotificationSink receives changes after the run's rows are durable.
// Returning coreerrors.ErrInvalidStateTransition surfaces to the caller;
// any other error is logged and dropped.
type NotificationSink interface {
	OnAggregateChanged(ctx context.Context, change Change) error
}

// NotificationSinkFunc adapts a function to NotificationSink.
type NotificationSinkFunc func(ctx context.Context, change Change) error

func (f NotificationSinkFunc) OnAggregateChanged(ctx context.Context, change Change) error {
	return f(ctx, change)
}

// UpdateOptions carries per-call inputs from the fact-write path.
type UpdateOptions struct {
	// Revoke asks the notification step to report revocation for changed
	// aggregates that are no longer complete.
	Revoke bool
}

// Result is the outcome of one updater run.
type Result struct {
	Pair       completion.Pair
	RunID      string
	SnapshotAt time.Time
	Aggregates []completion.Aggregate
	Changes    []Change
	// Applied is false when a newer snapshot had already been committed for
	// the pair and this run's rows were discarded.
	Applied bool
}

// PruneResult reports the rows removed by Prune.
type PruneResult struct {
	Pair     completion.Pair
	BlockIDs []string
	Deleted  int64
}

// Updater recomputes every registered aggregate of one (learner, course)
// pair from a full read of the tree and the learner's facts. It holds no
// state between runs.
type Updater struct {
	provider   content.Provider
	facts      storage.FactStore
	aggregates storage.AggregateStore
	registry   completion.Registry
	sink       NotificationSink
	tracer     trace.Tracer
	nowFn      func() time.Time
}

// UpdaterOption customises an Updater.
type UpdaterOption func(*Updater)

// WithNotificationSink sets the sink receiving committed changes.
func WithNotificationSink(sink NotificationSink) UpdaterOption {
	return func(u *Updater) { u.sink = sink }
}

// WithTracer sets the tracer used for run spans.
func WithTracer(tracer trace.Tracer) UpdaterOption {
	return func(u *Updater) { u.tracer = tracer }
}

// WithClock sets the clock stamped on changed rows.
func WithClock(now func() time.Time) UpdaterOption {
	return func(u *Updater) { u.nowFn = now }
}

// NewUpdater wires an Updater. Without a sink, changes are computed but not
// dispatched.
func NewUpdater(
	provider content.Provider,
	facts storage.FactStore,
	aggregates storage.AggregateStore,
	registry completion.Registry,
	opts ...UpdaterOption,
) *Updater {
	u := &Updater{
		provider:   provider,
		facts:      facts,
		aggregates: aggregates,
		registry:   registry,
		tracer:     storage.NoOpTracer(),
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Update recomputes the pair's aggregates, commits them in one transaction
// and then dispatches notifications for changed rows.
//
// Provider and fact-store failures, including context expiry, return an
// error wrapping coreerrors.ErrProviderUnavailable and write nothing. A cyclic
// tree returns coreerrors.ErrStructural.
func (u *Updater) Update(ctx context.Context, learnerID, courseID string, opts UpdateOptions) (Result, error) {
	pair := completion.Pair{LearnerID: learnerID, CourseID: courseID}
	if err := pair.Validate(); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	ctx, span := u.tracer.Start(ctx, "aggregation.update", trace.WithAttributes(
		attribute.String("learner_id", learnerID),
		attribute.String("course_id", courseID),
		attribute.String("run_id", runID),
	))
	defer span.End()

	result, err := u.update(ctx, pair, runID, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.Int("aggregates", len(result.Aggregates)),
		attribute.Int("changes", len(result.Changes)),
		attribute.Bool("applied", result.Applied),
	)
	return result, err
}

func (u *Updater) update(ctx context.Context, pair completion.Pair, runID string, opts UpdateOptions) (Result, error) {
	result := Result{Pair: pair, RunID: runID}

	root, err := u.provider.Root(ctx, pair.CourseID)
	if err != nil {
		return result, providerError("content root", pair, err)
	}

	snapshot, err := u.facts.FactsFor(ctx, pair)
	if err != nil {
		return result, providerError("read facts", pair, err)
	}
	result.SnapshotAt = snapshot.ReadAt

	w := newWalk(ctx, u, pair, snapshot.Facts)
	if _, _, err := w.visit(root); err != nil {
		return result, err
	}

	now := u.nowFn()
	rows := make([]completion.Aggregate, 0, len(w.rows))
	for _, row := range w.rows {
		row.LastModified = now
		rows = append(rows, row)
	}
	result.Aggregates = rows

	commit, err := u.aggregates.CommitRun(ctx, pair, snapshot.ReadAt, rows)
	if err != nil {
		if ctx.Err() != nil {
			return result, providerError("commit aggregates", pair, err)
		}
		return result, fmt.Errorf("commit aggregates for %s: %w", pair, err)
	}
	result.Applied = commit.Applied

	if !commit.Applied {
		slog.Info("[Updater] Newer snapshot already committed, run discarded",
			"run_id", runID,
			"pair", pair.String(),
			"snapshot_at", snapshot.ReadAt,
		)
		return result, nil
	}
	result.Aggregates = commit.Rows

	// Prior rows were read under the commit's per-pair serialisation, so an
	// overlapping run for the same pair sees this run's rows as existing.
	var changes []Change
	for _, row := range commit.Rows {
		old, found := commit.Prior[row.BlockID]
		if found && old.Percent == row.Percent {
			continue
		}
		changes = append(changes, Change{
			RunID:      runID,
			Aggregate:  row,
			Role:       completion.RoleAggregator,
			IsNew:      !found,
			OldPercent: old.Percent,
			NewPercent: row.Percent,
			Revoke:     opts.Revoke,
		})
	}
	result.Changes = changes

	slog.Debug("[Updater] Run committed",
		"run_id", runID,
		"pair", pair.String(),
		"aggregates", len(rows),
		"changes", len(changes),
		"facts", len(snapshot.Facts),
	)

	return result, u.notify(ctx, changes)
}

// notify runs after commit. Transition errors are collected and returned;
// everything else is logged as a notification failure.
func (u *Updater) notify(ctx context.Context, changes []Change) error {
	if u.sink == nil {
		return nil
	}

	var rejected []error
	for _, change := range changes {
		err := u.sink.OnAggregateChanged(ctx, change)
		if err == nil {
			continue
		}
		if errors.Is(err, coreerrors.ErrInvalidStateTransition) {
			rejected = append(rejected, err)
			continue
		}
		slog.Warn("[Updater] Notification failed",
			"run_id", change.RunID,
			"block_id", change.Aggregate.BlockID,
			"error", fmt.Errorf("%w: %w", coreerrors.ErrNotification, err),
		)
	}
	return errors.Join(rejected...)
}

// Prune deletes the pair's aggregate rows whose blocks are no longer reachable
// from the course root. Normal runs never remove rows.
func (u *Updater) Prune(ctx context.Context, learnerID, courseID string) (PruneResult, error) {
	pair := completion.Pair{LearnerID: learnerID, CourseID: courseID}
	result := PruneResult{Pair: pair}
	if err := pair.Validate(); err != nil {
		return result, err
	}

	ctx, span := u.tracer.Start(ctx, "aggregation.prune", trace.WithAttributes(
		attribute.String("learner_id", learnerID),
		attribute.String("course_id", courseID),
	))
	defer span.End()

	root, err := u.provider.Root(ctx, courseID)
	if err != nil {
		return result, providerError("content root", pair, err)
	}

	w := newWalk(ctx, u, pair, nil)
	if _, _, err := w.visit(root); err != nil {
		return result, err
	}

	existing, err := u.aggregates.LoadAggregates(ctx, pair)
	if err != nil {
		return result, providerError("load aggregates", pair, err)
	}

	for blockID := range existing {
		if _, reachable := w.arena[blockID]; !reachable {
			result.BlockIDs = append(result.BlockIDs, blockID)
		}
	}
	sort.Strings(result.BlockIDs)
	if len(result.BlockIDs) == 0 {
		return result, nil
	}

	result.Deleted, err = u.aggregates.DeleteAggregates(ctx, pair, result.BlockIDs)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("prune aggregates for %s: %w", pair, err)
	}

	slog.Info("[Updater] Pruned orphaned aggregates",
		"pair", pair.String(),
		"deleted", result.Deleted,
		"blocks", result.BlockIDs,
	)
	return result, nil
}

func providerError(op string, pair completion.Pair, err error) error {
	if errors.Is(err, coreerrors.ErrStructural) {
		return fmt.Errorf("%s for %s: %w", op, pair, err)
	}
	return fmt.Errorf("%s for %s: %w: %w", op, pair, coreerrors.ErrProviderUnavailable, err)
}

// node is one arena entry: the sums a visited block contributed.
type node struct {
	block    completion.Block
	earned   decimal.Decimal
	possible decimal.Decimal
}

// walk is the per-run arena. It is built during the traversal and dropped
// when the run ends.
type walk struct {
	ctx    context.Context
	u      *Updater
	pair   completion.Pair
	facts  map[string]completion.Fact
	arena  map[string]*node
	onPath map[string]bool
	rows   []completion.Aggregate
}

func newWalk(ctx context.Context, u *Updater, pair completion.Pair, facts map[string]completion.Fact) *walk {
	return &walk{
		ctx:    ctx,
		u:      u,
		pair:   pair,
		facts:  facts,
		arena:  make(map[string]*node),
		onPath: make(map[string]bool),
	}
}

// visit computes a block's (earned, possible) in post-order. A block already
// in the arena was reached through another parent and contributes nothing at
// this position; a block on the current path is a cycle.
func (w *walk) visit(block completion.Block) (decimal.Decimal, decimal.Decimal, error) {
	if w.onPath[block.ID] {
		return decimal.Zero, decimal.Zero, fmt.Errorf("block %q in course %s is its own ancestor: %w",
			block.ID, w.pair.CourseID, coreerrors.ErrStructural)
	}
	if _, seen := w.arena[block.ID]; seen {
		slog.Warn("[Updater] Block reachable through several parents, counting first occurrence only",
			"pair", w.pair.String(),
			"block_id", block.ID,
		)
		return decimal.Zero, decimal.Zero, nil
	}

	n := &node{block: block, earned: decimal.Zero, possible: decimal.Zero}
	w.arena[block.ID] = n

	switch block.Role {
	case completion.RoleCompletable:
		n.possible = decimal.NewFromInt(1)
		if fact, ok := w.facts[block.ID]; ok {
			n.earned = decimal.NewFromFloat(fact.Completion)
		}

	case completion.RoleAggregator:
		w.onPath[block.ID] = true
		children, err := w.u.provider.Children(w.ctx, w.pair.CourseID, block.ID)
		if err != nil {
			return decimal.Zero, decimal.Zero, providerError("children of "+block.ID, w.pair, err)
		}
		for _, child := range children {
			earned, possible, err := w.visit(child)
			if err != nil {
				return decimal.Zero, decimal.Zero, err
			}
			n.earned = n.earned.Add(earned)
			n.possible = n.possible.Add(possible)
		}
		delete(w.onPath, block.ID)

		if w.u.registry.IsRegistered(block.Type) {
			agg, err := completion.NewAggregate(w.pair, block, n.earned, n.possible, time.Time{})
			if err != nil {
				return decimal.Zero, decimal.Zero, fmt.Errorf("block %q: %w", block.ID, err)
			}
			w.rows = append(w.rows, agg)
		}

	default:
		// Excluded and unknown roles are never expanded.
	}

	return n.earned, n.possible, nil
}
