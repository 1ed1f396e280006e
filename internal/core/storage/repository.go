package storage

import (
	"context"
	"time"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
)

// FactStore reads and writes leaf completion facts.
// The engine only reads; SaveFact exists for the fact-write path.
type FactStore interface {
	// SaveFact inserts or overwrites the fact for (learner, block).
	SaveFact(ctx context.Context, fact completion.Fact) error

	// FactsFor performs one bulk read of every fact the learner has in the
	// course. ReadAt is captured before the read.
	FactsFor(ctx context.Context, pair completion.Pair) (completion.FactSnapshot, error)
}

// AggregateStore persists the engine's derived rows.
//
// Contract: CommitRun writes every row of one updater run in a single
// transaction, serialised per pair. A run whose snapshotAt is older than a
// snapshot already committed for the pair is skipped wholesale (Applied=false)
// so an older snapshot never overwrites a newer one and rows of two snapshots
// are never mixed. The rows a commit replaces are read under the same
// serialisation, so two overlapping runs never both see a block as new.
type AggregateStore interface {
	// LoadAggregates returns the current rows for a pair keyed by block ID.
	LoadAggregates(ctx context.Context, pair completion.Pair) (map[string]completion.Aggregate, error)

	// CommitRun atomically upserts all rows of one run.
	CommitRun(ctx context.Context, pair completion.Pair, snapshotAt time.Time, aggregates []completion.Aggregate) (CommitResult, error)

	// DeleteAggregates removes the named rows of a pair. Only the explicit
	// prune operation calls this.
	DeleteAggregates(ctx context.Context, pair completion.Pair, blockIDs []string) (int64, error)
}

// CommitResult reports what one CommitRun did.
type CommitResult struct {
	// Applied is false when a newer snapshot had already been committed and
	// nothing was written.
	Applied bool

	// Prior holds the pair's rows as they were immediately before the write,
	// keyed by block ID. A block absent from Prior had no row.
	Prior map[string]completion.Aggregate

	// Rows are the rows as written. A row whose values equal its prior row
	// keeps the prior LastModified.
	Rows []completion.Aggregate
}

// Preserve returns rows with LastModified carried over from prior for every
// row whose values did not change.
func Preserve(prior map[string]completion.Aggregate, rows []completion.Aggregate) []completion.Aggregate {
	out := make([]completion.Aggregate, len(rows))
	for i, row := range rows {
		if old, ok := prior[row.BlockID]; ok && old.SameValues(row) {
			row.LastModified = old.LastModified
		}
		out[i] = row
	}
	return out
}

// StalenessLedger records "this pair needs recomputation" hints.
type StalenessLedger interface {
	// MarkStale appends a marker. Duplicates are harmless.
	MarkStale(ctx context.Context, pair completion.Pair, blockID string) error

	// SelectBatch returns up to limit distinct pairs with at least one
	// unresolved marker, oldest unresolved marker first.
	SelectBatch(ctx context.Context, limit int) ([]completion.Pair, error)

	// Resolve marks resolved every unresolved marker of the pair created at or
	// before notBefore and returns how many were resolved.
	Resolve(ctx context.Context, pair completion.Pair, notBefore time.Time) (int64, error)

	// PurgeResolved deletes resolved markers resolved before olderThan.
	PurgeResolved(ctx context.Context, olderThan time.Time) (int64, error)

	// HasUnresolved reports whether the pair's aggregates may be stale.
	HasUnresolved(ctx context.Context, pair completion.Pair) (bool, error)
}
