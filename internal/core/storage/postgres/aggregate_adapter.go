package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	"github.com/aevon-lab/completion-aggregator/internal/core/partition"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage"
)

var _ storage.AggregateStore = (*AggregateAdapter)(nil)

// AggregateAdapter implements storage.AggregateStore using PostgreSQL.
// All rows of one run and the staleness check share a single transaction
// held under a per-pair advisory lock.
type AggregateAdapter struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewAggregateAdapter creates an AggregateAdapter sharing the given connection.
func NewAggregateAdapter(db *sql.DB, tracer trace.Tracer) *AggregateAdapter {
	if tracer == nil {
		tracer = storage.NoOpTracer()
	}
	return &AggregateAdapter{db: db, tracer: tracer}
}

// LoadAggregates returns the stored rows of one pair keyed by block ID.
func (a *AggregateAdapter) LoadAggregates(ctx context.Context, pair completion.Pair) (map[string]completion.Aggregate, error) {
	var out map[string]completion.Aggregate

	err := storage.ExecuteAndTrace(ctx, a.tracer, "postgres.load_aggregates",
		storage.PairAttributes(pair.LearnerID, pair.CourseID),
		func(ctx context.Context) error {
			var err error
			out, err = loadAggregates(ctx, a.db, pair)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func loadAggregates(ctx context.Context, q queryer, pair completion.Pair) (map[string]completion.Aggregate, error) {
	rows, err := q.QueryContext(ctx, queryLoadAggregates, pair.LearnerID, pair.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load aggregates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]completion.Aggregate)
	for rows.Next() {
		agg, err := scanAggregateRow(rows, pair)
		if err != nil {
			return nil, fmt.Errorf("load aggregates: %w", err)
		}
		out[agg.BlockID] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load aggregates: iterate rows: %w", err)
	}
	return out, nil
}

// CommitRun upserts every row of one run in a single transaction.
//
// The pair's advisory lock is taken first. If any stored row of the pair was
// derived from a later snapshot than snapshotAt the whole run is skipped and
// Applied is false. Otherwise the current rows are read under the lock and
// returned as Prior.
func (a *AggregateAdapter) CommitRun(
	ctx context.Context,
	pair completion.Pair,
	snapshotAt time.Time,
	aggregates []completion.Aggregate,
) (storage.CommitResult, error) {
	var result storage.CommitResult
	attrs := append(storage.PairAttributes(pair.LearnerID, pair.CourseID),
		attribute.Int("aggregates", len(aggregates)))

	err := storage.ExecuteAndTrace(ctx, a.tracer, "postgres.commit_run", attrs, func(ctx context.Context) error {
		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("commit run: begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx, queryLockPair, partition.LockKey(pair.LearnerID, pair.CourseID)); err != nil {
			return fmt.Errorf("commit run: lock pair: %w", err)
		}

		var durable sql.NullTime
		if err := tx.QueryRowContext(ctx, queryDurableSnapshot, pair.LearnerID, pair.CourseID).Scan(&durable); err != nil {
			return fmt.Errorf("commit run: read durable snapshot: %w", err)
		}
		if durable.Valid && snapshotAt.Before(durable.Time) {
			slog.Warn("[AggregateAdapter] Skipping stale commit",
				"pair", pair.String(),
				"snapshot_at", snapshotAt,
				"durable_snapshot_at", durable.Time,
				"aggregates", len(aggregates))
			return nil
		}

		prior, err := loadAggregates(ctx, tx, pair)
		if err != nil {
			return fmt.Errorf("commit run: %w", err)
		}
		rows := storage.Preserve(prior, aggregates)

		if len(rows) > 0 {
			upsertStmt, err := tx.PrepareContext(ctx, queryUpsertAggregate)
			if err != nil {
				return fmt.Errorf("commit run: prepare upsert: %w", err)
			}
			defer upsertStmt.Close()

			for _, agg := range rows {
				if _, err := upsertStmt.ExecContext(ctx,
					pair.LearnerID,
					pair.CourseID,
					agg.BlockID,
					agg.AggregationName,
					agg.Earned.String(),
					agg.Possible.String(),
					agg.Percent,
					agg.LastModified,
					snapshotAt,
				); err != nil {
					return fmt.Errorf("commit run: upsert %s: %w", agg.BlockID, err)
				}
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run: commit: %w", err)
		}
		result = storage.CommitResult{Applied: true, Prior: prior, Rows: rows}
		return nil
	})
	if err != nil {
		return storage.CommitResult{}, err
	}

	if result.Applied {
		slog.Debug("[AggregateAdapter] Committed run",
			"pair", pair.String(),
			"aggregates", len(aggregates),
			"replaced", len(result.Prior),
			"snapshot_at", snapshotAt)
	}
	return result, nil
}

// DeleteAggregates removes the named rows of a pair.
func (a *AggregateAdapter) DeleteAggregates(ctx context.Context, pair completion.Pair, blockIDs []string) (int64, error) {
	if len(blockIDs) == 0 {
		return 0, nil
	}

	var deleted int64
	attrs := append(storage.PairAttributes(pair.LearnerID, pair.CourseID),
		attribute.Int("blocks", len(blockIDs)))

	err := storage.ExecuteAndTrace(ctx, a.tracer, "postgres.delete_aggregates", attrs, func(ctx context.Context) error {
		result, err := a.db.ExecContext(ctx, queryDeleteAggregates, pair.LearnerID, pair.CourseID, pq.Array(blockIDs))
		if err != nil {
			return fmt.Errorf("delete aggregates: %w", err)
		}
		deleted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete aggregates: rows affected: %w", err)
		}
		return nil
	})
	return deleted, err
}
