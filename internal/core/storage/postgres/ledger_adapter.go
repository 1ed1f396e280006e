package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage"
)

var _ storage.StalenessLedger = (*LedgerAdapter)(nil)

// LedgerAdapter implements storage.StalenessLedger on the stale_markers table.
type LedgerAdapter struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewLedgerAdapter creates a LedgerAdapter sharing the given connection.
func NewLedgerAdapter(db *sql.DB, tracer trace.Tracer) *LedgerAdapter {
	if tracer == nil {
		tracer = storage.NoOpTracer()
	}
	return &LedgerAdapter{db: db, tracer: tracer}
}

// MarkStale appends a marker stamped with the database clock.
func (l *LedgerAdapter) MarkStale(ctx context.Context, pair completion.Pair, blockID string) error {
	attrs := append(storage.PairAttributes(pair.LearnerID, pair.CourseID),
		attribute.String("block_id", blockID))

	return storage.ExecuteAndTrace(ctx, l.tracer, "postgres.mark_stale", attrs, func(ctx context.Context) error {
		if _, err := l.db.ExecContext(ctx, queryInsertMarker, pair.LearnerID, pair.CourseID, blockID); err != nil {
			return fmt.Errorf("mark stale: %w", err)
		}
		return nil
	})
}

// SelectBatch returns up to limit pairs, oldest unresolved marker first.
func (l *LedgerAdapter) SelectBatch(ctx context.Context, limit int) ([]completion.Pair, error) {
	var pairs []completion.Pair
	attrs := append(append([]attribute.KeyValue{}, storage.DefaultDBAttributes...), attribute.Int("limit", limit))

	err := storage.ExecuteAndTrace(ctx, l.tracer, "postgres.select_stale_pairs", attrs, func(ctx context.Context) error {
		rows, err := l.db.QueryContext(ctx, querySelectStalePairs, limit)
		if err != nil {
			return fmt.Errorf("select stale pairs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var pair completion.Pair
			if err := rows.Scan(&pair.LearnerID, &pair.CourseID); err != nil {
				return fmt.Errorf("select stale pairs: scan row: %w", err)
			}
			pairs = append(pairs, pair)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("select stale pairs: iterate rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// Resolve marks resolved the pair's unresolved markers created at or before notBefore.
func (l *LedgerAdapter) Resolve(ctx context.Context, pair completion.Pair, notBefore time.Time) (int64, error) {
	var resolved int64

	err := storage.ExecuteAndTrace(ctx, l.tracer, "postgres.resolve_markers",
		storage.PairAttributes(pair.LearnerID, pair.CourseID),
		func(ctx context.Context) error {
			result, err := l.db.ExecContext(ctx, queryResolveMarkers, pair.LearnerID, pair.CourseID, notBefore)
			if err != nil {
				return fmt.Errorf("resolve markers: %w", err)
			}
			resolved, err = result.RowsAffected()
			if err != nil {
				return fmt.Errorf("resolve markers: rows affected: %w", err)
			}
			return nil
		})
	return resolved, err
}

// PurgeResolved deletes markers resolved before olderThan.
func (l *LedgerAdapter) PurgeResolved(ctx context.Context, olderThan time.Time) (int64, error) {
	var purged int64

	err := storage.ExecuteAndTrace(ctx, l.tracer, "postgres.purge_resolved", storage.DefaultDBAttributes,
		func(ctx context.Context) error {
			result, err := l.db.ExecContext(ctx, queryPurgeResolved, olderThan)
			if err != nil {
				return fmt.Errorf("purge resolved markers: %w", err)
			}
			purged, err = result.RowsAffected()
			if err != nil {
				return fmt.Errorf("purge resolved markers: rows affected: %w", err)
			}
			return nil
		})
	if err != nil {
		return 0, err
	}

	slog.Info("[LedgerAdapter] Purged resolved markers", "purged", purged, "older_than", olderThan)
	return purged, nil
}

// HasUnresolved reports whether the pair has any unresolved marker.
func (l *LedgerAdapter) HasUnresolved(ctx context.Context, pair completion.Pair) (bool, error) {
	var exists bool

	err := storage.ExecuteAndTrace(ctx, l.tracer, "postgres.has_unresolved",
		storage.PairAttributes(pair.LearnerID, pair.CourseID),
		func(ctx context.Context) error {
			if err := l.db.QueryRowContext(ctx, queryHasUnresolved, pair.LearnerID, pair.CourseID).Scan(&exists); err != nil {
				return fmt.Errorf("check unresolved markers: %w", err)
			}
			return nil
		})
	return exists, err
}
