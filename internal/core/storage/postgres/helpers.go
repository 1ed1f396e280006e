package postgres

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFactRow scans one block_completions row of the given pair.
func scanFactRow(row scanner, pair completion.Pair) (completion.Fact, error) {
	fact := completion.Fact{LearnerID: pair.LearnerID, CourseID: pair.CourseID}
	if err := row.Scan(&fact.BlockID, &fact.Completion, &fact.ModifiedAt); err != nil {
		return completion.Fact{}, fmt.Errorf("failed to scan fact row: %w", err)
	}
	return fact, nil
}

// scanAggregateRow scans one aggregates row. NUMERIC columns arrive as text
// and are parsed exactly. A row violating the percent invariant is returned
// as stored and logged.
func scanAggregateRow(row scanner, pair completion.Pair) (completion.Aggregate, error) {
	agg := completion.Aggregate{LearnerID: pair.LearnerID, CourseID: pair.CourseID}
	var earnedStr, possibleStr string

	if err := row.Scan(
		&agg.BlockID,
		&agg.AggregationName,
		&earnedStr,
		&possibleStr,
		&agg.Percent,
		&agg.LastModified,
	); err != nil {
		return completion.Aggregate{}, fmt.Errorf("failed to scan aggregate row: %w", err)
	}

	var err error
	if agg.Earned, err = decimal.NewFromString(earnedStr); err != nil {
		return completion.Aggregate{}, fmt.Errorf("parse earned %q: %w", earnedStr, err)
	}
	if agg.Possible, err = decimal.NewFromString(possibleStr); err != nil {
		return completion.Aggregate{}, fmt.Errorf("parse possible %q: %w", possibleStr, err)
	}

	if err := agg.Validate(); err != nil {
		slog.Warn("[Postgres] Stored aggregate violates invariant",
			"learner_id", agg.LearnerID,
			"course_id", agg.CourseID,
			"block_id", agg.BlockID,
			"error", err)
	}
	return agg, nil
}
