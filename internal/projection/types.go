package projection

import (
	"github.com/shopspring/decimal"

	v1 "github.com/aevon-lab/completion-aggregator/internal/api/v1"
)

// ProgressRequest selects one learner's progress in one course.
type ProgressRequest struct {
	LearnerID string
	CourseID  string
	// Aggregations limits the response to these aggregation names. Empty
	// means every registered name.
	Aggregations []string
}

// AggregationSummary rolls up every row of one aggregation name.
type AggregationSummary struct {
	Blocks         int             `json:"blocks"`
	Completed      int             `json:"completed"`
	Earned         decimal.Decimal `json:"earned"`
	Possible       decimal.Decimal `json:"possible"`
	MeanPercent    float64         `json:"mean_percent"`
	OverallPercent float64         `json:"overall_percent"`
}

// ProgressResponse is the read model served to clients.
type ProgressResponse struct {
	LearnerID    string                        `json:"learner_id"`
	CourseID     string                        `json:"course_id"`
	// Stale is true while unresolved staleness markers exist for the pair;
	// the aggregates may lag the learner's latest completions.
	Stale        bool                          `json:"stale"`
	Aggregations map[string][]v1.AggregateView `json:"aggregations"`
	Summary      map[string]AggregationSummary `json:"summary"`
}
