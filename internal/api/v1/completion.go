package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
)

// CompletionRequest records one learner's completion of one block.
type CompletionRequest struct {
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
	BlockID   string `json:"block_id"`

	// Completion is required; a pointer distinguishes 0 from absent.
	Completion *float64 `json:"completion"`

	// ModifiedAt is when the completion happened on the client. The server
	// clock is used when it is omitted.
	ModifiedAt *time.Time `json:"modified_at,omitempty"`

	// Revoke marks the write as a deliberate withdrawal of completion.
	// It is only honoured when aggregation runs inline.
	Revoke bool `json:"revoke,omitempty"`
}

// Validate checks required fields and the completion range.
func (r *CompletionRequest) Validate() error {
	if r.Completion == nil {
		return fmt.Errorf("completion is required")
	}
	return r.Fact().Validate()
}

// Fact converts the request into the stored leaf fact.
func (r *CompletionRequest) Fact() completion.Fact {
	fact := completion.Fact{
		LearnerID: r.LearnerID,
		CourseID:  r.CourseID,
		BlockID:   r.BlockID,
	}
	if r.Completion != nil {
		fact.Completion = *r.Completion
	}
	if r.ModifiedAt != nil {
		fact.ModifiedAt = r.ModifiedAt.UTC()
	}
	return fact
}

// AggregateView is the public shape of one stored aggregate.
type AggregateView struct {
	BlockID         string          `json:"block_id"`
	AggregationName string          `json:"aggregation_name"`
	Earned          decimal.Decimal `json:"earned"`
	Possible        decimal.Decimal `json:"possible"`
	Percent         float64         `json:"percent"`
	LastModified    time.Time       `json:"last_modified"`
}

// NewAggregateView converts a stored aggregate.
func NewAggregateView(agg completion.Aggregate) AggregateView {
	return AggregateView{
		BlockID:         agg.BlockID,
		AggregationName: agg.AggregationName,
		Earned:          agg.Earned,
		Possible:        agg.Possible,
		Percent:         agg.Percent,
		LastModified:    agg.LastModified,
	}
}
