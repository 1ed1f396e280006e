package completion

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate is the persisted progress of one learner on one aggregator block.
//
// Invariant: 0 <= Earned <= Possible, and Percent == Earned/Possible when
// Possible > 0, 1.0 otherwise. Percent is a denormalised convenience value;
// it is always derived, never set independently.
type Aggregate struct {
	LearnerID       string
	CourseID        string
	BlockID         string
	AggregationName string
	Earned          decimal.Decimal // exact sum of leaf contributions
	Possible        decimal.Decimal
	Percent         float64
	LastModified    time.Time
}

// NewAggregate builds an Aggregate and derives its percent. The aggregation
// name is the block type in canonical form.
func NewAggregate(pair Pair, block Block, earned, possible decimal.Decimal, modified time.Time) (Aggregate, error) {
	agg := Aggregate{
		LearnerID:       pair.LearnerID,
		CourseID:        pair.CourseID,
		BlockID:         block.ID,
		AggregationName: NormalizeName(block.Type),
		Earned:          earned,
		Possible:        possible,
		Percent:         PercentOf(earned, possible),
		LastModified:    modified,
	}
	if err := agg.Validate(); err != nil {
		return Aggregate{}, err
	}
	return agg, nil
}

// PercentOf returns earned/possible, or 1.0 for an empty denominator
// (vacuous completion).
func PercentOf(earned, possible decimal.Decimal) float64 {
	if !possible.IsPositive() {
		return 1.0
	}
	return earned.Div(possible).InexactFloat64()
}

// Validate enforces the earned/possible/percent invariants.
func (a Aggregate) Validate() error {
	if a.BlockID == "" {
		return fmt.Errorf("aggregate: block_id is required")
	}
	if a.Earned.IsNegative() {
		return fmt.Errorf("aggregate %s: earned %s is negative", a.BlockID, a.Earned)
	}
	if a.Earned.GreaterThan(a.Possible) {
		return fmt.Errorf("aggregate %s: earned %s exceeds possible %s", a.BlockID, a.Earned, a.Possible)
	}
	if want := PercentOf(a.Earned, a.Possible); a.Percent != want {
		return fmt.Errorf("aggregate %s: percent %v inconsistent with %s/%s", a.BlockID, a.Percent, a.Earned, a.Possible)
	}
	return nil
}

// Pair returns the (learner, course) the aggregate belongs to.
func (a Aggregate) Pair() Pair {
	return Pair{LearnerID: a.LearnerID, CourseID: a.CourseID}
}

// SameValues reports whether two aggregates carry identical earned/possible
// figures. LastModified is ignored.
func (a Aggregate) SameValues(b Aggregate) bool {
	return a.Earned.Equal(b.Earned) && a.Possible.Equal(b.Possible)
}
