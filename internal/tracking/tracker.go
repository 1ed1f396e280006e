package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
)

const (
	genericNameFormat = "edx.completion.aggregator.%s"
	biNameFormat      = "edx.bi.completion.user.%s.%s"
)

var hundred = decimal.NewFromInt(100)

// Event is one lifecycle notification as emitted to a sink.
type Event struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Type               EventType       `json:"event_type"`
	LearnerID          string          `json:"learner_id"`
	RunID              string          `json:"run_id"`
	Label              string          `json:"label"`
	CourseID           string          `json:"course_id"`
	BlockID            string          `json:"block_id"`
	BlockType          string          `json:"block_type"`
	CompletionPercent  float64         `json:"completion_percent"`
	CompletionEarned   decimal.Decimal `json:"completion_earned"`
	CompletionPossible decimal.Decimal `json:"completion_possible"`
	Timestamp          time.Time       `json:"timestamp"`
}

// Emitter delivers events to an analytics backend.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Options controls which changes produce events.
type Options struct {
	Enabled   bool
	BIEnabled bool
}

var _ aggregation.NotificationSink = (*Tracker)(nil)

// Tracker turns committed aggregate changes into lifecycle events.
type Tracker struct {
	emitter  Emitter
	registry completion.Registry
	opts     Options
	nowFn    func() time.Time
}

// NewTracker creates a Tracker emitting through emitter.
func NewTracker(emitter Emitter, registry completion.Registry, opts Options) *Tracker {
	return &Tracker{
		emitter:  emitter,
		registry: registry,
		opts:     opts,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// OnAggregateChanged emits the events for one change. Changes to untracked
// aggregation types are ignored, as is everything when tracking is disabled.
func (t *Tracker) OnAggregateChanged(ctx context.Context, change aggregation.Change) error {
	if !t.opts.Enabled {
		return nil
	}
	agg := change.Aggregate
	if !t.registry.IsTracked(agg.AggregationName) {
		return nil
	}

	types, err := Transition(change.OldPercent, change.NewPercent, change.IsNew, change.Revoke)
	if err != nil {
		return fmt.Errorf("block %s of %s: %w", agg.BlockID, agg.Pair(), err)
	}

	var errs []error
	for _, typ := range types {
		for _, event := range t.buildEvents(change, typ) {
			if err := t.emitter.Emit(ctx, event); err != nil {
				errs = append(errs, fmt.Errorf("emit %s: %w", event.Name, err))
				continue
			}
			slog.Debug("[Tracker] Event emitted",
				"name", event.Name,
				"learner_id", event.LearnerID,
				"block_id", event.BlockID,
			)
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) buildEvents(change aggregation.Change, typ EventType) []Event {
	agg := change.Aggregate
	base := Event{
		Type:               typ,
		LearnerID:          agg.LearnerID,
		RunID:              change.RunID,
		Label:              label(agg.AggregationName, agg.BlockID, typ),
		CourseID:           agg.CourseID,
		BlockID:            agg.BlockID,
		BlockType:          agg.AggregationName,
		CompletionPercent:  decimal.NewFromFloat(change.NewPercent).Mul(hundred).InexactFloat64(),
		CompletionEarned:   agg.Earned,
		CompletionPossible: agg.Possible,
		Timestamp:          t.nowFn(),
	}

	generic := base
	generic.ID = uuid.NewString()
	generic.Name = fmt.Sprintf(genericNameFormat, typ)
	if !t.opts.BIEnabled {
		return []Event{generic}
	}

	bi := base
	bi.ID = uuid.NewString()
	bi.Name = fmt.Sprintf(biNameFormat, agg.AggregationName, typ)
	return []Event{bi, generic}
}

func label(aggregationName, blockID string, typ EventType) string {
	wording := string(typ)
	if typ == EventRevoked {
		wording = "completion revoked"
	}
	return fmt.Sprintf("%s %s %s", aggregationName, blockID, wording)
}
