package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage"
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid progress query")

// Service implements the read side: stored aggregates plus the staleness flag.
type Service struct {
	aggregates storage.AggregateStore
	ledger     storage.StalenessLedger
	registry   completion.Registry
}

// NewService creates a new projection service.
func NewService(aggregates storage.AggregateStore, ledger storage.StalenessLedger, registry completion.Registry) *Service {
	return &Service{
		aggregates: aggregates,
		ledger:     ledger,
		registry:   registry,
	}
}

// Progress returns the learner's stored aggregates in a course grouped by
// aggregation name. It never triggers recomputation.
func (s *Service) Progress(ctx context.Context, req ProgressRequest) (ProgressResponse, error) {
	pair := completion.Pair{LearnerID: req.LearnerID, CourseID: req.CourseID}
	if err := pair.Validate(); err != nil {
		return ProgressResponse{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	wanted, err := s.wantedAggregations(req.Aggregations)
	if err != nil {
		return ProgressResponse{}, err
	}

	rows, err := s.aggregates.LoadAggregates(ctx, pair)
	if err != nil {
		return ProgressResponse{}, fmt.Errorf("load aggregates for %s: %w", pair, err)
	}

	stale, err := s.ledger.HasUnresolved(ctx, pair)
	if err != nil {
		return ProgressResponse{}, fmt.Errorf("check staleness for %s: %w", pair, err)
	}

	groups := groupByAggregation(rows, wanted)
	summary := make(map[string]AggregationSummary, len(groups))
	for name, views := range groups {
		summary[name] = summarize(views)
	}

	slog.Debug("[Projection] Progress served",
		"pair", pair.String(),
		"rows", len(rows),
		"stale", stale,
	)

	return ProgressResponse{
		LearnerID:    pair.LearnerID,
		CourseID:     pair.CourseID,
		Stale:        stale,
		Aggregations: groups,
		Summary:      summary,
	}, nil
}

func (s *Service) wantedAggregations(requested []string) (map[string]bool, error) {
	wanted := make(map[string]bool)
	if len(requested) == 0 {
		for _, name := range s.registry.Registered() {
			wanted[name] = true
		}
		return wanted, nil
	}

	for _, raw := range requested {
		for _, name := range strings.Split(raw, ",") {
			name = completion.NormalizeName(name)
			if name == "" {
				continue
			}
			if !s.registry.IsRegistered(name) {
				return nil, fmt.Errorf("%w: aggregation %q is not registered", ErrInvalidQuery, name)
			}
			wanted[name] = true
		}
	}
	return wanted, nil
}
