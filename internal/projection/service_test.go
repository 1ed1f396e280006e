package projection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage/memory"
	storagemocks "github.com/aevon-lab/completion-aggregator/internal/mocks/storage"
)

var (
	fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testPair  = completion.Pair{LearnerID: "42", CourseID: "course-1"}
	registry  = completion.NewRegistry([]string{"course", "chapter", "sequential"}, []string{"course"})
)

func seed(t *testing.T, store *memory.Store) {
	t.Helper()
	var rows []completion.Aggregate
	for _, r := range []struct {
		id, typ          string
		earned, possible int64
	}{
		{"course", "course", 2, 3},
		{"seq1", "sequential", 1, 2},
		{"seq2", "sequential", 1, 1},
	} {
		agg, err := completion.NewAggregate(testPair,
			completion.Block{ID: r.id, Type: r.typ, Role: completion.RoleAggregator},
			decimal.NewFromInt(r.earned), decimal.NewFromInt(r.possible), fixedTime)
		require.NoError(t, err)
		rows = append(rows, agg)
	}
	_, err := store.CommitRun(context.Background(), testPair, fixedTime, rows)
	require.NoError(t, err)
}

func TestService_Progress(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	svc := NewService(store, store, registry)

	resp, err := svc.Progress(context.Background(), ProgressRequest{LearnerID: "42", CourseID: "course-1"})
	require.NoError(t, err)

	assert.False(t, resp.Stale)
	require.Len(t, resp.Aggregations, 3)
	require.Len(t, resp.Aggregations["course"], 1)
	assert.InDelta(t, 2.0/3.0, resp.Aggregations["course"][0].Percent, 1e-9)
	assert.Len(t, resp.Aggregations["sequential"], 2)
	assert.Empty(t, resp.Aggregations["chapter"])

	seq := resp.Summary["sequential"]
	assert.Equal(t, 2, seq.Blocks)
	assert.Equal(t, 1, seq.Completed)
	assert.Equal(t, "2", seq.Earned.String())
	assert.Equal(t, "3", seq.Possible.String())
}

func TestService_ProgressFlagsStale(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	require.NoError(t, store.MarkStale(context.Background(), testPair, "html9"))
	svc := NewService(store, store, registry)

	resp, err := svc.Progress(context.Background(), ProgressRequest{LearnerID: "42", CourseID: "course-1"})
	require.NoError(t, err)
	assert.True(t, resp.Stale)
}

func TestService_ProgressFiltersAggregations(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)
	svc := NewService(store, store, registry)

	resp, err := svc.Progress(context.Background(), ProgressRequest{
		LearnerID:    "42",
		CourseID:     "course-1",
		Aggregations: []string{"Sequential, course"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Aggregations, 2)
	assert.Contains(t, resp.Aggregations, "sequential")
	assert.Contains(t, resp.Aggregations, "course")
}

func TestService_ProgressInvalidQuery(t *testing.T) {
	svc := NewService(storagemocks.NewAggregateStore(t), storagemocks.NewStalenessLedger(t), registry)

	_, err := svc.Progress(context.Background(), ProgressRequest{LearnerID: "42", CourseID: "course-1", Aggregations: []string{"vertical"}})
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = svc.Progress(context.Background(), ProgressRequest{CourseID: "course-1"})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestService_ProgressStoreErrors(t *testing.T) {
	t.Run("aggregates", func(t *testing.T) {
		aggregates := storagemocks.NewAggregateStore(t)
		aggregates.EXPECT().LoadAggregates(mock.Anything, testPair).Return(nil, errors.New("connection refused")).Once()
		svc := NewService(aggregates, storagemocks.NewStalenessLedger(t), registry)

		_, err := svc.Progress(context.Background(), ProgressRequest{LearnerID: "42", CourseID: "course-1"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("ledger", func(t *testing.T) {
		aggregates := storagemocks.NewAggregateStore(t)
		aggregates.EXPECT().LoadAggregates(mock.Anything, testPair).Return(map[string]completion.Aggregate{}, nil).Once()
		ledger := storagemocks.NewStalenessLedger(t)
		ledger.EXPECT().HasUnresolved(mock.Anything, testPair).Return(false, errors.New("connection refused")).Once()
		svc := NewService(aggregates, ledger, registry)

		_, err := svc.Progress(context.Background(), ProgressRequest{LearnerID: "42", CourseID: "course-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "check staleness")
	})
}
