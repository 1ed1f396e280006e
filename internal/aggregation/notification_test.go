package aggregation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/content"
	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage/memory"
	aggregationmocks "github.com/aevon-lab/completion-aggregator/internal/mocks/aggregation"
)

func newSinkUpdater(t *testing.T, sink aggregation.NotificationSink) (*aggregation.Updater, *memory.Store) {
	t.Helper()

	provider := content.NewMemoryProvider()
	provider.SetRoot(pairA.CourseID, completion.Block{ID: "course", Type: "course", Role: completion.RoleAggregator})
	provider.SetChildren(pairA.CourseID, "course",
		completion.Block{ID: "html0", Type: "html", Role: completion.RoleCompletable},
		completion.Block{ID: "html1", Type: "html", Role: completion.RoleCompletable},
	)

	store := memory.NewStore()
	registry := completion.NewRegistry([]string{"course"}, []string{"course"})
	updater := aggregation.NewUpdater(provider, store, store, registry, aggregation.WithNotificationSink(sink))
	return updater, store
}

func saveFact(t *testing.T, store *memory.Store, blockID string, value float64) {
	t.Helper()
	require.NoError(t, store.SaveFact(context.Background(), completion.Fact{
		LearnerID:  pairA.LearnerID,
		CourseID:   pairA.CourseID,
		BlockID:    blockID,
		Completion: value,
	}))
}

func TestUpdater_SinkReceivesNewThenChangedRow(t *testing.T) {
	sink := aggregationmocks.NewNotificationSink(t)
	updater, store := newSinkUpdater(t, sink)
	saveFact(t, store, "html0", 1)

	sink.EXPECT().
		OnAggregateChanged(mock.Anything, mock.MatchedBy(func(c aggregation.Change) bool {
			return c.Aggregate.BlockID == "course" && c.IsNew && c.NewPercent == 0.5
		})).
		Return(nil).
		Once()

	first, err := updater.Update(context.Background(), pairA.LearnerID, pairA.CourseID, aggregation.UpdateOptions{})
	require.NoError(t, err)
	require.Len(t, first.Changes, 1)

	// Unchanged inputs dispatch nothing.
	_, err = updater.Update(context.Background(), pairA.LearnerID, pairA.CourseID, aggregation.UpdateOptions{})
	require.NoError(t, err)

	saveFact(t, store, "html1", 1)
	sink.EXPECT().
		OnAggregateChanged(mock.Anything, mock.MatchedBy(func(c aggregation.Change) bool {
			return c.Aggregate.BlockID == "course" && !c.IsNew && c.OldPercent == 0.5 && c.NewPercent == 1.0
		})).
		Return(nil).
		Once()

	_, err = updater.Update(context.Background(), pairA.LearnerID, pairA.CourseID, aggregation.UpdateOptions{})
	require.NoError(t, err)
}

func TestUpdater_SinkRejectionKeepsCommittedRows(t *testing.T) {
	sink := aggregationmocks.NewNotificationSink(t)
	updater, store := newSinkUpdater(t, sink)
	saveFact(t, store, "html0", 1)

	sink.EXPECT().
		OnAggregateChanged(mock.Anything, mock.AnythingOfType("aggregation.Change")).
		Return(coreerrors.ErrInvalidStateTransition).
		Once()

	result, err := updater.Update(context.Background(), pairA.LearnerID, pairA.CourseID, aggregation.UpdateOptions{Revoke: true})
	require.ErrorIs(t, err, coreerrors.ErrInvalidStateTransition)
	assert.True(t, result.Applied)

	rows, err := store.LoadAggregates(context.Background(), pairA)
	require.NoError(t, err)
	assert.Equal(t, 0.5, rows["course"].Percent)
}
