package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/content"
	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	httperr "github.com/aevon-lab/completion-aggregator/internal/core/errors"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage/memory"
	aggregationmocks "github.com/aevon-lab/completion-aggregator/internal/mocks/aggregation"
	storagemocks "github.com/aevon-lab/completion-aggregator/internal/mocks/storage"
)

var pair = completion.Pair{LearnerID: "42", CourseID: "course-1"}

const validBody = `{"learner_id":"42","course_id":"course-1","block_id":"html0","completion":1}`

type fixture struct {
	facts   *storagemocks.FactStore
	ledger  *storagemocks.StalenessLedger
	updater *aggregationmocks.PairUpdater
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		facts:   storagemocks.NewFactStore(t),
		ledger:  storagemocks.NewStalenessLedger(t),
		updater: aggregationmocks.NewPairUpdater(t),
	}
}

func (f *fixture) serve(t *testing.T, opts Options, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(f.facts, f.ledger, f.updater, opts)
	r := gin.New()
	svc.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/v1/completions", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func (f *fixture) expectSave() {
	f.facts.EXPECT().
		SaveFact(mock.Anything, mock.MatchedBy(func(fact completion.Fact) bool {
			return fact.LearnerID == "42" && fact.BlockID == "html0" && fact.Completion == 1
		})).
		Return(nil).
		Once()
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) httperr.ErrorResponse {
	t.Helper()
	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	return errResp
}

func TestIngestHandler_BatchedMarksStale(t *testing.T) {
	f := newFixture(t)
	f.expectSave()
	f.ledger.EXPECT().MarkStale(mock.Anything, pair, "html0").Return(nil).Once()

	resp := f.serve(t, Options{Enabled: true, Async: true}, validBody)

	require.Equal(t, http.StatusAccepted, resp.Code)
	var result CompletionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, "accepted", result.Status)
	assert.Equal(t, ModeBatched, result.Mode)
}

func TestIngestHandler_DisabledOnlyStores(t *testing.T) {
	f := newFixture(t)
	f.expectSave()

	resp := f.serve(t, Options{Enabled: false}, validBody)

	require.Equal(t, http.StatusAccepted, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"stored"`)
}

func TestIngestHandler_SyncReturnsAggregates(t *testing.T) {
	f := newFixture(t)
	f.expectSave()

	agg, err := completion.NewAggregate(pair,
		completion.Block{ID: "course", Type: "course", Role: completion.RoleAggregator},
		decimal.NewFromInt(1), decimal.NewFromInt(2), time.Time{})
	require.NoError(t, err)

	f.updater.EXPECT().
		Update(mock.Anything, "42", "course-1", aggregation.UpdateOptions{}).
		Return(aggregation.Result{Pair: pair, RunID: "run-1", Applied: true, Aggregates: []completion.Aggregate{agg}}, nil).
		Once()

	resp := f.serve(t, Options{Enabled: true}, validBody)

	require.Equal(t, http.StatusOK, resp.Code)
	var result CompletionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, "aggregated", result.Status)
	assert.Equal(t, "run-1", result.RunID)
	require.NotNil(t, result.Applied)
	assert.True(t, *result.Applied)
	require.Len(t, result.Aggregates, 1)
	assert.Equal(t, 0.5, result.Aggregates[0].Percent)
}

func TestIngestHandler_SyncPassesRevoke(t *testing.T) {
	f := newFixture(t)
	f.facts.EXPECT().SaveFact(mock.Anything, mock.Anything).Return(nil).Once()
	f.updater.EXPECT().
		Update(mock.Anything, "42", "course-1", aggregation.UpdateOptions{Revoke: true}).
		Return(aggregation.Result{RunID: "run-2", Applied: true}, nil).
		Once()

	resp := f.serve(t, Options{Enabled: true},
		`{"learner_id":"42","course_id":"course-1","block_id":"html0","completion":0,"revoke":true}`)

	require.Equal(t, http.StatusOK, resp.Code)
}

func TestIngestHandler_SyncErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMarker bool
	}{
		{
			name:       "provider unavailable",
			err:        fmt.Errorf("content root for 42/course-1: %w: %w", httperr.ErrProviderUnavailable, errors.New("dial tcp: refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   httperr.HttpProviderUnavailable,
			wantMarker: true,
		},
		{
			name:       "structural",
			err:        fmt.Errorf("block %q is its own ancestor: %w", "seq1", httperr.ErrStructural),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   httperr.HttpStructuralError,
			wantMarker: true,
		},
		{
			name:       "invalid transition",
			err:        fmt.Errorf("block course: %w", httperr.ErrInvalidStateTransition),
			wantStatus: http.StatusConflict,
			wantType:   httperr.HttpInvalidStateTransition,
		},
		{
			name:       "commit failure",
			err:        errors.New("commit aggregates: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantType:   httperr.HttpInternalError,
			wantMarker: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.expectSave()
			f.updater.EXPECT().Update(mock.Anything, "42", "course-1", mock.Anything).
				Return(aggregation.Result{}, tt.err).Once()
			if tt.wantMarker {
				f.ledger.EXPECT().MarkStale(mock.Anything, pair, "html0").Return(nil).Once()
			}

			resp := f.serve(t, Options{Enabled: true}, validBody)

			require.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, tt.wantType, decodeError(t, resp).ErrorType)
		})
	}
}

func TestIngestHandler_InvalidJSON(t *testing.T) {
	f := newFixture(t)

	resp := f.serve(t, Options{Enabled: true, Async: true}, "not json")

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, httperr.HttpInvalidJsonError, decodeError(t, resp).ErrorType)
}

func TestIngestHandler_ValidationFailure(t *testing.T) {
	bodies := map[string]string{
		"missing completion": `{"learner_id":"42","course_id":"course-1","block_id":"html0"}`,
		"out of range":       `{"learner_id":"42","course_id":"course-1","block_id":"html0","completion":2}`,
		"missing learner":    `{"course_id":"course-1","block_id":"html0","completion":1}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			resp := f.serve(t, Options{Enabled: true, Async: true}, body)
			require.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestIngestHandler_StorageError(t *testing.T) {
	f := newFixture(t)
	f.facts.EXPECT().SaveFact(mock.Anything, mock.Anything).Return(errors.New("database connection failed")).Once()

	resp := f.serve(t, Options{Enabled: true, Async: true}, validBody)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, httperr.HttpInternalError, decodeError(t, resp).ErrorType)
}

func TestIngestHandler_MarkStaleError(t *testing.T) {
	f := newFixture(t)
	f.expectSave()
	f.ledger.EXPECT().MarkStale(mock.Anything, pair, "html0").Return(errors.New("connection reset")).Once()

	resp := f.serve(t, Options{Enabled: true, Async: true}, validBody)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, msgMarkStaleFailed, decodeError(t, resp).Message)
}

func TestIngestHandler_BodySizeLimit(t *testing.T) {
	f := newFixture(t)
	oversized := `{"learner_id":"` + strings.Repeat("a", 1024*1024+1) + `"}`

	resp := f.serve(t, Options{Enabled: true, Async: true, MaxBodySizeMB: 1}, oversized)

	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestNewService_Mode(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, ModeDisabled, NewService(f.facts, f.ledger, nil, Options{}).Mode())
	assert.Equal(t, ModeBatched, NewService(f.facts, f.ledger, nil, Options{Enabled: true, Async: true}).Mode())
	assert.Equal(t, ModeSync, NewService(f.facts, f.ledger, f.updater, Options{Enabled: true}).Mode())
	assert.Panics(t, func() { NewService(f.facts, f.ledger, nil, Options{Enabled: true}) })
}

func TestIngestHandler_SyncRunTimeoutLeavesMarker(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	provider := content.NewMemoryProvider()
	provider.SetRoot(pair.CourseID, completion.Block{ID: "course", Type: "course", Role: completion.RoleAggregator})
	provider.SetChildren(pair.CourseID, "course", completion.Block{ID: "html0", Type: "html", Role: completion.RoleCompletable})
	provider.SetDelay(time.Minute)
	registry := completion.NewRegistry([]string{"course"}, []string{"course"})
	updater := aggregation.NewUpdater(provider, store, store, registry)

	svc := NewService(store, store, updater, Options{Enabled: true, RunTimeout: 20 * time.Millisecond})
	r := gin.New()
	svc.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/v1/completions", strings.NewReader(validBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	started := time.Now()
	r.ServeHTTP(resp, req)

	assert.Less(t, time.Since(started), 10*time.Second)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, httperr.HttpProviderUnavailable, decodeError(t, resp).ErrorType)

	pending, err := store.HasUnresolved(context.Background(), pair)
	require.NoError(t, err)
	assert.True(t, pending)

	snapshot, err := store.FactsFor(context.Background(), pair)
	require.NoError(t, err)
	assert.Contains(t, snapshot.Facts, "html0")
}
