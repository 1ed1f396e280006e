//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/completion-aggregator/internal/api/v1"
	"github.com/aevon-lab/completion-aggregator/internal/ingestion"
	"github.com/aevon-lab/completion-aggregator/internal/projection"
)

func completionOf(learnerID, blockID string, value float64) v1.CompletionRequest {
	return v1.CompletionRequest{
		LearnerID:  learnerID,
		CourseID:   demoCourse,
		BlockID:    blockID,
		Completion: &value,
	}
}

func progress(t *testing.T, h *integrationHarness, learnerID string) projection.ProgressResponse {
	t.Helper()
	var resp projection.ProgressResponse
	status := getJSON(t, h.client, fmt.Sprintf("%s/v1/progress/%s/%s", h.baseURL, learnerID, demoCourse), &resp)
	require.Equal(t, http.StatusOK, status)
	return resp
}

func percentOf(t *testing.T, resp projection.ProgressResponse, aggregation, blockID string) float64 {
	t.Helper()
	for _, view := range resp.Aggregations[aggregation] {
		if view.BlockID == blockID {
			return view.Percent
		}
	}
	t.Fatalf("no %s aggregate for %s", aggregation, blockID)
	return 0
}

func TestCompletionAPI_SyncAggregation(t *testing.T) {
	h := startHarness(t, ingestion.Options{Enabled: true})
	defer h.close(t)

	status, body := postJSON(t, h.client, h.baseURL+"/v1/completions", completionOf("learner-sync", "html-1", 1))
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"aggregated"`)

	resp := progress(t, h, "learner-sync")
	assert.False(t, resp.Stale)
	assert.InDelta(t, 0.5, percentOf(t, resp, "sequential", "seq-1"), 1e-9)
	assert.InDelta(t, 0.0, percentOf(t, resp, "sequential", "seq-2"), 1e-9)
	assert.InDelta(t, 1.0/3.0, percentOf(t, resp, "course", "course"), 1e-9)
	assert.InDelta(t, 1.0/3.0, percentOf(t, resp, "chapter", "chapter-1"), 1e-9)
}

func TestCompletionAPI_BatchedAggregation(t *testing.T) {
	h := startHarness(t, ingestion.Options{Enabled: true, Async: true})
	defer h.close(t)

	for _, blockID := range []string{"html-1", "html-2", "problem-1"} {
		status, body := postJSON(t, h.client, h.baseURL+"/v1/completions", completionOf("learner-batch", blockID, 1))
		require.Equal(t, http.StatusAccepted, status, string(body))
	}

	before := progress(t, h, "learner-batch")
	assert.True(t, before.Stale)
	assert.Empty(t, before.Aggregations["course"])

	status, body := postJSON(t, h.client, h.baseURL+"/v1/admin/aggregate", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"markers_resolved":3`)

	after := progress(t, h, "learner-batch")
	assert.False(t, after.Stale)
	assert.InDelta(t, 1.0, percentOf(t, after, "course", "course"), 1e-9)
	assert.Equal(t, 2, after.Summary["sequential"].Completed)
}

func TestCompletionAPI_ConcurrentLearnersStayIsolated(t *testing.T) {
	h := startHarness(t, ingestion.Options{Enabled: true, Async: true})
	defer h.close(t)

	learners := []string{"learner-a", "learner-b", "learner-c", "learner-d"}
	var wg sync.WaitGroup
	for i, learnerID := range learners {
		wg.Add(1)
		go func(n int, learnerID string) {
			defer wg.Done()
			blocks := []string{"html-1", "html-2", "problem-1"}[:n%3+1]
			for _, blockID := range blocks {
				status, body := postJSON(t, h.client, h.baseURL+"/v1/completions", completionOf(learnerID, blockID, 1))
				assert.Equal(t, http.StatusAccepted, status, string(body))
			}
		}(i, learnerID)
	}
	wg.Wait()

	tick, err := h.coordinator.PerformThenCleanup(context.Background())
	require.NoError(t, err)
	summary := tick.Summary()
	assert.Equal(t, len(learners), summary.Succeeded)
	assert.Zero(t, summary.Failed)

	expected := []float64{1.0 / 3.0, 2.0 / 3.0, 1.0, 1.0 / 3.0}
	for i, learnerID := range learners {
		resp := progress(t, h, learnerID)
		assert.False(t, resp.Stale, learnerID)
		assert.InDelta(t, expected[i], percentOf(t, resp, "course", "course"), 1e-9, learnerID)
	}
}

func TestCompletionAPI_UnknownCourseIsUnavailable(t *testing.T) {
	h := startHarness(t, ingestion.Options{Enabled: true})
	defer h.close(t)

	req := completionOf("learner-x", "html-1", 1)
	req.CourseID = "course-v1:edX+Missing+2024"
	status, body := postJSON(t, h.client, h.baseURL+"/v1/completions", req)
	require.Equal(t, http.StatusServiceUnavailable, status, string(body))

	var stale int
	require.NoError(t, h.db.QueryRow(
		`SELECT COUNT(*) FROM stale_markers WHERE learner_id = $1 AND resolved = FALSE`, "learner-x",
	).Scan(&stale))
	assert.Equal(t, 1, stale)
}
