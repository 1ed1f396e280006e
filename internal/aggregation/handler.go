package aggregation

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/aevon-lab/completion-aggregator/internal/core/errors"
)

// Operator is the coordinator surface exposed to operators.
type Operator interface {
	PerformAggregation(ctx context.Context) (BatchReport, error)
	PerformThenCleanup(ctx context.Context) (TickReport, error)
	PerformCleanup(ctx context.Context) (int64, error)
}

// Pruner removes aggregate rows for blocks no longer in the course.
type Pruner interface {
	Prune(ctx context.Context, learnerID, courseID string) (PruneResult, error)
}

// AdminHandler serves manual triggers for the batch path.
type AdminHandler struct {
	operator Operator
	pruner   Pruner
}

// NewAdminHandler creates the admin routes handler.
func NewAdminHandler(operator Operator, pruner Pruner) *AdminHandler {
	return &AdminHandler{operator: operator, pruner: pruner}
}

// FailureSummary is one failed pair in a TickSummary.
type FailureSummary struct {
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
	Error     string `json:"error"`
}

// TickSummary flattens a TickReport for operators.
type TickSummary struct {
	Batches   int              `json:"batches"`
	Selected  int              `json:"selected"`
	Succeeded int              `json:"succeeded"`
	Discarded int              `json:"discarded"`
	Failed    int              `json:"failed"`
	Resolved  int64            `json:"markers_resolved"`
	Purged    int64            `json:"markers_purged"`
	Failures  []FailureSummary `json:"failures,omitempty"`
}

// Summary totals the report across batches.
func (t TickReport) Summary() TickSummary {
	v := TickSummary{Batches: len(t.Batches), Purged: t.Purged}
	for _, b := range t.Batches {
		v.Selected += b.Selected
		v.Succeeded += b.Succeeded
		v.Discarded += b.Discarded
		v.Failed += b.Failed
		v.Resolved += b.Resolved
		for _, f := range b.Failures {
			v.Failures = append(v.Failures, FailureSummary{
				LearnerID: f.Pair.LearnerID,
				CourseID:  f.Pair.CourseID,
				Error:     f.Err.Error(),
			})
		}
	}
	return v
}

// RegisterRoutes registers the admin routes.
func (h *AdminHandler) RegisterRoutes(r gin.IRouter) {
	admin := r.Group("/v1/admin")
	admin.POST("/aggregate", h.HandleAggregate)
	admin.POST("/aggregate/batch", h.HandleAggregateBatch)
	admin.POST("/cleanup", h.HandleCleanup)
	admin.POST("/prune/:learner_id/:course_id", h.HandlePrune)
}

// HandleAggregate drains the staleness ledger once, then purges old markers.
func (h *AdminHandler) HandleAggregate(c *gin.Context) {
	tick, err := h.operator.PerformThenCleanup(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrTickInProgress) {
			c.JSON(http.StatusConflict, httperr.ErrorResponse{
				ErrorType: httperr.HttpTickInProgress,
				Message:   "An aggregation tick is already running",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Aggregation failed",
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, tick.Summary())
}

// HandleAggregateBatch processes a single batch of stale pairs and leaves
// resolved markers in place.
func (h *AdminHandler) HandleAggregateBatch(c *gin.Context) {
	report, err := h.operator.PerformAggregation(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Aggregation failed",
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, TickReport{Batches: []BatchReport{report}}.Summary())
}

// HandleCleanup purges resolved markers past the retention window.
func (h *AdminHandler) HandleCleanup(c *gin.Context) {
	purged, err := h.operator.PerformCleanup(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Cleanup failed",
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"markers_purged": purged})
}

// HandlePrune deletes a pair's rows for blocks that left the course.
func (h *AdminHandler) HandlePrune(c *gin.Context) {
	var uri struct {
		LearnerID string `uri:"learner_id" binding:"required"`
		CourseID  string `uri:"course_id" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	result, err := h.pruner.Prune(c.Request.Context(), uri.LearnerID, uri.CourseID)
	if err != nil {
		status, errType := http.StatusInternalServerError, httperr.HttpInternalError
		switch {
		case errors.Is(err, httperr.ErrProviderUnavailable):
			status, errType = http.StatusServiceUnavailable, httperr.HttpProviderUnavailable
		case errors.Is(err, httperr.ErrStructural):
			status, errType = http.StatusUnprocessableEntity, httperr.HttpStructuralError
		}
		c.JSON(status, httperr.ErrorResponse{
			ErrorType: errType,
			Message:   "Prune failed",
			Details:   err.Error(),
		})
		return
	}

	blocks := result.BlockIDs
	if blocks == nil {
		blocks = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"learner_id": uri.LearnerID,
		"course_id":  uri.CourseID,
		"deleted":    result.Deleted,
		"block_ids":  blocks,
	})
}
