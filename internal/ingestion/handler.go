package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/aevon-lab/completion-aggregator/internal/api/v1"
	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	httperr "github.com/aevon-lab/completion-aggregator/internal/core/errors"
)

const (
	msgReadBodyFailed      = "Failed to read request body"
	msgInvalidJSON         = "Invalid JSON body"
	msgPersistFailed       = "Failed to persist completion"
	msgMarkStaleFailed     = "Completion stored but could not be queued for aggregation"
	msgAggregationFailed   = "Completion stored but aggregation failed"
	msgProviderUnavailable = "Completion stored but the course content is unavailable; it will be retried"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// CompletionResponse is returned for accepted writes. Aggregates are only
// present in sync mode.
type CompletionResponse struct {
	Status     string             `json:"status"`
	Mode       Mode               `json:"mode"`
	RunID      string             `json:"run_id,omitempty"`
	Applied    *bool              `json:"applied,omitempty"`
	Aggregates []v1.AggregateView `json:"aggregates,omitempty"`
}

// IngestHandler handles HTTP POST requests for completion facts.
func (s *Service) IngestHandler(c *gin.Context) {
	req, payloadSize, err := s.parseRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := req.Validate(); err != nil {
		slog.Warn("[Ingestion] Completion validation failed", "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    err.Error(),
		})
		return
	}

	slog.Info("[Ingestion] Received completion",
		"learner_id", req.LearnerID,
		"course_id", req.CourseID,
		"block_id", req.BlockID,
		"completion", *req.Completion,
		"revoke", req.Revoke,
		"payload_size", payloadSize)

	resp, ierr := s.record(c.Request.Context(), req)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	status := http.StatusAccepted
	if resp.Mode == ModeSync {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// parseRequest reads the raw request body and binds it into a CompletionRequest.
func (s *Service) parseRequest(c *gin.Context) (*v1.CompletionRequest, int, *ingestionError) {
	// Enforce maximum body size to prevent OOM attacks
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	var req v1.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}
	return &req, len(bodyBytes), nil
}

// record stores the fact and then hands the pair to the engine according to
// the configured mode. The fact is committed before any marker is written.
func (s *Service) record(ctx context.Context, req *v1.CompletionRequest) (*CompletionResponse, *ingestionError) {
	fact := req.Fact()
	pair := completion.Pair{LearnerID: fact.LearnerID, CourseID: fact.CourseID}

	if err := s.facts.SaveFact(ctx, fact); err != nil {
		slog.Error("[Ingestion] Failed to persist completion", "error", err, "pair", pair.String(), "block_id", fact.BlockID)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgPersistFailed,
		}
	}

	switch s.mode {
	case ModeDisabled:
		return &CompletionResponse{Status: "stored", Mode: s.mode}, nil

	case ModeBatched:
		if req.Revoke {
			slog.Warn("[Ingestion] Revoke flag ignored in batched mode", "pair", pair.String(), "block_id", fact.BlockID)
		}
		if err := s.ledger.MarkStale(ctx, pair, fact.BlockID); err != nil {
			slog.Error("[Ingestion] Failed to mark pair stale", "error", err, "pair", pair.String())
			return nil, &ingestionError{
				statusCode: http.StatusInternalServerError,
				errorType:  httperr.HttpInternalError,
				message:    msgMarkStaleFailed,
			}
		}
		return &CompletionResponse{Status: "accepted", Mode: s.mode}, nil

	default:
		return s.aggregateInline(ctx, pair, fact.BlockID, req.Revoke)
	}
}

func (s *Service) aggregateInline(ctx context.Context, pair completion.Pair, blockID string, revoke bool) (*CompletionResponse, *ingestionError) {
	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	result, err := s.updater.Update(runCtx, pair.LearnerID, pair.CourseID, aggregation.UpdateOptions{Revoke: revoke})
	if err != nil {
		if errors.Is(err, httperr.ErrInvalidStateTransition) {
			slog.Warn("[Ingestion] Rejected lifecycle transition", "error", err, "pair", pair.String(), "run_id", result.RunID)
			return nil, &ingestionError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpInvalidStateTransition,
				message:    err.Error(),
			}
		}

		// Leave a marker so the batch path retries whatever the inline run
		// could not finish.
		if markErr := s.ledger.MarkStale(context.WithoutCancel(ctx), pair, blockID); markErr != nil {
			slog.Error("[Ingestion] Failed to mark pair stale after aggregation failure",
				"error", markErr, "pair", pair.String())
		}
		return nil, aggregationError(pair, err)
	}

	views := make([]v1.AggregateView, 0, len(result.Aggregates))
	for _, agg := range result.Aggregates {
		views = append(views, v1.NewAggregateView(agg))
	}
	applied := result.Applied
	return &CompletionResponse{
		Status:     "aggregated",
		Mode:       s.mode,
		RunID:      result.RunID,
		Applied:    &applied,
		Aggregates: views,
	}, nil
}

func aggregationError(pair completion.Pair, err error) *ingestionError {
	switch {
	case errors.Is(err, httperr.ErrProviderUnavailable):
		slog.Warn("[Ingestion] Aggregation deferred, provider unavailable", "error", err, "pair", pair.String())
		return &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpProviderUnavailable,
			message:    msgProviderUnavailable,
		}
	case errors.Is(err, httperr.ErrStructural):
		slog.Error("[Ingestion] Course content is malformed", "error", err, "pair", pair.String())
		return &ingestionError{
			statusCode: http.StatusUnprocessableEntity,
			errorType:  httperr.HttpStructuralError,
			message:    err.Error(),
		}
	default:
		slog.Error("[Ingestion] Aggregation failed", "error", err, "pair", pair.String())
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgAggregationFailed,
		}
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
