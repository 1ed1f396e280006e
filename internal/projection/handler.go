package projection

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	httperr "github.com/aevon-lab/completion-aggregator/internal/core/errors"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/progress/:learner_id/:course_id", s.HandleProgress)
}

// HandleProgress handles GET /v1/progress/:learner_id/:course_id
// Query parameters: aggregation (repeatable or comma separated)
func (s *Service) HandleProgress(c *gin.Context) {
	var uri struct {
		LearnerID string `uri:"learner_id" binding:"required"`
		CourseID  string `uri:"course_id" binding:"required"`
	}
	var query struct {
		Aggregations []string `form:"aggregation"`
	}

	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid path parameters",
			Details:   err.Error(),
		})
		return
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Progress(c.Request.Context(), ProgressRequest{
		LearnerID:    uri.LearnerID,
		CourseID:     uri.CourseID,
		Aggregations: query.Aggregations,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidJsonError,
				Message:   "Invalid progress query",
				Details:   err.Error(),
			})
			return
		}

		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to load progress",
			Details:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
