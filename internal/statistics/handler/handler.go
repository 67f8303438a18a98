// Package handler provides HTTP handlers for statistics endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/festy23/mergequeue/internal/statistics/model"
	"github.com/festy23/mergequeue/internal/statistics/service"
)

// Handler handles HTTP requests for statistics endpoints.
type Handler struct {
	service service.Service
	logger  *zap.SugaredLogger
}

// New creates a new statistics handler instance.
func New(svc service.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// GetPullRequestStatistics handles GET /statistics/pullrequests request.
// @Summary Get statistics for pull requests
// @Tags Statistics
// @Produce json
// @Param repository query string false "owner/name"
// @Success 200 {object} model.PullRequestStatisticsResponse
// @Failure 500 {object} ErrorResponse
// @Router /statistics/pullrequests [get] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) GetPullRequestStatistics(c *gin.Context) {
	var query model.Query
	if err := c.ShouldBindQuery(&query); err != nil {
		errorResponse(c, "INVALID_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetPullRequestStatistics(c.Request.Context(), query)
	if err != nil {
		h.logger.Errorw("error getting pull request statistics", "error", err)
		errorResponse(c, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetBuildStatistics handles GET /statistics/builds request.
// @Summary Get statistics for builds
// @Tags Statistics
// @Produce json
// @Param repository query string false "owner/name"
// @Success 200 {object} model.BuildStatisticsResponse
// @Failure 500 {object} ErrorResponse
// @Router /statistics/builds [get] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) GetBuildStatistics(c *gin.Context) {
	var query model.Query
	if err := c.ShouldBindQuery(&query); err != nil {
		errorResponse(c, "INVALID_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetBuildStatistics(c.Request.Context(), query)
	if err != nil {
		h.logger.Errorw("error getting build statistics", "error", err)
		errorResponse(c, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ErrorBody is the code and message of a failed statistics request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorBody the same way the other API modules do.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func errorResponse(c *gin.Context, code, message string, status int) {
	c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}
