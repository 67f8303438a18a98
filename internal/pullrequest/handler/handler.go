// Package handler provides HTTP handlers for pullrequest endpoints.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
	"github.com/festy23/mergequeue/internal/pullrequest/service"
)

// Handler handles HTTP requests for pullrequest endpoints.
type Handler struct {
	service service.Service
	logger  *zap.SugaredLogger
}

// New creates a new pullrequest handler instance.
func New(svc service.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

// UpsertPullRequest handles POST /pullRequest/upsert request.
// @Summary Create or update a pull request from its latest observed state
// @Tags PullRequests
// @Accept json
// @Produce json
// @Param request body pullrequestModel.UpsertPullRequestRequest true "Request"
// @Success 200 {object} pullrequestModel.PullRequestResponse
// @Failure 400 {object} ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /pullRequest/upsert [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) UpsertPullRequest(c *gin.Context) {
	var req pullrequestModel.UpsertPullRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.UpsertPullRequest(c.Request.Context(), &req)
	h.respond(c, "upserting pull request", view, err)
}

// GetPullRequest handles GET /pullRequest/get request.
// @Summary Get a pull request with its current try build
// @Tags PullRequests
// @Produce json
// @Param repository query string true "Repository in owner/name form"
// @Param number query int true "Pull request number"
// @Success 200 {object} pullrequestModel.PullRequestResponse
// @Failure 400 {object} ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 {object} ErrorResponse "PR not found"
// @Router /pullRequest/get [get] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) GetPullRequest(c *gin.Context) {
	var key pullrequestModel.PullRequestKey
	if err := c.ShouldBindQuery(&key); err != nil {
		errorResponse(c, "INVALID_REQUEST", "repository and number query parameters are required",
			http.StatusBadRequest)
		return
	}

	view, err := h.service.GetPullRequest(c.Request.Context(), key.Repository, key.Number)
	h.respond(c, "getting pull request", view, err)
}

// GetPullRequestByBuild handles GET /pullRequest/byBuild/:build_id request.
// @Summary Get the pull request whose current try build is build_id
// @Tags PullRequests
// @Produce json
// @Param build_id path int true "Build ID"
// @Success 200 {object} pullrequestModel.PullRequestResponse
// @Failure 400 {object} ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 {object} ErrorResponse "No pull request points at the build"
// @Router /pullRequest/byBuild/{build_id} [get] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) GetPullRequestByBuild(c *gin.Context) {
	buildID, err := strconv.ParseInt(c.Param("build_id"), 10, 64)
	if err != nil || buildID <= 0 {
		errorResponse(c, "INVALID_REQUEST", "build_id must be a positive integer", http.StatusBadRequest)
		return
	}

	view, err := h.service.GetPullRequestByBuildID(c.Request.Context(), buildID)
	h.respond(c, "getting pull request by build", view, err)
}

// Approve handles POST /pullRequest/approve request.
// @Summary Approve a pull request at a commit
// @Tags PullRequests
// @Accept json
// @Produce json
// @Param request body pullrequestModel.ApproveRequest true "Request"
// @Success 200 {object} pullrequestModel.PullRequestResponse
// @Failure 400 {object} ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 {object} ErrorResponse "PR not found"
// @Router /pullRequest/approve [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) Approve(c *gin.Context) {
	var req pullrequestModel.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.Approve(c.Request.Context(), &req)
	h.respond(c, "approving pull request", view, err)
}

// Unapprove handles POST /pullRequest/unapprove request.
// @Summary Remove the approval of a pull request
// @Tags PullRequests
// @Accept json
// @Produce json
// @Param request body pullrequestModel.PullRequestKey true "Request"
// @Success 200 <class 'object'> pullrequestModel.PullRequestResponse
// @Failure 400 <class 'object'> ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 <class 'object'> ErrorResponse "PR not found"
// @Router /pullRequest/unapprove [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) Unapprove(c *gin.Context) {
	var req pullrequestModel.PullRequestKey
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.Unapprove(c.Request.Context(), &req)
	h.respond(c, "unapproving pull request", view, err)
}

// SetPriority handles POST /pullRequest/priority request.
// @Summary Set or clear the merge queue priority
// @Tags PullRequests
// @Accept json
// @Produce json
// @Param request body pullrequestModel.SetPriorityRequest true "Request"
// @Success 200 <class 'object'> pullrequestModel.PullRequestResponse
// @Failure 400 <class 'object'> ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 <class 'object'> ErrorResponse "PR not found"
// @Router /pullRequest/priority [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) SetPriority(c *gin.Context) {
	var req pullrequestModel.SetPriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.SetPriority(c.Request.Context(), &req)
	h.respond(c, "setting priority", view, err)
}

// SetRollupMode handles POST /pullRequest/rollup request.
// @Summary Set or clear the rollup mode
// @Tags PullRequests
// @Accept json
// @Produce json
// @Param request body pullrequestModel.SetRollupModeRequest true "Request"
// @Success 200 <class 'object'> pullrequestModel.PullRequestResponse
// @Failure 400 <class 'object'> ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 <class 'object'> ErrorResponse "PR not found"
// @Router /pullRequest/rollup [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) SetRollupMode(c *gin.Context) {
	var req pullrequestModel.SetRollupModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.SetRollupMode(c.Request.Context(), &req)
	h.respond(c, "setting rollup mode", view, err)
}

// SetDelegation handles POST /pullRequest/delegate request.
// @Summary Delegate try or review permissions to the pull request author
// @Tags PullRequests
// @Accept json
// @Produce json
// @Param request body pullrequestModel.SetDelegationRequest true "Request"
// @Success 200 {object} pullrequestModel.PullRequestResponse
// @Failure 400 {object} ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 {object} ErrorResponse "PR not found"
// @Failure 409 {object} ErrorResponse "Delegation not supported by schema (DELEGATION_UNSUPPORTED)"
// @Router /pullRequest/delegate [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) SetDelegation(c *gin.Context) {
	var req pullrequestModel.SetDelegationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.SetDelegation(c.Request.Context(), &req)
	h.respond(c, "setting delegation", view, err)
}

// StartTryBuild handles POST /pullRequest/try request.
// @Summary Record a new try build and link it to the pull request
// @Tags PullRequests
// @Accept json
// @Produce json
// @Param request body pullrequestModel.StartTryBuildRequest true "Request"
// @Success 201 {object} pullrequestModel.PullRequestResponse
// @Failure 400 {object} ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 {object} ErrorResponse "PR not found"
// @Failure 409 {object} ErrorResponse "Parent last without a previous try build (NO_PREVIOUS_BUILD)"
// @Router /pullRequest/try [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) StartTryBuild(c *gin.Context) {
	var req pullrequestModel.StartTryBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.StartTryBuild(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "starting try build", err)
		return
	}

	c.JSON(http.StatusCreated, pullrequestModel.PullRequestResponse{PR: view})
}

// CancelTryBuild handles POST /pullRequest/try/cancel request.
// @Summary Cancel the current try build
// @Tags PullRequests
// @Accept json
// @Produce json
// @Param request body pullrequestModel.PullRequestKey true "Request"
// @Success 200 {object} pullrequestModel.PullRequestResponse
// @Failure 404 {object} ErrorResponse "PR not found"
// @Failure 409 {object} ErrorResponse "No try build (NO_TRY_BUILD)"
// @Router /pullRequest/try/cancel [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) CancelTryBuild(c *gin.Context) {
	var req pullrequestModel.PullRequestKey
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.CancelTryBuild(c.Request.Context(), &req)
	h.respond(c, "cancelling try build", view, err)
}

// RecordBuildResult handles POST /build/status request.
// @Summary Record the outcome of a build
// @Tags Builds
// @Accept json
// @Produce json
// @Param request body pullrequestModel.RecordBuildResultRequest true "Request"
// @Success 200 {object} pullrequestModel.PullRequestResponse
// @Failure 400 {object} ErrorResponse "Bad request (INVALID_REQUEST)"
// @Failure 404 {object} ErrorResponse "Build not found or superseded"
// @Failure 409 {object} ErrorResponse "Build already finished (BUILD_FINISHED)"
// @Router /build/status [post] //nolint:godot // Swagger annotation should not end with period
func (h *Handler) RecordBuildResult(c *gin.Context) {
	var req pullrequestModel.RecordBuildResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, "INVALID_REQUEST", "invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.RecordBuildResult(c.Request.Context(), &req)
	h.respond(c, "recording build result", view, err)
}

func (h *Handler) respond(c *gin.Context, action string, view *pullrequestModel.PullRequestView, err error) {
	if err != nil {
		h.fail(c, action, err)
		return
	}
	c.JSON(http.StatusOK, pullrequestModel.PullRequestResponse{PR: view})
}

func (h *Handler) fail(c *gin.Context, action string, err error) {
	if serviceErrorResponse(c, err) {
		h.logger.Errorw("error "+action, "error", err)
	}
}
