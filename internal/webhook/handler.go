// Package webhook translates GitHub webhook deliveries into pull request and
// build reconciliation calls.
package webhook

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v54/github"
	"go.uber.org/zap"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
)

// Reconciler is the part of the pull request service driven by webhooks.
type Reconciler interface {
	UpsertPullRequest(
		ctx context.Context,
		req *pullrequestModel.UpsertPullRequestRequest,
	) (*pullrequestModel.PullRequestView, error)
	RecordBuildResultByCommit(
		ctx context.Context,
		repository, branch, commitSHA string,
		status buildModel.Status,
	) (*pullrequestModel.PullRequestView, error)
}

// Handler handles GitHub webhook deliveries.
type Handler struct {
	reconciler Reconciler
	secret     []byte
	logger     *zap.SugaredLogger
}

// New creates a new webhook handler. An empty secret accepts unsigned deliveries.
func New(reconciler Reconciler, secret string, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		reconciler: reconciler,
		secret:     []byte(secret),
		logger:     logger,
	}
}

type deliveryResponse struct {
	Status string `json:"status"`
}

// Handle handles POST /github/webhook request.
func (h *Handler) Handle(c *gin.Context) {
	payload, err := github.ValidatePayload(c.Request, h.secret)
	if err != nil {
		h.logger.Warnw("rejected webhook delivery",
			"delivery", github.DeliveryID(c.Request), "error", err)
		errorResponse(c, "INVALID_SIGNATURE", "payload validation failed", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(c.Request)
	if !handledEvents[eventType] {
		h.logger.Debugw("unsupported webhook event", "event", eventType)
		c.JSON(http.StatusAccepted, deliveryResponse{Status: "ignored"})
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Warnw("unparsable webhook payload",
			"event", eventType, "delivery", github.DeliveryID(c.Request), "error", err)
		errorResponse(c, "INVALID_REQUEST", "malformed event payload", http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()
	switch event := event.(type) {
	case *github.PingEvent:
		c.JSON(http.StatusOK, deliveryResponse{Status: "pong"})
		return
	case *github.PullRequestEvent:
		err = h.handlePullRequest(ctx, event)
	case *github.CheckSuiteEvent:
		err = h.handleCheckSuite(ctx, event)
	default:
		c.JSON(http.StatusAccepted, deliveryResponse{Status: "ignored"})
		return
	}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, deliveryResponse{Status: "processed"})
	case errors.Is(err, errIgnored):
		c.JSON(http.StatusAccepted, deliveryResponse{Status: "ignored"})
	case isBadPayload(err):
		h.logger.Warnw("malformed webhook payload", "event", eventType, "error", err)
		errorResponse(c, "INVALID_REQUEST", err.Error(), http.StatusBadRequest)
	default:
		// GitHub redelivers on 5xx.
		h.logger.Errorw("failed to process webhook",
			"event", eventType, "delivery", github.DeliveryID(c.Request), "error", err)
		errorResponse(c, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	}
}

var errIgnored = errors.New("event ignored")

var handledEvents = map[string]bool{
	"ping":         true,
	"pull_request": true,
	"check_suite":  true,
}

// Actions after which GitHub recomputes mergeability. A null mergeable on
// any other action only means the value was not sent.
var mergeabilityResetActions = map[string]bool{
	"opened":      true,
	"reopened":    true,
	"synchronize": true,
}

func (h *Handler) handlePullRequest(ctx context.Context, event *github.PullRequestEvent) error {
	req := PullRequestFromEvent(event)
	view, err := h.reconciler.UpsertPullRequest(ctx, req)
	if err != nil {
		return err
	}

	h.logger.Infow("pull request synchronized from webhook",
		"repository", view.Repository,
		"number", view.Number,
		"action", event.GetAction(),
		"status", view.Status,
	)
	return nil
}

func (h *Handler) handleCheckSuite(ctx context.Context, event *github.CheckSuiteEvent) error {
	if event.GetAction() != "completed" {
		return errIgnored
	}

	suite := event.GetCheckSuite()
	status, ok := BuildStatusFromConclusion(suite.GetConclusion())
	if !ok {
		h.logger.Debugw("check suite conclusion ignored", "conclusion", suite.GetConclusion())
		return errIgnored
	}

	view, err := h.reconciler.RecordBuildResultByCommit(ctx,
		event.GetRepo().GetFullName(), suite.GetHeadBranch(), suite.GetHeadSHA(), status)
	switch {
	case errors.Is(err, buildModel.ErrBuildNotFound):
		// CI ran on a branch the bot does not manage.
		return errIgnored
	case errors.Is(err, pullrequestModel.ErrPullRequestNotFound), errors.Is(err, buildModel.ErrBuildFinished):
		h.logger.Infow("check suite result for stale build",
			"repository", event.GetRepo().GetFullName(), "sha", suite.GetHeadSHA(), "error", err)
		return errIgnored
	case err != nil:
		return err
	}

	h.logger.Infow("build result recorded from webhook",
		"repository", view.Repository, "number", view.Number, "status", status)
	return nil
}

// PullRequestFromEvent maps a pull_request delivery onto an upsert request.
// A null mergeable resets the stored state to unknown only when the action
// makes GitHub recompute it: opened, reopened, synchronize or a base change.
func PullRequestFromEvent(event *github.PullRequestEvent) *pullrequestModel.UpsertPullRequestRequest {
	pr := event.GetPullRequest()

	status := pullrequestModel.StatusOpen
	switch {
	case pr.GetMerged():
		status = pullrequestModel.StatusMerged
	case pr.GetState() == "closed":
		status = pullrequestModel.StatusClosed
	case pr.GetDraft():
		status = pullrequestModel.StatusDraft
	}

	mergeable := pullrequestModel.MergeableStateUnknown
	keepMergeable := false
	switch {
	case pr.Mergeable != nil && *pr.Mergeable:
		mergeable = pullrequestModel.MergeableStateMergeable
	case pr.Mergeable != nil:
		mergeable = pullrequestModel.MergeableStateHasConflicts
	default:
		keepMergeable = !resetsMergeability(event)
	}

	number := int64(pr.GetNumber())
	if number == 0 {
		number = int64(event.GetNumber())
	}

	return &pullrequestModel.UpsertPullRequestRequest{
		PullRequestKey: pullrequestModel.PullRequestKey{
			Repository: event.GetRepo().GetFullName(),
			Number:     number,
		},
		BaseBranch:         pr.GetBase().GetRef(),
		MergeableState:     string(mergeable),
		Status:             string(status),
		KeepMergeableState: keepMergeable,
	}
}

func resetsMergeability(event *github.PullRequestEvent) bool {
	if event.GetAction() == "edited" {
		return event.GetChanges().GetBase() != nil
	}
	return mergeabilityResetActions[event.GetAction()]
}

// BuildStatusFromConclusion maps a check suite conclusion onto a build status.
// Conclusions without a build equivalent report false.
func BuildStatusFromConclusion(conclusion string) (buildModel.Status, bool) {
	switch conclusion {
	case "success", "neutral", "skipped":
		return buildModel.StatusSuccess, true
	case "failure", "action_required", "startup_failure":
		return buildModel.StatusFailure, true
	case "cancelled":
		return buildModel.StatusCancelled, true
	case "timed_out":
		return buildModel.StatusTimeouted, true
	}
	return "", false
}

func isBadPayload(err error) bool {
	for _, target := range []error{
		pullrequestModel.ErrInvalidRepository,
		pullrequestModel.ErrInvalidNumber,
		pullrequestModel.ErrInvalidBaseBranch,
		pullrequestModel.ErrUnknownValue,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorResponse represents error response structure.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorResponse(c *gin.Context, code string, message string, statusCode int) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	c.JSON(statusCode, resp)
}

// RegisterRoutes registers the webhook endpoint.
func RegisterRoutes(r *gin.Engine, reconciler Reconciler, secret string, logger *zap.SugaredLogger) {
	h := New(reconciler, secret, logger)
	r.POST("/github/webhook", h.Handle)
}
