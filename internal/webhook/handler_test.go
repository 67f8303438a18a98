package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v54/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
)

const testSecret = "webhook-secret"

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) UpsertPullRequest(
	ctx context.Context,
	req *pullrequestModel.UpsertPullRequestRequest,
) (*pullrequestModel.PullRequestView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pullrequestModel.PullRequestView), args.Error(1)
}

func (m *mockReconciler) RecordBuildResultByCommit(
	ctx context.Context,
	repository, branch, commitSHA string,
	status buildModel.Status,
) (*pullrequestModel.PullRequestView, error) {
	args := m.Called(ctx, repository, branch, commitSHA, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pullrequestModel.PullRequestView), args.Error(1)
}

func setupRouter(reconciler Reconciler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, reconciler, testSecret, zap.NewNop().Sugar())
	return r
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func deliver(router *gin.Engine, event, body string, signed bool) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/github/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "72d3162e-cc78-11e3-81ab-4c9367dc0958")
	if signed {
		req.Header.Set("X-Hub-Signature-256", sign([]byte(body)))
	}
	router.ServeHTTP(w, req)
	return w
}

const pullRequestPayload = `{
	"action": "synchronize",
	"number": 12345,
	"pull_request": {
		"number": 12345,
		"state": "open",
		"draft": false,
		"merged": false,
		"mergeable": true,
		"base": {"ref": "main"}
	},
	"repository": {"full_name": "rust-lang/rust"}
}`

const checkSuitePayload = `{
	"action": "completed",
	"check_suite": {
		"head_branch": "automation/bors/try",
		"head_sha": "abc123",
		"status": "completed",
		"conclusion": "failure"
	},
	"repository": {"full_name": "rust-lang/rust"}
}`

func view() *pullrequestModel.PullRequestView {
	return &pullrequestModel.PullRequestView{
		PullRequest: pullrequestModel.PullRequest{
			ID:         1,
			Repository: "rust-lang/rust",
			Number:     12345,
			Status:     pullrequestModel.StatusOpen,
		},
	}
}

func TestHandler_Signature(t *testing.T) {
	t.Run("unsigned delivery is rejected", func(t *testing.T) {
		reconciler := new(mockReconciler)
		w := deliver(setupRouter(reconciler), "pull_request", pullRequestPayload, false)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		reconciler.AssertNotCalled(t, "UpsertPullRequest", mock.Anything, mock.Anything)
	})

	t.Run("tampered delivery is rejected", func(t *testing.T) {
		reconciler := new(mockReconciler)
		router := setupRouter(reconciler)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/github/webhook", bytes.NewBufferString(pullRequestPayload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-GitHub-Event", "pull_request")
		req.Header.Set("X-Hub-Signature-256", sign([]byte(`{"action":"opened"}`)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no secret configured accepts unsigned deliveries", func(t *testing.T) {
		reconciler := new(mockReconciler)
		gin.SetMode(gin.TestMode)
		router := gin.New()
		RegisterRoutes(router, reconciler, "", zap.NewNop().Sugar())

		w := deliver(router, "ping", `{"zen":"Keep it logically awesome."}`, false)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandler_Ping(t *testing.T) {
	w := deliver(setupRouter(new(mockReconciler)), "ping", `{"zen":"Design for failure."}`, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestHandler_PullRequest(t *testing.T) {
	t.Run("upserts the observed state", func(t *testing.T) {
		reconciler := new(mockReconciler)
		expected := &pullrequestModel.UpsertPullRequestRequest{
			PullRequestKey: pullrequestModel.PullRequestKey{Repository: "rust-lang/rust", Number: 12345},
			BaseBranch:     "main",
			MergeableState: "mergeable",
			Status:         "open",
		}
		reconciler.On("UpsertPullRequest", mock.Anything, expected).Return(view(), nil)

		w := deliver(setupRouter(reconciler), "pull_request", pullRequestPayload, true)

		assert.Equal(t, http.StatusOK, w.Code)
		reconciler.AssertExpectations(t)
	})

	t.Run("storage failure asks for redelivery", func(t *testing.T) {
		reconciler := new(mockReconciler)
		reconciler.On("UpsertPullRequest", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		w := deliver(setupRouter(reconciler), "pull_request", pullRequestPayload, true)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("invalid payload", func(t *testing.T) {
		reconciler := new(mockReconciler)
		reconciler.On("UpsertPullRequest", mock.Anything, mock.Anything).
			Return(nil, pullrequestModel.ErrInvalidBaseBranch)

		w := deliver(setupRouter(reconciler), "pull_request", pullRequestPayload, true)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_CheckSuite(t *testing.T) {
	t.Run("completed suite records the build result", func(t *testing.T) {
		reconciler := new(mockReconciler)
		reconciler.On("RecordBuildResultByCommit", mock.Anything,
			"rust-lang/rust", "automation/bors/try", "abc123", buildModel.StatusFailure).
			Return(view(), nil)

		w := deliver(setupRouter(reconciler), "check_suite", checkSuitePayload, true)

		assert.Equal(t, http.StatusOK, w.Code)
		reconciler.AssertExpectations(t)
	})

	t.Run("unknown build is ignored", func(t *testing.T) {
		reconciler := new(mockReconciler)
		reconciler.On("RecordBuildResultByCommit", mock.Anything,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, buildModel.ErrBuildNotFound)

		w := deliver(setupRouter(reconciler), "check_suite", checkSuitePayload, true)

		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("superseded build is ignored", func(t *testing.T) {
		reconciler := new(mockReconciler)
		reconciler.On("RecordBuildResultByCommit", mock.Anything,
			mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, pullrequestModel.ErrPullRequestNotFound)

		w := deliver(setupRouter(reconciler), "check_suite", checkSuitePayload, true)

		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("requested suite is ignored", func(t *testing.T) {
		reconciler := new(mockReconciler)
		payload := `{"action":"requested","check_suite":{"head_sha":"abc"},"repository":{"full_name":"rust-lang/rust"}}`

		w := deliver(setupRouter(reconciler), "check_suite", payload, true)

		assert.Equal(t, http.StatusAccepted, w.Code)
		reconciler.AssertNotCalled(t, "RecordBuildResultByCommit",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandler_OtherEvents(t *testing.T) {
	w := deliver(setupRouter(new(mockReconciler)), "issues", `{"action":"opened"}`, true)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = deliver(setupRouter(new(mockReconciler)), "not_an_event", `{}`, true)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestHandler_MalformedPayload(t *testing.T) {
	reconciler := new(mockReconciler)

	w := deliver(setupRouter(reconciler), "pull_request", `{"action":"opened","number":"not-a-number"}`, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
	reconciler.AssertNotCalled(t, "UpsertPullRequest", mock.Anything, mock.Anything)
}

func TestPullRequestFromEvent(t *testing.T) {
	event := func(state string, draft, merged bool, mergeable *bool) *github.PullRequestEvent {
		return &github.PullRequestEvent{
			Number: github.Int(7),
			PullRequest: &github.PullRequest{
				State:     github.String(state),
				Draft:     github.Bool(draft),
				Merged:    github.Bool(merged),
				Mergeable: mergeable,
				Base:      &github.PullRequestBranch{Ref: github.String("beta")},
			},
			Repo: &github.Repository{FullName: github.String("rust-lang/cargo")},
		}
	}

	tests := []struct {
		name          string
		event         *github.PullRequestEvent
		wantStatus    string
		wantMergeable string
		wantKeep      bool
	}{
		{"open", event("open", false, false, github.Bool(true)), "open", "mergeable", false},
		{"draft", event("open", true, false, nil), "draft", "unknown", true},
		{"closed", event("closed", false, false, github.Bool(false)), "closed", "has_conflicts", false},
		{"merged", event("closed", false, true, nil), "merged", "unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := PullRequestFromEvent(tt.event)
			assert.Equal(t, "rust-lang/cargo", req.Repository)
			assert.Equal(t, int64(7), req.Number)
			assert.Equal(t, "beta", req.BaseBranch)
			assert.Equal(t, tt.wantStatus, req.Status)
			assert.Equal(t, tt.wantMergeable, req.MergeableState)
			assert.Equal(t, tt.wantKeep, req.KeepMergeableState)
		})
	}
}

func TestPullRequestFromEvent_NullMergeable(t *testing.T) {
	event := func(action string, changes *github.EditChange) *github.PullRequestEvent {
		return &github.PullRequestEvent{
			Action:  github.String(action),
			Number:  github.Int(7),
			Changes: changes,
			PullRequest: &github.PullRequest{
				State: github.String("open"),
				Base:  &github.PullRequestBranch{Ref: github.String("beta")},
			},
			Repo: &github.Repository{FullName: github.String("rust-lang/cargo")},
		}
	}
	baseChange := &github.EditChange{Base: &github.EditBase{
		Ref: &github.EditRef{From: github.String("master")},
	}}
	titleChange := &github.EditChange{Title: &github.EditTitle{From: github.String("old")}}

	tests := []struct {
		name     string
		event    *github.PullRequestEvent
		wantKeep bool
	}{
		{"opened", event("opened", nil), false},
		{"reopened", event("reopened", nil), false},
		{"synchronize", event("synchronize", nil), false},
		{"edited base", event("edited", baseChange), false},
		{"edited title", event("edited", titleChange), true},
		{"labeled", event("labeled", nil), true},
		{"ready for review", event("ready_for_review", nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := PullRequestFromEvent(tt.event)
			assert.Equal(t, "unknown", req.MergeableState)
			assert.Equal(t, tt.wantKeep, req.KeepMergeableState)
		})
	}
}

func TestPullRequestFromEvent_KnownMergeableIsWritten(t *testing.T) {
	event := &github.PullRequestEvent{
		Action:      github.String("labeled"),
		Number:      github.Int(7),
		PullRequest: &github.PullRequest{State: github.String("open"), Mergeable: github.Bool(false)},
		Repo:        &github.Repository{FullName: github.String("rust-lang/cargo")},
	}

	req := PullRequestFromEvent(event)

	assert.Equal(t, "has_conflicts", req.MergeableState)
	assert.False(t, req.KeepMergeableState)
}

func TestBuildStatusFromConclusion(t *testing.T) {
	tests := map[string]buildModel.Status{
		"success":         buildModel.StatusSuccess,
		"neutral":         buildModel.StatusSuccess,
		"skipped":         buildModel.StatusSuccess,
		"failure":         buildModel.StatusFailure,
		"action_required": buildModel.StatusFailure,
		"startup_failure": buildModel.StatusFailure,
		"cancelled":       buildModel.StatusCancelled,
		"timed_out":       buildModel.StatusTimeouted,
	}
	for conclusion, want := range tests {
		got, ok := BuildStatusFromConclusion(conclusion)
		assert.True(t, ok, conclusion)
		assert.Equal(t, want, got, conclusion)
	}

	_, ok := BuildStatusFromConclusion("stale")
	assert.False(t, ok)
}
