package model

// PullRequestKey identifies a pull request by its natural key.
type PullRequestKey struct {
	Repository string `json:"repository" form:"repository" binding:"required"`
	Number     int64  `json:"number"     form:"number"     binding:"required"`
}

// UpsertPullRequestRequest carries the latest observed facts about a pull request.
// With KeepMergeableState an existing row keeps its mergeable state and
// MergeableState only applies when the pull request is inserted.
type UpsertPullRequestRequest struct {
	PullRequestKey
	BaseBranch         string `json:"base_branch"     binding:"required"`
	MergeableState     string `json:"mergeable_state" binding:"required"`
	Status             string `json:"status"          binding:"required"`
	KeepMergeableState bool   `json:"keep_mergeable_state,omitempty"`
}

// ApproveRequest approves a pull request at a commit. Priority and Rollup are
// applied together with the approval when present.
type ApproveRequest struct {
	PullRequestKey
	Approver  string  `json:"approver"   binding:"required"`
	CommitSHA string  `json:"commit_sha" binding:"required"`
	Priority  *int    `json:"priority,omitempty"`
	Rollup    *string `json:"rollup,omitempty"`
}

// SetPriorityRequest sets or, with a nil Priority, clears the priority.
type SetPriorityRequest struct {
	PullRequestKey
	Priority *int `json:"priority"`
}

// SetRollupModeRequest sets or, with a nil Rollup, clears the rollup mode.
type SetRollupModeRequest struct {
	PullRequestKey
	Rollup *string `json:"rollup"`
}

// SetDelegationRequest sets delegation to "none", "try" or "review".
type SetDelegationRequest struct {
	PullRequestKey
	Delegation string `json:"delegation" binding:"required"`
}

// ParentLast as a try build parent reuses the parent of the current try build.
const ParentLast = "last"

// StartTryBuildRequest records a try build that CI was asked to run.
// Parent is a commit SHA or ParentLast.
type StartTryBuildRequest struct {
	PullRequestKey
	Branch    string `json:"branch"     binding:"required"`
	CommitSHA string `json:"commit_sha" binding:"required"`
	Parent    string `json:"parent"     binding:"required"`
}

// RecordBuildResultRequest reports the outcome of a build.
type RecordBuildResultRequest struct {
	BuildID int64  `json:"build_id" binding:"required"`
	Status  string `json:"status"   binding:"required"`
}

// PullRequestResponse wraps a pull request view.
type PullRequestResponse struct {
	PR *PullRequestView `json:"pr"`
}
