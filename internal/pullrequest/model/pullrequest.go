// Package model provides data transfer objects and domain models for the pullrequest module.
package model

import (
	"fmt"
	"time"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
)

// Status is the lifecycle state of a pull request on GitHub.
type Status string

const (
	StatusOpen   Status = "open"
	StatusDraft  Status = "draft"
	StatusClosed Status = "closed"
	StatusMerged Status = "merged"
)

// ParseStatus converts stored text into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: pull request status %q", ErrUnknownValue, s)
	}
	return status, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusDraft, StatusClosed, StatusMerged:
		return true
	}
	return false
}

// MergeableState mirrors the mergeability computed by GitHub. It is advisory.
type MergeableState string

const (
	MergeableStateMergeable    MergeableState = "mergeable"
	MergeableStateHasConflicts MergeableState = "has_conflicts"
	MergeableStateUnknown      MergeableState = "unknown"
)

// ParseMergeableState converts stored text into a MergeableState.
func ParseMergeableState(s string) (MergeableState, error) {
	state := MergeableState(s)
	switch state {
	case MergeableStateMergeable, MergeableStateHasConflicts, MergeableStateUnknown:
		return state, nil
	}
	return "", fmt.Errorf("%w: mergeable state %q", ErrUnknownValue, s)
}

// RollupMode governs whether a pull request may be batched into a rollup.
type RollupMode string

const (
	RollupAlways RollupMode = "always"
	RollupIffy   RollupMode = "iffy"
	RollupMaybe  RollupMode = "maybe"
	RollupNever  RollupMode = "never"
)

// ParseRollupMode converts stored text into a RollupMode.
func ParseRollupMode(s string) (RollupMode, error) {
	mode := RollupMode(s)
	switch mode {
	case RollupAlways, RollupIffy, RollupMaybe, RollupNever:
		return mode, nil
	}
	return "", fmt.Errorf("%w: rollup mode %q (possible values are always/iffy/never/maybe)", ErrUnknownValue, s)
}

// ApprovalStatus records who approved the pull request and at which commit.
// Both fields are empty for a pull request that is not approved.
type ApprovalStatus struct {
	ApprovedBy  string `json:"approved_by,omitempty"`
	ApprovedSHA string `json:"approved_sha,omitempty"`
}

// IsApproved reports whether the pull request is approved.
func (a ApprovalStatus) IsApproved() bool {
	return a.ApprovedBy != ""
}

// PullRequest is the canonical record of a pull request managed by the bot.
type PullRequest struct {
	ID             int64          `json:"id"`
	Repository     string         `json:"repository"`
	Number         int64          `json:"number"`
	Approval       ApprovalStatus `json:"approval"`
	Status         Status         `json:"status"`
	Priority       *int           `json:"priority,omitempty"`
	Rollup         *RollupMode    `json:"rollup,omitempty"`
	Delegation     Delegation     `json:"delegation"`
	BaseBranch     string         `json:"base_branch"`
	MergeableState MergeableState `json:"mergeable_state"`
	CreatedAt      time.Time      `json:"created_at"`
	BuildID        *int64         `json:"build_id,omitempty"`
}

// PullRequestView is a pull request together with its current try build.
// TryBuild is nil when no build is linked.
type PullRequestView struct {
	PullRequest
	TryBuild *buildModel.Build `json:"try_build,omitempty"`
}
