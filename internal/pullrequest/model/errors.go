package model

import (
	"errors"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
)

var (
	// ErrPullRequestNotFound indicates that no pull request matches the lookup key.
	ErrPullRequestNotFound = errors.New("pull request not found")
	// ErrNoTryBuild indicates that the pull request has no linked try build.
	ErrNoTryBuild = errors.New("pull request has no try build")
	// ErrNoPreviousBuild indicates parent "last" without an earlier try build to take it from.
	ErrNoPreviousBuild = errors.New("pull request has no previous try build")
	// ErrDelegationUnsupported indicates a delegation the active schema cannot store.
	ErrDelegationUnsupported = errors.New("delegation not supported by schema")
	// ErrConstraintViolation indicates a unique or foreign key violation that
	// the upsert design rules out. It is a programming error, never retried.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrInvalidRepository indicates an empty or malformed repository name.
	ErrInvalidRepository = errors.New("repository must be in owner/name form")
	// ErrInvalidNumber indicates a non-positive pull request number.
	ErrInvalidNumber = errors.New("number must be positive")
	// ErrInvalidBaseBranch indicates an empty base branch.
	ErrInvalidBaseBranch = errors.New("base_branch is required")
	// ErrInvalidApprover indicates an empty approver.
	ErrInvalidApprover = errors.New("approver is required")
	// ErrInvalidCommitSHA indicates an empty commit hash.
	ErrInvalidCommitSHA = errors.New("commit sha is required")
	// ErrInvalidBranch indicates an empty build branch.
	ErrInvalidBranch = errors.New("branch is required")
	// ErrInvalidPriority indicates a negative priority.
	ErrInvalidPriority = errors.New("priority must not be negative")

	// ErrUnknownValue indicates text that is not a member of an enumeration.
	ErrUnknownValue = buildModel.ErrUnknownValue
	// ErrSchemaMismatch indicates a stored row that cannot be decoded.
	ErrSchemaMismatch = buildModel.ErrSchemaMismatch
)
