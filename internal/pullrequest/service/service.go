// Package service provides the reconciliation layer for pullrequest module.
// It merges incoming facts about pull requests and builds into the store.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
	buildRepository "github.com/festy23/mergequeue/internal/build/repository"
	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
	"github.com/festy23/mergequeue/internal/pullrequest/repository"
)

// Service defines the interface for pullrequest reconciliation operations.
// All writes are idempotent for identical inputs, so callers may retry any
// call whose outcome is unknown.
type Service interface {
	// UpsertPullRequest applies the latest observed base branch, mergeable
	// state and status, creating the pull request on first sight.
	UpsertPullRequest(
		ctx context.Context,
		req *pullrequestModel.UpsertPullRequestRequest,
	) (*pullrequestModel.PullRequestView, error)

	// GetPullRequest returns the pull request with its current try build.
	GetPullRequest(ctx context.Context, repository string, number int64) (*pullrequestModel.PullRequestView, error)

	// GetPullRequestByBuildID returns the pull request currently pointing at the build.
	GetPullRequestByBuildID(ctx context.Context, buildID int64) (*pullrequestModel.PullRequestView, error)

	// Approve approves the pull request at a commit.
	Approve(ctx context.Context, req *pullrequestModel.ApproveRequest) (*pullrequestModel.PullRequestView, error)

	// Unapprove removes the approval.
	Unapprove(ctx context.Context, req *pullrequestModel.PullRequestKey) (*pullrequestModel.PullRequestView, error)

	// SetPriority sets or clears the merge queue priority.
	SetPriority(ctx context.Context, req *pullrequestModel.SetPriorityRequest) (*pullrequestModel.PullRequestView, error)

	// SetRollupMode sets or clears the rollup mode.
	SetRollupMode(
		ctx context.Context,
		req *pullrequestModel.SetRollupModeRequest,
	) (*pullrequestModel.PullRequestView, error)

	// SetDelegation delegates permissions to the pull request author.
	SetDelegation(
		ctx context.Context,
		req *pullrequestModel.SetDelegationRequest,
	) (*pullrequestModel.PullRequestView, error)

	// StartTryBuild records a new try build and makes it the current one,
	// cancelling the build it supersedes if that one is still pending.
	StartTryBuild(
		ctx context.Context,
		req *pullrequestModel.StartTryBuildRequest,
	) (*pullrequestModel.PullRequestView, error)

	// CancelTryBuild cancels the current try build and unlinks it.
	CancelTryBuild(ctx context.Context, req *pullrequestModel.PullRequestKey) (*pullrequestModel.PullRequestView, error)

	// RecordBuildResult moves a build to a finished status and returns the
	// pull request it belongs to.
	RecordBuildResult(
		ctx context.Context,
		req *pullrequestModel.RecordBuildResultRequest,
	) (*pullrequestModel.PullRequestView, error)

	// RecordBuildResultByCommit is RecordBuildResult for CI callbacks that
	// only know the branch and commit that were built.
	RecordBuildResultByCommit(
		ctx context.Context,
		repository, branch, commitSHA string,
		status buildModel.Status,
	) (*pullrequestModel.PullRequestView, error)
}

type service struct {
	repo      repository.Repository
	buildRepo buildRepository.Repository
	db        *gorm.DB
	logger    *zap.SugaredLogger
}

// New creates a new pullrequest service instance.
func New(
	repo repository.Repository,
	buildRepo buildRepository.Repository,
	db *gorm.DB,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		repo:      repo,
		buildRepo: buildRepo,
		db:        db,
		logger:    logger,
	}
}

// UpsertPullRequest applies the latest observed facts about a pull request.
func (s *service) UpsertPullRequest(
	ctx context.Context,
	req *pullrequestModel.UpsertPullRequestRequest,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(req.Repository, req.Number); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.BaseBranch) == "" {
		return nil, pullrequestModel.ErrInvalidBaseBranch
	}
	mergeableState, err := pullrequestModel.ParseMergeableState(req.MergeableState)
	if err != nil {
		return nil, err
	}
	status, err := pullrequestModel.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	view, err := s.repo.Upsert(ctx, repository.UpsertParams{
		Repository:         req.Repository,
		Number:             req.Number,
		BaseBranch:         req.BaseBranch,
		MergeableState:     mergeableState,
		Status:             status,
		KeepMergeableState: req.KeepMergeableState,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("pull request upserted",
		"repository", view.Repository,
		"number", view.Number,
		"status", view.Status,
		"mergeable_state", view.MergeableState,
	)
	return view, nil
}

// GetPullRequest returns the pull request with its current try build.
func (s *service) GetPullRequest(
	ctx context.Context,
	repository string,
	number int64,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(repository, number); err != nil {
		return nil, err
	}
	return s.repo.GetByNumber(ctx, repository, number)
}

// GetPullRequestByBuildID returns the pull request currently pointing at the build.
func (s *service) GetPullRequestByBuildID(
	ctx context.Context,
	buildID int64,
) (*pullrequestModel.PullRequestView, error) {
	return s.repo.GetByBuildID(ctx, buildID)
}

// Approve approves the pull request at a commit.
func (s *service) Approve(
	ctx context.Context,
	req *pullrequestModel.ApproveRequest,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(req.Repository, req.Number); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Approver) == "" {
		return nil, pullrequestModel.ErrInvalidApprover
	}
	if strings.TrimSpace(req.CommitSHA) == "" {
		return nil, pullrequestModel.ErrInvalidCommitSHA
	}
	if err := validatePriority(req.Priority); err != nil {
		return nil, err
	}
	rollup, err := parseRollup(req.Rollup)
	if err != nil {
		return nil, err
	}

	err = s.repo.Approve(ctx, req.Repository, req.Number, repository.ApproveParams{
		Approver:  req.Approver,
		CommitSHA: req.CommitSHA,
		Priority:  req.Priority,
		Rollup:    rollup,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("pull request approved",
		"repository", req.Repository, "number", req.Number, "approver", req.Approver, "sha", req.CommitSHA)
	return s.repo.GetByNumber(ctx, req.Repository, req.Number)
}

// Unapprove removes the approval.
func (s *service) Unapprove(
	ctx context.Context,
	req *pullrequestModel.PullRequestKey,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(req.Repository, req.Number); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByNumber(ctx, req.Repository, req.Number)
	if err != nil {
		return nil, err
	}
	if !current.Approval.IsApproved() {
		s.logger.Debugw("pull request is not approved", "repository", req.Repository, "number", req.Number)
		return current, nil
	}

	if err := s.repo.Unapprove(ctx, req.Repository, req.Number); err != nil {
		return nil, err
	}

	s.logger.Infow("pull request unapproved", "repository", req.Repository, "number", req.Number)
	return s.repo.GetByNumber(ctx, req.Repository, req.Number)
}

// SetPriority sets or clears the merge queue priority.
func (s *service) SetPriority(
	ctx context.Context,
	req *pullrequestModel.SetPriorityRequest,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(req.Repository, req.Number); err != nil {
		return nil, err
	}
	if err := validatePriority(req.Priority); err != nil {
		return nil, err
	}
	if err := s.repo.SetPriority(ctx, req.Repository, req.Number, req.Priority); err != nil {
		return nil, err
	}
	return s.repo.GetByNumber(ctx, req.Repository, req.Number)
}

// SetRollupMode sets or clears the rollup mode.
func (s *service) SetRollupMode(
	ctx context.Context,
	req *pullrequestModel.SetRollupModeRequest,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(req.Repository, req.Number); err != nil {
		return nil, err
	}
	rollup, err := parseRollup(req.Rollup)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRollupMode(ctx, req.Repository, req.Number, rollup); err != nil {
		return nil, err
	}
	return s.repo.GetByNumber(ctx, req.Repository, req.Number)
}

// SetDelegation delegates permissions to the pull request author.
func (s *service) SetDelegation(
	ctx context.Context,
	req *pullrequestModel.SetDelegationRequest,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(req.Repository, req.Number); err != nil {
		return nil, err
	}
	delegation, err := pullrequestModel.ParseDelegation(req.Delegation)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetDelegation(ctx, req.Repository, req.Number, delegation); err != nil {
		return nil, err
	}

	s.logger.Infow("pull request delegation changed",
		"repository", req.Repository, "number", req.Number, "delegation", delegation)
	return s.repo.GetByNumber(ctx, req.Repository, req.Number)
}

// StartTryBuild records a new try build and makes it the current one.
func (s *service) StartTryBuild(
	ctx context.Context,
	req *pullrequestModel.StartTryBuildRequest,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(req.Repository, req.Number); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Branch) == "" {
		return nil, pullrequestModel.ErrInvalidBranch
	}
	if strings.TrimSpace(req.CommitSHA) == "" {
		return nil, pullrequestModel.ErrInvalidCommitSHA
	}

	var result *pullrequestModel.PullRequestView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.startTryBuildInTransaction(ctx, tx, req)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("try build started",
		"repository", req.Repository,
		"number", req.Number,
		"build_id", result.TryBuild.ID,
		"commit_sha", req.CommitSHA,
	)
	return result, nil
}

// startTryBuildInTransaction holds the pull request row lock while the new
// build is created and linked, so concurrent requests link builds one at a time.
func (s *service) startTryBuildInTransaction(
	ctx context.Context,
	tx *gorm.DB,
	req *pullrequestModel.StartTryBuildRequest,
) (*pullrequestModel.PullRequestView, error) {
	txRepo := s.repo.WithTx(tx)
	txBuildRepo := s.buildRepo.WithTx(tx)

	pr, err := txRepo.LockByNumber(ctx, req.Repository, req.Number)
	if err != nil {
		return nil, err
	}

	parent := req.Parent
	if parent == pullrequestModel.ParentLast {
		if pr.TryBuild == nil {
			return nil, pullrequestModel.ErrNoPreviousBuild
		}
		parent = pr.TryBuild.Parent
	}

	build, err := txBuildRepo.Create(ctx, buildRepository.CreateParams{
		Repository: req.Repository,
		Branch:     req.Branch,
		CommitSHA:  req.CommitSHA,
		Parent:     parent,
	})
	if err != nil {
		return nil, err
	}

	if pr.TryBuild != nil {
		cancelled, cancelErr := txBuildRepo.CancelIfPending(ctx, pr.TryBuild.ID)
		if cancelErr != nil {
			return nil, cancelErr
		}
		if cancelled {
			s.logger.Infow("superseded try build cancelled", "build_id", pr.TryBuild.ID)
		}
	}

	if err := txRepo.LinkBuild(ctx, pr.ID, build.ID); err != nil {
		return nil, err
	}

	return txRepo.GetByNumber(ctx, req.Repository, req.Number)
}

// CancelTryBuild cancels the current try build and unlinks it.
func (s *service) CancelTryBuild(
	ctx context.Context,
	req *pullrequestModel.PullRequestKey,
) (*pullrequestModel.PullRequestView, error) {
	if err := validateKey(req.Repository, req.Number); err != nil {
		return nil, err
	}

	var result *pullrequestModel.PullRequestView
	var cancelledBuild int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		pr, txErr := txRepo.LockByNumber(ctx, req.Repository, req.Number)
		if txErr != nil {
			return txErr
		}
		if pr.TryBuild == nil {
			return pullrequestModel.ErrNoTryBuild
		}
		cancelledBuild = pr.TryBuild.ID

		if _, txErr = s.buildRepo.WithTx(tx).CancelIfPending(ctx, pr.TryBuild.ID); txErr != nil {
			return txErr
		}
		if txErr = txRepo.UnlinkBuild(ctx, pr.ID); txErr != nil {
			return txErr
		}

		result, txErr = txRepo.GetByNumber(ctx, req.Repository, req.Number)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("try build cancelled",
		"repository", req.Repository, "number", req.Number, "build_id", cancelledBuild)
	return result, nil
}

// RecordBuildResult moves a build to a finished status.
func (s *service) RecordBuildResult(
	ctx context.Context,
	req *pullrequestModel.RecordBuildResultRequest,
) (*pullrequestModel.PullRequestView, error) {
	status, err := buildModel.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	return s.recordBuildResult(ctx, req.BuildID, status)
}

// RecordBuildResultByCommit finds the latest build of the commit and records its result.
func (s *service) RecordBuildResultByCommit(
	ctx context.Context,
	repository, branch, commitSHA string,
	status buildModel.Status,
) (*pullrequestModel.PullRequestView, error) {
	build, err := s.buildRepo.FindLatestByCommit(ctx, repository, branch, commitSHA)
	if err != nil {
		return nil, err
	}
	return s.recordBuildResult(ctx, build.ID, status)
}

func (s *service) recordBuildResult(
	ctx context.Context,
	buildID int64,
	status buildModel.Status,
) (*pullrequestModel.PullRequestView, error) {
	build, err := s.buildRepo.UpdateStatus(ctx, buildID, status)
	if err != nil {
		return nil, err
	}

	view, err := s.repo.GetByBuildID(ctx, build.ID)
	if err != nil {
		if errors.Is(err, pullrequestModel.ErrPullRequestNotFound) {
			s.logger.Infow("result recorded for superseded build", "build_id", build.ID, "status", status)
		}
		return nil, err
	}

	s.logger.Infow("build result recorded",
		"repository", view.Repository, "number", view.Number, "build_id", build.ID, "status", status)
	return view, nil
}

// validateKey validates the natural key of a pull request.
func validateKey(repository string, number int64) error {
	owner, name, found := strings.Cut(repository, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return pullrequestModel.ErrInvalidRepository
	}
	if number <= 0 {
		return pullrequestModel.ErrInvalidNumber
	}
	return nil
}

func validatePriority(priority *int) error {
	if priority != nil && *priority < 0 {
		return pullrequestModel.ErrInvalidPriority
	}
	return nil
}

func parseRollup(rollup *string) (*pullrequestModel.RollupMode, error) {
	if rollup == nil {
		return nil, nil
	}
	mode, err := pullrequestModel.ParseRollupMode(*rollup)
	if err != nil {
		return nil, err
	}
	return &mode, nil
}
