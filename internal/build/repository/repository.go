// Package repository provides data access layer for build module.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
)

// CreateParams holds the immutable attributes of a new build.
type CreateParams struct {
	Repository string
	Branch     string
	CommitSHA  string
	Parent     string
}

// Repository defines the interface for build data access operations.
type Repository interface {
	// Create inserts a new pending build.
	Create(ctx context.Context, params CreateParams) (*buildModel.Build, error)

	// GetByID finds build by id.
	GetByID(ctx context.Context, id int64) (*buildModel.Build, error)

	// FindLatestByCommit returns the most recent build of a commit on a branch.
	FindLatestByCommit(ctx context.Context, repository, branch, commitSHA string) (*buildModel.Build, error)

	// UpdateStatus moves a pending build to status. Repeating the current
	// status is a no-op.
	UpdateStatus(ctx context.Context, id int64, status buildModel.Status) (*buildModel.Build, error)

	// CancelIfPending marks the build cancelled if it has not finished yet.
	CancelIfPending(ctx context.Context, id int64) (bool, error)

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New creates a new build repository instance.
func New(db *gorm.DB, logger *zap.SugaredLogger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{
		db:     tx,
		logger: r.logger,
	}
}

// Create inserts a new pending build.
func (r *repository) Create(ctx context.Context, params CreateParams) (*buildModel.Build, error) {
	build := &buildModel.Build{
		Repository: params.Repository,
		Branch:     params.Branch,
		CommitSHA:  params.CommitSHA,
		Status:     buildModel.StatusPending,
		Parent:     params.Parent,
		CreatedAt:  time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(build).Error; err != nil {
		r.logger.Errorw("failed to create build", "repository", params.Repository, "error", err)
		return nil, err
	}

	r.logger.Debugw("build created", "build_id", build.ID, "branch", build.Branch, "commit_sha", build.CommitSHA)
	return build, nil
}

// GetByID finds build by id.
func (r *repository) GetByID(ctx context.Context, id int64) (*buildModel.Build, error) {
	var build buildModel.Build
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&build).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, buildModel.ErrBuildNotFound
		}
		return nil, err
	}

	return checkStatus(&build)
}

// FindLatestByCommit returns the most recent build of a commit on a branch.
func (r *repository) FindLatestByCommit(
	ctx context.Context,
	repository, branch, commitSHA string,
) (*buildModel.Build, error) {
	var build buildModel.Build
	err := r.db.WithContext(ctx).
		Where("repository = ? AND branch = ? AND commit_sha = ?", repository, branch, commitSHA).
		Order("id DESC").
		First(&build).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, buildModel.ErrBuildNotFound
		}
		return nil, err
	}

	return checkStatus(&build)
}

// UpdateStatus moves a pending build to status.
func (r *repository) UpdateStatus(
	ctx context.Context,
	id int64,
	status buildModel.Status,
) (*buildModel.Build, error) {
	if !status.IsFinished() {
		return nil, fmt.Errorf("%w: build result %q is not a finished status", buildModel.ErrUnknownValue, status)
	}

	result := r.db.WithContext(ctx).
		Model(&buildModel.Build{}).
		Where("id = ? AND status = ?", id, buildModel.StatusPending).
		Update("status", status)
	if result.Error != nil {
		r.logger.Errorw("failed to update build status", "build_id", id, "error", result.Error)
		return nil, result.Error
	}

	build, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Nothing matched: the build had already left pending.
	if result.RowsAffected == 0 && build.Status.IsFinished() && build.Status != status {
		return nil, fmt.Errorf("%w: build %d is %s", buildModel.ErrBuildFinished, id, build.Status)
	}

	r.logger.Debugw("build status updated", "build_id", id, "status", status)
	return build, nil
}

// CancelIfPending marks the build cancelled if it has not finished yet.
// Finished and missing builds report false.
func (r *repository) CancelIfPending(ctx context.Context, id int64) (bool, error) {
	build, err := r.GetByID(ctx, id)
	switch {
	case errors.Is(err, buildModel.ErrBuildNotFound):
		return false, nil
	case err != nil:
		return false, err
	case build.Status.IsFinished():
		return false, nil
	}

	result := r.db.WithContext(ctx).
		Model(&buildModel.Build{}).
		Where("id = ? AND status = ?", id, buildModel.StatusPending).
		Update("status", buildModel.StatusCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func checkStatus(build *buildModel.Build) (*buildModel.Build, error) {
	if !build.Status.Valid() {
		return nil, fmt.Errorf("%w: build %d has status %q", buildModel.ErrSchemaMismatch, build.ID, build.Status)
	}
	return build, nil
}
