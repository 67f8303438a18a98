// Package repository provides data access layer for statistics module.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
	"github.com/festy23/mergequeue/internal/statistics/model"
)

// Repository defines the interface for statistics data access operations.
type Repository interface {
	// GetPullRequestStatistics returns pull request counts, optionally for one repository.
	GetPullRequestStatistics(ctx context.Context, repository string) (*model.PullRequestStatistics, error)

	// GetBuildStatistics returns build counts per status, optionally for one repository.
	GetBuildStatistics(ctx context.Context, repository string) (*model.BuildStatistics, error)
}

type repository struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New creates a new statistics repository instance.
func New(db *gorm.DB, logger *zap.SugaredLogger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

func scoped(db *gorm.DB, repository string) *gorm.DB {
	if repository == "" {
		return db
	}
	return db.Where("repository = ?", repository)
}

// GetPullRequestStatistics returns pull request counts, optionally for one repository.
func (r *repository) GetPullRequestStatistics(
	ctx context.Context,
	repository string,
) (*model.PullRequestStatistics, error) {
	r.logger.Debugw("GetPullRequestStatistics called", "repository", repository)

	var result struct {
		Total        int64 `gorm:"column:total"`
		Open         int64 `gorm:"column:open_count"`
		Draft        int64 `gorm:"column:draft_count"`
		Closed       int64 `gorm:"column:closed_count"`
		Merged       int64 `gorm:"column:merged_count"`
		ApprovedOpen int64 `gorm:"column:approved_open"`
		WithTryBuild int64 `gorm:"column:with_try_build"`
	}

	query := scoped(r.db.WithContext(ctx).Table("pull_request"), repository).
		Select(`
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS open_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS draft_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS closed_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS merged_count,
			COALESCE(SUM(CASE WHEN status = ? AND approved_by IS NOT NULL THEN 1 ELSE 0 END), 0) AS approved_open,
			COALESCE(SUM(CASE WHEN build_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS with_try_build
		`,
			string(pullrequestModel.StatusOpen),
			string(pullrequestModel.StatusDraft),
			string(pullrequestModel.StatusClosed),
			string(pullrequestModel.StatusMerged),
			string(pullrequestModel.StatusOpen),
		)

	if err := query.Scan(&result).Error; err != nil {
		r.logger.Errorw("GetPullRequestStatistics database error", "error", err)
		return nil, err
	}

	stats := &model.PullRequestStatistics{
		Total:        int(result.Total),
		Open:         int(result.Open),
		Draft:        int(result.Draft),
		Closed:       int(result.Closed),
		Merged:       int(result.Merged),
		ApprovedOpen: int(result.ApprovedOpen),
		WithTryBuild: int(result.WithTryBuild),
	}

	r.logger.Debugw("GetPullRequestStatistics completed", "total", stats.Total)
	return stats, nil
}

// GetBuildStatistics returns build counts per status, optionally for one repository.
func (r *repository) GetBuildStatistics(ctx context.Context, repository string) (*model.BuildStatistics, error) {
	r.logger.Debugw("GetBuildStatistics called", "repository", repository)

	var rows []struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}

	err := scoped(r.db.WithContext(ctx).Table("build"), repository).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		r.logger.Errorw("GetBuildStatistics database error", "error", err)
		return nil, err
	}

	stats := &model.BuildStatistics{}
	for _, row := range rows {
		status, err := buildModel.ParseStatus(row.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", buildModel.ErrSchemaMismatch, err)
		}

		count := int(row.Count)
		stats.Total += count
		switch status {
		case buildModel.StatusPending:
			stats.Pending = count
		case buildModel.StatusSuccess:
			stats.Success = count
		case buildModel.StatusFailure:
			stats.Failure = count
		case buildModel.StatusCancelled:
			stats.Cancelled = count
		case buildModel.StatusTimeouted:
			stats.Timeouted = count
		}
	}

	r.logger.Debugw("GetBuildStatistics completed", "total", stats.Total)
	return stats, nil
}
