// Package service provides business logic layer for statistics module.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/festy23/mergequeue/internal/statistics/model"
	"github.com/festy23/mergequeue/internal/statistics/repository"
)

// Service defines the interface for statistics business logic operations.
type Service interface {
	// GetPullRequestStatistics returns statistics for pull requests.
	GetPullRequestStatistics(ctx context.Context, query model.Query) (*model.PullRequestStatisticsResponse, error)

	// GetBuildStatistics returns statistics for builds.
	GetBuildStatistics(ctx context.Context, query model.Query) (*model.BuildStatisticsResponse, error)
}

type service struct {
	repo   repository.Repository
	logger *zap.SugaredLogger
}

// New creates a new statistics service instance.
func New(repo repository.Repository, logger *zap.SugaredLogger) Service {
	return &service{
		repo:   repo,
		logger: logger,
	}
}

// GetPullRequestStatistics returns statistics for pull requests.
func (s *service) GetPullRequestStatistics(
	ctx context.Context,
	query model.Query,
) (*model.PullRequestStatisticsResponse, error) {
	s.logger.Debugw("GetPullRequestStatistics called", "repository", query.Repository)

	stats, err := s.repo.GetPullRequestStatistics(ctx, query.Repository)
	if err != nil {
		s.logger.Errorw("GetPullRequestStatistics failed", "error", err)
		return nil, err
	}

	s.logger.Infow("GetPullRequestStatistics completed", "total", stats.Total)
	return &model.PullRequestStatisticsResponse{
		Repository: query.Repository,
		Statistics: *stats,
	}, nil
}

// GetBuildStatistics returns statistics for builds.
func (s *service) GetBuildStatistics(ctx context.Context, query model.Query) (*model.BuildStatisticsResponse, error) {
	s.logger.Debugw("GetBuildStatistics called", "repository", query.Repository)

	stats, err := s.repo.GetBuildStatistics(ctx, query.Repository)
	if err != nil {
		s.logger.Errorw("GetBuildStatistics failed", "error", err)
		return nil, err
	}

	s.logger.Infow("GetBuildStatistics completed", "total", stats.Total)
	return &model.BuildStatisticsResponse{
		Repository: query.Repository,
		Statistics: *stats,
	}, nil
}
