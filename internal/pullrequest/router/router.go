// Package router provides pullrequest module routes registration.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	buildRepository "github.com/festy23/mergequeue/internal/build/repository"
	"github.com/festy23/mergequeue/internal/pullrequest/handler"
	"github.com/festy23/mergequeue/internal/pullrequest/repository"
	"github.com/festy23/mergequeue/internal/pullrequest/service"
)

// NewService wires the pullrequest and build repositories into a service.
// The pull_request table must already be migrated.
func NewService(db *gorm.DB, logger *zap.SugaredLogger) service.Service {
	repo := repository.New(db, logger)
	buildRepo := buildRepository.New(db, logger)
	return service.New(repo, buildRepo, db, logger)
}

// RegisterRoutes registers pullrequest module routes.
func RegisterRoutes(r *gin.Engine, svc service.Service, logger *zap.SugaredLogger) {
	h := handler.New(svc, logger)

	r.POST("/pullRequest/upsert", h.UpsertPullRequest)
	r.GET("/pullRequest/get", h.GetPullRequest)
	r.GET("/pullRequest/byBuild/:build_id", h.GetPullRequestByBuild)
	r.POST("/pullRequest/approve", h.Approve)
	r.POST("/pullRequest/unapprove", h.Unapprove)
	r.POST("/pullRequest/priority", h.SetPriority)
	r.POST("/pullRequest/rollup", h.SetRollupMode)
	r.POST("/pullRequest/delegate", h.SetDelegation)
	r.POST("/pullRequest/try", h.StartTryBuild)
	r.POST("/pullRequest/try/cancel", h.CancelTryBuild)

	r.POST("/build/status", h.RecordBuildResult)
}
