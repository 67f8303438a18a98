package repository

import (
	"database/sql"
	"fmt"
	"time"

	buildModel "github.com/festy23/mergequeue/internal/build/model"
	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
)

// pullRequestRow is one row of pull_request LEFT JOIN build.
type pullRequestRow struct {
	ID                  int64          `gorm:"column:id"`
	Repository          string         `gorm:"column:repository"`
	Number              int64          `gorm:"column:number"`
	ApprovedBy          sql.NullString `gorm:"column:approved_by"`
	ApprovedSHA         sql.NullString `gorm:"column:approved_sha"`
	Status              string         `gorm:"column:status"`
	Priority            sql.NullInt64  `gorm:"column:priority"`
	Rollup              sql.NullString `gorm:"column:rollup"`
	DelegatedPermission sql.NullString `gorm:"column:delegated_permission"`
	Delegated           sql.NullBool   `gorm:"column:delegated"`
	BaseBranch          string         `gorm:"column:base_branch"`
	MergeableState      string         `gorm:"column:mergeable_state"`
	CreatedAt           time.Time      `gorm:"column:created_at"`
	LinkedBuildID       sql.NullInt64  `gorm:"column:linked_build_id"`

	BuildID         sql.NullInt64  `gorm:"column:build_id"`
	BuildRepository sql.NullString `gorm:"column:build_repository"`
	BuildBranch     sql.NullString `gorm:"column:build_branch"`
	BuildCommitSHA  sql.NullString `gorm:"column:build_commit_sha"`
	BuildStatus     sql.NullString `gorm:"column:build_status"`
	BuildParent     sql.NullString `gorm:"column:build_parent"`
	BuildCreatedAt  sql.NullTime   `gorm:"column:build_created_at"`
}

// selectColumns returns the select list for the given delegation schema.
func selectColumns(schema pullrequestModel.DelegationSchema) string {
	return "pull_request.id, pull_request.repository, pull_request.number, " +
		"pull_request.approved_by, pull_request.approved_sha, pull_request.status, " +
		"pull_request.priority, pull_request.rollup, pull_request." + schema.Column() + ", " +
		"pull_request.base_branch, pull_request.mergeable_state, pull_request.created_at, " +
		"pull_request.build_id AS linked_build_id, " +
		buildModel.JoinColumns
}

// decode converts the row into a view, failing on any value this version
// does not understand.
func (row *pullRequestRow) decode(schema pullrequestModel.DelegationSchema) (*pullrequestModel.PullRequestView, error) {
	status, err := pullrequestModel.ParseStatus(row.Status)
	if err != nil {
		return nil, mismatch(row, err)
	}

	mergeableState, err := pullrequestModel.ParseMergeableState(row.MergeableState)
	if err != nil {
		return nil, mismatch(row, err)
	}

	var rollup *pullrequestModel.RollupMode
	if row.Rollup.Valid {
		mode, parseErr := pullrequestModel.ParseRollupMode(row.Rollup.String)
		if parseErr != nil {
			return nil, mismatch(row, parseErr)
		}
		rollup = &mode
	}

	if row.ApprovedBy.Valid != row.ApprovedSHA.Valid {
		return nil, mismatch(row, fmt.Errorf("approved_by and approved_sha must be set together"))
	}

	var delegation pullrequestModel.Delegation
	if schema == pullrequestModel.DelegationSchemaLegacyFlag {
		delegation = pullrequestModel.DecodeDelegatedFlag(row.Delegated)
	} else {
		delegation, err = pullrequestModel.DecodeDelegatedPermission(row.DelegatedPermission)
		if err != nil {
			return nil, fmt.Errorf("pull request %s#%d: %w", row.Repository, row.Number, err)
		}
	}

	var priority *int
	if row.Priority.Valid {
		p := int(row.Priority.Int64)
		priority = &p
	}

	build, err := buildModel.NullableBuild{
		ID:         row.BuildID,
		Repository: row.BuildRepository,
		Branch:     row.BuildBranch,
		CommitSHA:  row.BuildCommitSHA,
		Status:     row.BuildStatus,
		Parent:     row.BuildParent,
		CreatedAt:  row.BuildCreatedAt,
	}.Decode()
	if err != nil {
		return nil, fmt.Errorf("pull request %s#%d: %w", row.Repository, row.Number, err)
	}

	var buildID *int64
	if row.LinkedBuildID.Valid {
		if build == nil {
			return nil, mismatch(row, fmt.Errorf("build %d is linked but missing", row.LinkedBuildID.Int64))
		}
		id := row.LinkedBuildID.Int64
		buildID = &id
	}

	return &pullrequestModel.PullRequestView{
		PullRequest: pullrequestModel.PullRequest{
			ID:         row.ID,
			Repository: row.Repository,
			Number:     row.Number,
			Approval: pullrequestModel.ApprovalStatus{
				ApprovedBy:  row.ApprovedBy.String,
				ApprovedSHA: row.ApprovedSHA.String,
			},
			Status:         status,
			Priority:       priority,
			Rollup:         rollup,
			Delegation:     delegation,
			BaseBranch:     row.BaseBranch,
			MergeableState: mergeableState,
			CreatedAt:      row.CreatedAt,
			BuildID:        buildID,
		},
		TryBuild: build,
	}, nil
}

func mismatch(row *pullRequestRow, err error) error {
	return fmt.Errorf("%w: pull request %s#%d: %v", pullrequestModel.ErrSchemaMismatch, row.Repository, row.Number, err)
}
