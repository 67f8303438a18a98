// Package repository provides data access layer for pullrequest module.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
)

const pullRequestTable = "pull_request"

// UpsertParams holds the facts that the latest observation of a pull request overwrites.
type UpsertParams struct {
	Repository     string
	Number         int64
	BaseBranch     string
	MergeableState pullrequestModel.MergeableState
	Status         pullrequestModel.Status
	// KeepMergeableState leaves mergeable_state of an existing row untouched.
	KeepMergeableState bool
}

// ApproveParams holds an approval and the optional attributes set with it.
type ApproveParams struct {
	Approver  string
	CommitSHA string
	Priority  *int
	Rollup    *pullrequestModel.RollupMode
}

// Repository defines the interface for pullrequest data access operations.
// Every read returns the pull request joined with its current try build.
type Repository interface {
	// Upsert inserts the pull request or overwrites base branch, mergeable
	// state and status of the existing row.
	Upsert(ctx context.Context, params UpsertParams) (*pullrequestModel.PullRequestView, error)

	// GetByNumber finds pull request by repository and number.
	GetByNumber(ctx context.Context, repository string, number int64) (*pullrequestModel.PullRequestView, error)

	// GetByBuildID finds the pull request whose current try build is buildID.
	GetByBuildID(ctx context.Context, buildID int64) (*pullrequestModel.PullRequestView, error)

	// LockByNumber reads the pull request and locks its row until the
	// surrounding transaction ends.
	LockByNumber(ctx context.Context, repository string, number int64) (*pullrequestModel.PullRequestView, error)

	// Approve records an approval.
	Approve(ctx context.Context, repository string, number int64, params ApproveParams) error

	// Unapprove clears the approval.
	Unapprove(ctx context.Context, repository string, number int64) error

	// SetPriority sets the priority, nil restores the default.
	SetPriority(ctx context.Context, repository string, number int64, priority *int) error

	// SetRollupMode sets the rollup mode, nil clears it.
	SetRollupMode(ctx context.Context, repository string, number int64, rollup *pullrequestModel.RollupMode) error

	// SetDelegation stores delegation in whichever column the schema provides.
	SetDelegation(ctx context.Context, repository string, number int64, delegation pullrequestModel.Delegation) error

	// LinkBuild points the pull request at a new try build.
	LinkBuild(ctx context.Context, pullRequestID, buildID int64) error

	// UnlinkBuild removes the try build reference.
	UnlinkBuild(ctx context.Context, pullRequestID int64) error

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db         *gorm.DB
	logger     *zap.SugaredLogger
	delegation pullrequestModel.DelegationSchema
}

// New creates a new pullrequest repository instance, detecting the delegation
// column from the connected schema. Migrations must have run before.
func New(db *gorm.DB, logger *zap.SugaredLogger) Repository {
	schema := DetectDelegationSchema(db)
	logger.Debugw("pull request delegation schema detected", "column", schema.Column())
	return NewWithDelegationSchema(db, logger, schema)
}

// NewWithDelegationSchema creates a repository for a known delegation schema.
func NewWithDelegationSchema(
	db *gorm.DB,
	logger *zap.SugaredLogger,
	schema pullrequestModel.DelegationSchema,
) Repository {
	return &repository{
		db:         db,
		logger:     logger,
		delegation: schema,
	}
}

// DetectDelegationSchema inspects the pull_request table. The permission
// column wins when both are present.
func DetectDelegationSchema(db *gorm.DB) pullrequestModel.DelegationSchema {
	migrator := db.Migrator()
	if !migrator.HasColumn(pullRequestTable, "delegated_permission") &&
		migrator.HasColumn(pullRequestTable, "delegated") {
		return pullrequestModel.DelegationSchemaLegacyFlag
	}
	return pullrequestModel.DelegationSchemaPermission
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return NewWithDelegationSchema(tx, r.logger, r.delegation)
}

// Upsert inserts the pull request or overwrites base branch, mergeable state
// and status of the existing row. Conflicts on (repository, number) are
// resolved by the database, so concurrent callers never see a duplicate key.
func (r *repository) Upsert(
	ctx context.Context,
	params UpsertParams,
) (*pullrequestModel.PullRequestView, error) {
	r.logger.Debugw("Upsert called", "repository", params.Repository, "number", params.Number)

	values := map[string]interface{}{
		"repository":      params.Repository,
		"number":          params.Number,
		"base_branch":     params.BaseBranch,
		"mergeable_state": string(params.MergeableState),
		"status":          string(params.Status),
		"created_at":      time.Now().UTC(),
	}

	overwritten := []string{"base_branch", "mergeable_state", "status"}
	if params.KeepMergeableState {
		overwritten = []string{"base_branch", "status"}
	}

	var view *pullrequestModel.PullRequestView
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Table(pullRequestTable).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "repository"}, {Name: "number"}},
				DoUpdates: clause.AssignmentColumns(overwritten),
			}).
			Create(values).Error
		if err != nil {
			return translateWriteError(err)
		}

		var readErr error
		view, readErr = r.WithTx(tx).GetByNumber(ctx, params.Repository, params.Number)
		return readErr
	})
	if err != nil {
		r.logger.Errorw("Upsert failed", "repository", params.Repository, "number", params.Number, "error", err)
		return nil, err
	}

	r.logger.Debugw("Upsert completed", "id", view.ID, "status", view.Status)
	return view, nil
}

// GetByNumber finds pull request by repository and number.
func (r *repository) GetByNumber(
	ctx context.Context,
	repository string,
	number int64,
) (*pullrequestModel.PullRequestView, error) {
	return r.selectOne(r.query(ctx).
		Where("pull_request.repository = ? AND pull_request.number = ?", repository, number))
}

// GetByBuildID finds the pull request whose current try build is buildID.
func (r *repository) GetByBuildID(
	ctx context.Context,
	buildID int64,
) (*pullrequestModel.PullRequestView, error) {
	return r.selectOne(r.query(ctx).
		Where("pull_request.build_id = ?", buildID))
}

// LockByNumber reads the pull request with FOR UPDATE OF pull_request.
func (r *repository) LockByNumber(
	ctx context.Context,
	repository string,
	number int64,
) (*pullrequestModel.PullRequestView, error) {
	return r.selectOne(r.query(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: pullRequestTable}}).
		Where("pull_request.repository = ? AND pull_request.number = ?", repository, number))
}

func (r *repository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table(pullRequestTable).
		Select(selectColumns(r.delegation)).
		Joins("LEFT JOIN build ON build.id = pull_request.build_id")
}

func (r *repository) selectOne(query *gorm.DB) (*pullrequestModel.PullRequestView, error) {
	var rows []pullRequestRow
	if err := query.Limit(2).Scan(&rows).Error; err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return nil, pullrequestModel.ErrPullRequestNotFound
	case 1:
		return rows[0].decode(r.delegation)
	default:
		return nil, fmt.Errorf("%w: lookup matched %d pull requests",
			pullrequestModel.ErrConstraintViolation, len(rows))
	}
}

// Approve records an approval.
func (r *repository) Approve(
	ctx context.Context,
	repository string,
	number int64,
	params ApproveParams,
) error {
	values := map[string]interface{}{
		"approved_by":  params.Approver,
		"approved_sha": params.CommitSHA,
	}
	if params.Priority != nil {
		values["priority"] = *params.Priority
	}
	if params.Rollup != nil {
		values["rollup"] = string(*params.Rollup)
	}
	return r.updateByNumber(ctx, repository, number, values)
}

// Unapprove clears the approval.
func (r *repository) Unapprove(ctx context.Context, repository string, number int64) error {
	return r.updateByNumber(ctx, repository, number, map[string]interface{}{
		"approved_by":  nil,
		"approved_sha": nil,
	})
}

// SetPriority sets the priority, nil restores the default.
func (r *repository) SetPriority(ctx context.Context, repository string, number int64, priority *int) error {
	var value interface{}
	if priority != nil {
		value = *priority
	}
	return r.updateByNumber(ctx, repository, number, map[string]interface{}{"priority": value})
}

// SetRollupMode sets the rollup mode, nil clears it.
func (r *repository) SetRollupMode(
	ctx context.Context,
	repository string,
	number int64,
	rollup *pullrequestModel.RollupMode,
) error {
	var value interface{}
	if rollup != nil {
		value = string(*rollup)
	}
	return r.updateByNumber(ctx, repository, number, map[string]interface{}{"rollup": value})
}

// SetDelegation stores delegation in whichever column the schema provides.
func (r *repository) SetDelegation(
	ctx context.Context,
	repository string,
	number int64,
	delegation pullrequestModel.Delegation,
) error {
	var value interface{}
	var err error
	if r.delegation == pullrequestModel.DelegationSchemaLegacyFlag {
		value, err = pullrequestModel.EncodeDelegatedFlag(delegation)
	} else {
		value, err = pullrequestModel.EncodeDelegatedPermission(delegation)
	}
	if err != nil {
		return err
	}
	return r.updateByNumber(ctx, repository, number, map[string]interface{}{r.delegation.Column(): value})
}

// LinkBuild points the pull request at a new try build.
func (r *repository) LinkBuild(ctx context.Context, pullRequestID, buildID int64) error {
	return r.updateByID(ctx, pullRequestID, map[string]interface{}{"build_id": buildID})
}

// UnlinkBuild removes the try build reference.
func (r *repository) UnlinkBuild(ctx context.Context, pullRequestID int64) error {
	return r.updateByID(ctx, pullRequestID, map[string]interface{}{"build_id": nil})
}

func (r *repository) updateByNumber(
	ctx context.Context,
	repository string,
	number int64,
	values map[string]interface{},
) error {
	result := r.db.WithContext(ctx).
		Table(pullRequestTable).
		Where("repository = ? AND number = ?", repository, number).
		Updates(values)
	return r.checkUpdate(result, "repository", repository, "number", number)
}

func (r *repository) updateByID(ctx context.Context, id int64, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Table(pullRequestTable).
		Where("id = ?", id).
		Updates(values)
	return r.checkUpdate(result, "id", id)
}

func (r *repository) checkUpdate(result *gorm.DB, keysAndValues ...interface{}) error {
	if result.Error != nil {
		err := translateWriteError(result.Error)
		r.logger.Errorw("pull request update failed", append(keysAndValues, "error", err)...)
		return err
	}
	if result.RowsAffected == 0 {
		return pullrequestModel.ErrPullRequestNotFound
	}
	return nil
}

// translateWriteError marks unique and foreign key violations, which the
// upsert design should make impossible.
func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) || isConstraintError(err) {
		return fmt.Errorf("%w: %v", pullrequestModel.ErrConstraintViolation, err)
	}
	return err
}

func isConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "FOREIGN KEY constraint") ||
		strings.Contains(msg, "violates foreign key constraint")
}
