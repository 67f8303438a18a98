// Package model provides domain models for the build module.
package model

import (
	"database/sql"
	"fmt"
	"time"
)

// Status is the lifecycle state of a build. The text form is what gets stored.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusCancelled Status = "cancelled"
	StatusTimeouted Status = "timeouted"
)

// ParseStatus converts stored text into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: build status %q", ErrUnknownValue, s)
	}
	return status, nil
}

// Valid reports whether s is a known build status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailure, StatusCancelled, StatusTimeouted:
		return true
	}
	return false
}

// IsFinished reports whether the build reached a terminal status.
func (s Status) IsFinished() bool {
	return s.Valid() && s != StatusPending
}

func (s Status) String() string {
	return string(s)
}

// Build is a try or auto build run by CI on a bot-managed branch.
// Matches the build table schema.
type Build struct {
	ID         int64     `gorm:"primaryKey;column:id;autoIncrement"                 json:"id"`
	Repository string    `gorm:"column:repository;type:text;not null"               json:"repository"`
	Branch     string    `gorm:"column:branch;type:text;not null"                   json:"branch"`
	CommitSHA  string    `gorm:"column:commit_sha;type:text;not null"               json:"commit_sha"`
	Status     Status    `gorm:"column:status;type:text;not null"                   json:"status"`
	Parent     string    `gorm:"column:parent;type:text;not null"                   json:"parent"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null"        json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Build) TableName() string {
	return "build"
}

// NullableBuild holds the build columns of a LEFT JOIN, each of which is NULL
// when the joined row does not exist.
type NullableBuild struct {
	ID         sql.NullInt64
	Repository sql.NullString
	Branch     sql.NullString
	CommitSHA  sql.NullString
	Status     sql.NullString
	Parent     sql.NullString
	CreatedAt  sql.NullTime
}

// JoinColumns is the select list producing NullableBuild columns from a
// table joined as "build".
const JoinColumns = "build.id AS build_id, " +
	"build.repository AS build_repository, " +
	"build.branch AS build_branch, " +
	"build.commit_sha AS build_commit_sha, " +
	"build.status AS build_status, " +
	"build.parent AS build_parent, " +
	"build.created_at AS build_created_at"

// Decode turns the joined columns into a build as a single unit.
// It returns nil when every column is NULL and an error when only some are.
func (n NullableBuild) Decode() (*Build, error) {
	present := []bool{
		n.ID.Valid,
		n.Repository.Valid,
		n.Branch.Valid,
		n.CommitSHA.Valid,
		n.Status.Valid,
		n.Parent.Valid,
		n.CreatedAt.Valid,
	}

	count := 0
	for _, p := range present {
		if p {
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}
	if count != len(present) {
		return nil, fmt.Errorf("%w: build %d is partially populated", ErrSchemaMismatch, n.ID.Int64)
	}

	status, err := ParseStatus(n.Status.String)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	return &Build{
		ID:         n.ID.Int64,
		Repository: n.Repository.String,
		Branch:     n.Branch.String,
		CommitSHA:  n.CommitSHA.String,
		Status:     status,
		Parent:     n.Parent.String,
		CreatedAt:  n.CreatedAt.Time,
	}, nil
}
