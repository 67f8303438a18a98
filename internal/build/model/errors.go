package model

import "errors"

var (
	// ErrBuildNotFound indicates that no build exists with the given identity.
	ErrBuildNotFound = errors.New("build not found")
	// ErrBuildFinished indicates an attempt to move a finished build to a different status.
	ErrBuildFinished = errors.New("build already finished")
	// ErrUnknownValue indicates that a text value is not a member of an enumeration.
	ErrUnknownValue = errors.New("unknown enum value")
	// ErrSchemaMismatch indicates a stored row that this version cannot decode.
	// It points at writer/reader version skew and is never retryable.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
