package model

import (
	"database/sql"
	"fmt"
)

// Delegation is the review authority handed to the pull request author.
type Delegation int

const (
	// DelegationNone means no permissions were delegated.
	DelegationNone Delegation = iota
	// DelegationTry allows the author to start try builds.
	DelegationTry
	// DelegationReview allows the author to approve, which includes try builds.
	DelegationReview
)

func (d Delegation) String() string {
	switch d {
	case DelegationNone:
		return "none"
	case DelegationTry:
		return "try"
	case DelegationReview:
		return "review"
	}
	return fmt.Sprintf("delegation(%d)", int(d))
}

// MarshalText encodes the delegation for JSON.
func (d Delegation) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes the JSON form produced by MarshalText.
func (d *Delegation) UnmarshalText(text []byte) error {
	parsed, err := ParseDelegation(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDelegation parses "none", "try" or "review".
func ParseDelegation(s string) (Delegation, error) {
	switch s {
	case "none", "":
		return DelegationNone, nil
	case "try":
		return DelegationTry, nil
	case "review":
		return DelegationReview, nil
	}
	return DelegationNone, fmt.Errorf("%w: delegation %q", ErrUnknownValue, s)
}

// DelegationSchema identifies which column the pull_request table uses to
// store delegation.
type DelegationSchema int

const (
	// DelegationSchemaPermission stores delegation in the delegated_permission text column.
	DelegationSchemaPermission DelegationSchema = iota
	// DelegationSchemaLegacyFlag stores delegation in the delegated boolean column.
	DelegationSchemaLegacyFlag
)

func (s DelegationSchema) String() string {
	if s == DelegationSchemaLegacyFlag {
		return "delegated"
	}
	return "delegated_permission"
}

// Column returns the pull_request column holding delegation.
func (s DelegationSchema) Column() string {
	return s.String()
}

// DecodeDelegatedPermission decodes the delegated_permission column.
// NULL means no delegation.
func DecodeDelegatedPermission(value sql.NullString) (Delegation, error) {
	if !value.Valid {
		return DelegationNone, nil
	}
	switch value.String {
	case "try":
		return DelegationTry, nil
	case "review":
		return DelegationReview, nil
	}
	return DelegationNone, fmt.Errorf("%w: delegated_permission %q", ErrSchemaMismatch, value.String)
}

// DecodeDelegatedFlag decodes the legacy delegated column. The flag predates
// try-only delegation, so true carries review authority.
func DecodeDelegatedFlag(value sql.NullBool) Delegation {
	if value.Valid && value.Bool {
		return DelegationReview
	}
	return DelegationNone
}

// EncodeDelegatedPermission returns the delegated_permission value for d.
func EncodeDelegatedPermission(d Delegation) (interface{}, error) {
	switch d {
	case DelegationNone:
		return nil, nil
	case DelegationTry:
		return "try", nil
	case DelegationReview:
		return "review", nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownValue, d)
}

// EncodeDelegatedFlag returns the legacy delegated value for d.
func EncodeDelegatedFlag(d Delegation) (bool, error) {
	switch d {
	case DelegationNone:
		return false, nil
	case DelegationReview:
		return true, nil
	case DelegationTry:
		return false, fmt.Errorf("%w: try delegation needs the delegated_permission column", ErrDelegationUnsupported)
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownValue, d)
}
