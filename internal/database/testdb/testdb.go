// Package testdb opens in-memory SQLite databases with the merge queue schema
// for unit tests.
package testdb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pullrequestModel "github.com/festy23/mergequeue/internal/pullrequest/model"
)

const buildTable = `CREATE TABLE build (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repository TEXT NOT NULL,
	branch TEXT NOT NULL,
	commit_sha TEXT NOT NULL,
	status TEXT NOT NULL,
	parent TEXT NOT NULL,
	created_at DATETIME NOT NULL
)`

const pullRequestTable = `CREATE TABLE pull_request (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repository TEXT NOT NULL,
	number INTEGER NOT NULL,
	approved_by TEXT,
	approved_sha TEXT,
	status TEXT NOT NULL,
	priority INTEGER,
	rollup TEXT,
	%s,
	base_branch TEXT NOT NULL,
	mergeable_state TEXT NOT NULL,
	build_id INTEGER REFERENCES build(id),
	created_at DATETIME NOT NULL,
	UNIQUE (repository, number)
)`

// Open returns a database with the current schema, where delegation is
// stored in the delegated_permission column.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	return OpenWithSchema(t, pullrequestModel.DelegationSchemaPermission)
}

// OpenWithSchema returns a database whose pull_request table stores
// delegation in the given shape.
func OpenWithSchema(t *testing.T, schema pullrequestModel.DelegationSchema) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	delegationColumn := "delegated_permission TEXT"
	if schema == pullrequestModel.DelegationSchemaLegacyFlag {
		delegationColumn = "delegated BOOLEAN NOT NULL DEFAULT FALSE"
	}

	require.NoError(t, db.Exec(buildTable).Error)
	require.NoError(t, db.Exec(fmt.Sprintf(pullRequestTable, delegationColumn)).Error)
	return db
}
