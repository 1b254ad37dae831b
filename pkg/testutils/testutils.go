// SPDX-License-Identifier: Apache-2.0

// Package testutils adapts the module's shared postgres test container
// harness for the domain packages under pkg/: it hands back a ready-to-use
// db.DB instead of a bare *sql.DB connection.
package testutils

import (
	"database/sql"
	"testing"

	"github.com/tableload/tableload/internal/testutils"
	"github.com/tableload/tableload/pkg/db"
)

// SharedTestMain starts the shared postgres container for a package's tests.
func SharedTestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

// WithDB runs fn with a db.DB backed by a fresh database inside the shared
// test container.
func WithDB(t *testing.T, fn func(database db.DB)) {
	t.Helper()
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, _ string) {
		fn(&db.RDB{DB: conn})
	})
}

// WithRawDB runs fn with a raw *sql.DB connection, for tests that need to
// drive a *sql.Tx directly rather than through db.DB's retry wrapper.
func WithRawDB(t *testing.T, fn func(conn *sql.DB)) {
	t.Helper()
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, _ string) {
		fn(conn)
	})
}
