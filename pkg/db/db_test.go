// SPDX-License-Identifier: Apache-2.0

package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tableload/tableload/internal/testutils"
	"github.com/tableload/tableload/pkg/db"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func TestExecContextRetriesOnLockTimeout(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		ctx := context.Background()
		setupTableLock(t, connStr, 2*time.Second)
		ensureLockTimeout(t, conn, 100)

		rdb := &db.RDB{DB: conn}
		_, err := rdb.ExecContext(ctx, "INSERT INTO lock_test(id) VALUES (1)")
		require.NoError(t, err)
	})
}

func TestExecContextStopsOnContextCancellation(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		ctx, cancel := context.WithCancel(context.Background())
		setupTableLock(t, connStr, 2*time.Second)
		ensureLockTimeout(t, conn, 100)

		rdb := &db.RDB{DB: conn}
		go time.AfterFunc(500*time.Millisecond, cancel)

		_, err := rdb.ExecContext(ctx, "INSERT INTO lock_test(id) VALUES (1)")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func ensureLockTimeout(t *testing.T, conn *sql.DB, ms int) {
	t.Helper()
	_, err := conn.ExecContext(context.Background(), fmt.Sprintf("SET lock_timeout = '%dms'", ms))
	require.NoError(t, err)
}

// setupTableLock creates lock_test and holds an exclusive lock on it for
// `hold` in a separate connection, releasing it when the test ends.
func setupTableLock(t *testing.T, connStr string, hold time.Duration) {
	t.Helper()
	ctx := context.Background()

	conn, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, "CREATE TABLE lock_test (id int)")
	require.NoError(t, err)

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)

	_, err = tx.ExecContext(ctx, "LOCK TABLE lock_test IN ACCESS EXCLUSIVE MODE")
	require.NoError(t, err)

	go func() {
		time.Sleep(hold)
		tx.Rollback()
		conn.Close()
	}()

	t.Cleanup(func() {
		conn.Close()
	})
}
