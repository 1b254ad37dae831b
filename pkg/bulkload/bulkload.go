// SPDX-License-Identifier: Apache-2.0

// Package bulkload implements the bulk loader (component E): for each
// target table, it creates a temp staging table, streams denested rows
// into it via bulk-copy, then runs the versioned upsert merge against the
// live target.
package bulkload

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/tableload/tableload/pkg/batchlog"
	"github.com/tableload/tableload/pkg/catalog"
	"github.com/tableload/tableload/pkg/denest"
	"github.com/tableload/tableload/pkg/sqltype"
)

// Loader streams rows into a temp staging table and merges them into the
// live target within the caller's transaction.
type Loader struct {
	Logger batchlog.Logger
}

// New constructs a Loader.
func New(logger batchlog.Logger) *Loader {
	if logger == nil {
		logger = batchlog.NewNoop()
	}
	return &Loader{Logger: logger}
}

// TableLoad bundles everything the loader needs for one target table.
type TableLoad struct {
	Target     string
	Temp       string
	Remote     *catalog.Table
	Incoming   map[string]sqltype.Field
	KeyColumns []string
	Rows       []denest.Row
}

// Load runs the full per-table load protocol of §4.E inside tx: create the
// temp table, stream rows via COPY, run the merge, drop the temp table.
func (l *Loader) Load(ctx context.Context, tx *sql.Tx, load TableLoad) error {
	l.Logger.InfoBulkLoadStart(load.Target, len(load.Rows))
	defer l.Logger.InfoBulkLoadComplete(load.Target, len(load.Rows))

	if err := createTempTable(ctx, tx, load.Temp, load.Remote); err != nil {
		return fmt.Errorf("creating temp table %q: %w", load.Temp, err)
	}

	columnOrder := sortedColumnNames(load.Remote.Columns)
	universe := fieldUniverse(load.Remote.Columns, load.Remote.Metadata.Mappings)

	warn := func(table, column string) { l.Logger.WarnReservedSentinel(table, column) }

	if err := copyRows(ctx, tx, load.Target, load.Temp, columnOrder, load.Rows, func(row denest.Row) map[string]any {
		return resolveRow(load.Target, row, universe, load.Incoming, load.Remote.Metadata.Mappings, warn)
	}); err != nil {
		return fmt.Errorf("copying rows into %q: %w", load.Temp, err)
	}

	levelColumns := LevelIDColumns(columnOrder)
	mergeSQL := buildMergeSQL(load.Target, load.Temp, load.KeyColumns, levelColumns)
	if _, err := tx.ExecContext(ctx, mergeSQL); err != nil {
		return fmt.Errorf("merging %q into %q: %w", load.Temp, load.Target, err)
	}

	return nil
}

// createTempTable copies the target's structure with LIKE, so the temp
// table's columns are in the target's own column order and the merge's
// positional INSERT ... SELECT temp.* lines up column for column.
func createTempTable(ctx context.Context, tx *sql.Tx, temp string, remote *catalog.Table) error {
	stmt := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s)", pq.QuoteIdentifier(temp), pq.QuoteIdentifier(remote.Name))
	_, err := tx.ExecContext(ctx, stmt)
	return err
}

func joinDefs(defs []string) string {
	return strings.Join(defs, ", ")
}

func sortedColumnNames(columns map[string]catalog.Column) []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// copyRows streams rows into temp via a bulk-copy channel (§9: "the source
// feeds CSV one row at a time through a read-callback adapter"), using
// resolve to compute each row's output-column values before handing them
// to the driver's COPY FROM STDIN statement. table names the target table
// that an OversizedFieldError reports, not the temp staging table itself.
func copyRows(ctx context.Context, tx *sql.Tx, table, temp string, columnOrder []string, rows []denest.Row, resolve func(denest.Row) map[string]any) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(temp, columnOrder...))
	if err != nil {
		return err
	}

	for _, row := range rows {
		resolved := resolve(row)
		values := make([]any, len(columnOrder))
		for i, col := range columnOrder {
			if s, ok := resolved[col].(string); ok && len(s) > maxFieldBytes {
				stmt.Close()
				return OversizedFieldError{Table: table, Column: col, Bytes: len(s)}
			}
			values[i] = resolved[col]
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			stmt.Close()
			return err
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}

	return stmt.Close()
}
