// SPDX-License-Identifier: Apache-2.0

// Package batch implements the batch orchestrator (component F): it drives
// one write_batch call end-to-end inside a single transaction, wiring
// together the record transformer, remote-schema reader/writer, schema
// reconciler and bulk loader.
package batch

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tableload/tableload/pkg/batchlog"
	"github.com/tableload/tableload/pkg/bulkload"
	"github.com/tableload/tableload/pkg/catalog"
	"github.com/tableload/tableload/pkg/db"
	"github.com/tableload/tableload/pkg/denest"
	"github.com/tableload/tableload/pkg/reconcile"
	"github.com/tableload/tableload/pkg/record"
	"github.com/tableload/tableload/pkg/sqltype"
	"github.com/tableload/tableload/pkg/stream"
)

// Orchestrator drives write_batch calls against a database.
type Orchestrator struct {
	DB     db.DB
	Logger batchlog.Logger
}

// New constructs an Orchestrator.
func New(database db.DB, logger batchlog.Logger) *Orchestrator {
	if logger == nil {
		logger = batchlog.NewNoop()
	}
	return &Orchestrator{DB: database, Logger: logger}
}

// WriteBatch drains buf's current contents into the target database inside
// one transaction, per spec.md §4.F. It flushes buf only after a
// successful commit.
func (o *Orchestrator) WriteBatch(ctx context.Context, buf stream.Buffer) error {
	if buf.Count() == 0 {
		return nil
	}

	messages := buf.PeekBuffer()
	now := time.Now().UTC()

	normalized := make([]record.Object, len(messages))
	versionsSeen := map[int64]struct{}{}
	var maxVersion *int64
	for i, msg := range messages {
		normalized[i] = denest.Normalize(msg, buf.UseUUIDPK(), now)
		if v, ok := msg.HasVersion(); ok {
			versionsSeen[v] = struct{}{}
			if maxVersion == nil || v > *maxVersion {
				vv := v
				maxVersion = &vv
			}
		}
	}
	if len(versionsSeen) > 1 {
		versions := make([]int64, 0, len(versionsSeen))
		for v := range versionsSeen {
			versions = append(versions, v)
		}
		o.Logger.WarnMultipleVersions(buf.Stream(), versions)
	}

	fields, err := sqltype.ParseBatchSchema(buf.Schema())
	if err != nil {
		return fmt.Errorf("write_batch failed for stream %q: %w", buf.Stream(), err)
	}

	// Declare the system columns every normalized record carries, so the
	// root table has them and the merge can order by _sdc_sequence.
	systemFields := map[string]sqltype.Field{
		record.ReceivedAtColumn:   {Type: "string", Format: "date-time", Nullable: true},
		record.BatchedAtColumn:    {Type: "string", Format: "date-time", Nullable: true},
		record.SequenceColumn:     {Type: "integer", Nullable: true},
		record.TableVersionColumn: {Type: "integer", Nullable: true},
	}
	if buf.UseUUIDPK() {
		systemFields[record.PrimaryKeyColumn] = sqltype.Field{Type: "string", Nullable: true}
	}
	for name, f := range systemFields {
		if _, declared := fields[name]; !declared {
			fields[name] = f
		}
	}

	err = o.DB.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return o.writeBatchTx(ctx, tx, buf, normalized, versionsSeen, maxVersion, fields)
	})
	if err != nil {
		return fmt.Errorf("write_batch failed for stream %q: %w", buf.Stream(), err)
	}

	return buf.FlushBuffer()
}

func (o *Orchestrator) writeBatchTx(ctx context.Context, tx *sql.Tx, buf stream.Buffer, normalized []record.Object, versionsSeen map[int64]struct{}, maxVersion *int64, fields map[string]sqltype.Field) error {
	cat := &catalog.Catalog{DB: tx}

	remote, err := cat.GetTableSchema(ctx, buf.Stream())
	if err != nil {
		return err
	}

	if remote != nil && remote.Metadata.Version != nil {
		for v := range versionsSeen {
			if v < *remote.Metadata.Version {
				o.Logger.WarnOlderVersion(buf.Stream(), v, *remote.Metadata.Version)
			}
		}
	}

	rootTable := buf.Stream()
	var targetVersion *int64
	if remote != nil && remote.Metadata.Version != nil {
		targetVersion = remote.Metadata.Version
		if maxVersion != nil && *maxVersion > *remote.Metadata.Version {
			targetVersion = maxVersion
			rootTable = buf.Stream() + record.Separator + strconv.FormatInt(*targetVersion, 10)
		}
	}

	filtered := normalized
	if targetVersion != nil {
		filtered = make([]record.Object, 0, len(normalized))
		for _, obj := range normalized {
			v, ok := obj[record.TableVersionColumn].(int64)
			if ok && v == *targetVersion {
				filtered = append(filtered, obj)
			}
		}
	}

	reconciler := reconcile.New(cat, o.Logger)
	tables, flattened, err := reconciler.ReconcileAll(ctx, rootTable, buf.KeyProperties(), targetVersion, fields)
	if err != nil {
		return err
	}

	recordsMap := denest.RecordsMap{}
	for _, obj := range filtered {
		denest.Denest(recordsMap, rootTable, buf.KeyProperties(), obj)
	}

	loader := bulkload.New(o.Logger)
	for table, schema := range tables {
		rows := recordsMap[table]
		temp := table + record.Separator + uuid.NewString()

		if err := loader.Load(ctx, tx, bulkload.TableLoad{
			Target:     table,
			Temp:       temp,
			Remote:     schema,
			Incoming:   flattened[table],
			KeyColumns: keyColumnsFor(table, rootTable, buf.KeyProperties()),
			Rows:       rows,
		}); err != nil {
			return err
		}
	}

	return nil
}

// keyColumnsFor returns the natural-key columns used by the bulk loader's
// merge for table: the stream's declared key properties for the root
// table, or the inherited source-key columns for a child table (§3).
func keyColumnsFor(table, root string, keyProperties []string) []string {
	if table == root {
		return keyProperties
	}
	out := make([]string, len(keyProperties))
	for i, k := range keyProperties {
		out[i] = record.SourceKeyColumn(k)
	}
	return out
}
