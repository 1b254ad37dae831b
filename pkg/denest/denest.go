// SPDX-License-Identifier: Apache-2.0

// Package denest implements the record transformer (component B): per-record
// normalization and recursive flattening of a nested record payload into a
// set of flat rows spread across a parent table and synthetic child tables.
package denest

import (
	"time"

	"github.com/google/uuid"

	"github.com/tableload/tableload/pkg/record"
)

// Row is a flat mapping from compound column name to scalar value.
type Row map[string]any

// Clone returns a shallow copy of r, so that callers can hand it down a
// recursion branch without the branches sharing mutable state.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RecordsMap groups denested rows by the name of the table they belong to.
type RecordsMap map[string][]Row

// Normalize applies the per-record field defaulting described in spec §4.B
// and returns the normalized record object, ready for denesting.
func Normalize(msg record.Message, useUUIDPK bool, batchedAt time.Time) record.Object {
	out := make(record.Object, len(msg.Record)+4)
	for k, v := range msg.Record {
		out[k] = v
	}

	if v, ok := msg.HasVersion(); ok {
		out[record.TableVersionColumn] = v
	}

	if _, exists := out[record.ReceivedAtColumn]; !exists {
		if msg.TimeExtracted.IsSpecified() && !msg.TimeExtracted.IsNull() {
			t, _ := msg.TimeExtracted.Get()
			out[record.ReceivedAtColumn] = t
		}
	}

	if useUUIDPK {
		if _, exists := out[record.PrimaryKeyColumn]; !exists {
			out[record.PrimaryKeyColumn] = uuid.NewString()
		}
	}

	out[record.BatchedAtColumn] = batchedAt
	out[record.SequenceColumn] = msg.SequenceOr(time.Now().Unix())

	return out
}

// Denest flattens a normalized record into rows spread across table,
// table<SEP><path> for each nested list path, and so on recursively. Rows
// are appended to recordsMap in traversal order, which matters as the
// tie-break when two rows collide on key+level-index during the bulk-load
// merge (§4.E).
func Denest(recordsMap RecordsMap, table string, keyProperties []string, obj record.Object) {
	bag := make(Row, len(keyProperties)+1)
	for _, k := range keyProperties {
		bag[record.SourceKeyColumn(k)] = obj[k]
	}
	if seq, ok := obj[record.SequenceColumn]; ok {
		bag[record.SequenceColumn] = seq
	}

	denestRow(recordsMap, table, -1, bag, obj)
}

// denestRow builds one flat row for obj at (table, level), seeded with a
// clone of inherited, then appends it to recordsMap[table]. Nested lists
// found while walking obj spawn child rows via recursive calls before this
// row is appended, so within each table rows appear in depth-first
// traversal order: parents in input order, each parent's list items in
// list order.
func denestRow(recordsMap RecordsMap, table string, level int, inherited Row, obj record.Object) {
	row := inherited.Clone()
	denestObject(recordsMap, table, level, inherited, obj, "", row)
	recordsMap[table] = append(recordsMap[table], row)
}

// denestObject walks obj, writing scalar leaves into row under a compound
// name built from prefix, inlining nested objects under their own compound
// prefix, and spawning child-table rows for nested lists. inherited is the
// PK bag for the row currently being built (not the row itself). It is never
// mutated here: each list item gets its own clone, so sibling branches of
// the recursion never see each other's level-index columns.
func denestObject(recordsMap RecordsMap, table string, level int, inherited Row, obj record.Object, prefix string, row Row) {
	for key, val := range obj {
		path := key
		if prefix != "" {
			path = prefix + record.Separator + key
		}

		switch v := val.(type) {
		case nil:
			if prefix == "" {
				row[path] = nil
			}
			// a null leaf inside a nested object materializes no column

		case record.List:
			childTable := table + record.Separator + path
			childLevel := level + 1
			for i, item := range v {
				childBag := inherited.Clone()
				childBag[record.LevelIDColumn(childLevel)] = i
				denestRow(recordsMap, childTable, childLevel, childBag, asObject(item))
			}

		case record.Object:
			denestObject(recordsMap, table, level, inherited, v, path, row)

		default:
			row[path] = v
		}
	}
}

// asObject coerces a list element into a record.Object so that scalar list
// items still produce a denested row, under a single "value" column.
func asObject(v record.Value) record.Object {
	if obj, ok := v.(record.Object); ok {
		return obj
	}
	return record.Object{"value": v}
}
