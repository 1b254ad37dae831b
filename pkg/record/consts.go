// SPDX-License-Identifier: Apache-2.0

package record

import "fmt"

// Separator joins path segments, table-version suffixes and mapped-column
// type tags. It must not appear in user field names; if it does, the
// resulting name collisions are the caller's responsibility.
const Separator = "__"

// System column names, fixed across every stream (§6).
const (
	ReceivedAtColumn   = "_sdc_received_at"
	BatchedAtColumn    = "_sdc_batched_at"
	SequenceColumn     = "_sdc_sequence"
	PrimaryKeyColumn   = "_sdc_primary_key"
	TableVersionColumn = "_sdc_table_version"
)

// ReservedNullSentinel is the reserved null token (§6). Nulls reach the bulk
// copy as Go nil, not as this string; a user value equal to it literally is
// logged as an advisory condition (pkg/batchlog) and written as null.
const ReservedNullSentinel = "NULL"

// TimestampFormat is the layout emitted to the database for date-time
// fields: four-digit fractional seconds, colon-less timezone offset.
const TimestampFormat = "2006-01-02 15:04:05.0000-0700"

// SourceKeyColumn returns the inherited-PK column name for a key property k.
func SourceKeyColumn(k string) string {
	return fmt.Sprintf("_sdc_source_key_%s", k)
}

// LevelIDColumn returns the level-index column name for nesting level n.
func LevelIDColumn(n int) string {
	return fmt.Sprintf("_sdc_level_%d_id", n)
}
