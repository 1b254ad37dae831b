// SPDX-License-Identifier: Apache-2.0

package bulkload

import (
	"time"

	"github.com/tableload/tableload/pkg/catalog"
	"github.com/tableload/tableload/pkg/denest"
	"github.com/tableload/tableload/pkg/record"
	"github.com/tableload/tableload/pkg/sqltype"
)

// SentinelWarner is called when a user-supplied value collides with the
// reserved null sentinel (§7.4 advisory).
type SentinelWarner func(table, column string)

// resolveRow applies the field-resolution rules of §4.E step 2 to one
// denested row, returning a mapping from output column name (after
// mapping substitution) to the value that should be written into the CSV
// row, with first-writer-wins/non-null-wins collision handling.
func resolveRow(table string, row denest.Row, fieldUniverse []string, incoming map[string]sqltype.Field, mappings map[string]catalog.Mapping, warn SentinelWarner) map[string]any {
	out := make(map[string]any, len(fieldUniverse))

	for _, field := range fieldUniverse {
		value := row[field]
		fieldSchema, hasSchema := incoming[field]

		if value == nil && hasSchema && fieldSchema.Default != nil {
			value = *fieldSchema.Default
		}

		if hasSchema && fieldSchema.Format == "date-time" && value != nil {
			if formatted, ok := formatTimestamp(value); ok {
				value = formatted
			}
		}

		if s, ok := value.(string); ok && s == record.ReservedNullSentinel {
			warn(table, field)
			value = nil
		}

		outCol := field
		if hasSchema {
			shorthand := sqltype.SQLShorthand(fieldSchema)
			for mappedName, m := range mappings {
				if m.From == field && m.Type == shorthand {
					outCol = mappedName
					break
				}
			}
		}

		if existing, exists := out[outCol]; exists {
			if existing != nil || value == nil {
				continue
			}
		}
		out[outCol] = value
	}

	return out
}

// formatTimestamp normalizes a date-time value to the wire timestamp
// format of §6.
func formatTimestamp(value any) (string, bool) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(record.TimestampFormat), true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format(record.TimestampFormat), true
			}
		}
		return "", false
	default:
		return "", false
	}
}

// fieldUniverse computes the set of fields to resolve for a table's rows:
// the temp table's own column names, plus the original name of any column
// that a mapping records as its source (§4.E step 2).
func fieldUniverse(columns map[string]catalog.Column, mappings map[string]catalog.Mapping) []string {
	seen := make(map[string]struct{}, len(columns)+len(mappings))
	var out []string
	for name := range columns {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, m := range mappings {
		if _, ok := seen[m.From]; ok {
			continue
		}
		seen[m.From] = struct{}{}
		out = append(out, m.From)
	}
	return out
}
