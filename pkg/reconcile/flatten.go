// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"github.com/tableload/tableload/pkg/record"
	"github.com/tableload/tableload/pkg/sqltype"
)

// FlattenSchema walks an incoming per-batch structural schema the same way
// pkg/denest walks a record's data: nested objects inline into the current
// table under a compound name, nested arrays spawn a schema for the child
// table at root<SEP>path. The result is one flat column-schema set per
// table name that will receive rows during this batch.
func FlattenSchema(root string, fields map[string]sqltype.Field) map[string]map[string]sqltype.Field {
	out := map[string]map[string]sqltype.Field{}
	flattenInto(out, root, "", fields)
	return out
}

func flattenInto(out map[string]map[string]sqltype.Field, table, prefix string, fields map[string]sqltype.Field) {
	if out[table] == nil {
		out[table] = map[string]sqltype.Field{}
	}

	for name, f := range fields {
		path := name
		if prefix != "" {
			path = prefix + record.Separator + name
		}

		switch f.Type {
		case "array":
			childTable := table + record.Separator + path
			if f.Items == nil {
				continue
			}
			if f.Items.Type == "object" {
				flattenInto(out, childTable, "", f.Items.Properties)
			} else {
				flattenInto(out, childTable, "", map[string]sqltype.Field{"value": *f.Items})
			}

		case "object":
			flattenInto(out, table, path, f.Properties)

		default:
			out[table][path] = f
		}
	}
}
