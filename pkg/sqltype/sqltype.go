// SPDX-License-Identifier: Apache-2.0

// Package sqltype is the schema-helper contract (component A, external per
// spec.md §1 but implemented here against github.com/santhosh-tekuri/jsonschema/v6
// since this core has no other JSON-schema document model to borrow): type
// introspection over an incoming per-batch structural schema, SQL-type
// mapping, and nullability combinators.
package sqltype

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Field is the structural schema of one record field: its JSON-schema type,
// optional format keyword, nullability and declared default, plus its
// nested shape when Type is "object" or "array".
type Field struct {
	Type     string // "string", "integer", "number", "boolean", "object", "array"
	Format   string // e.g. "date-time"; empty if not declared
	Nullable bool
	Default  *string

	Properties map[string]Field // populated when Type == "object"
	Items      *Field           // populated when Type == "array"
}

// ParseBatchSchema validates raw as a well-formed JSON Schema document (so
// the reconciler never touches live DDL on the strength of a malformed
// incoming schema) and extracts a Field per top-level property, recursing
// into nested objects and array items.
func ParseBatchSchema(raw []byte) (map[string]Field, error) {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing batch schema: %w", err)
	}
	const resourceID = "batch-schema.json"
	if err := c.AddResource(resourceID, doc); err != nil {
		return nil, fmt.Errorf("adding batch schema resource: %w", err)
	}
	if _, err := c.Compile(resourceID); err != nil {
		return nil, fmt.Errorf("compiling batch schema: %w", err)
	}

	var node schemaNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("decoding batch schema properties: %w", err)
	}

	fields := make(map[string]Field, len(node.Properties))
	for name, raw := range node.Properties {
		f, err := parseNode(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding schema for property %q: %w", name, err)
		}
		fields[name] = f
	}
	return fields, nil
}

type schemaNode struct {
	Type       json.RawMessage            `json:"type"`
	Format     string                     `json:"format"`
	Default    *string                    `json:"default"`
	Properties map[string]json.RawMessage `json:"properties"`
	Items      json.RawMessage            `json:"items"`
}

func parseNode(raw json.RawMessage) (Field, error) {
	var node schemaNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return Field{}, err
	}

	f := Field{Format: node.Format, Default: node.Default}
	f.Type, f.Nullable = parseTypeKeyword(node.Type)

	if f.Type == "object" && len(node.Properties) > 0 {
		f.Properties = make(map[string]Field, len(node.Properties))
		for name, childRaw := range node.Properties {
			child, err := parseNode(childRaw)
			if err != nil {
				return Field{}, err
			}
			f.Properties[name] = child
		}
	}

	if f.Type == "array" && len(node.Items) > 0 {
		item, err := parseNode(node.Items)
		if err != nil {
			return Field{}, err
		}
		f.Items = &item
	}

	return f, nil
}

// parseTypeKeyword decodes the JSON Schema "type" keyword, which may be a
// single string or an array of strings (the array form is how a nullable
// scalar field is usually declared, e.g. ["string", "null"]).
func parseTypeKeyword(raw json.RawMessage) (sqlType string, nullable bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, false
	}

	var multi []string
	if err := json.Unmarshal(raw, &multi); err == nil {
		for _, t := range multi {
			if t == "null" {
				nullable = true
				continue
			}
			sqlType = t
		}
	}
	return sqlType, nullable
}

// GetType returns the field's base JSON-schema type, ignoring nullability.
func GetType(f Field) string {
	return f.Type
}

// IsNullable reports whether f accepts a null value.
func IsNullable(f Field) bool {
	return f.Nullable
}

// MakeNullable returns f with Nullable forced true.
func MakeNullable(f Field) Field {
	f.Nullable = true
	return f
}

// ToSQL renders the SQL column type declaration for f, including NULL/NOT
// NULL; see ToSQLType for the bare type.
func ToSQL(f Field) string {
	sqlType := ToSQLType(f)
	if f.Nullable {
		return sqlType
	}
	return sqlType + " NOT NULL"
}

// ToSQLType maps f's JSON-schema type/format pair to a Postgres column
// type, ignoring nullability. The returned strings match the data_type
// values information_schema.columns reports back, so FromSQL round-trips.
func ToSQLType(f Field) string {
	switch f.Type {
	case "integer":
		return "bigint"
	case "number":
		return "double precision"
	case "boolean":
		return "boolean"
	case "object", "array":
		return "jsonb"
	case "string":
		if f.Format == "date-time" {
			return "timestamp with time zone"
		}
		return "text"
	default:
		return "text"
	}
}

// FromSQL reconstructs a Field from a Postgres column type as read back
// from the catalog, used by the reconciler to compare a remote column's
// type against an incoming one.
func FromSQL(sqlType string, nullable bool) Field {
	f := Field{Nullable: nullable}
	switch sqlType {
	case "bigint", "integer", "smallint":
		f.Type = "integer"
	case "double precision", "real", "numeric":
		f.Type = "number"
	case "boolean":
		f.Type = "boolean"
	case "jsonb", "json":
		f.Type = "object"
	case "timestamp with time zone", "timestamp without time zone":
		f.Type = "string"
		f.Format = "date-time"
	default:
		f.Type = "string"
	}
	return f
}

// SQLShorthand returns the stable, injective short tag used to build
// type-split column names (§4.D): round-tripping the same underlying type
// must always collide on the same tag.
func SQLShorthand(f Field) string {
	switch f.Type {
	case "integer":
		return "i"
	case "number":
		return "f"
	case "boolean":
		return "b"
	case "object", "array":
		return "j"
	case "string":
		if f.Format == "date-time" {
			return "t"
		}
		return "s"
	default:
		return "s"
	}
}
