// SPDX-License-Identifier: Apache-2.0

// Package catalog is the remote-schema reader/writer (component C): it
// reads and writes a table's structural column catalog together with its
// sidecar metadata (key columns, version, column mappings), the latter
// stored as the table's comment per spec.md §3.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/tableload/tableload/pkg/db"
)

// Column is one structural column of a live table, as read from the
// database catalog.
type Column struct {
	Name     string
	SQLType  string
	Nullable bool
}

// Mapping records that a synthetic column was derived from an original
// column during a type split (§3, §4.D).
type Mapping struct {
	From string `json:"from"`
	Type string `json:"type"`
}

// Metadata is the sidecar JSON blob stored as a table's comment. These are
// the only three keys ever persisted; any other incoming key is dropped by
// SetTableMetadata.
type Metadata struct {
	KeyProperties []string           `json:"key_properties"`
	Version       *int64             `json:"version"`
	Mappings      map[string]Mapping `json:"mappings"`
}

// Table is the union of a live table's structural columns and its sidecar
// metadata.
type Table struct {
	Name     string
	Columns  map[string]Column
	Metadata Metadata
}

// Conn is the minimal executor Catalog needs. *sql.Tx, *sql.DB and
// pkg/db.RDB all satisfy it, so a Catalog can be driven either directly or
// inside the batch orchestrator's transaction.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Catalog reads and writes table structure and sidecar metadata against a
// live Postgres connection.
type Catalog struct {
	DB Conn
}

// GetTableSchema returns the union of catalog columns and sidecar metadata
// for name, or (nil, nil) if the table does not exist.
func (c *Catalog) GetTableSchema(ctx context.Context, name string) (*Table, error) {
	exists, err := c.tableExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking table %q existence: %w", name, err)
	}
	if !exists {
		return nil, nil
	}

	columns, err := c.readColumns(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading columns of table %q: %w", name, err)
	}

	meta, err := c.readMetadata(ctx, name)
	if err != nil {
		return nil, err
	}

	return &Table{Name: name, Columns: columns, Metadata: meta}, nil
}

func (c *Catalog) tableExists(ctx context.Context, name string) (bool, error) {
	rows, err := c.DB.QueryContext(ctx, "SELECT to_regclass($1) IS NOT NULL", name)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var exists bool
	if err := db.ScanFirstValue(rows, &exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (c *Catalog) readColumns(ctx context.Context, name string) (map[string]Column, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]Column)
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.SQLType, &col.Nullable); err != nil {
			return nil, err
		}
		columns[col.Name] = col
	}
	return columns, rows.Err()
}

func (c *Catalog) readMetadata(ctx context.Context, name string) (Metadata, error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT obj_description(to_regclass($1), 'pg_class')`, name)
	if err != nil {
		return Metadata{}, err
	}
	defer rows.Close()

	var comment sql.NullString
	if err := db.ScanFirstValue(rows, &comment); err != nil {
		return Metadata{}, err
	}
	if !comment.Valid || comment.String == "" {
		return Metadata{}, nil
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(comment.String), &meta); err != nil {
		return Metadata{}, SidecarParseError{Table: name, Err: err}
	}
	return meta, nil
}

// SetTableMetadata serializes metadata to JSON and attaches it as name's
// comment. Only KeyProperties, Version and Mappings are ever persisted.
func (c *Catalog) SetTableMetadata(ctx context.Context, name string, metadata Metadata) error {
	buf, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling sidecar metadata for table %q: %w", name, err)
	}

	_, err = c.DB.ExecContext(ctx, fmt.Sprintf("COMMENT ON TABLE %s IS %s",
		pq.QuoteIdentifier(name),
		pq.QuoteLiteral(string(buf))))
	if err != nil {
		return fmt.Errorf("setting sidecar metadata on table %q: %w", name, err)
	}
	return nil
}

// IsTableEmpty reports whether name currently has zero rows.
func (c *Catalog) IsTableEmpty(ctx context.Context, name string) (bool, error) {
	rows, err := c.DB.QueryContext(ctx, fmt.Sprintf("SELECT NOT EXISTS (SELECT 1 FROM %s LIMIT 1)",
		pq.QuoteIdentifier(name)))
	if err != nil {
		return false, fmt.Errorf("checking table %q emptiness: %w", name, err)
	}
	defer rows.Close()

	var empty bool
	if err := db.ScanFirstValue(rows, &empty); err != nil {
		return false, err
	}
	return empty, nil
}

// CreateEmptyTable creates name with no columns, ready for the reconciler
// to add columns one at a time on first load.
func (c *Catalog) CreateEmptyTable(ctx context.Context, name string) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s ()", pq.QuoteIdentifier(name)))
	if err != nil {
		return fmt.Errorf("creating table %q: %w", name, err)
	}
	return nil
}

// AddColumn adds column to table with the given SQL type and nullability.
func (c *Catalog) AddColumn(ctx context.Context, table, column, sqlType string, nullable bool) error {
	nullability := "NOT NULL"
	if nullable {
		nullability = "NULL"
	}
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s %s",
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(column),
		sqlType,
		nullability))
	if err != nil {
		return fmt.Errorf("adding column %q to table %q: %w", column, table, err)
	}
	return nil
}

// DropNotNull widens column on table to nullable.
func (c *Catalog) DropNotNull(ctx context.Context, table, column string) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL",
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(column)))
	if err != nil {
		return fmt.Errorf("dropping not-null on column %q of table %q: %w", column, table, err)
	}
	return nil
}

// CopyColumn runs UPDATE table SET to = from, used to preserve data across
// a type split before the original column is dropped.
func (c *Catalog) CopyColumn(ctx context.Context, table, from, to string) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET %s = %s",
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(to),
		pq.QuoteIdentifier(from)))
	if err != nil {
		return fmt.Errorf("copying column %q to %q on table %q: %w", from, to, table, err)
	}
	return nil
}

// DropColumn drops column from table.
func (c *Catalog) DropColumn(ctx context.Context, table, column string) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(column)))
	if err != nil {
		return fmt.Errorf("dropping column %q from table %q: %w", column, table, err)
	}
	return nil
}

// RenameTable renames from to to, if from exists. Used by the version
// activator's rename-swap-drop sequence (§4.G).
func (c *Catalog) RenameTable(ctx context.Context, from, to string) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE IF EXISTS %s RENAME TO %s",
		pq.QuoteIdentifier(from),
		pq.QuoteIdentifier(to)))
	if err != nil {
		return fmt.Errorf("renaming table %q to %q: %w", from, to, err)
	}
	return nil
}

// DropTable drops name if it exists.
func (c *Catalog) DropTable(ctx context.Context, name string) error {
	_, err := c.DB.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", pq.QuoteIdentifier(name)))
	if err != nil {
		return fmt.Errorf("dropping table %q: %w", name, err)
	}
	return nil
}

// ListVersionedTables returns the names of all tables whose name starts
// with prefix, used by the version activator to discover a versioned
// table family (§4.G).
func (c *Catalog) ListVersionedTables(ctx context.Context, prefix string) ([]string, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE left(table_name::text, length($1::text)) = $1::text`, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing tables with prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
