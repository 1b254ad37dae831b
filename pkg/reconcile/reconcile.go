// SPDX-License-Identifier: Apache-2.0

// Package reconcile implements the schema reconciler (component D): it
// merges an incoming per-batch structural schema into the live remote
// table schema, evolving columns safely without data loss.
package reconcile

import (
	"context"
	"sort"

	"github.com/tableload/tableload/pkg/batchlog"
	"github.com/tableload/tableload/pkg/catalog"
	"github.com/tableload/tableload/pkg/record"
	"github.com/tableload/tableload/pkg/sqltype"
)

// Reconciler merges incoming schemas into live table structure.
type Reconciler struct {
	Catalog *catalog.Catalog
	Logger  batchlog.Logger
}

// New constructs a Reconciler.
func New(cat *catalog.Catalog, logger batchlog.Logger) *Reconciler {
	if logger == nil {
		logger = batchlog.NewNoop()
	}
	return &Reconciler{Catalog: cat, Logger: logger}
}

// ReconcileAll reconciles every table discovered by flattening the root
// record's incoming schema: the root table itself plus one table per
// nested-list path. Only the root table's metadata carries keyProperties;
// child tables inherit whatever key properties their own sidecar metadata
// already records (none, on first creation), since the spec's key-property
// invariant binds the root record's declared key, not a per-table concept
// for synthetic child tables.
func (r *Reconciler) ReconcileAll(ctx context.Context, root string, keyProperties []string, version *int64, fields map[string]sqltype.Field) (map[string]*catalog.Table, map[string]map[string]sqltype.Field, error) {
	flattened := FlattenSchema(root, fields)

	tables := make([]string, 0, len(flattened))
	for table := range flattened {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	out := make(map[string]*catalog.Table, len(tables))
	for _, table := range tables {
		kp := keyProperties
		if table != root {
			kp = nil
		}
		reconciled, err := r.reconcileTable(ctx, table, kp, version, flattened[table])
		if err != nil {
			return nil, nil, err
		}
		out[table] = reconciled
	}
	return out, flattened, nil
}

func (r *Reconciler) reconcileTable(ctx context.Context, table string, keyProperties []string, version *int64, fields map[string]sqltype.Field) (*catalog.Table, error) {
	r.Logger.InfoReconcileStart(table)
	defer r.Logger.InfoReconcileComplete(table)

	remote, err := r.Catalog.GetTableSchema(ctx, table)
	if err != nil {
		return nil, err
	}

	if remote == nil {
		return r.createTable(ctx, table, keyProperties, version, fields)
	}

	return r.mergeTable(ctx, table, keyProperties, version, fields, remote)
}

func (r *Reconciler) createTable(ctx context.Context, table string, keyProperties []string, version *int64, fields map[string]sqltype.Field) (*catalog.Table, error) {
	if err := r.Catalog.CreateEmptyTable(ctx, table); err != nil {
		return nil, err
	}

	columns := make(map[string]catalog.Column, len(fields))
	for _, name := range sortedKeys(fields) {
		f := fields[name]
		if err := r.Catalog.AddColumn(ctx, table, name, sqltype.ToSQLType(f), f.Nullable); err != nil {
			return nil, err
		}
		columns[name] = catalog.Column{Name: name, SQLType: sqltype.ToSQLType(f), Nullable: f.Nullable}
	}

	meta := catalog.Metadata{KeyProperties: keyProperties, Version: version, Mappings: map[string]catalog.Mapping{}}
	if err := r.Catalog.SetTableMetadata(ctx, table, meta); err != nil {
		return nil, err
	}

	return &catalog.Table{Name: table, Columns: columns, Metadata: meta}, nil
}

func (r *Reconciler) mergeTable(ctx context.Context, table string, keyProperties []string, version *int64, fields map[string]sqltype.Field, remote *catalog.Table) (*catalog.Table, error) {
	if keyProperties != nil {
		if err := checkKeyProperties(table, remote.Metadata.KeyProperties, keyProperties); err != nil {
			return nil, err
		}
		if err := checkKeyColumnTypes(table, keyProperties, fields, remote.Columns); err != nil {
			return nil, err
		}
	}

	empty, err := r.Catalog.IsTableEmpty(ctx, table)
	if err != nil {
		return nil, err
	}

	columns := make(map[string]catalog.Column, len(remote.Columns))
	for k, v := range remote.Columns {
		columns[k] = v
	}
	mappings := make(map[string]catalog.Mapping, len(remote.Metadata.Mappings))
	for k, v := range remote.Metadata.Mappings {
		mappings[k] = v
	}

	for _, name := range sortedKeys(fields) {
		incoming := fields[name]
		if err := r.resolveColumn(ctx, table, name, incoming, empty, columns, mappings); err != nil {
			return nil, err
		}
	}

	effectiveKeyProperties := remote.Metadata.KeyProperties
	if keyProperties != nil {
		effectiveKeyProperties = keyProperties
	}
	meta := catalog.Metadata{KeyProperties: effectiveKeyProperties, Version: version, Mappings: mappings}
	if err := r.Catalog.SetTableMetadata(ctx, table, meta); err != nil {
		return nil, err
	}

	return &catalog.Table{Name: table, Columns: columns, Metadata: meta}, nil
}

// resolveColumn applies the six-case resolution of §4.D for a single
// incoming (name, schema) pair, mutating columns and mappings in place.
func (r *Reconciler) resolveColumn(ctx context.Context, table, name string, incoming sqltype.Field, tableEmpty bool, columns map[string]catalog.Column, mappings map[string]catalog.Mapping) error {
	shorthand := sqltype.SQLShorthand(incoming)

	// case "mapped": a previous split already routed this (name, type) pair
	// to a synthetic column.
	for _, m := range mappings {
		if m.From == name && m.Type == shorthand {
			return nil
		}
	}

	remoteCol, exists := columns[name]

	// case "new"
	if !exists {
		nullable := incoming.Nullable
		if !tableEmpty {
			nullable = true
			r.Logger.WarnForcedNullable(table, name)
		}
		if err := r.Catalog.AddColumn(ctx, table, name, sqltype.ToSQLType(incoming), nullable); err != nil {
			return err
		}
		columns[name] = catalog.Column{Name: name, SQLType: sqltype.ToSQLType(incoming), Nullable: nullable}
		return nil
	}

	incomingSQLType := sqltype.ToSQLType(incoming)

	// case "widen-null"
	if !remoteCol.Nullable && incomingSQLType == remoteCol.SQLType && incoming.Nullable {
		if err := r.Catalog.DropNotNull(ctx, table, name); err != nil {
			return err
		}
		remoteCol.Nullable = true
		columns[name] = remoteCol
		return nil
	}

	// case "compatible"
	if incomingSQLType == remoteCol.SQLType {
		return nil
	}

	// case "split" unless a name collision makes it a conflict
	remoteField := sqltype.FromSQL(remoteCol.SQLType, remoteCol.Nullable)
	c1 := name + record.Separator + sqltype.SQLShorthand(remoteField)
	c2 := name + record.Separator + shorthand
	if _, collides := columns[c1]; collides {
		return ColumnTypeConflictError{Table: table, Column: name}
	}
	if _, collides := columns[c2]; collides {
		return ColumnTypeConflictError{Table: table, Column: name}
	}

	if err := r.Catalog.AddColumn(ctx, table, c1, remoteCol.SQLType, true); err != nil {
		return err
	}
	if err := r.Catalog.AddColumn(ctx, table, c2, incomingSQLType, true); err != nil {
		return err
	}
	mappings[c1] = catalog.Mapping{From: name, Type: sqltype.SQLShorthand(remoteField)}
	mappings[c2] = catalog.Mapping{From: name, Type: shorthand}

	if err := r.Catalog.CopyColumn(ctx, table, name, c1); err != nil {
		return err
	}
	if err := r.Catalog.DropColumn(ctx, table, name); err != nil {
		return err
	}

	columns[c1] = catalog.Column{Name: c1, SQLType: remoteCol.SQLType, Nullable: true}
	columns[c2] = catalog.Column{Name: c2, SQLType: incomingSQLType, Nullable: true}
	delete(columns, name)

	return nil
}

func checkKeyProperties(table string, remoteKeys, incomingKeys []string) error {
	if setEqual(remoteKeys, incomingKeys) {
		return nil
	}
	return KeyPropertiesChangedError{Table: table, Was: remoteKeys, Now: incomingKeys}
}

func checkKeyColumnTypes(table string, keyProperties []string, fields map[string]sqltype.Field, columns map[string]catalog.Column) error {
	for _, k := range keyProperties {
		incoming, hasIncoming := fields[k]
		remoteCol, hasRemote := columns[k]
		if !hasIncoming || !hasRemote {
			continue
		}
		if sqltype.ToSQLType(incoming) != remoteCol.SQLType {
			return KeyColumnTypeChangedError{Table: table, Column: k}
		}
	}
	return nil
}

func setEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]sqltype.Field) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
