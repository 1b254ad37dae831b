// SPDX-License-Identifier: Apache-2.0

package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableload/tableload/pkg/catalog"
	"github.com/tableload/tableload/pkg/db"
	"github.com/tableload/tableload/pkg/reconcile"
	"github.com/tableload/tableload/pkg/sqltype"
	"github.com/tableload/tableload/pkg/testutils"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func TestFlattenSchemaSpawnsChildTableForNestedArray(t *testing.T) {
	t.Parallel()

	fields := map[string]sqltype.Field{
		"id": {Type: "integer"},
		"items": {
			Type: "array",
			Items: &sqltype.Field{
				Type:       "object",
				Properties: map[string]sqltype.Field{"v": {Type: "string"}},
			},
		},
	}

	out := reconcile.FlattenSchema("s", fields)

	require.Contains(t, out, "s")
	require.Contains(t, out, "s__items")
	assert.Contains(t, out["s"], "id")
	assert.Contains(t, out["s__items"], "v")
}

func TestFlattenSchemaInlinesNestedObject(t *testing.T) {
	t.Parallel()

	fields := map[string]sqltype.Field{
		"address": {
			Type:       "object",
			Properties: map[string]sqltype.Field{"city": {Type: "string"}},
		},
	}

	out := reconcile.FlattenSchema("s", fields)

	require.Contains(t, out, "s")
	assert.Contains(t, out["s"], "address__city")
}

func TestReconcileAllCreatesTableOnFirstLoad(t *testing.T) {
	t.Parallel()

	testutils.WithDB(t, func(database db.DB) {
		ctx := context.Background()
		cat := &catalog.Catalog{DB: database}
		r := reconcile.New(cat, nil)

		fields := map[string]sqltype.Field{
			"id":   {Type: "integer"},
			"name": {Type: "string", Nullable: true},
		}

		tables, flattened, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil, fields)
		require.NoError(t, err)
		require.Contains(t, tables, "widgets")
		assert.Contains(t, flattened["widgets"], "id")

		tbl := tables["widgets"]
		assert.Equal(t, []string{"id"}, tbl.Metadata.KeyProperties)
		require.Contains(t, tbl.Columns, "id")
		assert.False(t, tbl.Columns["id"].Nullable)
		require.Contains(t, tbl.Columns, "name")
		assert.True(t, tbl.Columns["name"].Nullable)
	})
}

func TestReconcileAllAddsNewColumnOnSecondBatch(t *testing.T) {
	t.Parallel()

	testutils.WithDB(t, func(database db.DB) {
		ctx := context.Background()
		cat := &catalog.Catalog{DB: database}
		r := reconcile.New(cat, nil)

		_, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}})
		require.NoError(t, err)

		tables, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}, "color": {Type: "string"}})
		require.NoError(t, err)

		assert.Contains(t, tables["widgets"].Columns, "color")
	})
}

func TestReconcileAllWidensColumnToNullable(t *testing.T) {
	t.Parallel()

	testutils.WithDB(t, func(database db.DB) {
		ctx := context.Background()
		cat := &catalog.Catalog{DB: database}
		r := reconcile.New(cat, nil)

		_, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}, "qty": {Type: "integer"}})
		require.NoError(t, err)

		tables, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}, "qty": {Type: "integer", Nullable: true}})
		require.NoError(t, err)

		assert.True(t, tables["widgets"].Columns["qty"].Nullable)
	})
}

func TestReconcileAllIsNoOpOnCompatibleType(t *testing.T) {
	t.Parallel()

	testutils.WithDB(t, func(database db.DB) {
		ctx := context.Background()
		cat := &catalog.Catalog{DB: database}
		r := reconcile.New(cat, nil)

		_, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}})
		require.NoError(t, err)

		tables, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}})
		require.NoError(t, err)

		assert.Equal(t, "bigint", tables["widgets"].Columns["id"].SQLType)
	})
}

func TestReconcileAllSplitsColumnOnTypeConflict(t *testing.T) {
	t.Parallel()

	testutils.WithDB(t, func(database db.DB) {
		ctx := context.Background()
		cat := &catalog.Catalog{DB: database}
		r := reconcile.New(cat, nil)

		_, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}, "amount": {Type: "string"}})
		require.NoError(t, err)

		tables, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}, "amount": {Type: "number"}})
		require.NoError(t, err)

		cols := tables["widgets"].Columns
		_, stillPlain := cols["amount"]
		assert.False(t, stillPlain)
		assert.Contains(t, cols, "amount__s")
		assert.Contains(t, cols, "amount__f")

		meta := tables["widgets"].Metadata
		assert.Equal(t, "amount", meta.Mappings["amount__s"].From)
		assert.Equal(t, "amount", meta.Mappings["amount__f"].From)
	})
}

func TestReconcileAllMappedColumnIsNoOpOnThirdBatch(t *testing.T) {
	t.Parallel()

	testutils.WithDB(t, func(database db.DB) {
		ctx := context.Background()
		cat := &catalog.Catalog{DB: database}
		r := reconcile.New(cat, nil)

		for _, f := range []map[string]sqltype.Field{
			{"id": {Type: "integer"}, "amount": {Type: "string"}},
			{"id": {Type: "integer"}, "amount": {Type: "number"}},
			{"id": {Type: "integer"}, "amount": {Type: "string"}},
		} {
			_, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil, f)
			require.NoError(t, err)
		}

		tbl, err := cat.GetTableSchema(ctx, "widgets")
		require.NoError(t, err)
		assert.Len(t, tbl.Metadata.Mappings, 2)
	})
}

func TestReconcileAllRejectsKeyPropertyChange(t *testing.T) {
	t.Parallel()

	testutils.WithDB(t, func(database db.DB) {
		ctx := context.Background()
		cat := &catalog.Catalog{DB: database}
		r := reconcile.New(cat, nil)

		_, _, err := r.ReconcileAll(ctx, "widgets", []string{"id"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}})
		require.NoError(t, err)

		_, _, err = r.ReconcileAll(ctx, "widgets", []string{"id", "region"}, nil,
			map[string]sqltype.Field{"id": {Type: "integer"}, "region": {Type: "string"}})
		require.Error(t, err)
		assert.IsType(t, reconcile.KeyPropertiesChangedError{}, err)
	})
}
