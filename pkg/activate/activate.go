// SPDX-License-Identifier: Apache-2.0

// Package activate implements the version activator (component G): it
// atomically renames a versioned table family over the live name, one
// table at a time.
package activate

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/tableload/tableload/pkg/batchlog"
	"github.com/tableload/tableload/pkg/catalog"
	"github.com/tableload/tableload/pkg/db"
	"github.com/tableload/tableload/pkg/record"
)

// Activator renames a versioned table family over the live name.
type Activator struct {
	DB     db.DB
	Logger batchlog.Logger
}

// New constructs an Activator.
func New(database db.DB, logger batchlog.Logger) *Activator {
	if logger == nil {
		logger = batchlog.NewNoop()
	}
	return &Activator{DB: database, Logger: logger}
}

// ActivateVersion discovers every table in the <stream><SEP><version>
// family and renames each one over its live name, in its own transaction
// so a partial failure across multiple tables leaves the system in a
// state another call can resume from (§4.G).
func (a *Activator) ActivateVersion(ctx context.Context, streamName string, version int64) error {
	cat := &catalog.Catalog{DB: a.DB}

	remote, err := cat.GetTableSchema(ctx, streamName)
	if err != nil {
		return err
	}
	if remote == nil {
		a.Logger.ErrorMissingRemoteMetadata(streamName, version)
		return nil
	}
	if remote.Metadata.Version != nil && *remote.Metadata.Version == version {
		a.Logger.WarnAlreadyActive(streamName, version)
		return nil
	}

	prefix := streamName + record.Separator + strconv.FormatInt(version, 10)
	versionedNames, err := cat.ListVersionedTables(ctx, prefix)
	if err != nil {
		return err
	}

	for _, versionedName := range versionedNames {
		if versionedName != prefix && !strings.HasPrefix(versionedName, prefix+record.Separator) {
			continue
		}
		liveName := streamName + strings.TrimPrefix(versionedName, prefix)
		if err := a.activateTable(ctx, versionedName, liveName); err != nil {
			return err
		}
	}

	return nil
}

func (a *Activator) activateTable(ctx context.Context, versionedName, liveName string) error {
	a.Logger.InfoActivateTable(versionedName, liveName)

	return a.DB.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txCat := &catalog.Catalog{DB: tx}
		oldName := liveName + record.Separator + "old"

		if err := txCat.RenameTable(ctx, liveName, oldName); err != nil {
			return err
		}
		if err := txCat.RenameTable(ctx, versionedName, liveName); err != nil {
			return err
		}
		return txCat.DropTable(ctx, oldName)
	})
}
