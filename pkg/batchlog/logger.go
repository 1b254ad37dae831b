// SPDX-License-Identifier: Apache-2.0

// Package batchlog provides the Logger used across the batch orchestrator,
// reconciler and bulk loader to report the advisory conditions of spec.md
// §7.4 and operation-level start/complete events, in the style of the
// teacher's pkg/migrations.Logger.
package batchlog

import "github.com/pterm/pterm"

// Logger reports advisory conditions and operation-level progress. It
// never participates in error propagation: every method only logs, and
// none returns an error.
type Logger interface {
	ErrorMissingRemoteMetadata(stream string, version int64)

	WarnMultipleVersions(stream string, versions []int64)
	WarnOlderVersion(stream string, recordVersion, remoteVersion int64)
	WarnAlreadyActive(stream string, version int64)
	WarnForcedNullable(table, column string)
	WarnReservedSentinel(table, column string)

	InfoReconcileStart(table string)
	InfoReconcileComplete(table string)
	InfoBulkLoadStart(table string, rows int)
	InfoBulkLoadComplete(table string, rows int)
	InfoActivateTable(versionedName, liveName string)

	Info(msg string, args ...any)
}

type logger struct {
	l pterm.Logger
}

type noopLogger struct{}

// New returns a pterm-backed Logger.
func New() Logger {
	return &logger{l: pterm.DefaultLogger}
}

// NewNoop returns a Logger that discards everything, for tests.
func NewNoop() Logger {
	return &noopLogger{}
}

func (lg *logger) ErrorMissingRemoteMetadata(stream string, version int64) {
	lg.l.Error("cannot activate version: stream has no remote metadata", lg.l.Args(
		"stream", stream,
		"version", version,
	))
}

func (lg *logger) WarnMultipleVersions(stream string, versions []int64) {
	lg.l.Warn("batch contains records from multiple table versions", lg.l.Args(
		"stream", stream,
		"versions", versions,
	))
}

func (lg *logger) WarnOlderVersion(stream string, recordVersion, remoteVersion int64) {
	lg.l.Warn("batch contains records from an older table version", lg.l.Args(
		"stream", stream,
		"record_version", recordVersion,
		"remote_version", remoteVersion,
	))
}

func (lg *logger) WarnAlreadyActive(stream string, version int64) {
	lg.l.Warn("version is already active", lg.l.Args("stream", stream, "version", version))
}

func (lg *logger) WarnForcedNullable(table, column string) {
	lg.l.Warn("forcing new column to nullable on non-empty table", lg.l.Args(
		"table", table,
		"column", column,
	))
}

func (lg *logger) WarnReservedSentinel(table, column string) {
	lg.l.Warn("reserved null sentinel found in user data; value will be lost", lg.l.Args(
		"table", table,
		"column", column,
	))
}

func (lg *logger) InfoReconcileStart(table string) {
	lg.l.Info("reconciling schema", lg.l.Args("table", table))
}

func (lg *logger) InfoReconcileComplete(table string) {
	lg.l.Info("reconciled schema", lg.l.Args("table", table))
}

func (lg *logger) InfoBulkLoadStart(table string, rows int) {
	lg.l.Info("bulk load started", lg.l.Args("table", table, "rows", rows))
}

func (lg *logger) InfoBulkLoadComplete(table string, rows int) {
	lg.l.Info("bulk load completed", lg.l.Args("table", table, "rows", rows))
}

func (lg *logger) InfoActivateTable(versionedName, liveName string) {
	lg.l.Info("activating versioned table", lg.l.Args("versioned_name", versionedName, "live_name", liveName))
}

func (lg *logger) Info(msg string, args ...any) {
	lg.l.Info(msg, lg.l.Args(args...))
}

func (n *noopLogger) ErrorMissingRemoteMetadata(string, int64) {}
func (n *noopLogger) WarnMultipleVersions(string, []int64)   {}
func (n *noopLogger) WarnOlderVersion(string, int64, int64)  {}
func (n *noopLogger) WarnAlreadyActive(string, int64)        {}
func (n *noopLogger) WarnForcedNullable(string, string)      {}
func (n *noopLogger) WarnReservedSentinel(string, string)    {}
func (n *noopLogger) InfoReconcileStart(string)              {}
func (n *noopLogger) InfoReconcileComplete(string)           {}
func (n *noopLogger) InfoBulkLoadStart(string, int)          {}
func (n *noopLogger) InfoBulkLoadComplete(string, int)       {}
func (n *noopLogger) InfoActivateTable(string, string)       {}
func (n *noopLogger) Info(msg string, args ...any)           {}
