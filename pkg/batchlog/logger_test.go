// SPDX-License-Identifier: Apache-2.0

package batchlog_test

import (
	"testing"

	"github.com/tableload/tableload/pkg/batchlog"
)

// These only assert that calling every method of the no-op logger, and
// constructing the pterm-backed logger and calling Info on it, never
// panics; actual log output is not asserted, matching the teacher's
// own logger tests which check wiring, not formatting.
func TestNoopLoggerMethodsDoNotPanic(t *testing.T) {
	t.Parallel()

	lg := batchlog.NewNoop()
	lg.ErrorMissingRemoteMetadata("s", 1)
	lg.WarnMultipleVersions("s", []int64{1, 2})
	lg.WarnOlderVersion("s", 1, 2)
	lg.WarnAlreadyActive("s", 1)
	lg.WarnForcedNullable("t", "c")
	lg.WarnReservedSentinel("t", "c")
	lg.InfoReconcileStart("t")
	lg.InfoReconcileComplete("t")
	lg.InfoBulkLoadStart("t", 10)
	lg.InfoBulkLoadComplete("t", 10)
	lg.InfoActivateTable("v", "l")
	lg.Info("msg", "k", "v")
}

func TestNewReturnsPtermBackedLogger(t *testing.T) {
	t.Parallel()

	lg := batchlog.New()
	lg.Info("constructed ok")
}
