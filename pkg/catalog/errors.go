// SPDX-License-Identifier: Apache-2.0

package catalog

import "fmt"

// SidecarParseError is a fatal error (§7.3): the table's comment exists but
// is not valid JSON, so the sidecar metadata that is the sole source of
// truth for key_properties/version/mappings cannot be recovered.
type SidecarParseError struct {
	Table string
	Err   error
}

func (e SidecarParseError) Unwrap() error { return e.Err }

func (e SidecarParseError) Error() string {
	return fmt.Sprintf("sidecar metadata comment on table %q is not valid JSON: %s", e.Table, e.Err)
}

// TableDoesNotExistError reports an operation against a table that has not
// been created yet.
type TableDoesNotExistError struct {
	Name string
}

func (e TableDoesNotExistError) Error() string {
	return fmt.Sprintf("table %q does not exist", e.Name)
}
