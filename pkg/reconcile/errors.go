// SPDX-License-Identifier: Apache-2.0

package reconcile

import "fmt"

// KeyPropertiesChangedError is fatal (§7.1): the key-property set recorded
// in a table's sidecar metadata no longer matches the stream's declared
// key properties.
type KeyPropertiesChangedError struct {
	Table string
	Was   []string
	Now   []string
}

func (e KeyPropertiesChangedError) Error() string {
	return fmt.Sprintf("key properties for table %q changed from %v to %v", e.Table, e.Was, e.Now)
}

// KeyColumnTypeChangedError is fatal (§7.1): a key column's type may never
// change once a table exists.
type KeyColumnTypeChangedError struct {
	Table  string
	Column string
}

func (e KeyColumnTypeChangedError) Error() string {
	return fmt.Sprintf("type of key column %q on table %q cannot change", e.Column, e.Table)
}

// ColumnTypeConflictError is fatal (§7.1): an incompatible column type
// change for which at least one of the two type-split target names is
// already taken by an existing column.
type ColumnTypeConflictError struct {
	Table  string
	Column string
}

func (e ColumnTypeConflictError) Error() string {
	return fmt.Sprintf("cannot handle column type change for column %q on table %q", e.Column, e.Table)
}
