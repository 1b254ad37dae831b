// SPDX-License-Identifier: Apache-2.0

// Package record defines the shape of an incoming record message and the
// variant value tree used to represent its (possibly nested) payload.
package record

import (
	"time"

	"github.com/oapi-codegen/nullable"
)

// Value is a variant node in a record's value tree: a scalar, a nested
// object, an ordered list, or null. Denesting pattern-matches on the
// concrete type held here rather than reflecting on Go runtime types, so
// that the traversal logic in pkg/denest stays a straightforward switch.
type Value any

// Object is a mapping from field name to Value, preserving the shape
// produced by the upstream protocol's JSON decoding.
type Object map[string]Value

// List is an ordered sequence of Values.
type List []Value

// Message is one record as handed to the core by the stream buffer (§3).
// Version, TimeExtracted and Sequence are independently optional: each may
// be absent from the wire message, present and null, or present with a
// value, which is why they are carried as nullable.Nullable rather than
// plain pointers.
type Message struct {
	Record        Object                       `json:"record"`
	Version       nullable.Nullable[int64]     `json:"version,omitempty"`
	TimeExtracted nullable.Nullable[time.Time] `json:"time_extracted,omitempty"`
	Sequence      nullable.Nullable[int64]     `json:"sequence,omitempty"`
}

// HasVersion reports whether the message carries an explicit, non-null version.
func (m Message) HasVersion() (int64, bool) {
	if !m.Version.IsSpecified() || m.Version.IsNull() {
		return 0, false
	}
	v, _ := m.Version.Get()
	return v, true
}

// SequenceOr returns the message's sequence number, falling back to def
// when the field is absent or null.
func (m Message) SequenceOr(def int64) int64 {
	if !m.Sequence.IsSpecified() || m.Sequence.IsNull() {
		return def
	}
	v, _ := m.Sequence.Get()
	return v
}

// TimeExtractedOr returns the message's extraction timestamp, falling back
// to def when the field is absent or null.
func (m Message) TimeExtractedOr(def time.Time) time.Time {
	if !m.TimeExtracted.IsSpecified() || m.TimeExtracted.IsNull() {
		return def
	}
	v, _ := m.TimeExtracted.Get()
	return v
}
