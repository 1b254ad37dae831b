// SPDX-License-Identifier: Apache-2.0

// Package stream defines the stream-buffer external contract (§3, §6) and
// provides an in-memory implementation used by the CLI and by tests in
// place of the upstream protocol client, which is out of scope (§1).
package stream

import "github.com/tableload/tableload/pkg/record"

// Buffer is the external contract a stream implementation must satisfy.
// The core only ever reads from it during write_batch and calls
// FlushBuffer once, on success (§4.F step 9).
type Buffer interface {
	Count() int
	PeekBuffer() []record.Message
	FlushBuffer() error
	Stream() string
	KeyProperties() []string
	Schema() []byte
	UseUUIDPK() bool
}

// MemoryBuffer is an in-memory Buffer, for local replay and tests.
type MemoryBuffer struct {
	stream        string
	keyProperties []string
	schema        []byte
	useUUIDPK     bool
	messages      []record.Message
}

// NewMemoryBuffer constructs a MemoryBuffer over messages.
func NewMemoryBuffer(streamName string, keyProperties []string, schema []byte, useUUIDPK bool, messages []record.Message) *MemoryBuffer {
	return &MemoryBuffer{
		stream:        streamName,
		keyProperties: keyProperties,
		schema:        schema,
		useUUIDPK:     useUUIDPK,
		messages:      messages,
	}
}

func (b *MemoryBuffer) Count() int { return len(b.messages) }

func (b *MemoryBuffer) PeekBuffer() []record.Message { return b.messages }

func (b *MemoryBuffer) FlushBuffer() error {
	b.messages = nil
	return nil
}

func (b *MemoryBuffer) Stream() string { return b.stream }

func (b *MemoryBuffer) KeyProperties() []string { return b.keyProperties }

func (b *MemoryBuffer) Schema() []byte { return b.schema }

func (b *MemoryBuffer) UseUUIDPK() bool { return b.useUUIDPK }
