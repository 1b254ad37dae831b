// SPDX-License-Identifier: Apache-2.0

package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableload/tableload/pkg/record"
	"github.com/tableload/tableload/pkg/stream"
)

func TestMemoryBufferExposesConstructorArguments(t *testing.T) {
	t.Parallel()

	messages := []record.Message{{Record: record.Object{"id": int64(1)}}}
	buf := stream.NewMemoryBuffer("widgets", []string{"id"}, []byte(`{}`), true, messages)

	assert.Equal(t, "widgets", buf.Stream())
	assert.Equal(t, []string{"id"}, buf.KeyProperties())
	assert.Equal(t, []byte(`{}`), buf.Schema())
	assert.True(t, buf.UseUUIDPK())
	assert.Equal(t, 1, buf.Count())
	assert.Equal(t, messages, buf.PeekBuffer())
}

func TestMemoryBufferFlushClearsMessages(t *testing.T) {
	t.Parallel()

	buf := stream.NewMemoryBuffer("widgets", nil, nil, false, []record.Message{{}, {}})
	require.Equal(t, 2, buf.Count())

	require.NoError(t, buf.FlushBuffer())

	assert.Equal(t, 0, buf.Count())
	assert.Empty(t, buf.PeekBuffer())
}
