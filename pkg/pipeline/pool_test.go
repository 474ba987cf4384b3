package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapOrderedPreservesSubmissionOrder(t *testing.T) {
	items := make([]string, 237)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}

	got := mapOrdered(items, Options{NumWorkers: 8, ChunkSize: 10}, strings.ToUpper)
	for i, v := range got {
		require.Equal(t, strings.ToUpper(items[i]), v)
	}
}

func TestMapOrderedEmptyInput(t *testing.T) {
	got := mapOrdered(nil, Options{}, strings.ToUpper)
	require.Empty(t, got)
}

func TestMapOrderedSingleWorkerSingleChunk(t *testing.T) {
	got := mapOrdered([]string{"a", "b"}, Options{NumWorkers: 1, ChunkSize: 1}, strings.ToUpper)
	require.Equal(t, []string{"A", "B"}, got)
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	require.Greater(t, o.workers(), 0)
	require.Equal(t, DefaultChunkSize, o.chunkSize())
}
