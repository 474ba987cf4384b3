package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVocabBuilderDeduplicates(t *testing.T) {
	b := NewVocabBuilder(&stubAssembler{}, Options{NumWorkers: 2, ChunkSize: 2})

	v := b.Build([]string{"aba", "ba", "cc"})
	require.Equal(t, 3, v.Size())
	require.Equal(t, []string{"a", "b", "c"}, v.Symbols())
}

func TestVocabBuilderSkipsFailures(t *testing.T) {
	b := NewVocabBuilder(&stubAssembler{}, Options{NumWorkers: 1, ChunkSize: 1})

	v := b.Build([]string{"ab", "!cd", "e"})
	require.Equal(t, []string{"a", "b", "e"}, v.Symbols())
	require.Equal(t, -1, v.Get("c"))
}

func TestVocabBuilderOrderIndependent(t *testing.T) {
	b := NewVocabBuilder(&stubAssembler{}, Options{NumWorkers: 4, ChunkSize: 1})

	v1 := b.Build([]string{"xy", "z"})
	v2 := b.Build([]string{"z", "yx"})
	require.Equal(t, v1.Symbols(), v2.Symbols())
}
