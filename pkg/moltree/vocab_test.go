package moltree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVocabDeduplicatesAndSorts(t *testing.T) {
	v := NewVocab([]string{"CC", "c1ccccc1", "CC", "CN", "CC"})

	require.Equal(t, 3, v.Size())
	require.Equal(t, []string{"CC", "CN", "c1ccccc1"}, v.Symbols())
}

func TestVocabIndexAssignmentIsInsertionOrderIndependent(t *testing.T) {
	a := NewVocab([]string{"CO", "CC", "CN"})
	b := NewVocab([]string{"CN", "CO", "CC"})

	require.Equal(t, a.Symbols(), b.Symbols())
	for _, s := range a.Symbols() {
		require.Equal(t, a.Get(s), b.Get(s))
	}
}

func TestVocabLookup(t *testing.T) {
	v := NewVocab([]string{"CC", "CN"})

	require.Equal(t, 0, v.Get("CC"))
	require.Equal(t, 1, v.Get("CN"))
	require.Equal(t, -1, v.Get("CO"))
	require.True(t, v.Contains("CN"))
	require.False(t, v.Contains("CO"))
	require.Equal(t, "CC", v.Symbol(0))
}

func TestNodeHasLabelCand(t *testing.T) {
	n := &Node{Label: "CC(CN)", Cands: []string{"CC(CO)", "CC(CN)"}}
	require.True(t, n.HasLabelCand())

	n.Cands = []string{"CC(CO)"}
	require.False(t, n.HasLabelCand())
}

func TestDropGraphClearsIntermediates(t *testing.T) {
	tree := &MolTree{
		Smiles: "CCO",
		Nodes:  []*Node{{Smiles: "CC", Atoms: []int{0, 1}}, {Smiles: "CO", Atoms: []int{1, 2}}},
	}
	tree.SetGraph("placeholder")
	tree.DropGraph()

	require.Nil(t, tree.Graph())
	for _, n := range tree.Nodes {
		require.Nil(t, n.Atoms)
	}
}
