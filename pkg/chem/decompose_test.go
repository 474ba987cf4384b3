package chem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecomposeLinearChain(t *testing.T) {
	d := NewDecomposer()
	tree, err := d.Decompose("CCO")
	require.NoError(t, err)

	// two bond clusters sharing the middle carbon
	require.Len(t, tree.Nodes, 2)
	require.Equal(t, "CC", tree.Nodes[0].Smiles)
	require.Equal(t, "CO", tree.Nodes[1].Smiles)
	require.Equal(t, []int{1}, tree.Nodes[0].Neighbors)
	require.Equal(t, []int{0}, tree.Nodes[1].Neighbors)
}

func TestDecomposeAromaticRing(t *testing.T) {
	d := NewDecomposer()
	tree, err := d.Decompose("c1ccccc1")
	require.NoError(t, err)

	require.Len(t, tree.Nodes, 1)
	require.Equal(t, "c1ccccc1", tree.Nodes[0].Smiles)
	require.Empty(t, tree.Nodes[0].Neighbors)
}

func TestDecomposeRingWithSubstituent(t *testing.T) {
	d := NewDecomposer()
	tree, err := d.Decompose("C1CC1C")
	require.NoError(t, err)

	// one ring cluster plus one exocyclic bond cluster
	require.Len(t, tree.Nodes, 2)
	require.True(t, tree.Nodes[0].Smiles == "C1CC1" || tree.Nodes[1].Smiles == "C1CC1")
	require.Len(t, tree.Nodes[0].Neighbors, 1)
	require.Len(t, tree.Nodes[1].Neighbors, 1)
}

func TestDecomposeLoneAtom(t *testing.T) {
	d := NewDecomposer()
	tree, err := d.Decompose("O")
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 1)
	require.Equal(t, "O", tree.Nodes[0].Smiles)
}

func TestDecomposeSymbolIsEntryPointIndependent(t *testing.T) {
	d := NewDecomposer()
	a, err := d.Decompose("c1ccncc1")
	require.NoError(t, err)
	b, err := d.Decompose("n1ccccc1")
	require.NoError(t, err)
	require.Equal(t, a.Nodes[0].Smiles, b.Nodes[0].Smiles)
}

func TestRecoverMarksLeavesAndLabels(t *testing.T) {
	d := NewDecomposer()
	tree, err := d.Decompose("CCCC")
	require.NoError(t, err)
	require.NoError(t, d.Recover(tree))

	// chain of three bond clusters: ends are leaves, the middle is not
	require.Len(t, tree.Nodes, 3)
	require.True(t, tree.Nodes[0].IsLeaf)
	require.False(t, tree.Nodes[1].IsLeaf)
	require.True(t, tree.Nodes[2].IsLeaf)
	for _, n := range tree.Nodes {
		require.NotEmpty(t, n.Label)
	}
}

func TestAssembleKeepsGroundTruthCandidate(t *testing.T) {
	d := NewDecomposer()
	tree, err := d.Decompose("CC(N)(O)C")
	require.NoError(t, err)
	require.NoError(t, d.Recover(tree))
	require.NoError(t, d.Assemble(tree))

	for _, n := range tree.Nodes {
		require.NotEmpty(t, n.Cands)
		require.True(t, n.HasLabelCand(), "node %s: label %q not in candidates", n.Smiles, n.Label)
	}
}

func TestAssembleEnumeratesPermutations(t *testing.T) {
	d := NewDecomposer()
	tree, err := d.Decompose("CC(N)O")
	require.NoError(t, err)
	require.NoError(t, d.Recover(tree))
	require.NoError(t, d.Assemble(tree))

	// the central CC cluster touches two others: 2 attachment orders
	var central int
	for i, n := range tree.Nodes {
		if len(n.Neighbors) == 2 {
			central = i
		}
	}
	require.Len(t, tree.Nodes[central].Cands, 2)
}

func TestAssembleRespectsCandBound(t *testing.T) {
	d := &Decomposer{MaxCands: 2}
	tree, err := d.Decompose("CC(N)(O)C")
	require.NoError(t, err)
	require.NoError(t, d.Recover(tree))
	require.NoError(t, d.Assemble(tree))

	for _, n := range tree.Nodes {
		require.LessOrEqual(t, len(n.Cands), 2)
	}
}
