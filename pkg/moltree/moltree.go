// Package moltree defines the tree-decomposed representation of a molecule
// that the preprocessing pipeline produces and the training loop consumes.
//
// A MolTree is a junction tree: an ordered set of nodes, each covering a
// cluster of the underlying molecular graph (a ring, a bond, or a lone atom)
// and labelled with the cluster's canonical SMILES symbol. After assembly
// candidate enumeration, every node also carries the set of locally valid
// reconstructions plus the one that was actually realized in the source
// molecule (the ground-truth candidate).
package moltree

// Node is a single cluster in the junction tree.
type Node struct {
	// Smiles is the cluster symbol, the canonical sub-SMILES of the cluster.
	// The set of all distinct symbols across a corpus forms the Vocab.
	Smiles string

	// Atoms are the indices of the source-graph atoms covered by the cluster.
	// Populated during decomposition and cleared by DropGraph once the tree
	// is fully assembled, to bound memory retained per structure.
	Atoms []int

	// Neighbors indexes the adjacent nodes within the owning MolTree.
	Neighbors []int

	// Cands are the assembly candidates: the locally valid ways this cluster
	// can attach to its neighborhood during reconstruction.
	Cands []string

	// Label is the ground-truth candidate. After preprocessing it is
	// guaranteed to be a member of Cands.
	Label string

	// IsLeaf marks nodes with at most one neighbor.
	IsLeaf bool
}

// HasLabelCand reports whether the ground-truth candidate is present in the
// node's own candidate set.
func (n *Node) HasLabelCand() bool {
	for _, c := range n.Cands {
		if c == n.Label {
			return true
		}
	}
	return false
}

// MolTree is the junction tree of one molecule.
type MolTree struct {
	// Smiles is the raw structure the tree was decomposed from.
	Smiles string

	// Nodes in decomposition order. Node.Neighbors index into this slice.
	Nodes []*Node

	// graph holds the parsed molecular graph while decomposition and
	// candidate enumeration still need it. Dropped afterwards.
	graph any
}

// SetGraph attaches the decomposition intermediate. The pipeline calls
// DropGraph before handing the tree to a loader.
func (t *MolTree) SetGraph(g any) { t.graph = g }

// Graph returns the decomposition intermediate, or nil after DropGraph.
func (t *MolTree) Graph() any { return t.graph }

// DropGraph discards the molecular-graph intermediates retained by the tree
// and its nodes. Only the symbolic representation survives.
func (t *MolTree) DropGraph() {
	t.graph = nil
	for _, n := range t.Nodes {
		n.Atoms = nil
	}
}

// Symbols returns the cluster symbols of all nodes in order.
func (t *MolTree) Symbols() []string {
	out := make([]string, len(t.Nodes))
	for i, n := range t.Nodes {
		out[i] = n.Smiles
	}
	return out
}

// Decomposer converts a raw structure into its junction tree. Implementations
// must be safe for concurrent use: the pipeline calls Decompose from many
// workers at once.
type Decomposer interface {
	Decompose(smiles string) (*MolTree, error)
}

// DecomposerFunc adapts a plain function to the Decomposer interface.
type DecomposerFunc func(smiles string) (*MolTree, error)

// Decompose calls f.
func (f DecomposerFunc) Decompose(smiles string) (*MolTree, error) { return f(smiles) }

// Assembler is the full decomposition collaborator the preprocessor drives:
// decomposition, connectivity recovery, and assembly-candidate enumeration.
type Assembler interface {
	Decomposer

	// Recover restores per-node connectivity context and records every
	// node's realized attachment as its ground-truth label.
	Recover(*MolTree) error

	// Assemble enumerates the assembly candidates of every node.
	Assemble(*MolTree) error
}
