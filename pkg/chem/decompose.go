package chem

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tsa87/anb-net/pkg/moltree"
)

// DefaultMaxCands bounds the assembly-candidate enumeration per node. The
// realized attachment can fall outside the bound for high-degree nodes; the
// preprocessing pipeline re-inserts it afterwards.
const DefaultMaxCands = 120

// Decomposer turns SMILES strings into junction trees.
//
// Clusters are the simple rings of the graph (rings sharing three or more
// atoms are merged), the bonds that do not lie inside a ring cluster, and the
// isolated atoms. The junction tree is the maximum spanning tree of the
// cluster graph weighted by cluster overlap.
type Decomposer struct {
	// MaxCands caps the number of assembly candidates enumerated per node.
	// Zero means DefaultMaxCands.
	MaxCands int
}

// NewDecomposer returns a Decomposer with default settings.
func NewDecomposer() *Decomposer { return &Decomposer{MaxCands: DefaultMaxCands} }

type cluster struct {
	atoms  []int
	isRing bool
}

// Decompose parses the structure and builds its junction tree. The returned
// tree still carries the parsed graph (for Recover/Assemble); callers drop it
// with MolTree.DropGraph once candidate enumeration is done.
func (d *Decomposer) Decompose(smiles string) (*moltree.MolTree, error) {
	mol, err := ParseSmiles(smiles)
	if err != nil {
		return nil, err
	}

	clusters := buildClusters(mol)

	// Deterministic node order: by smallest covered atom index.
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].atoms[0] < clusters[j].atoms[0]
	})

	tree := &moltree.MolTree{Smiles: smiles}
	tree.SetGraph(mol)
	for _, c := range clusters {
		tree.Nodes = append(tree.Nodes, &moltree.Node{
			Smiles: clusterSymbol(mol, c),
			Atoms:  c.atoms,
		})
	}

	linkNodes(tree, clusters)
	return tree, nil
}

// Recover restores per-node connectivity context after decomposition: it
// marks leaves and records the realized attachment of every node as its
// ground-truth label.
func (d *Decomposer) Recover(t *moltree.MolTree) error {
	for _, n := range t.Nodes {
		n.IsLeaf = len(n.Neighbors) <= 1
		n.Label = attachment(n.Smiles, neighborSymbols(t, n))
	}
	return nil
}

// Assemble enumerates the assembly candidates of every node: the orderings in
// which its neighbor clusters can attach, up to MaxCands per node.
func (d *Decomposer) Assemble(t *moltree.MolTree) error {
	max := d.MaxCands
	if max <= 0 {
		max = DefaultMaxCands
	}
	for _, n := range t.Nodes {
		syms := neighborSymbols(t, n)
		n.Cands = n.Cands[:0]
		permute(syms, max, func(p []string) {
			n.Cands = append(n.Cands, attachment(n.Smiles, p))
		})
	}
	return nil
}

// buildClusters derives the ring, bond and lone-atom clusters of a graph.
func buildClusters(mol *Mol) []cluster {
	rings := findRings(mol)
	rings = mergeRings(mol, rings)

	var clusters []cluster
	inRing := make([]map[int]bool, 0, len(rings))
	for _, r := range rings {
		set := make(map[int]bool, len(r))
		for _, a := range r {
			set[a] = true
		}
		inRing = append(inRing, set)
		clusters = append(clusters, cluster{atoms: r, isRing: true})
	}

	for _, b := range mol.Bonds {
		intra := false
		for _, set := range inRing {
			if set[b.A] && set[b.B] {
				intra = true
				break
			}
		}
		if !intra {
			lo, hi := b.A, b.B
			if hi < lo {
				lo, hi = hi, lo
			}
			clusters = append(clusters, cluster{atoms: []int{lo, hi}})
		}
	}

	for i := range mol.Atoms {
		if mol.Degree(i) == 0 {
			clusters = append(clusters, cluster{atoms: []int{i}})
		}
	}
	return clusters
}

// findRings returns one smallest cycle per ring bond, deduplicated. For each
// bond it searches the shortest alternative path between the endpoints; the
// bond closes that path into a ring.
func findRings(mol *Mol) [][]int {
	var rings [][]int
	seen := map[string]bool{}

	for bi, b := range mol.Bonds {
		path := shortestPathAvoiding(mol, b.A, b.B, bi)
		if path == nil {
			continue
		}
		key := ringKey(path)
		if seen[key] {
			continue
		}
		seen[key] = true
		rings = append(rings, path)
	}
	return rings
}

func ringKey(atoms []int) string {
	s := append([]int(nil), atoms...)
	sort.Ints(s)
	var sb strings.Builder
	for _, a := range s {
		sb.WriteString(strconv.Itoa(a))
		sb.WriteByte(',')
	}
	return sb.String()
}

// shortestPathAvoiding runs a BFS from src to dst that may not traverse the
// bond with index skip. Returns the atom path including both endpoints.
func shortestPathAvoiding(mol *Mol, src, dst, skip int) []int {
	prev := make([]int, len(mol.Atoms))
	for i := range prev {
		prev[i] = -2
	}
	prev[src] = -1
	queue := []int{src}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			var path []int
			for a := dst; a != -1; a = prev[a] {
				path = append(path, a)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		for _, nb := range mol.Neighbors(cur) {
			if prev[nb] != -2 {
				continue
			}
			if (cur == src && nb == dst) || (cur == dst && nb == src) {
				// only the direct skip bond is forbidden
				if bondBetweenIs(mol, cur, nb, skip) {
					continue
				}
			}
			prev[nb] = cur
			queue = append(queue, nb)
		}
	}
	return nil
}

func bondBetweenIs(mol *Mol, a, b, idx int) bool {
	bd := mol.Bonds[idx]
	return (bd.A == a && bd.B == b) || (bd.A == b && bd.B == a)
}

// mergeRings collapses rings that share three or more atoms (bridged and
// spiro-fused systems stay separate, ortho-fused systems with large overlap
// collapse into one cluster). Merged clusters are re-ordered by a DFS over
// the induced subgraph so the symbol stays stable.
func mergeRings(mol *Mol, rings [][]int) [][]int {
	sets := make([]map[int]bool, len(rings))
	for i, r := range rings {
		sets[i] = make(map[int]bool, len(r))
		for _, a := range r {
			sets[i][a] = true
		}
	}

	merged := true
	for merged {
		merged = false
		for i := 0; i < len(sets); i++ {
			for j := i + 1; j < len(sets); j++ {
				shared := 0
				for a := range sets[j] {
					if sets[i][a] {
						shared++
					}
				}
				if shared >= 3 {
					for a := range sets[j] {
						sets[i][a] = true
					}
					sets = append(sets[:j], sets[j+1:]...)
					rings = append(rings[:j], rings[j+1:]...)
					rings[i] = nil // re-derive order below
					merged = true
					j--
				}
			}
		}
	}

	out := make([][]int, len(sets))
	for i := range sets {
		if rings[i] != nil {
			out[i] = rings[i]
			continue
		}
		out[i] = inducedDFSOrder(mol, sets[i])
	}
	return out
}

func inducedDFSOrder(mol *Mol, set map[int]bool) []int {
	start := -1
	for a := range set {
		if start < 0 || a < start {
			start = a
		}
	}
	order := make([]int, 0, len(set))
	visited := map[int]bool{}
	var dfs func(a int)
	dfs = func(a int) {
		visited[a] = true
		order = append(order, a)
		nbs := append([]int(nil), mol.Neighbors(a)...)
		sort.Ints(nbs)
		for _, nb := range nbs {
			if set[nb] && !visited[nb] {
				dfs(nb)
			}
		}
	}
	dfs(start)
	return order
}

// linkNodes connects overlapping clusters and keeps the maximum spanning
// tree of the overlap graph (Kruskal over edges sorted by shared-atom count,
// descending), so every molecule yields a tree rather than a cluster graph.
func linkNodes(tree *moltree.MolTree, clusters []cluster) {
	type edge struct {
		a, b, w int
	}
	var edges []edge
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			w := overlap(clusters[i].atoms, clusters[j].atoms)
			if w > 0 {
				edges = append(edges, edge{a: i, b: j, w: w})
			}
		}
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].w > edges[j].w })

	parent := make([]int, len(clusters))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	for _, e := range edges {
		ra, rb := find(e.a), find(e.b)
		if ra == rb {
			continue
		}
		parent[ra] = rb
		tree.Nodes[e.a].Neighbors = append(tree.Nodes[e.a].Neighbors, e.b)
		tree.Nodes[e.b].Neighbors = append(tree.Nodes[e.b].Neighbors, e.a)
	}
	for _, n := range tree.Nodes {
		sort.Ints(n.Neighbors)
	}
}

func overlap(a, b []int) int {
	set := make(map[int]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	n := 0
	for _, x := range b {
		if set[x] {
			n++
		}
	}
	return n
}

// clusterSymbol renders the canonical symbol of a cluster: the ring written
// with closure digit 1, a bond as its two atom symbols (lexicographic order)
// with the bond token when not single, a lone atom as its own symbol.
func clusterSymbol(mol *Mol, c cluster) string {
	if len(c.atoms) == 1 {
		return mol.Atoms[c.atoms[0]].Symbol
	}
	if !c.isRing {
		a, b := mol.Atoms[c.atoms[0]].Symbol, mol.Atoms[c.atoms[1]].Symbol
		tok := bondToken(mol, c.atoms[0], c.atoms[1])
		if a > b {
			a, b = b, a
		}
		return a + tok + b
	}

	order := canonicalRotation(mol, c.atoms)
	var sb strings.Builder
	sb.WriteString(mol.Atoms[order[0]].Symbol)
	sb.WriteByte('1')
	for i := 1; i < len(order); i++ {
		sb.WriteString(bondToken(mol, order[i-1], order[i]))
		sb.WriteString(mol.Atoms[order[i]].Symbol)
	}
	sb.WriteString(bondToken(mol, order[len(order)-1], order[0]))
	sb.WriteByte('1')
	return sb.String()
}

func bondToken(mol *Mol, a, b int) string {
	for _, bd := range mol.Bonds {
		if (bd.A == a && bd.B == b) || (bd.A == b && bd.B == a) {
			if bd.Order == '=' || bd.Order == '#' {
				return string(bd.Order)
			}
			return ""
		}
	}
	return ""
}

// canonicalRotation picks, among all rotations and the two directions of a
// cycle, the one whose symbol sequence is lexicographically smallest. This
// keeps ring symbols independent of where parsing happened to enter the ring.
func canonicalRotation(mol *Mol, atoms []int) []int {
	n := len(atoms)
	best := append([]int(nil), atoms...)
	bestKey := rotationKey(mol, best)

	try := func(candidate []int) {
		key := rotationKey(mol, candidate)
		if key < bestKey {
			bestKey = key
			best = candidate
		}
	}

	for dir := 0; dir < 2; dir++ {
		seq := append([]int(nil), atoms...)
		if dir == 1 {
			for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
				seq[i], seq[j] = seq[j], seq[i]
			}
		}
		for r := 0; r < n; r++ {
			rot := make([]int, n)
			copy(rot, seq[r:])
			copy(rot[n-r:], seq[:r])
			try(rot)
		}
	}
	return best
}

func rotationKey(mol *Mol, order []int) string {
	var sb strings.Builder
	for i, a := range order {
		if i > 0 {
			sb.WriteString(bondToken(mol, order[i-1], a))
		}
		sb.WriteString(mol.Atoms[a].Symbol)
	}
	return sb.String()
}

func neighborSymbols(t *moltree.MolTree, n *moltree.Node) []string {
	syms := make([]string, 0, len(n.Neighbors))
	for _, idx := range n.Neighbors {
		syms = append(syms, t.Nodes[idx].Smiles)
	}
	return syms
}

// attachment encodes one local reconstruction: the node symbol followed by
// the neighbor symbols in attachment order.
func attachment(sym string, neighbors []string) string {
	if len(neighbors) == 0 {
		return sym
	}
	return sym + "(" + strings.Join(neighbors, ";") + ")"
}

// permute feeds every permutation of items to fn, stopping after max calls.
// Heap's algorithm, iterative enough for the small neighbor counts seen here.
func permute(items []string, max int, fn func([]string)) {
	if len(items) == 0 {
		fn(nil)
		return
	}
	work := append([]string(nil), items...)
	count := 0
	var rec func(k int)
	rec = func(k int) {
		if count >= max {
			return
		}
		if k == 1 {
			fn(work)
			count++
			return
		}
		for i := 0; i < k; i++ {
			rec(k - 1)
			if k%2 == 0 {
				work[i], work[k-1] = work[k-1], work[i]
			} else {
				work[0], work[k-1] = work[k-1], work[0]
			}
		}
	}
	rec(len(work))
}
