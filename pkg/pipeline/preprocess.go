package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/tsa87/anb-net/pkg/metrics"
	"github.com/tsa87/anb-net/pkg/moltree"
)

// Result is the per-item outcome of the preprocessing pipeline. Exactly one
// of Tree or Err is set; aggregation filters on the tag instead of comparing
// sentinel values.
type Result struct {
	Tree *moltree.MolTree
	Err  error
}

// Ok reports whether the item survived the full pipeline.
func (r Result) Ok() bool { return r.Err == nil }

// IndexMap records, for each successfully processed structure, its position
// in the original dataset. It is strictly increasing and never longer than
// the source dataset. processed[i] corresponds to raw[m[i]].
type IndexMap []int

// Apply re-indexes an external label array through the map, so labels line up
// with the processed structures. Callers must apply it before zipping labels
// with the preprocessed output.
func (m IndexMap) Apply(labels []float64) ([]float64, error) {
	out := make([]float64, len(m))
	for i, idx := range m {
		if idx < 0 || idx >= len(labels) {
			return nil, fmt.Errorf("pipeline: index %d out of range for %d labels", idx, len(labels))
		}
		out[i] = labels[idx]
	}
	return out, nil
}

// Preprocessor runs the full decomposition pipeline over a corpus.
type Preprocessor struct {
	dec  moltree.Assembler
	opts Options
}

// NewPreprocessor creates a preprocessor over the given decomposition
// collaborator.
func NewPreprocessor(dec moltree.Assembler, opts Options) *Preprocessor {
	return &Preprocessor{dec: dec, opts: opts}
}

// Preprocess converts raw structures into junction trees, dropping the ones
// that fail anywhere in the pipeline. The second return value maps each
// surviving tree back to its original dataset position.
func (p *Preprocessor) Preprocess(raws []string) ([]*moltree.MolTree, IndexMap) {
	results := mapOrdered(raws, p.opts, p.tensorize)

	processed := make([]*moltree.MolTree, 0, len(results))
	indexMap := make(IndexMap, 0, len(results))
	failed := 0
	for i, r := range results {
		if !r.Ok() {
			failed++
			metrics.PreprocessFailures.Inc()
			continue
		}
		processed = append(processed, r.Tree)
		indexMap = append(indexMap, i)
	}

	if failed > 0 {
		slog.Warn("preprocess dropped structures", "total", len(raws), "dropped", failed)
	}
	return processed, indexMap
}

// tensorize is the per-item worker body: decompose, recover connectivity,
// enumerate assembly candidates, force the ground-truth candidate into each
// node's candidate set, then drop the graph intermediates. Any failure is
// captured in the Result; nothing escapes the pipeline boundary.
func (p *Preprocessor) tensorize(smiles string) Result {
	tree, err := p.dec.Decompose(smiles)
	if err != nil {
		return Result{Err: err}
	}
	if err := p.dec.Recover(tree); err != nil {
		return Result{Err: err}
	}
	if err := p.dec.Assemble(tree); err != nil {
		return Result{Err: err}
	}

	// The ground truth must always be a legal candidate, even when the
	// enumeration bound excluded it.
	for _, node := range tree.Nodes {
		if !node.HasLabelCand() {
			node.Cands = append(node.Cands, node.Label)
		}
	}

	tree.DropGraph()
	return Result{Tree: tree}
}
