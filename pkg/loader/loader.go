// Package loader groups preprocessed junction trees into training batches.
//
// A Folder owns a set of trees with their (re-indexed) labels and yields one
// full pass per call to Batches. Batches are produced by a background
// goroutine with a one-batch prefetch buffer; that concurrency is internal
// and invisible to the consumer, which sees batches strictly in the order
// they are delivered.
package loader

import (
	"fmt"
	"math/rand"

	"github.com/tsa87/anb-net/pkg/moltree"
)

// Batch is one training step's input. The orchestrator never mutates it.
// A nil Labels slice means the batch carries no ground-truth labels.
type Batch struct {
	Labelled   []*moltree.MolTree
	Unlabelled []*moltree.MolTree
	Labels     []float64
}

// Loader yields batches one full pass at a time.
type Loader interface {
	// Batches starts a fresh pass over the dataset. The channel is closed
	// when the pass completes.
	Batches() <-chan *Batch
}

// FolderOptions configures a Folder.
type FolderOptions struct {
	// BatchSize is the number of trees per batch. The final batch of a pass
	// may be smaller.
	BatchSize int

	// LabelPct is the fraction of each batch presented as labelled data.
	// The remainder is presented unlabelled, driving the unsupervised branch
	// of the objective. 1.0 means fully labelled.
	LabelPct float64

	// Seed makes shuffling reproducible. Shuffle state carries across
	// passes, so epochs see different orders but the whole run is
	// deterministic for a given seed.
	Seed uint64

	// Shuffle disables reordering when false (evaluation passes).
	Shuffle bool
}

// Folder is the in-memory Loader used for training and evaluation sets.
type Folder struct {
	trees  []*moltree.MolTree
	labels []float64
	opts   FolderOptions
	rng    *rand.Rand
}

// NewFolder creates a loader over trees and their labels. Labels must be
// positionally aligned with trees (apply the preprocessor's IndexMap first).
func NewFolder(trees []*moltree.MolTree, labels []float64, opts FolderOptions) (*Folder, error) {
	if len(labels) != len(trees) {
		return nil, fmt.Errorf("loader: %d labels for %d trees (labels must be re-indexed through the preprocessor's index map)", len(labels), len(trees))
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("loader: batch size must be positive (got %d)", opts.BatchSize)
	}
	if opts.LabelPct <= 0 || opts.LabelPct > 1 {
		return nil, fmt.Errorf("loader: label_pct must be in (0, 1] (got %g)", opts.LabelPct)
	}
	return &Folder{
		trees:  trees,
		labels: labels,
		opts:   opts,
		rng:    rand.New(rand.NewSource(int64(opts.Seed))),
	}, nil
}

// NumBatches returns how many batches one pass yields.
func (f *Folder) NumBatches() int {
	n := len(f.trees) / f.opts.BatchSize
	if len(f.trees)%f.opts.BatchSize != 0 {
		n++
	}
	return n
}

// Batches starts one pass. The producing goroutine prefetches at most one
// batch ahead of the consumer.
func (f *Folder) Batches() <-chan *Batch {
	order := make([]int, len(f.trees))
	for i := range order {
		order[i] = i
	}
	if f.opts.Shuffle {
		f.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	ch := make(chan *Batch, 1)
	go func() {
		defer close(ch)
		for start := 0; start < len(order); start += f.opts.BatchSize {
			end := start + f.opts.BatchSize
			if end > len(order) {
				end = len(order)
			}
			ch <- f.makeBatch(order[start:end])
		}
	}()
	return ch
}

// makeBatch splits one slice of the pass into the labelled and unlabelled
// branches according to LabelPct.
func (f *Folder) makeBatch(idxs []int) *Batch {
	nLabelled := int(float64(len(idxs)) * f.opts.LabelPct)
	if nLabelled == 0 {
		nLabelled = 1
	}
	if nLabelled > len(idxs) {
		nLabelled = len(idxs)
	}

	b := &Batch{
		Labelled: make([]*moltree.MolTree, 0, nLabelled),
		Labels:   make([]float64, 0, nLabelled),
	}
	for _, i := range idxs[:nLabelled] {
		b.Labelled = append(b.Labelled, f.trees[i])
		b.Labels = append(b.Labels, f.labels[i])
	}
	for _, i := range idxs[nLabelled:] {
		b.Unlabelled = append(b.Unlabelled, f.trees[i])
	}
	return b
}
