package pipeline

import (
	"github.com/tsa87/anb-net/pkg/moltree"
)

// VocabBuilder collects the deduplicated cluster-symbol set of a corpus.
type VocabBuilder struct {
	dec  moltree.Decomposer
	opts Options
}

// NewVocabBuilder creates a builder over the given decomposer.
func NewVocabBuilder(dec moltree.Decomposer, opts Options) *VocabBuilder {
	return &VocabBuilder{dec: dec, opts: opts}
}

// Build decomposes every structure and returns the set of cluster symbols
// observed. Structures that fail decomposition contribute nothing; failure is
// swallowed here since an unparsable structure simply has no symbols to
// offer. The result is order-independent.
func (b *VocabBuilder) Build(raws []string) *moltree.Vocab {
	symbolLists := mapOrdered(raws, b.opts, func(smiles string) []string {
		tree, err := b.dec.Decompose(smiles)
		if err != nil {
			return nil
		}
		return tree.Symbols()
	})

	var flat []string
	for _, syms := range symbolLists {
		flat = append(flat, syms...)
	}
	return moltree.NewVocab(flat)
}
