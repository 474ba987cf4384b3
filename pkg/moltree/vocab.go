package moltree

import "github.com/tidwall/btree"

// Vocab is the deduplicated set of cluster symbols observed across a corpus.
// Symbols are kept in a B-Tree so that index assignment is deterministic
// (sorted order) regardless of the order symbols were inserted in, which in
// turn makes vocabularies reproducible across runs and worker schedules.
//
// Build the vocabulary once, before model construction; it is immutable
// afterwards as far as the model is concerned.
type Vocab struct {
	set     btree.Set[string]
	symbols []string       // sorted, built lazily by freeze()
	index   map[string]int // symbol -> position in symbols
}

// NewVocab creates a vocabulary from the given symbols. Duplicates collapse.
func NewVocab(symbols []string) *Vocab {
	v := &Vocab{}
	for _, s := range symbols {
		v.set.Insert(s)
	}
	v.freeze()
	return v
}

func (v *Vocab) freeze() {
	v.symbols = make([]string, 0, v.set.Len())
	v.index = make(map[string]int, v.set.Len())
	v.set.Scan(func(s string) bool {
		v.index[s] = len(v.symbols)
		v.symbols = append(v.symbols, s)
		return true
	})
}

// Get returns the index of a symbol, or -1 if the symbol is unknown.
func (v *Vocab) Get(symbol string) int {
	if i, ok := v.index[symbol]; ok {
		return i
	}
	return -1
}

// Contains reports whether the symbol is part of the vocabulary.
func (v *Vocab) Contains(symbol string) bool {
	_, ok := v.index[symbol]
	return ok
}

// Symbol returns the symbol at index i.
func (v *Vocab) Symbol(i int) string { return v.symbols[i] }

// Size returns the number of distinct symbols.
func (v *Vocab) Size() int { return len(v.symbols) }

// Symbols returns the symbols in index order. The returned slice is shared;
// callers must not modify it.
func (v *Vocab) Symbols() []string { return v.symbols }
