package chem

import "errors"

var (
	// ErrEmptySmiles indicates an empty or all-whitespace input string.
	ErrEmptySmiles = errors.New("chem: empty smiles")
	// ErrBadAtom indicates an unrecognized atom token.
	ErrBadAtom = errors.New("chem: unrecognized atom")
	// ErrUnclosedBracket indicates a '[' without a matching ']'.
	ErrUnclosedBracket = errors.New("chem: unclosed bracket atom")
	// ErrUnclosedBranch indicates unbalanced parentheses.
	ErrUnclosedBranch = errors.New("chem: unbalanced branch parentheses")
	// ErrUnclosedRing indicates a ring-closure digit opened but never closed.
	ErrUnclosedRing = errors.New("chem: unclosed ring bond")
	// ErrDanglingBond indicates a bond symbol not followed by an atom.
	ErrDanglingBond = errors.New("chem: dangling bond")
)
