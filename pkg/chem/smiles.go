// Package chem provides the minimal molecular-graph machinery the
// preprocessing pipeline needs: a SMILES reader and a junction-tree
// decomposer. It is deliberately small; it recognizes the organic subset,
// bracket atoms, branches, ring closures and aromatic lowercase notation,
// which covers the drug-like datasets the trainer is fed with. Full
// valence/stereo chemistry is out of scope.
package chem

import (
	"fmt"
	"strings"
)

// Atom is one vertex of the molecular graph.
type Atom struct {
	Symbol   string
	Aromatic bool
}

// Bond is one edge of the molecular graph. Order is the SMILES bond token:
// '-' single, '=' double, '#' triple, ':' aromatic.
type Bond struct {
	A, B  int
	Order byte
}

// Mol is a parsed molecular graph.
type Mol struct {
	Atoms []Atom
	Bonds []Bond
	adj   [][]int
}

// Degree returns the number of bonds incident to atom i.
func (m *Mol) Degree(i int) int { return len(m.adj[i]) }

// Neighbors returns the atoms bonded to atom i.
func (m *Mol) Neighbors(i int) []int { return m.adj[i] }

func (m *Mol) addBond(a, b int, order byte) {
	m.Bonds = append(m.Bonds, Bond{A: a, B: b, Order: order})
	m.adj[a] = append(m.adj[a], b)
	m.adj[b] = append(m.adj[b], a)
}

// organic subset atoms readable without brackets, two-letter first.
var organicAtoms = []string{"Cl", "Br", "B", "C", "N", "O", "P", "S", "F", "I"}

type ringOpen struct {
	atom int
	bond byte
}

// ParseSmiles reads a SMILES string into a molecular graph.
//
// Supported notation: organic-subset atoms, bracket atoms (content between
// '[' and ']' is kept verbatim as the symbol), bond symbols - = # : / \,
// branches with parentheses, ring closures with digits and %nn. Directional
// bonds are read as single bonds; stereo descriptors inside brackets are
// preserved in the symbol but not interpreted.
func ParseSmiles(s string) (*Mol, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptySmiles
	}

	mol := &Mol{}
	var stack []int               // branch return points
	prev := -1                    // atom awaiting the next bond
	var pending byte              // explicit bond symbol for the next attachment
	rings := map[int]ringOpen{}   // ring-closure number -> opening atom
	haveBond := false             // a bond token was read but not yet consumed

	addAtom := func(symbol string, aromatic bool) {
		idx := len(mol.Atoms)
		mol.Atoms = append(mol.Atoms, Atom{Symbol: symbol, Aromatic: aromatic})
		mol.adj = append(mol.adj, nil)
		if prev >= 0 {
			order := pending
			if order == 0 {
				order = '-'
				if aromatic && mol.Atoms[prev].Aromatic {
					order = ':'
				}
			}
			mol.addBond(prev, idx, order)
		}
		prev = idx
		pending = 0
		haveBond = false
	}

	closeRing := func(num int) error {
		if prev < 0 {
			return fmt.Errorf("%w: ring %d before any atom", ErrUnclosedRing, num)
		}
		if open, ok := rings[num]; ok {
			order := pending
			if order == 0 {
				order = open.bond
			}
			if order == 0 {
				order = '-'
				if mol.Atoms[prev].Aromatic && mol.Atoms[open.atom].Aromatic {
					order = ':'
				}
			}
			mol.addBond(open.atom, prev, order)
			delete(rings, num)
		} else {
			rings[num] = ringOpen{atom: prev, bond: pending}
		}
		pending = 0
		haveBond = false
		return nil
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return nil, ErrUnclosedBracket
			}
			body := s[i+1 : i+j]
			if body == "" {
				return nil, fmt.Errorf("%w: empty bracket at %d", ErrBadAtom, i)
			}
			aromatic := body[0] >= 'a' && body[0] <= 'z'
			addAtom("["+body+"]", aromatic)
			i += j + 1

		case c == '(':
			if prev < 0 {
				return nil, ErrUnclosedBranch
			}
			stack = append(stack, prev)
			i++

		case c == ')':
			if len(stack) == 0 {
				return nil, ErrUnclosedBranch
			}
			prev = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			i++

		case c == '-' || c == '=' || c == '#' || c == ':':
			pending = c
			haveBond = true
			i++

		case c == '/' || c == '\\':
			pending = '-'
			haveBond = true
			i++

		case c >= '0' && c <= '9':
			if err := closeRing(int(c - '0')); err != nil {
				return nil, err
			}
			i++

		case c == '%':
			if i+2 >= len(s) || s[i+1] < '0' || s[i+1] > '9' || s[i+2] < '0' || s[i+2] > '9' {
				return nil, fmt.Errorf("%w: bad %%nn ring closure at %d", ErrUnclosedRing, i)
			}
			if err := closeRing(int(s[i+1]-'0')*10 + int(s[i+2]-'0')); err != nil {
				return nil, err
			}
			i += 3

		case c == '.':
			// disconnected component separator
			prev = -1
			pending = 0
			haveBond = false
			i++

		default:
			matched := false
			for _, sym := range organicAtoms {
				if strings.HasPrefix(s[i:], sym) {
					addAtom(sym, false)
					i += len(sym)
					matched = true
					break
				}
			}
			if !matched {
				if c >= 'a' && c <= 'z' && strings.ContainsRune("bcnops", rune(c)) {
					addAtom(string(c), true)
					i++
					matched = true
				}
			}
			if !matched {
				return nil, fmt.Errorf("%w: %q at %d", ErrBadAtom, string(c), i)
			}
		}
	}

	if len(stack) != 0 {
		return nil, ErrUnclosedBranch
	}
	if len(rings) != 0 {
		return nil, ErrUnclosedRing
	}
	if haveBond {
		return nil, ErrDanglingBond
	}
	if len(mol.Atoms) == 0 {
		return nil, ErrEmptySmiles
	}
	return mol, nil
}
