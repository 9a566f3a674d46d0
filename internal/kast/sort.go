package kast

import "fmt"

// Production declares the argument sorts and result sort of a symbol.
// Function symbols denote values rather than constructors, so an
// application of one is a symbolic term until it is evaluated.
type Production struct {
	Args     []Sort
	Sort     Sort
	Function bool
}

// Signature maps symbol labels to their productions. Builtin operators
// are always known.
type Signature map[string]Production

// Lookup returns the production for label.
func (s Signature) Lookup(label string) (Production, bool) {
	if p, ok := builtinSorts[label]; ok {
		return p, true
	}
	p, ok := s[label]
	return p, ok
}

// IsFunction reports whether label is a function symbol.
func (s Signature) IsFunction(label string) bool {
	p, ok := s.Lookup(label)
	return ok && p.Function
}

// SortOf returns the sort of t, or the empty sort when it is unknown.
func (s Signature) SortOf(t Term) Sort {
	switch x := t.(type) {
	case Var:
		return x.Sort
	case Token:
		return x.Sort
	case App:
		if x.IsCell() {
			return SortCells
		}
		if p, ok := s.Lookup(x.Label); ok {
			return p.Sort
		}
		return SortKItem
	case Seq:
		return SortK
	case Map:
		return SortMap
	case Cells:
		return SortCells
	case Rewrite:
		return s.SortOf(x.LHS)
	}
	return ""
}

// Compatible reports whether a term of sort actual may stand where
// expected is required. Unknown sorts are compatible with everything, and
// K accepts any sort.
func Compatible(expected, actual Sort) bool {
	switch {
	case actual == "" || expected == "" || expected == actual:
		return true
	case expected == SortK:
		return true
	case expected == SortKItem:
		return actual != SortK && actual != SortCells
	}
	return false
}

// CheckSorts verifies arities and argument sorts of every application in
// t that the signature declares.
func (s Signature) CheckSorts(t Term) error {
	var err error
	Walk(t, func(x Term) bool {
		if err != nil {
			return false
		}
		app, ok := x.(App)
		if !ok || app.IsCell() {
			return true
		}
		p, ok := s.Lookup(app.Label)
		if !ok {
			return true
		}
		if len(p.Args) != len(app.Args) {
			err = fmt.Errorf("%s expects %d arguments, got %d", app.Label, len(p.Args), len(app.Args))
			return false
		}
		for i, arg := range app.Args {
			if got := s.SortOf(arg); !Compatible(p.Args[i], got) {
				err = fmt.Errorf("argument %d of %s has sort %s, expected %s", i+1, app.Label, got, p.Args[i])
				return false
			}
		}
		return true
	})
	return err
}
