package kast

import "sort"

// BottomUp rebuilds t by applying f to every subterm, children first.
// Collections are rebuilt through their constructors so the result stays
// in normal form.
func BottomUp(t Term, f func(Term) Term) Term {
	switch x := t.(type) {
	case App:
		if len(x.Args) == 0 {
			return f(x)
		}
		args := make([]Term, len(x.Args))
		for i, a := range x.Args {
			args[i] = BottomUp(a, f)
		}
		return f(App{Label: x.Label, Args: args})
	case Seq:
		items := make([]Term, len(x.Items))
		for i, it := range x.Items {
			items[i] = BottomUp(it, f)
		}
		return f(NewSeq(items...))
	case Map:
		entries := make([]MapEntry, len(x.Entries))
		for i, e := range x.Entries {
			entries[i] = MapEntry{Key: BottomUp(e.Key, f), Value: BottomUp(e.Value, f)}
		}
		var frame Term
		if x.Frame != nil {
			frame = BottomUp(x.Frame, f)
		}
		return f(NewMap(entries, frame))
	case Cells:
		items := make([]Term, len(x.Items))
		for i, it := range x.Items {
			items[i] = BottomUp(it, f)
		}
		var frame Term
		if x.Frame != nil {
			frame = BottomUp(x.Frame, f)
		}
		return f(NewCells(items, frame))
	case Rewrite:
		return f(Rewrite{LHS: BottomUp(x.LHS, f), RHS: BottomUp(x.RHS, f)})
	default:
		return f(t)
	}
}

// Walk visits t in pre-order. Returning false from visit skips the children.
func Walk(t Term, visit func(Term) bool) {
	if t == nil || !visit(t) {
		return
	}
	switch x := t.(type) {
	case App:
		for _, a := range x.Args {
			Walk(a, visit)
		}
	case Seq:
		for _, it := range x.Items {
			Walk(it, visit)
		}
	case Map:
		for _, e := range x.Entries {
			Walk(e.Key, visit)
			Walk(e.Value, visit)
		}
		Walk(x.Frame, visit)
	case Cells:
		for _, it := range x.Items {
			Walk(it, visit)
		}
		Walk(x.Frame, visit)
	case Rewrite:
		Walk(x.LHS, visit)
		Walk(x.RHS, visit)
	}
}

// VarSet is a set of variables keyed by name.
type VarSet map[string]Var

// Names returns the variable names in sorted order.
func (s VarSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the set contains a variable named name.
func (s VarSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Union adds every variable of other to s and returns s.
func (s VarSet) Union(other VarSet) VarSet {
	for n, v := range other {
		s[n] = v
	}
	return s
}

// Minus returns the variables of s that are not in other.
func (s VarSet) Minus(other VarSet) VarSet {
	out := make(VarSet)
	for n, v := range s {
		if !other.Has(n) {
			out[n] = v
		}
	}
	return out
}

// FreeVars collects the variables occurring in the given terms.
func FreeVars(ts ...Term) VarSet {
	vars := make(VarSet)
	for _, t := range ts {
		Walk(t, func(x Term) bool {
			if v, ok := x.(Var); ok {
				vars[v.Name] = v
			}
			return true
		})
	}
	return vars
}

// IsGround reports whether t contains no variables.
func IsGround(t Term) bool {
	ground := true
	Walk(t, func(x Term) bool {
		if _, ok := x.(Var); ok {
			ground = false
		}
		return ground
	})
	return ground
}

// ContainsRewrite reports whether a Rewrite node is left in t.
func ContainsRewrite(t Term) bool {
	found := false
	Walk(t, func(x Term) bool {
		if _, ok := x.(Rewrite); ok {
			found = true
		}
		return !found
	})
	return found
}

// SplitRewrite separates a body with nested rewrites into its left and
// right sides: <k> foo => bar ~> K </k> becomes <k> foo ~> K </k> and
// <k> bar ~> K </k>.
func SplitRewrite(body Term) (lhs, rhs Term) {
	lhs = BottomUp(body, func(t Term) Term {
		if r, ok := t.(Rewrite); ok {
			return r.LHS
		}
		return t
	})
	rhs = BottomUp(body, func(t Term) Term {
		if r, ok := t.(Rewrite); ok {
			return r.RHS
		}
		return t
	})
	return lhs, rhs
}

// AlphaEqual compares terms up to a consistent renaming of existential
// variables.
func AlphaEqual(a, b Term) bool {
	return alphaEqual(a, b, map[string]string{}, map[string]string{})
}

func alphaEqual(a, b Term, fwd, bwd map[string]string) bool {
	switch x := a.(type) {
	case Var:
		y, ok := b.(Var)
		if !ok {
			return false
		}
		if !x.IsExistential() || !y.IsExistential() {
			return x.Name == y.Name
		}
		if m, ok := fwd[x.Name]; ok {
			return m == y.Name
		}
		if m, ok := bwd[y.Name]; ok {
			return m == x.Name
		}
		fwd[x.Name], bwd[y.Name] = y.Name, x.Name
		return true
	case App:
		y, ok := b.(App)
		if !ok || x.Label != y.Label || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !alphaEqual(x.Args[i], y.Args[i], fwd, bwd) {
				return false
			}
		}
		return true
	case Seq:
		y, ok := b.(Seq)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !alphaEqual(x.Items[i], y.Items[i], fwd, bwd) {
				return false
			}
		}
		return true
	case Map:
		y, ok := b.(Map)
		if !ok || len(x.Entries) != len(y.Entries) {
			return false
		}
		for i := range x.Entries {
			if !alphaEqual(x.Entries[i].Key, y.Entries[i].Key, fwd, bwd) ||
				!alphaEqual(x.Entries[i].Value, y.Entries[i].Value, fwd, bwd) {
				return false
			}
		}
		return alphaEqualOpt(x.Frame, y.Frame, fwd, bwd)
	case Cells:
		y, ok := b.(Cells)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !alphaEqual(x.Items[i], y.Items[i], fwd, bwd) {
				return false
			}
		}
		return alphaEqualOpt(x.Frame, y.Frame, fwd, bwd)
	case Rewrite:
		y, ok := b.(Rewrite)
		return ok && alphaEqual(x.LHS, y.LHS, fwd, bwd) && alphaEqual(x.RHS, y.RHS, fwd, bwd)
	default:
		return a.Equal(b)
	}
}

func alphaEqualOpt(a, b Term, fwd, bwd map[string]string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return alphaEqual(a, b, fwd, bwd)
}
