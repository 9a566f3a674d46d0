// Package matcher matches rule and claim patterns against symbolic
// configurations. A match is a substitution for the pattern variables
// together with the residual equalities that must hold for the match to
// be valid on the concrete instances of the subject.
package matcher

import "github.com/gnoswap-labs/kprove/internal/kast"

// Match is one way the pattern matches the subject.
type Match struct {
	Subst       kast.Subst
	Constraints []kast.Condition
}

// Condition conjoins the residual constraints of the match.
func (m Match) Condition() kast.Condition {
	return kast.MlAnd(m.Constraints...)
}

// Matcher matches terms under a signature, which tells which symbols
// are functions and which sorts are compatible.
type Matcher struct {
	sig kast.Signature
}

// New returns a matcher for sig. A nil signature knows only the builtins.
func New(sig kast.Signature) *Matcher {
	if sig == nil {
		sig = kast.Signature{}
	}
	return &Matcher{sig: sig}
}

// MatchTerms matches pattern against subject with the builtin signature.
func MatchTerms(pattern, subject kast.Term) []Match {
	return New(nil).Match(pattern, subject)
}

// Match returns every match of pattern against subject. No match is an
// empty slice.
func (m *Matcher) Match(pattern, subject kast.Term) []Match {
	return m.MatchWith(pattern, subject, nil)
}

// MatchWith matches with some pattern variables already bound. Prebound
// variables are rigid: they only match their binding, possibly under a
// residual equality.
func (m *Matcher) MatchWith(pattern, subject kast.Term, initial kast.Subst) []Match {
	st := state{subst: initial.Copy()}
	var out []Match
	for _, r := range m.match(pattern, subject, st) {
		out = append(out, Match{Subst: r.subst, Constraints: r.constraints})
	}
	return out
}

type state struct {
	subst       kast.Subst
	constraints []kast.Condition
}

func (s state) copy() state {
	return state{
		subst:       s.subst.Copy(),
		constraints: append([]kast.Condition(nil), s.constraints...),
	}
}

func (s state) bind(name string, t kast.Term) state {
	n := s.copy()
	n.subst[name] = t
	return n
}

// assume adds the residual left = right. It reports false when the
// equality is trivially unsatisfiable.
func (s state) assume(left, right kast.Term) (state, bool) {
	c := kast.MlEquals(left, right)
	switch {
	case kast.IsTop(c):
		return s, true
	case kast.IsBottom(c):
		return s, false
	}
	n := s.copy()
	n.constraints = append(n.constraints, c)
	return n, true
}

func (m *Matcher) match(p, s kast.Term, st state) []state {
	if v, ok := p.(kast.Var); ok {
		return m.matchVar(v, s, st)
	}
	if m.symbolic(s) && !sameHead(p, s) && m.boundBy(p, st) {
		inst := st.subst.Apply(p)
		if n, ok := st.assume(inst, s); ok {
			return []state{n}
		}
		return nil
	}
	switch x := p.(type) {
	case kast.Token:
		if x.Equal(s) {
			return []state{st}
		}
	case kast.App:
		if x.IsCell() {
			if c, ok := s.(kast.Cells); ok {
				return m.matchCells(kast.Cells{Items: []kast.Term{x}}, c, st)
			}
		}
		y, ok := s.(kast.App)
		if !ok || x.Label != y.Label || len(x.Args) != len(y.Args) {
			return nil
		}
		return m.matchList(x.Args, y.Args, st)
	case kast.Seq:
		return m.matchSeq(x, s, st)
	case kast.Map:
		return m.matchMap(x, s, st)
	case kast.Cells:
		if a, ok := s.(kast.App); ok && a.IsCell() {
			return m.matchCells(x, kast.Cells{Items: []kast.Term{a}}, st)
		}
		c, ok := s.(kast.Cells)
		if !ok {
			return nil
		}
		return m.matchCells(x, c, st)
	}
	return nil
}

func (m *Matcher) matchVar(v kast.Var, s kast.Term, st state) []state {
	if bound, ok := st.subst[v.Name]; ok {
		if bound.Equal(s) {
			return []state{st}
		}
		if !m.symbolic(bound) && !m.symbolic(s) {
			return nil
		}
		if n, ok := st.assume(bound, s); ok {
			return []state{n}
		}
		return nil
	}
	if !kast.Compatible(v.Sort, m.sig.SortOf(s)) {
		return nil
	}
	return []state{st.bind(v.Name, s)}
}

// matchList matches argument lists pairwise, threading every branch.
func (m *Matcher) matchList(ps, ss []kast.Term, st state) []state {
	branches := []state{st}
	for i := range ps {
		var next []state
		for _, b := range branches {
			next = append(next, m.match(ps[i], ss[i], b)...)
		}
		if len(next) == 0 {
			return nil
		}
		branches = next
	}
	return branches
}

// matchSeq matches the pattern items against a prefix of the subject.
// A trailing variable of sort K captures the rest.
func (m *Matcher) matchSeq(p kast.Seq, s kast.Term, st state) []state {
	subject := seqItems(s)
	items := p.Items
	var frame *kast.Var
	if n := len(items); n > 0 {
		if v, ok := items[n-1].(kast.Var); ok && (v.Sort == kast.SortK || v.Sort == "") {
			frame = &v
			items = items[:n-1]
		}
	}
	if len(subject) < len(items) || (frame == nil && len(subject) != len(items)) {
		return nil
	}
	branches := m.matchList(items, subject[:len(items)], st)
	if frame == nil {
		return branches
	}
	rest := kast.NewSeq(subject[len(items):]...)
	var out []state
	for _, b := range branches {
		out = append(out, m.matchVar(*frame, rest, b)...)
	}
	return out
}

func seqItems(t kast.Term) []kast.Term {
	if s, ok := t.(kast.Seq); ok {
		return s.Items
	}
	return []kast.Term{t}
}

// matchMap enumerates every injective assignment of pattern entries to
// subject entries. Leftover entries and the subject frame go to the
// pattern frame.
func (m *Matcher) matchMap(p kast.Map, s kast.Term, st state) []state {
	var subject kast.Map
	switch x := s.(type) {
	case kast.Map:
		subject = x
	case kast.Var:
		if len(p.Entries) > 0 || p.Frame == nil {
			return nil
		}
		return m.match(p.Frame, x, st)
	default:
		return nil
	}
	used := make([]bool, len(subject.Entries))
	var out []state
	var assign func(i int, st state)
	assign = func(i int, st state) {
		if i == len(p.Entries) {
			var rest []kast.MapEntry
			for j, e := range subject.Entries {
				if !used[j] {
					rest = append(rest, e)
				}
			}
			out = append(out, m.closeFrame(p.Frame, len(rest) == 0 && subject.Frame == nil,
				kast.NewMap(rest, subject.Frame), st)...)
			return
		}
		pe := p.Entries[i]
		for _, j := range m.candidates(pe.Key, subject.Entries, used, st) {
			used[j] = true
			for _, k := range m.match(pe.Key, subject.Entries[j].Key, st) {
				for _, v := range m.match(pe.Value, subject.Entries[j].Value, k) {
					assign(i+1, v)
				}
			}
			used[j] = false
		}
	}
	assign(0, st)
	return out
}

// candidates narrows the subject entries a pattern key may match: a key
// already known syntactically only matches the entry with that key.
func (m *Matcher) candidates(key kast.Term, entries []kast.MapEntry, used []bool, st state) []int {
	var all []int
	for j := range entries {
		if !used[j] {
			all = append(all, j)
		}
	}
	if !m.boundBy(key, st) {
		return all
	}
	inst := st.subst.Apply(key)
	for _, j := range all {
		if entries[j].Key.Equal(inst) {
			return []int{j}
		}
	}
	return all
}

// matchCells matches each pattern cell with the subject cell of the same
// label. Unmentioned cells go to the pattern frame.
func (m *Matcher) matchCells(p kast.Cells, s kast.Cells, st state) []state {
	used := make(map[string]bool)
	branches := []state{st}
	for _, item := range p.Items {
		pc, ok := item.(kast.App)
		if !ok {
			return nil
		}
		sc, ok := s.Cell(pc.Label)
		if !ok || used[pc.Label] || len(pc.Args) != len(sc.Args) {
			return nil
		}
		used[pc.Label] = true
		var next []state
		for _, b := range branches {
			next = append(next, m.matchList(pc.Args, sc.Args, b)...)
		}
		if len(next) == 0 {
			return nil
		}
		branches = next
	}
	var rest []kast.Term
	for _, item := range s.Items {
		if a, ok := item.(kast.App); ok && used[a.Label] {
			continue
		}
		rest = append(rest, item)
	}
	var out []state
	for _, b := range branches {
		out = append(out, m.closeFrame(p.Frame, len(rest) == 0 && s.Frame == nil,
			kast.NewCells(rest, s.Frame), b)...)
	}
	return out
}

// closeFrame binds the pattern frame to the leftover collection, or
// requires the leftover to be empty when the pattern has no frame.
func (m *Matcher) closeFrame(frame kast.Term, empty bool, rest kast.Term, st state) []state {
	if frame == nil {
		if empty {
			return []state{st}
		}
		return nil
	}
	return m.match(frame, rest, st)
}

// symbolic reports whether t may denote more than one value: a data
// variable or the application of a function symbol. Variables standing
// for sequences, maps or cell fragments are structure, not values.
func (m *Matcher) symbolic(t kast.Term) bool {
	switch x := t.(type) {
	case kast.Var:
		switch x.Sort {
		case kast.SortK, kast.SortMap, kast.SortCells:
			return false
		}
		return true
	case kast.App:
		return m.sig.IsFunction(x.Label)
	}
	return false
}

// boundBy reports whether every variable of p is already bound.
func (m *Matcher) boundBy(p kast.Term, st state) bool {
	for name := range kast.FreeVars(p) {
		if _, ok := st.subst[name]; !ok {
			return false
		}
	}
	return true
}

func sameHead(p, s kast.Term) bool {
	pa, ok := p.(kast.App)
	if !ok {
		return false
	}
	sa, ok := s.(kast.App)
	return ok && pa.Label == sa.Label && len(pa.Args) == len(sa.Args)
}
