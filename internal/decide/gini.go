package decide

import (
	"context"
	"sort"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/gnoswap-labs/kprove/internal/kast"
)

// DefaultTimeout bounds a single satisfiability check.
const DefaultTimeout = 2 * time.Second

// Gini decides the propositional skeleton of a condition with the gini
// SAT solver. Each Check builds its own solver, so a Gini value can be
// shared between goroutines.
type Gini struct {
	Timeout time.Duration
}

// NewGini returns a decider whose checks give up after timeout.
func NewGini(timeout time.Duration) *Gini {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gini{Timeout: timeout}
}

func (d *Gini) Check(ctx context.Context, c kast.Condition) Result {
	switch {
	case kast.IsTop(c):
		return Sat
	case kast.IsBottom(c):
		return Unsat
	}
	if ctx.Err() != nil {
		return Unknown
	}
	budget := d.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < budget {
			budget = left
		}
	}
	if budget <= 0 {
		return Timeout
	}

	enc := newEncoder()
	f := enc.encode(c)
	root := enc.c.Ands(append([]z.Lit{f}, enc.theory()...)...)

	g := gini.New()
	enc.c.ToCnf(g)
	g.Assume(root)
	switch g.Try(budget) {
	case 1:
		return Sat
	case -1:
		return Unsat
	}
	return Timeout
}

// encoder maps conditions onto a logic circuit, one input per atom.
type encoder struct {
	c     *logic.C
	atoms map[string]z.Lit
	eqs   map[string][]valueAtom // term -> equalities with a domain value
}

type valueAtom struct {
	value kast.Token
	lit   z.Lit
}

func newEncoder() *encoder {
	return &encoder{
		c:     logic.NewC(),
		atoms: make(map[string]z.Lit),
		eqs:   make(map[string][]valueAtom),
	}
}

func (e *encoder) encode(c kast.Condition) z.Lit {
	switch x := c.(type) {
	case kast.Top:
		return e.c.T
	case kast.Bottom:
		return e.c.F
	case kast.And:
		lits := make([]z.Lit, len(x.Conds))
		for i, in := range x.Conds {
			lits[i] = e.encode(in)
		}
		return e.c.Ands(lits...)
	case kast.Or:
		lits := make([]z.Lit, len(x.Conds))
		for i, in := range x.Conds {
			lits[i] = e.encode(in)
		}
		return e.c.Ors(lits...)
	case kast.Not:
		return e.encode(x.Cond).Not()
	case kast.Implies:
		return e.c.Or(e.encode(x.Left).Not(), e.encode(x.Right))
	case kast.Equals:
		return e.equality(x)
	}
	return e.atom(atomKey(c))
}

func (e *encoder) atom(key string) z.Lit {
	if lit, ok := e.atoms[key]; ok {
		return lit
	}
	lit := e.c.Lit()
	e.atoms[key] = lit
	return lit
}

func (e *encoder) equality(eq kast.Equals) z.Lit {
	lit := e.atom(atomKey(eq))
	if tok, ok := eq.Right.(kast.Token); ok {
		e.noteValue(eq.Left, tok, lit)
	} else if tok, ok := eq.Left.(kast.Token); ok {
		e.noteValue(eq.Right, tok, lit)
	}
	return lit
}

func (e *encoder) noteValue(t kast.Term, v kast.Token, lit z.Lit) {
	key := t.String()
	for _, seen := range e.eqs[key] {
		if seen.lit == lit {
			return
		}
	}
	e.eqs[key] = append(e.eqs[key], valueAtom{value: v, lit: lit})
}

// theory returns the clauses forbidding a term to equal two distinct
// domain values at once.
func (e *encoder) theory() []z.Lit {
	keys := make([]string, 0, len(e.eqs))
	for k := range e.eqs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []z.Lit
	for _, k := range keys {
		vs := e.eqs[k]
		for i := 0; i < len(vs); i++ {
			for j := i + 1; j < len(vs); j++ {
				if !vs[i].value.Equal(vs[j].value) {
					clauses = append(clauses, e.c.Or(vs[i].lit.Not(), vs[j].lit.Not()))
				}
			}
		}
	}
	return clauses
}

// atomKey identifies an atom up to the symmetry of equality.
func atomKey(c kast.Condition) string {
	switch x := c.(type) {
	case kast.Equals:
		l, r := x.Left.String(), x.Right.String()
		if r < l {
			l, r = r, l
		}
		return "eq:" + l + "\x00" + r
	case kast.Pred:
		return "pred:" + x.Term.String()
	case kast.Pattern:
		return "pattern:" + x.Term.String()
	}
	return "cond:" + c.String()
}
