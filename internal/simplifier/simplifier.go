// Package simplifier rewrites terms and conditions to simpler equivalent
// forms using builtin reductions and simplification lemmas.
package simplifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/kprove/internal/decide"
	"github.com/gnoswap-labs/kprove/internal/kast"
	"github.com/gnoswap-labs/kprove/internal/matcher"
)

const (
	// DefaultMaxApplications bounds the rewrite steps of one call.
	DefaultMaxApplications = 1000
	// DefaultMaxDepth bounds the nesting of requires-clause checks.
	DefaultMaxDepth = 3
)

// Options configures a Simplifier. Zero values select the defaults.
type Options struct {
	MaxApplications int
	MaxDepth        int
	Signature       kast.Signature
	// Decider, when set, discharges lemma side conditions and refutes
	// infeasible path conditions.
	Decider decide.Decider
	Logger  *zap.Logger
}

// Simplifier is immutable and safe for concurrent use.
type Simplifier struct {
	lemmas  []kast.Rule
	sig     kast.Signature
	matcher *matcher.Matcher
	opts    Options
}

// New returns a simplifier that uses lemmas in priority order.
func New(lemmas []kast.Rule, opts Options) *Simplifier {
	if opts.MaxApplications <= 0 {
		opts.MaxApplications = DefaultMaxApplications
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Signature == nil {
		opts.Signature = kast.Signature{}
	}
	ordered := append([]kast.Rule(nil), lemmas...)
	kast.SortByPriority(ordered)
	return &Simplifier{
		lemmas:  ordered,
		sig:     opts.Signature,
		matcher: matcher.New(opts.Signature),
		opts:    opts,
	}
}

// Lemmas returns the lemmas in the order they are tried.
func (s *Simplifier) Lemmas() []kast.Rule { return append([]kast.Rule(nil), s.lemmas...) }

// pass holds the state of one top-level call. Nested side-condition
// checks share its budget.
type pass struct {
	s           *Simplifier
	ctx         context.Context
	assumptions []kast.Condition
	values      kast.Subst // variables the assumptions fix to a value
	budget      int
	depth       int
	exhausted   bool
}

func (s *Simplifier) newPass(ctx context.Context, assumptions []kast.Condition) *pass {
	flat := flatten(assumptions)
	values := s.knownValues(flat)
	if len(values) > 0 {
		for i, a := range flat {
			if _, ok := a.(kast.Equals); !ok {
				flat[i] = values.ApplyCondition(a)
			}
		}
		flat = flatten(flat)
	}
	return &pass{
		s:           s,
		ctx:         ctx,
		assumptions: flat,
		values:      values,
		budget:      s.opts.MaxApplications,
	}
}

func (p *pass) diagnostics() []kast.Diagnostic {
	if !p.exhausted {
		return nil
	}
	if p.s.opts.Logger != nil {
		p.s.opts.Logger.Debug("simplification bound reached",
			zap.Int("max_applications", p.s.opts.MaxApplications))
	}
	return []kast.Diagnostic{kast.DiagSimplificationBound}
}

// spend consumes one application. It reports false once the budget is gone.
func (p *pass) spend() bool {
	if p.budget <= 0 {
		p.exhausted = true
		return false
	}
	p.budget--
	return true
}

// Term simplifies t under the assumptions. When the application bound is
// reached the partially simplified term is returned together with
// DiagSimplificationBound.
func (s *Simplifier) Term(ctx context.Context, t kast.Term, assumptions []kast.Condition) (kast.Term, []kast.Diagnostic) {
	p := s.newPass(ctx, assumptions)
	out := p.term(t)
	return out, p.diagnostics()
}

// Condition simplifies c under the assumptions: terms are simplified,
// atoms known from the assumptions become #Top or #Bottom.
func (s *Simplifier) Condition(ctx context.Context, c kast.Condition, assumptions []kast.Condition) (kast.Condition, []kast.Diagnostic) {
	p := s.newPass(ctx, assumptions)
	out := p.condition(c)
	return out, p.diagnostics()
}

// Entails reports whether the assumptions imply c.
func (s *Simplifier) Entails(ctx context.Context, assumptions []kast.Condition, c kast.Condition) bool {
	return s.newPass(ctx, assumptions).entails(c)
}

// Feasible conjoins the constraints and reports false when the
// conjunction is recognised as unsatisfiable.
func (s *Simplifier) Feasible(ctx context.Context, constraints []kast.Condition) (kast.Condition, bool) {
	c := kast.MlAnd(constraints...)
	if kast.IsBottom(c) {
		return c, false
	}
	if s.opts.Decider != nil && s.opts.Decider.Check(ctx, c) == decide.Unsat {
		return kast.Bottom{}, false
	}
	return c, true
}

func (p *pass) term(t kast.Term) kast.Term {
	for {
		next := kast.BottomUp(t, p.step)
		if next.Equal(t) || p.exhausted {
			return next
		}
		t = next
	}
}

// step rewrites a single node whose children are already simplified.
func (p *pass) step(t kast.Term) kast.Term {
	for !p.exhausted {
		app, ok := t.(kast.App)
		if !ok {
			return t
		}
		if out, ok := p.s.evalBuiltin(app); ok {
			if !p.spend() {
				return t
			}
			t = out
			continue
		}
		out, ok := p.applyLemma(app)
		if !ok {
			return t
		}
		if !p.spend() {
			return t
		}
		// The lemma result may contain reducible subterms again.
		t = kast.BottomUp(out, p.step)
		return t
	}
	return t
}

// applyLemma fires the first lemma, in priority order, that matches t
// without residual constraints and whose side condition is entailed.
func (p *pass) applyLemma(t kast.App) (kast.Term, bool) {
	for _, lemma := range p.s.lemmas {
		for _, m := range p.s.matcher.Match(lemma.LHS, t) {
			if len(m.Constraints) > 0 {
				continue
			}
			if !p.entailsNested(m.Subst.ApplyCondition(lemma.Requires)) {
				continue
			}
			if p.s.opts.Logger != nil {
				p.s.opts.Logger.Debug("lemma applied",
					zap.String("lemma", lemma.Label),
					zap.String("term", t.String()))
			}
			return m.Subst.Apply(lemma.RHS), true
		}
	}
	return nil, false
}

// entailsNested checks a side condition one level deeper.
func (p *pass) entailsNested(c kast.Condition) bool {
	if kast.IsTop(c) {
		return true
	}
	if p.depth >= p.s.opts.MaxDepth {
		return p.known(c)
	}
	p.depth++
	defer func() { p.depth-- }()
	return p.entails(c)
}

func (p *pass) entails(c kast.Condition) bool {
	for _, conj := range kast.Conjuncts(c) {
		if p.known(conj) {
			continue
		}
		if kast.IsTop(p.condition(conj)) {
			continue
		}
		if p.s.opts.Decider != nil {
			if ok, _ := decide.Entails(p.ctx, p.s.opts.Decider, p.assumptions, conj); ok {
				continue
			}
		}
		return false
	}
	return true
}

// known reports whether c is literally one of the assumptions.
func (p *pass) known(c kast.Condition) bool {
	if kast.IsTop(c) {
		return true
	}
	for _, a := range p.assumptions {
		if a.Equal(c) {
			return true
		}
	}
	return false
}

func (p *pass) refuted(c kast.Condition) bool {
	neg := kast.MlNot(c)
	for _, a := range p.assumptions {
		if a.Equal(neg) {
			return true
		}
	}
	return false
}

func (p *pass) condition(c kast.Condition) kast.Condition {
	c = kast.MapTerms(p.values.ApplyCondition(c), p.term)
	return p.reduce(c)
}

// reduce replaces atoms decided by the assumptions and equalities
// between distinct values.
func (p *pass) reduce(c kast.Condition) kast.Condition {
	switch x := c.(type) {
	case kast.Top, kast.Bottom:
		return c
	case kast.And:
		out := make([]kast.Condition, len(x.Conds))
		for i, in := range x.Conds {
			out[i] = p.reduce(in)
		}
		return kast.MlAnd(out...)
	case kast.Or:
		out := make([]kast.Condition, len(x.Conds))
		for i, in := range x.Conds {
			out[i] = p.reduce(in)
		}
		return kast.MlOr(out...)
	case kast.Not:
		return kast.MlNot(p.reduce(x.Cond))
	case kast.Implies:
		return kast.MlImplies(p.reduce(x.Left), p.reduce(x.Right))
	case kast.Equals:
		if eq, ok := p.s.decideEqual(x.Left, x.Right); ok {
			if eq {
				return kast.Top{}
			}
			return kast.Bottom{}
		}
	}
	switch {
	case p.known(c):
		return kast.Top{}
	case p.refuted(c):
		return kast.Bottom{}
	}
	return c
}

// knownValues collects the variables that the assumptions fix to a value.
func (s *Simplifier) knownValues(assumptions []kast.Condition) kast.Subst {
	values := kast.Subst{}
	for _, a := range assumptions {
		eq, ok := a.(kast.Equals)
		if !ok {
			continue
		}
		if v, ok := eq.Left.(kast.Var); ok && s.isValue(eq.Right) {
			values[v.Name] = eq.Right
		} else if v, ok := eq.Right.(kast.Var); ok && s.isValue(eq.Left) {
			values[v.Name] = eq.Left
		}
	}
	return values
}

func flatten(cs []kast.Condition) []kast.Condition {
	var out []kast.Condition
	for _, c := range cs {
		if c == nil {
			continue
		}
		out = append(out, kast.Conjuncts(c)...)
	}
	return out
}
