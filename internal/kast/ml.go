package kast

import "strings"

// Condition is a matching-logic formula over terms: the path conditions,
// requires/ensures clauses and residual obligations of a proof.
type Condition interface {
	isCondition()
	String() string
	Equal(other Condition) bool
}

var (
	_ Condition = Top{}
	_ Condition = Bottom{}
	_ Condition = And{}
	_ Condition = Or{}
	_ Condition = Not{}
	_ Condition = Implies{}
	_ Condition = Equals{}
	_ Condition = Pred{}
	_ Condition = Pattern{}
)

type (
	Top    struct{}
	Bottom struct{}

	And struct{ Conds []Condition }
	Or  struct{ Conds []Condition }
	Not struct{ Cond Condition }

	Implies struct{ Left, Right Condition }

	// Equals asserts that two terms denote the same value.
	Equals struct{ Left, Right Term }

	// Pred asserts that a Bool term evaluates to true.
	Pred struct{ Term Term }

	// Pattern is a configuration used as a formula. It only appears in
	// residuals of unresolved branches.
	Pattern struct{ Term Term }
)

func (Top) isCondition()     {}
func (Bottom) isCondition()  {}
func (And) isCondition()     {}
func (Or) isCondition()      {}
func (Not) isCondition()     {}
func (Implies) isCondition() {}
func (Equals) isCondition()  {}
func (Pred) isCondition()    {}
func (Pattern) isCondition() {}

func (Top) String() string    { return "#Top" }
func (Bottom) String() string { return "#Bottom" }

func (a And) String() string { return joinConds(a.Conds, " #And ") }
func (o Or) String() string  { return joinConds(o.Conds, " #Or ") }
func (n Not) String() string { return "#Not ( " + n.Cond.String() + " )" }

func (i Implies) String() string {
	return "( " + i.Left.String() + " #Implies " + i.Right.String() + " )"
}

func (e Equals) String() string {
	return "{ " + e.Left.String() + " #Equals " + e.Right.String() + " }"
}

func (p Pred) String() string    { return "{ true #Equals " + p.Term.String() + " }" }
func (p Pattern) String() string { return p.Term.String() }

func joinConds(cs []Condition, sep string) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		switch c.(type) {
		case And, Or:
			parts[i] = "( " + c.String() + " )"
		default:
			parts[i] = c.String()
		}
	}
	return strings.Join(parts, sep)
}

func (Top) Equal(other Condition) bool {
	_, ok := other.(Top)
	return ok
}

func (Bottom) Equal(other Condition) bool {
	_, ok := other.(Bottom)
	return ok
}

func (a And) Equal(other Condition) bool {
	o, ok := other.(And)
	return ok && condsEqual(a.Conds, o.Conds)
}

func (a Or) Equal(other Condition) bool {
	o, ok := other.(Or)
	return ok && condsEqual(a.Conds, o.Conds)
}

func (n Not) Equal(other Condition) bool {
	o, ok := other.(Not)
	return ok && n.Cond.Equal(o.Cond)
}

func (i Implies) Equal(other Condition) bool {
	o, ok := other.(Implies)
	return ok && i.Left.Equal(o.Left) && i.Right.Equal(o.Right)
}

// Equality is symmetric: {a #Equals b} and {b #Equals a} are the same formula.
func (e Equals) Equal(other Condition) bool {
	o, ok := other.(Equals)
	if !ok {
		return false
	}
	return (e.Left.Equal(o.Left) && e.Right.Equal(o.Right)) ||
		(e.Left.Equal(o.Right) && e.Right.Equal(o.Left))
}

func (p Pred) Equal(other Condition) bool {
	o, ok := other.(Pred)
	return ok && p.Term.Equal(o.Term)
}

func (p Pattern) Equal(other Condition) bool {
	o, ok := other.(Pattern)
	return ok && p.Term.Equal(o.Term)
}

func condsEqual(a, b []Condition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// MlAnd conjoins conditions, flattening nested conjunctions and applying
// the identity and absorbing laws. The empty conjunction is Top.
func MlAnd(cs ...Condition) Condition {
	flat := make([]Condition, 0, len(cs))
	for _, c := range cs {
		if c == nil {
			continue
		}
		switch x := c.(type) {
		case Top:
			continue
		case Bottom:
			return Bottom{}
		case And:
			for _, inner := range x.Conds {
				flat = appendUnique(flat, inner)
			}
		default:
			flat = appendUnique(flat, c)
		}
	}
	if complementary(flat) {
		return Bottom{}
	}
	switch len(flat) {
	case 0:
		return Top{}
	case 1:
		return flat[0]
	}
	return And{Conds: flat}
}

// MlOr is the dual of MlAnd. The empty disjunction is Bottom.
func MlOr(cs ...Condition) Condition {
	flat := make([]Condition, 0, len(cs))
	for _, c := range cs {
		if c == nil {
			continue
		}
		switch x := c.(type) {
		case Bottom:
			continue
		case Top:
			return Top{}
		case Or:
			for _, inner := range x.Conds {
				flat = appendUnique(flat, inner)
			}
		default:
			flat = appendUnique(flat, c)
		}
	}
	if complementary(flat) {
		return Top{}
	}
	switch len(flat) {
	case 0:
		return Bottom{}
	case 1:
		return flat[0]
	}
	return Or{Conds: flat}
}

func appendUnique(cs []Condition, c Condition) []Condition {
	for _, x := range cs {
		if x.Equal(c) {
			return cs
		}
	}
	return append(cs, c)
}

// complementary reports whether cs holds some c together with #Not c.
func complementary(cs []Condition) bool {
	for _, c := range cs {
		n, ok := c.(Not)
		if !ok {
			continue
		}
		for _, d := range cs {
			if d.Equal(n.Cond) {
				return true
			}
		}
	}
	return false
}

// MlNot negates c, removing double negations.
func MlNot(c Condition) Condition {
	switch x := c.(type) {
	case Top:
		return Bottom{}
	case Bottom:
		return Top{}
	case Not:
		return x.Cond
	}
	return Not{Cond: c}
}

// MlImplies builds left -> right.
func MlImplies(left, right Condition) Condition {
	switch {
	case IsTop(left):
		return right
	case IsBottom(left), IsTop(right):
		return Top{}
	case IsBottom(right):
		return MlNot(left)
	case left.Equal(right):
		return Top{}
	}
	return Implies{Left: left, Right: right}
}

// MlEquals builds {left #Equals right}. Syntactically equal sides give Top,
// distinct domain values give Bottom, and equations against a Bool literal
// become predicates.
func MlEquals(left, right Term) Condition {
	if left.Equal(right) {
		return Top{}
	}
	_, lok := left.(Token)
	_, rok := right.(Token)
	if lok && rok {
		return Bottom{}
	}
	if b, ok := BoolValue(right); ok {
		return boolEquation(left, b)
	}
	if b, ok := BoolValue(left); ok {
		return boolEquation(right, b)
	}
	return Equals{Left: left, Right: right}
}

func boolEquation(t Term, b bool) Condition {
	if b {
		return BoolPred(t)
	}
	return MlNot(BoolPred(t))
}

// BoolPred converts a Bool term into the condition that it is true.
// Builtin connectives and equalities become the matching formulas.
func BoolPred(t Term) Condition {
	if b, ok := BoolValue(t); ok {
		if b {
			return Top{}
		}
		return Bottom{}
	}
	app, ok := t.(App)
	if !ok {
		return Pred{Term: t}
	}
	switch {
	case app.Label == LabelAndBool && len(app.Args) == 2:
		return MlAnd(BoolPred(app.Args[0]), BoolPred(app.Args[1]))
	case app.Label == LabelOrBool && len(app.Args) == 2:
		return MlOr(BoolPred(app.Args[0]), BoolPred(app.Args[1]))
	case app.Label == LabelNotBool && len(app.Args) == 1:
		return MlNot(BoolPred(app.Args[0]))
	case (app.Label == LabelEqK || app.Label == LabelEqInt) && len(app.Args) == 2:
		return MlEquals(app.Args[0], app.Args[1])
	case (app.Label == LabelNeK || app.Label == LabelNeInt) && len(app.Args) == 2:
		return MlNot(MlEquals(app.Args[0], app.Args[1]))
	}
	return Pred{Term: t}
}

// IsTop reports whether c is syntactically #Top.
func IsTop(c Condition) bool {
	_, ok := c.(Top)
	return ok
}

// IsBottom reports whether c is syntactically #Bottom.
func IsBottom(c Condition) bool {
	_, ok := c.(Bottom)
	return ok
}

// Conjuncts returns the top-level conjuncts of c. Top has none.
func Conjuncts(c Condition) []Condition {
	switch x := c.(type) {
	case Top:
		return nil
	case And:
		return x.Conds
	}
	return []Condition{c}
}

// Disjuncts returns the top-level disjuncts of c. Bottom has none.
func Disjuncts(c Condition) []Condition {
	switch x := c.(type) {
	case Bottom:
		return nil
	case Or:
		return x.Conds
	}
	return []Condition{c}
}

// MapTerms rebuilds c with f applied to each term, reapplying the eager
// laws so that the result is normalised again.
func MapTerms(c Condition, f func(Term) Term) Condition {
	switch x := c.(type) {
	case And:
		out := make([]Condition, len(x.Conds))
		for i, in := range x.Conds {
			out[i] = MapTerms(in, f)
		}
		return MlAnd(out...)
	case Or:
		out := make([]Condition, len(x.Conds))
		for i, in := range x.Conds {
			out[i] = MapTerms(in, f)
		}
		return MlOr(out...)
	case Not:
		return MlNot(MapTerms(x.Cond, f))
	case Implies:
		return MlImplies(MapTerms(x.Left, f), MapTerms(x.Right, f))
	case Equals:
		return MlEquals(f(x.Left), f(x.Right))
	case Pred:
		return BoolPred(f(x.Term))
	case Pattern:
		return Pattern{Term: f(x.Term)}
	}
	return c
}

// WalkConditionTerms calls visit on every term directly held by c.
func WalkConditionTerms(c Condition, visit func(Term)) {
	switch x := c.(type) {
	case And:
		for _, in := range x.Conds {
			WalkConditionTerms(in, visit)
		}
	case Or:
		for _, in := range x.Conds {
			WalkConditionTerms(in, visit)
		}
	case Not:
		WalkConditionTerms(x.Cond, visit)
	case Implies:
		WalkConditionTerms(x.Left, visit)
		WalkConditionTerms(x.Right, visit)
	case Equals:
		visit(x.Left)
		visit(x.Right)
	case Pred:
		visit(x.Term)
	case Pattern:
		visit(x.Term)
	}
}

// ConditionFreeVars collects the variables of every term in the conditions.
func ConditionFreeVars(cs ...Condition) VarSet {
	vars := make(VarSet)
	for _, c := range cs {
		if c == nil {
			continue
		}
		WalkConditionTerms(c, func(t Term) {
			vars.Union(FreeVars(t))
		})
	}
	return vars
}
