// Package decide answers satisfiability questions about path conditions.
//
// A condition is abstracted to its propositional skeleton: every equality,
// predicate or pattern becomes an atom, connectives become gates. A small
// amount of theory is added back as clauses (a term equal to two distinct
// values is impossible). The abstraction is sound for refutation: Unsat
// means the condition is unsatisfiable, Sat only means the skeleton is.
package decide

import (
	"context"

	"github.com/gnoswap-labs/kprove/internal/kast"
)

// Result is the answer of a satisfiability check.
type Result int

const (
	// Unknown means the decider cannot answer the question.
	Unknown Result = iota
	// Sat means the condition may hold.
	Sat
	// Unsat means the condition never holds.
	Unsat
	// Timeout means the decider ran out of time before answering.
	Timeout
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "Sat"
	case Unsat:
		return "Unsat"
	case Unknown:
		return "Unknown"
	case Timeout:
		return "Timeout"
	default:
		return "?"
	}
}

// Decider checks satisfiability of conditions. Implementations must be
// safe for concurrent use.
type Decider interface {
	Check(ctx context.Context, c kast.Condition) Result
}

// Validity checks the negation of c: Unsat means c holds in every model,
// Sat that it does not. Unknown and Timeout leave the question open.
func Validity(ctx context.Context, d Decider, c kast.Condition) Result {
	switch {
	case kast.IsTop(c):
		return Unsat
	case kast.IsBottom(c):
		return Sat
	}
	return d.Check(ctx, kast.MlNot(c))
}

// Valid reports whether c holds in every model. decided is false when the
// decider could not answer; valid is then false as well.
func Valid(ctx context.Context, d Decider, c kast.Condition) (valid, decided bool) {
	switch Validity(ctx, d, c) {
	case Unsat:
		return true, true
	case Sat:
		return false, true
	}
	return false, false
}

// Entailment is Validity of assumptions implying c.
func Entailment(ctx context.Context, d Decider, assumptions []kast.Condition, c kast.Condition) Result {
	return Validity(ctx, d, kast.MlImplies(kast.MlAnd(assumptions...), c))
}

// Entails reports whether the assumptions imply c.
func Entails(ctx context.Context, d Decider, assumptions []kast.Condition, c kast.Condition) (entailed, decided bool) {
	return Valid(ctx, d, kast.MlImplies(kast.MlAnd(assumptions...), c))
}

// None never decides anything beyond the syntactic constants.
type None struct{}

func (None) Check(_ context.Context, c kast.Condition) Result {
	switch {
	case kast.IsTop(c):
		return Sat
	case kast.IsBottom(c):
		return Unsat
	}
	return Unknown
}
