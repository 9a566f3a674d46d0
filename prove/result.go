package prove

import (
	"context"
	"time"

	"github.com/gnoswap-labs/kprove/internal/decide"
	"github.com/gnoswap-labs/kprove/internal/executor"
	"github.com/gnoswap-labs/kprove/internal/kast"
	"github.com/gnoswap-labs/kprove/internal/simplifier"
)

// Result is the outcome of one proof attempt.
type Result struct {
	Claim     kast.Claim
	RunID     string
	Terminals []executor.Terminal
	// Incomplete is set when the run was cancelled before every branch
	// terminated.
	Incomplete bool
	Steps      int
	Pruned     int
	Elapsed    time.Duration

	run *executor.Run
}

// Proved reports whether every branch reached the target.
func (r *Result) Proved() bool {
	if r.Incomplete {
		return false
	}
	for _, t := range r.Terminals {
		if t.Status != executor.Proved {
			return false
		}
	}
	return true
}

// Count returns the number of terminals with the given status.
func (r *Result) Count(status executor.Status) int {
	n := 0
	for _, t := range r.Terminals {
		if t.Status == status {
			n++
		}
	}
	return n
}

// Path returns the states leading to the terminal's state, initial state
// first.
func (r *Result) Path(t executor.Terminal) []*executor.State {
	if r.run == nil || t.State == nil {
		return nil
	}
	return r.run.Path(t.State.ID)
}

// Attempts returns the rules tried on the state with id.
func (r *Result) Attempts(id int) []executor.Attempt {
	if r.run == nil {
		return nil
	}
	return r.run.Attempts(id)
}

// Formulas returns one formula per unresolved branch, or [#Top] when every
// branch reached the target. A run whose branches were all pruned is
// vacuously proved.
func (r *Result) Formulas() []kast.Condition {
	if r.Proved() {
		return []kast.Condition{kast.Top{}}
	}
	var out []kast.Condition
	for _, t := range r.Terminals {
		if t.Status != executor.Proved {
			out = append(out, t.Residual())
		}
	}
	return out
}

// MlOr is the disjunction of conds. The empty disjunction is #Bottom.
func MlOr(conds []kast.Condition) kast.Condition {
	return kast.MlOr(conds...)
}

// IsTop reports whether c is #Top. The weak check is syntactic. The strict
// check also simplifies c with the builtins and asks the decision procedure
// whether it is valid; an undecided query answers false.
func IsTop(c kast.Condition, weak bool) bool {
	if kast.IsTop(c) {
		return true
	}
	if weak {
		return false
	}
	return isValid(context.Background(), c, decide.DefaultTimeout)
}

func isValid(ctx context.Context, c kast.Condition, timeout time.Duration) bool {
	d := decide.NewGini(timeout)
	simplified, _ := simplifier.New(nil, simplifier.Options{Decider: d}).Condition(ctx, c, nil)
	if kast.IsTop(simplified) {
		return true
	}
	valid, decided := decide.Valid(ctx, d, simplified)
	return decided && valid
}
