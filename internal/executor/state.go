package executor

import (
	"fmt"
	"strings"

	"github.com/gnoswap-labs/kprove/internal/kast"
)

// Status classifies how a branch ended.
type Status int

const (
	// Proved: the state matches the target and the obligation holds.
	Proved Status = iota
	// Stuck: no rule applies and the target is not reached.
	Stuck
	// Bounded: exploration stopped at the depth bound, on a decision
	// timeout, or on cancellation.
	Bounded
)

func (s Status) String() string {
	switch s {
	case Proved:
		return "Proved"
	case Stuck:
		return "Stuck"
	case Bounded:
		return "Bounded"
	default:
		return "?"
	}
}

// MarshalText renders the status by name in JSON and YAML output.
func (s Status) MarshalText() ([]byte, error) {
	if s < Proved || s > Bounded {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(strings.ToLower(s.String())), nil
}

// State is a symbolic configuration on one branch of the execution.
// States live in the arena of a Run and are never modified once added;
// diagnostics raised when a branch ends go on its Terminal.
type State struct {
	ID          int
	Parent      int // -1 for the initial state
	Term        kast.Term
	Constraints []kast.Condition
	Depth       int
	Rule        string // label of the rule that produced the state
	Diagnostics []kast.Diagnostic
}

// PathCondition conjoins the constraints of the state.
func (s *State) PathCondition() kast.Condition {
	return kast.MlAnd(s.Constraints...)
}

func (s *State) String() string {
	pc := s.PathCondition()
	if kast.IsTop(pc) {
		return s.Term.String()
	}
	return s.Term.String() + " #And " + pc.String()
}

// Terminal is a leaf of the execution tree. Diagnostics holds those of
// the state plus the ones raised when the branch ended.
type Terminal struct {
	State       *State
	Status      Status
	Diagnostics []kast.Diagnostic
}

// Residual is the formula left unproved by the branch: #Top when the
// branch is proved, otherwise its configuration and path condition.
func (t Terminal) Residual() kast.Condition {
	if t.Status == Proved {
		return kast.Top{}
	}
	return kast.MlAnd(kast.Pattern{Term: t.State.Term}, t.State.PathCondition())
}

// Attempt records a rule whose left-hand side matched a state. Applied
// is false when every match was refuted by the rule's side condition.
type Attempt struct {
	Rule    string
	Applied bool
}

// Run is the outcome of one execution.
type Run struct {
	States     []*State
	Terminals  []Terminal
	Steps      int
	Pruned     int
	Incomplete bool

	attempts map[int][]Attempt
}

// Attempts returns the rules tried on the state with id, in the order
// they were tried.
func (r *Run) Attempts(id int) []Attempt {
	return r.attempts[id]
}

// Path returns the states from the initial state to the state with id.
func (r *Run) Path(id int) []*State {
	var path []*State
	for id >= 0 && id < len(r.States) {
		path = append(path, r.States[id])
		id = r.States[id].Parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
