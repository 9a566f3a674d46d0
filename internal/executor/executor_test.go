package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/kprove/internal/decide"
	"github.com/gnoswap-labs/kprove/internal/kast"
	"github.com/gnoswap-labs/kprove/internal/kast/notation"
	"github.com/gnoswap-labs/kprove/internal/simplifier"
)

var sig = kast.Signature{
	"pred1": {Args: []kast.Sort{kast.SortInt}, Sort: kast.SortBool, Function: true},
}

func term(t *testing.T, s string) kast.Term {
	t.Helper()
	out, err := notation.ParseTerm(s)
	require.NoError(t, err)
	return out
}

func cond(t *testing.T, s string) kast.Condition {
	t.Helper()
	out, err := notation.ParseCondition(s)
	require.NoError(t, err)
	return out
}

func rule(t *testing.T, label, body, requires string, atts ...kast.Att) kast.Rule {
	t.Helper()
	return kast.RuleFromBody(label, term(t, body), cond(t, requires), nil, atts)
}

func claim(t *testing.T, body, requires string) kast.Claim {
	t.Helper()
	return kast.ClaimFromBody("c", term(t, body), cond(t, requires), nil)
}

type counter struct {
	mu        sync.Mutex
	steps     int
	pruned    int
	terminals map[Status]int
}

func (c *counter) StepTaken(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps++
}

func (c *counter) BranchPruned() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruned++
}

func (c *counter) TerminalReached(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminals == nil {
		c.terminals = make(map[Status]int)
	}
	c.terminals[s]++
}

func newExecutor(rules, lemmas []kast.Rule, opts Options) *Executor {
	opts.Signature = sig
	if opts.Decider == nil {
		opts.Decider = decide.NewGini(time.Second)
	}
	simp := simplifier.New(lemmas, simplifier.Options{Signature: sig, Decider: opts.Decider})
	return New(rules, simp, opts)
}

func execute(t *testing.T, ex *Executor, c kast.Claim) *Run {
	t.Helper()
	run, err := ex.Run(context.Background(), c.LHS, kast.Conjuncts(c.Requires), GoalFromClaim(c))
	require.NoError(t, err)
	return run
}

func statuses(run *Run) []Status {
	var out []Status
	for _, term := range run.Terminals {
		out = append(out, term.Status)
	}
	return out
}

func TestRun_ImmediateGoal(t *testing.T) {
	t.Parallel()
	ex := newExecutor(nil, nil, Options{MaxDepth: 10})
	run := execute(t, ex, claim(t, "<k> a => a </k>", ""))

	require.Equal(t, []Status{Proved}, statuses(run))
	assert.True(t, kast.IsTop(run.Terminals[0].Residual()))
	assert.Equal(t, 0, run.Steps)
}

func TestRun_LinearChain(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{
		rule(t, "ab", "<k> a => b ... </k>", ""),
		rule(t, "bc", "<k> b => c ... </k>", ""),
	}
	ex := newExecutor(rules, nil, Options{MaxDepth: 10})
	run := execute(t, ex, claim(t, "<k> a => c </k>", ""))

	require.Equal(t, []Status{Proved}, statuses(run))
	assert.Equal(t, 2, run.Steps)

	path := run.Path(run.Terminals[0].State.ID)
	require.Len(t, path, 3)
	assert.Equal(t, []string{"", "ab", "bc"}, []string{path[0].Rule, path[1].Rule, path[2].Rule})
	assert.Equal(t, -1, path[0].Parent)
}

func TestRun_DepthBound(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{rule(t, "ab", "<k> a => b ... </k>", "")}

	run := execute(t, newExecutor(rules, nil, Options{MaxDepth: 0}), claim(t, "<k> a => b </k>", ""))
	require.Equal(t, []Status{Bounded}, statuses(run))
	assert.Equal(t, "<k> a </k>", run.Terminals[0].State.Term.String())

	loop := []kast.Rule{rule(t, "loop", "<k> a => a ... </k>", "")}
	run = execute(t, newExecutor(loop, nil, Options{MaxDepth: 5}), claim(t, "<k> a => b </k>", ""))
	require.Equal(t, []Status{Bounded}, statuses(run))
	assert.Equal(t, 5, run.Terminals[0].State.Depth)
}

func TestRun_StuckWithoutRules(t *testing.T) {
	t.Parallel()
	c := claim(t, "<k> a => b </k>", "")
	run := execute(t, newExecutor(nil, nil, Options{MaxDepth: 10}), c)

	require.Equal(t, []Status{Stuck}, statuses(run))
	assert.True(t, c.LHS.Equal(run.Terminals[0].State.Term))
	assert.True(t, kast.Pattern{Term: c.LHS}.Equal(run.Terminals[0].Residual()))
}

const (
	scenarioRule  = "<k> foo => bar ... </k> <state> 3 |-> N ... </state>"
	scenarioClaim = "<k> foo => bar ... </k> <state> 3 |-> 3 </state>"
)

func TestRun_UndischargedRequiresLeavesRemainder(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{rule(t, "step", scenarioRule, "pred1(N)")}
	run := execute(t, newExecutor(rules, nil, Options{MaxDepth: 10}), claim(t, scenarioClaim, "pred1(4)"))

	require.ElementsMatch(t, []Status{Proved, Stuck}, statuses(run))
	for _, term := range run.Terminals {
		if term.Status != Stuck {
			continue
		}
		assert.Contains(t, term.State.Constraints, kast.MlNot(kast.Pred{Term: kast.NewApp("pred1", kast.Int(3))}))
		assert.Contains(t, term.State.Term.String(), "foo")
	}
}

func TestRun_LemmaDischargesRequires(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{rule(t, "step", scenarioRule, "pred1(N)")}
	lemmas := []kast.Rule{rule(t, "lemma", "pred1(3) => true", "pred1(4)", kast.Simplification{Priority: 50})}
	run := execute(t, newExecutor(rules, lemmas, Options{MaxDepth: 10}), claim(t, scenarioClaim, "pred1(4)"))

	assert.Equal(t, []Status{Proved}, statuses(run))
}

func TestRun_PriorityGroups(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{
		rule(t, "pos", "<k> f(X) => pos ... </k>", "X >Int 0"),
		rule(t, "other", "<k> f(X) => other ... </k>", "", kast.Owise{}),
	}
	ex := newExecutor(rules, nil, Options{MaxDepth: 10})

	run := execute(t, ex, claim(t, "<k> f(5) => pos </k>", ""))
	assert.Equal(t, []Status{Proved}, statuses(run))
	assert.Equal(t, []Attempt{{Rule: "pos", Applied: true}}, run.Attempts(0))

	run = execute(t, ex, claim(t, "<k> f(-5) => other </k>", ""))
	assert.Equal(t, []Status{Proved}, statuses(run))
	assert.Equal(t, []Attempt{{Rule: "pos"}, {Rule: "other", Applied: true}}, run.Attempts(0))
}

func TestRun_OwiseSplitsSymbolicBranch(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{
		rule(t, "pos", "<k> f(X) => done ... </k>", "X >Int 0"),
		rule(t, "other", "<k> f(X) => done ... </k>", "", kast.Owise{}),
	}
	ex := newExecutor(rules, nil, Options{MaxDepth: 10})

	run := execute(t, ex, claim(t, "<k> f(Y) => done </k>", ""))
	require.Len(t, run.Terminals, 2)
	assert.Equal(t, []Status{Proved, Proved}, statuses(run))
	var constraints, applied []string
	for _, term := range run.Terminals {
		assert.Equal(t, "<k> done </k>", term.State.Term.String())
		constraints = append(constraints, term.State.PathCondition().String())
		applied = append(applied, term.State.Rule)
	}
	assert.ElementsMatch(t, []string{"pos", "other"}, applied)
	assert.Contains(t, constraints, "{ true #Equals Y >Int 0 }")
	assert.Contains(t, constraints, "#Not ( { true #Equals Y >Int 0 } )")
	assert.Equal(t, []Attempt{{Rule: "pos", Applied: true}, {Rule: "other", Applied: true}}, run.Attempts(0))
}

func TestRun_PrunesInfeasibleBranches(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{
		rule(t, "one", "<k> f(X) => one ... </k>", "X ==Int 1"),
		rule(t, "two", "<k> f(X) => two ... </k>", "X ==Int 2"),
	}
	obs := &counter{}
	ex := newExecutor(rules, nil, Options{MaxDepth: 10, Observer: obs})

	run := execute(t, ex, claim(t, "<k> f(Y) => one </k>", "Y ==Int 1"))
	assert.Equal(t, []Status{Proved}, statuses(run))
	assert.Equal(t, 1, obs.terminals[Proved])
}

func TestRun_PrunedStateNeverProves(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{rule(t, "two", "<k> f(X) => two ... </k>", "")}
	ex := newExecutor(rules, nil, Options{MaxDepth: 10})

	// The configuration reached by continuing an infeasible branch already
	// matches the target, yet it is dropped without a terminal.
	goal := claim(t, "<k> two => two </k>", "")
	infeasible := kast.Conjuncts(cond(t, "Y ==Int 1 andBool Y ==Int 2"))
	run, err := ex.Run(context.Background(), term(t, "<k> two </k>"), infeasible, GoalFromClaim(goal))
	require.NoError(t, err)
	assert.Empty(t, run.Terminals)
	assert.Equal(t, 1, run.Pruned)

	run, err = ex.Run(context.Background(), term(t, "<k> f(Y) </k>"), infeasible, GoalFromClaim(goal))
	require.NoError(t, err)
	assert.NotContains(t, statuses(run), Proved)
}

func TestRun_InfeasibleInitialState(t *testing.T) {
	t.Parallel()
	ex := newExecutor(nil, nil, Options{MaxDepth: 10})
	run := execute(t, ex, claim(t, "<k> a => b </k>", "X ==Int 1 andBool X ==Int 2"))

	assert.Empty(t, run.Terminals)
	assert.Equal(t, 1, run.Pruned)
}

func TestRun_ExistentialsAreRenamed(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{rule(t, "gen", "<k> gen => val(?V) ... </k>", "")}
	ex := newExecutor(rules, nil, Options{MaxDepth: 10})
	run := execute(t, ex, claim(t, "<k> gen => val(?W) </k>", ""))

	require.Equal(t, []Status{Proved}, statuses(run))
	assert.Equal(t, "<k> val(?V_1) </k>", run.Terminals[0].State.Term.String())
}

func TestRun_DeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()
	rules := []kast.Rule{
		rule(t, "l", "<k> n(X) => n(X +Int 1) ... </k>", "X <Int 3"),
		rule(t, "r", "<k> n(X) => m(X) ... </k>", ""),
	}
	c := claim(t, "<k> n(0) => done </k>", "")

	var want []string
	for _, workers := range []int{1, 2, 8} {
		run := execute(t, newExecutor(rules, nil, Options{MaxDepth: 10, Workers: workers}), c)
		var got []string
		for _, term := range run.Terminals {
			got = append(got, term.Status.String()+" "+term.State.String())
		}
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "workers=%d", workers)
	}
	assert.NotEmpty(t, want)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := claim(t, "<k> a => b </k>", "")
	ex := newExecutor([]kast.Rule{rule(t, "loop", "<k> a => a ... </k>", "")}, nil, Options{MaxDepth: Unbounded})
	run, err := ex.Run(ctx, c.LHS, nil, GoalFromClaim(c))
	require.NoError(t, err)

	assert.True(t, run.Incomplete)
	require.Equal(t, []Status{Bounded}, statuses(run))
	assert.Contains(t, run.Terminals[0].Diagnostics, kast.DiagCancelled)
}

func TestStatus_MarshalText(t *testing.T) {
	t.Parallel()
	b, err := Stuck.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "stuck", string(b))

	_, err = Status(42).MarshalText()
	assert.Error(t, err)
}

type fixedDecider decide.Result

func (d fixedDecider) Check(context.Context, kast.Condition) decide.Result {
	return decide.Result(d)
}

func ensuresClaim(t *testing.T) kast.Claim {
	t.Helper()
	return kast.ClaimFromBody("c", term(t, "<k> a => a </k>"), nil, cond(t, "pred1(5)"))
}

func TestRun_DecisionTimeoutIsBounded(t *testing.T) {
	t.Parallel()
	ex := newExecutor(nil, nil, Options{MaxDepth: 10, Decider: fixedDecider(decide.Timeout)})
	run := execute(t, ex, ensuresClaim(t))

	require.Equal(t, []Status{Bounded}, statuses(run))
	assert.Equal(t, []kast.Diagnostic{kast.DiagDecisionTimeout}, run.Terminals[0].Diagnostics)
	assert.Empty(t, run.Terminals[0].State.Diagnostics)
}

func TestRun_UndecidedGoalKeepsStepping(t *testing.T) {
	t.Parallel()
	deciders := map[string]decide.Decider{
		"none":    decide.None{},
		"unknown": fixedDecider(decide.Unknown),
		"gini":    decide.NewGini(time.Second),
	}
	for name, d := range deciders {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			run := execute(t, newExecutor(nil, nil, Options{MaxDepth: 10, Decider: d}), ensuresClaim(t))
			require.Equal(t, []Status{Stuck}, statuses(run))
			assert.Empty(t, run.Terminals[0].Diagnostics)
		})
	}
}

func TestRun_SimplificationBoundOnTerminal(t *testing.T) {
	t.Parallel()
	lemmas := []kast.Rule{
		rule(t, "gh", "g => h", "", kast.Simplification{Priority: 50}),
		rule(t, "hg", "h => g", "", kast.Simplification{Priority: 50}),
	}
	ex := newExecutor(nil, lemmas, Options{MaxDepth: 10})
	run := execute(t, ex, claim(t, "<k> g => done </k>", ""))

	require.Equal(t, []Status{Stuck}, statuses(run))
	assert.Contains(t, run.Terminals[0].Diagnostics, kast.DiagSimplificationBound)
}
