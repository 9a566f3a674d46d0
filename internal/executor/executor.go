// Package executor explores the symbolic executions of a configuration
// under a rewrite system until every branch reaches a goal, gets stuck,
// or hits the depth bound.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoswap-labs/kprove/internal/decide"
	"github.com/gnoswap-labs/kprove/internal/kast"
	"github.com/gnoswap-labs/kprove/internal/matcher"
	"github.com/gnoswap-labs/kprove/internal/simplifier"
)

// Unbounded disables the depth bound.
const Unbounded = -1

// TargetFrame completes a target cell fragment so that it matches
// configurations with more cells than it mentions.
var TargetFrame = kast.Var{Name: "_TargetFrame", Sort: kast.SortCells}

// Observer receives execution events, e.g. to export metrics.
type Observer interface {
	StepTaken(rule string)
	BranchPruned()
	TerminalReached(status Status)
}

// Options configures an Executor.
type Options struct {
	// MaxDepth is the number of rewrite steps after which a branch is
	// reported Bounded. Unbounded disables the bound.
	MaxDepth int
	// Workers bounds the states expanded in parallel; zero uses all CPUs.
	Workers   int
	Signature kast.Signature
	Decider   decide.Decider
	Logger    *zap.Logger
	Observer  Observer
}

// Goal is the target of a claim.
type Goal struct {
	Target  kast.Term
	Ensures kast.Condition
	// Rigid binds the claim's source variables to themselves so the
	// target cannot instantiate them.
	Rigid kast.Subst
}

// GoalFromClaim builds the goal of a claim. A target cell fragment is
// opened with TargetFrame.
func GoalFromClaim(c kast.Claim) Goal {
	target := c.RHS
	if cells, ok := target.(kast.Cells); ok && cells.Frame == nil {
		target = kast.NewCells(cells.Items, TargetFrame)
	}
	rigid := kast.Subst{}
	for name, v := range kast.FreeVars(c.LHS) {
		rigid[name] = v
	}
	ensures := c.Ensures
	if ensures == nil {
		ensures = kast.Top{}
	}
	return Goal{Target: target, Ensures: ensures, Rigid: rigid}
}

// Executor is immutable and safe for concurrent use.
type Executor struct {
	groups  [][]kast.Rule
	simp    *simplifier.Simplifier
	matcher *matcher.Matcher
	opts    Options
}

// New returns an executor stepping with rules and simplifying with simp.
func New(rules []kast.Rule, simp *simplifier.Simplifier, opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	ordered := append([]kast.Rule(nil), rules...)
	kast.SortByPriority(ordered)
	return &Executor{
		groups:  kast.PriorityGroups(ordered),
		simp:    simp,
		matcher: matcher.New(opts.Signature),
		opts:    opts,
	}
}

// outcome is what expanding one frontier state produced.
type outcome struct {
	status    *Status
	diags     []kast.Diagnostic
	children  []*State
	remainder *State
	attempts  []Attempt
	steps     int
	pruned    int
}

// Run explores every branch from term under the constraints. Each level of
// the frontier is expanded in parallel; results are merged in frontier
// order so ids and terminal order do not depend on scheduling.
func (e *Executor) Run(ctx context.Context, term kast.Term, constraints []kast.Condition, goal Goal) (*Run, error) {
	if term == nil {
		return nil, fmt.Errorf("executor: nil initial term")
	}
	run := &Run{attempts: make(map[int][]Attempt)}
	pc, feasible := e.simp.Feasible(ctx, constraints)
	if !feasible {
		run.Pruned++
		e.observePruned()
		return run, nil
	}
	root := &State{ID: 0, Parent: -1, Term: term, Constraints: kast.Conjuncts(pc)}
	root.Term, root.Diagnostics = e.simp.Term(ctx, term, root.Constraints)
	run.States = append(run.States, root)

	frontier := []*State{root}
	for len(frontier) > 0 {
		if ctx.Err() != nil {
			e.cancel(run, frontier)
			break
		}
		outcomes := make([]outcome, len(frontier))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Workers)
		for i, st := range frontier {
			g.Go(func() error {
				outcomes[i] = e.expand(gctx, st, goal)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			e.cancel(run, frontier)
			break
		}

		var next []*State
		for i, o := range outcomes {
			parent := frontier[i]
			run.Steps += o.steps
			run.Pruned += o.pruned
			if len(o.attempts) > 0 {
				run.attempts[parent.ID] = o.attempts
			}
			if o.status != nil {
				e.terminate(run, parent, *o.status, o.diags)
			}
			for _, child := range o.children {
				e.add(run, parent, child)
				next = append(next, child)
			}
			if o.remainder != nil {
				e.add(run, parent, o.remainder)
				run.attempts[o.remainder.ID] = o.attempts
				e.terminate(run, o.remainder, Stuck, nil)
			}
		}
		frontier = next
	}
	if e.opts.Logger != nil {
		e.opts.Logger.Debug("execution finished",
			zap.Int("states", len(run.States)),
			zap.Int("terminals", len(run.Terminals)),
			zap.Int("steps", run.Steps),
			zap.Int("pruned", run.Pruned),
			zap.Bool("incomplete", run.Incomplete))
	}
	return run, nil
}

func (e *Executor) add(run *Run, parent, child *State) {
	child.ID = len(run.States)
	child.Parent = parent.ID
	run.States = append(run.States, child)
}

func (e *Executor) terminate(run *Run, st *State, status Status, diags []kast.Diagnostic) {
	run.Terminals = append(run.Terminals, Terminal{
		State:       st,
		Status:      status,
		Diagnostics: kast.AddDiagnostics(append([]kast.Diagnostic(nil), st.Diagnostics...), diags...),
	})
	if e.opts.Observer != nil {
		e.opts.Observer.TerminalReached(status)
	}
	if e.opts.Logger != nil {
		e.opts.Logger.Debug("terminal state",
			zap.Int("state", st.ID),
			zap.Stringer("status", status),
			zap.Int("depth", st.Depth))
	}
}

// cancel reports every outstanding state as Bounded.
func (e *Executor) cancel(run *Run, frontier []*State) {
	run.Incomplete = true
	for _, st := range frontier {
		e.terminate(run, st, Bounded, []kast.Diagnostic{kast.DiagCancelled})
	}
}

func (e *Executor) expand(ctx context.Context, st *State, goal Goal) outcome {
	var o outcome
	if ctx.Err() != nil {
		return e.stop(o, Bounded, kast.DiagCancelled)
	}

	proved, timedOut, diags := e.checkGoal(ctx, st, goal)
	o.diags = diags
	switch {
	case proved:
		return e.stop(o, Proved)
	case timedOut:
		return e.stop(o, Bounded, kast.DiagDecisionTimeout)
	case e.opts.MaxDepth >= 0 && st.Depth >= e.opts.MaxDepth:
		return e.stop(o, Bounded)
	}

	remainder := st.Constraints
	applied := false
	for _, group := range e.groups {
		var conds []kast.Condition
		unconditional := false
		for _, rule := range group {
			matches := e.matcher.Match(rule.LHS, st.Term)
			if len(matches) == 0 {
				continue
			}
			o.attempts = append(o.attempts, Attempt{Rule: rule.Label})
			for _, m := range matches {
				stepCond := kast.MlAnd(m.Condition(), m.Subst.ApplyCondition(rule.Requires))
				cond, d := e.simp.Condition(ctx, stepCond, remainder)
				o.diags = kast.AddDiagnostics(o.diags, d...)
				if kast.IsBottom(cond) {
					continue
				}
				applied = true
				o.attempts[len(o.attempts)-1].Applied = true
				o.steps++
				if e.opts.Observer != nil {
					e.opts.Observer.StepTaken(rule.Label)
				}
				if child := e.child(ctx, st, rule, m, cond, remainder); child != nil {
					o.children = append(o.children, child)
				} else {
					o.pruned++
					e.observePruned()
				}
				if kast.IsTop(cond) {
					unconditional = true
				} else {
					conds = append(conds, cond)
				}
			}
		}
		if unconditional {
			return o
		}
		if len(conds) == 0 {
			continue
		}
		rest, feasible := e.simp.Feasible(ctx, append(append([]kast.Condition(nil), remainder...), kast.MlNot(kast.MlOr(conds...))))
		if !feasible {
			return o
		}
		remainder = kast.Conjuncts(rest)
	}
	if !applied {
		return e.stop(o, Stuck)
	}
	o.remainder = &State{
		Term:        st.Term,
		Constraints: remainder,
		Depth:       st.Depth,
		Diagnostics: kast.AddDiagnostics(append([]kast.Diagnostic(nil), st.Diagnostics...), o.diags...),
	}
	return o
}

func (e *Executor) stop(o outcome, status Status, diags ...kast.Diagnostic) outcome {
	o.status = &status
	o.diags = kast.AddDiagnostics(o.diags, diags...)
	return o
}

// checkGoal matches the target with the claim variables held rigid and
// tries to discharge residuals and ensures under the path condition.
func (e *Executor) checkGoal(ctx context.Context, st *State, goal Goal) (proved, timedOut bool, diags []kast.Diagnostic) {
	for _, m := range e.matcher.MatchWith(goal.Target, st.Term, goal.Rigid) {
		obligation := kast.MlAnd(m.Condition(), m.Subst.ApplyCondition(goal.Ensures))
		simplified, d := e.simp.Condition(ctx, obligation, st.Constraints)
		diags = kast.AddDiagnostics(diags, d...)
		if kast.IsTop(simplified) {
			return true, false, diags
		}
		if kast.IsBottom(simplified) || e.opts.Decider == nil {
			continue
		}
		switch decide.Entailment(ctx, e.opts.Decider, st.Constraints, simplified) {
		case decide.Unsat:
			return true, false, diags
		case decide.Timeout:
			timedOut = true
		}
	}
	return false, timedOut, diags
}

// child builds the successor for one rule application, or nil when its
// path condition is infeasible.
func (e *Executor) child(ctx context.Context, st *State, rule kast.Rule, m matcher.Match, cond kast.Condition, base []kast.Condition) *State {
	fresh := freshExistentials(rule, m.Subst, st.Depth+1)
	inst := fresh.Apply(m.Subst.Apply(rule.RHS))
	ensures := fresh.ApplyCondition(m.Subst.ApplyCondition(rule.Ensures))

	added, diags := e.simp.Condition(ctx, kast.MlAnd(cond, ensures), base)
	pc, feasible := e.simp.Feasible(ctx, append(append([]kast.Condition(nil), base...), added))
	if !feasible {
		if e.opts.Logger != nil {
			e.opts.Logger.Debug("branch pruned", zap.Int("parent", st.ID), zap.String("rule", rule.Label))
		}
		return nil
	}
	constraints := kast.Conjuncts(pc)
	term, d := e.simp.Term(ctx, inst, constraints)
	diags = kast.AddDiagnostics(diags, d...)

	if e.opts.Logger != nil {
		e.opts.Logger.Debug("step",
			zap.Int("parent", st.ID),
			zap.String("rule", rule.Label),
			zap.Int("depth", st.Depth+1))
	}
	return &State{
		Term:        term,
		Constraints: constraints,
		Depth:       st.Depth + 1,
		Rule:        rule.Label,
		Diagnostics: kast.AddDiagnostics(append([]kast.Diagnostic(nil), st.Diagnostics...), diags...),
	}
}

// freshExistentials renames the ?-variables a rule introduces so they
// cannot clash with variables of earlier steps on the branch.
func freshExistentials(rule kast.Rule, bound kast.Subst, depth int) kast.Subst {
	fresh := kast.Subst{}
	for name, v := range kast.FreeVars(rule.RHS).Union(kast.ConditionFreeVars(rule.Ensures)) {
		if _, ok := bound[name]; ok || !strings.HasPrefix(name, "?") {
			continue
		}
		fresh[name] = kast.Var{Name: fmt.Sprintf("%s_%d", name, depth), Sort: v.Sort}
	}
	return fresh
}

func (e *Executor) observePruned() {
	if e.opts.Observer != nil {
		e.opts.Observer.BranchPruned()
	}
}
