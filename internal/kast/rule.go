package kast

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformed is returned for rules, claims or lemmas that violate the
// well-formedness conditions. Use errors.As to get the *MalformedError.
var ErrMalformed = errors.New("malformed input")

// MalformedError describes why a rule, claim or lemma was rejected.
type MalformedError struct {
	Subject string
	Reason  string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s: %s", e.Subject, e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(subject, format string, args ...any) error {
	return &MalformedError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// CellsFrame is the frame variable added by CompleteCells.
var CellsFrame = Var{Name: "_Cells", Sort: SortCells}

// Rule is a rewrite rule LHS => RHS requires Requires ensures Ensures.
// A rule carrying the Simplification attribute is a lemma.
type Rule struct {
	Label    string
	LHS      Term
	RHS      Term
	Requires Condition
	Ensures  Condition
	Atts     Atts
}

// IsLemma reports whether the rule is a simplification lemma.
func (r Rule) IsLemma() bool { return r.Atts.IsSimplification() }

// Priority returns the effective priority of the rule.
func (r Rule) Priority() int { return r.Atts.Priority() }

func (r Rule) String() string {
	var sb strings.Builder
	if r.Label != "" {
		sb.WriteString("[" + r.Label + "]: ")
	}
	sb.WriteString(r.LHS.String() + " => " + r.RHS.String())
	if !IsTop(r.Requires) {
		sb.WriteString(" requires " + r.Requires.String())
	}
	if !IsTop(r.Ensures) {
		sb.WriteString(" ensures " + r.Ensures.String())
	}
	if len(r.Atts) > 0 {
		sb.WriteString(" " + r.Atts.String())
	}
	return sb.String()
}

// Claim is a reachability claim: every execution from LHS under Requires
// reaches RHS with Ensures.
type Claim struct {
	Label    string
	LHS      Term
	RHS      Term
	Requires Condition
	Ensures  Condition
}

func (c Claim) String() string {
	s := "claim "
	if c.Label != "" {
		s += "[" + c.Label + "]: "
	}
	s += c.LHS.String() + " => " + c.RHS.String()
	if !IsTop(c.Requires) {
		s += " requires " + c.Requires.String()
	}
	if !IsTop(c.Ensures) {
		s += " ensures " + c.Ensures.String()
	}
	return s
}

// RuleFromBody builds a rule from a body with nested rewrites. Ordinary
// rules over cells get their configuration completed.
func RuleFromBody(label string, body Term, requires, ensures Condition, atts Atts) Rule {
	lhs, rhs := SplitRewrite(body)
	r := Rule{
		Label:    label,
		LHS:      lhs,
		RHS:      rhs,
		Requires: orTop(requires),
		Ensures:  orTop(ensures),
		Atts:     atts,
	}
	if !r.IsLemma() {
		r.LHS, r.RHS = CompleteCells(r.LHS, r.RHS)
	}
	return r
}

// ClaimFromBody builds a claim from a body with nested rewrites.
func ClaimFromBody(label string, body Term, requires, ensures Condition) Claim {
	lhs, rhs := SplitRewrite(body)
	return Claim{
		Label:    label,
		LHS:      asCells(lhs),
		RHS:      asCells(rhs),
		Requires: orTop(requires),
		Ensures:  orTop(ensures),
	}
}

// CompleteCells turns a cell or cell fragment without frame into a fragment
// whose frame is shared by both sides, so cells the rule does not mention
// are carried over unchanged.
func CompleteCells(lhs, rhs Term) (Term, Term) {
	lc, ok := asCells(lhs).(Cells)
	if !ok || lc.Frame != nil {
		return lhs, rhs
	}
	rc, ok := asCells(rhs).(Cells)
	if !ok || rc.Frame != nil {
		return lhs, rhs
	}
	return NewCells(lc.Items, CellsFrame), NewCells(rc.Items, CellsFrame)
}

func asCells(t Term) Term {
	if a, ok := t.(App); ok && a.IsCell() {
		return NewCells([]Term{a}, nil)
	}
	return t
}

func orTop(c Condition) Condition {
	if c == nil {
		return Top{}
	}
	return c
}

// ValidateRule checks the well-formedness of a rule or lemma.
func ValidateRule(sig Signature, r Rule) error {
	subject := "rule"
	if r.IsLemma() {
		subject = "lemma"
	}
	if r.Label != "" {
		subject += " " + r.Label
	}
	if r.LHS == nil || r.RHS == nil {
		return malformed(subject, "missing left or right-hand side")
	}
	if ContainsRewrite(r.LHS) || ContainsRewrite(r.RHS) {
		return malformed(subject, "nested rewrite")
	}
	if _, ok := r.LHS.(Var); ok {
		return malformed(subject, "left-hand side is a bare variable")
	}
	lhsVars := FreeVars(r.LHS)
	for _, name := range FreeVars(r.RHS).Minus(lhsVars).Names() {
		if r.IsLemma() {
			return malformed(subject, "variable %s occurs only on the right-hand side", name)
		}
		if !strings.HasPrefix(name, "?") {
			return malformed(subject, "variable %s occurs only on the right-hand side and is not existential", name)
		}
	}
	if err := checkCondVars(subject, "requires", r.Requires, lhsVars); err != nil {
		return err
	}
	both := FreeVars(r.LHS, r.RHS)
	if err := checkCondVars(subject, "ensures", r.Ensures, both); err != nil {
		return err
	}
	for _, t := range []Term{r.LHS, r.RHS} {
		if err := sig.CheckSorts(t); err != nil {
			return malformed(subject, "%v", err)
		}
	}
	return nil
}

// ValidateClaim checks the well-formedness of a claim.
func ValidateClaim(sig Signature, c Claim) error {
	subject := "claim"
	if c.Label != "" {
		subject += " " + c.Label
	}
	if c.LHS == nil || c.RHS == nil {
		return malformed(subject, "missing left or right-hand side")
	}
	if ContainsRewrite(c.LHS) || ContainsRewrite(c.RHS) {
		return malformed(subject, "nested rewrite")
	}
	lhsVars := FreeVars(c.LHS)
	if err := checkCondVars(subject, "requires", c.Requires, lhsVars); err != nil {
		return err
	}
	if err := checkCondVars(subject, "ensures", c.Ensures, FreeVars(c.LHS, c.RHS)); err != nil {
		return err
	}
	for _, t := range []Term{c.LHS, c.RHS} {
		if err := sig.CheckSorts(t); err != nil {
			return malformed(subject, "%v", err)
		}
	}
	return nil
}

func checkCondVars(subject, clause string, c Condition, allowed VarSet) error {
	if c == nil {
		return nil
	}
	unbound := ConditionFreeVars(c).Minus(allowed)
	if len(unbound) > 0 {
		return malformed(subject, "%s mentions unbound variables %s", clause, strings.Join(unbound.Names(), ", "))
	}
	return nil
}

// Definition is an immutable rule database.
type Definition struct {
	Name      string
	Signature Signature
	rules     []Rule
	steps     []Rule
	lemmas    []Rule
}

// NewDefinition validates the rules and splits them into ordinary rules
// and lemmas, each ordered by priority.
func NewDefinition(name string, sig Signature, rules []Rule) (*Definition, error) {
	if sig == nil {
		sig = Signature{}
	}
	d := &Definition{Name: name, Signature: sig}
	for _, r := range rules {
		if err := ValidateRule(sig, r); err != nil {
			return nil, err
		}
		d.rules = append(d.rules, r)
		if r.IsLemma() {
			d.lemmas = append(d.lemmas, r)
		} else {
			d.steps = append(d.steps, r)
		}
	}
	SortByPriority(d.steps)
	SortByPriority(d.lemmas)
	return d, nil
}

// Rules returns every rule of the definition in declaration order.
func (d *Definition) Rules() []Rule { return append([]Rule(nil), d.rules...) }

// Steps returns the ordinary rules ordered by priority.
func (d *Definition) Steps() []Rule { return append([]Rule(nil), d.steps...) }

// Lemmas returns the simplification lemmas ordered by priority.
func (d *Definition) Lemmas() []Rule { return append([]Rule(nil), d.lemmas...) }

// SortByPriority orders rules by ascending priority, keeping declaration
// order between rules of equal priority.
func SortByPriority(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority() < rules[j].Priority()
	})
}

// PriorityGroups splits rules already ordered by priority into groups of
// equal priority.
func PriorityGroups(rules []Rule) [][]Rule {
	var groups [][]Rule
	for i := 0; i < len(rules); {
		j := i + 1
		for j < len(rules) && rules[j].Priority() == rules[i].Priority() {
			j++
		}
		groups = append(groups, rules[i:j])
		i = j
	}
	return groups
}
