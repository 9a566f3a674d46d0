// Package definition loads rule databases, claims and lemma sets from
// YAML files written in the abstract term notation.
package definition

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/kprove/internal/kast"
	"github.com/gnoswap-labs/kprove/internal/kast/notation"
)

// ErrUnknownClaim is returned when a selected claim label is not defined.
var ErrUnknownClaim = errors.New("unknown claim")

// File is the YAML layout of a rule database.
type File struct {
	Name      string           `yaml:"name" validate:"required"`
	Signature []ProductionSpec `yaml:"signature" validate:"dive"`
	Rules     []RuleSpec       `yaml:"rules" validate:"dive"`
	Claims    []ClaimSpec      `yaml:"claims" validate:"dive"`
}

// LemmaFile is the YAML layout of an invocation-scoped lemma set.
type LemmaFile struct {
	Lemmas []RuleSpec `yaml:"lemmas" validate:"dive"`
}

// ProductionSpec declares a symbol.
type ProductionSpec struct {
	Label    string   `yaml:"label" validate:"required"`
	Args     []string `yaml:"args"`
	Sort     string   `yaml:"sort" validate:"required"`
	Function bool     `yaml:"function"`
}

// RuleSpec declares a rule or, with Simplification set, a lemma.
// Priority 0 selects the default.
type RuleSpec struct {
	Label          string `yaml:"label" validate:"required"`
	Rule           string `yaml:"rule" validate:"required"`
	Requires       string `yaml:"requires"`
	Ensures        string `yaml:"ensures"`
	Priority       int    `yaml:"priority" validate:"gte=0"`
	Owise          bool   `yaml:"owise"`
	Simplification bool   `yaml:"simplification"`
}

// ClaimSpec declares a reachability claim.
type ClaimSpec struct {
	Label    string   `yaml:"label" validate:"required"`
	Claim    string   `yaml:"claim" validate:"required"`
	Requires string   `yaml:"requires"`
	Ensures  string   `yaml:"ensures"`
	Depends  []string `yaml:"depends"`
}

// Bundle is a loaded rule database with its claims.
type Bundle struct {
	Definition *kast.Definition
	Claims     []kast.Claim

	depends map[string][]string
}

var validate = validator.New()

// Load reads and builds the rule database at path.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse builds a rule database from YAML.
func Parse(data []byte) (*Bundle, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	return f.Build()
}

// Build converts the file into a validated definition and its claims.
func (f File) Build() (*Bundle, error) {
	sig := make(kast.Signature, len(f.Signature))
	for _, p := range f.Signature {
		if _, dup := sig[p.Label]; dup {
			return nil, fmt.Errorf("duplicate production %s", p.Label)
		}
		args := make([]kast.Sort, len(p.Args))
		for i, a := range p.Args {
			args[i] = kast.Sort(a)
		}
		sig[p.Label] = kast.Production{Args: args, Sort: kast.Sort(p.Sort), Function: p.Function}
	}

	rules := make([]kast.Rule, 0, len(f.Rules))
	for _, spec := range f.Rules {
		r, err := spec.Build()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	def, err := kast.NewDefinition(f.Name, sig, rules)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Definition: def, depends: make(map[string][]string)}
	seen := make(map[string]bool, len(f.Claims))
	for _, spec := range f.Claims {
		if seen[spec.Label] {
			return nil, fmt.Errorf("duplicate claim %s", spec.Label)
		}
		seen[spec.Label] = true
		c, err := spec.Build()
		if err != nil {
			return nil, err
		}
		if err := kast.ValidateClaim(sig, c); err != nil {
			return nil, err
		}
		b.Claims = append(b.Claims, c)
		if len(spec.Depends) > 0 {
			b.depends[spec.Label] = spec.Depends
		}
	}
	for label, deps := range b.depends {
		for _, d := range deps {
			if !seen[d] {
				return nil, fmt.Errorf("claim %s depends on %w: %s", label, ErrUnknownClaim, d)
			}
		}
	}
	return b, nil
}

// Build parses the rule body and its conditions.
func (s RuleSpec) Build() (kast.Rule, error) {
	body, requires, ensures, err := parseParts(s.Rule, s.Requires, s.Ensures)
	if err != nil {
		return kast.Rule{}, fmt.Errorf("rule %s: %w", s.Label, err)
	}
	return kast.RuleFromBody(s.Label, body, requires, ensures, s.atts()), nil
}

func (s RuleSpec) atts() kast.Atts {
	var atts kast.Atts
	if s.Simplification {
		prio := s.Priority
		if prio == 0 {
			prio = kast.DefaultLemmaPriority
		}
		return append(atts, kast.Simplification{Priority: prio})
	}
	if s.Priority != 0 {
		atts = append(atts, kast.Priority{Level: s.Priority})
	}
	if s.Owise {
		atts = append(atts, kast.Owise{})
	}
	return atts
}

// Build parses the claim body and its conditions.
func (s ClaimSpec) Build() (kast.Claim, error) {
	body, requires, ensures, err := parseParts(s.Claim, s.Requires, s.Ensures)
	if err != nil {
		return kast.Claim{}, fmt.Errorf("claim %s: %w", s.Label, err)
	}
	return kast.ClaimFromBody(s.Label, body, requires, ensures), nil
}

func parseParts(body, requires, ensures string) (kast.Term, kast.Condition, kast.Condition, error) {
	t, err := notation.ParseTerm(body)
	if err != nil {
		return nil, nil, nil, err
	}
	req, err := notation.ParseCondition(requires)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("requires: %w", err)
	}
	ens, err := notation.ParseCondition(ensures)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ensures: %w", err)
	}
	return t, req, ens, nil
}

// Claim returns the claim with the given label.
func (b *Bundle) Claim(label string) (kast.Claim, bool) {
	for _, c := range b.Claims {
		if c.Label == label {
			return c, true
		}
	}
	return kast.Claim{}, false
}

// Depends returns the labels of the claims the claim with label relies on.
func (b *Bundle) Depends(label string) []string {
	return b.depends[label]
}

// Selection picks claims out of a bundle.
type Selection struct {
	// Include lists the claims to prove, in order. Empty selects every
	// claim.
	Include []string
	// Exclude removes claims after dependencies are added.
	Exclude []string
	// WithDepends adds the dependency closure of the included claims,
	// dependencies first.
	WithDepends bool
}

// Select returns the claims with the given labels in that order, or every
// claim when labels is empty.
func (b *Bundle) Select(labels []string) ([]kast.Claim, error) {
	return b.SelectClaims(Selection{Include: labels})
}

// SelectClaims resolves a selection. Every label must name a claim.
func (b *Bundle) SelectClaims(sel Selection) ([]kast.Claim, error) {
	include := sel.Include
	if len(include) == 0 {
		for _, c := range b.Claims {
			include = append(include, c.Label)
		}
	}
	excluded := make(map[string]bool, len(sel.Exclude))
	for _, l := range sel.Exclude {
		if _, ok := b.Claim(l); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClaim, l)
		}
		excluded[l] = true
	}

	var labels []string
	visited := make(map[string]bool)
	var visit func(string)
	visit = func(l string) {
		if visited[l] {
			return
		}
		visited[l] = true
		if sel.WithDepends {
			for _, d := range b.depends[l] {
				visit(d)
			}
		}
		labels = append(labels, l)
	}
	for _, l := range include {
		if _, ok := b.Claim(l); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClaim, l)
		}
		visit(l)
	}

	out := make([]kast.Claim, 0, len(labels))
	for _, l := range labels {
		if excluded[l] {
			continue
		}
		c, _ := b.Claim(l)
		out = append(out, c)
	}
	return out, nil
}

// LoadLemmas reads a lemma file. Every entry is a simplification lemma
// checked against sig.
func LoadLemmas(path string, sig kast.Signature) ([]kast.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lemmas, err := ParseLemmas(data, sig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lemmas, nil
}

// ParseLemmas builds a lemma set from YAML.
func ParseLemmas(data []byte, sig kast.Signature) ([]kast.Rule, error) {
	var f LemmaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid lemma file: %w", err)
	}
	lemmas := make([]kast.Rule, 0, len(f.Lemmas))
	for _, spec := range f.Lemmas {
		spec.Simplification = true
		r, err := spec.Build()
		if err != nil {
			return nil, err
		}
		if err := kast.ValidateRule(sig, r); err != nil {
			return nil, err
		}
		lemmas = append(lemmas, r)
	}
	return lemmas, nil
}
