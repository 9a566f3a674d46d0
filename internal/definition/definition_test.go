package definition

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/kprove/internal/kast"
)

func TestLoad(t *testing.T) {
	t.Parallel()
	b, err := Load(filepath.Join("testdata", "scenario.yaml"))
	require.NoError(t, err)

	def := b.Definition
	assert.Equal(t, "scenario", def.Name)
	assert.True(t, def.Signature.IsFunction("pred1"))
	require.Len(t, def.Steps(), 1)
	assert.Empty(t, def.Lemmas())

	step := def.Steps()[0]
	assert.Equal(t, "step", step.Label)
	assert.Equal(t, "{ true #Equals pred1(N) }", step.Requires.String())
	assert.Equal(t, kast.DefaultPriority, step.Priority())

	require.Len(t, b.Claims, 2)
	c, ok := b.Claim("foo-to-bar")
	require.True(t, ok)
	assert.Equal(t, "<k> foo ~> _DotVar0 </k> <state> 3 |-> 3 </state>", c.LHS.String())
	assert.Equal(t, "<k> bar ~> _DotVar0 </k> <state> 3 |-> 3 </state>", c.RHS.String())
}

func TestLoadLemmas(t *testing.T) {
	t.Parallel()
	b, err := Load(filepath.Join("testdata", "scenario.yaml"))
	require.NoError(t, err)

	lemmas, err := LoadLemmas(filepath.Join("testdata", "lemmas.yaml"), b.Definition.Signature)
	require.NoError(t, err)
	require.Len(t, lemmas, 1)
	assert.True(t, lemmas[0].IsLemma())
	assert.Equal(t, kast.DefaultLemmaPriority, lemmas[0].Priority())
	assert.Equal(t, "pred1(3)", lemmas[0].LHS.String())
	assert.Equal(t, kast.True, lemmas[0].RHS)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestRuleSpecAtts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		spec RuleSpec
		want int
		lem  bool
	}{
		{"default", RuleSpec{}, kast.DefaultPriority, false},
		{"explicit", RuleSpec{Priority: 10}, 10, false},
		{"owise", RuleSpec{Owise: true}, kast.OwisePriority, false},
		{"lemma", RuleSpec{Simplification: true}, kast.DefaultLemmaPriority, true},
		{"lemma priority", RuleSpec{Simplification: true, Priority: 20}, 20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			atts := tt.spec.atts()
			assert.Equal(t, tt.want, atts.Priority())
			assert.Equal(t, tt.lem, atts.IsSimplification())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		input     string
		malformed bool
	}{
		{
			name:  "invalid yaml",
			input: "name: [",
		},
		{
			name:  "missing name",
			input: "rules: []",
		},
		{
			name: "rule without body",
			input: `name: d
rules:
  - label: r
`,
		},
		{
			name: "syntax error",
			input: `name: d
rules:
  - label: r
    rule: "<k> a => b </state>"
`,
		},
		{
			name: "duplicate production",
			input: `name: d
signature:
  - {label: f, sort: Int}
  - {label: f, sort: Bool}
`,
		},
		{
			name: "unbound right-hand variable",
			input: `name: d
rules:
  - label: r
    rule: "<k> a => X ... </k>"
`,
			malformed: true,
		},
		{
			name: "claim with unbound requires",
			input: `name: d
claims:
  - label: c
    claim: "<k> a => a </k>"
    requires: "pred1(N)"
`,
			malformed: true,
		},
		{
			name: "duplicate claim",
			input: `name: d
claims:
  - {label: c, claim: "<k> a => a </k>"}
  - {label: c, claim: "<k> b => b </k>"}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, b)
			if tt.malformed {
				assert.ErrorIs(t, err, kast.ErrMalformed)
			}
		})
	}
}

func TestParseLemmas_Malformed(t *testing.T) {
	t.Parallel()
	input := `lemmas:
  - label: bad
    rule: "f(X) => g(Y)"
`
	_, err := ParseLemmas([]byte(input), nil)
	assert.ErrorIs(t, err, kast.ErrMalformed)
}

func TestSelect(t *testing.T) {
	t.Parallel()
	b, err := Load(filepath.Join("testdata", "scenario.yaml"))
	require.NoError(t, err)

	all, err := b.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := b.Select([]string{"trivial"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "trivial", some[0].Label)

	_, err = b.Select([]string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownClaim)
}

const dependsInput = `name: deps
claims:
  - label: top
    claim: "<k> a => d </k>"
    depends: [mid]
  - label: mid
    claim: "<k> b => d </k>"
    depends: [base]
  - label: base
    claim: "<k> c => d </k>"
  - label: other
    claim: "<k> d => d </k>"
  - label: loop1
    claim: "<k> a => a </k>"
    depends: [loop2]
  - label: loop2
    claim: "<k> b => b </k>"
    depends: [loop1]
`

func TestSelectClaims(t *testing.T) {
	t.Parallel()
	b, err := Parse([]byte(dependsInput))
	require.NoError(t, err)
	assert.Equal(t, []string{"mid"}, b.Depends("top"))

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{"all", Selection{}, []string{"top", "mid", "base", "other", "loop1", "loop2"}},
		{"include only", Selection{Include: []string{"top", "other"}}, []string{"top", "other"}},
		{"with depends", Selection{Include: []string{"top"}, WithDepends: true}, []string{"base", "mid", "top"}},
		{"exclude after depends", Selection{Include: []string{"top"}, Exclude: []string{"mid"}, WithDepends: true}, []string{"base", "top"}},
		{"exclude from all", Selection{Exclude: []string{"loop1", "loop2"}}, []string{"top", "mid", "base", "other"}},
		{"cycle", Selection{Include: []string{"loop1"}, WithDepends: true}, []string{"loop2", "loop1"}},
		{"shared dependency once", Selection{Include: []string{"mid", "top"}, WithDepends: true}, []string{"base", "mid", "top"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := b.SelectClaims(tt.sel)
			require.NoError(t, err)
			var labels []string
			for _, c := range got {
				labels = append(labels, c.Label)
			}
			assert.Equal(t, tt.want, labels)
		})
	}

	_, err = b.SelectClaims(Selection{Exclude: []string{"nope"}})
	assert.ErrorIs(t, err, ErrUnknownClaim)
}

func TestParse_UnknownDependency(t *testing.T) {
	t.Parallel()
	input := `name: deps
claims:
  - label: top
    claim: "<k> a => b </k>"
    depends: [missing]
`
	_, err := Parse([]byte(input))
	assert.ErrorIs(t, err, ErrUnknownClaim)
}
