package formatter

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/kprove/internal/executor"
	"github.com/gnoswap-labs/kprove/internal/kast"
	"github.com/gnoswap-labs/kprove/internal/kast/notation"
	"github.com/gnoswap-labs/kprove/prove"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func parse(t *testing.T, s string) kast.Term {
	t.Helper()
	out, err := notation.ParseTerm(s)
	require.NoError(t, err)
	return out
}

func trivialResult(t *testing.T) *prove.Result {
	t.Helper()
	c := kast.ClaimFromBody("trivial", parse(t, "<k> bar => bar </k>"), nil, nil)
	res, err := prove.Prove(context.Background(), c, nil, nil, 10)
	require.NoError(t, err)
	res.RunID = "test"
	return res
}

func scenarioResult(t *testing.T) *prove.Result {
	t.Helper()
	sig := kast.Signature{
		"pred1": {Args: []kast.Sort{kast.SortInt}, Sort: kast.SortBool, Function: true},
	}
	requires, err := notation.ParseCondition("pred1(N)")
	require.NoError(t, err)
	rule := kast.RuleFromBody("step",
		parse(t, "<k> foo => bar ... </k> <state> 3 |-> N ... </state>"), requires, nil, nil)
	def, err := kast.NewDefinition("scenario", sig, []kast.Rule{rule})
	require.NoError(t, err)
	p, err := prove.New(def, prove.DefaultConfig(), nil)
	require.NoError(t, err)

	pre, err := notation.ParseCondition("pred1(4)")
	require.NoError(t, err)
	c := kast.ClaimFromBody("scenario",
		parse(t, "<k> foo => bar ... </k> <state> 3 |-> 3 </state>"), pre, nil)
	res, err := p.ProveClaim(context.Background(), c, nil)
	require.NoError(t, err)
	res.RunID = "test"
	return res
}

func TestFormatResult_Proved(t *testing.T) {
	t.Parallel()
	expected := `proved: trivial
 --> run test: 0 steps, 0 pruned, 1 terminal
  | proved state 0, depth 0
`
	assert.Equal(t, expected, FormatResult(trivialResult(t), false))

	verbose := `proved: trivial
 --> run test: 0 steps, 0 pruned, 1 terminal
  | proved state 0, depth 0
  |   <k> bar </k>
`
	assert.Equal(t, verbose, FormatResult(trivialResult(t), true))
}

func TestFormatResult_NotProved(t *testing.T) {
	t.Parallel()
	expected := `error: scenario not proved
 --> run test: 1 step, 0 pruned, 2 terminals
  | stuck state 2, depth 0
  |   <k> foo ~> _DotVar0 </k> <state> 3 |-> 3 </state>
  |   #And { true #Equals pred1(4) }
  |   #And #Not ( { true #Equals pred1(3) } )
  | proved state 1, depth 1
`
	assert.Equal(t, expected, FormatResult(scenarioResult(t), false))
}

func TestFormatResults(t *testing.T) {
	t.Parallel()
	out := FormatResults([]*prove.Result{trivialResult(t), scenarioResult(t)}, false)
	assert.Contains(t, out, "proved: trivial\n")
	assert.Contains(t, out, "error: scenario not proved\n")
	assert.Contains(t, out, "2 claims, 1 proved, 1 not proved\n")
}

func TestBranch_Diagnostics(t *testing.T) {
	t.Parallel()
	b := BranchData{
		State:       3,
		Depth:       2,
		Status:      executor.Bounded,
		Term:        "<k> a </k>",
		Diagnostics: []string{string(kast.DiagCancelled)},
	}
	expected := `  | bounded state 3, depth 2
  |   <k> a </k>
  = note: cancelled
`
	assert.Equal(t, expected, branch(b, false))
}

func TestJSON(t *testing.T) {
	t.Parallel()
	data, err := JSON([]*prove.Result{trivialResult(t), scenarioResult(t)})
	require.NoError(t, err)

	var reports []struct {
		Claim     string   `json:"claim"`
		Proved    bool     `json:"proved"`
		Formulas  []string `json:"formulas"`
		Terminals []struct {
			Status   string        `json:"status"`
			Rule     string        `json:"rule"`
			Attempts []AttemptInfo `json:"attempts"`
		} `json:"terminals"`
	}
	require.NoError(t, json.Unmarshal(data, &reports))
	require.Len(t, reports, 2)

	assert.Equal(t, "trivial", reports[0].Claim)
	assert.True(t, reports[0].Proved)
	assert.Equal(t, []string{"#Top"}, reports[0].Formulas)

	assert.False(t, reports[1].Proved)
	require.Len(t, reports[1].Terminals, 2)
	assert.Equal(t, "stuck", reports[1].Terminals[0].Status)
	assert.Equal(t, "proved", reports[1].Terminals[1].Status)
	assert.Equal(t, "step", reports[1].Terminals[1].Rule)
	assert.Equal(t, []AttemptInfo{{Rule: "step", Applied: true}}, reports[1].Terminals[0].Attempts)
	assert.Empty(t, reports[1].Terminals[1].Attempts)
	assert.Len(t, reports[1].Formulas, 1)
}
