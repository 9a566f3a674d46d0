package formatter

import (
	"encoding/json"

	"github.com/gnoswap-labs/kprove/internal/executor"
	"github.com/gnoswap-labs/kprove/prove"
)

// Report is the JSON form of a proof result.
type Report struct {
	Claim      string         `json:"claim"`
	RunID      string         `json:"run_id"`
	Proved     bool           `json:"proved"`
	Incomplete bool           `json:"incomplete,omitempty"`
	Steps      int            `json:"steps"`
	Pruned     int            `json:"pruned"`
	Formulas   []string       `json:"formulas"`
	Terminals  []TerminalInfo `json:"terminals"`
}

// TerminalInfo is the JSON form of a terminal branch.
type TerminalInfo struct {
	State       int             `json:"state"`
	Depth       int             `json:"depth"`
	Status      executor.Status `json:"status"`
	Rule        string          `json:"rule,omitempty"`
	Term        string          `json:"term"`
	Constraints []string        `json:"constraints,omitempty"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
	Attempts    []AttemptInfo   `json:"attempts,omitempty"`
}

// AttemptInfo is a rule tried on a terminal state.
type AttemptInfo struct {
	Rule    string `json:"rule"`
	Applied bool   `json:"applied"`
}

// NewReport converts a result into its JSON form.
func NewReport(res *prove.Result) Report {
	r := Report{
		Claim:      res.Claim.Label,
		RunID:      res.RunID,
		Proved:     res.Proved(),
		Incomplete: res.Incomplete,
		Steps:      res.Steps,
		Pruned:     res.Pruned,
		Terminals:  []TerminalInfo{},
	}
	for _, f := range res.Formulas() {
		r.Formulas = append(r.Formulas, f.String())
	}
	for _, t := range res.Terminals {
		info := TerminalInfo{
			State:  t.State.ID,
			Depth:  t.State.Depth,
			Status: t.Status,
			Rule:   t.State.Rule,
			Term:   t.State.Term.String(),
		}
		for _, c := range t.State.Constraints {
			info.Constraints = append(info.Constraints, c.String())
		}
		for _, d := range t.Diagnostics {
			info.Diagnostics = append(info.Diagnostics, string(d))
		}
		for _, a := range res.Attempts(t.State.ID) {
			info.Attempts = append(info.Attempts, AttemptInfo{Rule: a.Rule, Applied: a.Applied})
		}
		r.Terminals = append(r.Terminals, info)
	}
	return r
}

// JSON renders the results as an indented JSON array.
func JSON(results []*prove.Result) ([]byte, error) {
	reports := make([]Report, 0, len(results))
	for _, res := range results {
		reports = append(reports, NewReport(res))
	}
	return json.MarshalIndent(reports, "", "  ")
}
