package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/fatih/color"

	"github.com/gnoswap-labs/kprove/internal/executor"
	"github.com/gnoswap-labs/kprove/prove"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	provedStyle  = color.New(color.FgGreen, color.Bold)
	boundedStyle = color.New(color.FgHiYellow, color.Bold)
	claimStyle   = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	noteStyle    = color.New(color.FgGreen, color.Bold)
)

const resultTemplate = `{{header .Claim .Proved .Incomplete}}` +
	`{{summary .RunID .Steps .Pruned (len .Branches)}}` +
	`{{range .Branches}}{{branch . $.Verbose}}{{end}}`

var resultTmpl = template.Must(template.New("result").Funcs(template.FuncMap{
	"header":  header,
	"summary": summary,
	"branch":  branch,
}).Parse(resultTemplate))

// ResultData is the view of a proof result used by the text template.
type ResultData struct {
	Claim      string
	RunID      string
	Proved     bool
	Incomplete bool
	Steps      int
	Pruned     int
	Verbose    bool
	Branches   []BranchData
}

// BranchData describes one terminal branch.
type BranchData struct {
	State       int
	Depth       int
	Status      executor.Status
	Term        string
	Constraints []string
	Diagnostics []string
}

func newResultData(res *prove.Result, verbose bool) ResultData {
	data := ResultData{
		Claim:      res.Claim.Label,
		RunID:      res.RunID,
		Proved:     res.Proved(),
		Incomplete: res.Incomplete,
		Steps:      res.Steps,
		Pruned:     res.Pruned,
		Verbose:    verbose,
	}
	for _, t := range res.Terminals {
		b := BranchData{
			State:  t.State.ID,
			Depth:  t.State.Depth,
			Status: t.Status,
			Term:   t.State.Term.String(),
		}
		for _, c := range t.State.Constraints {
			b.Constraints = append(b.Constraints, c.String())
		}
		for _, d := range t.Diagnostics {
			b.Diagnostics = append(b.Diagnostics, string(d))
		}
		data.Branches = append(data.Branches, b)
	}
	return data
}

// FormatResult renders one proof result. Unresolved branches show their
// configuration and path condition; verbose also shows proved ones.
func FormatResult(res *prove.Result, verbose bool) string {
	var buf bytes.Buffer
	if err := resultTmpl.Execute(&buf, newResultData(res, verbose)); err != nil {
		return fmt.Sprintf("Error formatting result: %v", err)
	}
	return buf.String()
}

// FormatResults renders every result followed by a one-line summary.
func FormatResults(results []*prove.Result, verbose bool) string {
	var builder strings.Builder
	proved := 0
	for _, res := range results {
		builder.WriteString(FormatResult(res, verbose))
		builder.WriteString("\n")
		if res.Proved() {
			proved++
		}
	}
	builder.WriteString(totals(len(results), proved))
	return builder.String()
}

// utils functions used in the text template

func header(claim string, proved, incomplete bool) string {
	if proved {
		return provedStyle.Sprint("proved: ") + claimStyle.Sprintf("%s\n", claim)
	}
	out := errorStyle.Sprint("error: ") + claimStyle.Sprint(claim) + messageStyle.Sprint(" not proved")
	if incomplete {
		out += boundedStyle.Sprint(" (incomplete)")
	}
	return out + "\n"
}

func summary(runID string, steps, pruned, terminals int) string {
	return lineStyle.Sprint(" --> ") + fmt.Sprintf("run %s: %d %s, %d pruned, %d %s\n",
		runID, steps, plural(steps, "step"), pruned, terminals, plural(terminals, "terminal"))
}

func branch(b BranchData, verbose bool) string {
	var out strings.Builder
	out.WriteString(lineStyle.Sprint("  | "))
	out.WriteString(statusStyle(b.Status).Sprint(strings.ToLower(b.Status.String())))
	out.WriteString(fmt.Sprintf(" state %d, depth %d\n", b.State, b.Depth))
	if b.Status != executor.Proved || verbose {
		out.WriteString(lineStyle.Sprint("  |   "))
		out.WriteString(b.Term + "\n")
		for _, c := range b.Constraints {
			out.WriteString(lineStyle.Sprint("  |   "))
			out.WriteString("#And " + c + "\n")
		}
	}
	for _, d := range b.Diagnostics {
		out.WriteString(lineStyle.Sprint("  = "))
		out.WriteString(noteStyle.Sprint("note: ") + d + "\n")
	}
	return out.String()
}

func totals(claims, proved int) string {
	failed := claims - proved
	style := provedStyle
	if failed > 0 {
		style = errorStyle
	}
	return style.Sprintf("%d %s, %d proved, %d not proved\n", claims, plural(claims, "claim"), proved, failed)
}

func statusStyle(s executor.Status) *color.Color {
	switch s {
	case executor.Proved:
		return provedStyle
	case executor.Bounded:
		return boundedStyle
	default:
		return errorStyle
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
