package kast

// Diagnostic notes why a result is weaker than it could be. Diagnostics
// travel with states; they are not errors.
type Diagnostic string

const (
	// DiagSimplificationBound: the simplifier hit its application bound and
	// returned a partially simplified result.
	DiagSimplificationBound Diagnostic = "simplification-bound"
	// DiagDecisionTimeout: the decision procedure gave up before answering.
	DiagDecisionTimeout Diagnostic = "decision-timeout"
	// DiagCancelled: the proof was cancelled before this state was explored.
	DiagCancelled Diagnostic = "cancelled"
)

// AddDiagnostics appends the diagnostics of more that are not in ds yet.
func AddDiagnostics(ds []Diagnostic, more ...Diagnostic) []Diagnostic {
	for _, d := range more {
		seen := false
		for _, x := range ds {
			if x == d {
				seen = true
				break
			}
		}
		if !seen {
			ds = append(ds, d)
		}
	}
	return ds
}
