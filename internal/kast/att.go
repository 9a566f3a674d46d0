package kast

import (
	"strconv"
	"strings"
)

const (
	DefaultPriority      = 50
	OwisePriority        = 200
	DefaultLemmaPriority = 50
)

// Att is a rule attribute. The set of attributes is closed.
type Att interface {
	isAtt()
	String() string
}

// Simplification marks a rule as a lemma used by the simplifier only.
type Simplification struct {
	Priority int
}

// Priority orders ordinary rules; lower levels are tried first.
type Priority struct {
	Level int
}

// Owise makes a rule apply only when no other rule does.
type Owise struct{}

func (Simplification) isAtt() {}
func (Priority) isAtt()       {}
func (Owise) isAtt()          {}

func (s Simplification) String() string {
	return "simplification(" + strconv.Itoa(s.Priority) + ")"
}

func (p Priority) String() string { return "priority(" + strconv.Itoa(p.Level) + ")" }
func (Owise) String() string      { return "owise" }

// Atts is the attribute list of a rule.
type Atts []Att

// IsSimplification reports whether the rule is a lemma.
func (a Atts) IsSimplification() bool {
	for _, att := range a {
		if _, ok := att.(Simplification); ok {
			return true
		}
	}
	return false
}

// Priority returns the effective priority of the rule: the lemma priority
// for lemmas, otherwise the explicit level, owise level or default.
func (a Atts) Priority() int {
	prio, owise, explicit := DefaultPriority, false, false
	for _, att := range a {
		switch x := att.(type) {
		case Simplification:
			return x.Priority
		case Priority:
			prio, explicit = x.Level, true
		case Owise:
			owise = true
		}
	}
	if owise && !explicit {
		return OwisePriority
	}
	return prio
}

func (a Atts) String() string {
	if len(a) == 0 {
		return ""
	}
	parts := make([]string, len(a))
	for i, att := range a {
		parts[i] = att.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
