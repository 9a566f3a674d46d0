package kast

import (
	"sort"
	"strings"
)

// Subst maps variable names to terms.
type Subst map[string]Term

// Apply replaces every bound variable of t in a single simultaneous pass.
// Terms substituted in are not themselves rewritten again.
func (s Subst) Apply(t Term) Term {
	if len(s) == 0 || t == nil {
		return t
	}
	return BottomUp(t, func(x Term) Term {
		if v, ok := x.(Var); ok {
			if r, ok := s[v.Name]; ok {
				return r
			}
		}
		return x
	})
}

// ApplyCondition substitutes into every term of c.
func (s Subst) ApplyCondition(c Condition) Condition {
	if len(s) == 0 {
		return c
	}
	return MapTerms(c, s.Apply)
}

// Compose returns the substitution equivalent to applying o and then s.
func (s Subst) Compose(o Subst) Subst {
	out := make(Subst, len(s)+len(o))
	for k, v := range o {
		out[k] = s.Apply(v)
	}
	for k, v := range s {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// Copy returns a shallow copy of s.
func (s Subst) Copy() Subst {
	out := make(Subst, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Domain returns the bound variable names in sorted order.
func (s Subst) Domain() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s Subst) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range s.Domain() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(" := ")
		sb.WriteString(s[k].String())
	}
	sb.WriteString("}")
	return sb.String()
}
