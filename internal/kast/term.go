package kast

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Sort names the syntactic category of a term.
type Sort string

const (
	SortK      Sort = "K"
	SortKItem  Sort = "KItem"
	SortInt    Sort = "Int"
	SortBool   Sort = "Bool"
	SortString Sort = "String"
	SortId     Sort = "Id"
	SortMap    Sort = "Map"
	SortCells  Sort = "Cells"
)

// Term is an immutable node of the abstract syntax tree. New terms are
// only ever produced by the constructors in this package and by
// substitution; a term is never modified after creation.
type Term interface {
	isTerm()
	String() string
	Equal(other Term) bool
}

var (
	_ Term = Var{}
	_ Term = Token{}
	_ Term = App{}
	_ Term = Seq{}
	_ Term = Map{}
	_ Term = Cells{}
	_ Term = Rewrite{}
)

// Var is a symbolic variable. Names starting with '?' are existential.
type Var struct {
	Name string
	Sort Sort
}

func (Var) isTerm() {}

func (v Var) String() string { return v.Name }

func (v Var) Equal(other Term) bool {
	o, ok := other.(Var)
	return ok && o.Name == v.Name
}

// IsExistential reports whether the variable is introduced by a rule
// right-hand side rather than bound by its left-hand side.
func (v Var) IsExistential() bool {
	return strings.HasPrefix(v.Name, "?")
}

// Token is a domain value such as an integer or a boolean.
type Token struct {
	Value string
	Sort  Sort
}

func (Token) isTerm() {}

func (t Token) String() string {
	if t.Sort == SortString {
		return strconv.Quote(t.Value)
	}
	return t.Value
}

func (t Token) Equal(other Term) bool {
	o, ok := other.(Token)
	return ok && o.Value == t.Value && o.Sort == t.Sort
}

// Int returns an Int token.
func Int(n int64) Token {
	return Token{Value: strconv.FormatInt(n, 10), Sort: SortInt}
}

// BigInt returns an Int token of arbitrary size.
func BigInt(n *big.Int) Token {
	return Token{Value: n.String(), Sort: SortInt}
}

// Bool returns a Bool token.
func Bool(b bool) Token {
	return Token{Value: strconv.FormatBool(b), Sort: SortBool}
}

// Str returns a String token.
func Str(s string) Token {
	return Token{Value: s, Sort: SortString}
}

var (
	True  = Bool(true)
	False = Bool(false)
)

// IntValue returns the integer carried by an Int token.
func IntValue(t Term) (*big.Int, bool) {
	tok, ok := t.(Token)
	if !ok || tok.Sort != SortInt {
		return nil, false
	}
	return new(big.Int).SetString(tok.Value, 10)
}

// BoolValue returns the boolean carried by a Bool token.
func BoolValue(t Term) (bool, bool) {
	tok, ok := t.(Token)
	if !ok || tok.Sort != SortBool {
		return false, false
	}
	b, err := strconv.ParseBool(tok.Value)
	if err != nil {
		return false, false
	}
	return b, true
}

// App is the application of a symbol to arguments. Cells are
// applications whose label has the form <name>.
type App struct {
	Label string
	Args  []Term
}

func (App) isTerm() {}

// NewApp builds an application, copying args so the caller's slice can be reused.
func NewApp(label string, args ...Term) App {
	if len(args) == 0 {
		return App{Label: label}
	}
	cp := make([]Term, len(args))
	copy(cp, args)
	return App{Label: label, Args: cp}
}

// IsCell reports whether the application is a configuration cell.
func (a App) IsCell() bool { return IsCellLabel(a.Label) }

func (a App) String() string {
	switch {
	case a.IsCell():
		name := a.Label[1 : len(a.Label)-1]
		parts := make([]string, 0, len(a.Args))
		for _, arg := range a.Args {
			parts = append(parts, arg.String())
		}
		return fmt.Sprintf("<%s> %s </%s>", name, strings.Join(parts, " "), name)
	case isInfixLabel(a.Label) && len(a.Args) == 2:
		op := a.Label[1 : len(a.Label)-1]
		return wrapOperand(a.Args[0]) + " " + op + " " + wrapOperand(a.Args[1])
	case isPrefixLabel(a.Label) && len(a.Args) == 1:
		return a.Label[:len(a.Label)-1] + " " + wrapOperand(a.Args[0])
	case len(a.Args) == 0:
		return a.Label
	}
	parts := make([]string, 0, len(a.Args))
	for _, arg := range a.Args {
		parts = append(parts, arg.String())
	}
	return a.Label + "(" + strings.Join(parts, ", ") + ")"
}

func (a App) Equal(other Term) bool {
	o, ok := other.(App)
	return ok && o.Label == a.Label && termsEqual(a.Args, o.Args)
}

// IsCellLabel reports whether label names a cell, e.g. "<k>".
func IsCellLabel(label string) bool {
	return len(label) > 2 && label[0] == '<' && label[len(label)-1] == '>'
}

func isInfixLabel(label string) bool {
	return len(label) > 2 && label[0] == '_' && label[len(label)-1] == '_'
}

func isPrefixLabel(label string) bool {
	return len(label) > 1 && label[0] != '_' && label[len(label)-1] == '_'
}

func wrapOperand(t Term) string {
	switch x := t.(type) {
	case App:
		if isInfixLabel(x.Label) && len(x.Args) == 2 {
			return "(" + x.String() + ")"
		}
	case Seq:
		if len(x.Items) > 1 {
			return "(" + x.String() + ")"
		}
	case Map, Cells, Rewrite:
		return "(" + x.String() + ")"
	}
	return t.String()
}

// Seq is an associative K sequence (a ~> b ~> c). The empty sequence is .K.
type Seq struct {
	Items []Term
}

func (Seq) isTerm() {}

// DotK is the empty sequence.
var DotK = Seq{}

// NewSeq flattens nested sequences and drops empty ones. A sequence of a
// single item is that item.
func NewSeq(items ...Term) Term {
	flat := make([]Term, 0, len(items))
	for _, it := range items {
		if s, ok := it.(Seq); ok {
			flat = append(flat, s.Items...)
			continue
		}
		flat = append(flat, it)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	if len(flat) == 0 {
		return DotK
	}
	return Seq{Items: flat}
}

func (s Seq) String() string {
	if len(s.Items) == 0 {
		return ".K"
	}
	parts := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		parts = append(parts, it.String())
	}
	return strings.Join(parts, " ~> ")
}

func (s Seq) Equal(other Term) bool {
	o, ok := other.(Seq)
	return ok && termsEqual(s.Items, o.Items)
}

// MapEntry is a single K |-> V binding.
type MapEntry struct {
	Key   Term
	Value Term
}

func (e MapEntry) String() string {
	return wrapOperand(e.Key) + " |-> " + wrapOperand(e.Value)
}

// Map is an associative-commutative map. Frame, when non-nil, stands for
// the unknown rest of the map.
type Map struct {
	Entries []MapEntry
	Frame   Term
}

func (Map) isTerm() {}

// NewMap returns a map with entries in canonical order. A frame that is
// itself a map is merged into the result.
func NewMap(entries []MapEntry, frame Term) Map {
	all := make([]MapEntry, 0, len(entries))
	all = append(all, entries...)
	if m, ok := frame.(Map); ok {
		all = append(all, m.Entries...)
		frame = m.Frame
	}
	sort.SliceStable(all, func(i, j int) bool {
		ki, kj := all[i].Key.String(), all[j].Key.String()
		if ki != kj {
			return ki < kj
		}
		return all[i].Value.String() < all[j].Value.String()
	})
	return Map{Entries: all, Frame: frame}
}

func (m Map) String() string {
	parts := make([]string, 0, len(m.Entries)+1)
	for _, e := range m.Entries {
		parts = append(parts, e.String())
	}
	if m.Frame != nil {
		parts = append(parts, m.Frame.String())
	}
	if len(parts) == 0 {
		return ".Map"
	}
	return strings.Join(parts, " ")
}

func (m Map) Equal(other Term) bool {
	o, ok := other.(Map)
	if !ok || len(o.Entries) != len(m.Entries) || !optEqual(m.Frame, o.Frame) {
		return false
	}
	for i := range m.Entries {
		if !m.Entries[i].Key.Equal(o.Entries[i].Key) || !m.Entries[i].Value.Equal(o.Entries[i].Value) {
			return false
		}
	}
	return true
}

// Lookup returns the value bound to key, if the entry is present.
func (m Map) Lookup(key Term) (Term, bool) {
	for _, e := range m.Entries {
		if e.Key.Equal(key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Cells is a fragment of juxtaposed cells, e.g. <k> .. </k> <state> .. </state>.
// Frame, when non-nil, stands for the cells not mentioned.
type Cells struct {
	Items []Term
	Frame Term
}

func (Cells) isTerm() {}

// NewCells returns a fragment with cells ordered by label. A frame that is
// itself a fragment is merged into the result.
func NewCells(items []Term, frame Term) Cells {
	all := make([]Term, 0, len(items))
	all = append(all, items...)
	if c, ok := frame.(Cells); ok {
		all = append(all, c.Items...)
		frame = c.Frame
	}
	sort.SliceStable(all, func(i, j int) bool {
		return cellLabel(all[i]) < cellLabel(all[j])
	})
	return Cells{Items: all, Frame: frame}
}

func cellLabel(t Term) string {
	if a, ok := t.(App); ok {
		return a.Label
	}
	return ""
}

func (c Cells) String() string {
	parts := make([]string, 0, len(c.Items)+1)
	for _, it := range c.Items {
		parts = append(parts, it.String())
	}
	if c.Frame != nil {
		parts = append(parts, c.Frame.String())
	}
	return strings.Join(parts, " ")
}

func (c Cells) Equal(other Term) bool {
	o, ok := other.(Cells)
	return ok && termsEqual(c.Items, o.Items) && optEqual(c.Frame, o.Frame)
}

// Cell returns the cell with the given label.
func (c Cells) Cell(label string) (App, bool) {
	for _, it := range c.Items {
		if a, ok := it.(App); ok && a.Label == label {
			return a, true
		}
	}
	return App{}, false
}

// Rewrite only appears in parsed rule and claim bodies; SplitRewrite
// removes it before a rule is used.
type Rewrite struct {
	LHS Term
	RHS Term
}

func (Rewrite) isTerm() {}

func (r Rewrite) String() string {
	return wrapOperand(r.LHS) + " => " + wrapOperand(r.RHS)
}

func (r Rewrite) Equal(other Term) bool {
	o, ok := other.(Rewrite)
	return ok && r.LHS.Equal(o.LHS) && r.RHS.Equal(o.RHS)
}

func termsEqual(a, b []Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func optEqual(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
