package kast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kcell(items ...Term) App { return NewApp("<k>", NewSeq(items...)) }

func TestNewSeq(t *testing.T) {
	t.Parallel()
	a, b, c := NewApp("a"), NewApp("b"), NewApp("c")

	tests := []struct {
		name  string
		items []Term
		want  Term
	}{
		{"empty", nil, DotK},
		{"single item is bare", []Term{a}, a},
		{"units dropped", []Term{DotK, a, DotK}, a},
		{"nested flattened", []Term{a, Seq{Items: []Term{b, c}}}, Seq{Items: []Term{a, b, c}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NewSeq(tt.items...)), "got %s", NewSeq(tt.items...))
		})
	}
}

func TestNewMapCanonicalOrder(t *testing.T) {
	t.Parallel()
	m1 := NewMap([]MapEntry{{Int(2), Int(20)}, {Int(1), Int(10)}}, nil)
	m2 := NewMap([]MapEntry{{Int(1), Int(10)}}, NewMap([]MapEntry{{Int(2), Int(20)}}, nil))

	assert.True(t, m1.Equal(m2))
	assert.Nil(t, m2.Frame)
	assert.Equal(t, "1 |-> 10 2 |-> 20", m1.String())
	assert.Equal(t, ".Map", NewMap(nil, nil).String())

	v, ok := m1.Lookup(Int(2))
	require.True(t, ok)
	assert.Equal(t, Int(20), v)
}

func TestTermString(t *testing.T) {
	t.Parallel()
	n := Var{Name: "N", Sort: SortInt}
	tests := []struct {
		term Term
		want string
	}{
		{NewApp(LabelPlusInt, n, Int(1)), "N +Int 1"},
		{NewApp(LabelNotBool, NewApp("pred1", n)), "notBool pred1(N)"},
		{NewApp(LabelTimesInt, NewApp(LabelPlusInt, n, Int(1)), Int(2)), "(N +Int 1) *Int 2"},
		{kcell(NewApp("foo"), Var{Name: "K"}), "<k> foo ~> K </k>"},
		{Str("hi"), `"hi"`},
		{DotK, ".K"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.term.String())
	}
}

func TestSubstApplyIsSimultaneous(t *testing.T) {
	t.Parallel()
	x, y := Var{Name: "X"}, Var{Name: "Y"}
	s := Subst{"X": y, "Y": x}

	got := s.Apply(NewApp("f", x, y))
	assert.True(t, NewApp("f", y, x).Equal(got))
}

func TestSubstApplyRenormalises(t *testing.T) {
	t.Parallel()
	k := Var{Name: "K", Sort: SortK}
	s := Subst{"K": Seq{Items: []Term{NewApp("b"), NewApp("c")}}}

	got := s.Apply(kcell(NewApp("a"), k))
	assert.Equal(t, "<k> a ~> b ~> c </k>", got.String())
}

func TestSubstCompose(t *testing.T) {
	t.Parallel()
	x, y := Var{Name: "X"}, Var{Name: "Y"}
	first := Subst{"X": NewApp("f", y)}
	second := Subst{"Y": Int(1)}

	composed := second.Compose(first)
	assert.Equal(t, "f(1)", composed.Apply(x).String())
	assert.Equal(t, []string{"X", "Y"}, composed.Domain())
}

func TestMlLaws(t *testing.T) {
	t.Parallel()
	p := Pred{Term: NewApp("p", Var{Name: "X"})}
	q := Pred{Term: NewApp("q", Var{Name: "X"})}

	assert.True(t, p.Equal(MlAnd(Top{}, p)))
	assert.True(t, IsBottom(MlAnd(p, Bottom{})))
	assert.True(t, IsTop(MlOr(Top{}, p)))
	assert.True(t, p.Equal(MlOr(Bottom{}, p)))
	assert.True(t, p.Equal(MlNot(MlNot(p))))
	assert.True(t, IsTop(MlAnd()))
	assert.True(t, IsBottom(MlOr()))
	assert.True(t, IsBottom(MlAnd(p, MlNot(p))))
	assert.True(t, IsTop(MlOr(p, MlNot(p))))

	and := MlAnd(p, MlAnd(q, p))
	require.IsType(t, And{}, and)
	assert.Len(t, and.(And).Conds, 2)

	assert.True(t, IsTop(MlImplies(p, p)))
	assert.True(t, q.Equal(MlImplies(Top{}, q)))
}

func TestMlEquals(t *testing.T) {
	t.Parallel()
	x := Var{Name: "X", Sort: SortInt}
	px := NewApp("p", x)

	assert.True(t, IsTop(MlEquals(x, x)))
	assert.True(t, IsBottom(MlEquals(Int(1), Int(2))))
	assert.True(t, Pred{Term: px}.Equal(MlEquals(px, True)))
	assert.True(t, MlNot(Pred{Term: px}).Equal(MlEquals(False, px)))
	assert.True(t, MlEquals(x, Int(1)).Equal(MlEquals(Int(1), x)))
}

func TestBoolPred(t *testing.T) {
	t.Parallel()
	x := Var{Name: "X", Sort: SortInt}
	px := NewApp("p", x)

	assert.True(t, IsTop(BoolPred(True)))
	assert.True(t, IsBottom(BoolPred(False)))

	got := BoolPred(NewApp(LabelAndBool, px, NewApp(LabelNotBool, NewApp(LabelEqInt, x, Int(3)))))
	want := MlAnd(Pred{Term: px}, MlNot(Equals{Left: x, Right: Int(3)}))
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestConditionFreeVars(t *testing.T) {
	t.Parallel()
	c := MlAnd(
		Pred{Term: NewApp("p", Var{Name: "X"})},
		MlNot(MlEquals(Var{Name: "Y"}, Int(0))),
	)
	assert.Equal(t, []string{"X", "Y"}, ConditionFreeVars(c).Names())

	s := Subst{"X": Int(1)}
	assert.Equal(t, []string{"Y"}, ConditionFreeVars(s.ApplyCondition(c)).Names())
}

func TestAlphaEqual(t *testing.T) {
	t.Parallel()
	a := NewApp("f", Var{Name: "?X"}, Var{Name: "?X"}, Var{Name: "N"})
	b := NewApp("f", Var{Name: "?X_1"}, Var{Name: "?X_1"}, Var{Name: "N"})
	c := NewApp("f", Var{Name: "?X_1"}, Var{Name: "?Y_1"}, Var{Name: "N"})
	d := NewApp("f", Var{Name: "?X_1"}, Var{Name: "?X_1"}, Var{Name: "M"})

	assert.True(t, AlphaEqual(a, b))
	assert.False(t, AlphaEqual(a, c))
	assert.False(t, AlphaEqual(a, d))
}

func TestSplitRewriteAndCompleteCells(t *testing.T) {
	t.Parallel()
	k := Var{Name: "K", Sort: SortK}
	body := NewApp("<k>", NewSeq(Rewrite{LHS: NewApp("foo"), RHS: NewApp("bar")}, k))

	r := RuleFromBody("step", body, nil, nil, nil)
	assert.Equal(t, "<k> foo ~> K </k> _Cells", r.LHS.String())
	assert.Equal(t, "<k> bar ~> K </k> _Cells", r.RHS.String())
	assert.True(t, IsTop(r.Requires))

	c := ClaimFromBody("c", body, nil, nil)
	require.IsType(t, Cells{}, c.LHS)
	assert.Nil(t, c.LHS.(Cells).Frame)
}

func TestAttsPriority(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultPriority, Atts(nil).Priority())
	assert.Equal(t, OwisePriority, Atts{Owise{}}.Priority())
	assert.Equal(t, 10, Atts{Priority{Level: 10}, Owise{}}.Priority())
	assert.Equal(t, 20, Atts{Simplification{Priority: 20}}.Priority())
	assert.True(t, Atts{Simplification{}}.IsSimplification())
	assert.False(t, Atts{Owise{}}.IsSimplification())
}

func TestValidateRule(t *testing.T) {
	t.Parallel()
	sig := Signature{"pred1": {Args: []Sort{SortInt}, Sort: SortBool, Function: true}}
	n := Var{Name: "N", Sort: SortInt}

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "well formed",
			rule: RuleFromBody("ok", kcell(Rewrite{LHS: NewApp("foo"), RHS: NewApp("bar")}), nil, nil, nil),
		},
		{
			name:    "bare variable lhs",
			rule:    Rule{LHS: n, RHS: Int(1), Requires: Top{}, Ensures: Top{}},
			wantErr: true,
		},
		{
			name:    "unbound rhs variable",
			rule:    Rule{LHS: NewApp("foo"), RHS: Var{Name: "M"}, Requires: Top{}, Ensures: Top{}},
			wantErr: true,
		},
		{
			name: "existential rhs variable",
			rule: Rule{LHS: NewApp("foo"), RHS: Var{Name: "?M"}, Requires: Top{}, Ensures: Top{}},
		},
		{
			name: "existential in lemma",
			rule: Rule{
				LHS: NewApp("foo"), RHS: Var{Name: "?M"}, Requires: Top{}, Ensures: Top{},
				Atts: Atts{Simplification{}},
			},
			wantErr: true,
		},
		{
			name:    "requires mentions unbound variable",
			rule:    Rule{LHS: NewApp("foo"), RHS: NewApp("bar"), Requires: Pred{Term: NewApp("pred1", n)}, Ensures: Top{}},
			wantErr: true,
		},
		{
			name:    "sort mismatch",
			rule:    Rule{LHS: NewApp("pred1", True), RHS: True, Requires: Top{}, Ensures: Top{}, Atts: Atts{Simplification{}}},
			wantErr: true,
		},
		{
			name:    "leftover rewrite",
			rule:    Rule{LHS: Rewrite{LHS: NewApp("a"), RHS: NewApp("b")}, RHS: NewApp("b"), Requires: Top{}, Ensures: Top{}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(sig, tt.rule)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
			var me *MalformedError
			assert.True(t, errors.As(err, &me))
		})
	}
}

func TestNewDefinitionSplitsAndOrders(t *testing.T) {
	t.Parallel()
	owise := RuleFromBody("owise", kcell(Rewrite{LHS: NewApp("a"), RHS: NewApp("c")}), nil, nil, Atts{Owise{}})
	first := RuleFromBody("first", kcell(Rewrite{LHS: NewApp("a"), RHS: NewApp("b")}), nil, nil, nil)
	lemma := Rule{LHS: NewApp("f", Int(1)), RHS: Int(2), Requires: Top{}, Ensures: Top{}, Atts: Atts{Simplification{}}}

	def, err := NewDefinition("test", nil, []Rule{owise, first, lemma})
	require.NoError(t, err)

	steps := def.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "first", steps[0].Label)
	assert.Equal(t, "owise", steps[1].Label)
	assert.Len(t, def.Lemmas(), 1)
	assert.Len(t, def.Rules(), 3)

	groups := PriorityGroups(steps)
	assert.Len(t, groups, 2)
}
