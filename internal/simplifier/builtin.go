package simplifier

import (
	"math/big"

	"github.com/gnoswap-labs/kprove/internal/kast"
)

// evalBuiltin performs one reduction step of a builtin operator whose
// arguments are already simplified. It reports false when no reduction
// applies.
func (s *Simplifier) evalBuiltin(app kast.App) (kast.Term, bool) {
	switch len(app.Args) {
	case 1:
		if app.Label == kast.LabelNotBool {
			return evalNot(app.Args[0])
		}
	case 2:
		l, r := app.Args[0], app.Args[1]
		switch app.Label {
		case kast.LabelAndBool:
			return evalAnd(l, r)
		case kast.LabelOrBool:
			return evalOr(l, r)
		case kast.LabelEqK, kast.LabelEqInt:
			if b, ok := s.decideEqual(l, r); ok {
				return kast.Bool(b), true
			}
		case kast.LabelNeK, kast.LabelNeInt:
			if b, ok := s.decideEqual(l, r); ok {
				return kast.Bool(!b), true
			}
		default:
			return evalInt(app.Label, l, r)
		}
	}
	return nil, false
}

func evalNot(t kast.Term) (kast.Term, bool) {
	if b, ok := kast.BoolValue(t); ok {
		return kast.Bool(!b), true
	}
	if inner, ok := t.(kast.App); ok && inner.Label == kast.LabelNotBool && len(inner.Args) == 1 {
		return inner.Args[0], true
	}
	return nil, false
}

func evalAnd(l, r kast.Term) (kast.Term, bool) {
	if b, ok := kast.BoolValue(l); ok {
		if b {
			return r, true
		}
		return kast.False, true
	}
	if b, ok := kast.BoolValue(r); ok {
		if b {
			return l, true
		}
		return kast.False, true
	}
	if l.Equal(r) {
		return l, true
	}
	return nil, false
}

func evalOr(l, r kast.Term) (kast.Term, bool) {
	if b, ok := kast.BoolValue(l); ok {
		if b {
			return kast.True, true
		}
		return r, true
	}
	if b, ok := kast.BoolValue(r); ok {
		if b {
			return kast.True, true
		}
		return l, true
	}
	if l.Equal(r) {
		return l, true
	}
	return nil, false
}

// decideEqual decides syntactic equality where it is also semantic:
// identical terms are equal, and distinct terms built only from
// constructors and values are different.
func (s *Simplifier) decideEqual(l, r kast.Term) (bool, bool) {
	if l.Equal(r) {
		return true, true
	}
	if s.isValue(l) && s.isValue(r) {
		return false, true
	}
	return false, false
}

// isValue reports whether t is ground and free of function symbols.
func (s *Simplifier) isValue(t kast.Term) bool {
	value := true
	kast.Walk(t, func(x kast.Term) bool {
		switch y := x.(type) {
		case kast.Var:
			value = false
		case kast.App:
			if s.sig.IsFunction(y.Label) {
				value = false
			}
		case kast.Map, kast.Cells:
			value = false
		}
		return value
	})
	return value
}

func evalInt(label string, l, r kast.Term) (kast.Term, bool) {
	a, aok := kast.IntValue(l)
	b, bok := kast.IntValue(r)
	if !aok || !bok {
		return evalIntIdentity(label, l, r, a, b)
	}
	switch label {
	case kast.LabelPlusInt:
		return kast.BigInt(new(big.Int).Add(a, b)), true
	case kast.LabelMinusInt:
		return kast.BigInt(new(big.Int).Sub(a, b)), true
	case kast.LabelTimesInt:
		return kast.BigInt(new(big.Int).Mul(a, b)), true
	case kast.LabelDivInt:
		if b.Sign() == 0 {
			return nil, false
		}
		return kast.BigInt(new(big.Int).Quo(a, b)), true
	case kast.LabelModInt:
		if b.Sign() == 0 {
			return nil, false
		}
		return kast.BigInt(new(big.Int).Rem(a, b)), true
	case kast.LabelLtInt:
		return kast.Bool(a.Cmp(b) < 0), true
	case kast.LabelLeInt:
		return kast.Bool(a.Cmp(b) <= 0), true
	case kast.LabelGtInt:
		return kast.Bool(a.Cmp(b) > 0), true
	case kast.LabelGeInt:
		return kast.Bool(a.Cmp(b) >= 0), true
	}
	return nil, false
}

// evalIntIdentity applies the unit and zero laws when only one side is
// a value.
func evalIntIdentity(label string, l, r kast.Term, a, b *big.Int) (kast.Term, bool) {
	isZero := func(n *big.Int) bool { return n != nil && n.Sign() == 0 }
	isOne := func(n *big.Int) bool { return n != nil && n.IsInt64() && n.Int64() == 1 }
	switch label {
	case kast.LabelPlusInt:
		if isZero(a) {
			return r, true
		}
		if isZero(b) {
			return l, true
		}
	case kast.LabelMinusInt:
		if isZero(b) {
			return l, true
		}
		if l.Equal(r) {
			return kast.Int(0), true
		}
	case kast.LabelTimesInt:
		if isZero(a) || isZero(b) {
			return kast.Int(0), true
		}
		if isOne(a) {
			return r, true
		}
		if isOne(b) {
			return l, true
		}
	case kast.LabelLeInt, kast.LabelGeInt:
		if l.Equal(r) {
			return kast.True, true
		}
	case kast.LabelLtInt, kast.LabelGtInt:
		if l.Equal(r) {
			return kast.False, true
		}
	}
	return nil, false
}
