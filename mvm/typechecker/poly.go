package typechecker

import (
	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// Resolution of the polymorphic primitives. Each family is a lookup from the
// input type combination to the result type; the checker threads the result
// through and everything not listed is a type mismatch.

// arithResult resolves ADD/SUB/MUL over the comparable atoms. The numeric
// join is nat only when both operands are nat.
func arithResult(op michelson.OpCode, a, b michelson.Type) (michelson.Type, bool) {
	ca, aOK := michelson.ComparableOf(a)
	cb, bOK := michelson.ComparableOf(b)
	if !aOK || !bOK {
		return nil, false
	}

	num := func(x michelson.CT) bool { return x == michelson.CTInt || x == michelson.CTNat }

	switch op {
	case michelson.OpAdd:
		switch {
		case num(ca) && num(cb):
			if ca == michelson.CTNat && cb == michelson.CTNat {
				return michelson.NatT, true
			}
			return michelson.IntT, true
		case ca == michelson.CTInt && cb == michelson.CTTimestamp,
			ca == michelson.CTTimestamp && cb == michelson.CTInt:
			return michelson.TimestampT, true
		case ca == michelson.CTMutez && cb == michelson.CTMutez:
			return michelson.MutezT, true
		}
	case michelson.OpSub:
		switch {
		case num(ca) && num(cb):
			return michelson.IntT, true
		case ca == michelson.CTTimestamp && cb == michelson.CTTimestamp:
			return michelson.IntT, true
		case ca == michelson.CTTimestamp && cb == michelson.CTInt:
			return michelson.TimestampT, true
		case ca == michelson.CTMutez && cb == michelson.CTMutez:
			return michelson.MutezT, true
		}
	case michelson.OpMul:
		switch {
		case num(ca) && num(cb):
			if ca == michelson.CTNat && cb == michelson.CTNat {
				return michelson.NatT, true
			}
			return michelson.IntT, true
		case ca == michelson.CTNat && cb == michelson.CTMutez,
			ca == michelson.CTMutez && cb == michelson.CTNat:
			return michelson.MutezT, true
		}
	}
	return nil, false
}

// edivResult resolves EDIV; the result is option(pair(quotient, remainder)).
func edivResult(a, b michelson.Type) (michelson.Type, bool) {
	ca, aOK := michelson.ComparableOf(a)
	cb, bOK := michelson.ComparableOf(b)
	if !aOK || !bOK {
		return nil, false
	}

	num := func(x michelson.CT) bool { return x == michelson.CTInt || x == michelson.CTNat }

	var q, r michelson.Type
	switch {
	case num(ca) && num(cb):
		if ca == michelson.CTNat && cb == michelson.CTNat {
			q = michelson.NatT
		} else {
			q = michelson.IntT
		}
		r = michelson.NatT
	case ca == michelson.CTMutez && cb == michelson.CTNat:
		q, r = michelson.MutezT, michelson.MutezT
	case ca == michelson.CTMutez && cb == michelson.CTMutez:
		q, r = michelson.NatT, michelson.MutezT
	default:
		return nil, false
	}
	return michelson.TOption{Elem: michelson.TPair{Left: q, Right: r}}, true
}

// bitwiseResult resolves OR/AND/XOR (bool or nat) and NOT/LSL/LSR.
func bitwiseResult(op michelson.OpCode, a, b michelson.Type) (michelson.Type, bool) {
	ca, aOK := michelson.ComparableOf(a)
	cb, bOK := michelson.ComparableOf(b)
	if !aOK || !bOK {
		return nil, false
	}
	switch op {
	case michelson.OpOr, michelson.OpAnd, michelson.OpXor:
		if ca == michelson.CTBool && cb == michelson.CTBool {
			return michelson.BoolT, true
		}
		if ca == michelson.CTNat && cb == michelson.CTNat {
			return michelson.NatT, true
		}
	case michelson.OpLsl, michelson.OpLsr:
		if ca == michelson.CTNat && cb == michelson.CTNat {
			return michelson.NatT, true
		}
	}
	return nil, false
}

// sizeApplies reports whether SIZE accepts the type.
func sizeApplies(t michelson.Type) bool {
	switch x := t.(type) {
	case michelson.TList, michelson.TSet, michelson.TMap, michelson.TBigMap:
		return true
	case michelson.Tc:
		return x.T == michelson.CTString || x.T == michelson.CTBytes
	default:
		return false
	}
}

// memKey returns the key type MEM expects for the collection at hand.
func memKey(t michelson.Type) (michelson.CT, bool) {
	switch x := t.(type) {
	case michelson.TSet:
		return x.Elem, true
	case michelson.TMap:
		return x.Key, true
	case michelson.TBigMap:
		return x.Key, true
	default:
		return 0, false
	}
}

// getKeyValue returns the key and value types GET expects; sets have no GET.
func getKeyValue(t michelson.Type) (michelson.CT, michelson.Type, bool) {
	switch x := t.(type) {
	case michelson.TMap:
		return x.Key, x.Value, true
	case michelson.TBigMap:
		return x.Key, x.Value, true
	default:
		return 0, nil, false
	}
}

// updateArg returns the type UPDATE expects as its second argument: bool for
// sets, option(v) for maps and big maps.
func updateArg(t michelson.Type) (michelson.CT, michelson.Type, bool) {
	switch x := t.(type) {
	case michelson.TSet:
		return x.Elem, michelson.BoolT, true
	case michelson.TMap:
		return x.Key, michelson.TOption{Elem: x.Value}, true
	case michelson.TBigMap:
		return x.Key, michelson.TOption{Elem: x.Value}, true
	default:
		return 0, nil, false
	}
}

// concatElem reports whether t is one of the two CONCAT element types.
func concatElem(t michelson.Type) bool {
	c, ok := michelson.ComparableOf(t)
	return ok && (c == michelson.CTString || c == michelson.CTBytes)
}
