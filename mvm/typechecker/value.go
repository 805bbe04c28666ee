package typechecker

import (
	"crypto/ed25519"
	"time"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm/errors"
)

// TypecheckValue checks an untyped literal against an expected type and
// returns the corresponding typed value. String literals are interpreted
// against the type: an address, key hash or RFC3339 timestamp where those
// types are expected, plain text otherwise.
func TypecheckValue(v michelson.UValue, t michelson.Type) (michelson.Value, errors.TCError) {
	bad := func(msg string, args ...interface{}) errors.TCError {
		return errors.NewTCFailedOnValuef(v, t, msg, args...)
	}

	switch x := t.(type) {
	case michelson.Tc:
		return typecheckComparable(v, x.T)

	case michelson.TKey:
		b, ok := v.(michelson.UBytes)
		if !ok || len(b.B) != ed25519.PublicKeySize {
			return nil, bad("expected %d key bytes", ed25519.PublicKeySize)
		}
		return michelson.VKey{K: michelson.PublicKey(b.B)}, nil

	case michelson.TSignature:
		b, ok := v.(michelson.UBytes)
		if !ok || len(b.B) != ed25519.SignatureSize {
			return nil, bad("expected %d signature bytes", ed25519.SignatureSize)
		}
		return michelson.VSignature{S: michelson.Signature(b.B)}, nil

	case michelson.TUnit:
		if _, ok := v.(michelson.UUnit); !ok {
			return nil, bad("expected Unit")
		}
		return michelson.VUnit{}, nil

	case michelson.TOption:
		switch o := v.(type) {
		case michelson.UNone:
			return michelson.VOption{}, nil
		case michelson.USome:
			inner, err := TypecheckValue(o.V, x.Elem)
			if err != nil {
				return nil, err
			}
			return michelson.VOption{Some: inner}, nil
		default:
			return nil, bad("expected Some or None")
		}

	case michelson.TList:
		seq, ok := v.(michelson.USeq)
		if !ok {
			return nil, bad("expected a sequence")
		}
		items := make([]michelson.Value, len(seq.Items))
		for i, it := range seq.Items {
			item, err := TypecheckValue(it, x.Elem)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return michelson.VList{Items: items}, nil

	case michelson.TSet:
		seq, ok := v.(michelson.USeq)
		if !ok {
			return nil, bad("expected a sequence")
		}
		elems := make([]michelson.Value, len(seq.Items))
		for i, it := range seq.Items {
			elem, err := TypecheckValue(it, michelson.Tc{T: x.Elem})
			if err != nil {
				return nil, err
			}
			if i > 0 && michelson.Compare(elems[i-1], elem) >= 0 {
				return nil, bad("set elements must be in strict ascending order")
			}
			elems[i] = elem
		}
		return michelson.VSet{Elems: elems}, nil

	case michelson.TOperation:
		return nil, bad("operations have no literal syntax")

	case michelson.TContract:
		s, ok := v.(michelson.UString)
		if !ok {
			return nil, bad("expected an address literal")
		}
		addr, err := michelson.ParseAddress(s.S)
		if err != nil {
			return nil, bad("%s", err)
		}
		return michelson.VContract{A: addr, Param: x.Param}, nil

	case michelson.TPair:
		p, ok := v.(michelson.UPairU)
		if !ok {
			return nil, bad("expected Pair")
		}
		l, err := TypecheckValue(p.L, x.Left)
		if err != nil {
			return nil, err
		}
		r, err := TypecheckValue(p.R, x.Right)
		if err != nil {
			return nil, err
		}
		return michelson.VPair{Car: l, Cdr: r}, nil

	case michelson.TOr:
		o, ok := v.(michelson.UOrU)
		if !ok {
			return nil, bad("expected Left or Right")
		}
		arm := x.Left
		if o.IsRight {
			arm = x.Right
		}
		inner, err := TypecheckValue(o.V, arm)
		if err != nil {
			return nil, err
		}
		return michelson.VOr{IsRight: o.IsRight, V: inner}, nil

	case michelson.TLambda:
		l, ok := v.(michelson.ULambdaU)
		if !ok {
			return nil, bad("expected a code block")
		}
		res, err := typecheckLambda(l.Code, x.In, x.Out)
		if err != nil {
			return nil, err
		}
		return res, nil

	case michelson.TMap:
		return typecheckMapEntries(v, t, x.Key, x.Value, false)
	case michelson.TBigMap:
		return typecheckMapEntries(v, t, x.Key, x.Value, true)

	default:
		return nil, bad("unsupported type")
	}
}

func typecheckComparable(v michelson.UValue, ct michelson.CT) (michelson.Value, errors.TCError) {
	t := michelson.Tc{T: ct}
	bad := func(msg string, args ...interface{}) errors.TCError {
		return errors.NewTCFailedOnValuef(v, t, msg, args...)
	}

	switch ct {
	case michelson.CTInt:
		n, ok := v.(michelson.UInt)
		if !ok {
			return nil, bad("expected an integer literal")
		}
		return michelson.VInt{X: n.X}, nil

	case michelson.CTNat:
		n, ok := v.(michelson.UInt)
		if !ok {
			return nil, bad("expected an integer literal")
		}
		if n.X.Sign() < 0 {
			return nil, bad("nat literal may not be negative")
		}
		return michelson.VNat{X: n.X}, nil

	case michelson.CTString:
		s, ok := v.(michelson.UString)
		if !ok {
			return nil, bad("expected a string literal")
		}
		return michelson.VString{S: s.S}, nil

	case michelson.CTBytes:
		b, ok := v.(michelson.UBytes)
		if !ok {
			return nil, bad("expected a bytes literal")
		}
		return michelson.VBytes{B: b.B}, nil

	case michelson.CTMutez:
		n, ok := v.(michelson.UInt)
		if !ok {
			return nil, bad("expected an integer literal")
		}
		if !n.X.IsInt64() {
			return nil, bad("mutez literal out of range")
		}
		m, err := michelson.NewMutez(n.X.Int64())
		if err != nil {
			return nil, bad("%s", err)
		}
		return michelson.VMutez{M: m}, nil

	case michelson.CTBool:
		b, ok := v.(michelson.UBool)
		if !ok {
			return nil, bad("expected True or False")
		}
		return michelson.VBool{B: b.B}, nil

	case michelson.CTKeyHash:
		s, ok := v.(michelson.UString)
		if !ok {
			return nil, bad("expected a key hash literal")
		}
		addr, err := michelson.ParseAddress(s.S)
		if err != nil {
			return nil, bad("%s", err)
		}
		if addr.Kind == michelson.AddrKT1 {
			return nil, bad("a contract address is not a key hash")
		}
		return michelson.VKeyHash{KH: michelson.KeyHash{Curve: uint8(addr.Kind), Hash: addr.Hash}}, nil

	case michelson.CTTimestamp:
		switch s := v.(type) {
		case michelson.UInt:
			if !s.X.IsInt64() {
				return nil, bad("timestamp literal out of range")
			}
			return michelson.VTimestamp{T: s.X.Int64()}, nil
		case michelson.UString:
			ts, err := time.Parse(time.RFC3339, s.S)
			if err != nil {
				return nil, bad("%s", err)
			}
			return michelson.VTimestamp{T: ts.Unix()}, nil
		default:
			return nil, bad("expected an integer or RFC3339 literal")
		}

	case michelson.CTAddress:
		s, ok := v.(michelson.UString)
		if !ok {
			return nil, bad("expected an address literal")
		}
		addr, err := michelson.ParseAddress(s.S)
		if err != nil {
			return nil, bad("%s", err)
		}
		return michelson.VAddress{A: addr}, nil

	default:
		return nil, bad("unknown comparable type")
	}
}

func typecheckMapEntries(v michelson.UValue, t michelson.Type, kt michelson.CT, vt michelson.Type, big bool) (michelson.Value, errors.TCError) {
	m, ok := v.(michelson.UMapU)
	if !ok {
		return nil, errors.NewTCFailedOnValuef(v, t, "expected a sequence of Elt bindings")
	}
	entries := make([]michelson.MapEntry, len(m.Elts))
	for i, e := range m.Elts {
		k, err := TypecheckValue(e.K, michelson.Tc{T: kt})
		if err != nil {
			return nil, err
		}
		if i > 0 && michelson.Compare(entries[i-1].Key, k) >= 0 {
			return nil, errors.NewTCFailedOnValuef(v, t, "map keys must be in strict ascending order")
		}
		val, err := TypecheckValue(e.V, vt)
		if err != nil {
			return nil, err
		}
		entries[i] = michelson.MapEntry{Key: k, Val: val}
	}
	if big {
		return michelson.VBigMap{Entries: entries}, nil
	}
	return michelson.VMap{Entries: entries}, nil
}

// typecheckLambda checks a code literal from a one-element stack [in] to
// [out].
func typecheckLambda(code []michelson.UInstr, in, out michelson.Type) (michelson.VLambda, errors.TCError) {
	c := newChecker(nil)
	typed, outStack, terminal, err := c.checkSeq(code, michelson.HST{michelson.NewStackItem(in)})
	if err != nil {
		return michelson.VLambda{}, err
	}
	if !terminal {
		if len(outStack) != 1 || !michelson.TypesEqual(outStack[0].Type, out) {
			return michelson.VLambda{}, errors.NewTCFailedOnValuef(
				michelson.ULambdaU{Code: code}, michelson.TLambda{In: in, Out: out},
				"lambda body produces %s", outStack)
		}
	}
	return michelson.VLambda{In: in, Out: out, Code: typed}, nil
}
