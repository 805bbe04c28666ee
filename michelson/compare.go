package michelson

import (
	"bytes"
	"fmt"
)

// Compare orders two comparable values of the same type following the
// Michelson specification: numeric order for int, nat, mutez and timestamp,
// byte-lexicographic order for string, bytes, key_hash and address, and
// False < True for bool. It panics on non-comparable values; the type
// checker guarantees COMPARE and collection keys only see comparable ones.
func Compare(a, b Value) int {
	switch x := a.(type) {
	case VInt:
		return x.X.Cmp(b.(VInt).X)
	case VNat:
		return x.X.Cmp(b.(VNat).X)
	case VString:
		return bytes.Compare([]byte(x.S), []byte(b.(VString).S))
	case VBytes:
		return bytes.Compare(x.B, b.(VBytes).B)
	case VMutez:
		y := b.(VMutez)
		switch {
		case x.M < y.M:
			return -1
		case x.M > y.M:
			return 1
		default:
			return 0
		}
	case VBool:
		y := b.(VBool)
		switch {
		case !x.B && y.B:
			return -1
		case x.B && !y.B:
			return 1
		default:
			return 0
		}
	case VKeyHash:
		y := b.(VKeyHash)
		if x.KH.Curve != y.KH.Curve {
			if x.KH.Curve < y.KH.Curve {
				return -1
			}
			return 1
		}
		return bytes.Compare(x.KH.Hash[:], y.KH.Hash[:])
	case VTimestamp:
		y := b.(VTimestamp)
		switch {
		case x.T < y.T:
			return -1
		case x.T > y.T:
			return 1
		default:
			return 0
		}
	case VAddress:
		y := b.(VAddress)
		if x.A.Kind != y.A.Kind {
			if x.A.Kind < y.A.Kind {
				return -1
			}
			return 1
		}
		return bytes.Compare(x.A.Hash[:], y.A.Hash[:])
	default:
		panic(fmt.Sprintf("comparing non-comparable value %T", a))
	}
}
