package michelson

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// PublicKey is an ed25519 public key. Signature checking is delegated to the
// standard library; the value model only transports the bytes.
type PublicKey = ed25519.PublicKey

// Signature is a detached ed25519 signature.
type Signature []byte

// Value is a well-typed Michelson value. Values are immutable: every
// operation that "modifies" a collection returns a fresh value.
type Value interface {
	isValue()
	String() string
}

type (
	// VInt is a value of type int (arbitrary precision).
	VInt struct{ X *big.Int }
	// VNat is a value of type nat (non-negative, arbitrary precision).
	VNat struct{ X *big.Int }
	// VString is a value of type string.
	VString struct{ S string }
	// VBytes is a value of type bytes.
	VBytes struct{ B []byte }
	// VMutez is a value of type mutez.
	VMutez struct{ M Mutez }
	// VBool is a value of type bool.
	VBool struct{ B bool }
	// VKeyHash is a value of type key_hash.
	VKeyHash struct{ KH KeyHash }
	// VTimestamp is a value of type timestamp, in signed seconds since
	// the epoch.
	VTimestamp struct{ T int64 }
	// VAddress is a value of type address.
	VAddress struct{ A Address }
	// VKey is a value of type key.
	VKey struct{ K PublicKey }
	// VSignature is a value of type signature.
	VSignature struct{ S Signature }
	// VUnit is the unit value.
	VUnit struct{}
	// VOption is a value of type option; Some is nil for None.
	VOption struct{ Some Value }
	// VList is a value of type list.
	VList struct{ Items []Value }
	// VSet is a value of a set type. Elements are comparable values in
	// strictly ascending order; the invariant is maintained by SetInsert
	// and SetDelete.
	VSet struct{ Elems []Value }
	// VPair is a value of a pair type.
	VPair struct{ Car, Cdr Value }
	// VOr is a value of an or type.
	VOr struct {
		IsRight bool
		V       Value
	}
	// VLambda is a value of a lambda type: a typed instruction sequence
	// from a one-element stack to a one-element stack.
	VLambda struct {
		In, Out Type
		Code    []Instr
	}
	// VMap is a value of a map type. Entries are keyed by comparable
	// values in strictly ascending key order with no duplicates.
	VMap struct{ Entries []MapEntry }
	// VBigMap is a value of a big_map type, materialized exactly like a
	// plain map.
	VBigMap struct{ Entries []MapEntry }
	// VContract is a value of a contract type; it carries only the
	// address (and the parameter type for reflection).
	VContract struct {
		A     Address
		Param Type
	}
	// VOp is an emitted blockchain operation.
	VOp struct{ Op Operation }
)

// MapEntry is one key/value binding of a map or big_map.
type MapEntry struct {
	Key, Val Value
}

func (VInt) isValue()       {}
func (VNat) isValue()       {}
func (VString) isValue()    {}
func (VBytes) isValue()     {}
func (VMutez) isValue()     {}
func (VBool) isValue()      {}
func (VKeyHash) isValue()   {}
func (VTimestamp) isValue() {}
func (VAddress) isValue()   {}
func (VKey) isValue()       {}
func (VSignature) isValue() {}
func (VUnit) isValue()      {}
func (VOption) isValue()    {}
func (VList) isValue()      {}
func (VSet) isValue()       {}
func (VPair) isValue()      {}
func (VOr) isValue()        {}
func (VLambda) isValue()    {}
func (VMap) isValue()       {}
func (VBigMap) isValue()    {}
func (VContract) isValue()  {}
func (VOp) isValue()        {}

// Integer constructors for the common literal cases.
func IntV(x int64) VInt  { return VInt{big.NewInt(x)} }
func NatV(x uint64) VNat { return VNat{new(big.Int).SetUint64(x)} }

func (v VInt) String() string    { return v.X.String() }
func (v VNat) String() string    { return v.X.String() }
func (v VString) String() string { return strconv.Quote(v.S) }
func (v VBytes) String() string  { return "0x" + hex.EncodeToString(v.B) }
func (v VMutez) String() string  { return v.M.String() }
func (v VBool) String() string {
	if v.B {
		return "True"
	}
	return "False"
}
func (v VKeyHash) String() string   { return strconv.Quote(v.KH.String()) }
func (v VTimestamp) String() string { return strconv.FormatInt(v.T, 10) }
func (v VAddress) String() string   { return strconv.Quote(v.A.String()) }
func (v VKey) String() string       { return "0x" + hex.EncodeToString(v.K) }
func (v VSignature) String() string { return "0x" + hex.EncodeToString(v.S) }
func (VUnit) String() string        { return "Unit" }

func (v VOption) String() string {
	if v.Some == nil {
		return "None"
	}
	return fmt.Sprintf("(Some %s)", v.Some)
}

func (v VList) String() string { return printSeq(v.Items) }
func (v VSet) String() string  { return printSeq(v.Elems) }

func (v VPair) String() string { return fmt.Sprintf("(Pair %s %s)", v.Car, v.Cdr) }

func (v VOr) String() string {
	if v.IsRight {
		return fmt.Sprintf("(Right %s)", v.V)
	}
	return fmt.Sprintf("(Left %s)", v.V)
}

func (v VLambda) String() string { return printInstrSeq(v.Code) }

func (v VMap) String() string    { return printMap(v.Entries) }
func (v VBigMap) String() string { return printMap(v.Entries) }

func (v VContract) String() string { return strconv.Quote(v.A.String()) }
func (v VOp) String() string       { return v.Op.String() }

func printSeq(items []Value) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return "{ " + strings.Join(parts, " ; ") + " }"
}

func printMap(entries []MapEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("Elt %s %s", e.Key, e.Val)
	}
	return "{ " + strings.Join(parts, " ; ") + " }"
}

// SetMember reports whether x is an element of the set.
func (v VSet) SetMember(x Value) bool {
	i := sort.Search(len(v.Elems), func(i int) bool { return Compare(v.Elems[i], x) >= 0 })
	return i < len(v.Elems) && Compare(v.Elems[i], x) == 0
}

// SetUpdate inserts (add=true) or removes (add=false) x, returning a new
// set; the receiver is unchanged.
func (v VSet) SetUpdate(x Value, add bool) VSet {
	i := sort.Search(len(v.Elems), func(i int) bool { return Compare(v.Elems[i], x) >= 0 })
	present := i < len(v.Elems) && Compare(v.Elems[i], x) == 0
	switch {
	case add && !present:
		out := make([]Value, 0, len(v.Elems)+1)
		out = append(out, v.Elems[:i]...)
		out = append(out, x)
		out = append(out, v.Elems[i:]...)
		return VSet{Elems: out}
	case !add && present:
		out := make([]Value, 0, len(v.Elems)-1)
		out = append(out, v.Elems[:i]...)
		out = append(out, v.Elems[i+1:]...)
		return VSet{Elems: out}
	default:
		return v
	}
}

func mapGet(entries []MapEntry, k Value) (Value, bool) {
	i := sort.Search(len(entries), func(i int) bool { return Compare(entries[i].Key, k) >= 0 })
	if i < len(entries) && Compare(entries[i].Key, k) == 0 {
		return entries[i].Val, true
	}
	return nil, false
}

func mapUpdate(entries []MapEntry, k Value, val Value) []MapEntry {
	i := sort.Search(len(entries), func(i int) bool { return Compare(entries[i].Key, k) >= 0 })
	present := i < len(entries) && Compare(entries[i].Key, k) == 0
	switch {
	case val != nil && present:
		out := append([]MapEntry{}, entries...)
		out[i].Val = val
		return out
	case val != nil:
		out := make([]MapEntry, 0, len(entries)+1)
		out = append(out, entries[:i]...)
		out = append(out, MapEntry{Key: k, Val: val})
		out = append(out, entries[i:]...)
		return out
	case present:
		out := make([]MapEntry, 0, len(entries)-1)
		out = append(out, entries[:i]...)
		out = append(out, entries[i+1:]...)
		return out
	default:
		return entries
	}
}

// MapGet looks k up in the map.
func (v VMap) MapGet(k Value) (Value, bool) { return mapGet(v.Entries, k) }

// MapUpdate binds k to val (or removes k when val is nil), returning a new
// map.
func (v VMap) MapUpdate(k Value, val Value) VMap { return VMap{Entries: mapUpdate(v.Entries, k, val)} }

// MapGet looks k up in the big map.
func (v VBigMap) MapGet(k Value) (Value, bool) { return mapGet(v.Entries, k) }

// MapUpdate binds k to val (or removes k when val is nil), returning a new
// big map.
func (v VBigMap) MapUpdate(k Value, val Value) VBigMap {
	return VBigMap{Entries: mapUpdate(v.Entries, k, val)}
}

// ValuesEqual reports structural equality of two values of the same type.
func ValuesEqual(a, b Value) bool {
	switch x := a.(type) {
	case VInt:
		y, ok := b.(VInt)
		return ok && x.X.Cmp(y.X) == 0
	case VNat:
		y, ok := b.(VNat)
		return ok && x.X.Cmp(y.X) == 0
	case VString:
		y, ok := b.(VString)
		return ok && x.S == y.S
	case VBytes:
		y, ok := b.(VBytes)
		return ok && string(x.B) == string(y.B)
	case VMutez:
		y, ok := b.(VMutez)
		return ok && x.M == y.M
	case VBool:
		y, ok := b.(VBool)
		return ok && x.B == y.B
	case VKeyHash:
		y, ok := b.(VKeyHash)
		return ok && x.KH == y.KH
	case VTimestamp:
		y, ok := b.(VTimestamp)
		return ok && x.T == y.T
	case VAddress:
		y, ok := b.(VAddress)
		return ok && x.A == y.A
	case VKey:
		y, ok := b.(VKey)
		return ok && string(x.K) == string(y.K)
	case VSignature:
		y, ok := b.(VSignature)
		return ok && string(x.S) == string(y.S)
	case VUnit:
		_, ok := b.(VUnit)
		return ok
	case VOption:
		y, ok := b.(VOption)
		if !ok {
			return false
		}
		if x.Some == nil || y.Some == nil {
			return x.Some == nil && y.Some == nil
		}
		return ValuesEqual(x.Some, y.Some)
	case VList:
		y, ok := b.(VList)
		return ok && valueSlicesEqual(x.Items, y.Items)
	case VSet:
		y, ok := b.(VSet)
		return ok && valueSlicesEqual(x.Elems, y.Elems)
	case VPair:
		y, ok := b.(VPair)
		return ok && ValuesEqual(x.Car, y.Car) && ValuesEqual(x.Cdr, y.Cdr)
	case VOr:
		y, ok := b.(VOr)
		return ok && x.IsRight == y.IsRight && ValuesEqual(x.V, y.V)
	case VLambda:
		y, ok := b.(VLambda)
		return ok && x.String() == y.String()
	case VMap:
		y, ok := b.(VMap)
		return ok && mapEntriesEqual(x.Entries, y.Entries)
	case VBigMap:
		y, ok := b.(VBigMap)
		return ok && mapEntriesEqual(x.Entries, y.Entries)
	case VContract:
		y, ok := b.(VContract)
		return ok && x.A == y.A
	case VOp:
		y, ok := b.(VOp)
		return ok && x.Op.String() == y.Op.String()
	default:
		panic(fmt.Sprintf("unknown value node %T", a))
	}
}

func valueSlicesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ValuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func mapEntriesEqual(a, b []MapEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ValuesEqual(a[i].Key, b[i].Key) || !ValuesEqual(a[i].Val, b[i].Val) {
			return false
		}
	}
	return true
}
