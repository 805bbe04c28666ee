// Package michelson holds the data model of the Michelson language: the type
// algebra, structural annotations, typed values, typed and untyped
// instruction trees, blockchain operations and addresses.
//
// The package is deliberately free of execution logic; type checking lives in
// mvm/typechecker and interpretation in mvm.
package michelson

import "fmt"

// CT enumerates the comparable atomic types. Comparable types can be used as
// set elements and map keys, and are the only types accepted by COMPARE.
type CT uint8

const (
	CTInt CT = iota
	CTNat
	CTString
	CTBytes
	CTMutez
	CTBool
	CTKeyHash
	CTTimestamp
	CTAddress
)

func (c CT) String() string {
	switch c {
	case CTInt:
		return "int"
	case CTNat:
		return "nat"
	case CTString:
		return "string"
	case CTBytes:
		return "bytes"
	case CTMutez:
		return "mutez"
	case CTBool:
		return "bool"
	case CTKeyHash:
		return "key_hash"
	case CTTimestamp:
		return "timestamp"
	case CTAddress:
		return "address"
	default:
		panic(fmt.Sprintf("unknown comparable type tag %d", uint8(c)))
	}
}

// Type is a node of the closed Michelson type universe. Implementations are
// the T* structs below; the universe cannot be extended from outside the
// package.
type Type interface {
	isType()
	String() string
}

type (
	// Tc is a comparable type used in a value position.
	Tc struct{ T CT }
	// TKey is the public key type.
	TKey struct{}
	// TUnit is the unit type.
	TUnit struct{}
	// TSignature is the cryptographic signature type.
	TSignature struct{}
	// TOption is option(Elem).
	TOption struct{ Elem Type }
	// TList is list(Elem).
	TList struct{ Elem Type }
	// TSet is set(Elem) with a comparable element type.
	TSet struct{ Elem CT }
	// TOperation is the type of internal blockchain operations.
	TOperation struct{}
	// TContract is contract(Param).
	TContract struct{ Param Type }
	// TPair is pair(Left, Right).
	TPair struct{ Left, Right Type }
	// TOr is or(Left, Right).
	TOr struct{ Left, Right Type }
	// TLambda is lambda(In, Out).
	TLambda struct{ In, Out Type }
	// TMap is map(Key, Value) with a comparable key type.
	TMap struct {
		Key   CT
		Value Type
	}
	// TBigMap is big_map(Key, Value). The value model materializes big maps
	// as plain maps.
	TBigMap struct {
		Key   CT
		Value Type
	}
)

func (Tc) isType()         {}
func (TKey) isType()       {}
func (TUnit) isType()      {}
func (TSignature) isType() {}
func (TOption) isType()    {}
func (TList) isType()      {}
func (TSet) isType()       {}
func (TOperation) isType() {}
func (TContract) isType()  {}
func (TPair) isType()      {}
func (TOr) isType()        {}
func (TLambda) isType()    {}
func (TMap) isType()       {}
func (TBigMap) isType()    {}

func (t Tc) String() string         { return t.T.String() }
func (TKey) String() string         { return "key" }
func (TUnit) String() string        { return "unit" }
func (TSignature) String() string   { return "signature" }
func (t TOption) String() string    { return fmt.Sprintf("(option %s)", t.Elem) }
func (t TList) String() string      { return fmt.Sprintf("(list %s)", t.Elem) }
func (t TSet) String() string       { return fmt.Sprintf("(set %s)", t.Elem) }
func (TOperation) String() string   { return "operation" }
func (t TContract) String() string  { return fmt.Sprintf("(contract %s)", t.Param) }
func (t TPair) String() string      { return fmt.Sprintf("(pair %s %s)", t.Left, t.Right) }
func (t TOr) String() string        { return fmt.Sprintf("(or %s %s)", t.Left, t.Right) }
func (t TLambda) String() string    { return fmt.Sprintf("(lambda %s %s)", t.In, t.Out) }
func (t TMap) String() string       { return fmt.Sprintf("(map %s %s)", t.Key, t.Value) }
func (t TBigMap) String() string    { return fmt.Sprintf("(big_map %s %s)", t.Key, t.Value) }

// Convenience constructors for the common atomic types.
var (
	IntT       = Tc{CTInt}
	NatT       = Tc{CTNat}
	StringT    = Tc{CTString}
	BytesT     = Tc{CTBytes}
	MutezT     = Tc{CTMutez}
	BoolT      = Tc{CTBool}
	KeyHashT   = Tc{CTKeyHash}
	TimestampT = Tc{CTTimestamp}
	AddressT   = Tc{CTAddress}
)

// TypesEqual reports structural equality of two types, ignoring annotations
// (annotations are not part of Type; they live in Notes).
func TypesEqual(a, b Type) bool {
	switch x := a.(type) {
	case Tc:
		y, ok := b.(Tc)
		return ok && x.T == y.T
	case TKey:
		_, ok := b.(TKey)
		return ok
	case TUnit:
		_, ok := b.(TUnit)
		return ok
	case TSignature:
		_, ok := b.(TSignature)
		return ok
	case TOption:
		y, ok := b.(TOption)
		return ok && TypesEqual(x.Elem, y.Elem)
	case TList:
		y, ok := b.(TList)
		return ok && TypesEqual(x.Elem, y.Elem)
	case TSet:
		y, ok := b.(TSet)
		return ok && x.Elem == y.Elem
	case TOperation:
		_, ok := b.(TOperation)
		return ok
	case TContract:
		y, ok := b.(TContract)
		return ok && TypesEqual(x.Param, y.Param)
	case TPair:
		y, ok := b.(TPair)
		return ok && TypesEqual(x.Left, y.Left) && TypesEqual(x.Right, y.Right)
	case TOr:
		y, ok := b.(TOr)
		return ok && TypesEqual(x.Left, y.Left) && TypesEqual(x.Right, y.Right)
	case TLambda:
		y, ok := b.(TLambda)
		return ok && TypesEqual(x.In, y.In) && TypesEqual(x.Out, y.Out)
	case TMap:
		y, ok := b.(TMap)
		return ok && x.Key == y.Key && TypesEqual(x.Value, y.Value)
	case TBigMap:
		y, ok := b.(TBigMap)
		return ok && x.Key == y.Key && TypesEqual(x.Value, y.Value)
	default:
		panic(fmt.Sprintf("unknown type node %T", a))
	}
}

// HasOp reports whether t contains the operation type anywhere. Types with
// operations inside are not storable and may not appear under big_map, set,
// map or a contract parameter.
func HasOp(t Type) bool {
	switch x := t.(type) {
	case TOperation:
		return true
	case TOption:
		return HasOp(x.Elem)
	case TList:
		return HasOp(x.Elem)
	case TContract:
		return HasOp(x.Param)
	case TPair:
		return HasOp(x.Left) || HasOp(x.Right)
	case TOr:
		return HasOp(x.Left) || HasOp(x.Right)
	case TLambda:
		return HasOp(x.In) || HasOp(x.Out)
	case TMap:
		return HasOp(x.Value)
	case TBigMap:
		return HasOp(x.Value)
	default:
		return false
	}
}

// ComparableOf returns the comparable tag of t if t is a comparable type.
func ComparableOf(t Type) (CT, bool) {
	c, ok := t.(Tc)
	if !ok {
		return 0, false
	}
	return c.T, true
}

// ValidateType checks the structural well-formedness constraints that the
// type constructors of the language impose: no operation type under big_map,
// set or map values, and no operation in a contract parameter.
func ValidateType(t Type) error {
	switch x := t.(type) {
	case TOption:
		return ValidateType(x.Elem)
	case TList:
		return ValidateType(x.Elem)
	case TContract:
		if HasOp(x.Param) {
			return fmt.Errorf("operation type is not allowed in a contract parameter: %s", t)
		}
		return ValidateType(x.Param)
	case TPair:
		if err := ValidateType(x.Left); err != nil {
			return err
		}
		return ValidateType(x.Right)
	case TOr:
		if err := ValidateType(x.Left); err != nil {
			return err
		}
		return ValidateType(x.Right)
	case TLambda:
		if err := ValidateType(x.In); err != nil {
			return err
		}
		return ValidateType(x.Out)
	case TMap:
		if HasOp(x.Value) {
			return fmt.Errorf("operation type is not allowed in map values: %s", t)
		}
		return ValidateType(x.Value)
	case TBigMap:
		if HasOp(x.Value) {
			return fmt.Errorf("operation type is not allowed in big_map values: %s", t)
		}
		return ValidateType(x.Value)
	default:
		return nil
	}
}
