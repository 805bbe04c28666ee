package michelson

import "math/big"

// UInstr is one untyped instruction as delivered by the surface parser
// (which is outside this module). A single struct with optional payloads
// stands in for the per-opcode constructors of the source encoding.
type UInstr struct {
	Op OpCode

	// Type arguments: PUSH t, NONE t, NIL t, LEFT t (right arm),
	// RIGHT t (left arm), EMPTY_SET t, CONTRACT t, CAST t, LAMBDA t1 t2
	// (Typ/Typ2), EMPTY_MAP kt vt (Typ/Typ2).
	Typ  Type
	Typ2 Type

	// Push is the literal argument of PUSH.
	Push UValue

	// Sub-sequences: branches, DIP/ITER/MAP/LOOP bodies, LAMBDA code,
	// FN and TEST_ASSERT bodies.
	BodyA []UInstr
	BodyB []UInstr

	// Contract is the code block argument of CREATE_CONTRACT.
	Contract *UContract

	// Annotations written on the instruction.
	TypeAnn TypeAnn
	Var     VarAnn
	Var2    VarAnn // second result of CREATE_ACCOUNT / CREATE_CONTRACT
	Field   FieldAnn
	Field2  FieldAnn

	// Extension payloads.
	StackType *StackTypePattern // STACKTYPE
	Fn        *FnPattern        // FN (body in BodyA)
	Print     *PrintComment     // PRINT
	Name      string            // FN / TEST_ASSERT name
	Comment   *PrintComment     // TEST_ASSERT comment
}

// UContract is an untyped contract: declared parameter and storage types
// plus unchecked code.
type UContract struct {
	Param   Type
	Storage Type
	Code    []UInstr
}

// UValue is an untyped value literal. Its meaning depends on the type it is
// checked against: a string literal may become a string, an address, a key
// hash or a timestamp.
type UValue interface{ isUValue() }

type (
	// UInt covers int, nat, mutez and timestamp literals.
	UInt struct{ X *big.Int }
	// UString covers string, address, key hash and timestamp literals.
	UString struct{ S string }
	// UBytes covers bytes, key and signature literals.
	UBytes struct{ B []byte }
	// UBool is True or False.
	UBool struct{ B bool }
	// UUnit is Unit.
	UUnit struct{}
	// UPairU is Pair l r.
	UPairU struct{ L, R UValue }
	// UOrU is Left v or Right v.
	UOrU struct {
		IsRight bool
		V       UValue
	}
	// USome is Some v.
	USome struct{ V UValue }
	// UNone is None.
	UNone struct{}
	// USeq is a sequence literal for lists and sets.
	USeq struct{ Items []UValue }
	// UMapU is a sequence of Elt bindings for maps and big maps.
	UMapU struct{ Elts []UEltU }
	// ULambdaU is a code literal for lambda values.
	ULambdaU struct{ Code []UInstr }
)

// UEltU is one Elt k v binding of a map literal.
type UEltU struct{ K, V UValue }

func (UInt) isUValue()     {}
func (UString) isUValue()  {}
func (UBytes) isUValue()   {}
func (UBool) isUValue()    {}
func (UUnit) isUValue()    {}
func (UPairU) isUValue()   {}
func (UOrU) isUValue()     {}
func (USome) isUValue()    {}
func (UNone) isUValue()    {}
func (USeq) isUValue()     {}
func (UMapU) isUValue()    {}
func (ULambdaU) isUValue() {}

// StackTypePattern is the argument of STACKTYPE and the in/out shapes of FN:
// a concrete prefix of types and named type variables, optionally ending in
// an open tail ("...").
type StackTypePattern struct {
	Items []PatternItem
	Open  bool
}

// PatternItem is one pattern position: either a named type variable
// (TyVar != "") or a concrete type with optional annotations.
type PatternItem struct {
	TyVar string
	Type  Type
	Notes *Notes
}

// FnPattern is the stack signature declared by an FN frame.
type FnPattern struct {
	Quantified []string
	In         StackTypePattern
	Out        StackTypePattern
}

// Simple construction helpers used heavily in tests.

// Prim builds an instruction with no payload.
func Prim(op OpCode) UInstr { return UInstr{Op: op} }

// PushU builds PUSH t v.
func PushU(t Type, v UValue) UInstr { return UInstr{Op: OpPush, Typ: t, Push: v} }

// PushIntU builds PUSH int n.
func PushIntU(n int64) UInstr { return PushU(IntT, UInt{big.NewInt(n)}) }

// Seq wraps instructions as a slice, for readability at call sites.
func Seq(instrs ...UInstr) []UInstr { return instrs }
