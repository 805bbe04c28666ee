package michelson

import "fmt"

// OpCode identifies a Michelson instruction. The same codes are used by the
// untyped AST and the typed instruction tree; the Morley extension
// meta-instructions occupy the tail of the range.
type OpCode uint8

const (
	OpDrop OpCode = iota
	OpDup
	OpSwap
	OpPush
	OpSome
	OpNone
	OpUnit
	OpIfNone
	OpPair
	OpCar
	OpCdr
	OpLeft
	OpRight
	OpIfLeft
	OpNil
	OpCons
	OpIfCons
	OpSize
	OpEmptySet
	OpEmptyMap
	OpMap
	OpIter
	OpMem
	OpGet
	OpUpdate
	OpIf
	OpLoop
	OpLoopLeft
	OpLambda
	OpExec
	OpDip
	OpFailWith
	OpCast
	OpRename
	OpConcat
	OpSlice
	OpIsNat
	OpAdd
	OpSub
	OpMul
	OpEDiv
	OpAbs
	OpNeg
	OpLsl
	OpLsr
	OpOr
	OpAnd
	OpXor
	OpNot
	OpCompare
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpInt
	OpSelf
	OpContract
	OpTransferTokens
	OpSetDelegate
	OpCreateAccount
	OpCreateContract
	OpImplicitAccount
	OpNow
	OpAmount
	OpBalance
	OpCheckSignature
	OpSha256
	OpSha512
	OpBlake2b
	OpHashKey
	OpStepsToQuota
	OpSource
	OpSender
	OpAddress

	// Morley extension meta-instructions.
	OpExtStackType
	OpExtFn
	OpExtPrint
	OpExtTestAssert
)

var opNames = map[OpCode]string{
	OpDrop:            "DROP",
	OpDup:             "DUP",
	OpSwap:            "SWAP",
	OpPush:            "PUSH",
	OpSome:            "SOME",
	OpNone:            "NONE",
	OpUnit:            "UNIT",
	OpIfNone:          "IF_NONE",
	OpPair:            "PAIR",
	OpCar:             "CAR",
	OpCdr:             "CDR",
	OpLeft:            "LEFT",
	OpRight:           "RIGHT",
	OpIfLeft:          "IF_LEFT",
	OpNil:             "NIL",
	OpCons:            "CONS",
	OpIfCons:          "IF_CONS",
	OpSize:            "SIZE",
	OpEmptySet:        "EMPTY_SET",
	OpEmptyMap:        "EMPTY_MAP",
	OpMap:             "MAP",
	OpIter:            "ITER",
	OpMem:             "MEM",
	OpGet:             "GET",
	OpUpdate:          "UPDATE",
	OpIf:              "IF",
	OpLoop:            "LOOP",
	OpLoopLeft:        "LOOP_LEFT",
	OpLambda:          "LAMBDA",
	OpExec:            "EXEC",
	OpDip:             "DIP",
	OpFailWith:        "FAILWITH",
	OpCast:            "CAST",
	OpRename:          "RENAME",
	OpConcat:          "CONCAT",
	OpSlice:           "SLICE",
	OpIsNat:           "ISNAT",
	OpAdd:             "ADD",
	OpSub:             "SUB",
	OpMul:             "MUL",
	OpEDiv:            "EDIV",
	OpAbs:             "ABS",
	OpNeg:             "NEG",
	OpLsl:             "LSL",
	OpLsr:             "LSR",
	OpOr:              "OR",
	OpAnd:             "AND",
	OpXor:             "XOR",
	OpNot:             "NOT",
	OpCompare:         "COMPARE",
	OpEq:              "EQ",
	OpNeq:             "NEQ",
	OpLt:              "LT",
	OpGt:              "GT",
	OpLe:              "LE",
	OpGe:              "GE",
	OpInt:             "INT",
	OpSelf:            "SELF",
	OpContract:        "CONTRACT",
	OpTransferTokens:  "TRANSFER_TOKENS",
	OpSetDelegate:     "SET_DELEGATE",
	OpCreateAccount:   "CREATE_ACCOUNT",
	OpCreateContract:  "CREATE_CONTRACT",
	OpImplicitAccount: "IMPLICIT_ACCOUNT",
	OpNow:             "NOW",
	OpAmount:          "AMOUNT",
	OpBalance:         "BALANCE",
	OpCheckSignature:  "CHECK_SIGNATURE",
	OpSha256:          "SHA256",
	OpSha512:          "SHA512",
	OpBlake2b:         "BLAKE2B",
	OpHashKey:         "HASH_KEY",
	OpStepsToQuota:    "STEPS_TO_QUOTA",
	OpSource:          "SOURCE",
	OpSender:          "SENDER",
	OpAddress:         "ADDRESS",
	OpExtStackType:    "STACKTYPE",
	OpExtFn:           "FN",
	OpExtPrint:        "PRINT",
	OpExtTestAssert:   "TEST_ASSERT",
}

func (op OpCode) String() string {
	name, ok := opNames[op]
	if !ok {
		panic(fmt.Sprintf("unknown opcode %d", uint8(op)))
	}
	return name
}

// IsExtension reports whether the opcode is a Morley meta-instruction rather
// than a Michelson one.
func (op OpCode) IsExtension() bool { return op >= OpExtStackType }
