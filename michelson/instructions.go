package michelson

import (
	"fmt"
	"strings"
)

// Instr is one node of the typed instruction tree produced by the type
// checker. The compile-time stack indices of the source encoding are erased;
// the checker re-establishes them and records any payload the interpreter
// needs (pushed values, resolved type arguments, sub-trees).
//
// Which fields are populated depends on Op:
//
//	Push          PUSH (the already type-checked literal)
//	Typ           PUSH, NONE, NIL, LEFT/RIGHT (other arm), EMPTY_SET (elem),
//	              CONTRACT, SELF (parameter), LAMBDA (input), CAST
//	Typ2          LAMBDA (output)
//	KeyT, ValT    EMPTY_MAP
//	BodyA         IF/IF_NONE/IF_LEFT/IF_CONS (true/first branch), DIP, MAP,
//	              ITER, LOOP, LOOP_LEFT, LAMBDA, TEST_ASSERT
//	BodyB         IF/IF_NONE/IF_LEFT/IF_CONS (second branch)
//	Print         PRINT
//	Name          TEST_ASSERT
type Instr struct {
	Op    OpCode
	Push  Value
	Typ   Type
	Typ2  Type
	KeyT  CT
	ValT  Type
	BodyA []Instr
	BodyB []Instr
	Print *PrintComment
	Name  string

	// Contract is the checked code block of CREATE_CONTRACT.
	Contract *Contract

	// Var is the variable annotation the checker attached to the result;
	// it is diagnostic only and does not affect execution.
	Var VarAnn
}

func (i Instr) String() string {
	switch i.Op {
	case OpPush:
		return fmt.Sprintf("PUSH %s %s", i.Typ, i.Push)
	case OpNone, OpNil, OpLeft, OpRight, OpContract, OpCast:
		return fmt.Sprintf("%s %s", i.Op, i.Typ)
	case OpEmptySet:
		return fmt.Sprintf("EMPTY_SET %s", i.Typ)
	case OpEmptyMap:
		return fmt.Sprintf("EMPTY_MAP %s %s", i.KeyT, i.ValT)
	case OpLambda:
		return fmt.Sprintf("LAMBDA %s %s %s", i.Typ, i.Typ2, printInstrSeq(i.BodyA))
	case OpDip, OpMap, OpIter, OpLoop, OpLoopLeft:
		return fmt.Sprintf("%s %s", i.Op, printInstrSeq(i.BodyA))
	case OpIf, OpIfNone, OpIfLeft, OpIfCons:
		return fmt.Sprintf("%s %s %s", i.Op, printInstrSeq(i.BodyA), printInstrSeq(i.BodyB))
	case OpExtTestAssert:
		return fmt.Sprintf("TEST_ASSERT %q %s", i.Name, printInstrSeq(i.BodyA))
	default:
		return i.Op.String()
	}
}

func printInstrSeq(code []Instr) string {
	parts := make([]string, len(code))
	for i, ins := range code {
		parts[i] = ins.String()
	}
	return "{ " + strings.Join(parts, " ; ") + " }"
}

// PrintInstrs renders a typed instruction sequence in conventional Michelson
// syntax.
func PrintInstrs(code []Instr) string { return printInstrSeq(code) }

// PrintComment is the payload of the PRINT meta-instruction: literal text
// interleaved with references into the current stack.
type PrintComment struct {
	Parts []PrintPart
}

// PrintPart is either literal text (Ref == nil) or a stack reference.
type PrintPart struct {
	Text string
	Ref  *StackRef
}

// StackRef indexes the stack from the top; the extension checker verifies it
// is in range before it reaches the interpreter.
type StackRef struct {
	Idx int
}

func (r StackRef) String() string { return fmt.Sprintf("%%[%d]", r.Idx) }

// Contract is a fully type-checked contract: code from
// [pair(Param, Storage)] to [pair(list(operation), Storage)].
type Contract struct {
	Param   Type
	Storage Type

	ParamNotes   *Notes
	StorageNotes *Notes

	Code []Instr
}

func (c *Contract) String() string {
	return fmt.Sprintf("parameter %s; storage %s; code %s;", c.Param, c.Storage, printInstrSeq(c.Code))
}
