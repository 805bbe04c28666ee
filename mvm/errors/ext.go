package errors

import (
	"errors"
	"fmt"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// ExtError is implemented by the errors the Morley extension checker
// produces; they surface wrapped in a TCExtError.
type ExtError interface {
	error
	Code() ErrorCode
	extError()
}

// LengthMismatch reports a stack pattern whose length disagrees with the
// stack being matched.
type LengthMismatch struct {
	Pattern michelson.StackTypePattern
}

// NewLengthMismatch constructs a new LengthMismatch.
func NewLengthMismatch(pattern michelson.StackTypePattern) *LengthMismatch {
	return &LengthMismatch{Pattern: pattern}
}

func (e *LengthMismatch) Error() string {
	return fmt.Sprintf("%s stack pattern of %d items does not fit the stack", e.Code(), len(e.Pattern.Items))
}

func (e *LengthMismatch) Code() ErrorCode { return ErrCodeLengthMismatch }
func (*LengthMismatch) extError()         {}

// TypeMismatch reports a pattern position whose type disagrees with the
// stack.
type TypeMismatch struct {
	Pos      int
	Expected michelson.Type
	Actual   michelson.Type
}

// NewTypeMismatch constructs a new TypeMismatch.
func NewTypeMismatch(pos int, expected, actual michelson.Type) *TypeMismatch {
	return &TypeMismatch{Pos: pos, Expected: expected, Actual: actual}
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("%s type mismatch at stack position %d: pattern has %s, stack has %s",
		e.Code(), e.Pos, e.Expected, e.Actual)
}

func (e *TypeMismatch) Code() ErrorCode { return ErrCodeTypeMismatch }
func (*TypeMismatch) extError()         {}

// IsTypeMismatch returns true if err has this type.
func IsTypeMismatch(err error) bool {
	var t *TypeMismatch
	return errors.As(err, &t)
}

// StkRestMismatch reports that the open tails of two matched stacks differ.
type StkRestMismatch struct {
	Msg string
}

// NewStkRestMismatchf constructs a new StkRestMismatch.
func NewStkRestMismatchf(msg string, args ...interface{}) *StkRestMismatch {
	return &StkRestMismatch{Msg: fmt.Sprintf(msg, args...)}
}

func (e *StkRestMismatch) Error() string {
	return fmt.Sprintf("%s stack tails do not match: %s", e.Code(), e.Msg)
}

func (e *StkRestMismatch) Code() ErrorCode { return ErrCodeStkRestMismatch }
func (*StkRestMismatch) extError()         {}

// VarError reports a type variable bound to two different types.
type VarError struct {
	Name     string
	Bound    michelson.Type
	Conflict michelson.Type
}

// NewVarError constructs a new VarError.
func NewVarError(name string, bound, conflict michelson.Type) *VarError {
	return &VarError{Name: name, Bound: bound, Conflict: conflict}
}

func (e *VarError) Error() string {
	return fmt.Sprintf("%s type variable %q is bound to %s but matched against %s",
		e.Code(), e.Name, e.Bound, e.Conflict)
}

func (e *VarError) Code() ErrorCode { return ErrCodeVarError }
func (*VarError) extError()         {}

// IsVarError returns true if err has this type.
func IsVarError(err error) bool {
	var t *VarError
	return errors.As(err, &t)
}

// AnnError wraps an annotation convergence failure.
type AnnError struct {
	Err *michelson.AnnConvergeError
}

// NewAnnError constructs a new AnnError.
func NewAnnError(err *michelson.AnnConvergeError) *AnnError { return &AnnError{Err: err} }

func (e *AnnError) Error() string {
	return fmt.Sprintf("%s %s", e.Code(), e.Err)
}

func (e *AnnError) Code() ErrorCode { return ErrCodeAnnError }
func (e *AnnError) Unwrap() error   { return e.Err }
func (*AnnError) extError()         {}

// IsAnnError returns true if err has this type.
func IsAnnError(err error) bool {
	var t *AnnError
	return errors.As(err, &t)
}

// TyVarMismatch reports a quantified variable of an FN frame that its input
// pattern never mentions.
type TyVarMismatch struct {
	Name string
}

// NewTyVarMismatch constructs a new TyVarMismatch.
func NewTyVarMismatch(name string) *TyVarMismatch { return &TyVarMismatch{Name: name} }

func (e *TyVarMismatch) Error() string {
	return fmt.Sprintf("%s quantified type variable %q does not occur in the input pattern", e.Code(), e.Name)
}

func (e *TyVarMismatch) Code() ErrorCode { return ErrCodeTyVarMismatch }
func (*TyVarMismatch) extError()         {}

// TestAssertError reports a TEST_ASSERT body that cannot produce a boolean.
type TestAssertError struct {
	Name string
	Msg  string
}

// NewTestAssertErrorf constructs a new TestAssertError.
func NewTestAssertErrorf(name, msg string, args ...interface{}) *TestAssertError {
	return &TestAssertError{Name: name, Msg: fmt.Sprintf(msg, args...)}
}

func (e *TestAssertError) Error() string {
	return fmt.Sprintf("%s TEST_ASSERT %q: %s", e.Code(), e.Name, e.Msg)
}

func (e *TestAssertError) Code() ErrorCode { return ErrCodeTestAssertError }
func (*TestAssertError) extError()         {}

// InvalidStackReference reports a PRINT stack reference beyond the stack
// depth.
type InvalidStackReference struct {
	Ref       michelson.StackRef
	StackSize int
}

// NewInvalidStackReference constructs a new InvalidStackReference.
func NewInvalidStackReference(ref michelson.StackRef, stackSize int) *InvalidStackReference {
	return &InvalidStackReference{Ref: ref, StackSize: stackSize}
}

func (e *InvalidStackReference) Error() string {
	return fmt.Sprintf("%s stack reference %s is out of range for a stack of %d items",
		e.Code(), e.Ref, e.StackSize)
}

func (e *InvalidStackReference) Code() ErrorCode { return ErrCodeInvalidStackReference }
func (*InvalidStackReference) extError()         {}

// IsInvalidStackReference returns true if err has this type.
func IsInvalidStackReference(err error) bool {
	var t *InvalidStackReference
	return errors.As(err, &t)
}
