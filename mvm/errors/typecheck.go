package errors

import (
	"errors"
	"fmt"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// TCError is implemented by every type-check error variant.
type TCError interface {
	error
	Code() ErrorCode
	tcError()
}

// TCFailedOnInstr reports that an instruction does not apply to the stack it
// was checked against.
type TCFailedOnInstr struct {
	Instr michelson.UInstr
	Stack michelson.HST
	Msg   string
}

// NewTCFailedOnInstrf constructs a new TCFailedOnInstr.
func NewTCFailedOnInstrf(instr michelson.UInstr, stack michelson.HST, msg string, args ...interface{}) *TCFailedOnInstr {
	return &TCFailedOnInstr{Instr: instr, Stack: stack, Msg: fmt.Sprintf(msg, args...)}
}

func (e *TCFailedOnInstr) Error() string {
	return fmt.Sprintf("%s type check of %s failed on stack %s: %s",
		e.Code(), e.Instr.Op, e.Stack, e.Msg)
}

func (e *TCFailedOnInstr) Code() ErrorCode { return ErrCodeTCFailedOnInstr }
func (*TCFailedOnInstr) tcError()          {}

// IsTCFailedOnInstr returns true if err has this type.
func IsTCFailedOnInstr(err error) bool {
	var t *TCFailedOnInstr
	return errors.As(err, &t)
}

// TCFailedOnValue reports that a value literal does not inhabit the type it
// was checked against.
type TCFailedOnValue struct {
	Value    michelson.UValue
	Expected michelson.Type
	Msg      string
}

// NewTCFailedOnValuef constructs a new TCFailedOnValue.
func NewTCFailedOnValuef(v michelson.UValue, expected michelson.Type, msg string, args ...interface{}) *TCFailedOnValue {
	return &TCFailedOnValue{Value: v, Expected: expected, Msg: fmt.Sprintf(msg, args...)}
}

func (e *TCFailedOnValue) Error() string {
	return fmt.Sprintf("%s value does not check against type %s: %s",
		e.Code(), e.Expected, e.Msg)
}

func (e *TCFailedOnValue) Code() ErrorCode { return ErrCodeTCFailedOnValue }
func (*TCFailedOnValue) tcError()          {}

// IsTCFailedOnValue returns true if err has this type.
func IsTCFailedOnValue(err error) bool {
	var t *TCFailedOnValue
	return errors.As(err, &t)
}

// TCExtError wraps an extension-checker error with the stack it occurred on.
type TCExtError struct {
	Stack michelson.HST
	Ext   error
}

// NewTCExtError constructs a new TCExtError.
func NewTCExtError(stack michelson.HST, ext error) *TCExtError {
	return &TCExtError{Stack: stack, Ext: ext}
}

func (e *TCExtError) Error() string {
	return fmt.Sprintf("%s extension check failed on stack %s: %s", e.Code(), e.Stack, e.Ext)
}

func (e *TCExtError) Code() ErrorCode { return ErrCodeTCExtError }
func (e *TCExtError) Unwrap() error   { return e.Ext }
func (*TCExtError) tcError()          {}

// IsTCExtError returns true if err has this type.
func IsTCExtError(err error) bool {
	var t *TCExtError
	return errors.As(err, &t)
}

// TCUnreachable marks instruction positions after an always-failing
// instruction.
type TCUnreachable struct{}

// NewTCUnreachable constructs a new TCUnreachable.
func NewTCUnreachable() *TCUnreachable { return &TCUnreachable{} }

func (e *TCUnreachable) Error() string {
	return fmt.Sprintf("%s instructions after a terminal instruction are unreachable", e.Code())
}

func (e *TCUnreachable) Code() ErrorCode { return ErrCodeTCUnreachable }
func (*TCUnreachable) tcError()          {}

// IsTCUnreachable returns true if err has this type.
func IsTCUnreachable(err error) bool {
	var t *TCUnreachable
	return errors.As(err, &t)
}
