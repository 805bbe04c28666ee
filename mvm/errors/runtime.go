package errors

import (
	"errors"
	"fmt"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// RuntimeFailure is a defined way for contract execution to stop: FAILWITH,
// gas exhaustion, mutez overflow or a failed test assertion. It is not an
// internal error; the interpreter converts it into an IEInterpreterFailed
// naming the contract that failed.
type RuntimeFailure interface {
	error
	runtimeFailure()
}

// MichelsonFailed is raised by FAILWITH, carrying the value from the top of
// the stack.
type MichelsonFailed struct {
	Value michelson.Value
}

// NewMichelsonFailed constructs a new MichelsonFailed.
func NewMichelsonFailed(v michelson.Value) *MichelsonFailed { return &MichelsonFailed{Value: v} }

func (e *MichelsonFailed) Error() string {
	return fmt.Sprintf("contract failed with %s", e.Value)
}

func (*MichelsonFailed) runtimeFailure() {}

// IsMichelsonFailed returns true if err has this type.
func IsMichelsonFailed(err error) bool {
	var t *MichelsonFailed
	return errors.As(err, &t)
}

// MichelsonGasExhaustion is raised when the remaining-steps counter reaches
// zero.
type MichelsonGasExhaustion struct{}

// NewMichelsonGasExhaustion constructs a new MichelsonGasExhaustion.
func NewMichelsonGasExhaustion() *MichelsonGasExhaustion { return &MichelsonGasExhaustion{} }

func (e *MichelsonGasExhaustion) Error() string {
	return "no more steps remaining"
}

func (*MichelsonGasExhaustion) runtimeFailure() {}

// IsMichelsonGasExhaustion returns true if err has this type.
func IsMichelsonGasExhaustion(err error) bool {
	var t *MichelsonGasExhaustion
	return errors.As(err, &t)
}

// MichelsonArithError is raised by token arithmetic leaving the
// representable range.
type MichelsonArithError struct {
	Op  michelson.OpCode
	Err error
}

// NewMichelsonArithError constructs a new MichelsonArithError.
func NewMichelsonArithError(op michelson.OpCode, err error) *MichelsonArithError {
	return &MichelsonArithError{Op: op, Err: err}
}

func (e *MichelsonArithError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *MichelsonArithError) Unwrap() error { return e.Err }

func (*MichelsonArithError) runtimeFailure() {}

// IsMichelsonArithError returns true if err has this type.
func IsMichelsonArithError(err error) bool {
	var t *MichelsonArithError
	return errors.As(err, &t)
}

// TestAssertFailed is raised by a TEST_ASSERT whose body evaluated to False.
type TestAssertFailed struct {
	Name string
}

// NewTestAssertFailed constructs a new TestAssertFailed.
func NewTestAssertFailed(name string) *TestAssertFailed { return &TestAssertFailed{Name: name} }

func (e *TestAssertFailed) Error() string {
	return fmt.Sprintf("TEST_ASSERT %q failed", e.Name)
}

func (*TestAssertFailed) runtimeFailure() {}

// IsTestAssertFailed returns true if err has this type.
func IsTestAssertFailed(err error) bool {
	var t *TestAssertFailed
	return errors.As(err, &t)
}
