package errors

import (
	"errors"
	"fmt"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm/state"
)

// ValidationError is implemented by the errors a scenario validation step
// can produce.
type ValidationError interface {
	error
	Code() ErrorCode
	validationError()
}

// UnexpectedInterpreterError reports an interpreter error no negative
// validator accepted.
type UnexpectedInterpreterError struct {
	Err InterpreterError
}

// NewUnexpectedInterpreterError constructs a new UnexpectedInterpreterError.
func NewUnexpectedInterpreterError(err InterpreterError) *UnexpectedInterpreterError {
	return &UnexpectedInterpreterError{Err: err}
}

func (e *UnexpectedInterpreterError) Error() string {
	return fmt.Sprintf("%s unexpected interpreter error: %s", e.Code(), e.Err)
}

func (e *UnexpectedInterpreterError) Code() ErrorCode { return ErrCodeUnexpectedInterpreterError }
func (e *UnexpectedInterpreterError) Unwrap() error   { return e.Err }
func (*UnexpectedInterpreterError) validationError()  {}

// IsUnexpectedInterpreterError returns true if err has this type.
func IsUnexpectedInterpreterError(err error) bool {
	var t *UnexpectedInterpreterError
	return errors.As(err, &t)
}

// ExpectingInterpreterToFail reports a batch that succeeded although the
// validator expected an interpreter error.
type ExpectingInterpreterToFail struct{}

// NewExpectingInterpreterToFail constructs a new ExpectingInterpreterToFail.
func NewExpectingInterpreterToFail() *ExpectingInterpreterToFail {
	return &ExpectingInterpreterToFail{}
}

func (e *ExpectingInterpreterToFail) Error() string {
	return fmt.Sprintf("%s interpreter succeeded but a failure was expected", e.Code())
}

func (e *ExpectingInterpreterToFail) Code() ErrorCode { return ErrCodeExpectingInterpreterToFail }
func (*ExpectingInterpreterToFail) validationError()  {}

// IsExpectingInterpreterToFail returns true if err has this type.
func IsExpectingInterpreterToFail(err error) bool {
	var t *ExpectingInterpreterToFail
	return errors.As(err, &t)
}

// IncorrectUpdates reports a success validator that rejected the batch
// outcome; it carries the journal for diagnostics.
type IncorrectUpdates struct {
	Err     error
	Updates []state.Update
}

// NewIncorrectUpdates constructs a new IncorrectUpdates.
func NewIncorrectUpdates(err error, updates []state.Update) *IncorrectUpdates {
	return &IncorrectUpdates{Err: err, Updates: updates}
}

func (e *IncorrectUpdates) Error() string {
	return fmt.Sprintf("%s updates did not pass validation (%d entries): %s",
		e.Code(), len(e.Updates), e.Err)
}

func (e *IncorrectUpdates) Code() ErrorCode { return ErrCodeIncorrectUpdates }
func (e *IncorrectUpdates) Unwrap() error   { return e.Err }
func (*IncorrectUpdates) validationError()  {}

// IsIncorrectUpdates returns true if err has this type.
func IsIncorrectUpdates(err error) bool {
	var t *IncorrectUpdates
	return errors.As(err, &t)
}

// IncorrectStorageUpdate reports a missing or unsatisfying storage update
// for a particular contract.
type IncorrectStorageUpdate struct {
	Addr michelson.Address
	Msg  string
}

// NewIncorrectStorageUpdatef constructs a new IncorrectStorageUpdate.
func NewIncorrectStorageUpdatef(addr michelson.Address, msg string, args ...interface{}) *IncorrectStorageUpdate {
	return &IncorrectStorageUpdate{Addr: addr, Msg: fmt.Sprintf(msg, args...)}
}

func (e *IncorrectStorageUpdate) Error() string {
	return fmt.Sprintf("%s storage update of %s: %s", e.Code(), e.Addr, e.Msg)
}

func (e *IncorrectStorageUpdate) Code() ErrorCode { return ErrCodeIncorrectStorageUpdate }
func (*IncorrectStorageUpdate) validationError()  {}

// IsIncorrectStorageUpdate returns true if err has this type.
func IsIncorrectStorageUpdate(err error) bool {
	var t *IncorrectStorageUpdate
	return errors.As(err, &t)
}
