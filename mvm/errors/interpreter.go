package errors

import (
	"errors"
	"fmt"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// InterpreterError is implemented by the errors Interpret can return. Any of
// them aborts the whole batch; the caller keeps its pre-batch snapshot.
type InterpreterError interface {
	error
	Code() ErrorCode
	interpreterError()
}

// IEUnknownContract reports a transfer to an address absent from the global
// state.
type IEUnknownContract struct {
	Addr michelson.Address
}

// NewIEUnknownContract constructs a new IEUnknownContract.
func NewIEUnknownContract(addr michelson.Address) *IEUnknownContract {
	return &IEUnknownContract{Addr: addr}
}

func (e *IEUnknownContract) Error() string {
	return fmt.Sprintf("%s unknown contract %s", e.Code(), e.Addr)
}

func (e *IEUnknownContract) Code() ErrorCode { return ErrCodeUnknownContract }
func (*IEUnknownContract) interpreterError() {}

// IsIEUnknownContract returns true if err has this type.
func IsIEUnknownContract(err error) bool {
	var t *IEUnknownContract
	return errors.As(err, &t)
}

// IEInterpreterFailed reports a defined runtime failure inside the contract
// at Addr.
type IEInterpreterFailed struct {
	Addr    michelson.Address
	Failure RuntimeFailure
}

// NewIEInterpreterFailed constructs a new IEInterpreterFailed.
func NewIEInterpreterFailed(addr michelson.Address, failure RuntimeFailure) *IEInterpreterFailed {
	return &IEInterpreterFailed{Addr: addr, Failure: failure}
}

func (e *IEInterpreterFailed) Error() string {
	return fmt.Sprintf("%s interpretation of %s failed: %s", e.Code(), e.Addr, e.Failure)
}

func (e *IEInterpreterFailed) Code() ErrorCode { return ErrCodeInterpreterFailed }
func (e *IEInterpreterFailed) Unwrap() error   { return e.Failure }
func (*IEInterpreterFailed) interpreterError() {}

// IsIEInterpreterFailed returns true if err has this type.
func IsIEInterpreterFailed(err error) bool {
	var t *IEInterpreterFailed
	return errors.As(err, &t)
}

// IEIllTypedContract reports an origination whose code does not type-check.
type IEIllTypedContract struct {
	TCErr TCError
}

// NewIEIllTypedContract constructs a new IEIllTypedContract.
func NewIEIllTypedContract(tcErr TCError) *IEIllTypedContract {
	return &IEIllTypedContract{TCErr: tcErr}
}

func (e *IEIllTypedContract) Error() string {
	return fmt.Sprintf("%s contract does not type-check: %s", e.Code(), e.TCErr)
}

func (e *IEIllTypedContract) Code() ErrorCode { return ErrCodeIllTypedContract }
func (e *IEIllTypedContract) Unwrap() error   { return e.TCErr }
func (*IEIllTypedContract) interpreterError() {}

// IsIEIllTypedContract returns true if err has this type.
func IsIEIllTypedContract(err error) bool {
	var t *IEIllTypedContract
	return errors.As(err, &t)
}

// IEIllTypedParameter reports a transfer whose parameter does not check
// against the destination's parameter type.
type IEIllTypedParameter struct {
	TCErr TCError
}

// NewIEIllTypedParameter constructs a new IEIllTypedParameter.
func NewIEIllTypedParameter(tcErr TCError) *IEIllTypedParameter {
	return &IEIllTypedParameter{TCErr: tcErr}
}

func (e *IEIllTypedParameter) Error() string {
	return fmt.Sprintf("%s parameter does not type-check: %s", e.Code(), e.TCErr)
}

func (e *IEIllTypedParameter) Code() ErrorCode { return ErrCodeIllTypedParameter }
func (e *IEIllTypedParameter) Unwrap() error   { return e.TCErr }
func (*IEIllTypedParameter) interpreterError() {}

// IsIEIllTypedParameter returns true if err has this type.
func IsIEIllTypedParameter(err error) bool {
	var t *IEIllTypedParameter
	return errors.As(err, &t)
}

// IEUnknownSender reports a transfer whose sender address is absent from the
// global state.
type IEUnknownSender struct {
	Addr michelson.Address
}

// NewIEUnknownSender constructs a new IEUnknownSender.
func NewIEUnknownSender(addr michelson.Address) *IEUnknownSender {
	return &IEUnknownSender{Addr: addr}
}

func (e *IEUnknownSender) Error() string {
	return fmt.Sprintf("%s unknown sender %s", e.Code(), e.Addr)
}

func (e *IEUnknownSender) Code() ErrorCode { return ErrCodeUnknownSender }
func (*IEUnknownSender) interpreterError() {}

// IsIEUnknownSender returns true if err has this type.
func IsIEUnknownSender(err error) bool {
	var t *IEUnknownSender
	return errors.As(err, &t)
}
