// Package errors defines the error taxonomy of the type checker, the
// interpreter and the scenario driver. Every boundary returns one of the
// variants below; internal invariant violations panic instead, since they
// indicate a bug rather than bad input.
//
// Each variant is an exported struct with a constructor; callers classify
// errors with the Is* predicates, which unwrap through errors.As.
package errors

import "fmt"

// ErrorCode tags every error variant with a stable numeric code.
type ErrorCode uint16

func (ec ErrorCode) String() string {
	return fmt.Sprintf("[Error Code: %d]", ec)
}

const (
	// type checker errors 1000 - 1049
	ErrCodeTCFailedOnInstr ErrorCode = 1000
	ErrCodeTCFailedOnValue ErrorCode = 1001
	ErrCodeTCExtError      ErrorCode = 1002
	ErrCodeTCUnreachable   ErrorCode = 1003

	// extension checker errors 1050 - 1099
	ErrCodeLengthMismatch        ErrorCode = 1050
	ErrCodeTypeMismatch          ErrorCode = 1051
	ErrCodeStkRestMismatch       ErrorCode = 1052
	ErrCodeVarError              ErrorCode = 1053
	ErrCodeAnnError              ErrorCode = 1054
	ErrCodeTyVarMismatch         ErrorCode = 1055
	ErrCodeTestAssertError       ErrorCode = 1056
	ErrCodeInvalidStackReference ErrorCode = 1057

	// interpreter errors 1100 - 1149
	ErrCodeUnknownContract   ErrorCode = 1100
	ErrCodeInterpreterFailed ErrorCode = 1101
	ErrCodeIllTypedContract  ErrorCode = 1102
	ErrCodeIllTypedParameter ErrorCode = 1103
	ErrCodeUnknownSender     ErrorCode = 1104

	// validation errors 1150 - 1199
	ErrCodeUnexpectedInterpreterError ErrorCode = 1150
	ErrCodeExpectingInterpreterToFail ErrorCode = 1151
	ErrCodeIncorrectUpdates           ErrorCode = 1152
	ErrCodeIncorrectStorageUpdate     ErrorCode = 1153
)
