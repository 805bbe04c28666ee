package scenario

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	vmerrors "github.com/techoluwoye/lorentz-contract-param/mvm/errors"
	"github.com/techoluwoye/lorentz-contract-param/mvm/state"
)

// Validator describes the expected outcome of one batch: either a particular
// interpreter failure, or success plus checks on the resulting state and
// journal.
type Validator struct {
	expectErr func(vmerrors.InterpreterError) bool
	onSuccess []SuccessValidator
}

// SuccessValidator checks the post-batch state and the journal that
// produced it.
type SuccessValidator func(g *state.GState, updates []state.Update) error

// ExpectAnySuccess accepts any successful batch.
func ExpectAnySuccess() Validator { return Validator{} }

// ExpectSuccess accepts a successful batch passing all given checks.
func ExpectSuccess(checks ...SuccessValidator) Validator {
	return Validator{onSuccess: checks}
}

// ExpectError accepts a batch failing with an error the predicate matches.
func ExpectError(pred func(vmerrors.InterpreterError) bool) Validator {
	return Validator{expectErr: pred}
}

// ExpectMichelsonFailed accepts a FAILWITH in the contract at addr whose
// value satisfies the predicate (nil accepts any value).
func ExpectMichelsonFailed(addr michelson.Address, pred func(michelson.Value) bool) Validator {
	return ExpectError(func(err vmerrors.InterpreterError) bool {
		failed, ok := err.(*vmerrors.IEInterpreterFailed)
		if !ok || failed.Addr != addr {
			return false
		}
		mf, ok := failed.Failure.(*vmerrors.MichelsonFailed)
		if !ok {
			return false
		}
		return pred == nil || pred(mf.Value)
	})
}

// ExpectGasExhaustion accepts a batch stopped by the step quota.
func ExpectGasExhaustion() Validator {
	return ExpectError(func(err vmerrors.InterpreterError) bool {
		failed, ok := err.(*vmerrors.IEInterpreterFailed)
		if !ok {
			return false
		}
		return vmerrors.IsMichelsonGasExhaustion(failed.Failure)
	})
}

// Compose runs every check and reports all failures together.
func Compose(checks ...SuccessValidator) SuccessValidator {
	return func(g *state.GState, updates []state.Update) error {
		var result *multierror.Error
		for _, check := range checks {
			result = multierror.Append(result, check(g, updates))
		}
		return result.ErrorOrNil()
	}
}

// ExpectStorageUpdate requires the journal to set addr's storage to a value
// the predicate accepts; the last storage update wins.
func ExpectStorageUpdate(addr michelson.Address, pred func(michelson.Value) error) SuccessValidator {
	return func(g *state.GState, updates []state.Update) error {
		var last *state.StorageValueSet
		for idx := range updates {
			if u, ok := updates[idx].(state.StorageValueSet); ok && u.Addr == addr {
				last = &u
			}
		}
		if last == nil {
			return vmerrors.NewIncorrectStorageUpdatef(addr, "no storage update in the journal")
		}
		if err := pred(last.Storage); err != nil {
			return vmerrors.NewIncorrectStorageUpdatef(addr, "%s", err)
		}
		return nil
	}
}

// ExpectStorageUpdateConst requires the journal's last storage update for
// addr to set exactly expected.
func ExpectStorageUpdateConst(addr michelson.Address, expected michelson.Value) SuccessValidator {
	return ExpectStorageUpdate(addr, func(v michelson.Value) error {
		if !michelson.ValuesEqual(v, expected) {
			return fmt.Errorf("stored %s, expected %s", v, expected)
		}
		return nil
	})
}

// ExpectStorageConst requires addr's post-batch storage to equal expected.
// Simple accounts and unknown addresses fail the check.
func ExpectStorageConst(addr michelson.Address, expected michelson.Value) SuccessValidator {
	return func(g *state.GState, updates []state.Update) error {
		st, ok := g.Account(addr)
		if !ok {
			return vmerrors.NewIncorrectStorageUpdatef(addr, "address not in state")
		}
		if st.IsSimple() {
			return vmerrors.NewIncorrectStorageUpdatef(addr, "simple accounts have no storage")
		}
		if !michelson.ValuesEqual(st.Contract.Storage, expected) {
			return vmerrors.NewIncorrectStorageUpdatef(addr, "storage is %s, expected %s",
				st.Contract.Storage, expected)
		}
		return nil
	}
}

// ExpectBalance requires addr's post-batch balance to equal expected.
func ExpectBalance(addr michelson.Address, expected michelson.Mutez) SuccessValidator {
	return func(g *state.GState, updates []state.Update) error {
		st, ok := g.Account(addr)
		if !ok {
			return fmt.Errorf("address %s not in state", addr)
		}
		if st.Balance != expected {
			return fmt.Errorf("balance of %s is %s, expected %s", addr, st.Balance, expected)
		}
		return nil
	}
}
