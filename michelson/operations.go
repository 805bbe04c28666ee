package michelson

import "fmt"

// Operation is an internal blockchain operation emitted by contract code.
// The interpreter folds emitted operations back into the global state after
// the emitting transfer completes.
type Operation interface {
	isOperation()
	String() string
}

// TransferTokensOp calls the contract (or credits the implicit account) at
// Dest with the given parameter and amount.
type TransferTokensOp struct {
	Parameter Value
	ParamType Type
	Amount    Mutez
	Dest      Address
}

// SetDelegateOp changes or clears the delegate of the emitting contract.
type SetDelegateOp struct {
	Delegate *KeyHash
}

// CreateAccountOp originates a simple account. Addr is derived when the
// instruction emits the operation, since CREATE_ACCOUNT pushes the address of
// the account-to-be before the operation is applied.
type CreateAccountOp struct {
	Addr      Address
	Manager   KeyHash
	Delegate  *KeyHash
	Spendable bool
	Balance   Mutez
}

// CreateContractOp originates a contract with the given code and initial
// storage. The code is already type-checked; its storage type contains no
// operations. Addr is derived at emission, like CreateAccountOp's.
type CreateContractOp struct {
	Addr        Address
	Manager     KeyHash
	Delegate    *KeyHash
	Spendable   bool
	Delegatable bool
	Balance     Mutez
	Storage     Value
	Code        *Contract
}

func (TransferTokensOp) isOperation() {}
func (SetDelegateOp) isOperation()    {}
func (CreateAccountOp) isOperation()  {}
func (CreateContractOp) isOperation() {}

func (o TransferTokensOp) String() string {
	return fmt.Sprintf("TRANSFER_TOKENS %s %s to %s", o.Parameter, o.Amount, o.Dest)
}

func (o SetDelegateOp) String() string {
	if o.Delegate == nil {
		return "SET_DELEGATE None"
	}
	return fmt.Sprintf("SET_DELEGATE (Some %s)", o.Delegate)
}

func (o CreateAccountOp) String() string {
	return fmt.Sprintf("CREATE_ACCOUNT %s %s", o.Manager, o.Balance)
}

func (o CreateContractOp) String() string {
	return fmt.Sprintf("CREATE_CONTRACT %s %s %s", o.Balance, o.Storage, o.Code)
}
