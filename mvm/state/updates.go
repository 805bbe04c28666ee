package state

import (
	"fmt"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// Update is one entry of the journal a transaction batch produces. Updates
// are the canonical record of state changes: the interpreter performs every
// mutation by applying an update to its working snapshot and appending it to
// the journal.
type Update interface {
	isUpdate()
	// Apply folds the update into g.
	Apply(g *GState) error
	String() string
}

// BalanceUpdated sets (does not add to) the balance of an existing account.
type BalanceUpdated struct {
	Addr    michelson.Address
	Balance michelson.Mutez
}

// StorageValueSet overwrites the storage of an existing contract.
type StorageValueSet struct {
	Addr    michelson.Address
	Storage michelson.Value
}

// ContractCreated introduces a new contract account.
type ContractCreated struct {
	Addr    michelson.Address
	Account AccountState
}

// SimpleAccountCreated introduces a new simple account.
type SimpleAccountCreated struct {
	Addr    michelson.Address
	Balance michelson.Mutez
}

// DelegateSet changes or clears the delegate of an existing account.
type DelegateSet struct {
	Addr     michelson.Address
	Delegate *michelson.KeyHash
}

func (BalanceUpdated) isUpdate()       {}
func (StorageValueSet) isUpdate()      {}
func (ContractCreated) isUpdate()      {}
func (SimpleAccountCreated) isUpdate() {}
func (DelegateSet) isUpdate()          {}

func (u BalanceUpdated) Apply(g *GState) error {
	st, ok := g.Account(u.Addr)
	if !ok {
		return fmt.Errorf("unknown address %s", u.Addr)
	}
	st.Balance = u.Balance
	g.SetAccount(u.Addr, st)
	return nil
}

func (u StorageValueSet) Apply(g *GState) error {
	st, ok := g.Account(u.Addr)
	if !ok {
		return fmt.Errorf("unknown address %s", u.Addr)
	}
	if st.IsSimple() {
		return fmt.Errorf("address %s holds a simple account, not a contract", u.Addr)
	}
	contract := *st.Contract
	contract.Storage = u.Storage
	st.Contract = &contract
	g.SetAccount(u.Addr, st)
	return nil
}

func (u ContractCreated) Apply(g *GState) error {
	if _, ok := g.Account(u.Addr); ok {
		return fmt.Errorf("address %s already exists", u.Addr)
	}
	g.SetAccount(u.Addr, u.Account)
	return nil
}

func (u SimpleAccountCreated) Apply(g *GState) error {
	if _, ok := g.Account(u.Addr); ok {
		return fmt.Errorf("address %s already exists", u.Addr)
	}
	g.SetAccount(u.Addr, AccountState{Balance: u.Balance})
	return nil
}

func (u DelegateSet) Apply(g *GState) error {
	st, ok := g.Account(u.Addr)
	if !ok {
		return fmt.Errorf("unknown address %s", u.Addr)
	}
	st.Delegate = u.Delegate
	g.SetAccount(u.Addr, st)
	return nil
}

func (u BalanceUpdated) String() string {
	return fmt.Sprintf("BalanceUpdated{%s, %s}", u.Addr, u.Balance)
}

func (u StorageValueSet) String() string {
	return fmt.Sprintf("StorageValueSet{%s, %s}", u.Addr, u.Storage)
}

func (u ContractCreated) String() string {
	return fmt.Sprintf("ContractCreated{%s, balance %s}", u.Addr, u.Account.Balance)
}

func (u SimpleAccountCreated) String() string {
	return fmt.Sprintf("SimpleAccountCreated{%s, %s}", u.Addr, u.Balance)
}

func (u DelegateSet) String() string {
	if u.Delegate == nil {
		return fmt.Sprintf("DelegateSet{%s, None}", u.Addr)
	}
	return fmt.Sprintf("DelegateSet{%s, Some %s}", u.Addr, u.Delegate)
}
