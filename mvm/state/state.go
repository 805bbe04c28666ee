// Package state holds the global blockchain state the interpreter runs
// against: the mapping from addresses to account states, and the update
// journal that transactions produce.
package state

import (
	"bytes"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// AccountState describes one address. A nil Contract marks a simple
// (implicit) account; otherwise the account is an originated contract with
// code and storage.
type AccountState struct {
	Balance  michelson.Mutez
	Delegate *michelson.KeyHash
	Contract *ContractState
}

// ContractState is the contract-specific part of an account state.
type ContractState struct {
	Storage     michelson.Value
	Code        *michelson.Contract
	ParamType   michelson.Type
	StorageType michelson.Type
}

// IsSimple reports whether the account has no code attached.
func (a AccountState) IsSimple() bool { return a.Contract == nil }

// GState is the global state snapshot: a persistent mapping from addresses
// to account states. The interpreter receives a snapshot and returns a new
// one; only the scenario driver ever commits a snapshot over its
// predecessor.
type GState struct {
	accounts map[michelson.Address]AccountState
}

// NewGState constructs an empty global state.
func NewGState() *GState {
	return &GState{accounts: make(map[michelson.Address]AccountState)}
}

// Account looks up the state bound to addr.
func (g *GState) Account(addr michelson.Address) (AccountState, bool) {
	st, ok := g.accounts[addr]
	return st, ok
}

// SetAccount binds addr to st, replacing any previous binding.
func (g *GState) SetAccount(addr michelson.Address, st AccountState) {
	g.accounts[addr] = st
}

// Len returns the number of known addresses.
func (g *GState) Len() int { return len(g.accounts) }

// Copy returns an independent snapshot. Account states are value types
// (contract states are shared, but never mutated in place), so a shallow map
// copy suffices.
func (g *GState) Copy() *GState {
	return &GState{accounts: maps.Clone(g.accounts)}
}

// Addresses returns all known addresses in a deterministic order.
func (g *GState) Addresses() []michelson.Address {
	out := maps.Keys(g.accounts)
	slices.SortFunc(out, func(a, b michelson.Address) int {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return bytes.Compare(a.Hash[:], b.Hash[:])
	})
	return out
}

// ApplyUpdates folds a journal into the state in order, mutating the
// receiver. Replaying the journal an interpreter run produced against the
// snapshot it started from reproduces the snapshot it returned.
func (g *GState) ApplyUpdates(updates []Update) error {
	for _, u := range updates {
		if err := u.Apply(g); err != nil {
			return fmt.Errorf("applying %s: %w", u, err)
		}
	}
	return nil
}
