package mvm

import (
	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// BlockchainOp is one top-level operation of a batch handed to Interpret.
type BlockchainOp interface {
	isBlockchainOp()
}

// OriginateOp deploys a contract: its untyped code is type-checked, its
// initial storage checked against the declared storage type, and a fresh
// address derived from the origination counter and the contract content.
type OriginateOp struct {
	Manager  michelson.KeyHash
	Delegate *michelson.KeyHash
	Contract *michelson.UContract
	Storage  michelson.UValue
	Balance  michelson.Mutez
}

// TransferOp transfers Amount from Sender to Dest, running Dest's code on
// Parameter when Dest is a contract. Operations the contract emits are
// applied in order after it returns, transfers among them recursively.
type TransferOp struct {
	Sender    michelson.Address
	Dest      michelson.Address
	Amount    michelson.Mutez
	Parameter michelson.UValue
}

func (OriginateOp) isBlockchainOp() {}
func (TransferOp) isBlockchainOp()  {}
