package mvm

import (
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
)

// originationPayload is the canonical encoding a contract address is derived
// from. The counter makes repeated originations of identical contracts yield
// distinct addresses.
type originationPayload struct {
	Counter uint64 `cbor:"1,keyasint"`
	Balance int64  `cbor:"2,keyasint"`
	Storage string `cbor:"3,keyasint"`
	Code    string `cbor:"4,keyasint"`
}

// deriveContractAddress computes the KT1 address of an origination as the
// blake2b-160 of the cbor-encoded payload. code is nil for simple accounts
// created by CREATE_ACCOUNT.
func deriveContractAddress(counter uint64, balance michelson.Mutez, storage michelson.Value, code *michelson.Contract) michelson.Address {
	payload := originationPayload{
		Counter: counter,
		Balance: int64(balance),
	}
	if storage != nil {
		payload.Storage = storage.String()
	}
	if code != nil {
		payload.Code = code.String()
	}
	enc, err := cbor.Marshal(payload)
	if err != nil {
		panic(err)
	}
	h, err := blake2b.New(michelson.AddressLength, nil)
	if err != nil {
		panic(err)
	}
	h.Write(enc)
	var hash [michelson.AddressLength]byte
	copy(hash[:], h.Sum(nil))
	return michelson.ContractAddress(hash)
}
