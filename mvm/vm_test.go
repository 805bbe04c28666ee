package mvm

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm/errors"
	"github.com/techoluwoye/lorentz-contract-param/mvm/state"
)

func implicit(b byte) michelson.Address {
	return michelson.ImplicitAccount(michelson.KeyHash{Hash: [20]byte{b}})
}

func manager() michelson.KeyHash {
	return michelson.KeyHash{Hash: [20]byte{0xff}}
}

func genesis(balances map[michelson.Address]michelson.Mutez) *state.GState {
	g := state.NewGState()
	for addr, bal := range balances {
		g.SetAccount(addr, state.AccountState{Balance: bal})
	}
	return g
}

// adderContract adds its int parameter to its int storage.
func adderContract() *michelson.UContract {
	return &michelson.UContract{
		Param:   michelson.IntT,
		Storage: michelson.IntT,
		Code: michelson.Seq(
			michelson.Prim(michelson.OpDup),
			michelson.Prim(michelson.OpCar),
			michelson.Prim(michelson.OpSwap),
			michelson.Prim(michelson.OpCdr),
			michelson.Prim(michelson.OpAdd),
			michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
			michelson.Prim(michelson.OpPair),
		),
	}
}

func uint_(n int64) michelson.UValue { return michelson.UInt{X: big.NewInt(n)} }

func TestOriginateAndTransfer(t *testing.T) {
	sender := implicit(1)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 1000})

	res, ierr := Interpret(NewContext(), g, []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: adderContract(), Storage: uint_(10), Balance: 0},
	})
	require.Nil(t, ierr)
	require.Len(t, res.Originated, 1)
	contract := res.Originated[0]
	assert.Equal(t, michelson.AddrKT1, contract.Kind)

	res2, ierr := Interpret(NewContext(WithOrigination(res.NextOrigination)), res.GState, []BlockchainOp{
		TransferOp{Sender: sender, Dest: contract, Amount: 5, Parameter: uint_(32)},
	})
	require.Nil(t, ierr)

	st, ok := res2.GState.Account(contract)
	require.True(t, ok)
	assert.Equal(t, michelson.Mutez(5), st.Balance)
	assert.True(t, michelson.ValuesEqual(michelson.IntV(42), st.Contract.Storage))

	senderSt, _ := res2.GState.Account(sender)
	assert.Equal(t, michelson.Mutez(995), senderSt.Balance)

	// The input snapshot is untouched.
	before, _ := res.GState.Account(contract)
	assert.True(t, michelson.ValuesEqual(michelson.IntV(10), before.Contract.Storage))
}

// Replaying the journal over the pre-batch snapshot reproduces the post-batch
// state.
func TestJournalReplaysToFinalState(t *testing.T) {
	sender := implicit(1)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 1000})

	res, ierr := Interpret(NewContext(), g, []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: adderContract(), Storage: uint_(0), Balance: 100},
		TransferOp{Sender: sender, Dest: implicit(1), Amount: 0, Parameter: michelson.UUnit{}},
	})
	require.Nil(t, ierr)

	replayed := g.Copy()
	require.NoError(t, replayed.ApplyUpdates(res.Updates))

	require.Equal(t, res.GState.Len(), replayed.Len())
	for _, a := range res.GState.Addresses() {
		want, _ := res.GState.Account(a)
		got, ok := replayed.Account(a)
		require.True(t, ok)
		assert.Equal(t, want.Balance, got.Balance)
	}
}

func TestInterpretationIsDeterministic(t *testing.T) {
	sender := implicit(1)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 1000})
	batch := []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: adderContract(), Storage: uint_(7), Balance: 3},
	}

	res1, ierr := Interpret(NewContext(), g, batch)
	require.Nil(t, ierr)
	res2, ierr := Interpret(NewContext(), g, batch)
	require.Nil(t, ierr)

	assert.Equal(t, res1.Originated, res2.Originated)
	require.Equal(t, len(res1.Updates), len(res2.Updates))
	for i := range res1.Updates {
		assert.Equal(t, res1.Updates[i].String(), res2.Updates[i].String())
	}
	assert.Equal(t, res1.StepsRemaining, res2.StepsRemaining)
}

func TestTransferErrors(t *testing.T) {
	sender := implicit(1)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 100})

	t.Run("unknown sender", func(t *testing.T) {
		_, ierr := Interpret(NewContext(), g, []BlockchainOp{
			TransferOp{Sender: implicit(9), Dest: sender, Amount: 1, Parameter: michelson.UUnit{}},
		})
		require.NotNil(t, ierr)
		assert.True(t, errors.IsIEUnknownSender(ierr))
	})

	t.Run("unknown destination", func(t *testing.T) {
		_, ierr := Interpret(NewContext(), g, []BlockchainOp{
			TransferOp{Sender: sender, Dest: implicit(9), Amount: 1, Parameter: michelson.UUnit{}},
		})
		require.NotNil(t, ierr)
		assert.True(t, errors.IsIEUnknownContract(ierr))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		_, ierr := Interpret(NewContext(), g, []BlockchainOp{
			TransferOp{Sender: sender, Dest: sender, Amount: 1000, Parameter: michelson.UUnit{}},
		})
		require.NotNil(t, ierr)
		assert.True(t, errors.IsIEInterpreterFailed(ierr))
	})

	t.Run("ill-typed parameter", func(t *testing.T) {
		res, ierr := Interpret(NewContext(), g, []BlockchainOp{
			OriginateOp{Manager: manager(), Contract: adderContract(), Storage: uint_(0)},
		})
		require.Nil(t, ierr)
		_, ierr = Interpret(NewContext(WithOrigination(res.NextOrigination)), res.GState, []BlockchainOp{
			TransferOp{Sender: sender, Dest: res.Originated[0], Amount: 0,
				Parameter: michelson.UString{S: "nope"}},
		})
		require.NotNil(t, ierr)
		assert.True(t, errors.IsIEIllTypedParameter(ierr))
	})
}

func TestOriginationErrors(t *testing.T) {
	g := genesis(nil)

	t.Run("ill-typed code", func(t *testing.T) {
		bad := &michelson.UContract{
			Param:   michelson.IntT,
			Storage: michelson.IntT,
			Code:    michelson.Seq(michelson.Prim(michelson.OpCdr)),
		}
		_, ierr := Interpret(NewContext(), g, []BlockchainOp{
			OriginateOp{Manager: manager(), Contract: bad, Storage: uint_(0)},
		})
		require.NotNil(t, ierr)
		assert.True(t, errors.IsIEIllTypedContract(ierr))
	})

	t.Run("ill-typed initial storage", func(t *testing.T) {
		_, ierr := Interpret(NewContext(), g, []BlockchainOp{
			OriginateOp{Manager: manager(), Contract: adderContract(),
				Storage: michelson.UString{S: "not an int"}},
		})
		require.NotNil(t, ierr)
		assert.True(t, errors.IsIEIllTypedContract(ierr))
	})
}

func TestFailWithAbortsTheBatch(t *testing.T) {
	failing := &michelson.UContract{
		Param:   michelson.TUnit{},
		Storage: michelson.IntT,
		Code: michelson.Seq(
			michelson.Prim(michelson.OpDrop),
			michelson.PushU(michelson.StringT, michelson.UString{S: "oops"}),
			michelson.Prim(michelson.OpFailWith),
		),
	}
	sender := implicit(1)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 100})

	res, ierr := Interpret(NewContext(), g, []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: failing, Storage: uint_(0)},
	})
	require.Nil(t, ierr)
	contract := res.Originated[0]

	_, ierr = Interpret(NewContext(WithOrigination(res.NextOrigination)), res.GState, []BlockchainOp{
		TransferOp{Sender: sender, Dest: contract, Amount: 1, Parameter: michelson.UUnit{}},
	})
	require.NotNil(t, ierr)
	failed, ok := ierr.(*errors.IEInterpreterFailed)
	require.True(t, ok)
	assert.Equal(t, contract, failed.Addr)
	mf, ok := failed.Failure.(*errors.MichelsonFailed)
	require.True(t, ok)
	assert.True(t, michelson.ValuesEqual(michelson.VString{S: "oops"}, mf.Value))

	// No partial effects: the pre-batch snapshot still holds.
	senderSt, _ := res.GState.Account(sender)
	assert.Equal(t, michelson.Mutez(100), senderSt.Balance)
}

func TestGasExhaustion(t *testing.T) {
	// LOOP with a constant-true condition never terminates on its own.
	spinning := &michelson.UContract{
		Param:   michelson.TUnit{},
		Storage: michelson.TUnit{},
		Code: michelson.Seq(
			michelson.Prim(michelson.OpDrop),
			michelson.PushU(michelson.BoolT, michelson.UBool{B: true}),
			michelson.UInstr{
				Op:    michelson.OpLoop,
				BodyA: michelson.Seq(michelson.PushU(michelson.BoolT, michelson.UBool{B: true})),
			},
			michelson.Prim(michelson.OpUnit),
			michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
			michelson.Prim(michelson.OpPair),
		),
	}
	sender := implicit(1)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 100})

	res, ierr := Interpret(NewContext(), g, []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: spinning, Storage: michelson.UUnit{}},
	})
	require.Nil(t, ierr)

	_, ierr = Interpret(
		NewContext(WithMaxSteps(50), WithOrigination(res.NextOrigination)),
		res.GState,
		[]BlockchainOp{
			TransferOp{Sender: sender, Dest: res.Originated[0], Amount: 0, Parameter: michelson.UUnit{}},
		})
	require.NotNil(t, ierr)
	failed, ok := ierr.(*errors.IEInterpreterFailed)
	require.True(t, ok)
	assert.True(t, errors.IsMichelsonGasExhaustion(failed.Failure))
}

func TestInternalTransfer(t *testing.T) {
	// forwarder sends 5 mutez of its own balance to the address it is
	// given, keeping unit storage.
	forwarder := &michelson.UContract{
		Param:   michelson.AddressT,
		Storage: michelson.TUnit{},
		Code: michelson.Seq(
			michelson.Prim(michelson.OpCar),
			michelson.UInstr{Op: michelson.OpContract, Typ: michelson.TUnit{}},
			michelson.UInstr{
				Op: michelson.OpIfNone,
				BodyA: michelson.Seq(
					michelson.PushU(michelson.StringT, michelson.UString{S: "no such contract"}),
					michelson.Prim(michelson.OpFailWith),
				),
				BodyB: nil,
			},
			michelson.PushU(michelson.MutezT, uint_(5)),
			michelson.Prim(michelson.OpUnit),
			michelson.Prim(michelson.OpTransferTokens),
			michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
			michelson.Prim(michelson.OpSwap),
			michelson.Prim(michelson.OpCons),
			michelson.Prim(michelson.OpUnit),
			michelson.Prim(michelson.OpSwap),
			michelson.Prim(michelson.OpPair),
		),
	}

	sender := implicit(1)
	recipient := implicit(2)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 100, recipient: 10})

	res, ierr := Interpret(NewContext(), g, []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: forwarder, Storage: michelson.UUnit{}, Balance: 50},
	})
	require.Nil(t, ierr)
	fwd := res.Originated[0]

	res2, ierr := Interpret(NewContext(WithOrigination(res.NextOrigination)), res.GState, []BlockchainOp{
		TransferOp{Sender: sender, Dest: fwd, Amount: 20,
			Parameter: michelson.UString{S: recipient.String()}},
	})
	require.Nil(t, ierr)

	recSt, _ := res2.GState.Account(recipient)
	assert.Equal(t, michelson.Mutez(15), recSt.Balance)
	fwdSt, _ := res2.GState.Account(fwd)
	assert.Equal(t, michelson.Mutez(65), fwdSt.Balance)
	senderSt, _ := res2.GState.Account(sender)
	assert.Equal(t, michelson.Mutez(80), senderSt.Balance)
}

func TestPrintAndTestAssert(t *testing.T) {
	mkContract := func(assertBody []michelson.UInstr) *michelson.UContract {
		return &michelson.UContract{
			Param:   michelson.IntT,
			Storage: michelson.TUnit{},
			Code: michelson.Seq(
				michelson.Prim(michelson.OpCar),
				michelson.UInstr{Op: michelson.OpExtPrint, Print: &michelson.PrintComment{
					Parts: []michelson.PrintPart{
						{Text: "param is "},
						{Ref: &michelson.StackRef{Idx: 0}},
					},
				}},
				michelson.UInstr{Op: michelson.OpExtTestAssert, Name: "positive", BodyA: assertBody},
				michelson.Prim(michelson.OpDrop),
				michelson.Prim(michelson.OpUnit),
				michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
				michelson.Prim(michelson.OpPair),
			),
		}
	}
	assertPositive := michelson.Seq(michelson.Prim(michelson.OpGt))

	sender := implicit(1)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 100})

	res, ierr := Interpret(NewContext(), g, []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: mkContract(assertPositive), Storage: michelson.UUnit{}},
	})
	require.Nil(t, ierr)
	contract := res.Originated[0]

	t.Run("passing assertion", func(t *testing.T) {
		res2, ierr := Interpret(NewContext(WithOrigination(res.NextOrigination)), res.GState, []BlockchainOp{
			TransferOp{Sender: sender, Dest: contract, Amount: 0, Parameter: uint_(7)},
		})
		require.Nil(t, ierr)
		require.Len(t, res2.Printed, 1)
		assert.Equal(t, "param is 7", res2.Printed[0])
	})

	t.Run("failing assertion", func(t *testing.T) {
		_, ierr := Interpret(NewContext(WithOrigination(res.NextOrigination)), res.GState, []BlockchainOp{
			TransferOp{Sender: sender, Dest: contract, Amount: 0, Parameter: uint_(-7)},
		})
		require.NotNil(t, ierr)
		failed, ok := ierr.(*errors.IEInterpreterFailed)
		require.True(t, ok)
		taf, ok := failed.Failure.(*errors.TestAssertFailed)
		require.True(t, ok)
		assert.Equal(t, "positive", taf.Name)
	})
}

func TestNowComesFromContext(t *testing.T) {
	// The contract stores NOW; the batch context decides what NOW is.
	probing := &michelson.UContract{
		Param:   michelson.TUnit{},
		Storage: michelson.TimestampT,
		Code: michelson.Seq(
			michelson.Prim(michelson.OpDrop),
			michelson.Prim(michelson.OpNow),
			michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
			michelson.Prim(michelson.OpPair),
		),
	}
	sender := implicit(1)
	g := genesis(map[michelson.Address]michelson.Mutez{sender: 100})

	res, ierr := Interpret(NewContext(WithNow(1234)), g, []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: probing, Storage: uint_(0)},
	})
	require.Nil(t, ierr)

	res2, ierr := Interpret(
		NewContext(WithNow(5678), WithOrigination(res.NextOrigination)),
		res.GState,
		[]BlockchainOp{
			TransferOp{Sender: sender, Dest: res.Originated[0], Amount: 0, Parameter: michelson.UUnit{}},
		})
	require.Nil(t, ierr)

	st, _ := res2.GState.Account(res.Originated[0])
	assert.True(t, michelson.ValuesEqual(michelson.VTimestamp{T: 5678}, st.Contract.Storage))
}

func TestDistinctOriginationsGetDistinctAddresses(t *testing.T) {
	g := genesis(nil)
	batch := []BlockchainOp{
		OriginateOp{Manager: manager(), Contract: adderContract(), Storage: uint_(0)},
		OriginateOp{Manager: manager(), Contract: adderContract(), Storage: uint_(0)},
	}
	res, ierr := Interpret(NewContext(), g, batch)
	require.Nil(t, ierr)
	require.Len(t, res.Originated, 2)
	assert.NotEqual(t, res.Originated[0], res.Originated[1],
		fmt.Sprintf("identical contracts must still get distinct addresses: %s", res.Originated[0]))
}
