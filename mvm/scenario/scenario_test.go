package scenario

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm"
	vmerrors "github.com/techoluwoye/lorentz-contract-param/mvm/errors"
)

func kh(b byte) michelson.KeyHash { return michelson.KeyHash{Hash: [20]byte{b}} }

func uint_(n int64) michelson.UValue { return michelson.UInt{X: big.NewInt(n)} }

// adder adds its int parameter to its int storage.
func adder() *michelson.UContract {
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

// storer drops its storage and keeps the int parameter.
func storer() *michelson.UContract {
	return &michelson.UContract{
		Param:   michelson.IntT,
		Storage: michelson.IntT,
		Code: michelson.Seq(
			michelson.Prim(michelson.OpCar),
			michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
			michelson.Prim(michelson.OpPair),
		),
	}
}

// failer fails with its string parameter.
func failer() *michelson.UContract {
	return &michelson.UContract{
		Param:   michelson.StringT,
		Storage: michelson.TUnit{},
		Code: michelson.Seq(
			michelson.Prim(michelson.OpCar),
			michelson.Prim(michelson.OpFailWith),
		),
	}
}

func TestOriginateAndTransferInOneBatch(t *testing.T) {
	s := New()
	alice := s.AddSimpleAccount(kh(1), 1000)

	counter := s.Originate(mvm.OriginateOp{
		Manager:  kh(0xff),
		Contract: adder(),
		Storage:  uint_(10),
		Balance:  100,
	})
	s.Transfer(mvm.TransferOp{Sender: alice, Dest: counter, Amount: 5, Parameter: uint_(32)})
	s.Validate(ExpectSuccess(
		ExpectStorageConst(counter, michelson.IntV(42)),
		ExpectStorageUpdateConst(counter, michelson.IntV(42)),
		ExpectBalance(counter, 105),
		ExpectBalance(alice, 995),
	))
	require.NoError(t, s.Err())

	// The address handed out at enqueue time is the one the batch created.
	st, ok := s.GState().Account(counter)
	require.True(t, ok)
	assert.True(t, michelson.ValuesEqual(michelson.IntV(42), st.Contract.Storage))

	// A second batch sees the committed storage.
	s.Transfer(mvm.TransferOp{Sender: alice, Dest: counter, Amount: 0, Parameter: uint_(-2)})
	s.Validate(ExpectSuccess(ExpectStorageConst(counter, michelson.IntV(40))))
	require.NoError(t, s.Err())
}

func TestExpectedFailureKeepsState(t *testing.T) {
	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)
	f := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: failer(), Storage: michelson.UUnit{}})
	s.Validate(ExpectAnySuccess())
	require.NoError(t, s.Err())

	s.Transfer(mvm.TransferOp{Sender: alice, Dest: f, Amount: 30,
		Parameter: michelson.UString{S: "nope"}})
	s.Validate(ExpectMichelsonFailed(f, func(v michelson.Value) bool {
		return michelson.ValuesEqual(v, michelson.VString{S: "nope"})
	}))
	require.NoError(t, s.Err())

	// The failed batch left balances alone, and the queue was cleared.
	st, _ := s.GState().Account(alice)
	assert.Equal(t, michelson.Mutez(100), st.Balance)
	s.Validate(ExpectAnySuccess())
	require.NoError(t, s.Err())
}

func TestMichelsonFailedMatchesTheAddress(t *testing.T) {
	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)
	f := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: failer(), Storage: michelson.UUnit{}})
	s.Validate(ExpectAnySuccess())
	require.NoError(t, s.Err())

	// Expecting the failure at the wrong address is a mismatch.
	s.Transfer(mvm.TransferOp{Sender: alice, Dest: f, Amount: 0,
		Parameter: michelson.UString{S: "nope"}})
	s.Validate(ExpectMichelsonFailed(alice, nil))
	require.Error(t, s.Err())
	assert.True(t, vmerrors.IsUnexpectedInterpreterError(s.Err()))
}

func TestGasExhaustionScenario(t *testing.T) {
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

	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)
	addr := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: spinning, Storage: michelson.UUnit{}})
	s.Validate(ExpectAnySuccess())
	require.NoError(t, s.Err())

	s.SetMaxSteps(40)
	s.Transfer(mvm.TransferOp{Sender: alice, Dest: addr, Amount: 0, Parameter: michelson.UUnit{}})
	s.Validate(ExpectGasExhaustion())
	require.NoError(t, s.Err())
}

func TestChainedOperations(t *testing.T) {
	// forwarder sends 10 mutez and the int 7 to the contract at the address
	// it is given.
	forwarder := &michelson.UContract{
		Param:   michelson.AddressT,
		Storage: michelson.TUnit{},
		Code: michelson.Seq(
			michelson.Prim(michelson.OpCar),
			michelson.UInstr{Op: michelson.OpContract, Typ: michelson.IntT},
			michelson.UInstr{
				Op: michelson.OpIfNone,
				BodyA: michelson.Seq(
					michelson.PushU(michelson.StringT, michelson.UString{S: "no such contract"}),
					michelson.Prim(michelson.OpFailWith),
				),
				BodyB: nil,
			},
			michelson.PushU(michelson.MutezT, uint_(10)),
			michelson.PushIntU(7),
			michelson.Prim(michelson.OpTransferTokens),
			michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
			michelson.Prim(michelson.OpSwap),
			michelson.Prim(michelson.OpCons),
			michelson.Prim(michelson.OpUnit),
			michelson.Prim(michelson.OpSwap),
			michelson.Prim(michelson.OpPair),
		),
	}

	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)
	a := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: forwarder,
		Storage: michelson.UUnit{}, Balance: 50})
	b := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: storer(),
		Storage: uint_(0), Balance: 20})
	s.Validate(ExpectAnySuccess())
	require.NoError(t, s.Err())

	s.Transfer(mvm.TransferOp{Sender: alice, Dest: a, Amount: 0,
		Parameter: michelson.UString{S: b.String()}})
	s.Validate(ExpectSuccess(Compose(
		ExpectStorageConst(b, michelson.IntV(7)),
		ExpectBalance(b, 30),
		ExpectBalance(a, 40),
	)))
	require.NoError(t, s.Err())
}

func TestAtomicRollback(t *testing.T) {
	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)
	counter := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: storer(), Storage: uint_(0)})
	s.Validate(ExpectAnySuccess())
	require.NoError(t, s.Err())

	s.Transfer(mvm.TransferOp{Sender: alice, Dest: counter, Amount: 0, Parameter: uint_(1)})
	s.Validate(ExpectSuccess(ExpectStorageConst(counter, michelson.IntV(1))))
	require.NoError(t, s.Err())

	// The second batch's validator rejects; storage stays as after the
	// first batch.
	s.Transfer(mvm.TransferOp{Sender: alice, Dest: counter, Amount: 0, Parameter: uint_(2)})
	s.Validate(ExpectSuccess(ExpectStorageConst(counter, michelson.IntV(999))))
	require.Error(t, s.Err())
	assert.True(t, vmerrors.IsIncorrectUpdates(s.Err()))

	st, _ := s.GState().Account(counter)
	assert.True(t, michelson.ValuesEqual(michelson.IntV(1), st.Contract.Storage))
}

func TestScenarioPoisoning(t *testing.T) {
	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)

	s.Transfer(mvm.TransferOp{
		Sender: alice, Dest: michelson.ImplicitAccount(kh(9)),
		Amount: 1, Parameter: michelson.UUnit{},
	})
	s.Validate(ExpectAnySuccess())
	require.Error(t, s.Err())
	assert.True(t, vmerrors.IsUnexpectedInterpreterError(s.Err()))
	assert.Contains(t, s.Err().Error(), "scenario step 3")
	first := s.Err()

	// Later steps are skipped and do not overwrite the first error.
	addr := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: adder(), Storage: uint_(0)})
	assert.Equal(t, michelson.Address{}, addr)
	s.Transfer(mvm.TransferOp{Sender: alice, Dest: alice, Amount: 1, Parameter: michelson.UUnit{}})
	s.Validate(ExpectAnySuccess())
	assert.Same(t, first, s.Err())

	st, _ := s.GState().Account(alice)
	assert.Equal(t, michelson.Mutez(100), st.Balance)
}

func TestExpectingFailureButSucceeding(t *testing.T) {
	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)

	s.Transfer(mvm.TransferOp{Sender: alice, Dest: alice, Amount: 1, Parameter: michelson.UUnit{}})
	s.Validate(ExpectError(func(vmerrors.InterpreterError) bool { return true }))
	require.Error(t, s.Err())
	assert.True(t, vmerrors.IsExpectingInterpreterToFail(s.Err()))
}

func TestComposeReportsAllFailures(t *testing.T) {
	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)
	counter := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: adder(), Storage: uint_(0)})
	s.Validate(ExpectAnySuccess())
	require.NoError(t, s.Err())

	s.Transfer(mvm.TransferOp{Sender: alice, Dest: counter, Amount: 0, Parameter: uint_(1)})
	s.Validate(ExpectSuccess(Compose(
		ExpectBalance(alice, 7),
		ExpectBalance(counter, 7),
	)))
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "2 errors occurred")
}

func TestComposeIdentity(t *testing.T) {
	// Composing with no checks accepts whatever ExpectAnySuccess accepts.
	run := func(v Validator) error {
		s := New()
		alice := s.AddSimpleAccount(kh(1), 100)
		s.Transfer(mvm.TransferOp{Sender: alice, Dest: alice, Amount: 1, Parameter: michelson.UUnit{}})
		s.Validate(v)
		return s.Err()
	}
	assert.NoError(t, run(ExpectAnySuccess()))
	assert.NoError(t, run(ExpectSuccess(Compose())))
	assert.NoError(t, run(ExpectSuccess(Compose(ExpectBalance(
		michelson.ImplicitAccount(kh(1)), 100)))))
}

func TestScenarioCollectsPrintOutput(t *testing.T) {
	printing := &michelson.UContract{
		Param:   michelson.IntT,
		Storage: michelson.TUnit{},
		Code: michelson.Seq(
			michelson.Prim(michelson.OpCar),
			michelson.UInstr{Op: michelson.OpExtPrint, Print: &michelson.PrintComment{
				Parts: []michelson.PrintPart{
					{Text: "got "},
					{Ref: &michelson.StackRef{Idx: 0}},
				},
			}},
			michelson.Prim(michelson.OpDrop),
			michelson.Prim(michelson.OpUnit),
			michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
			michelson.Prim(michelson.OpPair),
		),
	}

	s := New()
	alice := s.AddSimpleAccount(kh(1), 100)
	addr := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: printing, Storage: michelson.UUnit{}})
	s.Validate(ExpectAnySuccess())

	s.Transfer(mvm.TransferOp{Sender: alice, Dest: addr, Amount: 0, Parameter: uint_(1)})
	s.Validate(ExpectAnySuccess())
	s.Transfer(mvm.TransferOp{Sender: alice, Dest: addr, Amount: 0, Parameter: uint_(2)})
	s.Validate(ExpectAnySuccess())
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"got 1", "got 2"}, s.Printed())
}

func TestScenarioClock(t *testing.T) {
	stamping := &michelson.UContract{
		Param:   michelson.TUnit{},
		Storage: michelson.TimestampT,
		Code: michelson.Seq(
			michelson.Prim(michelson.OpDrop),
			michelson.Prim(michelson.OpNow),
			michelson.UInstr{Op: michelson.OpNil, Typ: michelson.TOperation{}},
			michelson.Prim(michelson.OpPair),
		),
	}

	s := New(WithNow(100))
	alice := s.AddSimpleAccount(kh(1), 100)
	addr := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: stamping, Storage: uint_(0)})
	s.Validate(ExpectAnySuccess())

	s.Transfer(mvm.TransferOp{Sender: alice, Dest: addr, Amount: 0, Parameter: michelson.UUnit{}})
	s.Validate(ExpectSuccess(ExpectStorageConst(addr, michelson.VTimestamp{T: 100})))

	s.SetNow(250)
	s.Transfer(mvm.TransferOp{Sender: alice, Dest: addr, Amount: 0, Parameter: michelson.UUnit{}})
	s.Validate(ExpectSuccess(ExpectStorageConst(addr, michelson.VTimestamp{T: 250})))
	require.NoError(t, s.Err())
}

func TestPlannedAddressesAreStable(t *testing.T) {
	build := func() (michelson.Address, michelson.Address) {
		s := New()
		s.AddSimpleAccount(kh(1), 100)
		a := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: adder(), Storage: uint_(0)})
		b := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: adder(), Storage: uint_(0)})
		s.Validate(ExpectAnySuccess())
		require.NoError(t, s.Err())

		// Both planned addresses resolve in the committed state.
		_, ok := s.GState().Account(a)
		require.True(t, ok)
		_, ok = s.GState().Account(b)
		require.True(t, ok)
		return a, b
	}

	a1, b1 := build()
	a2, b2 := build()
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.NotEqual(t, a1, b1)
}

func TestIllTypedOriginationFailsAtEnqueue(t *testing.T) {
	bad := &michelson.UContract{
		Param:   michelson.IntT,
		Storage: michelson.IntT,
		Code:    michelson.Seq(michelson.Prim(michelson.OpCdr)),
	}
	s := New()
	s.AddSimpleAccount(kh(1), 100)
	addr := s.Originate(mvm.OriginateOp{Manager: kh(0xff), Contract: bad, Storage: uint_(0)})
	assert.Equal(t, michelson.Address{}, addr)
	require.Error(t, s.Err())
	assert.True(t, vmerrors.IsIEIllTypedContract(s.Err()))
}
