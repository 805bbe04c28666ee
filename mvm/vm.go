package mvm

import (
	"fmt"

	"github.com/ef-ds/deque"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm/errors"
	"github.com/techoluwoye/lorentz-contract-param/mvm/meter"
	"github.com/techoluwoye/lorentz-contract-param/mvm/state"
	"github.com/techoluwoye/lorentz-contract-param/mvm/typechecker"
)

// InterpreterResult is the outcome of a successful batch: the new snapshot,
// the journal that produced it, and the batch bookkeeping the caller threads
// into the next batch.
type InterpreterResult struct {
	GState  *state.GState
	Updates []state.Update
	// Originated lists the addresses of the batch's top-level
	// originations, in order.
	Originated []michelson.Address
	// Printed collects PRINT output, in execution order.
	Printed []string
	// StepsRemaining is what is left of the batch's step quota.
	StepsRemaining uint64
	// NextOrigination is the origination counter after the batch.
	NextOrigination uint64
}

// Interpret runs a batch of operations against a snapshot. The snapshot is
// never mutated: on success the result carries a new snapshot plus the
// journal that, replayed over the input snapshot, reproduces it. On error the
// batch has no effect and the caller keeps its snapshot.
func Interpret(ctx Context, g *state.GState, ops []BlockchainOp) (*InterpreterResult, errors.InterpreterError) {
	m := &vm{
		ctx:         ctx,
		work:        g.Copy(),
		meter:       meter.NewMeter(ctx.MaxSteps),
		origination: ctx.Origination,
	}

	var originated []michelson.Address
	for _, op := range ops {
		switch o := op.(type) {
		case OriginateOp:
			addr, err := m.originate(o)
			if err != nil {
				return nil, err
			}
			originated = append(originated, addr)
		case TransferOp:
			if err := m.transfer(o); err != nil {
				return nil, err
			}
		default:
			panic(fmt.Sprintf("unknown blockchain operation %T", op))
		}
	}

	return &InterpreterResult{
		GState:          m.work,
		Updates:         m.journal,
		Originated:      originated,
		Printed:         m.printed,
		StepsRemaining:  m.meter.Remaining(),
		NextOrigination: m.origination,
	}, nil
}

// vm is the per-batch execution state. Every state change goes through
// mutate, which keeps the working snapshot and the journal in lock step.
type vm struct {
	ctx         Context
	work        *state.GState
	journal     []state.Update
	meter       *meter.Meter
	pending     deque.Deque
	origination uint64
	printed     []string
}

func (m *vm) mutate(u state.Update) {
	if err := u.Apply(m.work); err != nil {
		// Every update is validated against the working snapshot before
		// it is recorded, so Apply cannot fail here.
		panic(fmt.Sprintf("journal update failed: %s", err))
	}
	m.journal = append(m.journal, u)
}

func (m *vm) nextOrigination() uint64 {
	n := m.origination
	m.origination++
	return n
}

// PlanOrigination type-checks an origination and computes the address it will
// be assigned when interpreted with the given origination counter. The
// scenario driver uses it to hand out addresses before the batch runs.
func PlanOrigination(counter uint64, o OriginateOp) (michelson.Address, errors.InterpreterError) {
	addr, _, _, err := planOrigination(counter, o)
	return addr, err
}

func planOrigination(counter uint64, o OriginateOp) (michelson.Address, *michelson.Contract, michelson.Value, errors.InterpreterError) {
	if o.Contract == nil {
		panic("origination without a contract")
	}
	checked, tcErr := typechecker.TypecheckContract(o.Contract)
	if tcErr != nil {
		return michelson.Address{}, nil, nil, errors.NewIEIllTypedContract(tcErr)
	}
	storage, tcErr := typechecker.TypecheckValue(o.Storage, checked.Storage)
	if tcErr != nil {
		return michelson.Address{}, nil, nil, errors.NewIEIllTypedContract(tcErr)
	}
	return deriveContractAddress(counter, o.Balance, storage, checked), checked, storage, nil
}

func (m *vm) originate(o OriginateOp) (michelson.Address, errors.InterpreterError) {
	addr, checked, storage, ierr := planOrigination(m.nextOrigination(), o)
	if ierr != nil {
		return michelson.Address{}, ierr
	}
	m.ctx.Logger.Debug().
		Stringer("address", addr).
		Stringer("balance", o.Balance).
		Msg("originating contract")

	m.mutate(state.ContractCreated{
		Addr: addr,
		Account: state.AccountState{
			Balance:  o.Balance,
			Delegate: o.Delegate,
			Contract: &state.ContractState{
				Storage:     storage,
				Code:        checked,
				ParamType:   checked.Param,
				StorageType: checked.Storage,
			},
		},
	})
	return addr, nil
}

// queuedOp is one operation awaiting application: either the batch's
// top-level transfer or an operation some contract emitted.
type queuedOp struct {
	// emitter pays for and signs the operation: the transfer sender, or
	// the contract whose code emitted it.
	emitter michelson.Address
	// source is the sender of the top-level transfer the operation
	// descends from.
	source michelson.Address
	op     michelson.Operation
}

func (m *vm) transfer(o TransferOp) errors.InterpreterError {
	if _, ok := m.work.Account(o.Sender); !ok {
		return errors.NewIEUnknownSender(o.Sender)
	}

	destSt, ok := m.work.Account(o.Dest)
	if !ok {
		return errors.NewIEUnknownContract(o.Dest)
	}

	paramType := michelson.Type(michelson.TUnit{})
	if !destSt.IsSimple() {
		paramType = destSt.Contract.ParamType
	}
	param, tcErr := typechecker.TypecheckValue(o.Parameter, paramType)
	if tcErr != nil {
		return errors.NewIEIllTypedParameter(tcErr)
	}

	m.pending.PushBack(queuedOp{
		emitter: o.Sender,
		source:  o.Sender,
		op: michelson.TransferTokensOp{
			Parameter: param,
			ParamType: paramType,
			Amount:    o.Amount,
			Dest:      o.Dest,
		},
	})
	return m.drain()
}

func (m *vm) drain() errors.InterpreterError {
	for {
		next, ok := m.pending.PopFront()
		if !ok {
			return nil
		}
		q := next.(queuedOp)
		if err := m.applyQueued(q); err != nil {
			return err
		}
	}
}

func (m *vm) applyQueued(q queuedOp) errors.InterpreterError {
	switch op := q.op.(type) {
	case michelson.TransferTokensOp:
		return m.runTransfer(q, op)

	case michelson.SetDelegateOp:
		if _, ok := m.work.Account(q.emitter); !ok {
			return errors.NewIEUnknownContract(q.emitter)
		}
		m.mutate(state.DelegateSet{Addr: q.emitter, Delegate: op.Delegate})
		return nil

	case michelson.CreateAccountOp:
		if err := m.debit(q.emitter, op.Balance, michelson.OpCreateAccount); err != nil {
			return err
		}
		m.mutate(state.SimpleAccountCreated{Addr: op.Addr, Balance: op.Balance})
		if op.Delegate != nil {
			m.mutate(state.DelegateSet{Addr: op.Addr, Delegate: op.Delegate})
		}
		return nil

	case michelson.CreateContractOp:
		if err := m.debit(q.emitter, op.Balance, michelson.OpCreateContract); err != nil {
			return err
		}
		m.mutate(state.ContractCreated{
			Addr: op.Addr,
			Account: state.AccountState{
				Balance:  op.Balance,
				Delegate: op.Delegate,
				Contract: &state.ContractState{
					Storage:     op.Storage,
					Code:        op.Code,
					ParamType:   op.Code.Param,
					StorageType: op.Code.Storage,
				},
			},
		})
		return nil

	default:
		panic(fmt.Sprintf("unknown internal operation %T", q.op))
	}
}

func (m *vm) debit(addr michelson.Address, amount michelson.Mutez, op michelson.OpCode) errors.InterpreterError {
	st, ok := m.work.Account(addr)
	if !ok {
		return errors.NewIEUnknownContract(addr)
	}
	balance, err := st.Balance.Sub(amount)
	if err != nil {
		return errors.NewIEInterpreterFailed(addr, errors.NewMichelsonArithError(op, err))
	}
	m.mutate(state.BalanceUpdated{Addr: addr, Balance: balance})
	return nil
}

func (m *vm) runTransfer(q queuedOp, op michelson.TransferTokensOp) errors.InterpreterError {
	if err := m.debit(q.emitter, op.Amount, michelson.OpTransferTokens); err != nil {
		return err
	}

	destSt, ok := m.work.Account(op.Dest)
	if !ok {
		return errors.NewIEUnknownContract(op.Dest)
	}
	balance, err := destSt.Balance.Add(op.Amount)
	if err != nil {
		return errors.NewIEInterpreterFailed(op.Dest, errors.NewMichelsonArithError(michelson.OpTransferTokens, err))
	}
	m.mutate(state.BalanceUpdated{Addr: op.Dest, Balance: balance})

	if destSt.IsSimple() {
		return nil
	}
	contract := destSt.Contract

	m.ctx.Logger.Debug().
		Stringer("dest", op.Dest).
		Stringer("amount", op.Amount).
		Str("parameter", op.Parameter.String()).
		Msg("running contract")

	env := &execEnv{
		vm:        m,
		self:      op.Dest,
		sender:    q.emitter,
		source:    q.source,
		amount:    op.Amount,
		balance:   balance,
		paramType: contract.ParamType,
	}
	stack := []michelson.Value{michelson.VPair{Car: op.Parameter, Cdr: contract.Storage}}
	out, failure := env.run(contract.Code.Code, stack)
	if failure != nil {
		return errors.NewIEInterpreterFailed(op.Dest, failure)
	}
	if len(out) != 1 {
		panic(fmt.Sprintf("contract left %d stack items", len(out)))
	}
	result := out[0].(michelson.VPair)
	emitted := result.Car.(michelson.VList)

	m.mutate(state.StorageValueSet{Addr: op.Dest, Storage: result.Cdr})

	for _, item := range emitted.Items {
		vop := item.(michelson.VOp)
		m.pending.PushBack(queuedOp{emitter: op.Dest, source: q.source, op: vop.Op})
	}
	return nil
}
