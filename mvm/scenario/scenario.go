// Package scenario is the integrational testing harness: a scenario scripts
// originations and transfers against an in-memory chain state, flushes them
// batch-wise through the interpreter and validates each batch's outcome. The
// first failing validation poisons the scenario; later steps are skipped and
// the error surfaces from Err.
package scenario

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/techoluwoye/lorentz-contract-param/michelson"
	"github.com/techoluwoye/lorentz-contract-param/mvm"
	vmerrors "github.com/techoluwoye/lorentz-contract-param/mvm/errors"
	"github.com/techoluwoye/lorentz-contract-param/mvm/state"
)

// Scenario drives batches of operations over a chain state. Originate and
// Transfer only enqueue; Validate flushes the queue through the interpreter
// and checks the outcome. The zero value is not usable; construct with New.
type Scenario struct {
	gstate   *state.GState
	now      int64
	maxSteps uint64
	counter  uint64
	pending  []mvm.BlockchainOp
	logger   zerolog.Logger
	printed  []string
	step     int
	err      error
}

// Option configures a new scenario.
type Option func(*Scenario)

// WithLogger routes execution logs and PRINT output.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scenario) { s.logger = logger }
}

// WithNow sets the initial timestamp.
func WithNow(now int64) Option {
	return func(s *Scenario) { s.now = now }
}

// WithMaxSteps sets the per-batch step quota.
func WithMaxSteps(n uint64) Option {
	return func(s *Scenario) { s.maxSteps = n }
}

// New constructs a scenario over an empty chain state.
func New(opts ...Option) *Scenario {
	s := &Scenario{
		gstate:   state.NewGState(),
		maxSteps: mvm.DefaultMaxSteps,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Err returns the first error a step produced, annotated with the step
// number, or nil while the scenario is healthy.
func (s *Scenario) Err() error { return s.err }

// GState exposes the current committed chain state.
func (s *Scenario) GState() *state.GState { return s.gstate }

// Printed returns all PRINT output committed so far, in execution order.
func (s *Scenario) Printed() []string { return s.printed }

// SetNow moves the scenario clock; following batches see the new timestamp.
func (s *Scenario) SetNow(now int64) { s.now = now }

// SetMaxSteps changes the step quota of following batches.
func (s *Scenario) SetMaxSteps(n uint64) { s.maxSteps = n }

func (s *Scenario) fail(err error) {
	if s.err == nil {
		s.err = errors.Wrapf(err, "scenario step %d", s.step)
	}
}

// AddSimpleAccount seeds a funded simple account directly into the chain
// state, bypassing the interpreter; scenarios use it for genesis balances.
func (s *Scenario) AddSimpleAccount(kh michelson.KeyHash, balance michelson.Mutez) michelson.Address {
	addr := michelson.ImplicitAccount(kh)
	if s.err != nil {
		return addr
	}
	s.step++
	s.gstate.SetAccount(addr, state.AccountState{Balance: balance})
	return addr
}

// Originate enqueues a contract deployment and returns the address the batch
// will assign to it, derived deterministically from the origination counter.
// The contract is type-checked now; nothing executes until Validate.
func (s *Scenario) Originate(op mvm.OriginateOp) michelson.Address {
	if s.err != nil {
		return michelson.Address{}
	}
	s.step++
	addr, ierr := mvm.PlanOrigination(s.counter+s.pendingOriginations(), op)
	if ierr != nil {
		s.fail(ierr)
		return michelson.Address{}
	}
	s.pending = append(s.pending, op)
	return addr
}

// Transfer enqueues a transfer for the next Validate.
func (s *Scenario) Transfer(op mvm.TransferOp) {
	if s.err != nil {
		return
	}
	s.step++
	s.pending = append(s.pending, op)
}

func (s *Scenario) pendingOriginations() uint64 {
	var n uint64
	for _, op := range s.pending {
		if _, ok := op.(mvm.OriginateOp); ok {
			n++
		}
	}
	return n
}

func (s *Scenario) context() mvm.Context {
	return mvm.NewContext(
		mvm.WithNow(s.now),
		mvm.WithMaxSteps(s.maxSteps),
		mvm.WithOrigination(s.counter),
		mvm.WithLogger(s.logger),
	)
}

func (s *Scenario) commit(res *mvm.InterpreterResult) {
	s.gstate = res.GState
	s.counter = res.NextOrigination
	s.printed = append(s.printed, res.Printed...)
	s.logger.Debug().
		Int("updates", len(res.Updates)).
		Uint64("steps_remaining", res.StepsRemaining).
		Msg("batch committed")
}

// Validate flushes the pending operations as one batch and checks the
// outcome against v. On a pass the queue is cleared; a passing expected
// failure leaves the chain state untouched, a passing success commits the
// batch. Any mismatch poisons the scenario.
func (s *Scenario) Validate(v Validator) {
	if s.err != nil {
		return
	}
	s.step++
	batch := s.pending
	res, ierr := mvm.Interpret(s.context(), s.gstate, batch)

	if ierr != nil {
		if v.expectErr == nil || !v.expectErr(ierr) {
			s.fail(vmerrors.NewUnexpectedInterpreterError(ierr))
			return
		}
		s.pending = nil
		return
	}

	if v.expectErr != nil {
		s.fail(vmerrors.NewExpectingInterpreterToFail())
		return
	}
	for _, check := range v.onSuccess {
		if err := check(res.GState, res.Updates); err != nil {
			s.logger.Error().Str("journal", spew.Sdump(res.Updates)).Msg("validation failed")
			s.fail(vmerrors.NewIncorrectUpdates(err, res.Updates))
			return
		}
	}
	s.pending = nil
	s.commit(res)
}
