// Package meter bounds interpreter compute with a monotone remaining-steps
// counter. One unit is charged per executed instruction; the counter is
// shared across every transfer of a batch, including the operations those
// transfers emit.
package meter

import "github.com/techoluwoye/lorentz-contract-param/mvm/errors"

// Meter counts down the steps a batch may still execute.
type Meter struct {
	remaining uint64
}

// NewMeter constructs a meter allowing maxSteps instructions.
func NewMeter(maxSteps uint64) *Meter {
	return &Meter{remaining: maxSteps}
}

// Step charges one instruction, returning a gas exhaustion failure when
// nothing remains.
func (m *Meter) Step() errors.RuntimeFailure {
	if m.remaining == 0 {
		return errors.NewMichelsonGasExhaustion()
	}
	m.remaining--
	return nil
}

// Remaining reports how many steps are left; STEPS_TO_QUOTA pushes this.
func (m *Meter) Remaining() uint64 { return m.remaining }
