package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techoluwoye/lorentz-contract-param/mvm/errors"
)

func TestMeterCountsDown(t *testing.T) {
	m := NewMeter(3)
	assert.Equal(t, uint64(3), m.Remaining())

	for i := 0; i < 3; i++ {
		require.Nil(t, m.Step())
	}
	assert.Equal(t, uint64(0), m.Remaining())

	f := m.Step()
	require.NotNil(t, f)
	assert.True(t, errors.IsMichelsonGasExhaustion(f))

	// An exhausted meter stays exhausted.
	assert.NotNil(t, m.Step())
	assert.Equal(t, uint64(0), m.Remaining())
}

func TestZeroQuotaFailsImmediately(t *testing.T) {
	m := NewMeter(0)
	assert.True(t, errors.IsMichelsonGasExhaustion(m.Step()))
}
