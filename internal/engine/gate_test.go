package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockHeightGate(t *testing.T) {
	g := NewBlockHeightGate(100)
	assert.Equal(t, int64(100), g.Target())
	assert.False(t, g.Open())
	assert.Equal(t, int64(100), g.Gap())

	g.SetObserved(97)
	assert.Equal(t, int64(97), g.Observed())
	assert.False(t, g.Open())
	assert.Equal(t, int64(3), g.Gap())

	g.SetObserved(100)
	assert.True(t, g.Open())
	assert.Equal(t, int64(0), g.Gap())

	// Past the target the gate stays open and the gap stays clamped.
	g.SetObserved(150)
	assert.True(t, g.Open())
	assert.Equal(t, int64(0), g.Gap())
	assert.False(t, g.UpdatedAt().IsZero())
}

func TestFeeSource(t *testing.T) {
	f := NewFeeSource(big.NewInt(100_000_000), big.NewInt(20_000_000))

	fee := f.FeePerGas()
	assert.Equal(t, "100000000", fee.String())

	// Mutating the returned value must not leak into the source.
	fee.SetInt64(1)
	assert.Equal(t, "100000000", f.FeePerGas().String())

	escalated := f.Escalate(big.NewInt(250_000_000))
	assert.Equal(t, "270000000", escalated.String())
	assert.Equal(t, "270000000", f.FeePerGas().String())
}
