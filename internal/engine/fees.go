package engine

import (
	"math/big"
	"sync"
)

// FeeSource is the process-wide ambient fee-per-gas setting. Every write
// operation in a pass prices its transaction from here, and the scheduler
// escalation wrapper refreshes it when the network rejects the current value
// as stale.
type FeeSource struct {
	mu        sync.RWMutex
	feePerGas *big.Int // wei
	increment *big.Int // wei, added on every escalation
}

// NewFeeSource builds a fee source starting at feePerGas wei. The increment
// is the fixed safety margin added on top of the network gas price during
// escalation.
func NewFeeSource(feePerGas, increment *big.Int) *FeeSource {
	return &FeeSource{
		feePerGas: new(big.Int).Set(feePerGas),
		increment: new(big.Int).Set(increment),
	}
}

// FeePerGas returns a copy of the current fee-per-gas in wei.
func (f *FeeSource) FeePerGas() *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return new(big.Int).Set(f.feePerGas)
}

// Escalate replaces the ambient fee with networkPrice plus the safety
// increment and returns the new value.
func (f *FeeSource) Escalate(networkPrice *big.Int) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feePerGas = new(big.Int).Add(networkPrice, f.increment)
	GetMetrics().FeeEscalations.Inc()
	return new(big.Int).Set(f.feePerGas)
}
