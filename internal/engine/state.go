package engine

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// OperationResult is the per-account outcome of one pass. It is overwritten
// every pass; no history is kept beyond the current snapshot.
type OperationResult struct {
	Skipped       bool
	SkipReason    string
	TxHash        common.Hash
	ReceiptStatus int // -1 when no receipt was observed
	Err           error
	Kind          ErrorKind
}

// Submitted reports whether the pass produced a transaction for the account.
func (r OperationResult) Submitted() bool {
	return r.TxHash != (common.Hash{})
}

// AccountState is the mutable per-account record. A given account's entry is
// written only by the worker currently processing that account; readers take
// snapshots between passes through the table.
type AccountState struct {
	Balance         *big.Int
	TransferBalance *big.Int // native balance of the paired destination
	Claimable       *big.Int
	TokenBalance    *big.Int
	TotalMoved      *big.Int // cumulative amount moved off the account
	Verdict         *AffordabilityVerdict
	Result          OperationResult
}

// StateTable holds all per-account state, keyed by a stable per-line address
// resolved once at startup (the signing address, or the paired destination
// for tools whose wallet files repeat a source key). Entries are created for
// the full account list at construction and never removed.
type StateTable struct {
	mu      sync.RWMutex
	order   []common.Address
	entries map[common.Address]*AccountState
}

// NewStateTable pre-creates an entry per address, preserving list order for
// presentation. Completion order of workers is meaningless for display.
func NewStateTable(addrs []common.Address) *StateTable {
	t := &StateTable{
		order:   make([]common.Address, len(addrs)),
		entries: make(map[common.Address]*AccountState, len(addrs)),
	}
	copy(t.order, addrs)
	for _, a := range addrs {
		t.entries[a] = &AccountState{
			Balance:         new(big.Int),
			TransferBalance: new(big.Int),
			Claimable:       new(big.Int),
			TokenBalance:    new(big.Int),
			TotalMoved:      new(big.Int),
			Result:          OperationResult{ReceiptStatus: -1},
		}
	}
	return t
}

// Update applies fn to the entry for addr under the table lock. Unknown
// addresses are ignored; the account list is fixed at startup.
func (t *StateTable) Update(addr common.Address, fn func(*AccountState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.entries[addr]; ok {
		fn(st)
	}
}

// Get returns a copy of the entry for addr.
func (t *StateTable) Get(addr common.Address) (AccountState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.entries[addr]
	if !ok {
		return AccountState{}, false
	}
	return *st, true
}

// Order returns the static presentation order.
func (t *StateTable) Order() []common.Address {
	out := make([]common.Address, len(t.order))
	copy(out, t.order)
	return out
}

// Snapshot returns copies of every entry in presentation order.
func (t *StateTable) Snapshot() []AccountState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]AccountState, 0, len(t.order))
	for _, a := range t.order {
		out = append(out, *t.entries[a])
	}
	return out
}

// SumClaimable adds up the claimable amounts across all accounts. This is
// the claimer's work-remaining aggregate.
func (t *StateTable) SumClaimable() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sum := new(uint256.Int)
	for _, st := range t.entries {
		if st.Claimable != nil {
			v, _ := uint256.FromBig(st.Claimable)
			sum.Add(sum, v)
		}
	}
	return sum
}

// SumTokenBalances adds up the in-wallet token balances across all accounts.
func (t *StateTable) SumTokenBalances() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sum := new(uint256.Int)
	for _, st := range t.entries {
		if st.TokenBalance != nil {
			v, _ := uint256.FromBig(st.TokenBalance)
			sum.Add(sum, v)
		}
	}
	return sum
}
