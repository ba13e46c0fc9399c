package engine

import (
	"sync/atomic"
	"time"
)

// BlockHeightGate is the single source of truth for the campaign's
// block-height condition. The scheduler's Waiting state polls the chain and
// records the observed height here; all write activity is gated on
// observed >= target.
type BlockHeightGate struct {
	target    int64
	observed  atomic.Int64
	updatedAt atomic.Int64 // unix nano of last SetObserved
}

// NewBlockHeightGate builds a gate for the configured target height.
func NewBlockHeightGate(target int64) *BlockHeightGate {
	g := &BlockHeightGate{target: target}
	GetMetrics().TargetHeight.Set(float64(target))
	return g
}

// SetObserved records the latest polled chain height. This is the only
// writer; everything else reads through Observed/Open/Gap.
func (g *BlockHeightGate) SetObserved(height int64) {
	g.observed.Store(height)
	g.updatedAt.Store(time.Now().UnixNano())
	GetMetrics().ChainHeight.Set(float64(height))
}

// Observed returns the last polled chain height.
func (g *BlockHeightGate) Observed() int64 {
	return g.observed.Load()
}

// Target returns the configured gate height.
func (g *BlockHeightGate) Target() int64 {
	return g.target
}

// Open reports whether the gate condition observed >= target holds.
func (g *BlockHeightGate) Open() bool {
	return g.observed.Load() >= g.target
}

// Gap returns the number of blocks until the gate opens, clamped to 0.
func (g *BlockHeightGate) Gap() int64 {
	gap := g.target - g.observed.Load()
	if gap < 0 {
		return 0
	}
	return gap
}

// UpdatedAt returns the time of the last SetObserved call.
func (g *BlockHeightGate) UpdatedAt() time.Time {
	return time.Unix(0, g.updatedAt.Load())
}
