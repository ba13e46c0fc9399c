package ops

import (
	"context"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-fleet-go/internal/engine"
	"wallet-fleet-go/internal/store"
)

type captureRecorder struct {
	calls    int
	recorded []store.PassResult
}

func (c *captureRecorder) RecordPass(_ context.Context, rows []store.PassResult) error {
	c.calls++
	c.recorded = append(c.recorded, rows...)
	return nil
}

type captureHub struct {
	events []string
}

func (c *captureHub) Broadcast(eventType string, _ any) {
	c.events = append(c.events, eventType)
}

type stubTool struct {
	remaining *uint256.Int
}

func (s stubTool) Scheduler(func()) (*engine.Scheduler, error) { return nil, nil }
func (s stubTool) WorkRemaining() *uint256.Int { return s.remaining }

func TestSnapshotObserver_RecordsCompletedPassesOnly(t *testing.T) {
	fc := newFakeChain(big.NewInt(42161), 100)
	rt := testRuntime(t, fc, 2)

	rec := &captureRecorder{}
	hub := &captureHub{}
	state := engine.StateWaiting
	observe := snapshotObserver(context.Background(), rt, stubTool{uint256.NewInt(9)}, hub, rec,
		func() engine.SchedulerState { return state })

	// Gate-wait refreshes broadcast the snapshot but produce no DB rows.
	observe()
	observe()
	assert.Equal(t, 0, rec.calls)
	assert.Len(t, hub.events, 2)

	state = engine.StateActive
	observe()
	observe()
	require.Equal(t, 2, rec.calls)

	// One row per account, numbered by completed pass.
	require.Len(t, rec.recorded, 4)
	assert.Equal(t, int64(1), rec.recorded[0].PassNumber)
	assert.Equal(t, int64(1), rec.recorded[1].PassNumber)
	assert.Equal(t, int64(2), rec.recorded[2].PassNumber)
	assert.Len(t, hub.events, 4)
}
