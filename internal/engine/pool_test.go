package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, urls ...string) *EndpointPool {
	t.Helper()
	p, err := NewEndpointPool(urls, time.Second)
	require.NoError(t, err)
	// Rotation cooldown is there to pace real networks, not tests.
	p.cooldown = time.Millisecond
	return p
}

func TestEndpointPool_Empty(t *testing.T) {
	_, err := NewEndpointPool(nil, time.Second)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestEndpointPool_CooldownFloor(t *testing.T) {
	p, err := NewEndpointPool([]string{"http://a"}, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Second, p.cooldown)
}

func TestEndpointPool_CurrentIsStable(t *testing.T) {
	p := newTestPool(t, "http://a", "http://b", "http://c")
	first := p.Current()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.Current())
	}
	assert.Contains(t, p.Endpoints(), first)
}

func TestEndpointPool_RotateNeverRepeatsWithinCycle(t *testing.T) {
	urls := []string{"http://a", "http://b", "http://c", "http://d"}
	p := newTestPool(t, urls...)

	// Two full cycles: within each, every endpoint appears exactly once.
	for cycle := 0; cycle < 2; cycle++ {
		seen := map[string]int{p.Current(): 1}
		for i := 1; i < len(urls); i++ {
			seen[p.Rotate()]++
		}
		assert.Len(t, seen, len(urls))
		for url, n := range seen {
			assert.Equal(t, 1, n, "endpoint %s repeated within a cycle", url)
		}
	}
}

func TestEndpointPool_RotateResetsAfterExhaustion(t *testing.T) {
	p := newTestPool(t, "http://a", "http://b")
	p.Current()
	p.Rotate()
	// Both endpoints burned; the next rotation starts a fresh cycle instead
	// of failing.
	next := p.Rotate()
	assert.Contains(t, p.Endpoints(), next)
	assert.Equal(t, next, p.Current())
}

func TestEndpointPool_TryRotateSingleFlight(t *testing.T) {
	p := newTestPool(t, "http://a", "http://b", "http://c", "http://d")
	p.cooldown = 50 * time.Millisecond
	p.Current()

	const workers = 8
	var winners int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, rotated := p.TryRotate(); rotated {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// All workers started while the first rotation was still inside its
	// cooldown, so at most a couple of rotations can happen; with a pool of
	// four, far fewer than the worker count.
	assert.GreaterOrEqual(t, winners, int32(1))
	assert.Less(t, winners, int32(workers))
}
