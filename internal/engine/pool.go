package engine

import (
	"sync"
	"time"
)

// EndpointPool holds the candidate RPC endpoints and the rotation state
// shared by every worker in the process.
//
// The pool pins one endpoint at a time. The pin is chosen uniformly at
// random on first use and held until an explicit Rotate. Rotation tracks the
// endpoints consumed since the last full exhaustion so that no endpoint
// repeats within one cycle; once every endpoint has been burned the used set
// resets and the cycle starts over.
type EndpointPool struct {
	endpoints []string // immutable after construction
	cooldown  time.Duration

	mu      sync.Mutex
	current string
	used    map[string]struct{}

	// rotating serializes rotation decisions: when N workers fail on the
	// same dead endpoint, exactly one of them performs the rotation and the
	// rest wait for it to finish, then retry against whatever is current.
	rotating sync.Mutex
}

// NewEndpointPool builds a pool over urls. The cooldown is the fixed delay
// imposed after every rotation to avoid hot-looping against a globally
// failing network.
func NewEndpointPool(urls []string, cooldown time.Duration) (*EndpointPool, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyPool
	}
	if cooldown < time.Second {
		cooldown = time.Second
	}
	eps := make([]string, len(urls))
	copy(eps, urls)
	return &EndpointPool{
		endpoints: eps,
		cooldown:  cooldown,
		used:      make(map[string]struct{}),
	}, nil
}

// Current returns the pinned endpoint, selecting one at random on first use.
func (p *EndpointPool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == "" {
		p.current = p.endpoints[secureIntn(len(p.endpoints))]
	}
	return p.current
}

// Rotate burns the current endpoint and pins a random one from the remaining
// set, resetting the set first when it would cover the whole pool. It sleeps
// for the configured cooldown before returning the new endpoint.
func (p *EndpointPool) Rotate() string {
	p.mu.Lock()
	if p.current != "" {
		p.used[p.current] = struct{}{}
	}

	remaining := p.remainingLocked()
	if len(remaining) == 0 {
		p.used = make(map[string]struct{})
		remaining = p.endpoints
	}
	p.current = remaining[secureIntn(len(remaining))]
	next := p.current
	p.mu.Unlock()

	time.Sleep(p.cooldown)
	return next
}

// TryRotate performs a single-flight rotation. The caller that wins the
// guard rotates and reports true; losers block until the winner finishes and
// report false without rotating again.
func (p *EndpointPool) TryRotate() (string, bool) {
	if p.rotating.TryLock() {
		defer p.rotating.Unlock()
		return p.Rotate(), true
	}
	// Another worker is already rotating away from the dead endpoint. Wait
	// for it so the retry sees the fresh pin.
	p.rotating.Lock()
	p.rotating.Unlock()
	return p.Current(), false
}

// Size returns the number of endpoints in the pool.
func (p *EndpointPool) Size() int {
	return len(p.endpoints)
}

// Endpoints returns a copy of the full endpoint list.
func (p *EndpointPool) Endpoints() []string {
	out := make([]string, len(p.endpoints))
	copy(out, p.endpoints)
	return out
}

func (p *EndpointPool) remainingLocked() []string {
	var out []string
	for _, ep := range p.endpoints {
		if _, ok := p.used[ep]; !ok {
			out = append(out, ep)
		}
	}
	return out
}
