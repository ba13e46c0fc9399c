package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCallTimeout is the hard per-call deadline. Exceeding it classifies
// as transient and rotates the endpoint.
const DefaultCallTimeout = 5 * time.Second

// ClassifiedError carries the classification of an account-level failure so
// callers can record it without re-parsing messages.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Invoker executes remote operations against the pool's current endpoint,
// applying the per-call timeout, a global request-rate cap and the
// classification policy:
//
//   - transient errors rotate the pool (single-flight) and retry without
//     bound; public endpoints are assumed eventually reachable
//   - nonce-too-low retries the identical call against the same endpoint
//   - proxy-auth and insufficient-funds surface as account-level errors
//   - everything else propagates to the caller unmodified
type Invoker struct {
	pool    *EndpointPool
	dial    ClientFactory
	timeout time.Duration
	limiter *rate.Limiter

	mu      sync.Mutex
	clients map[string]ChainClient
}

// NewInvoker builds an invoker over pool. rps caps the aggregate request
// rate across all workers; zero disables the cap.
func NewInvoker(pool *EndpointPool, dial ClientFactory, timeout time.Duration, rps float64) *Invoker {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(rps*2)+1)
	}
	return &Invoker{
		pool:    pool,
		dial:    dial,
		timeout: timeout,
		limiter: limiter,
	}
}

// Do runs fn against a client for the pool's current endpoint until it
// succeeds or fails with a non-retryable classification. label names the
// operation for metrics and logs.
func (inv *Invoker) Do(ctx context.Context, label string, fn func(ctx context.Context, c ChainClient) error) error {
	m := GetMetrics()
	m.CallsTotal.WithLabelValues(label).Inc()
	start := time.Now()
	defer func() {
		m.CallLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if inv.limiter != nil {
			if err := inv.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		endpoint := inv.pool.Current()
		err := inv.call(ctx, endpoint, fn)
		if err == nil {
			return nil
		}

		kind := Classify(err)
		switch kind {
		case KindTransient:
			m.CallRetries.WithLabelValues(kind.String()).Inc()
			next, rotated := inv.pool.TryRotate()
			if rotated {
				m.PoolRotations.Inc()
				Logger.Warn("ENDPOINT_ROTATED",
					"op", label,
					"errored", endpoint,
					"next", next,
					"error", err.Error(),
				)
			}
			continue
		case KindNonceTooLow:
			m.CallRetries.WithLabelValues(kind.String()).Inc()
			Logger.Debug("NONCE_RACE_RETRY", "op", label, "endpoint", endpoint)
			continue
		case KindProxyAuth, KindInsufficientFunds:
			m.CallsFailed.WithLabelValues(kind.String()).Inc()
			return &ClassifiedError{Kind: kind, Err: err}
		default:
			m.CallsFailed.WithLabelValues(kind.String()).Inc()
			return err
		}
	}
}

func (inv *Invoker) call(ctx context.Context, endpoint string, fn func(ctx context.Context, c ChainClient) error) error {
	client, err := inv.client(ctx, endpoint)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()
	return fn(callCtx, client)
}

// client returns the cached client for endpoint, dialing lazily. A dial
// failure is classified like any other call failure by the caller.
func (inv *Invoker) client(ctx context.Context, endpoint string) (ChainClient, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.clients == nil {
		inv.clients = make(map[string]ChainClient)
	}
	if c, ok := inv.clients[endpoint]; ok {
		return c, nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()
	c, err := inv.dial(dialCtx, endpoint)
	if err != nil {
		return nil, err
	}
	inv.clients[endpoint] = c
	return c, nil
}

// Close closes every dialed client.
func (inv *Invoker) Close() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, c := range inv.clients {
		c.Close()
	}
	inv.clients = nil
}
