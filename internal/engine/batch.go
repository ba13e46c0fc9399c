package engine

import (
	"context"
	"errors"
	"sync"

	"wallet-fleet-go/internal/wallet"
)

// AccountTask is one account operation: a read refresh or a full write
// attempt. The task sees exactly one account and runs end to end inside a
// single worker.
type AccountTask func(ctx context.Context, acct wallet.Account) error

// BatchRunner fans an AccountTask out over a fixed-size worker pool. Each
// account is handled exactly once per run; at most Concurrency operations
// are in flight; completion order is unspecified.
type BatchRunner struct {
	Concurrency int
}

// NewBatchRunner builds a runner with the configured worker count.
func NewBatchRunner(concurrency int) *BatchRunner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchRunner{Concurrency: concurrency}
}

// Run executes task over every account. Per-account errors are isolated and
// returned in the slice, indexed like accounts; they do not stop the run.
// A task error wrapped with Fatal cancels the remaining work and is returned
// as the run error.
func (r *BatchRunner) Run(ctx context.Context, accounts []wallet.Account, task AccountTask) ([]error, error) {
	results := make([]error, len(accounts))
	jobs := make(chan int)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatalOnce sync.Once
	var fatalErr error

	var wg sync.WaitGroup
	workers := r.Concurrency
	if workers > len(accounts) {
		workers = len(accounts)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				err := task(runCtx, accounts[i])
				results[i] = err

				var fatal *FatalError
				if errors.As(err, &fatal) {
					fatalOnce.Do(func() {
						fatalErr = fatal
						cancel()
					})
					return
				}
				if err != nil {
					GetMetrics().AccountsFailed.Inc()
				}
			}
		}()
	}

feed:
	for i := range accounts {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if fatalErr != nil {
		return results, fatalErr
	}
	return results, nil
}
