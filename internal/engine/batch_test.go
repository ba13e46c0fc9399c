package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-fleet-go/internal/wallet"
)

func testAccounts(n int) []wallet.Account {
	accounts := make([]wallet.Account, n)
	for i := range accounts {
		accounts[i] = wallet.Account{Address: common.BigToAddress(big.NewInt(int64(i + 1)))}
	}
	return accounts
}

func TestBatchRunner_EveryAccountOnce(t *testing.T) {
	accounts := testAccounts(20)
	var handled atomic.Int32

	results, err := NewBatchRunner(4).Run(context.Background(), accounts, func(ctx context.Context, acct wallet.Account) error {
		handled.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(len(accounts)), handled.Load())
	assert.Len(t, results, len(accounts))
	for _, r := range results {
		assert.NoError(t, r)
	}
}

func TestBatchRunner_BoundsInFlightWork(t *testing.T) {
	const workers = 3
	accounts := testAccounts(12)

	var inFlight, peak atomic.Int32
	_, err := NewBatchRunner(workers).Run(context.Background(), accounts, func(ctx context.Context, acct wallet.Account) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Greater(t, peak.Load(), int32(1), "work never overlapped")
}

func TestBatchRunner_IsolatesAccountErrors(t *testing.T) {
	accounts := testAccounts(5)
	bad := accounts[2].Address

	results, err := NewBatchRunner(2).Run(context.Background(), accounts, func(ctx context.Context, acct wallet.Account) error {
		if acct.Address == bad {
			return fmt.Errorf("account %s misbehaved", acct.Address.Hex())
		}
		return nil
	})
	require.NoError(t, err, "one bad account must not fail the run")
	for i, r := range results {
		if i == 2 {
			assert.Error(t, r)
		} else {
			assert.NoError(t, r)
		}
	}
}

func TestBatchRunner_FatalAbortsRun(t *testing.T) {
	accounts := testAccounts(50)
	cause := errors.New("chain gone")
	var started atomic.Int32

	results, err := NewBatchRunner(1).Run(context.Background(), accounts, func(ctx context.Context, acct wallet.Account) error {
		n := started.Add(1)
		if n == 3 {
			return Fatal(cause)
		}
		return nil
	})
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, cause)
	// With one worker the abort lands on the third account and nothing after
	// it runs.
	assert.Equal(t, int32(3), started.Load())
	assert.Len(t, results, len(accounts))
}

func TestBatchRunner_RespectsCancelledContext(t *testing.T) {
	accounts := testAccounts(100)
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32

	_, err := NewBatchRunner(2).Run(ctx, accounts, func(ctx context.Context, acct wallet.Account) error {
		if started.Add(1) == 5 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Less(t, started.Load(), int32(len(accounts)))
}

func TestBatchRunner_ZeroConcurrencyClampsToOne(t *testing.T) {
	r := NewBatchRunner(0)
	assert.Equal(t, 1, r.Concurrency)
}
