package engine

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddrs(n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
	}
	return out
}

func TestStateTable_EntriesExistUpfront(t *testing.T) {
	addrs := testAddrs(3)
	table := NewStateTable(addrs)

	for _, a := range addrs {
		st, ok := table.Get(a)
		require.True(t, ok)
		assert.Equal(t, -1, st.Result.ReceiptStatus)
		assert.Zero(t, st.Balance.Sign())
	}
	_, ok := table.Get(common.BigToAddress(big.NewInt(999)))
	assert.False(t, ok)
}

func TestStateTable_UpdateIgnoresUnknownAddress(t *testing.T) {
	table := NewStateTable(testAddrs(1))
	called := false
	table.Update(common.BigToAddress(big.NewInt(999)), func(st *AccountState) {
		called = true
	})
	assert.False(t, called)
}

func TestStateTable_SnapshotPreservesListOrder(t *testing.T) {
	addrs := testAddrs(4)
	table := NewStateTable(addrs)
	// Write in reverse of presentation order; reads must still follow the
	// static list.
	for i := len(addrs) - 1; i >= 0; i-- {
		addr := addrs[i]
		table.Update(addr, func(st *AccountState) {
			st.Balance = big.NewInt(int64(i + 1))
		})
	}

	assert.Equal(t, addrs, table.Order())
	snap := table.Snapshot()
	require.Len(t, snap, len(addrs))
	for i, st := range snap {
		assert.Equal(t, int64(i+1), st.Balance.Int64())
	}
}

func TestStateTable_GetReturnsCopy(t *testing.T) {
	addrs := testAddrs(1)
	table := NewStateTable(addrs)
	st, _ := table.Get(addrs[0])
	st.Result.Skipped = true

	fresh, _ := table.Get(addrs[0])
	assert.False(t, fresh.Result.Skipped)
}

func TestStateTable_Sums(t *testing.T) {
	addrs := testAddrs(3)
	table := NewStateTable(addrs)
	table.Update(addrs[0], func(st *AccountState) {
		st.Claimable = big.NewInt(100)
		st.TokenBalance = big.NewInt(7)
	})
	table.Update(addrs[1], func(st *AccountState) {
		st.Claimable = big.NewInt(250)
	})
	table.Update(addrs[2], func(st *AccountState) {
		st.TokenBalance = big.NewInt(3)
	})

	assert.Equal(t, uint64(350), table.SumClaimable().Uint64())
	assert.Equal(t, uint64(10), table.SumTokenBalances().Uint64())
}

func TestOperationResult_Submitted(t *testing.T) {
	assert.False(t, OperationResult{}.Submitted())
	assert.True(t, OperationResult{TxHash: common.HexToHash("0x01")}.Submitted())
}
