package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainClient is the minimal surface the core needs from the underlying RPC
// transport. The chain dialer satisfies it with an ethclient over a raw rpc
// client; tests plug in fakes.
type ChainClient interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	// CallContext issues a raw JSON-RPC call for fields the typed client does
	// not expose (rollup block headers carry extra members).
	CallContext(ctx context.Context, result any, method string, args ...any) error
	Close()
}

// ClientFactory dials a ChainClient for one endpoint URL.
type ClientFactory func(ctx context.Context, endpoint string) (ChainClient, error)
