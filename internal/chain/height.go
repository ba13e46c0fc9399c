package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"wallet-fleet-go/internal/engine"
)

// Multicall2Address is the canonical Multicall2 deployment used for the L1
// block number view on Arbitrum-style rollups.
var Multicall2Address = common.HexToAddress("0x842eC2c7D803033Edf55E478F461FC547Bc54EB2")

// ReadHeight returns the campaign-relevant chain height. With useL1 set it
// reads Multicall2 getL1BlockNumber (rollup campaigns gate on the L1 height,
// not the rollup's own block counter), falling back to the l1BlockNumber
// field of the latest rollup header when Multicall2 gives nothing usable.
// Without useL1 it is plain eth_blockNumber.
func ReadHeight(ctx context.Context, c engine.ChainClient, useL1 bool) (int64, error) {
	if !useL1 {
		n, err := c.BlockNumber(ctx)
		if err != nil {
			return 0, err
		}
		return int64(n), nil
	}

	if height, err := multicallL1Height(ctx, c); err == nil {
		return height, nil
	}
	return headerL1Height(ctx, c)
}

func multicallL1Height(ctx context.Context, c engine.ChainClient) (int64, error) {
	data, err := Multicall2ABI.Pack("getL1BlockNumber")
	if err != nil {
		return 0, fmt.Errorf("pack getL1BlockNumber: %w", err)
	}
	ret, err := c.CallContract(ctx, ethereum.CallMsg{To: &Multicall2Address, Data: data}, nil)
	if err != nil {
		return 0, err
	}
	height, err := UnpackBigInt(Multicall2ABI, "getL1BlockNumber", ret)
	if err != nil {
		return 0, err
	}
	if height.Sign() == 0 {
		return 0, fmt.Errorf("getL1BlockNumber returned zero")
	}
	return height.Int64(), nil
}

// headerL1Height reads the latest rollup block header over raw JSON-RPC;
// Arbitrum-style headers carry the anchoring L1 height as l1BlockNumber.
func headerL1Height(ctx context.Context, c engine.ChainClient) (int64, error) {
	var head struct {
		L1BlockNumber *hexutil.Big `json:"l1BlockNumber"`
	}
	if err := c.CallContext(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return 0, err
	}
	if head.L1BlockNumber == nil {
		return 0, fmt.Errorf("latest block header carries no l1BlockNumber")
	}
	return head.L1BlockNumber.ToInt().Int64(), nil
}
