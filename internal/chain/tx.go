package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"wallet-fleet-go/internal/engine"
)

// TxRequest describes one signed write. GasLimit and FeePerGas must already
// be resolved (preflight runs before this is built).
type TxRequest struct {
	ChainID   *big.Int
	To        common.Address
	Value     *big.Int
	Data      []byte
	GasLimit  uint64
	FeePerGas *big.Int
	// Legacy selects a pre-1559 transaction envelope; some L2 gateways still
	// reject dynamic-fee transactions for plain transfers.
	Legacy bool
}

// SendSigned signs req with key and submits it through c, returning the
// transaction hash. The signing key is used only for the duration of this
// call.
func SendSigned(ctx context.Context, c engine.ChainClient, key *ecdsa.PrivateKey, req TxRequest) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := c.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}

	var tx *types.Transaction
	if req.Legacy {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &req.To,
			Value:    req.Value,
			Gas:      req.GasLimit,
			GasPrice: req.FeePerGas,
			Data:     req.Data,
		})
	} else {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   req.ChainID,
			Nonce:     nonce,
			To:        &req.To,
			Value:     req.Value,
			Gas:       req.GasLimit,
			GasFeeCap: req.FeePerGas,
			GasTipCap: req.FeePerGas,
			Data:      req.Data,
		})
	}

	signer := types.LatestSignerForChainID(req.ChainID)
	signed, err := types.SignTx(tx, signer, key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := c.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// WaitMined polls for the receipt of hash through the invoker until it lands
// or ctx expires. A pending transaction (ethereum.NotFound) keeps polling;
// any other receipt-lookup failure has already been through the invoker's
// retry policy and propagates.
func WaitMined(ctx context.Context, inv *engine.Invoker, hash common.Hash, poll time.Duration) (*types.Receipt, error) {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	for {
		var receipt *types.Receipt
		err := inv.Do(ctx, "receipt", func(ctx context.Context, c engine.ChainClient) error {
			r, err := c.TransactionReceipt(ctx, hash)
			if err != nil {
				return err
			}
			receipt = r
			return nil
		})
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-time.After(poll):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
