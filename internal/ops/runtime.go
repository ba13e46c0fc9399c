package ops

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"wallet-fleet-go/internal/chain"
	"wallet-fleet-go/internal/config"
	"wallet-fleet-go/internal/engine"
	"wallet-fleet-go/internal/wallet"
)

// Runtime bundles the shared core components one tool process runs on:
// endpoint pool, invoker, fee source, gate, batch runner and state table.
type Runtime struct {
	Cfg      *config.Config
	Accounts []wallet.Account
	ChainID  *big.Int

	Pool    *engine.EndpointPool
	Invoker *engine.Invoker
	Fees    *engine.FeeSource
	Gate    *engine.BlockHeightGate
	Batch   *engine.BatchRunner
	State   *engine.StateTable

	keyByTransfer bool
}

// NewRuntime wires the core from config and the validated account list.
func NewRuntime(cfg *config.Config, accounts []wallet.Account) (*Runtime, error) {
	if len(accounts) == 0 {
		return nil, wallet.ErrEmptyWallets
	}
	pool, err := engine.NewEndpointPool(cfg.RPCURLs, cfg.RotationCooldown)
	if err != nil {
		return nil, err
	}
	factory, err := chain.NewFactory(cfg.Proxies)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Cfg:      cfg,
		Accounts: accounts,
		ChainID:  big.NewInt(cfg.ChainID),
		Pool:     pool,
		Invoker:  engine.NewInvoker(pool, factory, cfg.CallTimeout, cfg.RequestsPerSec),
		Fees:     engine.NewFeeSource(cfg.FeePerGas, cfg.FeeIncrement),
		Gate:     engine.NewBlockHeightGate(cfg.TargetBlock),
		Batch:    engine.NewBatchRunner(cfg.Threads),
		State:    engine.NewStateTable(wallet.Addresses(accounts)),
	}, nil
}

// UseTransferKeys re-keys the state table by destination address. The seeder
// loads the same source key on several lines, one per destination, so the
// destination is the only stable per-line identity; every other tool keys by
// the source address.
func (rt *Runtime) UseTransferKeys() {
	rt.keyByTransfer = true
	rt.State = engine.NewStateTable(wallet.TransferAddresses(rt.Accounts))
}

// stateKey resolves the state-table identity for one wallet line.
func (rt *Runtime) stateKey(acct wallet.Account) common.Address {
	if rt.keyByTransfer {
		return acct.Transfer
	}
	return acct.Address
}

// Close releases the dialed RPC clients.
func (rt *Runtime) Close() {
	rt.Invoker.Close()
}

// PollHeight reads the campaign height through the invoker.
func (rt *Runtime) PollHeight(ctx context.Context) (int64, error) {
	var height int64
	err := rt.Invoker.Do(ctx, "height", func(ctx context.Context, c engine.ChainClient) error {
		h, err := chain.ReadHeight(ctx, c, rt.Cfg.UseL1Height)
		if err != nil {
			return err
		}
		height = h
		return nil
	})
	return height, err
}

// SuggestGasPrice reads the network gas price through the invoker.
func (rt *Runtime) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var price *big.Int
	err := rt.Invoker.Do(ctx, "gas_price", func(ctx context.Context, c engine.ChainClient) error {
		p, err := c.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	return price, err
}

// Balance reads the native balance of addr through the invoker.
func (rt *Runtime) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var bal *big.Int
	err := rt.Invoker.Do(ctx, "balance", func(ctx context.Context, c engine.ChainClient) error {
		b, err := c.BalanceAt(ctx, addr, nil)
		if err != nil {
			return err
		}
		bal = b
		return nil
	})
	return bal, err
}

// CallUint packs a read-only contract call, executes it through the invoker
// and decodes a single uint256 return value.
func (rt *Runtime) CallUint(ctx context.Context, label string, to common.Address, a abi.ABI, method string, args ...any) (*big.Int, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var out *big.Int
	err = rt.Invoker.Do(ctx, label, func(ctx context.Context, c engine.ChainClient) error {
		ret, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return err
		}
		v, err := chain.UnpackBigInt(a, method, ret)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// GasLimit resolves the gas limit for a write: the explicit override when
// configured, otherwise a live estimate padded by the safety factor.
func (rt *Runtime) GasLimit(ctx context.Context, override uint64, msg ethereum.CallMsg) (uint64, error) {
	if override > 0 {
		return override, nil
	}
	var estimate uint64
	err := rt.Invoker.Do(ctx, "estimate_gas", func(ctx context.Context, c engine.ChainClient) error {
		g, err := c.EstimateGas(ctx, msg)
		if err != nil {
			return err
		}
		estimate = g
		return nil
	})
	if err != nil {
		return 0, err
	}
	return engine.PadGas(estimate), nil
}

// Preflight reloads the account's balance and records the affordability
// verdict for a pending write of gas units plus value.
func (rt *Runtime) Preflight(ctx context.Context, acct wallet.Account, gas uint64, value *big.Int) (engine.AffordabilityVerdict, error) {
	balance, err := rt.Balance(ctx, acct.Address)
	if err != nil {
		return engine.AffordabilityVerdict{}, err
	}
	verdict := engine.CheckAffordability(balance, gas, rt.Fees.FeePerGas(), value)
	rt.State.Update(rt.stateKey(acct), func(st *engine.AccountState) {
		st.Balance = balance
		st.Verdict = &verdict
	})
	return verdict, nil
}

// Send signs and submits a transaction for acct through the invoker.
func (rt *Runtime) Send(ctx context.Context, acct wallet.Account, req chain.TxRequest) (common.Hash, error) {
	req.ChainID = rt.ChainID
	var hash common.Hash
	err := rt.Invoker.Do(ctx, "send_tx", func(ctx context.Context, c engine.ChainClient) error {
		h, err := chain.SendSigned(ctx, c, acct.Key, req)
		if err != nil {
			return err
		}
		hash = h
		return nil
	})
	return hash, err
}

// recordFailure settles a per-account task error: account-level
// classifications are recorded in the state table and isolated; stale-fee
// and unclassified errors abort the pass so the scheduler can decide.
func (rt *Runtime) recordFailure(acct wallet.Account, err error) error {
	if err == nil {
		return nil
	}
	var ce *engine.ClassifiedError
	if errors.As(err, &ce) {
		rt.State.Update(rt.stateKey(acct), func(st *engine.AccountState) {
			st.Result = engine.OperationResult{ReceiptStatus: -1, Err: ce.Err, Kind: ce.Kind}
		})
		engine.Logger.Warn("ACCOUNT_ERROR",
			"address", acct.Address.Hex(),
			"kind", ce.Kind.String(),
			"error", ce.Err.Error(),
		)
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Everything else already survived the invoker's retry policy, so it is
	// either a stale-fee signal for the scheduler or genuinely unexpected.
	// Both stop the pass.
	return engine.Fatal(err)
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound)
}

// skip records a skipped account for this pass.
func (rt *Runtime) skip(acct wallet.Account, reason string) {
	rt.State.Update(rt.stateKey(acct), func(st *engine.AccountState) {
		st.Result = engine.OperationResult{Skipped: true, SkipReason: reason, ReceiptStatus: -1}
	})
	engine.GetMetrics().AccountsSkipped.Inc()
}
