package ops

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"wallet-fleet-go/internal/chain"
	"wallet-fleet-go/internal/engine"
	"wallet-fleet-go/internal/wallet"
)

// maxApprove is the unlimited ERC20 allowance (2^256 - 1).
var maxApprove = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Drainer swaps each account's token holdings through the aggregator as
// soon as the offered price clears the configured ratio. The router is
// approved once (unlimited) on first contact.
type Drainer struct {
	rt          *Runtime
	token       common.Address
	router      common.Address
	distributor common.Address
}

// NewDrainer builds the swap operation over rt.
func NewDrainer(rt *Runtime) *Drainer {
	return &Drainer{
		rt:          rt,
		token:       common.HexToAddress(rt.Cfg.TokenAddr),
		router:      common.HexToAddress(rt.Cfg.SwapRouter),
		distributor: common.HexToAddress(rt.Cfg.DistributorAddr),
	}
}

// Scheduler assembles the campaign loop for the drainer.
func (dr *Drainer) Scheduler(onSnapshot func()) (*engine.Scheduler, error) {
	return engine.NewScheduler(engine.SchedulerConfig{
		Gate:            dr.rt.Gate,
		Fees:            dr.rt.Fees,
		PollInterval:    dr.rt.Cfg.PollInterval,
		PollHeight:      dr.rt.PollHeight,
		SuggestGasPrice: dr.rt.SuggestGasPrice,
		RunPass:         dr.Pass,
		Refresh:         dr.Refresh,
		WorkRemaining:   dr.WorkRemaining,
		OnSnapshot:      onSnapshot,
	})
}

// Refresh reloads native balance, token balance and claimable amount for
// every account.
func (dr *Drainer) Refresh(ctx context.Context) error {
	_, err := dr.rt.Batch.Run(ctx, dr.rt.Accounts, func(ctx context.Context, acct wallet.Account) error {
		balance, err := dr.rt.Balance(ctx, acct.Address)
		if err != nil {
			return dr.rt.recordFailure(acct, err)
		}
		held, err := dr.rt.CallUint(ctx, "token_balance", dr.token, chain.ERC20ABI, "balanceOf", acct.Address)
		if err != nil {
			return dr.rt.recordFailure(acct, err)
		}
		claimable, err := dr.rt.CallUint(ctx, "claimable", dr.distributor, chain.DistributorABI, "claimableTokens", acct.Address)
		if err != nil {
			return dr.rt.recordFailure(acct, err)
		}
		dr.rt.State.Update(dr.rt.stateKey(acct), func(st *engine.AccountState) {
			st.Balance = balance
			st.TokenBalance = held
			st.Claimable = claimable
		})
		return nil
	})
	return err
}

// Pass runs one swap attempt per account.
func (dr *Drainer) Pass(ctx context.Context) error {
	_, err := dr.rt.Batch.Run(ctx, dr.rt.Accounts, func(ctx context.Context, acct wallet.Account) error {
		return dr.rt.recordFailure(acct, dr.drainOne(ctx, acct))
	})
	return err
}

// WorkRemaining sums held plus still-claimable tokens across the fleet.
func (dr *Drainer) WorkRemaining() *uint256.Int {
	sum := dr.rt.State.SumTokenBalances()
	return sum.Add(sum, dr.rt.State.SumClaimable())
}

func (dr *Drainer) drainOne(ctx context.Context, acct wallet.Account) error {
	st, _ := dr.rt.State.Get(dr.rt.stateKey(acct))
	if st.TokenBalance == nil || st.TokenBalance.Sign() == 0 {
		dr.rt.skip(acct, "nothing to swap")
		return nil
	}

	ok, err := dr.ensureAllowance(ctx, acct)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	amount := new(big.Int).Set(st.TokenBalance)
	if dr.rt.Cfg.AmountToSwap != nil && dr.rt.Cfg.AmountToSwap.Sign() > 0 && dr.rt.Cfg.AmountToSwap.Cmp(amount) < 0 {
		amount = dr.rt.Cfg.AmountToSwap
	}

	quote, err := fetchSwapQuote(ctx,
		dr.rt.Cfg.SwapAPIBase, dr.rt.Cfg.ChainID,
		dr.token.Hex(), dr.rt.Cfg.SwapToToken, acct.Address.Hex(),
		amount, dr.rt.Cfg.Slippage,
	)
	if err != nil {
		return err
	}
	ratio, err := quote.Ratio()
	if err != nil {
		return err
	}
	if ratio <= dr.rt.Cfg.MinSwapRatio {
		engine.Logger.Info("SWAP_PRICE_BELOW_THRESHOLD",
			"address", acct.Address.Hex(),
			"ratio", ratio,
			"min_ratio", dr.rt.Cfg.MinSwapRatio,
		)
		dr.rt.skip(acct, "price below threshold")
		return nil
	}

	to, data, value, gas, err := quote.TxFields()
	if err != nil {
		return err
	}
	gas = engine.PadGas(gas)

	verdict, err := dr.rt.Preflight(ctx, acct, gas, value)
	if err != nil {
		return err
	}
	if !verdict.Sufficient {
		dr.rt.skip(acct, "insufficient balance for gas")
		return nil
	}

	hash, err := dr.rt.Send(ctx, acct, chain.TxRequest{
		To:        to,
		Value:     value,
		Data:      data,
		GasLimit:  gas,
		FeePerGas: dr.rt.Fees.FeePerGas(),
	})
	if err != nil {
		return err
	}
	engine.GetMetrics().TxSubmitted.Inc()
	engine.Logger.Info("SWAP_SUBMITTED",
		"address", acct.Address.Hex(),
		"ratio", ratio,
		"tx", hash.Hex(),
	)

	receipt, err := chain.WaitMined(ctx, dr.rt.Invoker, hash, dr.rt.Cfg.PollInterval)
	if err != nil {
		return err
	}
	status := int(receipt.Status)
	if status == 1 {
		engine.GetMetrics().TxConfirmed.Inc()
	} else {
		engine.GetMetrics().TxReverted.Inc()
	}
	dr.rt.State.Update(dr.rt.stateKey(acct), func(st *engine.AccountState) {
		st.Result = engine.OperationResult{TxHash: hash, ReceiptStatus: status}
		if status == 1 {
			st.TotalMoved = new(big.Int).Add(st.TotalMoved, amount)
		}
	})
	return nil
}

// ensureAllowance grants the router an unlimited allowance the first time a
// wallet shows up with none. It reports false when the account cannot afford
// the approve and was skipped for this pass.
func (dr *Drainer) ensureAllowance(ctx context.Context, acct wallet.Account) (bool, error) {
	allowance, err := dr.rt.CallUint(ctx, "allowance", dr.token, chain.ERC20ABI, "allowance", acct.Address, dr.router)
	if err != nil {
		return false, err
	}
	if allowance.Sign() > 0 {
		return true, nil
	}

	data, err := chain.ERC20ABI.Pack("approve", dr.router, maxApprove)
	if err != nil {
		return false, err
	}
	gas, err := dr.rt.GasLimit(ctx, 0, ethereum.CallMsg{
		From: acct.Address,
		To:   &dr.token,
		Data: data,
	})
	if err != nil {
		return false, err
	}
	verdict, err := dr.rt.Preflight(ctx, acct, gas, nil)
	if err != nil {
		return false, err
	}
	if !verdict.Sufficient {
		dr.rt.skip(acct, "insufficient balance for approve")
		return false, nil
	}

	hash, err := dr.rt.Send(ctx, acct, chain.TxRequest{
		To:        dr.token,
		Value:     new(big.Int),
		Data:      data,
		GasLimit:  gas,
		FeePerGas: dr.rt.Fees.FeePerGas(),
	})
	if err != nil {
		return false, err
	}
	engine.GetMetrics().TxSubmitted.Inc()
	engine.Logger.Info("APPROVE_SUBMITTED", "address", acct.Address.Hex(), "tx", hash.Hex())

	if _, err := chain.WaitMined(ctx, dr.rt.Invoker, hash, dr.rt.Cfg.PollInterval); err != nil {
		return false, err
	}
	return true, nil
}
