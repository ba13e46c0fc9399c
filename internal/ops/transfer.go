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

// Transferer sweeps the full ERC20 balance of every account to its paired
// destination, pass after pass, until no account holds tokens.
type Transferer struct {
	rt    *Runtime
	token common.Address
}

// NewTransferer builds the sweep operation over rt. Wallet lines must carry
// a paired destination address.
func NewTransferer(rt *Runtime) *Transferer {
	return &Transferer{
		rt:    rt,
		token: common.HexToAddress(rt.Cfg.TokenAddr),
	}
}

// Scheduler assembles the campaign loop for the transferer.
func (tr *Transferer) Scheduler(onSnapshot func()) (*engine.Scheduler, error) {
	return engine.NewScheduler(engine.SchedulerConfig{
		Gate:            tr.rt.Gate,
		Fees:            tr.rt.Fees,
		PollInterval:    tr.rt.Cfg.PollInterval,
		PollHeight:      tr.rt.PollHeight,
		SuggestGasPrice: tr.rt.SuggestGasPrice,
		RunPass:         tr.Pass,
		Refresh:         tr.Refresh,
		WorkRemaining:   tr.WorkRemaining,
		OnSnapshot:      onSnapshot,
	})
}

// Refresh reloads native and token balances for every account.
func (tr *Transferer) Refresh(ctx context.Context) error {
	_, err := tr.rt.Batch.Run(ctx, tr.rt.Accounts, func(ctx context.Context, acct wallet.Account) error {
		balance, err := tr.rt.Balance(ctx, acct.Address)
		if err != nil {
			return tr.rt.recordFailure(acct, err)
		}
		held, err := tr.rt.CallUint(ctx, "token_balance", tr.token, chain.ERC20ABI, "balanceOf", acct.Address)
		if err != nil {
			return tr.rt.recordFailure(acct, err)
		}
		tr.rt.State.Update(tr.rt.stateKey(acct), func(st *engine.AccountState) {
			st.Balance = balance
			st.TokenBalance = held
		})
		return nil
	})
	return err
}

// Pass runs one sweep attempt per account.
func (tr *Transferer) Pass(ctx context.Context) error {
	_, err := tr.rt.Batch.Run(ctx, tr.rt.Accounts, func(ctx context.Context, acct wallet.Account) error {
		return tr.rt.recordFailure(acct, tr.sweepOne(ctx, acct))
	})
	return err
}

// WorkRemaining is the token total still sitting on the fleet.
func (tr *Transferer) WorkRemaining() *uint256.Int {
	return tr.rt.State.SumTokenBalances()
}

func (tr *Transferer) sweepOne(ctx context.Context, acct wallet.Account) error {
	st, _ := tr.rt.State.Get(tr.rt.stateKey(acct))
	if st.TokenBalance == nil || st.TokenBalance.Sign() == 0 {
		tr.rt.skip(acct, "nothing to transfer")
		return nil
	}
	amount := new(big.Int).Set(st.TokenBalance)

	data, err := chain.ERC20ABI.Pack("transfer", acct.Transfer, amount)
	if err != nil {
		return err
	}
	gas, err := tr.rt.GasLimit(ctx, tr.rt.Cfg.GasLimitTransfer, ethereum.CallMsg{
		From: acct.Address,
		To:   &tr.token,
		Data: data,
	})
	if err != nil {
		return err
	}

	verdict, err := tr.rt.Preflight(ctx, acct, gas, nil)
	if err != nil {
		return err
	}
	if !verdict.Sufficient {
		tr.rt.skip(acct, "insufficient balance for gas")
		return nil
	}

	hash, err := tr.rt.Send(ctx, acct, chain.TxRequest{
		To:        tr.token,
		Value:     new(big.Int),
		Data:      data,
		GasLimit:  gas,
		FeePerGas: tr.rt.Fees.FeePerGas(),
	})
	if err != nil {
		return err
	}
	engine.GetMetrics().TxSubmitted.Inc()
	engine.Logger.Info("SWEEP_SUBMITTED",
		"from", acct.Address.Hex(),
		"to", acct.Transfer.Hex(),
		"amount", amount.String(),
		"tx", hash.Hex(),
	)

	receipt, err := chain.WaitMined(ctx, tr.rt.Invoker, hash, tr.rt.Cfg.PollInterval)
	if err != nil {
		return err
	}
	status := int(receipt.Status)
	if status == 1 {
		engine.GetMetrics().TxConfirmed.Inc()
	} else {
		engine.GetMetrics().TxReverted.Inc()
	}
	tr.rt.State.Update(tr.rt.stateKey(acct), func(st *engine.AccountState) {
		st.Result = engine.OperationResult{TxHash: hash, ReceiptStatus: status}
		if status == 1 {
			st.TotalMoved = new(big.Int).Add(st.TotalMoved, amount)
		}
	})
	return nil
}
