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

// Claimer drives the claim campaign: once the gate opens, every account with
// a positive claimable amount and enough native balance for gas fires one
// claim transaction per pass, until the claimable total across the fleet
// reaches zero.
type Claimer struct {
	rt          *Runtime
	distributor common.Address
}

// NewClaimer builds the claim operation over rt.
func NewClaimer(rt *Runtime) *Claimer {
	return &Claimer{
		rt:          rt,
		distributor: common.HexToAddress(rt.Cfg.DistributorAddr),
	}
}

// Scheduler assembles the campaign loop for the claimer.
func (cl *Claimer) Scheduler(onSnapshot func()) (*engine.Scheduler, error) {
	return engine.NewScheduler(engine.SchedulerConfig{
		Gate:            cl.rt.Gate,
		Fees:            cl.rt.Fees,
		PollInterval:    cl.rt.Cfg.PollInterval,
		PollHeight:      cl.rt.PollHeight,
		SuggestGasPrice: cl.rt.SuggestGasPrice,
		RunPass:         cl.Pass,
		Refresh:         cl.Refresh,
		WorkRemaining:   cl.WorkRemaining,
		OnSnapshot:      onSnapshot,
	})
}

// Refresh reloads native balances and claimable amounts for every account.
func (cl *Claimer) Refresh(ctx context.Context) error {
	_, err := cl.rt.Batch.Run(ctx, cl.rt.Accounts, func(ctx context.Context, acct wallet.Account) error {
		balance, err := cl.rt.Balance(ctx, acct.Address)
		if err != nil {
			return cl.rt.recordFailure(acct, err)
		}
		claimable, err := cl.rt.CallUint(ctx, "claimable", cl.distributor, chain.DistributorABI, "claimableTokens", acct.Address)
		if err != nil {
			return cl.rt.recordFailure(acct, err)
		}
		cl.rt.State.Update(cl.rt.stateKey(acct), func(st *engine.AccountState) {
			st.Balance = balance
			st.Claimable = claimable
		})
		return nil
	})
	return err
}

// Pass runs one claim attempt per account.
func (cl *Claimer) Pass(ctx context.Context) error {
	_, err := cl.rt.Batch.Run(ctx, cl.rt.Accounts, func(ctx context.Context, acct wallet.Account) error {
		return cl.rt.recordFailure(acct, cl.claimOne(ctx, acct))
	})
	return err
}

// WorkRemaining is the claimable total across the fleet.
func (cl *Claimer) WorkRemaining() *uint256.Int {
	return cl.rt.State.SumClaimable()
}

func (cl *Claimer) claimOne(ctx context.Context, acct wallet.Account) error {
	st, _ := cl.rt.State.Get(cl.rt.stateKey(acct))
	if st.Claimable == nil || st.Claimable.Sign() == 0 {
		cl.rt.skip(acct, "nothing to claim")
		return nil
	}

	data, err := chain.DistributorABI.Pack("claim")
	if err != nil {
		return err
	}
	gas, err := cl.rt.GasLimit(ctx, cl.rt.Cfg.GasLimitClaim, ethereum.CallMsg{
		From: acct.Address,
		To:   &cl.distributor,
		Data: data,
	})
	if err != nil {
		return err
	}

	verdict, err := cl.rt.Preflight(ctx, acct, gas, nil)
	if err != nil {
		return err
	}
	if !verdict.Sufficient {
		cl.rt.skip(acct, "insufficient balance for gas")
		return nil
	}

	hash, err := cl.rt.Send(ctx, acct, chain.TxRequest{
		To:        cl.distributor,
		Value:     new(big.Int),
		Data:      data,
		GasLimit:  gas,
		FeePerGas: cl.rt.Fees.FeePerGas(),
	})
	if err != nil {
		return err
	}
	engine.GetMetrics().TxSubmitted.Inc()
	engine.Logger.Info("CLAIM_SUBMITTED",
		"address", acct.Address.Hex(),
		"tx", hash.Hex(),
	)

	receipt, err := chain.WaitMined(ctx, cl.rt.Invoker, hash, cl.rt.Cfg.PollInterval)
	if err != nil {
		return err
	}
	status := int(receipt.Status)
	if status == 1 {
		engine.GetMetrics().TxConfirmed.Inc()
	} else {
		engine.GetMetrics().TxReverted.Inc()
	}
	cl.rt.State.Update(cl.rt.stateKey(acct), func(st *engine.AccountState) {
		st.Result = engine.OperationResult{TxHash: hash, ReceiptStatus: status}
	})
	return nil
}
