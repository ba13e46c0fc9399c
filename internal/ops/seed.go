package ops

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"wallet-fleet-go/internal/chain"
	"wallet-fleet-go/internal/engine"
	"wallet-fleet-go/internal/wallet"
)

// Seeder tops up each account's paired destination with native currency for
// gas. A destination is only seeded while it still has something to move
// (claimable or held tokens) and sits below the target balance. Submissions
// are fire-and-forget; receipts are checked on the next refresh.
type Seeder struct {
	rt          *Runtime
	distributor common.Address
	token       common.Address
}

// NewSeeder builds the seeding operation over rt. Wallet lines must carry a
// paired destination address; the same source key may appear on several
// lines, so per-line state is keyed by destination.
func NewSeeder(rt *Runtime) *Seeder {
	rt.UseTransferKeys()
	return &Seeder{
		rt:          rt,
		distributor: common.HexToAddress(rt.Cfg.DistributorAddr),
		token:       common.HexToAddress(rt.Cfg.TokenAddr),
	}
}

// Scheduler assembles the campaign loop for the seeder.
func (sd *Seeder) Scheduler(onSnapshot func()) (*engine.Scheduler, error) {
	return engine.NewScheduler(engine.SchedulerConfig{
		Gate:            sd.rt.Gate,
		Fees:            sd.rt.Fees,
		PollInterval:    sd.rt.Cfg.PollInterval,
		PollHeight:      sd.rt.PollHeight,
		SuggestGasPrice: sd.rt.SuggestGasPrice,
		RunPass:         sd.Pass,
		Refresh:         sd.Refresh,
		WorkRemaining:   sd.WorkRemaining,
		OnSnapshot:      onSnapshot,
	})
}

// Refresh reloads source balances and destination state (native balance,
// claimable and held tokens), and settles receipts of earlier submissions.
func (sd *Seeder) Refresh(ctx context.Context) error {
	_, err := sd.rt.Batch.Run(ctx, sd.rt.Accounts, func(ctx context.Context, acct wallet.Account) error {
		balance, err := sd.rt.Balance(ctx, acct.Address)
		if err != nil {
			return sd.rt.recordFailure(acct, err)
		}
		destBalance, err := sd.rt.Balance(ctx, acct.Transfer)
		if err != nil {
			return sd.rt.recordFailure(acct, err)
		}
		claimable, err := sd.rt.CallUint(ctx, "claimable", sd.distributor, chain.DistributorABI, "claimableTokens", acct.Transfer)
		if err != nil {
			return sd.rt.recordFailure(acct, err)
		}
		held, err := sd.rt.CallUint(ctx, "token_balance", sd.token, chain.ERC20ABI, "balanceOf", acct.Transfer)
		if err != nil {
			return sd.rt.recordFailure(acct, err)
		}
		sd.rt.State.Update(sd.rt.stateKey(acct), func(st *engine.AccountState) {
			st.Balance = balance
			st.TransferBalance = destBalance
			st.Claimable = claimable
			st.TokenBalance = held
		})
		return sd.rt.recordFailure(acct, sd.settleReceipt(ctx, acct))
	})
	return err
}

// Pass runs one seeding attempt per account pair.
func (sd *Seeder) Pass(ctx context.Context) error {
	_, err := sd.rt.Batch.Run(ctx, sd.rt.Accounts, func(ctx context.Context, acct wallet.Account) error {
		return sd.rt.recordFailure(acct, sd.seedOne(ctx, acct))
	})
	return err
}

// WorkRemaining sums claimable plus held tokens across all destinations:
// once every destination has nothing left to move, seeding gas is pointless.
func (sd *Seeder) WorkRemaining() *uint256.Int {
	sum := sd.rt.State.SumClaimable()
	return sum.Add(sum, sd.rt.State.SumTokenBalances())
}

func (sd *Seeder) seedOne(ctx context.Context, acct wallet.Account) error {
	st, _ := sd.rt.State.Get(sd.rt.stateKey(acct))

	if st.Balance == nil || st.Balance.Sign() == 0 {
		sd.rt.skip(acct, "source has no balance")
		return nil
	}
	if st.TransferBalance != nil && st.TransferBalance.Cmp(sd.rt.Cfg.AmountToSend) >= 0 {
		sd.rt.skip(acct, "destination already funded")
		return nil
	}
	movable := new(big.Int).Add(st.Claimable, st.TokenBalance)
	if movable.Sign() == 0 {
		sd.rt.skip(acct, "destination has nothing to move")
		return nil
	}

	gas := sd.rt.Cfg.GasLimitSeed
	if gas == 0 {
		gas = 21000
	}
	verdict, err := sd.rt.Preflight(ctx, acct, gas, sd.rt.Cfg.AmountToSend)
	if err != nil {
		return err
	}
	if !verdict.Sufficient {
		sd.rt.skip(acct, "insufficient balance to seed")
		return nil
	}

	hash, err := sd.rt.Send(ctx, acct, chain.TxRequest{
		To:        acct.Transfer,
		Value:     sd.rt.Cfg.AmountToSend,
		GasLimit:  gas,
		FeePerGas: sd.rt.Fees.FeePerGas(),
		Legacy:    true,
	})
	if err != nil {
		return err
	}
	engine.GetMetrics().TxSubmitted.Inc()
	engine.Logger.Info("SEED_SUBMITTED",
		"from", acct.Address.Hex(),
		"to", acct.Transfer.Hex(),
		"amount_wei", sd.rt.Cfg.AmountToSend.String(),
		"tx", hash.Hex(),
	)

	sd.rt.State.Update(sd.rt.stateKey(acct), func(st *engine.AccountState) {
		st.Result = engine.OperationResult{TxHash: hash, ReceiptStatus: -1}
		st.TotalMoved = new(big.Int).Add(st.TotalMoved, sd.rt.Cfg.AmountToSend)
	})
	return nil
}

// settleReceipt resolves the receipt of a previously submitted seed tx.
// Pending transactions stay unresolved until a later refresh.
func (sd *Seeder) settleReceipt(ctx context.Context, acct wallet.Account) error {
	st, _ := sd.rt.State.Get(sd.rt.stateKey(acct))
	if !st.Result.Submitted() || st.Result.ReceiptStatus >= 0 {
		return nil
	}
	var status = -1
	err := sd.rt.Invoker.Do(ctx, "receipt", func(ctx context.Context, c engine.ChainClient) error {
		r, err := c.TransactionReceipt(ctx, st.Result.TxHash)
		if err != nil {
			return err
		}
		status = int(r.Status)
		return nil
	})
	if err != nil {
		if errorsIsNotFound(err) {
			return nil
		}
		return err
	}
	if status == 1 {
		engine.GetMetrics().TxConfirmed.Inc()
	} else if status == 0 {
		engine.GetMetrics().TxReverted.Inc()
	}
	sd.rt.State.Update(sd.rt.stateKey(acct), func(st *engine.AccountState) {
		st.Result.ReceiptStatus = status
	})
	return nil
}
