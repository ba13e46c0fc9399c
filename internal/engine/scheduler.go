package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
)

// SchedulerState is the campaign loop state.
type SchedulerState int32

const (
	// StateWaiting polls the chain height until the gate opens.
	StateWaiting SchedulerState = iota
	// StateActive runs batch passes until the work-remaining aggregate
	// reaches zero.
	StateActive
	// StateDone is terminal.
	StateDone
)

func (s SchedulerState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateActive:
		return "active"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// SchedulerConfig wires the block-height-gated loop to the tool-specific
// callbacks. All remote work inside the callbacks goes through the invoker,
// so transient retry has already happened by the time an error reaches the
// scheduler.
type SchedulerConfig struct {
	Gate *BlockHeightGate
	Fees *FeeSource

	// PollInterval paces Waiting-state ticks. Default 5s.
	PollInterval time.Duration
	// RefreshEvery limits full account-state refreshes to every Nth waiting
	// tick while the gap to the target is still large. Default 5.
	RefreshEvery int
	// FarGap is the block gap above which waiting refreshes are throttled.
	// Default 3.
	FarGap int64

	// PollHeight reads the current chain height.
	PollHeight func(ctx context.Context) (int64, error)
	// SuggestGasPrice reads the network gas price for fee escalation.
	SuggestGasPrice func(ctx context.Context) (*big.Int, error)
	// RunPass executes exactly one batch pass of the tool's write operation.
	RunPass func(ctx context.Context) error
	// Refresh reloads account read-state (balances, claimables) for display
	// and for the next affordability check.
	Refresh func(ctx context.Context) error
	// WorkRemaining is the aggregate that decides Done.
	WorkRemaining func() *uint256.Int
	// OnSnapshot, when set, is invoked after every refresh so observers can
	// publish the new state. Optional.
	OnSnapshot func()
}

// Scheduler drives the Waiting -> Active -> Done campaign state machine.
type Scheduler struct {
	cfg   SchedulerConfig
	state atomic.Int32
	tick  int
}

// NewScheduler validates the config and builds the loop in StateWaiting.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Gate == nil || cfg.Fees == nil {
		return nil, fmt.Errorf("scheduler: gate and fee source are required")
	}
	if cfg.PollHeight == nil || cfg.RunPass == nil || cfg.Refresh == nil || cfg.WorkRemaining == nil {
		return nil, fmt.Errorf("scheduler: poll, pass, refresh and work-remaining callbacks are required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.RefreshEvery <= 0 {
		cfg.RefreshEvery = 5
	}
	if cfg.FarGap <= 0 {
		cfg.FarGap = 3
	}
	return &Scheduler{cfg: cfg}, nil
}

// State returns the current loop state.
func (s *Scheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

// Run executes the loop until Done, a fatal error, or ctx cancellation.
// Every iteration runs under the fee-escalation wrapper: a stale-fee error
// refreshes the ambient fee setting and replays the iteration from its
// start; anything else stops the process.
func (s *Scheduler) Run(ctx context.Context) error {
	for s.State() != StateDone {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.iterate(ctx)
		if err == nil {
			continue
		}
		if Classify(err) == KindFeeTooLow && s.cfg.SuggestGasPrice != nil {
			price, perr := s.cfg.SuggestGasPrice(ctx)
			if perr != nil {
				return fmt.Errorf("fee escalation: %w", perr)
			}
			newFee := s.cfg.Fees.Escalate(price)
			Logger.Warn("FEE_ESCALATED",
				"network_price_wei", price.String(),
				"new_fee_wei", newFee.String(),
				"cause", err.Error(),
			)
			continue
		}
		return err
	}
	return nil
}

func (s *Scheduler) iterate(ctx context.Context) error {
	switch s.State() {
	case StateWaiting:
		return s.waitTick(ctx)
	case StateActive:
		return s.activePass(ctx)
	default:
		return nil
	}
}

func (s *Scheduler) waitTick(ctx context.Context) error {
	height, err := s.cfg.PollHeight(ctx)
	if err != nil {
		return err
	}
	s.cfg.Gate.SetObserved(height)

	if s.cfg.Gate.Open() {
		s.state.Store(int32(StateActive))
		Logger.Info("GATE_OPEN",
			"observed", height,
			"target", s.cfg.Gate.Target(),
		)
		return nil
	}

	gap := s.cfg.Gate.Gap()
	// While far from the target, a full refresh every tick would burn RPC
	// quota for nothing; only do it every Nth tick.
	if s.tick%s.cfg.RefreshEvery == 0 && gap > s.cfg.FarGap {
		if err := s.refresh(ctx); err != nil {
			return err
		}
	}
	s.tick++

	Logger.Info("GATE_WAITING",
		"observed", height,
		"target", s.cfg.Gate.Target(),
		"blocks_left", gap,
	)

	select {
	case <-time.After(s.cfg.PollInterval):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) activePass(ctx context.Context) error {
	if err := s.cfg.RunPass(ctx); err != nil {
		return err
	}
	GetMetrics().PassesTotal.Inc()

	if err := s.refresh(ctx); err != nil {
		return err
	}

	remaining := s.cfg.WorkRemaining()
	GetMetrics().WorkRemaining.Set(remaining.Float64())
	if remaining.IsZero() {
		s.state.Store(int32(StateDone))
		Logger.Info("CAMPAIGN_DONE")
		return nil
	}
	Logger.Info("PASS_COMPLETE", "work_remaining", remaining.String())
	return nil
}

func (s *Scheduler) refresh(ctx context.Context) error {
	if err := s.cfg.Refresh(ctx); err != nil {
		return err
	}
	if s.cfg.OnSnapshot != nil {
		s.cfg.OnSnapshot()
	}
	return nil
}
