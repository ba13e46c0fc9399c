package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the fleet core.
type Metrics struct {
	// Invoker metrics
	CallsTotal    *prometheus.CounterVec
	CallsFailed   *prometheus.CounterVec
	CallRetries   *prometheus.CounterVec
	CallLatency   *prometheus.HistogramVec
	PoolRotations prometheus.Counter

	// Batch metrics
	PassesTotal     prometheus.Counter
	AccountsFailed  prometheus.Counter
	AccountsSkipped prometheus.Counter

	// Write metrics
	TxSubmitted prometheus.Counter
	TxConfirmed prometheus.Counter
	TxReverted  prometheus.Counter

	// Scheduler metrics
	ChainHeight    prometheus.Gauge
	TargetHeight   prometheus.Gauge
	WorkRemaining  prometheus.Gauge
	FeeEscalations prometheus.Counter
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics returns the singleton Metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics()
	})
	return metrics
}

func newMetrics() *Metrics {
	return &Metrics{
		CallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_rpc_calls_total",
			Help: "Total RPC calls issued, by operation label",
		}, []string{"op"}),
		CallsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_rpc_calls_failed_total",
			Help: "RPC calls that surfaced an error to the caller, by classification",
		}, []string{"kind"}),
		CallRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleet_rpc_call_retries_total",
			Help: "Transparent retries inside the invoker, by classification",
		}, []string{"kind"}),
		CallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleet_rpc_call_duration_seconds",
			Help:    "End-to-end RPC call latency including retries",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		PoolRotations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleet_endpoint_rotations_total",
			Help: "Endpoint pool rotations",
		}),
		PassesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleet_batch_passes_total",
			Help: "Completed batch passes",
		}),
		AccountsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleet_accounts_failed_total",
			Help: "Account operations that recorded an error",
		}),
		AccountsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleet_accounts_skipped_total",
			Help: "Account operations skipped (nothing to do or unaffordable)",
		}),
		TxSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleet_tx_submitted_total",
			Help: "Transactions submitted",
		}),
		TxConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleet_tx_confirmed_total",
			Help: "Transactions with a success receipt",
		}),
		TxReverted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleet_tx_reverted_total",
			Help: "Transactions with a revert receipt",
		}),
		ChainHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_chain_height",
			Help: "Last observed chain height",
		}),
		TargetHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_target_height",
			Help: "Configured gate height",
		}),
		WorkRemaining: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fleet_work_remaining",
			Help: "Aggregate work-remaining metric after the last pass",
		}),
		FeeEscalations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleet_fee_escalations_total",
			Help: "Ambient fee refreshes triggered by stale-fee errors",
		}),
	}
}
