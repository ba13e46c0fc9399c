package ops

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wallet-fleet-go/internal/engine"
	"wallet-fleet-go/internal/store"
	"wallet-fleet-go/internal/web"
)

// Tool is one campaign operation (claim, seed, transfer, drain) wired into
// the shared scheduler.
type Tool interface {
	Scheduler(onSnapshot func()) (*engine.Scheduler, error)
	WorkRemaining() *uint256.Int
}

// passRecorder persists per-pass outcomes. *store.Recorder satisfies it.
type passRecorder interface {
	RecordPass(ctx context.Context, rows []store.PassResult) error
}

// statusBroadcaster publishes live snapshots. *web.Hub satisfies it.
type statusBroadcaster interface {
	Broadcast(eventType string, data any)
}

// snapshotObserver builds the callback the scheduler fires after every
// refresh. Refreshes while still waiting for the gate are broadcast but not
// recorded: pass numbers count completed scheduler passes only.
func snapshotObserver(ctx context.Context, rt *Runtime, tool Tool, hub statusBroadcaster, recorder passRecorder, state func() engine.SchedulerState) func() {
	var pass atomic.Int64
	return func() {
		st := state()
		if hub != nil {
			hub.Broadcast("snapshot", rt.Snapshot(st.String(), tool.WorkRemaining().String()))
		}
		if recorder != nil && st != engine.StateWaiting {
			n := pass.Add(1)
			if err := recorder.RecordPass(ctx, rt.PassResults(n)); err != nil {
				engine.Logger.Warn("PASS_RECORD_FAILED", "pass", n, "error", err.Error())
			}
		}
	}
}

// Run starts the ambient services configured for the process (recorder,
// status hub, metrics endpoint) and drives the tool's scheduler to
// completion.
func Run(ctx context.Context, rt *Runtime, name string, tool Tool) error {
	var recorder *store.Recorder
	if rt.Cfg.DatabaseURL != "" {
		r, err := store.NewRecorder(rt.Cfg.DatabaseURL)
		if err != nil {
			return err
		}
		recorder = r
		defer recorder.Close()
	}

	var hub *web.Hub
	if rt.Cfg.StatusAddr != "" {
		hub = web.NewHub()
		go hub.Run(ctx)
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.ServeWS)
		go func() {
			if err := http.ListenAndServe(rt.Cfg.StatusAddr, mux); err != nil {
				engine.Logger.Error("STATUS_SERVER_STOPPED", "error", err.Error())
			}
		}()
	}

	if rt.Cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(rt.Cfg.MetricsAddr, mux); err != nil {
				engine.Logger.Error("METRICS_SERVER_STOPPED", "error", err.Error())
			}
		}()
	}

	var rec passRecorder
	if recorder != nil {
		rec = recorder
	}
	var bc statusBroadcaster
	if hub != nil {
		bc = hub
	}

	var sched *engine.Scheduler
	onSnapshot := snapshotObserver(ctx, rt, tool, bc, rec, func() engine.SchedulerState {
		if sched == nil {
			return engine.StateWaiting
		}
		return sched.State()
	})

	sched, err := tool.Scheduler(onSnapshot)
	if err != nil {
		return err
	}

	engine.Logger.Info("CAMPAIGN_STARTING",
		"tool", name,
		"accounts", len(rt.Accounts),
		"endpoints", rt.Pool.Size(),
		"threads", rt.Cfg.Threads,
		"target_height", rt.Gate.Target(),
	)
	return sched.Run(ctx)
}
