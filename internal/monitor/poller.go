package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/restreamkit/restreamctl/internal/events"
	"github.com/restreamkit/restreamctl/internal/logging"
	"github.com/restreamkit/restreamctl/internal/restreamer"
)

// EngineAPI is the slice of the engine client the poller depends on.
type EngineAPI interface {
	ListProcesses(ctx context.Context) ([]restreamer.Process, error)
	ListSessions(ctx context.Context) ([]restreamer.Session, error)
}

// Poller periodically refreshes process and session state from the engine.
type Poller struct {
	api      EngineAPI
	bus      *events.Bus
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	known map[string]bool
	stop  context.CancelFunc
	done  chan struct{}
}

// NewPoller creates a poller publishing to the given bus. Interval defaults
// to 5 seconds when zero.
func NewPoller(api EngineAPI, bus *events.Bus, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		api:      api,
		bus:      bus,
		interval: interval,
		logger:   logging.GetLogger("monitor"),
		known:    make(map[string]bool),
	}
}

// Start launches the polling loop. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.stop = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.Poll(ctx)
		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Monitor stopped")
				return
			case <-ticker.C:
				p.Poll(ctx)
			}
		}
	}()

	p.logger.Info("Monitor started", "interval", p.interval)
}

// Stop halts the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	stop := p.stop
	done := p.done
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}
}

// Poll performs one refresh of processes and sessions.
func (p *Poller) Poll(ctx context.Context) {
	now := time.Now().UTC().Format(time.RFC3339)

	processes, err := p.api.ListProcesses(ctx)
	if err != nil {
		engineReachable.Set(0)
		p.logger.Warn("Failed to poll processes", "error", err)
		p.bus.Publish(events.EngineUnreachableEvent{Error: err.Error(), Timestamp: now})
		return
	}
	engineReachable.Set(1)

	seen := make(map[string]bool, len(processes))
	for _, proc := range processes {
		if proc.Reference == "" {
			continue
		}
		seen[proc.Reference] = true

		previousState := ""
		if prev := GetProcessSnapshot(proc.Reference); prev != nil {
			previousState = prev.State
		}
		if previousState != "" && previousState != proc.State {
			p.logger.Info("Process state changed",
				"reference", proc.Reference, "from", previousState, "to", proc.State)
		}

		setProcessMetrics(proc.Reference, ProcessSnapshot{
			ProcessID:     proc.ID,
			State:         proc.State,
			UptimeSeconds: proc.UptimeSeconds,
			CPUPercent:    proc.CPUPercent,
			MemoryBytes:   proc.MemoryBytes,
		})
		p.bus.Publish(events.ProcessStateEvent{
			ProcessID:     proc.ID,
			Reference:     proc.Reference,
			State:         proc.State,
			PreviousState: previousState,
			UptimeSeconds: proc.UptimeSeconds,
			CPUPercent:    proc.CPUPercent,
			MemoryBytes:   proc.MemoryBytes,
			Timestamp:     now,
		})
	}

	// Drop metrics for processes the engine no longer reports.
	p.mu.Lock()
	for ref := range p.known {
		if !seen[ref] {
			deleteProcessMetrics(ref)
		}
	}
	p.known = seen
	p.mu.Unlock()

	sessions, err := p.api.ListSessions(ctx)
	if err != nil {
		p.logger.Warn("Failed to poll sessions", "error", err)
		return
	}

	var sent, received uint64
	for _, s := range sessions {
		sent += s.BytesSent
		received += s.BytesReceived
	}
	sessionsActive.Set(float64(len(sessions)))
	sessionsBytesSent.Set(float64(sent))
	sessionsBytesReceived.Set(float64(received))

	p.bus.Publish(events.SessionsUpdatedEvent{
		Count:         len(sessions),
		BytesSent:     sent,
		BytesReceived: received,
		Timestamp:     now,
	})
}
