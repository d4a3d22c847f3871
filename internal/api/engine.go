package api

import (
	"context"
	"sync"

	"github.com/restreamkit/restreamctl/internal/restreamer"
)

// EngineClient delegates to the current engine client and allows swapping it
// when the connection settings change, without disturbing the orchestrator
// or monitor that hold it.
type EngineClient struct {
	mu     sync.RWMutex
	client *restreamer.Client
}

func newEngineClient(conn restreamer.Connection) *EngineClient {
	return &EngineClient{client: restreamer.NewClient(conn)}
}

// Swap replaces the underlying client. The old client's credentials are
// wiped.
func (p *EngineClient) Swap(conn restreamer.Connection) {
	next := restreamer.NewClient(conn)
	p.mu.Lock()
	old := p.client
	p.client = next
	p.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (p *EngineClient) current() *restreamer.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Close wipes the current client's credentials.
func (p *EngineClient) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
	}
}

func (p *EngineClient) CreateProcess(ctx context.Context, reference, inputURL string, outputURLs []string, videoFilter string) error {
	return p.current().CreateProcess(ctx, reference, inputURL, outputURLs, videoFilter)
}

func (p *EngineClient) ListProcesses(ctx context.Context) ([]restreamer.Process, error) {
	return p.current().ListProcesses(ctx)
}

func (p *EngineClient) GetProcess(ctx context.Context, id string) (*restreamer.Process, error) {
	return p.current().GetProcess(ctx, id)
}

func (p *EngineClient) StartProcess(ctx context.Context, id string) error {
	return p.current().StartProcess(ctx, id)
}

func (p *EngineClient) StopProcess(ctx context.Context, id string) error {
	return p.current().StopProcess(ctx, id)
}

func (p *EngineClient) RestartProcess(ctx context.Context, id string) error {
	return p.current().RestartProcess(ctx, id)
}

func (p *EngineClient) DeleteProcess(ctx context.Context, id string) error {
	return p.current().DeleteProcess(ctx, id)
}

func (p *EngineClient) ListSessions(ctx context.Context) ([]restreamer.Session, error) {
	return p.current().ListSessions(ctx)
}

func (p *EngineClient) AddProcessOutput(ctx context.Context, processID, outputID, outputURL, videoFilter string) error {
	return p.current().AddProcessOutput(ctx, processID, outputID, outputURL, videoFilter)
}

func (p *EngineClient) UpdateProcessOutput(ctx context.Context, processID, outputID, outputURL, videoFilter string) error {
	return p.current().UpdateProcessOutput(ctx, processID, outputID, outputURL, videoFilter)
}

func (p *EngineClient) RemoveProcessOutput(ctx context.Context, processID, outputID string) error {
	return p.current().RemoveProcessOutput(ctx, processID, outputID)
}

func (p *EngineClient) TestConnection(ctx context.Context) error {
	return p.current().TestConnection(ctx)
}

func (p *EngineClient) LastError() string {
	return p.current().LastError()
}
