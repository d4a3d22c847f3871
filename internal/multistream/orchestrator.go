package multistream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/restreamkit/restreamctl/internal/logging"
	"github.com/restreamkit/restreamctl/internal/restreamer"
)

// referencePrefix is the caller-chosen identity prefix for fan-out jobs on
// the engine. It is part of the external contract; downstream tooling keys
// off it to find jobs created here.
const referencePrefix = "obs_multistream_"

// IsJobReference reports whether an engine process reference identifies a
// fan-out job created by this tool.
func IsJobReference(reference string) bool {
	return strings.HasPrefix(reference, referencePrefix)
}

var (
	// ErrNoDestinations means the configuration has no destinations at all.
	ErrNoDestinations = errors.New("no destinations configured")
	// ErrNoEnabledDestinations means destinations exist but all are disabled.
	ErrNoEnabledDestinations = errors.New("no enabled destinations")
	// ErrProcessNotFound means no engine process carries the job reference.
	ErrProcessNotFound = errors.New("process not found")
	// ErrNotActive means a live-mutation operation was called with no
	// running fan-out job.
	ErrNotActive = errors.New("multistream is not active")
)

// ProcessAPI is the slice of the engine client the orchestrator depends on.
type ProcessAPI interface {
	CreateProcess(ctx context.Context, reference, inputURL string, outputURLs []string, videoFilter string) error
	ListProcesses(ctx context.Context) ([]restreamer.Process, error)
	StopProcess(ctx context.Context, id string) error
	AddProcessOutput(ctx context.Context, processID, outputID, outputURL, videoFilter string) error
	UpdateProcessOutput(ctx context.Context, processID, outputID, outputURL, videoFilter string) error
	RemoveProcessOutput(ctx context.Context, processID, outputID string) error
	LastError() string
}

// Orchestrator turns a Config plus one input stream URL into a running
// fan-out job on the engine, and mutates or stops it afterwards. It is safe
// for concurrent use.
type Orchestrator struct {
	mu        sync.Mutex
	api       ProcessAPI
	reference string
	active    bool
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator driving the given engine API.
func NewOrchestrator(api ProcessAPI) *Orchestrator {
	return &Orchestrator{
		api:    api,
		logger: logging.GetLogger("multistream"),
	}
}

// Reference returns the job identity, or the empty string before the first
// Start.
func (o *Orchestrator) Reference() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reference
}

// ClearReference drops the job identity so the next Start mints a new one.
func (o *Orchestrator) ClearReference() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reference = ""
}

// IsActive reports whether a fan-out job started by this orchestrator is
// believed to be running.
func (o *Orchestrator) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// globalFilter picks the single reorientation filter applied to the whole
// job: the transform from the source orientation to the first enabled
// destination that needs one. Per-destination filters are a known
// limitation.
func globalFilter(source Orientation, enabled []Destination) string {
	if source == OrientationAuto {
		return ""
	}
	for _, d := range enabled {
		if d.Orientation == OrientationAuto || d.Orientation == source {
			continue
		}
		filter, err := ReorientationFilter(source, d.Orientation)
		if err == nil && filter != "" {
			return filter
		}
	}
	return ""
}

// Start creates (and autostarts) the fan-out job for the enabled
// destinations in cfg. The job identity is minted on first use and reused
// across repeated starts, including after a failed attempt.
func (o *Orchestrator) Start(ctx context.Context, cfg *Config, inputURL string) error {
	if cfg == nil || inputURL == "" {
		return errors.New("config and input URL are required")
	}
	if len(cfg.Destinations) == 0 {
		return ErrNoDestinations
	}
	enabled := cfg.EnabledDestinations()
	if len(enabled) == 0 {
		return ErrNoEnabledDestinations
	}

	urls := make([]string, 0, len(enabled))
	for _, d := range enabled {
		urls = append(urls, d.DeliveryURL())
	}

	o.mu.Lock()
	if o.reference == "" {
		o.reference = fmt.Sprintf("%s%d", referencePrefix, time.Now().UnixNano())
	}
	reference := o.reference
	o.mu.Unlock()

	filter := globalFilter(cfg.SourceOrientation, enabled)

	if err := o.api.CreateProcess(ctx, reference, inputURL, urls, filter); err != nil {
		return fmt.Errorf("failed to start multistream: %w", err)
	}

	o.mu.Lock()
	o.active = true
	o.mu.Unlock()

	o.logger.Info("Multistream started", "reference", reference, "destinations", len(enabled))
	return nil
}

// resolveProcessID re-resolves the job reference to the engine's current
// process id. Ids may be reassigned across engine restarts, so they are
// never cached.
func (o *Orchestrator) resolveProcessID(ctx context.Context, reference string) (string, error) {
	processes, err := o.api.ListProcesses(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range processes {
		if p.Reference == reference {
			return p.ID, nil
		}
	}
	return "", ErrProcessNotFound
}

// Stop stops the fan-out job identified by the stored reference.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	reference := o.reference
	o.mu.Unlock()

	if reference == "" {
		return errors.New("no process reference")
	}

	id, err := o.resolveProcessID(ctx, reference)
	if err != nil {
		return err
	}
	if stopErr := o.api.StopProcess(ctx, id); stopErr != nil {
		return fmt.Errorf("failed to stop multistream: %w", stopErr)
	}

	o.mu.Lock()
	o.active = false
	o.mu.Unlock()

	o.logger.Info("Multistream stopped", "reference", reference)
	return nil
}

// Status fetches the engine process backing the job, or ErrProcessNotFound.
func (o *Orchestrator) Status(ctx context.Context) (*restreamer.Process, error) {
	o.mu.Lock()
	reference := o.reference
	o.mu.Unlock()

	if reference == "" {
		return nil, ErrProcessNotFound
	}

	processes, err := o.api.ListProcesses(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range processes {
		if p.Reference == reference {
			return &p, nil
		}
	}
	return nil, ErrProcessNotFound
}

// OutputID derives the engine output id for a destination at a registry
// index.
func OutputID(d Destination, index int) string {
	return fmt.Sprintf("%s_%d", d.Service, index)
}

// liveProcessID returns the current engine process id when a job is active.
func (o *Orchestrator) liveProcessID(ctx context.Context) (string, error) {
	o.mu.Lock()
	reference := o.reference
	active := o.active
	o.mu.Unlock()

	if !active || reference == "" {
		return "", ErrNotActive
	}
	return o.resolveProcessID(ctx, reference)
}

// AddLiveOutput adds a destination's output to the running job without
// restarting it. It returns the engine output id realized for the
// destination; callers keep that id for later update and removal, since
// registry indexes shift while engine ids do not.
func (o *Orchestrator) AddLiveOutput(ctx context.Context, d Destination, index int, sourceOrientation Orientation) (string, error) {
	id, err := o.liveProcessID(ctx)
	if err != nil {
		return "", err
	}
	filter := ""
	if sourceOrientation != OrientationAuto && d.Orientation != OrientationAuto && d.Orientation != sourceOrientation {
		filter, _ = ReorientationFilter(sourceOrientation, d.Orientation)
	}
	outputID := OutputID(d, index)
	if addErr := o.api.AddProcessOutput(ctx, id, outputID, d.DeliveryURL(), filter); addErr != nil {
		return "", addErr
	}
	return outputID, nil
}

// UpdateLiveOutput replaces the URL and filter of a realized output in the
// running job. outputID is the id AddLiveOutput returned for the
// destination.
func (o *Orchestrator) UpdateLiveOutput(ctx context.Context, d Destination, outputID string, sourceOrientation Orientation) error {
	id, err := o.liveProcessID(ctx)
	if err != nil {
		return err
	}
	filter := ""
	if sourceOrientation != OrientationAuto && d.Orientation != OrientationAuto && d.Orientation != sourceOrientation {
		filter, _ = ReorientationFilter(sourceOrientation, d.Orientation)
	}
	return o.api.UpdateProcessOutput(ctx, id, outputID, d.DeliveryURL(), filter)
}

// RemoveLiveOutput removes a realized output from the running job.
func (o *Orchestrator) RemoveLiveOutput(ctx context.Context, outputID string) error {
	id, err := o.liveProcessID(ctx)
	if err != nil {
		return err
	}
	return o.api.RemoveProcessOutput(ctx, id, outputID)
}

// LastError surfaces the engine client's most recent failure message.
func (o *Orchestrator) LastError() string {
	return o.api.LastError()
}
