package multistream

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/restreamkit/restreamctl/internal/restreamer"
)

// fakeAPI records engine calls and plays back canned responses.
type fakeAPI struct {
	createErr      error
	createCalls    int
	reference      string
	inputURL       string
	outputURLs     []string
	videoFilter    string
	processes      []restreamer.Process
	listErr        error
	stoppedIDs     []string
	stopErr        error
	addedOutputs   []string
	removedOutputs []string
	lastErr        string
}

func (f *fakeAPI) CreateProcess(_ context.Context, reference, inputURL string, outputURLs []string, videoFilter string) error {
	f.createCalls++
	f.reference = reference
	f.inputURL = inputURL
	f.outputURLs = outputURLs
	f.videoFilter = videoFilter
	return f.createErr
}

func (f *fakeAPI) ListProcesses(_ context.Context) ([]restreamer.Process, error) {
	return f.processes, f.listErr
}

func (f *fakeAPI) StopProcess(_ context.Context, id string) error {
	f.stoppedIDs = append(f.stoppedIDs, id)
	return f.stopErr
}

func (f *fakeAPI) AddProcessOutput(_ context.Context, processID, outputID, outputURL, videoFilter string) error {
	f.addedOutputs = append(f.addedOutputs, outputID+"="+outputURL)
	return nil
}

func (f *fakeAPI) UpdateProcessOutput(_ context.Context, processID, outputID, outputURL, videoFilter string) error {
	return nil
}

func (f *fakeAPI) RemoveProcessOutput(_ context.Context, processID, outputID string) error {
	f.removedOutputs = append(f.removedOutputs, outputID)
	return nil
}

func (f *fakeAPI) LastError() string { return f.lastErr }

func TestStartOnlyDeliversEnabledDestinations(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "abc", OrientationHorizontal)
	cfg.AddDestination(ServiceInstagram, "xyz", OrientationVertical)
	cfg.Destinations[1].Enabled = false

	if err := o.Start(context.Background(), cfg, "rtmp://localhost/live/input"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	want := []string{"rtmp://live.twitch.tv/app/abc"}
	if len(api.outputURLs) != 1 || api.outputURLs[0] != want[0] {
		t.Errorf("output URLs = %v, want %v", api.outputURLs, want)
	}
	if !o.IsActive() {
		t.Error("IsActive() = false after successful start")
	}
}

func TestStartErrorKinds(t *testing.T) {
	o := NewOrchestrator(&fakeAPI{})
	ctx := context.Background()

	empty := NewConfig()
	if err := o.Start(ctx, empty, "rtmp://in"); !errors.Is(err, ErrNoDestinations) {
		t.Errorf("Start with empty registry = %v, want ErrNoDestinations", err)
	}

	disabled := NewConfig()
	disabled.AddDestination(ServiceTwitch, "key", OrientationHorizontal)
	disabled.Destinations[0].Enabled = false
	if err := o.Start(ctx, disabled, "rtmp://in"); !errors.Is(err, ErrNoEnabledDestinations) {
		t.Errorf("Start with all disabled = %v, want ErrNoEnabledDestinations", err)
	}

	if err := o.Start(ctx, nil, "rtmp://in"); err == nil {
		t.Error("Start with nil config succeeded, want error")
	}
	if err := o.Start(ctx, disabled, ""); err == nil {
		t.Error("Start with empty input URL succeeded, want error")
	}
}

func TestStartReusesReference(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal)

	ctx := context.Background()
	if err := o.Start(ctx, cfg, "rtmp://in"); err != nil {
		t.Fatalf("first Start() failed: %v", err)
	}
	first := api.reference
	if !strings.HasPrefix(first, "obs_multistream_") {
		t.Errorf("reference = %q, want obs_multistream_ prefix", first)
	}

	if err := o.Start(ctx, cfg, "rtmp://in"); err != nil {
		t.Fatalf("second Start() failed: %v", err)
	}
	if api.reference != first {
		t.Errorf("second start reference = %q, want reuse of %q", api.reference, first)
	}
}

func TestFailedStartKeepsReference(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("engine rejected")}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal)

	ctx := context.Background()
	if err := o.Start(ctx, cfg, "rtmp://in"); err == nil {
		t.Fatal("Start() succeeded, want error")
	}
	failed := api.reference
	if o.IsActive() {
		t.Error("IsActive() = true after failed start")
	}

	api.createErr = nil
	if err := o.Start(ctx, cfg, "rtmp://in"); err != nil {
		t.Fatalf("retry Start() failed: %v", err)
	}
	if api.reference != failed {
		t.Errorf("retry reference = %q, want reuse of %q", api.reference, failed)
	}
}

func TestClearReferenceMintsNewIdentity(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal)

	ctx := context.Background()
	o.Start(ctx, cfg, "rtmp://in")
	first := api.reference

	o.ClearReference()
	o.Start(ctx, cfg, "rtmp://in")
	if api.reference == first {
		t.Error("Start after ClearReference reused the old reference")
	}
}

func TestStartGlobalFilter(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.SourceOrientation = OrientationHorizontal
	cfg.AddDestination(ServiceTikTok, "tk", OrientationVertical)

	if err := o.Start(context.Background(), cfg, "rtmp://in"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if api.videoFilter != "crop=ih*9/16:ih,scale=1080:1920" {
		t.Errorf("videoFilter = %q, want horizontal-to-vertical crop", api.videoFilter)
	}
}

func TestStartNoFilterWhenSourceUnresolved(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.SourceOrientation = OrientationAuto
	cfg.AddDestination(ServiceTikTok, "tk", OrientationVertical)

	if err := o.Start(context.Background(), cfg, "rtmp://in"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if api.videoFilter != "" {
		t.Errorf("videoFilter = %q, want none for unresolved source", api.videoFilter)
	}
}

func TestStopResolvesReferenceToID(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal)

	ctx := context.Background()
	if err := o.Start(ctx, cfg, "rtmp://in"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	api.processes = []restreamer.Process{
		{ID: "other", Reference: "someone_else"},
		{ID: "engine-id-7", Reference: api.reference, State: "running"},
	}

	if err := o.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if len(api.stoppedIDs) != 1 || api.stoppedIDs[0] != "engine-id-7" {
		t.Errorf("stopped IDs = %v, want [engine-id-7]", api.stoppedIDs)
	}
	if o.IsActive() {
		t.Error("IsActive() = true after stop")
	}
}

func TestStopUnknownReference(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal)

	ctx := context.Background()
	o.Start(ctx, cfg, "rtmp://in")
	api.processes = nil

	if err := o.Stop(ctx); !errors.Is(err, ErrProcessNotFound) {
		t.Errorf("Stop() with no matching process = %v, want ErrProcessNotFound", err)
	}
	if len(api.stoppedIDs) != 0 {
		t.Errorf("stop reached the engine despite unresolved reference: %v", api.stoppedIDs)
	}
}

func TestStatus(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	if _, err := o.Status(context.Background()); !errors.Is(err, ErrProcessNotFound) {
		t.Errorf("Status() before start = %v, want ErrProcessNotFound", err)
	}

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal)
	ctx := context.Background()
	o.Start(ctx, cfg, "rtmp://in")

	api.processes = []restreamer.Process{
		{ID: "p1", Reference: api.reference, State: "running", UptimeSeconds: 12},
	}
	p, err := o.Status(ctx)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if p.ID != "p1" || !p.Running() {
		t.Errorf("Status() = %+v, want running p1", p)
	}
}

func TestAddLiveOutputRequiresActiveJob(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	d := Destination{Service: ServiceKick, StreamKey: "k", Orientation: OrientationHorizontal, Enabled: true}
	_, err := o.AddLiveOutput(context.Background(), d, 0, OrientationHorizontal)
	if !errors.Is(err, ErrNotActive) {
		t.Errorf("AddLiveOutput without active job = %v, want ErrNotActive", err)
	}
}

func TestAddLiveOutput(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal)
	ctx := context.Background()
	o.Start(ctx, cfg, "rtmp://in")
	api.processes = []restreamer.Process{{ID: "p1", Reference: api.reference}}

	d := Destination{Service: ServiceKick, StreamKey: "kickkey", Orientation: OrientationHorizontal, Enabled: true}
	outputID, err := o.AddLiveOutput(ctx, d, 1, OrientationHorizontal)
	if err != nil {
		t.Fatalf("AddLiveOutput() failed: %v", err)
	}
	if outputID != "Kick_1" {
		t.Errorf("AddLiveOutput() id = %q, want Kick_1", outputID)
	}

	want := "Kick_1=rtmp://stream.kick.com/app/kickkey"
	if len(api.addedOutputs) != 1 || api.addedOutputs[0] != want {
		t.Errorf("added outputs = %v, want [%s]", api.addedOutputs, want)
	}
}

func TestRemoveLiveOutputUsesRealizedID(t *testing.T) {
	api := &fakeAPI{}
	o := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal)
	ctx := context.Background()
	o.Start(ctx, cfg, "rtmp://in")
	api.processes = []restreamer.Process{{ID: "p1", Reference: api.reference}}

	d := Destination{Service: ServiceYouTube, StreamKey: "yt", Orientation: OrientationHorizontal, Enabled: true}
	outputID, err := o.AddLiveOutput(ctx, d, 1, OrientationHorizontal)
	if err != nil {
		t.Fatalf("AddLiveOutput() failed: %v", err)
	}

	// The destination may sit at a different registry index by removal
	// time; the realized id is what reaches the engine.
	if err := o.RemoveLiveOutput(ctx, outputID); err != nil {
		t.Fatalf("RemoveLiveOutput() failed: %v", err)
	}
	if len(api.removedOutputs) != 1 || api.removedOutputs[0] != "YouTube_1" {
		t.Errorf("removed outputs = %v, want [YouTube_1]", api.removedOutputs)
	}
}

func TestOutputID(t *testing.T) {
	d := Destination{Service: ServiceYouTube}
	if got := OutputID(d, 3); got != "YouTube_3" {
		t.Errorf("OutputID() = %q, want %q", got, "YouTube_3")
	}
}

func TestIsJobReference(t *testing.T) {
	if !IsJobReference("obs_multistream_1700000000") {
		t.Error("IsJobReference() = false for a job reference")
	}
	if IsJobReference("restreamer-ui:ingest:abc") {
		t.Error("IsJobReference() = true for a foreign reference")
	}
	if IsJobReference("") {
		t.Error("IsJobReference() = true for an empty reference")
	}
}
