package events

// Event type constants for kelindar/event.
const (
	TypeMultistreamStarted uint32 = iota + 1
	TypeMultistreamStopped
	TypeDestinationChanged
	TypeConnectionChanged
	TypeProcessState
	TypeSessionsUpdated
	TypeEngineUnreachable
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// MultistreamStartedEvent is published when a fan-out job starts.
type MultistreamStartedEvent struct {
	Reference    string `json:"reference" example:"obs_multistream_1700000000" doc:"Job reference"`
	Destinations int    `json:"destinations" example:"3" doc:"Number of enabled destinations"`
	Timestamp    string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MultistreamStartedEvent.
func (e MultistreamStartedEvent) Type() uint32 { return TypeMultistreamStarted }

// MultistreamStoppedEvent is published when a fan-out job stops.
type MultistreamStoppedEvent struct {
	Reference string `json:"reference" doc:"Job reference"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MultistreamStoppedEvent.
func (e MultistreamStoppedEvent) Type() uint32 { return TypeMultistreamStopped }

// DestinationChangedEvent is published when the destination registry changes.
type DestinationChangedEvent struct {
	Index     int    `json:"index" example:"0" doc:"Registry index of the destination"`
	Service   string `json:"service" example:"Twitch" doc:"Streaming service"`
	Action    string `json:"action" example:"added" doc:"Action type: added, updated, removed, enabled, disabled"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DestinationChangedEvent.
func (e DestinationChangedEvent) Type() uint32 { return TypeDestinationChanged }

// ConnectionChangedEvent is published when the engine connection settings
// change. Credentials are never included.
type ConnectionChangedEvent struct {
	Host      string `json:"host" example:"localhost" doc:"Engine host"`
	Port      int    `json:"port" example:"8080" doc:"Engine port"`
	UseHTTPS  bool   `json:"use_https" example:"false" doc:"Whether HTTPS is used"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConnectionChangedEvent.
func (e ConnectionChangedEvent) Type() uint32 { return TypeConnectionChanged }

// ProcessStateEvent carries a monitoring snapshot of one engine process.
type ProcessStateEvent struct {
	ProcessID     string  `json:"process_id" doc:"Engine-assigned process id"`
	Reference     string  `json:"reference" doc:"Caller-assigned job reference"`
	State         string  `json:"state" example:"running" doc:"Process state"`
	PreviousState string  `json:"previous_state,omitempty" doc:"State at the previous poll, empty for a new process"`
	UptimeSeconds uint64  `json:"uptime" doc:"Process uptime in seconds"`
	CPUPercent    float64 `json:"cpu_usage" doc:"CPU usage percent"`
	MemoryBytes   uint64  `json:"memory" doc:"Memory usage in bytes"`
	Timestamp     string  `json:"timestamp" doc:"Snapshot timestamp"`
}

// Type returns the event type identifier for ProcessStateEvent.
func (e ProcessStateEvent) Type() uint32 { return TypeProcessState }

// SessionsUpdatedEvent carries an aggregate snapshot of engine sessions.
type SessionsUpdatedEvent struct {
	Count         int    `json:"count" doc:"Number of active sessions"`
	BytesSent     uint64 `json:"bytes_sent" doc:"Total bytes sent across sessions"`
	BytesReceived uint64 `json:"bytes_received" doc:"Total bytes received across sessions"`
	Timestamp     string `json:"timestamp" doc:"Snapshot timestamp"`
}

// Type returns the event type identifier for SessionsUpdatedEvent.
func (e SessionsUpdatedEvent) Type() uint32 { return TypeSessionsUpdated }

// EngineUnreachableEvent is published when a monitoring poll fails.
type EngineUnreachableEvent struct {
	Error     string `json:"error" doc:"Failure description"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for EngineUnreachableEvent.
func (e EngineUnreachableEvent) Type() uint32 { return TypeEngineUnreachable }
