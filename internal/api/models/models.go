// Package models holds the request and response types of the control API.
package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27" doc:"Build date"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go version used to build"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Connection models. The password is write-only: responses report whether
// one is set but never echo it.
type ConnectionData struct {
	Host        string `json:"host" example:"localhost" doc:"Restreamer engine host"`
	Port        int    `json:"port" example:"8080" doc:"Restreamer engine port"`
	UseHTTPS    bool   `json:"use_https" example:"false" doc:"Use HTTPS for engine API"`
	Username    string `json:"username,omitempty" example:"admin" doc:"Engine API username"`
	PasswordSet bool   `json:"password_set" example:"true" doc:"Whether a password is configured"`
}

type ConnectionResponse struct {
	Body ConnectionData
}

type ConnectionRequestData struct {
	Host     string `json:"host" minLength:"1" example:"localhost" doc:"Restreamer engine host"`
	Port     int    `json:"port" minimum:"1" maximum:"65535" example:"8080" doc:"Restreamer engine port"`
	UseHTTPS bool   `json:"use_https,omitempty" example:"false" doc:"Use HTTPS for engine API"`
	Username string `json:"username,omitempty" example:"admin" doc:"Engine API username"`
	Password string `json:"password,omitempty" doc:"Engine API password"`
}

type ConnectionRequest struct {
	Body ConnectionRequestData
}

type ConnectionTestData struct {
	Reachable bool   `json:"reachable" example:"true" doc:"Whether the engine accepted the credentials"`
	Error     string `json:"error,omitempty" doc:"Failure description when unreachable"`
}

type ConnectionTestResponse struct {
	Body ConnectionTestData
}

// Destination models
type DestinationData struct {
	Index       int    `json:"index" example:"0" doc:"Position in the destination registry"`
	Service     string `json:"service" enum:"Custom,Twitch,YouTube,Facebook,Kick,TikTok,Instagram,X" example:"Twitch" doc:"Streaming service"`
	StreamKey   string `json:"stream_key" example:"live_123_abc" doc:"Stream key, or the full URL for Custom destinations"`
	Orientation string `json:"orientation" enum:"Auto,Horizontal,Vertical,Square" example:"Horizontal" doc:"Target orientation"`
	Enabled     bool   `json:"enabled" example:"true" doc:"Whether the destination participates in fan-out"`
	DeliveryURL string `json:"delivery_url,omitempty" doc:"Composed delivery URL"`
}

type DestinationListData struct {
	Destinations []DestinationData `json:"destinations" doc:"Ordered destination registry"`
	Count        int               `json:"count" example:"2" doc:"Number of destinations"`
}

type DestinationListResponse struct {
	Body DestinationListData
}

type DestinationRequestData struct {
	Service     string `json:"service" enum:"Custom,Twitch,YouTube,Facebook,Kick,TikTok,Instagram,X" example:"Twitch" doc:"Streaming service"`
	StreamKey   string `json:"stream_key" minLength:"1" example:"live_123_abc" doc:"Stream key, or the full URL for Custom destinations"`
	Orientation string `json:"orientation,omitempty" enum:"Auto,Horizontal,Vertical,Square" example:"Horizontal" doc:"Target orientation"`
	Enabled     bool   `json:"enabled,omitempty" example:"true" doc:"Whether the destination participates in fan-out"`
}

type DestinationRequest struct {
	Body DestinationRequestData
}

type DestinationResponse struct {
	Body DestinationData
}

type DestinationEnableRequestData struct {
	Enabled bool `json:"enabled" example:"true" doc:"Whether the destination participates in fan-out"`
}

type DestinationEnableRequest struct {
	Body DestinationEnableRequestData
}

// Multistream models
type MultistreamStartRequestData struct {
	InputURL string `json:"input_url" minLength:"1" example:"rtmp://localhost/live/input" doc:"Input stream URL to fan out"`
}

type MultistreamStartRequest struct {
	Body MultistreamStartRequestData
}

type MultistreamStatusData struct {
	Active        bool    `json:"active" example:"true" doc:"Whether a fan-out job is running"`
	Reference     string  `json:"reference,omitempty" doc:"Job reference"`
	ProcessID     string  `json:"process_id,omitempty" doc:"Engine-assigned process id"`
	State         string  `json:"state,omitempty" example:"running" doc:"Engine process state"`
	UptimeSeconds uint64  `json:"uptime,omitempty" doc:"Process uptime in seconds"`
	CPUPercent    float64 `json:"cpu_usage,omitempty" doc:"CPU usage percent"`
	MemoryBytes   uint64  `json:"memory,omitempty" doc:"Memory usage in bytes"`
}

type MultistreamStatusResponse struct {
	Body MultistreamStatusData
}

// Process models
type ProcessData struct {
	ID            string  `json:"id" doc:"Engine-assigned process id"`
	Reference     string  `json:"reference" doc:"Caller-assigned reference"`
	State         string  `json:"state" example:"running" doc:"Process state"`
	UptimeSeconds uint64  `json:"uptime" doc:"Process uptime in seconds"`
	CPUPercent    float64 `json:"cpu_usage" doc:"CPU usage percent"`
	MemoryBytes   uint64  `json:"memory" doc:"Memory usage in bytes"`
}

type ProcessListData struct {
	Processes []ProcessData `json:"processes" doc:"Engine processes"`
	Count     int           `json:"count" example:"1" doc:"Number of processes"`
}

type ProcessListResponse struct {
	Body ProcessListData
}

type ProcessResponse struct {
	Body ProcessData
}

// Session models
type SessionData struct {
	ID            string `json:"id" doc:"Session id"`
	Reference     string `json:"reference" doc:"Process reference the session belongs to"`
	BytesSent     uint64 `json:"bytes_sent" doc:"Bytes sent"`
	BytesReceived uint64 `json:"bytes_received" doc:"Bytes received"`
	RemoteAddr    string `json:"remote_addr" doc:"Remote address"`
}

type SessionListData struct {
	Sessions []SessionData `json:"sessions" doc:"Active engine sessions"`
	Count    int           `json:"count" example:"3" doc:"Number of sessions"`
}

type SessionListResponse struct {
	Body SessionListData
}

// Log models
type LogEntryData struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-27T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogListData struct {
	Entries []LogEntryData `json:"entries" doc:"Recent log entries, oldest first"`
	Count   int            `json:"count" example:"100" doc:"Number of entries"`
}

type LogListResponse struct {
	Body LogListData
}
