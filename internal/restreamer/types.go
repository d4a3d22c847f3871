package restreamer

import "fmt"

// Connection describes how to reach the restreamer engine.
// The zero value is unusable; apply withDefaults (done by NewClient and the
// config store) to get the localhost:8080 defaults.
type Connection struct {
	Host     string
	Port     uint16
	UseTLS   bool
	Username string
	Password Secret
}

// DefaultConnection returns the default engine connection settings.
func DefaultConnection() Connection {
	return Connection{Host: "localhost", Port: 8080}
}

// withDefaults fills in the defaulted host and port.
func (c Connection) withDefaults() Connection {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	return c
}

// Clone returns a deep copy of the connection, including the password's
// backing storage.
func (c Connection) Clone() Connection {
	clone := c
	clone.Password = c.Password.Clone()
	return clone
}

// Wipe zeroes the password. Call before dropping an owned connection.
func (c *Connection) Wipe() {
	c.Password.Wipe()
}

// BaseURL returns the engine base URL for this connection.
func (c Connection) BaseURL() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// Process is a read-only projection of an engine process. It is fetched on
// demand and discarded after use; the engine remains the source of truth.
type Process struct {
	ID            string  `json:"id"`
	Reference     string  `json:"reference"`
	State         string  `json:"state"`
	UptimeSeconds uint64  `json:"uptime"`
	CPUPercent    float64 `json:"cpu_usage"`
	MemoryBytes   uint64  `json:"memory"`
	Command       string  `json:"command"`
}

// Running reports whether the engine considers the process running.
func (p Process) Running() bool {
	return p.State == "running"
}

// Session is a read-only projection of an active engine session.
type Session struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	BytesSent     uint64 `json:"bytes_sent"`
	BytesReceived uint64 `json:"bytes_received"`
	RemoteAddr    string `json:"remote_addr"`
}
