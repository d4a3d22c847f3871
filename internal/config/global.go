package config

import (
	"sync"

	"github.com/restreamkit/restreamctl/internal/restreamer"
)

// globalConn is the process-wide engine connection. Readers get deep
// copies; writers fully replace the payload with the previous password
// wiped first.
var globalConn struct {
	mu          sync.RWMutex
	conn        restreamer.Connection
	initialized bool
}

// initLocked sets the defaults. Callers hold the write lock.
func initGlobalLocked() {
	if globalConn.initialized {
		return
	}
	globalConn.conn = restreamer.DefaultConnection()
	globalConn.initialized = true
}

// InitGlobalConnection initializes the global connection with defaults.
// Idempotent; a second call is a no-op.
func InitGlobalConnection() {
	globalConn.mu.Lock()
	defer globalConn.mu.Unlock()
	initGlobalLocked()
}

// GetGlobalConnection returns a deep copy of the global connection,
// lazily initializing it on first use.
func GetGlobalConnection() restreamer.Connection {
	globalConn.mu.Lock()
	defer globalConn.mu.Unlock()
	initGlobalLocked()
	return globalConn.conn.Clone()
}

// SetGlobalConnection replaces the global connection with a deep copy of
// conn. The previous password is wiped before being dropped. A nil conn is
// a no-op.
func SetGlobalConnection(conn *restreamer.Connection) {
	globalConn.mu.Lock()
	defer globalConn.mu.Unlock()
	initGlobalLocked()
	if conn == nil {
		return
	}
	globalConn.conn.Wipe()
	globalConn.conn = conn.Clone()
}

// DestroyGlobalConnection wipes credentials and resets the global
// connection to uninitialized. Safe to call multiple times.
func DestroyGlobalConnection() {
	globalConn.mu.Lock()
	defer globalConn.mu.Unlock()
	if !globalConn.initialized {
		return
	}
	globalConn.conn.Wipe()
	globalConn.conn = restreamer.Connection{}
	globalConn.initialized = false
}

// NewClientFromGlobal constructs a fresh engine client bound to a copy of
// the current global connection.
func NewClientFromGlobal() *restreamer.Client {
	conn := GetGlobalConnection()
	return restreamer.NewClient(conn)
}
