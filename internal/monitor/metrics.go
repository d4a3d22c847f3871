// Package monitor periodically polls the restreamer engine for process and
// session state, exports the snapshots as Prometheus metrics, and publishes
// them on the event bus.
package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processCPU = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "restreamctl",
		Subsystem: "process",
		Name:      "cpu_percent",
		Help:      "CPU usage of an engine process",
	}, []string{"reference"})

	processMemory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "restreamctl",
		Subsystem: "process",
		Name:      "memory_bytes",
		Help:      "Memory usage of an engine process",
	}, []string{"reference"})

	processUptime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "restreamctl",
		Subsystem: "process",
		Name:      "uptime_seconds",
		Help:      "Uptime of an engine process",
	}, []string{"reference"})

	processRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "restreamctl",
		Subsystem: "process",
		Name:      "running",
		Help:      "Whether an engine process is in the running state",
	}, []string{"reference"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "restreamctl",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Number of active engine sessions",
	})

	sessionsBytesSent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "restreamctl",
		Subsystem: "sessions",
		Name:      "bytes_sent",
		Help:      "Total bytes sent across active sessions",
	})

	sessionsBytesReceived = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "restreamctl",
		Subsystem: "sessions",
		Name:      "bytes_received",
		Help:      "Total bytes received across active sessions",
	})

	engineReachable = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "restreamctl",
		Subsystem: "engine",
		Name:      "reachable",
		Help:      "Whether the last engine poll succeeded",
	})

	// Local cache of the last snapshot for API access.
	snapshotCache   = make(map[string]*ProcessSnapshot)
	snapshotCacheMu sync.RWMutex
)

// ProcessSnapshot holds the last observed state of one engine process.
type ProcessSnapshot struct {
	ProcessID     string
	State         string
	UptimeSeconds uint64
	CPUPercent    float64
	MemoryBytes   uint64
}

// setProcessMetrics records one process observation.
func setProcessMetrics(reference string, snap ProcessSnapshot) {
	processCPU.WithLabelValues(reference).Set(snap.CPUPercent)
	processMemory.WithLabelValues(reference).Set(float64(snap.MemoryBytes))
	processUptime.WithLabelValues(reference).Set(float64(snap.UptimeSeconds))
	running := 0.0
	if snap.State == "running" {
		running = 1.0
	}
	processRunning.WithLabelValues(reference).Set(running)

	snapshotCacheMu.Lock()
	dup := snap
	snapshotCache[reference] = &dup
	snapshotCacheMu.Unlock()
}

// deleteProcessMetrics removes all metrics for a reference that disappeared
// from the engine.
func deleteProcessMetrics(reference string) {
	processCPU.DeleteLabelValues(reference)
	processMemory.DeleteLabelValues(reference)
	processUptime.DeleteLabelValues(reference)
	processRunning.DeleteLabelValues(reference)

	snapshotCacheMu.Lock()
	delete(snapshotCache, reference)
	snapshotCacheMu.Unlock()
}

// GetProcessSnapshot returns the last observation for a reference.
func GetProcessSnapshot(reference string) *ProcessSnapshot {
	snapshotCacheMu.RLock()
	defer snapshotCacheMu.RUnlock()
	if s, ok := snapshotCache[reference]; ok {
		dup := *s
		return &dup
	}
	return nil
}
