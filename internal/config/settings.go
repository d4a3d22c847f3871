package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/restreamkit/restreamctl/internal/multistream"
	"github.com/restreamkit/restreamctl/internal/restreamer"
)

// DestinationSettings is the persisted form of one streaming destination.
// Service and orientation are stored as their numeric enum values.
type DestinationSettings struct {
	Service     int    `toml:"service" json:"service"`
	StreamKey   string `toml:"stream_key" json:"stream_key"`
	Orientation int    `toml:"orientation" json:"orientation"`
	Enabled     bool   `toml:"enabled" json:"enabled"`

	// RemoteOutputID is the engine output id realized for this destination
	// while a fan-out job is running. Registry indexes shift on removal but
	// engine ids do not, so the realized id travels with the entry. Runtime
	// state, never persisted.
	RemoteOutputID string `toml:"-" json:"-"`
}

// Settings is the persisted multistream configuration: engine connection
// plus the destination registry.
type Settings struct {
	Host                  string                `toml:"host" json:"host"`
	Port                  int                   `toml:"port" json:"port"`
	UseHTTPS              bool                  `toml:"use_https" json:"use_https"`
	Username              string                `toml:"username" json:"username"`
	Password              string                `toml:"password" json:"password"`
	AutoDetectOrientation bool                  `toml:"auto_detect_orientation" json:"auto_detect_orientation"`
	SourceOrientation     int                   `toml:"source_orientation" json:"source_orientation"`
	Destinations          []DestinationSettings `toml:"destinations" json:"destinations"`
}

// defaults fills in the defaulted connection fields.
func (s *Settings) defaults() {
	if s.Host == "" {
		s.Host = "localhost"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
}

// Connection builds the engine connection from the settings.
func (s Settings) Connection() restreamer.Connection {
	return restreamer.Connection{
		Host:     s.Host,
		Port:     uint16(s.Port),
		UseTLS:   s.UseHTTPS,
		Username: s.Username,
		Password: restreamer.NewSecret(s.Password),
	}
}

// Multistream builds the in-memory multistream configuration. Destination
// entries with an empty stream key are silently skipped.
func (s Settings) Multistream() *multistream.Config {
	cfg := &multistream.Config{
		AutoDetectOrientation: s.AutoDetectOrientation,
		SourceOrientation:     multistream.Orientation(s.SourceOrientation),
	}
	for _, d := range s.Destinations {
		if d.StreamKey == "" {
			continue
		}
		cfg.Destinations = append(cfg.Destinations, multistream.Destination{
			Service:     multistream.Service(d.Service),
			StreamKey:   d.StreamKey,
			Orientation: multistream.Orientation(d.Orientation),
			Enabled:     d.Enabled,
		})
	}
	return cfg
}

// SettingsStore persists Settings as a TOML file. It is safe for concurrent
// use.
type SettingsStore struct {
	mu       sync.RWMutex
	path     string
	settings *Settings
}

// NewSettingsStore creates a store for the given file path.
func NewSettingsStore(path string) *SettingsStore {
	if path == "" {
		path = "restreamctl.toml"
	}
	return &SettingsStore{
		path:     path,
		settings: &Settings{Host: "localhost", Port: 8080, AutoDetectOrientation: true},
	}
}

// Path returns the backing file path.
func (st *SettingsStore) Path() string {
	return st.path
}

// Load reads the settings file. A missing file leaves the defaults in place
// and is not an error.
func (st *SettingsStore) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, err := os.Stat(st.path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(st.path)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	var settings Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}
	settings.defaults()

	st.settings = &settings
	return nil
}

// LoadSettings reads a settings file without a store, for hot reloads.
func LoadSettings(path string) (Settings, error) {
	var settings Settings
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings: %w", err)
	}
	settings.defaults()
	return settings, nil
}

// Save writes the settings file, creating parent directories as needed.
func (st *SettingsStore) Save() error {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.saveLocked()
}

func (st *SettingsStore) saveLocked() error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := toml.Marshal(st.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	// Settings carry credentials; keep the file owner-only.
	if err := os.WriteFile(st.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Get returns a deep copy of the current settings.
func (st *SettingsStore) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()

	copy := *st.settings
	if len(st.settings.Destinations) > 0 {
		copy.Destinations = make([]DestinationSettings, len(st.settings.Destinations))
		for i, d := range st.settings.Destinations {
			copy.Destinations[i] = d
		}
	}
	return copy
}

// Replace swaps in new settings and persists them.
func (st *SettingsStore) Replace(settings Settings) error {
	settings.defaults()

	st.mu.Lock()
	defer st.mu.Unlock()
	st.settings = &settings
	return st.saveLocked()
}

// SetConnection updates the engine connection fields and persists them.
func (st *SettingsStore) SetConnection(host string, port int, useHTTPS bool, username, password string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.settings.Host = host
	st.settings.Port = port
	st.settings.UseHTTPS = useHTTPS
	st.settings.Username = username
	st.settings.Password = password
	st.settings.defaults()
	return st.saveLocked()
}

// AddDestination appends a destination and persists it. An empty stream key
// is rejected.
func (st *SettingsStore) AddDestination(d DestinationSettings) error {
	if d.StreamKey == "" {
		return fmt.Errorf("stream key cannot be empty")
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.settings.Destinations = append(st.settings.Destinations, d)
	return st.saveLocked()
}

// UpdateDestination replaces the destination at index and persists it.
func (st *SettingsStore) UpdateDestination(index int, d DestinationSettings) error {
	if d.StreamKey == "" {
		return fmt.Errorf("stream key cannot be empty")
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.settings.Destinations) {
		return fmt.Errorf("destination %d not found", index)
	}
	d.RemoteOutputID = st.settings.Destinations[index].RemoteOutputID
	st.settings.Destinations[index] = d
	return st.saveLocked()
}

// SetDestinationOutputID records (or clears, with an empty id) the engine
// output id realized for the destination at index. Runtime state only; the
// file is not rewritten.
func (st *SettingsStore) SetDestinationOutputID(index int, outputID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.settings.Destinations) {
		return
	}
	st.settings.Destinations[index].RemoteOutputID = outputID
}

// ClearDestinationOutputIDs drops all realized output ids. Called when a
// fan-out job starts or stops, since the ids belong to the previous job.
func (st *SettingsStore) ClearDestinationOutputIDs() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.settings.Destinations {
		st.settings.Destinations[i].RemoteOutputID = ""
	}
}

// RemoveDestination removes the destination at index and persists the
// change, preserving order of the remainder.
func (st *SettingsStore) RemoveDestination(index int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.settings.Destinations) {
		return fmt.Errorf("destination %d not found", index)
	}
	st.settings.Destinations = append(st.settings.Destinations[:index], st.settings.Destinations[index+1:]...)
	return st.saveLocked()
}

// SetDestinationEnabled toggles a destination and persists the change.
func (st *SettingsStore) SetDestinationEnabled(index int, enabled bool) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if index < 0 || index >= len(st.settings.Destinations) {
		return fmt.Errorf("destination %d not found", index)
	}
	st.settings.Destinations[index].Enabled = enabled
	return st.saveLocked()
}
