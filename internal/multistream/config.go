package multistream

// Destination is one streaming target in the registry.
type Destination struct {
	Service     Service
	StreamKey   string
	Orientation Orientation
	Enabled     bool
}

// DeliveryURL composes the final delivery URL for the destination: the
// service ingest URL plus "/" plus the stream key. Custom destinations carry
// no ingest URL, so the stream key itself is the full URL; an empty key
// yields an empty URL. This dual convention is deliberate and callers should
// be aware of it.
func (d Destination) DeliveryURL() string {
	base := d.Service.IngestURL(d.Orientation)
	if d.StreamKey == "" {
		return base
	}
	return base + "/" + d.StreamKey
}

// Config holds a full multistream setup: the ordered destination registry
// plus source orientation settings. It is not safe for concurrent mutation;
// owners serialize access themselves.
type Config struct {
	Destinations          []Destination
	AutoDetectOrientation bool
	SourceOrientation     Orientation
}

// NewConfig returns an empty configuration with orientation auto-detection
// enabled.
func NewConfig() *Config {
	return &Config{AutoDetectOrientation: true}
}

// AddDestination appends an enabled destination. It reports false without
// modifying the registry when the stream key is empty.
func (c *Config) AddDestination(service Service, streamKey string, orientation Orientation) bool {
	if streamKey == "" {
		return false
	}
	c.Destinations = append(c.Destinations, Destination{
		Service:     service,
		StreamKey:   streamKey,
		Orientation: orientation,
		Enabled:     true,
	})
	return true
}

// RemoveDestination removes the destination at index, preserving the order
// of the remainder. An out-of-range index is a no-op.
func (c *Config) RemoveDestination(index int) {
	if index < 0 || index >= len(c.Destinations) {
		return
	}
	c.Destinations = append(c.Destinations[:index], c.Destinations[index+1:]...)
	if len(c.Destinations) == 0 {
		c.Destinations = nil
	}
}

// EnabledDestinations returns the enabled subset in registry order.
func (c *Config) EnabledDestinations() []Destination {
	var enabled []Destination
	for _, d := range c.Destinations {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := &Config{
		AutoDetectOrientation: c.AutoDetectOrientation,
		SourceOrientation:     c.SourceOrientation,
	}
	if len(c.Destinations) > 0 {
		clone.Destinations = make([]Destination, len(c.Destinations))
		copy(clone.Destinations, c.Destinations)
	}
	return clone
}
