package restreamer

// Secret holds a credential-like value (password, token) in memory that can
// be explicitly zeroed. Garbage collection does not scrub memory promptly,
// so every owner is responsible for calling Wipe before dropping a Secret.
type Secret struct {
	data []byte
}

// NewSecret wraps a credential string. The empty string yields an empty
// Secret with no backing storage.
func NewSecret(value string) Secret {
	if value == "" {
		return Secret{}
	}
	return Secret{data: []byte(value)}
}

// Reveal returns the secret value as a string.
func (s Secret) Reveal() string {
	return string(s.data)
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return len(s.data) == 0
}

// Clone returns an independent copy of the secret with its own backing
// storage, so wiping one copy does not affect the other.
func (s Secret) Clone() Secret {
	if len(s.data) == 0 {
		return Secret{}
	}
	data := make([]byte, len(s.data))
	copy(data, s.data)
	return Secret{data: data}
}

// Wipe zeroes the backing storage. The Secret is empty afterwards.
func (s *Secret) Wipe() {
	for i := range s.data {
		s.data[i] = 0
	}
	s.data = nil
}

// String implements fmt.Stringer and never exposes the value, so secrets
// cannot leak through logging.
func (s Secret) String() string {
	if s.IsZero() {
		return ""
	}
	return "***"
}
