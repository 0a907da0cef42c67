package knobproto

import "fmt"

// Codec serializes message envelopes for the wire. Implementations must be
// deterministic (the device compares retransmitted frames byte-for-byte)
// and safe for concurrent use.
// The engine uses only the ToKnob-out / FromKnob-in direction; the reverse
// direction exists for test harnesses that play the device role.
type Codec interface {
	ContentType() string
	MarshalToKnob(m *ToKnob) ([]byte, error)
	UnmarshalFromKnob(data []byte) (*FromKnob, error)
	MarshalFromKnob(m *FromKnob) ([]byte, error)
	UnmarshalToKnob(data []byte) (*ToKnob, error)
}

// Registry maps content-type aliases to codecs.
type Registry struct {
	byType map[string]Codec
}

// NewRegistry constructs a registry preloaded with the built-in CBOR and
// JSON codecs.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Codec)}
	r.Register(CBOR())
	r.Register(JSON())
	return r
}

// Register adds a codec, replacing any previous codec with the same
// content type.
func (r *Registry) Register(c Codec) {
	r.byType[c.ContentType()] = c
}

// Get returns the codec registered for contentType.
func (r *Registry) Get(contentType string) (Codec, error) {
	c, ok := r.byType[contentType]
	if !ok {
		return nil, fmt.Errorf("knobproto: no codec registered for %q", contentType)
	}
	return c, nil
}
