package knobproto

import (
	cbor "github.com/fxamacker/cbor/v2"
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns the default deterministic CBOR codec (RFC 8949 core
// deterministic profile). Integer struct keys keep envelopes compact on a
// 921600-baud link.
func CBOR() Codec {
	// CanonicalEncOptions and a default DecMode cannot fail; panicking here
	// would mean the cbor package itself is broken.
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return cborCodec{enc: em, dec: dm}
}

func (c cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) MarshalToKnob(m *ToKnob) ([]byte, error) {
	return c.enc.Marshal(m)
}

func (c cborCodec) UnmarshalFromKnob(data []byte) (*FromKnob, error) {
	var m FromKnob
	if err := c.dec.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c cborCodec) MarshalFromKnob(m *FromKnob) ([]byte, error) {
	return c.enc.Marshal(m)
}

func (c cborCodec) UnmarshalToKnob(data []byte) (*ToKnob, error) {
	var m ToKnob
	if err := c.dec.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
