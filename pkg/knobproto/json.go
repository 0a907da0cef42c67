package knobproto

import "encoding/json"

type jsonCodec struct{}

// JSON returns a JSON codec. It exists for debugging against device
// firmware built with its JSON transport enabled; the CBOR codec is the
// default everywhere else.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) MarshalToKnob(m *ToKnob) ([]byte, error) {
	return json.Marshal(m)
}

func (jsonCodec) UnmarshalFromKnob(data []byte) (*FromKnob, error) {
	var msg FromKnob
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (jsonCodec) MarshalFromKnob(m *FromKnob) ([]byte, error) {
	return json.Marshal(m)
}

func (jsonCodec) UnmarshalToKnob(data []byte) (*ToKnob, error) {
	var msg ToKnob
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
