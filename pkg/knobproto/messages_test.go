package knobproto

import (
	"bytes"
	"testing"
)

func TestKindClassification(t *testing.T) {
	tests := []struct {
		name string
		msg  *FromKnob
		want Kind
	}{
		{"log", &FromKnob{Log: &LogMessage{Msg: "boot"}}, KindLog},
		{"knob", &FromKnob{Knob: &KnobState{CurrentPosition: 3}}, KindKnob},
		{"ack", &FromKnob{Ack: &Ack{Nonce: 7}}, KindAck},
		{"empty union", &FromKnob{}, KindUnknown},
	}
	for _, tt := range tests {
		if got := tt.msg.Kind(); got != tt.want {
			t.Errorf("%s: Kind() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCBORRoundTripAck(t *testing.T) {
	c := CBOR()

	cmd := CommandMotorCalibrate
	out := &ToKnob{ProtocolVersion: 1, Nonce: 42, Command: &cmd}
	data, err := c.MarshalToKnob(out)
	if err != nil {
		t.Fatalf("MarshalToKnob: %v", err)
	}
	back, err := c.UnmarshalToKnob(data)
	if err != nil {
		t.Fatalf("UnmarshalToKnob: %v", err)
	}
	if back.Nonce != out.Nonce || back.Command == nil || *back.Command != cmd {
		t.Errorf("round trip = %+v, want %+v", back, out)
	}

	// Acks come back on the FromKnob side.
	ackData, err := c.MarshalFromKnob(&FromKnob{ProtocolVersion: 1, Ack: &Ack{Nonce: 42}})
	if err != nil {
		t.Fatalf("MarshalFromKnob: %v", err)
	}
	in, err := c.UnmarshalFromKnob(ackData)
	if err != nil {
		t.Fatalf("UnmarshalFromKnob: %v", err)
	}
	if in.Kind() != KindAck {
		t.Fatalf("Kind() = %v, want KindAck", in.Kind())
	}
	if in.Ack.Nonce != 42 {
		t.Errorf("ack nonce = %d, want 42", in.Ack.Nonce)
	}
}

func TestCBORDeterministic(t *testing.T) {
	c := CBOR()
	msg := NewAppComponent(&AppComponent{
		ComponentID: "drinks",
		Type:        ComponentMultiChoice,
		Title:       "Drink Selector",
		MultiChoice: &MultiChoiceConfig{
			Options:            []string{"Coffee", "Tea", "Water"},
			WrapAround:         true,
			DetentStrengthUnit: 1.5,
			LEDHue:             200,
		},
	})
	msg.ProtocolVersion = 1
	msg.Nonce = 9

	a, err := c.MarshalToKnob(msg)
	if err != nil {
		t.Fatalf("MarshalToKnob: %v", err)
	}
	b, err := c.MarshalToKnob(msg)
	if err != nil {
		t.Fatalf("MarshalToKnob: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("repeated encodes differ; retransmissions must be byte-identical")
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	for _, c := range []Codec{CBOR(), JSON()} {
		if _, err := c.UnmarshalFromKnob([]byte{0xde, 0xad, 0xbe, 0xef}); err == nil {
			t.Errorf("%s: UnmarshalFromKnob(garbage) succeeded, want error", c.ContentType())
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, ct := range []string{"application/cbor", "application/json"} {
		c, err := r.Get(ct)
		if err != nil {
			t.Fatalf("Get(%q): %v", ct, err)
		}
		if c.ContentType() != ct {
			t.Errorf("ContentType() = %q, want %q", c.ContentType(), ct)
		}
	}
	if _, err := r.Get("application/protobuf"); err == nil {
		t.Error("Get(unregistered) succeeded, want error")
	}
}
