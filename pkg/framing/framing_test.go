package framing

import (
	"bytes"
	"errors"
	"testing"
)

func roundTripCases() [][]byte {
	return [][]byte{
		{0x01},
		{0x00},
		{0x00, 0x00, 0x00},
		{0xFF},
		{0xFF, 0x00, 0xFF},
		[]byte("hello knob"),
		bytes.Repeat([]byte{0xAB}, 253),
		bytes.Repeat([]byte{0xAB}, 254),
		bytes.Repeat([]byte{0xAB}, 255),
		bytes.Repeat([]byte{0x00}, 300),
		append(bytes.Repeat([]byte{0x7F}, 254), 0x00),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for i, payload := range roundTripCases() {
		frame := Encode(payload)
		if frame[len(frame)-1] != Delimiter {
			t.Fatalf("case[%d]: frame does not end with delimiter", i)
		}
		got, err := Decode(frame[:len(frame)-1])
		if err != nil {
			t.Fatalf("case[%d]: Decode: %v", i, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("case[%d]: payload = %x, want %x", i, got, payload)
		}
	}
}

func TestEncodeZeroFree(t *testing.T) {
	for i, payload := range roundTripCases() {
		frame := Encode(payload)
		if n := bytes.IndexByte(frame[:len(frame)-1], 0); n != -1 {
			t.Errorf("case[%d]: interior zero at offset %d in %x", i, n, frame)
		}
	}
}

func TestDecodeSingleBitCorruption(t *testing.T) {
	payload := []byte("the quick brown knob")
	frame := Encode(payload)
	body := frame[:len(frame)-1]

	for byteIdx := 0; byteIdx < len(body); byteIdx++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := make([]byte, len(body))
			copy(corrupt, body)
			corrupt[byteIdx] ^= 1 << bit

			got, err := Decode(corrupt)
			if err != nil {
				continue // detected, good
			}
			if bytes.Equal(got, payload) {
				t.Fatalf("flip byte %d bit %d: corruption not detected", byteIdx, bit)
			}
			// A flip that lands entirely inside COBS structure can still
			// yield a decode; the CRC must have caught payload damage.
			t.Fatalf("flip byte %d bit %d: decode succeeded with altered payload %x", byteIdx, bit, got)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty input", nil, ErrMalformed},
		{"truncated code byte", []byte{0x05, 0x01}, ErrMalformed},
		{"interior zero", []byte{0x03, 0x00, 0x01}, ErrMalformed},
		{"undersized packet", []byte{0x04, 0x01, 0x02, 0x03}, ErrTooShort},
		{"bad checksum", func() []byte {
			frame := Encode([]byte("payload"))
			body := frame[:len(frame)-1]
			// Re-encode with the last payload byte changed but the original
			// CRC preserved.
			packet, _ := cobsDecode(body)
			packet[0] ^= 0xFF
			return cobsEncode(packet)
		}(), ErrChecksum},
	}

	for _, tt := range tests {
		_, err := Decode(tt.raw)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestCOBSWorstCaseExpansion(t *testing.T) {
	// 254 non-zero bytes force a maximal block plus a continuation code.
	payload := bytes.Repeat([]byte{0x01}, 254)
	frame := Encode(payload)
	decoded, err := Decode(frame[:len(frame)-1])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatal("maximal block round trip mismatch")
	}
}

func FuzzFrameRoundTrip(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0xFF, 0x00, 0x01})
	f.Add(bytes.Repeat([]byte{0x42}, 300))

	f.Fuzz(func(t *testing.T, payload []byte) {
		frame := Encode(payload)
		if bytes.IndexByte(frame[:len(frame)-1], 0) != -1 {
			t.Fatalf("interior zero in encoded frame for payload %x", payload)
		}
		got, err := Decode(frame[:len(frame)-1])
		if len(payload) == 0 {
			// A frame carrying only the CRC trailer is rejected as too short.
			if !errors.Is(err, ErrTooShort) {
				t.Fatalf("empty payload: err = %v, want ErrTooShort", err)
			}
			return
		}
		if err != nil {
			t.Fatalf("Decode(Encode(%x)): %v", payload, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("round trip: got %x, want %x", got, payload)
		}
	})
}
