// Package framing implements the knoblink wire frame codec: a COBS
// zero-free transform over payload+CRC32, delimited by a single 0x00 byte.
//
// Frame layout on the wire:
//
//	frame := COBS(payload ‖ CRC32_LE(payload)) ‖ 0x00
//
// COBS guarantees the encoded body contains no interior zero byte, which is
// what makes 0x00 safe to use as the frame delimiter. The CRC32 is the
// standard IEEE reflected polynomial, computed over the payload only and
// stored little-endian.
//
// All functions are pure and safe for concurrent use.
package framing

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Delimiter terminates every encoded frame on the wire.
const Delimiter byte = 0x00

// crcSize is the length of the CRC32 trailer carried inside each frame.
const crcSize = 4

var (
	// ErrMalformed is returned when the COBS structure of a frame is
	// inconsistent (e.g. a code byte points past the end of the input).
	ErrMalformed = errors.New("knoblink framing: malformed COBS frame")

	// ErrTooShort is returned when a decoded frame is too small to carry a
	// CRC32 trailer and at least one payload byte.
	ErrTooShort = errors.New("knoblink framing: frame too short")

	// ErrChecksum is returned when the carried CRC32 does not match the
	// CRC32 recomputed over the decoded payload. The frame is dropped;
	// this is a per-frame recoverable condition, never fatal.
	ErrChecksum = errors.New("knoblink framing: CRC32 mismatch")
)

// Encode builds a complete wire frame for payload: CRC32 trailer appended,
// COBS transform applied, trailing delimiter added. Encode succeeds for any
// input, including payloads containing 0x00 and 0xFF bytes.
func Encode(payload []byte) []byte {
	packet := make([]byte, len(payload)+crcSize)
	copy(packet, payload)
	binary.LittleEndian.PutUint32(packet[len(payload):], crc32.ChecksumIEEE(payload))

	encoded := cobsEncode(packet)
	return append(encoded, Delimiter)
}

// Decode reverses the COBS transform of raw (a single frame body with the
// trailing delimiter already stripped), verifies and strips the CRC32
// trailer, and returns the payload.
func Decode(raw []byte) ([]byte, error) {
	packet, err := cobsDecode(raw)
	if err != nil {
		return nil, err
	}
	if len(packet) <= crcSize {
		return nil, ErrTooShort
	}

	payload := packet[:len(packet)-crcSize]
	carried := binary.LittleEndian.Uint32(packet[len(packet)-crcSize:])
	if carried != crc32.ChecksumIEEE(payload) {
		return nil, ErrChecksum
	}
	return payload, nil
}

// cobsEncode applies Consistent Overhead Byte Stuffing to src. The output
// contains no zero bytes. Worst-case expansion is one byte per 254 bytes of
// input, plus one leading code byte.
func cobsEncode(src []byte) []byte {
	dst := make([]byte, 0, len(src)+1+len(src)/254)
	codeIdx := 0
	dst = append(dst, 0) // placeholder for the first code byte
	code := byte(1)

	for _, b := range src {
		if b == 0 {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == 0xFF {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeIdx] = code
	return dst
}

// cobsDecode reverses cobsEncode. It returns ErrMalformed when a code byte
// runs past the end of the input or an interior zero byte is encountered.
func cobsDecode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrMalformed
	}
	dst := make([]byte, 0, len(src))

	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return nil, ErrMalformed
		}
		i++
		end := i + int(code) - 1
		if end > len(src) {
			return nil, ErrMalformed
		}
		for ; i < end; i++ {
			if src[i] == 0 {
				return nil, ErrMalformed
			}
			dst = append(dst, src[i])
		}
		// A maximal block (code 0xFF) carries no implicit zero; any other
		// block is followed by a zero unless it ends the frame.
		if code != 0xFF && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, nil
}
