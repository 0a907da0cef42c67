package engine

import (
	"bytes"
	"errors"

	"go.uber.org/zap"

	"github.com/smartknob/knoblink/pkg/framing"
)

// largePartialThreshold is where the engine starts logging about a partial
// frame that never completes. Accumulation itself is unbounded: a stalled
// partial frame persists until more bytes arrive or the engine stops. On a
// link noisy enough to lose delimiters this is a known resource risk;
// bounding it would change observable reassembly behavior.
const largePartialThreshold = 64 << 10

// feed appends raw transport bytes to the incoming buffer and extracts
// every complete (0x00-delimited) frame. Empty segments are keep-alives and
// are skipped. A segment that fails to decode is counted and discarded, and
// scanning resumes at the next delimiter, so one corrupt frame never blocks
// the frames behind it. Decoded payloads go to the dispatcher.
//
// Called only from the read loop; the buffer needs no locking.
func (e *Engine) feed(data []byte) {
	e.incoming = append(e.incoming, data...)

	for {
		idx := bytes.IndexByte(e.incoming, framing.Delimiter)
		if idx < 0 {
			break
		}
		segment := e.incoming[:idx]
		rest := e.incoming[idx+1:]

		if len(segment) > 0 {
			payload, err := framing.Decode(segment)
			switch {
			case errors.Is(err, framing.ErrChecksum):
				e.stats.crcErrors.Add(1)
				e.log.Warn("frame dropped: CRC32 mismatch", zap.Int("len", len(segment)))
			case err != nil:
				e.stats.frameErrors.Add(1)
				e.log.Debug("frame dropped: undecodable", zap.Error(err))
			default:
				e.dispatch(payload)
			}
		}

		// Trim the consumed prefix. Copy down rather than re-slice so the
		// buffer's backing array does not pin every byte ever received.
		n := copy(e.incoming, rest)
		e.incoming = e.incoming[:n]
	}

	if len(e.incoming) > largePartialThreshold {
		e.log.Debug("large partial frame pending",
			zap.Int("buffered", len(e.incoming)))
	}
}
