package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartknob/knoblink/pkg/framing"
	"github.com/smartknob/knoblink/pkg/knobproto"
)

// pending is one outbound message awaiting acknowledgment. Owned
// exclusively by the queue; destroyed when its ack arrives at the head,
// when retries are exhausted, or when an overflow clears the queue.
type pending struct {
	nonce   uint32
	frame   []byte
	sentAt  time.Time
	retries int
}

// Enqueue assigns the protocol version and the next nonce into msg,
// serializes and frames it, and appends it to the outgoing queue. If the
// queue was empty the frame is written to the transport immediately;
// otherwise it waits for the entries ahead of it to be acknowledged or
// dropped. The assigned nonce is returned.
//
// A full queue is cleared entirely before the new message is appended
// (freshness over completeness: a backlog of stale display/haptic commands
// is worthless by the time the device could act on it). Overflow is counted
// but is not an error; the new message is always accepted.
func (e *Engine) Enqueue(msg *knobproto.ToKnob) (uint32, error) {
	e.mu.Lock()
	if !e.portOK {
		e.mu.Unlock()
		return 0, ErrPortUnavailable
	}
	e.nextNonce++
	nonce := e.nextNonce
	e.mu.Unlock()

	msg.ProtocolVersion = e.version
	msg.Nonce = nonce

	payload, err := e.codec.MarshalToKnob(msg)
	if err != nil {
		return 0, fmt.Errorf("knoblink engine: marshal message: %w", err)
	}
	frame := framing.Encode(payload)

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) >= e.maxQueueSize {
		e.log.Warn("outgoing queue overflow, dropping backlog",
			zap.Int("dropped", len(e.queue)))
		e.queue = e.queue[:0]
		e.stats.queueOverflows.Add(1)
	}

	e.queue = append(e.queue, &pending{nonce: nonce, frame: frame})
	if len(e.queue) == 1 {
		e.serviceHeadLocked()
	}
	return nonce, nil
}

// handleAck removes the head entry when nonce matches it and services the
// next entry. Acks are applied strictly in FIFO order: a nonce that does
// not match the head (stale, duplicate, or out of order) is ignored.
func (e *Engine) handleAck(nonce uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 || e.queue[0].nonce != nonce {
		e.log.Debug("ignoring stray ack", zap.Uint32("nonce", nonce))
		return
	}

	e.log.Debug("ack matched head", zap.Uint32("nonce", nonce))
	e.queue = e.queue[1:]
	if len(e.queue) > 0 {
		e.serviceHeadLocked()
	}
}

// serviceHeadLocked writes the head entry's frame to the transport. A write
// failure marks the port unavailable for all subsequent sends (until the
// engine is restarted) but leaves the entry queued. Callers hold e.mu.
func (e *Engine) serviceHeadLocked() {
	if !e.portOK || len(e.queue) == 0 {
		return
	}
	head := e.queue[0]

	if _, err := e.port.Write(head.frame); err != nil {
		e.log.Error("transport write failed, marking port unavailable",
			zap.Uint32("nonce", head.nonce), zap.Error(err))
		e.portOK = false
		return
	}
	_ = e.port.Drain()

	if head.retries == 0 {
		e.stats.messagesSent.Add(1)
	} else {
		e.stats.retries.Add(1)
	}
	head.sentAt = time.Now()
	e.log.Debug("serviced head entry",
		zap.Uint32("nonce", head.nonce), zap.Int("retry", head.retries))
}

// checkRetry is driven by the read loop's idle branch. It re-services a
// head entry that has been outstanding longer than the retry timeout, and
// drops it once retries are exhausted, moving on to the next entry.
func (e *Engine) checkRetry() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		return
	}
	head := e.queue[0]
	if time.Since(head.sentAt) < e.retryTimeout {
		return
	}

	if head.retries < e.maxRetries {
		head.retries++
		head.sentAt = time.Now()
		e.serviceHeadLocked()
		return
	}

	e.log.Warn("delivery failed, dropping unacknowledged message",
		zap.Uint32("nonce", head.nonce), zap.Int("retries", head.retries))
	e.stats.deliveryFailures.Add(1)
	e.queue = e.queue[1:]
	if len(e.queue) > 0 {
		e.serviceHeadLocked()
	}
}

// queueLen reports the number of pending entries (tests only).
func (e *Engine) queueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}
