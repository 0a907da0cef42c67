package engine

import (
	"go.uber.org/zap"

	"github.com/smartknob/knoblink/pkg/knobproto"
)

// dispatch deserializes one frame payload, applies the protocol-version
// gate, updates statistics, routes acks to the queue, and delivers the
// message to the bounded channel. Delivery never blocks: when the consumer
// has fallen behind and the channel is full, the message is dropped and
// counted, keeping the byte-reassembly path responsive.
func (e *Engine) dispatch(payload []byte) {
	msg, err := e.codec.UnmarshalFromKnob(payload)
	if err != nil {
		e.stats.protocolErrors.Add(1)
		e.log.Debug("message dropped: undecodable payload", zap.Error(err))
		return
	}

	if msg.ProtocolVersion != e.version {
		e.stats.protocolErrors.Add(1)
		e.log.Warn("message dropped: protocol version mismatch",
			zap.Uint32("got", msg.ProtocolVersion), zap.Uint32("want", e.version))
		return
	}

	e.stats.messagesReceived.Add(1)

	switch msg.Kind() {
	case knobproto.KindLog:
		e.stats.logMessages.Add(1)
	case knobproto.KindKnob:
		e.stats.knobMessages.Add(1)
	case knobproto.KindAck:
		e.stats.acksReceived.Add(1)
		e.handleAck(msg.Ack.Nonce)
	default:
		e.stats.otherMessages.Add(1)
	}

	select {
	case e.messages <- msg:
	default:
		e.stats.dropped.Add(1)
		e.log.Debug("message dropped: consumer channel full")
	}
}
