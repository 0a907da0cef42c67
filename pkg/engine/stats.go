package engine

import "sync/atomic"

// Stats holds the engine's monotonically increasing counters. Counters are
// atomics because the send path (Enqueue, any goroutine) and the receive
// path (read loop) both update them. Owned by one Engine instance; there is
// no process-wide state.
type Stats struct {
	messagesSent     atomic.Uint64
	messagesReceived atomic.Uint64
	acksReceived     atomic.Uint64
	retries          atomic.Uint64
	crcErrors        atomic.Uint64
	frameErrors      atomic.Uint64
	protocolErrors   atomic.Uint64
	queueOverflows   atomic.Uint64
	deliveryFailures atomic.Uint64
	dropped          atomic.Uint64
	logMessages      atomic.Uint64
	knobMessages     atomic.Uint64
	otherMessages    atomic.Uint64
}

// Snapshot is an immutable copy of the counters at one instant.
type Snapshot struct {
	MessagesSent     uint64 `json:"messages_sent" yaml:"messages_sent"`
	MessagesReceived uint64 `json:"messages_received" yaml:"messages_received"`
	AcksReceived     uint64 `json:"acks_received" yaml:"acks_received"`
	Retries          uint64 `json:"retries" yaml:"retries"`
	CRCErrors        uint64 `json:"crc_errors" yaml:"crc_errors"`
	FrameErrors      uint64 `json:"frame_errors" yaml:"frame_errors"`
	ProtocolErrors   uint64 `json:"protocol_errors" yaml:"protocol_errors"`
	QueueOverflows   uint64 `json:"queue_overflows" yaml:"queue_overflows"`
	DeliveryFailures uint64 `json:"delivery_failures" yaml:"delivery_failures"`
	Dropped          uint64 `json:"dropped" yaml:"dropped"`
	LogMessages      uint64 `json:"log_messages" yaml:"log_messages"`
	KnobMessages     uint64 `json:"knob_messages" yaml:"knob_messages"`
	OtherMessages    uint64 `json:"other_messages" yaml:"other_messages"`
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		MessagesSent:     s.messagesSent.Load(),
		MessagesReceived: s.messagesReceived.Load(),
		AcksReceived:     s.acksReceived.Load(),
		Retries:          s.retries.Load(),
		CRCErrors:        s.crcErrors.Load(),
		FrameErrors:      s.frameErrors.Load(),
		ProtocolErrors:   s.protocolErrors.Load(),
		QueueOverflows:   s.queueOverflows.Load(),
		DeliveryFailures: s.deliveryFailures.Load(),
		Dropped:          s.dropped.Load(),
		LogMessages:      s.logMessages.Load(),
		KnobMessages:     s.knobMessages.Load(),
		OtherMessages:    s.otherMessages.Load(),
	}
}

func (s *Stats) reset() {
	s.messagesSent.Store(0)
	s.messagesReceived.Store(0)
	s.acksReceived.Store(0)
	s.retries.Store(0)
	s.crcErrors.Store(0)
	s.frameErrors.Store(0)
	s.protocolErrors.Store(0)
	s.queueOverflows.Store(0)
	s.deliveryFailures.Store(0)
	s.dropped.Store(0)
	s.logMessages.Store(0)
	s.knobMessages.Store(0)
	s.otherMessages.Store(0)
}
