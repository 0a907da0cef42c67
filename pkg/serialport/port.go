// Package serialport defines the byte transport under the knoblink protocol
// engine, with a real implementation over go.bug.st/serial and an in-memory
// loopback implementation for tests and demos.
package serialport

import (
	"errors"
	"time"
)

// ErrClosed is returned by operations on a port that is not open.
var ErrClosed = errors.New("knoblink serialport: port is closed")

// DefaultBaud is the SmartKnob USB-CDC line rate.
const DefaultBaud = 921600

// DefaultPollTimeout bounds how long a Read waits for the first byte. It is
// the engine's idle-poll cadence and therefore also its cancellation
// latency.
const DefaultPollTimeout = 10 * time.Millisecond

// Port is a duplex, polled byte transport with device reset control lines.
//
// Read fills p with whatever bytes are currently available, waiting at most
// the configured poll timeout for the first byte. A return of (0, nil)
// means the wait elapsed with nothing to read; callers treat it as the
// idle branch of their poll loop. This is the Go serial idiom for the
// "check available, else yield" pattern: the bounded wait lives inside the
// read instead of a separate availability probe.
type Port interface {
	// Open configures and opens the transport. Implementations must hold
	// the reset control lines inactive while opening so that merely
	// attaching to the device does not reboot it.
	Open() error

	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)

	// Drain blocks until all written bytes have been transmitted.
	Drain() error

	Close() error

	// AssertReset drives the device reset line active. ReleaseReset
	// returns it to inactive; the device boots after release.
	AssertReset() error
	ReleaseReset() error
}

// Config holds serial port configuration.
type Config struct {
	// Device is the port path, e.g. "/dev/ttyUSB0" or "COM9".
	Device string

	// Baud is the line rate. USB CDC devices ignore it, but it must still
	// be set to something the OS driver accepts.
	Baud int

	// PollTimeout bounds each Read's wait for the first byte.
	PollTimeout time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	return c
}
