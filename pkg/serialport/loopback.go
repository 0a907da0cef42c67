package serialport

import (
	"errors"
	"sync"
)

// Loopback is an in-memory Port for tests and demos. Bytes pushed with
// Inject become readable; bytes written by the engine are captured and
// retrievable with Written. A Loopback Read never waits: with nothing
// injected it returns (0, nil) immediately, so poll loops spin through
// their idle branch quickly.
type Loopback struct {
	mu      sync.Mutex
	opened  bool
	inbound []byte
	written [][]byte

	writeErr error
	resetLog []string
}

// NewLoopback returns an unopened loopback port.
func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = true
	return nil
}

func (l *Loopback) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.opened {
		return 0, ErrClosed
	}
	if len(l.inbound) == 0 {
		return 0, nil
	}
	n := copy(p, l.inbound)
	l.inbound = l.inbound[n:]
	return n, nil
}

func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.opened {
		return 0, ErrClosed
	}
	if l.writeErr != nil {
		return 0, l.writeErr
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	l.written = append(l.written, buf)
	return len(p), nil
}

func (l *Loopback) Drain() error { return nil }

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.opened {
		return errors.New("knoblink serialport: loopback closed twice")
	}
	l.opened = false
	return nil
}

func (l *Loopback) AssertReset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLog = append(l.resetLog, "assert")
	return nil
}

func (l *Loopback) ReleaseReset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLog = append(l.resetLog, "release")
	return nil
}

// Inject queues bytes for subsequent Reads.
func (l *Loopback) Inject(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbound = append(l.inbound, data...)
}

// Written returns a copy of every Write call's bytes, in order.
func (l *Loopback) Written() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.written))
	copy(out, l.written)
	return out
}

// WriteCount returns how many Write calls have been captured.
func (l *Loopback) WriteCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.written)
}

// SetWriteErr sets the error returned by subsequent Writes. Tests use it
// to simulate a dead transport.
func (l *Loopback) SetWriteErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeErr = err
}

// Resets returns the AssertReset/ReleaseReset calls observed, in order.
func (l *Loopback) Resets() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.resetLog))
	copy(out, l.resetLog)
	return out
}
