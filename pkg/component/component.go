// Package component provides high-level sessions over a running protocol
// engine: it sends the on-device app-component configuration and turns the
// raw message stream into typed callbacks (value selected, button pressed,
// toggled).
//
// A session owns the engine's message channel; run at most one session per
// engine at a time. Callbacks fire on the session's consumer goroutine and
// should return quickly.
package component

import (
	"context"
	"errors"
	"sync"
	"time"
)

// pressDebounce suppresses duplicate button-press callbacks caused by
// firmware re-sending knob state with the same press nonce bump.
const pressDebounce = 200 * time.Millisecond

// ErrNotConnected is returned by WaitConnected when the context expires
// before the device acknowledges the component setup.
var ErrNotConnected = errors.New("knoblink component: device never acknowledged setup")

// waitFlag is a one-shot latch usable from any goroutine.
type waitFlag struct {
	once sync.Once
	ch   chan struct{}
}

func newWaitFlag() *waitFlag {
	return &waitFlag{ch: make(chan struct{})}
}

// set releases every waiter. Idempotent.
func (w *waitFlag) set() {
	w.once.Do(func() { close(w.ch) })
}

func (w *waitFlag) isSet() bool {
	select {
	case <-w.ch:
		return true
	default:
		return false
	}
}

// wait blocks until set or ctx is done.
func (w *waitFlag) wait(ctx context.Context) error {
	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ErrNotConnected
	}
}
