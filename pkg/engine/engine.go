// Package engine implements the knoblink protocol engine: frame reassembly
// over a polled serial transport, an acknowledged outgoing queue with retry
// and overflow policy, message dispatch with a protocol-version gate, and
// the read loop that drives all of it.
//
// One goroutine (started by Start) owns the read loop, the incoming buffer,
// and dispatch. The outgoing queue is the only state shared across
// goroutines and is guarded by a mutex; Enqueue may be called from
// anywhere. Received messages are delivered on a bounded channel obtained
// from Messages, decoupling slow consumers from the reassembly path.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartknob/knoblink/pkg/knobproto"
	"github.com/smartknob/knoblink/pkg/serialport"
)

// Protocol contract constants. Both sides must agree on the version; the
// queue and retry constants shape the delivery-confirmation protocol.
const (
	ProtocolVersion     = 1
	DefaultMaxQueueSize = 10
	DefaultRetryTimeout = 250 * time.Millisecond
	DefaultMaxRetries   = 10
	DefaultPollInterval = 10 * time.Millisecond
	DefaultBufferSize   = 256

	// modeSwitchByte asks firmware still in its console mode to switch to
	// structured-message mode.
	modeSwitchByte = 'q'

	resetHold      = 100 * time.Millisecond
	bootWait       = time.Second
	modeSwitchWait = 200 * time.Millisecond
	shutdownSettle = 100 * time.Millisecond
	readChunkSize  = 4096
)

var (
	// ErrPortUnavailable is returned by Enqueue after a transport write
	// failure has marked the engine unable to send. Reads may continue;
	// sending resumes only after a restart.
	ErrPortUnavailable = errors.New("knoblink engine: port unavailable")

	// ErrNotClosed is returned by Start when the engine is already running.
	ErrNotClosed = errors.New("knoblink engine: already started")
)

// State is the engine lifecycle state.
type State int32

const (
	StateClosed State = iota
	StateOpening
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "invalid"
	}
}

// Option configures an Engine during construction.
type Option func(*Engine)

// WithCodec overrides the default CBOR message codec.
func WithCodec(c knobproto.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMaxQueueSize overrides the pending-queue bound.
func WithMaxQueueSize(n int) Option {
	return func(e *Engine) { e.maxQueueSize = n }
}

// WithRetryPolicy overrides the head-retry timeout and retry budget.
func WithRetryPolicy(timeout time.Duration, maxRetries int) Option {
	return func(e *Engine) {
		e.retryTimeout = timeout
		e.maxRetries = maxRetries
	}
}

// WithPollInterval overrides the read loop's idle yield interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// WithAutoReset makes Start toggle the device reset line and wait for the
// device to boot before entering the read loop.
func WithAutoReset(enable bool) Option {
	return func(e *Engine) { e.autoReset = enable }
}

// WithModeSwitch controls whether Start sends the structured-mode switch
// byte after opening the port. On by default.
func WithModeSwitch(enable bool) Option {
	return func(e *Engine) { e.modeSwitch = enable }
}

// WithBufferSize overrides the capacity of the Messages channel.
func WithBufferSize(n int) Option {
	return func(e *Engine) { e.bufferSize = n }
}

// Engine is one protocol session over one serial port.
type Engine struct {
	port  serialport.Port
	codec knobproto.Codec
	log   *zap.Logger

	version      uint32
	maxQueueSize int
	retryTimeout time.Duration
	maxRetries   int
	pollInterval time.Duration
	bufferSize   int
	autoReset    bool
	modeSwitch   bool

	mu        sync.Mutex
	state     State
	queue     []*pending
	nextNonce uint32
	portOK    bool

	// incoming is the reassembly buffer; read-loop goroutine only.
	incoming []byte

	stats    Stats
	messages chan *knobproto.FromKnob

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an Engine over port. The engine owns the port from Start to
// Stop.
func New(port serialport.Port, opts ...Option) *Engine {
	e := &Engine{
		port:         port,
		codec:        knobproto.CBOR(),
		log:          zap.NewNop(),
		version:      ProtocolVersion,
		maxQueueSize: DefaultMaxQueueSize,
		retryTimeout: DefaultRetryTimeout,
		maxRetries:   DefaultMaxRetries,
		pollInterval: DefaultPollInterval,
		bufferSize:   DefaultBufferSize,
		modeSwitch:   true,
		// A random starting nonce makes acks from a previous session
		// unlikely to collide with this one.
		nextNonce: uint32(rand.Int31n(1<<30)) + 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens the transport, optionally resets the device, optionally
// switches it into structured-message mode, and launches the read loop.
// Cancelling ctx stops the read loop but does not close the port; call
// Stop for a full shutdown.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateClosed {
		e.mu.Unlock()
		return ErrNotClosed
	}
	e.state = StateOpening
	e.mu.Unlock()

	if err := e.port.Open(); err != nil {
		e.setState(StateClosed)
		return fmt.Errorf("knoblink engine: open transport: %w", err)
	}

	if e.autoReset {
		e.log.Info("resetting device")
		if err := e.resetDevice(ctx); err != nil {
			e.port.Close()
			e.setState(StateClosed)
			return err
		}
	}

	if e.modeSwitch {
		if _, err := e.port.Write([]byte{modeSwitchByte}); err != nil {
			e.port.Close()
			e.setState(StateClosed)
			return fmt.Errorf("knoblink engine: switch to structured mode: %w", err)
		}
		_ = e.port.Drain()
		sleepCtx(ctx, modeSwitchWait)
		e.log.Debug("sent mode switch byte")
	}

	loopCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.state = StateRunning
	e.portOK = true
	e.incoming = e.incoming[:0]
	e.messages = make(chan *knobproto.FromKnob, e.bufferSize)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	go e.readLoop(loopCtx)
	e.log.Info("engine started")
	return nil
}

// Stop halts the read loop and closes the transport. The reset control
// lines are left untouched so an ordinary shutdown does not reboot the
// device. Safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopping
	e.portOK = false
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
	close(e.messages)

	// Let the device finish chewing on anything already written.
	time.Sleep(shutdownSettle)

	err := e.port.Close()
	e.setState(StateClosed)
	e.log.Info("engine stopped")
	if err != nil {
		return fmt.Errorf("knoblink engine: close transport: %w", err)
	}
	return nil
}

// Messages returns the bounded channel of received, version-checked
// messages (acks included). The channel is closed by Stop.
func (e *Engine) Messages() <-chan *knobproto.FromKnob {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.messages
}

// State reports the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Snapshot { return e.stats.snapshot() }

// ClearStats zeroes every counter.
func (e *Engine) ClearStats() { e.stats.reset() }

// SendCommand enqueues a parameterless device command.
func (e *Engine) SendCommand(cmd knobproto.Command) (uint32, error) {
	return e.Enqueue(knobproto.NewCommand(cmd))
}

// SendConfig enqueues a haptic configuration.
func (e *Engine) SendConfig(cfg *knobproto.KnobConfig) (uint32, error) {
	return e.Enqueue(knobproto.NewConfig(cfg))
}

// SendSettings enqueues persistent device settings.
func (e *Engine) SendSettings(s *knobproto.Settings) (uint32, error) {
	return e.Enqueue(knobproto.NewSettings(s))
}

// SendAppComponent enqueues an app-component activation.
func (e *Engine) SendAppComponent(ac *knobproto.AppComponent) (uint32, error) {
	return e.Enqueue(knobproto.NewAppComponent(ac))
}

// readLoop polls the transport, feeds bytes to the reassembler, and runs
// the retry check whenever the link is idle. It exits on transport read
// failure or context cancellation; cancellation is the loop's own stop
// condition, never surfaced to callers as an error.
func (e *Engine) readLoop(ctx context.Context) {
	defer close(e.done)
	e.log.Debug("read loop started")

	buf := make([]byte, readChunkSize)
	for {
		if ctx.Err() != nil {
			e.log.Debug("read loop cancelled")
			return
		}

		n, err := e.port.Read(buf)
		if err != nil {
			if ctx.Err() == nil {
				e.log.Error("transport read failed, read loop terminating", zap.Error(err))
			}
			return
		}
		if n > 0 {
			e.feed(buf[:n])
			continue
		}

		// Idle: nothing readable within the port's poll wait.
		e.checkRetry()
		select {
		case <-ctx.Done():
		case <-time.After(e.pollInterval):
		}
	}
}

// resetDevice toggles the reset line and waits out the boot.
func (e *Engine) resetDevice(ctx context.Context) error {
	if err := e.port.AssertReset(); err != nil {
		return fmt.Errorf("knoblink engine: assert reset: %w", err)
	}
	sleepCtx(ctx, resetHold)
	if err := e.port.ReleaseReset(); err != nil {
		return fmt.Errorf("knoblink engine: release reset: %w", err)
	}
	sleepCtx(ctx, bootWait)
	return nil
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
