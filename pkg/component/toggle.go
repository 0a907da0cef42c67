package component

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/smartknob/knoblink/pkg/engine"
	"github.com/smartknob/knoblink/pkg/knobproto"
)

// ToggleConfig parameterizes a toggle session.
type ToggleConfig struct {
	ComponentID        string
	Title              string
	OffLabel           string
	OnLabel            string
	InitialOn          bool
	DetentStrengthUnit float32
	LEDHue             int32
}

func (c *ToggleConfig) applyDefaults() {
	if c.ComponentID == "" {
		c.ComponentID = "toggle"
	}
	if c.Title == "" {
		c.Title = "Toggle"
	}
	if c.OffLabel == "" {
		c.OffLabel = "Off"
	}
	if c.OnLabel == "" {
		c.OnLabel = "On"
	}
	if c.DetentStrengthUnit == 0 {
		c.DetentStrengthUnit = 2.0
	}
	if c.LEDHue == 0 {
		c.LEDHue = 120
	}
}

// Toggle presents a two-position switch on the knob. The device reports
// position 0 (off) or 1 (on); OnToggled fires on every change.
type Toggle struct {
	eng *engine.Engine
	log *zap.Logger
	cfg ToggleConfig

	onConnected func()
	onToggled   func(on bool)

	mu         sync.Mutex
	setupNonce uint32
	haveState  bool
	on         bool

	connected *waitFlag
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewToggle builds a session over a started engine.
func NewToggle(eng *engine.Engine, cfg ToggleConfig, log *zap.Logger) *Toggle {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Toggle{
		eng:       eng,
		log:       log,
		cfg:       cfg,
		on:        cfg.InitialOn,
		connected: newWaitFlag(),
	}
}

// OnConnected registers the setup-acknowledged callback.
func (tg *Toggle) OnConnected(cb func()) *Toggle {
	tg.onConnected = cb
	return tg
}

// OnToggled registers the state-changed callback.
func (tg *Toggle) OnToggled(cb func(on bool)) *Toggle {
	tg.onToggled = cb
	return tg
}

// Start sends the component setup and begins consuming engine messages.
func (tg *Toggle) Start(ctx context.Context) error {
	initial := int32(0)
	if tg.cfg.InitialOn {
		initial = 1
	}
	nonce, err := tg.eng.SendAppComponent(&knobproto.AppComponent{
		ComponentID: tg.cfg.ComponentID,
		Type:        knobproto.ComponentToggle,
		Title:       tg.cfg.Title,
		Toggle: &knobproto.ToggleConfig{
			OffLabel:           tg.cfg.OffLabel,
			OnLabel:            tg.cfg.OnLabel,
			InitialOn:          tg.cfg.InitialOn,
			DetentStrengthUnit: tg.cfg.DetentStrengthUnit,
			LEDHue:             tg.cfg.LEDHue,
		},
	})
	if err != nil {
		return fmt.Errorf("knoblink component: send toggle setup: %w", err)
	}
	tg.mu.Lock()
	tg.setupNonce = nonce
	tg.on = initial == 1
	tg.mu.Unlock()
	tg.log.Debug("sent toggle setup", zap.Uint32("nonce", nonce))

	ctx, cancel := context.WithCancel(ctx)
	tg.cancel = cancel
	tg.done = make(chan struct{})
	go tg.consume(ctx)
	return nil
}

// Stop halts the consumer.
func (tg *Toggle) Stop() {
	if tg.cancel == nil {
		return
	}
	tg.cancel()
	<-tg.done
}

// WaitConnected blocks until the device has acknowledged the setup or ctx
// expires.
func (tg *Toggle) WaitConnected(ctx context.Context) error {
	return tg.connected.wait(ctx)
}

// On returns the last known switch state.
func (tg *Toggle) On() bool {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return tg.on
}

func (tg *Toggle) consume(ctx context.Context) {
	defer close(tg.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-tg.eng.Messages():
			if !ok {
				return
			}
			tg.handle(msg)
		}
	}
}

func (tg *Toggle) handle(msg *knobproto.FromKnob) {
	switch msg.Kind() {
	case knobproto.KindAck:
		tg.mu.Lock()
		match := msg.Ack.Nonce == tg.setupNonce
		tg.mu.Unlock()
		if match && !tg.connected.isSet() {
			tg.connected.set()
			if tg.onConnected != nil {
				tg.onConnected()
			}
		}
	case knobproto.KindKnob:
		on := msg.Knob.CurrentPosition > 0
		tg.mu.Lock()
		changed := !tg.haveState || on != tg.on
		tg.haveState = true
		tg.on = on
		tg.mu.Unlock()
		if changed && tg.onToggled != nil {
			tg.onToggled(on)
		}
	}
}
