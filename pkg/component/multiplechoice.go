package component

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartknob/knoblink/pkg/engine"
	"github.com/smartknob/knoblink/pkg/knobproto"
)

// MultipleChoiceConfig parameterizes a multiple-choice session.
type MultipleChoiceConfig struct {
	ComponentID         string
	Title               string
	Options             []string
	InitialIndex        int
	WrapAround          bool
	DetentStrengthUnit  float32
	EndstopStrengthUnit float32
	LEDHue              int32
}

func (c *MultipleChoiceConfig) applyDefaults() {
	if c.ComponentID == "" {
		c.ComponentID = "multi_choice"
	}
	if c.Title == "" {
		c.Title = "Select Option"
	}
	if len(c.Options) == 0 {
		c.Options = []string{"Option 1", "Option 2", "Option 3"}
	}
	if c.DetentStrengthUnit == 0 {
		c.DetentStrengthUnit = 1.5
	}
	if c.EndstopStrengthUnit == 0 {
		c.EndstopStrengthUnit = 1.5
	}
	if c.LEDHue == 0 {
		c.LEDHue = 200
	}
}

// key is the idempotence signature: re-sending an identical setup is
// skipped.
func (c *MultipleChoiceConfig) key() string {
	return fmt.Sprintf("%s|%s|%s|%d|%t|%v|%v|%d",
		c.ComponentID, c.Title, strings.Join(c.Options, "\x1f"),
		c.InitialIndex, c.WrapAround,
		c.DetentStrengthUnit, c.EndstopStrengthUnit, c.LEDHue)
}

// MultipleChoice presents a list of options on the knob and reports
// selection and button-press events.
type MultipleChoice struct {
	eng *engine.Engine
	log *zap.Logger
	cfg MultipleChoiceConfig

	onConnected     func()
	onValueSelected func(index int, text string)
	onButtonPressed func(index int, text string)

	mu            sync.Mutex
	lastKey       string
	setupNonce    uint32
	lastIndex     int
	haveIndex     bool
	lastPressSeen bool
	lastPressVal  uint32
	lastPressAt   time.Time

	connected *waitFlag
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMultipleChoice builds a session over a started engine.
func NewMultipleChoice(eng *engine.Engine, cfg MultipleChoiceConfig, log *zap.Logger) *MultipleChoice {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &MultipleChoice{
		eng:       eng,
		log:       log,
		cfg:       cfg,
		lastIndex: cfg.InitialIndex,
		connected: newWaitFlag(),
	}
}

// OnConnected registers the setup-acknowledged callback.
func (m *MultipleChoice) OnConnected(cb func()) *MultipleChoice {
	m.onConnected = cb
	return m
}

// OnValueSelected registers the selection-changed callback.
func (m *MultipleChoice) OnValueSelected(cb func(index int, text string)) *MultipleChoice {
	m.onValueSelected = cb
	return m
}

// OnButtonPressed registers the press callback.
func (m *MultipleChoice) OnButtonPressed(cb func(index int, text string)) *MultipleChoice {
	m.onButtonPressed = cb
	return m
}

// Start sends the component setup and begins consuming engine messages.
// It returns without waiting for the device; use WaitConnected to block
// until the setup is acknowledged.
func (m *MultipleChoice) Start(ctx context.Context) error {
	if err := m.sendSetup(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.consume(ctx)
	return nil
}

// Stop halts the consumer. The engine keeps running; stopping it is the
// caller's job.
func (m *MultipleChoice) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// WaitConnected blocks until the device has acknowledged the component
// setup or ctx expires.
func (m *MultipleChoice) WaitConnected(ctx context.Context) error {
	return m.connected.wait(ctx)
}

// Current returns the last known selection.
func (m *MultipleChoice) Current() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

func (m *MultipleChoice) currentLocked() (int, string) {
	idx := m.lastIndex
	if idx >= 0 && idx < len(m.cfg.Options) {
		return idx, m.cfg.Options[idx]
	}
	return idx, fmt.Sprintf("unknown (%d)", idx)
}

// UpdateOptions replaces the option list and re-sends the configuration.
func (m *MultipleChoice) UpdateOptions(options []string, initialIndex int) error {
	m.mu.Lock()
	m.cfg.Options = append([]string(nil), options...)
	m.cfg.InitialIndex = initialIndex
	m.lastIndex = initialIndex
	m.mu.Unlock()
	return m.sendSetup()
}

// sendSetup enqueues the MULTI_CHOICE app component, skipping identical
// re-sends.
func (m *MultipleChoice) sendSetup() error {
	m.mu.Lock()
	key := m.cfg.key()
	if key == m.lastKey {
		m.mu.Unlock()
		return nil
	}
	cfg := m.cfg
	m.mu.Unlock()

	nonce, err := m.eng.SendAppComponent(&knobproto.AppComponent{
		ComponentID: cfg.ComponentID,
		Type:        knobproto.ComponentMultiChoice,
		Title:       cfg.Title,
		MultiChoice: &knobproto.MultiChoiceConfig{
			Options:             cfg.Options,
			InitialIndex:        int32(cfg.InitialIndex),
			WrapAround:          cfg.WrapAround,
			DetentStrengthUnit:  cfg.DetentStrengthUnit,
			EndstopStrengthUnit: cfg.EndstopStrengthUnit,
			LEDHue:              cfg.LEDHue,
		},
	})
	if err != nil {
		return fmt.Errorf("knoblink component: send multi-choice setup: %w", err)
	}

	m.mu.Lock()
	m.lastKey = key
	m.setupNonce = nonce
	m.mu.Unlock()
	m.log.Debug("sent multi-choice setup", zap.Uint32("nonce", nonce))
	return nil
}

// consume drains the engine's message channel until cancelled or the
// channel closes.
func (m *MultipleChoice) consume(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-m.eng.Messages():
			if !ok {
				return
			}
			m.handle(msg)
		}
	}
}

func (m *MultipleChoice) handle(msg *knobproto.FromKnob) {
	switch msg.Kind() {
	case knobproto.KindAck:
		m.mu.Lock()
		match := msg.Ack.Nonce == m.setupNonce
		m.mu.Unlock()
		if match && !m.connected.isSet() {
			m.connected.set()
			if m.onConnected != nil {
				m.onConnected()
			}
		}
	case knobproto.KindKnob:
		m.handleKnob(msg.Knob)
	}
}

func (m *MultipleChoice) handleKnob(state *knobproto.KnobState) {
	m.mu.Lock()
	idx := int(state.CurrentPosition)
	indexChanged := !m.haveIndex || idx != m.lastIndex
	m.haveIndex = true
	m.lastIndex = idx

	pressed := false
	if m.lastPressSeen && state.PressNonce != m.lastPressVal {
		if time.Since(m.lastPressAt) >= pressDebounce {
			pressed = true
			m.lastPressAt = time.Now()
		}
	}
	m.lastPressSeen = true
	m.lastPressVal = state.PressNonce

	curIdx, curText := m.currentLocked()
	m.mu.Unlock()

	if indexChanged && m.onValueSelected != nil {
		m.onValueSelected(curIdx, curText)
	}
	if pressed && m.onButtonPressed != nil {
		m.onButtonPressed(curIdx, curText)
	}
}
