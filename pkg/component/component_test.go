package component

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartknob/knoblink/pkg/engine"
	"github.com/smartknob/knoblink/pkg/framing"
	"github.com/smartknob/knoblink/pkg/knobproto"
	"github.com/smartknob/knoblink/pkg/serialport"
)

// startEngine runs an engine over a loopback with a fast poll so tests
// finish quickly.
func startEngine(t *testing.T) (*engine.Engine, *serialport.Loopback) {
	t.Helper()
	port := serialport.NewLoopback()
	eng := engine.New(port,
		engine.WithModeSwitch(false),
		engine.WithPollInterval(time.Millisecond),
	)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { eng.Stop() })
	return eng, port
}

// lastSent waits for the nth engine write and decodes it.
func lastSent(t *testing.T, port *serialport.Loopback, n int) *knobproto.ToKnob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for port.WriteCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("engine never wrote frame %d", n)
		}
		time.Sleep(time.Millisecond)
	}
	raw := port.Written()[n-1]
	if len(raw) == 0 || raw[len(raw)-1] != framing.Delimiter {
		t.Fatalf("frame %d not delimiter-terminated: %x", n, raw)
	}
	payload, err := framing.Decode(raw[:len(raw)-1])
	if err != nil {
		t.Fatalf("Decode sent frame: %v", err)
	}
	msg, err := knobproto.CBOR().UnmarshalToKnob(payload)
	if err != nil {
		t.Fatalf("UnmarshalToKnob: %v", err)
	}
	return msg
}

func deviceFrame(t *testing.T, msg *knobproto.FromKnob) []byte {
	t.Helper()
	msg.ProtocolVersion = engine.ProtocolVersion
	payload, err := knobproto.CBOR().MarshalFromKnob(msg)
	if err != nil {
		t.Fatalf("MarshalFromKnob: %v", err)
	}
	return framing.Encode(payload)
}

func ackFrame(t *testing.T, nonce uint32) []byte {
	return deviceFrame(t, &knobproto.FromKnob{Ack: &knobproto.Ack{Nonce: nonce}})
}

func knobFrame(t *testing.T, position int32, pressNonce uint32) []byte {
	return deviceFrame(t, &knobproto.FromKnob{Knob: &knobproto.KnobState{
		CurrentPosition: position,
		PressNonce:      pressNonce,
	}})
}

func recvEvent[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func assertNoEvent[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %s: %v", what, v)
	case <-time.After(50 * time.Millisecond):
	}
}

type selection struct {
	index int
	text  string
}

func TestMultipleChoiceSetupAndConnect(t *testing.T) {
	eng, port := startEngine(t)

	connected := make(chan struct{}, 1)
	mc := NewMultipleChoice(eng, MultipleChoiceConfig{
		ComponentID:  "volume",
		Title:        "Volume Preset",
		Options:      []string{"Low", "Medium", "High"},
		InitialIndex: 1,
	}, nil).OnConnected(func() { connected <- struct{}{} })

	if err := mc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mc.Stop()

	sent := lastSent(t, port, 1)
	ac := sent.AppComponent
	if ac == nil {
		t.Fatalf("setup frame carries no app component: %+v", sent)
	}
	if ac.ComponentID != "volume" || ac.Type != knobproto.ComponentMultiChoice {
		t.Fatalf("unexpected component: %+v", ac)
	}
	if ac.MultiChoice == nil || len(ac.MultiChoice.Options) != 3 || ac.MultiChoice.InitialIndex != 1 {
		t.Fatalf("unexpected multi-choice config: %+v", ac.MultiChoice)
	}

	port.Inject(ackFrame(t, sent.Nonce))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := mc.WaitConnected(ctx); err != nil {
		t.Fatalf("WaitConnected: %v", err)
	}
	recvEvent(t, connected, "connected callback")

	if idx, text := mc.Current(); idx != 1 || text != "Medium" {
		t.Fatalf("Current() = %d %q, want 1 Medium", idx, text)
	}
}

func TestMultipleChoiceSelectionAndPress(t *testing.T) {
	eng, port := startEngine(t)

	selections := make(chan selection, 4)
	presses := make(chan selection, 4)
	mc := NewMultipleChoice(eng, MultipleChoiceConfig{
		Options: []string{"A", "B", "C"},
	}, nil).
		OnValueSelected(func(i int, s string) { selections <- selection{i, s} }).
		OnButtonPressed(func(i int, s string) { presses <- selection{i, s} })

	if err := mc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mc.Stop()
	port.Inject(ackFrame(t, lastSent(t, port, 1).Nonce))

	port.Inject(knobFrame(t, 2, 0))
	if got := recvEvent(t, selections, "selection"); got.index != 2 || got.text != "C" {
		t.Fatalf("selection = %+v, want {2 C}", got)
	}

	// Same index again: no new selection event.
	port.Inject(knobFrame(t, 2, 0))
	assertNoEvent(t, selections, "selection")

	// Press nonce bump fires the press callback.
	port.Inject(knobFrame(t, 2, 7))
	if got := recvEvent(t, presses, "press"); got.index != 2 {
		t.Fatalf("press = %+v, want index 2", got)
	}

	// A second bump inside the debounce window is swallowed.
	port.Inject(knobFrame(t, 2, 8))
	assertNoEvent(t, presses, "press")
}

func TestMultipleChoiceUpdateOptionsResends(t *testing.T) {
	eng, port := startEngine(t)

	mc := NewMultipleChoice(eng, MultipleChoiceConfig{
		Options: []string{"A", "B"},
	}, nil)
	if err := mc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mc.Stop()
	port.Inject(ackFrame(t, lastSent(t, port, 1).Nonce))

	if err := mc.UpdateOptions([]string{"X", "Y", "Z"}, 2); err != nil {
		t.Fatalf("UpdateOptions: %v", err)
	}
	sent := lastSent(t, port, 2)
	port.Inject(ackFrame(t, sent.Nonce))
	if got := sent.AppComponent.MultiChoice.Options; len(got) != 3 || got[2] != "Z" {
		t.Fatalf("re-sent options = %v", got)
	}
	if idx, text := mc.Current(); idx != 2 || text != "Z" {
		t.Fatalf("Current() = %d %q, want 2 Z", idx, text)
	}

	// Identical config again: nothing new goes out.
	if err := mc.UpdateOptions([]string{"X", "Y", "Z"}, 2); err != nil {
		t.Fatalf("UpdateOptions repeat: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := port.WriteCount(); n != 2 {
		t.Fatalf("WriteCount = %d, want 2", n)
	}
}

func TestMultipleChoiceWaitConnectedTimeout(t *testing.T) {
	eng, _ := startEngine(t)

	mc := NewMultipleChoice(eng, MultipleChoiceConfig{}, nil)
	if err := mc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := mc.WaitConnected(ctx); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("WaitConnected = %v, want ErrNotConnected", err)
	}
}

func TestToggleSetupAndStateChanges(t *testing.T) {
	eng, port := startEngine(t)

	states := make(chan bool, 4)
	tg := NewToggle(eng, ToggleConfig{
		ComponentID: "lamp",
		Title:       "Desk Lamp",
		OnLabel:     "Lit",
	}, nil).OnToggled(func(on bool) { states <- on })

	if err := tg.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tg.Stop()

	sent := lastSent(t, port, 1)
	ac := sent.AppComponent
	if ac == nil || ac.Type != knobproto.ComponentToggle || ac.Toggle == nil {
		t.Fatalf("unexpected setup frame: %+v", sent)
	}
	if ac.Toggle.OnLabel != "Lit" || ac.Toggle.OffLabel != "Off" {
		t.Fatalf("unexpected labels: %+v", ac.Toggle)
	}

	port.Inject(ackFrame(t, sent.Nonce))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tg.WaitConnected(ctx); err != nil {
		t.Fatalf("WaitConnected: %v", err)
	}

	port.Inject(knobFrame(t, 1, 0))
	if on := recvEvent(t, states, "toggle event"); !on {
		t.Fatal("first toggle event = off, want on")
	}
	if !tg.On() {
		t.Fatal("On() = false after on event")
	}

	port.Inject(knobFrame(t, 0, 0))
	if on := recvEvent(t, states, "toggle event"); on {
		t.Fatal("second toggle event = on, want off")
	}

	// Unchanged position: no extra callback.
	port.Inject(knobFrame(t, 0, 0))
	assertNoEvent(t, states, "toggle event")
}
