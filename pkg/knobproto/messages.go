// Package knobproto defines the structured messages exchanged with a
// SmartKnob-class device and the pluggable codecs that serialize them.
//
// The protocol engine treats a serialized message as an opaque byte payload;
// it reads and writes only the envelope fields (protocol version, nonce,
// kind) through the types in this package. Everything else is meaningful
// only to higher layers.
package knobproto

// Kind identifies which variant of a tagged-union message is populated.
// It is used for dispatch and statistics, never for payload interpretation.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindLog
	KindKnob
	KindAck
)

// String returns the lowercase variant name used in logs and stats output.
func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindKnob:
		return "knob"
	case KindAck:
		return "ack"
	default:
		return "unknown"
	}
}

// Command is a parameterless device command.
type Command int32

const (
	CommandGetKnobInfo Command = iota
	CommandMotorCalibrate
	CommandStrainCalibrate
)

// ComponentType selects the on-device app component to activate.
type ComponentType int32

const (
	ComponentNone ComponentType = iota
	ComponentToggle
	ComponentMultiChoice
)

// ToKnob is the host-to-device message envelope. Exactly one of the variant
// fields is set; ProtocolVersion and Nonce are assigned by the engine on
// enqueue, not by callers.
type ToKnob struct {
	ProtocolVersion uint32 `cbor:"1,keyasint" json:"protocol_version"`
	Nonce           uint32 `cbor:"2,keyasint" json:"nonce"`

	Command      *Command      `cbor:"3,keyasint,omitempty" json:"command,omitempty"`
	Config       *KnobConfig   `cbor:"4,keyasint,omitempty" json:"config,omitempty"`
	Settings     *Settings     `cbor:"5,keyasint,omitempty" json:"settings,omitempty"`
	AppComponent *AppComponent `cbor:"6,keyasint,omitempty" json:"app_component,omitempty"`
}

// FromKnob is the device-to-host message envelope. Exactly one of the
// variant fields is set by a well-formed device.
type FromKnob struct {
	ProtocolVersion uint32 `cbor:"1,keyasint" json:"protocol_version"`

	Log  *LogMessage `cbor:"2,keyasint,omitempty" json:"log,omitempty"`
	Knob *KnobState  `cbor:"3,keyasint,omitempty" json:"knob,omitempty"`
	Ack  *Ack        `cbor:"4,keyasint,omitempty" json:"ack,omitempty"`
}

// Kind reports which variant of the union is populated.
func (m *FromKnob) Kind() Kind {
	switch {
	case m.Log != nil:
		return KindLog
	case m.Knob != nil:
		return KindKnob
	case m.Ack != nil:
		return KindAck
	default:
		return KindUnknown
	}
}

// LogMessage carries a line of device-side log output.
type LogMessage struct {
	Msg string `cbor:"1,keyasint" json:"msg"`
}

// KnobState reports the current physical state of the knob. PressNonce
// increments on every press of the knob button, letting hosts detect
// presses without edge timing.
type KnobState struct {
	CurrentPosition int32   `cbor:"1,keyasint" json:"current_position"`
	SubPositionUnit float32 `cbor:"2,keyasint" json:"sub_position_unit"`
	PressNonce      uint32  `cbor:"3,keyasint" json:"press_nonce"`
}

// Ack confirms device receipt of the host message carrying the same nonce.
type Ack struct {
	Nonce uint32 `cbor:"1,keyasint" json:"nonce"`
}

// KnobConfig describes the haptic detent profile the device should adopt.
type KnobConfig struct {
	Position            int32   `cbor:"1,keyasint" json:"position"`
	MinPosition         int32   `cbor:"2,keyasint" json:"min_position"`
	MaxPosition         int32   `cbor:"3,keyasint" json:"max_position"`
	PositionWidthRad    float32 `cbor:"4,keyasint" json:"position_width_radians"`
	DetentStrengthUnit  float32 `cbor:"5,keyasint" json:"detent_strength_unit"`
	EndstopStrengthUnit float32 `cbor:"6,keyasint" json:"endstop_strength_unit"`
	SnapPoint           float32 `cbor:"7,keyasint" json:"snap_point"`
	Text                string  `cbor:"8,keyasint" json:"text"`
	LEDHue              int32   `cbor:"9,keyasint" json:"led_hue"`
}

// Settings carries persistent device settings.
type Settings struct {
	Brightness   int32 `cbor:"1,keyasint" json:"brightness"`
	ScreenMinBri int32 `cbor:"2,keyasint" json:"screen_min_bright"`
	LEDMaxBri    int32 `cbor:"3,keyasint" json:"led_max_bright"`
}

// AppComponent activates a high-level component on the device.
type AppComponent struct {
	ComponentID string        `cbor:"1,keyasint" json:"component_id"`
	Type        ComponentType `cbor:"2,keyasint" json:"type"`
	Title       string        `cbor:"3,keyasint" json:"title"`

	MultiChoice *MultiChoiceConfig `cbor:"4,keyasint,omitempty" json:"multi_choice,omitempty"`
	Toggle      *ToggleConfig      `cbor:"5,keyasint,omitempty" json:"toggle,omitempty"`
}

// MultiChoiceConfig parameterizes the multiple-choice component.
type MultiChoiceConfig struct {
	Options             []string `cbor:"1,keyasint" json:"options"`
	InitialIndex        int32    `cbor:"2,keyasint" json:"initial_index"`
	WrapAround          bool     `cbor:"3,keyasint" json:"wrap_around"`
	DetentStrengthUnit  float32  `cbor:"4,keyasint" json:"detent_strength_unit"`
	EndstopStrengthUnit float32  `cbor:"5,keyasint" json:"endstop_strength_unit"`
	LEDHue              int32    `cbor:"6,keyasint" json:"led_hue"`
}

// ToggleConfig parameterizes the toggle component.
type ToggleConfig struct {
	OffLabel           string  `cbor:"1,keyasint" json:"off_label"`
	OnLabel            string  `cbor:"2,keyasint" json:"on_label"`
	InitialOn          bool    `cbor:"3,keyasint" json:"initial_on"`
	DetentStrengthUnit float32 `cbor:"4,keyasint" json:"detent_strength_unit"`
	LEDHue             int32   `cbor:"5,keyasint" json:"led_hue"`
}

// NewCommand wraps cmd in a ToKnob envelope.
func NewCommand(cmd Command) *ToKnob {
	return &ToKnob{Command: &cmd}
}

// NewConfig wraps cfg in a ToKnob envelope.
func NewConfig(cfg *KnobConfig) *ToKnob {
	return &ToKnob{Config: cfg}
}

// NewSettings wraps s in a ToKnob envelope.
func NewSettings(s *Settings) *ToKnob {
	return &ToKnob{Settings: s}
}

// NewAppComponent wraps ac in a ToKnob envelope.
func NewAppComponent(ac *AppComponent) *ToKnob {
	return &ToKnob{AppComponent: ac}
}
