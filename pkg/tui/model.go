// Package tui provides the interactive terminal dashboard for knobctl.
// It is built on the bubbletea/lipgloss stack and renders two tabs: Live
// (current knob state plus a rolling event feed) and Stats (engine
// counters). Counters are sampled every refreshInterval; events arrive
// as the engine delivers them.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smartknob/knoblink/pkg/engine"
	"github.com/smartknob/knoblink/pkg/knobproto"
)

// ---------------------------------------------------------------------------
// Shared styles
// ---------------------------------------------------------------------------

var (
	// titleStyle renders the application title bar.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	// activeTabStyle renders the currently selected tab label.
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 2)

	// inactiveTabStyle renders unselected tab labels.
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	// labelStyle is used for stat and state labels.
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			PaddingRight(1)

	// valueStyle is used for stat and state values.
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// eventStyle renders ordinary event-feed lines.
	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// logEventStyle renders device log lines in the event feed.
	logEventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// dimStyle is used for "no data" messages.
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	// statusBarStyle renders the bottom status bar.
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(1)
)

// ---------------------------------------------------------------------------
// Tab type
// ---------------------------------------------------------------------------

// tab identifies the currently active dashboard tab.
type tab int

const (
	tabLive tab = iota
	tabStats
	tabCount // sentinel — must stay last
)

// ---------------------------------------------------------------------------
// Tea messages
// ---------------------------------------------------------------------------

// tickMsg is sent every refreshInterval to trigger a counter sample.
type tickMsg time.Time

// deviceMsg carries one message delivered by the engine.
type deviceMsg struct {
	msg *knobproto.FromKnob
}

// streamClosedMsg signals that the engine's message channel has closed.
type streamClosedMsg struct{}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

const (
	refreshInterval = 500 * time.Millisecond
	maxEvents       = 128
)

// event is one rendered line of the Live feed.
type event struct {
	at    time.Time
	isLog bool
	text  string
}

// Model is the top-level bubbletea model for the dashboard.
type Model struct {
	eng    *engine.Engine
	device string

	tabs      []string
	activeTab tab
	width     int
	height    int

	stats  engine.Snapshot
	events []event

	haveKnob bool
	knob     knobproto.KnobState

	streamClosed bool
}

// New returns a Model observing a started engine on device.
func New(eng *engine.Engine, device string) Model {
	return Model{
		eng:    eng,
		device: device,
		tabs:   []string{"Live", "Stats"},
		stats:  eng.Stats(),
	}
}

// Init starts the periodic tick and begins consuming the message stream.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForMessage(m.eng.Messages()))
}

// tick schedules a tickMsg after refreshInterval.
func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForMessage blocks on the engine's message channel and wraps the next
// delivery. Re-issued after every receive.
func waitForMessage(ch <-chan *knobproto.FromKnob) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return deviceMsg{msg: msg}
	}
}

// Update processes messages and returns an updated model plus any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "left", "h":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1":
			m.activeTab = tabLive
		case "2":
			m.activeTab = tabStats
		case "c":
			m.eng.ClearStats()
			m.stats = m.eng.Stats()
		}
		return m, nil

	case tickMsg:
		m.stats = m.eng.Stats()
		return m, tick()

	case deviceMsg:
		m.record(msg.msg)
		return m, waitForMessage(m.eng.Messages())

	case streamClosedMsg:
		m.streamClosed = true
		return m, nil
	}

	return m, nil
}

// record folds one delivered message into the Live view state.
func (m *Model) record(msg *knobproto.FromKnob) {
	ev := event{at: time.Now()}
	switch msg.Kind() {
	case knobproto.KindKnob:
		m.haveKnob = true
		m.knob = *msg.Knob
		ev.text = fmt.Sprintf("knob  position=%d sub=%+.3f press=%d",
			msg.Knob.CurrentPosition, msg.Knob.SubPositionUnit, msg.Knob.PressNonce)
	case knobproto.KindLog:
		ev.isLog = true
		ev.text = "log   " + strings.TrimRight(msg.Log.Msg, "\r\n")
	case knobproto.KindAck:
		ev.text = fmt.Sprintf("ack   nonce=%d", msg.Ack.Nonce)
	default:
		ev.text = "unknown message"
	}

	m.events = append(m.events, ev)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

// View renders the entire dashboard to a string.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	var sb strings.Builder

	// --- Title bar ---
	sb.WriteString(titleStyle.Render("  SmartKnob Dashboard  "))
	sb.WriteString("\n")

	// --- Tab bar ---
	var tabParts []string
	for i, name := range m.tabs {
		label := fmt.Sprintf(" %d: %s ", i+1, name)
		if tab(i) == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
	}
	sb.WriteString(strings.Join(tabParts, ""))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	// --- Content area ---
	contentHeight := m.height - 5 // title(1) + tabs(1) + divider(1) + status(2)
	if contentHeight < 1 {
		contentHeight = 1
	}
	var content string
	switch m.activeTab {
	case tabLive:
		content = m.renderLive(contentHeight)
	case tabStats:
		content = m.renderStats()
	}
	sb.WriteString(clipLines(content, contentHeight))
	sb.WriteString("\n")

	// --- Status bar ---
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())

	return sb.String()
}

// renderLive renders the knob state header plus the newest events that fit.
func (m Model) renderLive(maxLines int) string {
	var sb strings.Builder

	if m.haveKnob {
		sb.WriteString(labelStyle.Render("position"))
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.knob.CurrentPosition)))
		sb.WriteString("  ")
		sb.WriteString(labelStyle.Render("sub"))
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%+.3f", m.knob.SubPositionUnit)))
		sb.WriteString("  ")
		sb.WriteString(labelStyle.Render("press nonce"))
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.knob.PressNonce)))
	} else {
		sb.WriteString(dimStyle.Render("waiting for knob state…"))
	}
	sb.WriteString("\n\n")

	if len(m.events) == 0 {
		sb.WriteString(dimStyle.Render("no messages yet"))
		return sb.String()
	}

	// Newest events last, trimmed to what the pane can show.
	feedLines := maxLines - 3
	if feedLines < 1 {
		feedLines = 1
	}
	start := len(m.events) - feedLines
	if start < 0 {
		start = 0
	}
	for _, ev := range m.events[start:] {
		line := fmt.Sprintf("%s  %s", ev.at.Format("15:04:05.000"), ev.text)
		if ev.isLog {
			sb.WriteString(logEventStyle.Render(line))
		} else {
			sb.WriteString(eventStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderStats renders the counter table.
func (m Model) renderStats() string {
	s := m.stats
	rows := []struct {
		label string
		value uint64
	}{
		{"messages sent", s.MessagesSent},
		{"messages received", s.MessagesReceived},
		{"acks received", s.AcksReceived},
		{"retries", s.Retries},
		{"crc errors", s.CRCErrors},
		{"frame errors", s.FrameErrors},
		{"protocol errors", s.ProtocolErrors},
		{"queue overflows", s.QueueOverflows},
		{"delivery failures", s.DeliveryFailures},
		{"dropped deliveries", s.Dropped},
		{"log messages", s.LogMessages},
		{"knob messages", s.KnobMessages},
		{"other messages", s.OtherMessages},
	}

	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(labelStyle.Width(20).Render(r.label))
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%d", r.value)))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderStatus renders the bottom status bar line.
func (m Model) renderStatus() string {
	parts := []string{
		fmt.Sprintf("device: %s", m.device),
		fmt.Sprintf("engine: %s", m.eng.State()),
	}
	if m.streamClosed {
		parts = append(parts, "stream closed")
	}
	parts = append(parts, "q: quit  tab: next tab  c: clear stats")
	return statusBarStyle.Render(strings.Join(parts, "  |  "))
}

// clipLines limits the string s to at most maxLines newline-delimited lines.
func clipLines(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n")
}
