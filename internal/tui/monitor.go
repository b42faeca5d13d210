package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/muurk/wifiguard/internal/api"
)

// historyLimit is how many transitions the monitor keeps on screen.
const historyLimit = 8

// Messages for async operations
type connectedMsg struct{ conn *websocket.Conn }
type connectFailedMsg struct{ err error }
type statusEventMsg struct{ status api.StatusResponse }
type streamClosedMsg struct{ err error }
type forceResultMsg struct{ err error }

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	ForceAP   key.Binding
	Reconnect key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ForceAP, k.Reconnect, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ForceAP, k.Reconnect, k.Quit},
	}
}

// transition is one history entry shown in the monitor.
type transition struct {
	at   time.Time
	mode string
}

// Model is the live monitor screen. It subscribes to the daemon's event
// stream and renders every mode change as it happens.
type Model struct {
	client *api.Client
	conn   *websocket.Conn

	status     *api.StatusResponse
	history    []transition
	connecting bool
	err        error
	notice     string

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    monitorKeyMap
}

// NewModel creates a monitor model for the given daemon.
func NewModel(client *api.Client) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	keys := monitorKeyMap{
		ForceAP: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "force AP mode"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	return Model{
		client:     client,
		connecting: true,
		Spinner:    s,
		Help:       help.New(),
		Keys:       keys,
	}
}

// Init starts the websocket subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.connect, m.Spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.conn != nil {
				_ = m.conn.Close()
			}
			return m, tea.Quit

		case "r":
			if m.conn != nil {
				_ = m.conn.Close()
				m.conn = nil
			}
			m.connecting = true
			m.err = nil
			return m, tea.Batch(m.connect, m.Spinner.Tick)

		case "f":
			m.notice = "requesting access point mode..."
			return m, m.forceAP
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case connectedMsg:
		m.connecting = false
		m.conn = msg.conn
		return m, waitForEvent(msg.conn)

	case connectFailedMsg:
		m.connecting = false
		m.err = msg.err

	case statusEventMsg:
		status := msg.status
		if m.status == nil || m.status.Mode != status.Mode {
			m.history = append(m.history, transition{at: time.Now(), mode: status.Mode})
			if len(m.history) > historyLimit {
				m.history = m.history[len(m.history)-historyLimit:]
			}
		}
		m.status = &status
		m.notice = ""
		return m, waitForEvent(m.conn)

	case streamClosedMsg:
		m.conn = nil
		m.err = msg.err

	case forceResultMsg:
		if msg.err != nil {
			m.notice = "force-AP request failed: " + msg.err.Error()
		} else {
			m.notice = "access point mode requested"
		}

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the monitor screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("WIFIGUARD MONITOR"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(m.client.BaseURL))
	b.WriteString("\n")

	switch {
	case m.connecting:
		b.WriteString(fmt.Sprintf("\n%s Connecting to daemon...\n", m.Spinner.View()))
	case m.err != nil:
		b.WriteString("\n")
		b.WriteString(DegradedBannerStyle.Render("✗ Event stream lost: " + m.err.Error()))
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render("Press r to reconnect"))
		b.WriteString("\n")
	case m.status != nil:
		b.WriteString(m.renderStatus())
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.Help.View(m.Keys)))
	return b.String()
}

func (m Model) renderStatus() string {
	st := m.status

	var box strings.Builder
	box.WriteString(LabelStyle.Render("Mode:      "))
	box.WriteString(ModeStyle(st.Mode).Render(st.Mode))
	if desc := ModeDescription(st.Mode); desc != "" {
		box.WriteString("\n")
		box.WriteString(LabelStyle.Render("           " + desc))
	}
	box.WriteString("\n")
	box.WriteString(LabelStyle.Render("Interface: "))
	box.WriteString(st.Interface)
	box.WriteString("\n")
	box.WriteString(LabelStyle.Render("Manager:   "))
	box.WriteString(st.Manager)
	if st.SSID != "" {
		box.WriteString("\n")
		box.WriteString(LabelStyle.Render("SSID:      "))
		box.WriteString(st.SSID)
	}
	if st.IPAddress != "" {
		box.WriteString("\n")
		box.WriteString(LabelStyle.Render("Address:   "))
		box.WriteString(st.IPAddress)
	}
	box.WriteString("\n")
	box.WriteString(LabelStyle.Render("Since:     "))
	box.WriteString(fmt.Sprintf("%s (%s ago)",
		st.Since.Format("15:04:05"),
		time.Since(st.Since).Round(time.Second)))

	var b strings.Builder
	b.WriteString(StatusBoxStyle.Render(box.String()))
	b.WriteString("\n")

	if st.Degraded {
		b.WriteString(DegradedBannerStyle.Render("⚠ DEGRADED: access point start is failing and being retried"))
		b.WriteString("\n")
	}

	if len(m.history) > 0 {
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render("Recent transitions"))
		b.WriteString("\n")
		for i := len(m.history) - 1; i >= 0; i-- {
			entry := m.history[i]
			line := fmt.Sprintf("%s  %s",
				entry.at.Format("15:04:05"),
				ModeStyle(entry.mode).Render(entry.mode))
			b.WriteString(HistoryEntryStyle.Render(line))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// connect dials the daemon's event stream.
func (m Model) connect() tea.Msg {
	conn, _, err := websocket.DefaultDialer.Dial(m.client.EventsURL(), nil)
	if err != nil {
		return connectFailedMsg{err: err}
	}
	return connectedMsg{conn: conn}
}

// forceAP asks the daemon to switch to access point mode.
func (m Model) forceAP() tea.Msg {
	return forceResultMsg{err: m.client.ForceAP()}
}

// waitForEvent blocks on the next status event from the stream.
func waitForEvent(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		var status api.StatusResponse
		if err := conn.ReadJSON(&status); err != nil {
			return streamClosedMsg{err: err}
		}
		return statusEventMsg{status: status}
	}
}

// Run starts the monitor against the given daemon and blocks until quit.
func Run(client *api.Client) error {
	program := tea.NewProgram(NewModel(client), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
