package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "focustrail/internal/modules/session/dto"
	"focustrail/internal/ui/components"
	"focustrail/internal/ui/theme"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type sessionPort interface {
	Start(ctx context.Context, target time.Duration, mode, label string) (sessiondto.StateOutput, error)
	End(ctx context.Context) (sessiondto.SessionOutput, error)
	Cancel(ctx context.Context) (sessiondto.StateOutput, error)
	Status(ctx context.Context) (sessiondto.StatusOutput, error)
	Events(ctx context.Context, since int64) ([]sessiondto.EventOutput, error)
	Sessions(ctx context.Context, limit, offset int) ([]sessiondto.SessionOutput, error)
}

const (
	pollInterval = time.Second
	defaultFocus = 25 * time.Minute
	defaultBreak = 5 * time.Minute
	logLines     = 8
	historyRows  = 6
	requestLimit = 2 * time.Second
)

var paletteHints = []string{
	"start <minutes> [label]",
	"stopwatch [label]",
	"break <minutes>",
	"end",
	"cancel",
	"refresh",
}

// ─── async messages ───────────────────────────────────────────────────────────

type pollMsg time.Time

type statusMsg struct {
	status sessiondto.StatusOutput
	err    error
}

type eventsMsg struct {
	events []sessiondto.EventOutput
	err    error
}

type historyMsg struct {
	sessions []sessiondto.SessionOutput
	err      error
}

type actionMsg struct {
	verb string
	err  error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Focus     key.Binding
	Stopwatch key.Binding
	Break     key.Binding
	End       key.Binding
	Cancel    key.Binding
	Refresh   key.Binding
	Help      key.Binding
	Palette   key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Focus:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start 25m focus")),
		Stopwatch: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "start stopwatch")),
		Break:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "start 5m break")),
		End:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end session")),
		Cancel:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel session")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette:   key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.End, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Focus, k.Stopwatch, k.Break},
		{k.End, k.Cancel, k.Refresh},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is a live view of the daemon. It polls status once a second and
// follows the event feed by sequence number.
type Model struct {
	session sessionPort

	keys     keyMap
	help     help.Model
	showHelp bool
	palette  components.Palette

	current  sessiondto.StatusOutput
	online   bool
	lastSeq  int64
	log      []string
	sessions []sessiondto.SessionOutput
	status   string
	width    int
	height   int
}

func NewModel(session sessionPort) Model {
	return Model{
		session: session,
		keys:    defaultKeys(),
		help:    help.New(),
		palette: components.NewPalette(paletteHints),
		status:  "connecting",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.statusCmd(), m.historyCmd(), pollCmd())
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 64))
		m.help.Width = m.width

	case pollMsg:
		return m, tea.Batch(m.statusCmd(), m.eventsCmd(), pollCmd())

	case statusMsg:
		if msg.err != nil {
			m.online = false
			m.status = msg.err.Error()
			return m, nil
		}
		if !m.online {
			m.status = "connected to daemon pid " + strconv.Itoa(msg.status.PID)
		}
		m.online = true
		m.current = msg.status

	case eventsMsg:
		if msg.err != nil {
			return m, nil
		}
		refresh := false
		for _, e := range msg.events {
			m.lastSeq = max(m.lastSeq, e.Seq)
			if e.Kind == "heartbeat" {
				continue
			}
			m.log = append(m.log, describeEvent(e))
			if e.Kind == "session-completed" {
				refresh = true
			}
		}
		if len(m.log) > logLines {
			m.log = m.log[len(m.log)-logLines:]
		}
		if refresh {
			return m, m.historyCmd()
		}

	case historyMsg:
		if msg.err == nil {
			m.sessions = msg.sessions
		}

	case actionMsg:
		if msg.err != nil {
			m.status = msg.verb + " failed: " + msg.err.Error()
		} else {
			m.status = msg.verb
		}
		return m, tea.Batch(m.statusCmd(), m.eventsCmd())

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
		case key.Matches(msg, m.keys.Palette):
			return m, m.palette.Open()
		case key.Matches(msg, m.keys.Focus):
			return m, m.run(command{verb: "start", mode: "countdown", target: defaultFocus})
		case key.Matches(msg, m.keys.Stopwatch):
			return m, m.run(command{verb: "start", mode: "stopwatch"})
		case key.Matches(msg, m.keys.Break):
			return m, m.run(command{verb: "start", mode: "break", target: defaultBreak})
		case key.Matches(msg, m.keys.End):
			return m, m.run(command{verb: "end"})
		case key.Matches(msg, m.keys.Cancel):
			return m, m.run(command{verb: "cancel"})
		case key.Matches(msg, m.keys.Refresh):
			return m, tea.Batch(m.statusCmd(), m.historyCmd())
		}
	}
	return m, nil
}

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	cmd, err := parseCommand(input)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if cmd.verb == "refresh" {
		return m, tea.Batch(m.statusCmd(), m.historyCmd())
	}
	return m, m.run(cmd)
}

// command is one parsed palette or key action.
type command struct {
	verb   string
	mode   string
	target time.Duration
	label  string
}

func parseCommand(input string) (command, error) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	rest := parts[1:]
	switch parts[0] {
	case "start", "break":
		mode, target := "countdown", defaultFocus
		if parts[0] == "break" {
			mode, target = "break", defaultBreak
		}
		if len(rest) > 0 {
			minutes, err := strconv.Atoi(rest[0])
			if err != nil || minutes <= 0 {
				return command{}, fmt.Errorf("usage: %s <minutes> [label]", parts[0])
			}
			target = time.Duration(minutes) * time.Minute
			rest = rest[1:]
		}
		return command{verb: "start", mode: mode, target: target, label: strings.Join(rest, " ")}, nil
	case "stopwatch":
		return command{verb: "start", mode: "stopwatch", label: strings.Join(rest, " ")}, nil
	case "end", "cancel", "refresh":
		return command{verb: parts[0]}, nil
	default:
		return command{}, fmt.Errorf("unknown command: %s", parts[0])
	}
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := m.renderHeader()
	footer := m.renderStatusBar()
	bodyH := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	var body string
	switch {
	case m.showHelp:
		body = lipgloss.NewStyle().Width(m.width).Height(bodyH).Render(m.help.View(m.keys))
	case m.palette.Visible():
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		half := max(m.width/2-2, 20)
		left := theme.PaneActive.Width(half).Render(m.renderTimer(half - 4))
		right := theme.Pane.Width(half).Render(m.renderLog() + "\n\n" + m.renderHistory())
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	state := theme.Bad.Render("offline")
	if m.online {
		state = theme.Good.Render("online") + theme.Muted.Render(" · "+m.current.Provider)
	}
	bar := theme.Title.Render("focustrail") + "  " + state
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderTimer(width int) string {
	st := m.current.State
	if !m.online || st.Phase == "" || st.Phase == "idle" {
		return theme.Title.Render("Idle") + "\n\n" + theme.Clock.Render("--:--") + "\n\n" +
			theme.Muted.Render("s focus · w stopwatch · b break")
	}

	var sb strings.Builder
	title := st.Mode
	if st.Label != "" {
		title += " · " + st.Label
	}
	sb.WriteString(theme.Title.Render(title) + "\n\n")
	if st.Mode == "stopwatch" {
		sb.WriteString(theme.Clock.Render(formatClock(st.ActiveMS)) + "\n\n")
	} else {
		sb.WriteString(theme.Clock.Render(formatClock(st.RemainingMS)) + "\n\n")
		sb.WriteString(progressBar(st.ActiveMS, st.TargetMS, width) + "\n\n")
	}
	c := m.current.Capture
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("readings %d · recognition %d/%d · failures %d",
		c.Readings, c.RecognitionRuns, c.RecognitionRuns+c.RecognitionSkips, c.Failures)))
	return sb.String()
}

func (m Model) renderLog() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Events"))
	if len(m.log) == 0 {
		sb.WriteString("\n" + theme.Muted.Render("nothing yet"))
	}
	for _, line := range m.log {
		sb.WriteString("\n" + line)
	}
	return sb.String()
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Recent sessions"))
	if len(m.sessions) == 0 {
		sb.WriteString("\n" + theme.Muted.Render("none"))
	}
	for i, s := range m.sessions {
		if i == historyRows {
			break
		}
		label := s.Label
		if label == "" {
			label = s.Mode
		}
		line := fmt.Sprintf("%s  %-10s %s  %s", s.StartedAt.Local().Format("01-02 15:04"), s.Status, formatClock(s.ActiveMS), label)
		if s.Status == "interrupted" {
			line = theme.Bad.Render(line)
		}
		sb.WriteString("\n" + line)
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	left := m.status
	right := theme.Muted.Render("?:help  :::command  q:quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

func describeEvent(e sessiondto.EventOutput) string {
	at := theme.Muted.Render(e.At.Local().Format("15:04:05"))
	switch e.Kind {
	case "session-completed":
		if e.Session != nil {
			return at + " " + theme.Good.Render("completed "+formatClock(e.Session.ActiveMS))
		}
		return at + " " + theme.Good.Render("completed")
	default:
		if e.State.Phase == "idle" {
			return at + " idle"
		}
		return at + " " + e.State.Phase + " " + e.State.Mode
	}
}

// formatClock renders milliseconds as mm:ss, or h:mm:ss from one hour.
func formatClock(ms int64) string {
	secs := max(ms, 0) / 1000
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func progressBar(done, total int64, width int) string {
	if width < 4 || total <= 0 {
		return ""
	}
	filled := int(min(done, total) * int64(width) / total)
	return theme.Hot.Render(strings.Repeat("█", filled)) + theme.Muted.Render(strings.Repeat("░", width-filled))
}

// ─── async commands ───────────────────────────────────────────────────────────

func pollCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func (m Model) statusCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestLimit)
		defer cancel()
		status, err := m.session.Status(ctx)
		return statusMsg{status: status, err: err}
	}
}

func (m Model) eventsCmd() tea.Cmd {
	since := m.lastSeq
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestLimit)
		defer cancel()
		events, err := m.session.Events(ctx, since)
		return eventsMsg{events: events, err: err}
	}
}

func (m Model) historyCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestLimit)
		defer cancel()
		sessions, err := m.session.Sessions(ctx, historyRows, 0)
		return historyMsg{sessions: sessions, err: err}
	}
}

// run executes a session action. End segments the session before returning,
// so it gets no request limit.
func (m Model) run(c command) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		switch c.verb {
		case "start":
			state, err := m.session.Start(ctx, c.target, c.mode, c.label)
			if err != nil {
				return actionMsg{verb: "start", err: err}
			}
			return actionMsg{verb: "started " + state.Mode}
		case "end":
			out, err := m.session.End(ctx)
			if err != nil && out.ID == "" {
				return actionMsg{verb: "end", err: err}
			}
			if err != nil {
				return actionMsg{verb: "ended " + formatClock(out.ActiveMS) + " (segmentation failed: " + err.Error() + ")"}
			}
			return actionMsg{verb: "ended " + formatClock(out.ActiveMS)}
		case "cancel":
			_, err := m.session.Cancel(ctx)
			if err != nil {
				return actionMsg{verb: "cancel", err: err}
			}
			return actionMsg{verb: "cancelled"}
		}
		return actionMsg{verb: c.verb, err: fmt.Errorf("unsupported action")}
	}
}
