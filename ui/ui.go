// Package ui provides the read-aloud TUI: a rendered document view with a
// status bar tracking the speech session.
package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kittycrypto-gg/readaloud/speak"
)

const (
	ellipsis        = "…"
	defaultMaxWidth = 120
)

// voiceRing lists the voices the voice key cycles through. The configured
// voice is prepended when it is not already a member.
var voiceRing = []string{
	"en-US-JennyNeural",
	"en-US-GuyNeural",
	"en-GB-SoniaNeural",
	"en-GB-RyanNeural",
	"en-AU-NatashaNeural",
}

// NewProgram returns a new Tea program over the document and its speech
// session.
func NewProgram(cfg Config, content string, session *speak.Session) *tea.Program {
	log.Debug("starting ui", "glamour", cfg.GlamourEnabled, "mouse", cfg.EnableMouse)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, content, session), opts...)
}

type model struct {
	cfg     Config
	session *speak.Session
	content string
	keys    keyMap
	voices  []string

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	state    speak.StateType
	index    int
	total    int
	lastErr  error
	showHelp bool
}

func newModel(cfg Config, content string, session *speak.Session) model {
	snap := session.Snapshot()
	voices := voiceRing
	if snap.Voice != "" && !slices.Contains(voices, snap.Voice) {
		voices = append([]string{snap.Voice}, voices...)
	}
	return model{
		cfg:     cfg,
		session: session,
		content: content,
		keys:    defaultKeyMap(),
		voices:  voices,
		state:   snap.State,
		index:   snap.Index,
		total:   snap.Total,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-m.chromeHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - m.chromeHeight()
		}
		m.viewport.SetContent(m.render())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case speak.StateChangedMsg:
		m.state = msg.State
		if msg.State == speak.StatePlaying {
			m.lastErr = nil
		}
		return m, nil

	case speak.ParagraphChangedMsg:
		m.index = msg.Index
		m.total = msg.Total
		m.scrollToParagraph()
		return m, nil

	case speak.SessionErrorMsg:
		m.lastErr = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		_ = m.session.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		return m, speak.TogglePauseCmd(m.session)
	case key.Matches(msg, m.keys.Stop):
		return m, speak.StopCmd(m.session)
	case key.Matches(msg, m.keys.Next):
		return m, speak.NavigateCmd(m.session, 1)
	case key.Matches(msg, m.keys.Prev):
		return m, speak.NavigateCmd(m.session, -1)
	case key.Matches(msg, m.keys.Faster):
		return m, speak.AdjustRateCmd(m.session, 0.1)
	case key.Matches(msg, m.keys.Slower):
		return m, speak.AdjustRateCmd(m.session, -0.1)
	case key.Matches(msg, m.keys.Voice):
		return m, speak.CycleVoiceCmd(m.session, m.voices)
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	case key.Matches(msg, m.keys.ShowHelp):
		m.showHelp = !m.showHelp
		if m.ready {
			m.viewport.Height = m.height - m.chromeHeight()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(m.viewport.View())
	sb.WriteByte('\n')
	if m.showHelp {
		sb.WriteString(m.helpView())
		sb.WriteByte('\n')
	}
	sb.WriteString(m.statusBarView())
	return sb.String()
}

// chromeHeight is the number of rows below the viewport: the status bar,
// plus the help line when visible.
func (m model) chromeHeight() int {
	if m.showHelp {
		return statusBarHeight + 1
	}
	return statusBarHeight
}

// render converts the document for display, bounded to the viewport width.
func (m model) render() string {
	width := m.viewport.Width
	if max := int(m.cfg.GlamourMaxWidth); max > 0 && width > max {
		width = max
	}
	if width <= 0 {
		width = defaultMaxWidth
	}

	if !m.cfg.GlamourEnabled {
		return wordwrap.String(m.content, width)
	}

	style := m.cfg.GlamourStyle
	var styleOpt glamour.TermRendererOption
	if style == "" || style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	} else {
		styleOpt = glamour.WithStylePath(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		log.Debug("glamour init failed, falling back to plain text", "err", err)
		return wordwrap.String(m.content, width)
	}
	out, err := r.Render(m.content)
	if err != nil {
		log.Debug("glamour render failed, falling back to plain text", "err", err)
		return wordwrap.String(m.content, width)
	}
	return out
}

// scrollToParagraph keeps the viewport near the paragraph being spoken,
// positioned proportionally within the document.
func (m *model) scrollToParagraph() {
	if !m.ready || m.total <= 1 {
		return
	}
	scrollable := m.viewport.TotalLineCount() - m.viewport.Height
	if scrollable <= 0 {
		return
	}
	frac := float64(m.index) / float64(m.total-1)
	m.viewport.SetYOffset(int(frac * float64(scrollable)))
}

func (m model) statusBarView() string {
	snap := m.session.Snapshot()

	state := statusBarStateStyle(strings.ToUpper(snap.State.String()))
	progress := statusBarProgressStyle(fmt.Sprintf("¶ %d/%d", m.index+1, m.total))
	rate := statusBarNoteStyle(fmt.Sprintf(" %.1f× %s ", snap.Rate, snap.Voice))

	note := ""
	if m.lastErr != nil {
		note = statusBarErrorStyle(truncate.StringWithTail(m.lastErr.Error(), 48, ellipsis))
	} else if snap.Region != "" {
		note = statusBarNoteStyle(" " + snap.Region + " ")
	}

	scroll := statusBarNoteStyle(fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100))

	left := state + progress + rate + note
	padding := m.width - lipgloss.Width(left) - lipgloss.Width(scroll)
	if padding < 0 {
		padding = 0
	}
	return left + statusBarNoteStyle(strings.Repeat(" ", padding)) + scroll
}

func (m model) helpView() string {
	bindings := []key.Binding{
		m.keys.Toggle, m.keys.Stop, m.keys.Next, m.keys.Prev,
		m.keys.Faster, m.keys.Slower, m.keys.Voice, m.keys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, fmt.Sprintf("%s %s", b.Help().Key, b.Help().Desc))
	}
	return helpViewStyle.Render(strings.Join(parts, " • "))
}
