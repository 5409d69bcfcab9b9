package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	orchestration "github.com/fortyoneai/omni-core/core"
)

type modeChangedMsg struct {
	From orchestration.Mode
	To   orchestration.Mode
}

type transcriptMsg struct {
	Speaker string
	Text    string
	Delta   bool
}

type replyEndedMsg struct{}

type actionMsg struct {
	Actuator string
	Detail   string
}

type streamErrorMsg struct{ Err error }

type chunksDroppedMsg struct{ Dropped int }

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	actionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle   = lipgloss.NewStyle().Faint(true)

	modeColors = map[orchestration.Mode]lipgloss.Color{
		orchestration.ModeIdle:             lipgloss.Color("8"),
		orchestration.ModeListening:        lipgloss.Color("10"),
		orchestration.ModeThinking:         lipgloss.Color("11"),
		orchestration.ModeSpeaking:         lipgloss.Color("12"),
		orchestration.ModeActing:           lipgloss.Color("13"),
		orchestration.ModeEmergencyStopped: lipgloss.Color("9"),
	}
)

// controlModel is the terminal control surface: a transcript viewport, a
// prompt line and the live session mode.
type controlModel struct {
	orchestrator *orchestration.Orchestrator

	viewport viewport.Model
	input    textinput.Model
	mode     orchestration.Mode
	lines    []string
	replying bool
	talking  bool
	width    int
	height   int
	ready    bool
}

func newControlModel(orchestrator *orchestration.Orchestrator) controlModel {
	input := textinput.New()
	input.Placeholder = "Type a prompt, Esc for emergency stop"
	input.Focus()

	return controlModel{
		orchestrator: orchestrator,
		input:        input,
		mode:         orchestrator.Mode(),
	}
}

func (m controlModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := msg.Height - 4
		if contentHeight < 1 {
			contentHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, contentHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = contentHeight
		}
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			m.orchestrator.EmergencyStop()
			m.appendLine(errorStyle.Render("EMERGENCY STOP"))
			return m, nil
		case tea.KeyTab:
			// Push-to-talk toggle.
			if m.talking {
				m.orchestrator.CloseInput()
				m.appendLine(helpStyle.Render("(mic released)"))
			} else {
				m.orchestrator.OpenInput()
				m.appendLine(helpStyle.Render("(mic open)"))
			}
			m.talking = !m.talking
			return m, nil
		case tea.KeyEnter:
			prompt := strings.TrimSpace(m.input.Value())
			if prompt != "" && m.mode != orchestration.ModeEmergencyStopped {
				m.orchestrator.SendText(prompt)
				m.appendLine(userStyle.Render("you: ") + prompt)
				m.input.Reset()
			}
			return m, nil
		}

	case modeChangedMsg:
		m.mode = msg.To
		return m, nil

	case transcriptMsg:
		if msg.Delta && m.replying && len(m.lines) > 0 {
			m.lines[len(m.lines)-1] += msg.Text
			m.refreshContent()
		} else {
			m.appendLine(agentStyle.Render(msg.Speaker+": ") + msg.Text)
			m.replying = msg.Delta
		}
		return m, nil

	case replyEndedMsg:
		m.replying = false
		return m, nil

	case actionMsg:
		m.appendLine(actionStyle.Render(fmt.Sprintf("[%s] %s", msg.Actuator, msg.Detail)))
		return m, nil

	case streamErrorMsg:
		m.appendLine(errorStyle.Render("stream: " + msg.Err.Error()))
		return m, nil

	case chunksDroppedMsg:
		m.appendLine(errorStyle.Render(fmt.Sprintf("dropped %d chunk(s) under backpressure", msg.Dropped)))
		return m, nil
	}

	var inputCmd, viewportCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewportCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewportCmd)
}

func (m *controlModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.replying = false
	m.refreshContent()
}

func (m *controlModel) refreshContent() {
	if !m.ready {
		return
	}
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	m.viewport.SetContent(wordwrap.String(strings.Join(m.lines, "\n"), width))
	m.viewport.GotoBottom()
}

func (m controlModel) View() string {
	if !m.ready {
		return "starting..."
	}

	badge := headerStyle.
		Background(modeColors[m.mode]).
		Foreground(lipgloss.Color("0")).
		Render(string(m.mode))
	header := lipgloss.JoinHorizontal(lipgloss.Center, badge, helpStyle.Render("  Tab: talk  Esc: stop  Ctrl+C: quit"))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View(),
	)
}
