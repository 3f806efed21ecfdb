// Package tui renders the chat widget and its companion form in a terminal
// with bubbletea.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"financial-planner/internal/domain"
	"financial-planner/internal/widget"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	panelHeight   = 12
)

// dispatchMsg carries a callback onto the program goroutine.
type dispatchMsg struct{ fn func() }

// Model is a widget.View and widget.Dispatcher backed by a bubbletea
// program. It is used through a pointer so the widget and the program share
// one instance.
type Model struct {
	send func(tea.Msg)

	fields []formField
	focus  int

	chatInput  textinput.Model
	transcript viewport.Model
	lines      []string

	toggleVisible bool
	panelVisible  bool

	onToggle func()
	onClose  func()
	onSend   func()
	onSubmit func(widget.SubmitEvent)

	width  int
	height int
}

var (
	_ widget.View       = (*Model)(nil)
	_ widget.Dispatcher = (*Model)(nil)
)

func New() *Model {
	chat := textinput.New()
	chat.Placeholder = "Ask about your plan"
	chat.Prompt = "> "
	chat.CharLimit = 2000

	m := &Model{
		fields:     newFormFields(),
		chatInput:  chat,
		transcript: viewport.New(defaultWidth-4, panelHeight),
		width:      defaultWidth,
		height:     defaultHeight,
	}
	m.fields[0].input.Focus()
	return m
}

// Attach routes Dispatch through p. It must be called before p.Run.
func (m *Model) Attach(p *tea.Program) {
	m.send = p.Send
}

// Dispatch posts fn to the program. Callbacks sent after the program exits
// are dropped.
func (m *Model) Dispatch(fn func()) {
	if m.send == nil {
		return
	}
	m.send(dispatchMsg{fn: fn})
}

func (m *Model) OnToggleClick(fn func())                  { m.onToggle = fn }
func (m *Model) OnCloseClick(fn func())                   { m.onClose = fn }
func (m *Model) OnSend(fn func())                         { m.onSend = fn }
func (m *Model) OnFormSubmit(fn func(widget.SubmitEvent)) { m.onSubmit = fn }

func (m *Model) SetToggleVisible(visible bool) { m.toggleVisible = visible }

func (m *Model) SetPanelVisible(visible bool) {
	m.panelVisible = visible
	if visible {
		m.fields[m.focus].input.Blur()
		m.chatInput.Focus()
		return
	}
	m.chatInput.Blur()
	m.fields[m.focus].input.Focus()
}

func (m *Model) InputValue() string { return m.chatInput.Value() }

func (m *Model) ClearInput() { m.chatInput.Reset() }

// AppendMessage adds msg to the transcript. Escape sequences in the content
// are stripped so replies render as plain text.
func (m *Model) AppendMessage(msg domain.ChatMessage) {
	m.lines = append(m.lines, roleLabel(msg.Role)+" "+ansi.Strip(msg.Content))
	m.refreshTranscript()
}

func (m *Model) ScrollToBottom() { m.transcript.GotoBottom() }

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatchMsg:
		msg.fn()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = max(msg.Width-4, 10)
		m.chatInput.Width = max(msg.Width-8, 10)
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+o":
		if m.toggleVisible && m.onToggle != nil {
			m.onToggle()
		}
		return m, nil
	case "esc":
		if m.panelVisible && m.onClose != nil {
			m.onClose()
		}
		return m, nil
	case "ctrl+s":
		if m.onSubmit != nil {
			m.onSubmit(newFormSubmit(m.fields))
		}
		return m, nil
	}

	if m.panelVisible {
		switch msg.String() {
		case "enter":
			if m.onSend != nil {
				m.onSend()
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.chatInput, cmd = m.chatInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "tab", "down":
		m.moveFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil
	}
	var cmd tea.Cmd
	m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
	return m, cmd
}

func (m *Model) moveFocus(delta int) {
	m.fields[m.focus].input.Blur()
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	m.fields[m.focus].input.Focus()
}

func (m *Model) refreshTranscript() {
	wrap := lipgloss.NewStyle().Width(m.transcript.Width)
	rendered := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		rendered = append(rendered, wrap.Render(line))
	}
	m.transcript.SetContent(strings.Join(rendered, "\n"))
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Financial Planner"))
	b.WriteString("\n\n")

	for i, f := range m.fields {
		label := labelStyle
		if i == m.focus && !m.panelVisible {
			label = focusStyle
		}
		b.WriteString(label.Render(f.label))
		b.WriteString(f.input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.toggleVisible {
		b.WriteString(toggleStyle.Render("Chat with the planner assistant (ctrl+o)"))
		b.WriteString("\n")
	}

	if m.panelVisible {
		panel := lipgloss.JoinVertical(lipgloss.Left,
			m.transcript.View(),
			"",
			m.chatInput.View(),
		)
		b.WriteString(panelStyle.Width(max(m.width-2, 20)).Render(panel))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter send • pgup/pgdown scroll • ctrl+s save plan • esc close • ctrl+c quit"))
	} else {
		b.WriteString(helpStyle.Render("tab/shift+tab move • ctrl+s save plan • ctrl+c quit"))
	}
	return b.String()
}
