package session

import (
	"errors"
	"io"

	"github.com/bnema/lisp-sessions/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// codeReadyMsg asks for the session to be drawn without a width limit.
type codeReadyMsg struct{}

// model draws one session and quits. A tea.WindowSizeMsg fixes the width
// the code listing wraps at before drawing.
type model struct {
	session application.SessionView
	opts    RenderOptions
	styles  styles
	width   int
	output  string
}

func newModel(session application.SessionView, opts RenderOptions) model {
	return model{
		session: session,
		opts:    opts,
		styles:  newStyles(),
		width:   opts.Width,
	}
}

func (m model) Init() tea.Cmd {
	if m.width > 0 {
		width := m.width
		return func() tea.Msg {
			return tea.WindowSizeMsg{Width: width}
		}
	}
	return func() tea.Msg {
		return codeReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m.draw(), tea.Quit
	case codeReadyMsg:
		return m.draw(), tea.Quit
	default:
		return m, nil
	}
}

func (m model) draw() model {
	opts := m.opts
	opts.Width = m.width
	m.output = renderView(m.session, opts, m.styles)
	return m
}

func (m model) View() string {
	return m.output
}

// Render draws a session for the terminal. Code lines longer than
// opts.Width wrap under a continuation gutter; zero disables wrapping.
func Render(session application.SessionView, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(session, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := p.Run()
	if err != nil {
		return "", err
	}

	drawn, ok := final.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return drawn.View(), nil
}
