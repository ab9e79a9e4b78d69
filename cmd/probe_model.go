package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/whitebunny-cli/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type sessionConnector interface {
	Connect(ctx context.Context, endpoint string) (domain.Session, error)
	State() domain.ConnectionState
}

type sessionOpenedMsg struct {
	session domain.Session
	err     error
}

var (
	probeSpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	probeStateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// probeModel spins while one session is opened and shows which handshake
// phase the transport is in.
type probeModel struct {
	spinner spinner.Model
	server  string
	stateOf func() domain.ConnectionState
	state   domain.ConnectionState
	open    tea.Cmd
	session domain.Session
	err     error
	done    bool
}

func newProbeModel(server string, stateOf func() domain.ConnectionState, open tea.Cmd) probeModel {
	return probeModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(probeSpinnerStyle)),
		server:  server,
		stateOf: stateOf,
		open:    open,
	}
}

func (m probeModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.open)
}

func (m probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.stateOf != nil {
			m.state = m.stateOf()
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case sessionOpenedMsg:
		m.done = true
		m.session = msg.session
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m probeModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s Connecting to %s %s", m.spinner.View(), m.server, probeStateStyle.Render("("+m.state.String()+")"))
}

// openSession connects transport to server behind a spinner on output.
func openSession(ctx context.Context, output io.Writer, transport sessionConnector, server string) (domain.Session, error) {
	open := func() tea.Msg {
		session, err := transport.Connect(ctx, server)
		return sessionOpenedMsg{session: session, err: err}
	}

	p := tea.NewProgram(
		newProbeModel(server, transport.State, open),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return domain.Session{}, err
	}

	result, ok := finalModel.(probeModel)
	if !ok {
		return domain.Session{}, fmt.Errorf("unexpected final probe model type %T", finalModel)
	}

	return result.session, result.err
}
