// Package transcript renders conversations, request history and challenge
// results for the terminal.
package transcript

import (
	"errors"
	"io"

	"github.com/bnema/ethai-cli/internal/application"
	"github.com/bnema/ethai-cli/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	render func(styles) (string, error)
	styles styles
	output string
	err    error
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output, m.err = m.render(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func run(render func(styles) (string, error)) (string, error) {
	p := tea.NewProgram(
		model{render: render, styles: newStyles()},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}
	if rendered.err != nil {
		return "", rendered.err
	}

	return rendered.View(), nil
}

func RenderSession(session domain.Session, opts RenderOptions) (string, error) {
	return run(func(s styles) (string, error) {
		return renderSession(session, opts, s)
	})
}

func RenderSessions(sessions []domain.Session, opts RenderOptions) (string, error) {
	return run(func(s styles) (string, error) {
		return renderSessions(sessions, opts, s), nil
	})
}

func RenderHistory(records []domain.TransactionRecord, opts RenderOptions) (string, error) {
	return run(func(s styles) (string, error) {
		return renderHistory(records, opts, s), nil
	})
}

func RenderChallenge(outcome application.ChallengeOutcome) (string, error) {
	return run(func(s styles) (string, error) {
		return renderChallenge(outcome, s), nil
	})
}
