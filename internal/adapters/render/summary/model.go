package summary

import (
	"errors"
	"io"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final summary model type")

type summaryReadyMsg struct {
	summary domain.SessionSummary
}

type model struct {
	opts   RenderOptions
	styles styles
	ackBar progress.Model
	output string
}

func newModel(opts RenderOptions) model {
	return model{
		opts:   opts,
		styles: newStyles(),
		ackBar: newAckBar(opts.BarWidth),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ready, ok := msg.(summaryReadyMsg)
	if !ok {
		return m, nil
	}

	m.output = renderView(ready.summary, m.opts, m.styles, m.ackBar)
	return m, tea.Quit
}

func (m model) View() string {
	return m.output
}

// Render draws the session summary off-screen and returns the final frame.
// The launcher installs its own interrupt handling, so the program runs
// without a signal handler.
func Render(summary domain.SessionSummary, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)

	go p.Send(summaryReadyMsg{summary: summary})

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
