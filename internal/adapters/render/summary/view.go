package summary

import (
	"fmt"
	"math"
	"time"

	"github.com/bnema/job-launcher/internal/domain"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	// ShowStatusLines appends every received status line below the host table.
	ShowStatusLines bool
	BarWidth        int
}

func renderView(summary domain.SessionSummary, opts RenderOptions, s styles, bar progress.Model) string {
	lines := []string{
		s.title.Render("Launch Summary"),
		s.header.Render(fmt.Sprintf("session: %s", summary.ID)),
		stateLine(summary, s),
		s.detail.Render(fmt.Sprintf("job: %d instance(s) of %s", summary.Job.Instances, summary.Job.Executable)),
		ackLine(summary, s, bar),
	}

	if elapsed := summary.Elapsed(); elapsed > 0 {
		lines = append(lines, s.detail.Render(fmt.Sprintf("elapsed: %s", elapsed.Round(time.Millisecond))))
	}

	if len(summary.Hosts) == 0 {
		lines = append(lines, s.empty.Render("No hosts in session."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	hostLines := make([]string, 0, len(summary.Hosts))
	for _, host := range summary.Hosts {
		hostLines = append(hostLines, hostLine(host, s))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, hostLines...)))

	if opts.ShowStatusLines && len(summary.Statuses) > 0 {
		statusLines := make([]string, 0, len(summary.Statuses))
		for _, status := range summary.Statuses {
			line := fmt.Sprintf("host(%d) %s", status.Index, status.Line)
			if status.Duplicate {
				line += " " + s.empty.Render("(duplicate)")
			}
			statusLines = append(statusLines, s.detail.Render(line))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, statusLines...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func stateLine(summary domain.SessionSummary, s styles) string {
	label := fmt.Sprintf("state: %s", summary.State)
	if summary.Reason != "" {
		label += fmt.Sprintf(" (%s)", summary.Reason)
	}

	switch summary.State {
	case domain.StateCompleted:
		return s.ok.Render(label)
	case domain.StateCancelled, domain.StateFailed:
		return s.warning.Render(label)
	default:
		return s.detail.Render(label)
	}
}

func ackLine(summary domain.SessionSummary, s styles, bar progress.Model) string {
	unreachable := len(summary.Unreachable())
	meta := fmt.Sprintf("%d/%d acknowledged", summary.Acknowledged, summary.Active)
	if unreachable > 0 {
		meta += fmt.Sprintf(", %d unreachable", unreachable)
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderProgressBar(bar, summary.Acknowledged, summary.Active, s),
		" ",
		s.detail.Render(meta),
	)
}

func hostLine(host domain.HostSummary, s styles) string {
	name := s.host.Render(fmt.Sprintf("host(%d) %s", host.Index, host.Hostname))

	var state string
	switch {
	case !host.Connected:
		state = s.warning.Render("unreachable")
	case host.Acknowledged:
		state = s.ok.Render("acknowledged")
	case host.StartFailed:
		state = s.warning.Render("start failed")
	default:
		state = s.pending.Render("pending")
	}

	parts := []string{name, " ", state}
	if host.Address != "" {
		parts = append(parts, " ", s.empty.Render(host.Address))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

const defaultBarWidth = 24

func newAckBar(width int) progress.Model {
	if width == 0 {
		width = defaultBarWidth
	}

	bar := progress.New(progress.WithWidth(width), progress.WithoutPercentage(), progress.WithSolidFill("159"))
	bar.Full = '='
	bar.Empty = '-'
	bar.EmptyColor = "238"
	return bar
}

func renderProgressBar(bar progress.Model, done int, total int, s styles) string {
	if bar.Width <= 0 {
		return ""
	}

	fraction := 0.0
	if total > 0 {
		fraction = math.Min(float64(done)/float64(total), 1)
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		bar.ViewAs(fraction),
		s.barBracket.Render("]"),
	)
}
