package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/lisp-sessions/internal/application"
	"github.com/bnema/lisp-sessions/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	tabWidth = 2
	// minCodeWidth keeps narrow terminals from wrapping code one rune per row.
	minCodeWidth = 20
)

type RenderOptions struct {
	Now        time.Time
	Evaluation string
	// Width is the terminal width in cells. Zero leaves code lines unwrapped.
	Width int
}

func renderView(view application.SessionView, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Session " + string(view.Key)),
		s.header.Render("participants: " + participantsLabel(view.Participants)),
	}
	if age := formatAge(view.UpdatedAt, opts.Now); age != "" {
		lines = append(lines, s.header.Render("updated "+age))
	}
	lines = append(lines, balanceLine(view.Balance, s))

	lines = append(lines, s.section.Render(renderCode(view.Code, opts.Width, s)))

	if opts.Evaluation != "" {
		lines = append(lines, s.section.Render(renderEvaluation(opts.Evaluation, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func participantsLabel(participants []domain.ParticipantID) string {
	if len(participants) == 0 {
		return "none"
	}

	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func balanceLine(balance domain.Balance, s styles) string {
	if balance.IsBalanced() {
		return s.balanced.Render(balance.String())
	}
	return s.warning.Render(balance.String())
}

// renderCode prints each line with the index that deletes it, counted
// from the last line. With a positive width, lines wider than what the
// gutter leaves over continue on rows marked with ┆ and no index.
func renderCode(code string, width int, s styles) string {
	if code == "" {
		return s.empty.Render("No code yet.")
	}

	lines := strings.Split(code, "\n")
	digits := len(strconv.Itoa(len(lines) - 1))
	// digits, then " │ "
	bodyWidth := 0
	if width > 0 {
		bodyWidth = max(width-digits-3, minCodeWidth)
	}
	continuation := s.gutter.Render(strings.Repeat(" ", digits) + " ┆")

	rendered := make([]string, 0, len(lines))
	for i, line := range lines {
		index := len(lines) - 1 - i
		gutter := s.gutter.Render(fmt.Sprintf("%*d │", digits, index))
		for j, row := range wrapCodeLine(line, bodyWidth) {
			if j == 0 {
				rendered = append(rendered, gutter+" "+s.code.Render(row))
				continue
			}
			rendered = append(rendered, continuation+" "+s.code.Render(row))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func wrapCodeLine(line string, width int) []string {
	line = strings.ReplaceAll(line, "\t", strings.Repeat(" ", tabWidth))
	if width <= 0 || ansi.StringWidth(line) <= width {
		return []string{line}
	}
	return strings.Split(ansi.Hardwrap(line, width, true), "\n")
}

func renderEvaluation(evaluation string, s styles) string {
	body := strings.Split(strings.TrimSuffix(evaluation, "\n"), "\n")

	lines := make([]string, 0, len(body)+1)
	lines = append(lines, s.header.Render("evaluation:"))
	for _, line := range body {
		lines = append(lines, s.result.Render(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return ""
	}
	if now.IsZero() {
		return "at " + at.Format(time.RFC3339)
	}

	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return plural(int(elapsed/time.Minute), "minute") + " ago"
	case elapsed < 24*time.Hour:
		return plural(int(elapsed/time.Hour), "hour") + " ago"
	default:
		return plural(int(elapsed/(24*time.Hour)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
