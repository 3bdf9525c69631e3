package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ChamsBouzaiene/issuefix/internal/diff"
	"github.com/ChamsBouzaiene/issuefix/internal/stats"
)

const gutterWidth = 5

// RenderSideBySide lays out a diff result in two panes of total width.
// Removed lines appear only on the left, added lines only on the right and
// unchanged lines on both, each side with its own line numbers.
func RenderSideBySide(r diff.Result, width int, st Styles) string {
	if width < 2*(gutterWidth+4)+3 {
		width = 2*(gutterWidth+4) + 3
	}
	pane := (width - 3) / 2
	sep := st.Border.Render(" │ ")

	rows := r.Rows()
	if len(rows) == 0 {
		return st.Faint.Render("(empty)")
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(cell(row.Old, pane, st))
		b.WriteString(sep)
		b.WriteString(cell(row.New, pane, st))
	}
	return b.String()
}

func cell(l *diff.Line, width int, st Styles) string {
	blank := lipgloss.NewStyle().Width(width).Render("")
	if l == nil {
		return blank
	}

	num := ""
	if l.Number > 0 {
		num = fmt.Sprintf("%d", l.Number)
	}
	gutter := st.Gutter.Render(fmt.Sprintf("%*s ", gutterWidth-1, num))

	style := st.Unchanged
	marker := " "
	switch l.Kind {
	case diff.KindAdded:
		style, marker = st.Added, "+"
	case diff.KindRemoved:
		style, marker = st.Removed, "-"
	}
	text := truncate(marker+" "+expandTabs(l.Content), width-gutterWidth)
	return gutter + style.Width(width-gutterWidth).Render(text)
}

// RenderStats is the one-line summary shown above a diff.
func RenderStats(cs stats.ChangeStats, st Styles) string {
	parts := []string{
		fmt.Sprintf("%d files", cs.FilesChanged),
		st.Added.Render(fmt.Sprintf("+%d", cs.LinesAdded)),
		st.Removed.Render(fmt.Sprintf("-%d", cs.LinesRemoved)),
		fmt.Sprintf("%d%% changed", cs.PercentageChanged),
	}
	if cs.NewFiles > 0 {
		parts = append(parts, fmt.Sprintf("%d new", cs.NewFiles))
	}
	if cs.DeletedFiles > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", cs.DeletedFiles))
	}
	return strings.Join(parts, "  ")
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return string(r[:w-1]) + "…"
}
