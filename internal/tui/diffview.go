package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ChamsBouzaiene/issuefix/internal/diff"
	"github.com/ChamsBouzaiene/issuefix/internal/stats"
)

// DiffModel is a pager over the files of a solution.
type DiffModel struct {
	title   string
	files   []diff.FileChange
	results []diff.Result
	summary stats.ChangeStats
	current int

	styles   Styles
	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

// NewDiffModel computes every file's diff up front. summary is rendered as
// given, so callers pass the backend's figures when they have them.
func NewDiffModel(title string, files []diff.FileChange, summary stats.ChangeStats, st Styles) DiffModel {
	results := make([]diff.Result, len(files))
	for i, fc := range files {
		results[i] = diff.ComputeChange(fc)
	}
	return DiffModel{
		title:   title,
		files:   files,
		results: results,
		summary: summary,
		styles:  st,
		width:   120,
		height:  30,
	}
}

func (m DiffModel) Init() tea.Cmd {
	return nil
}

func (m DiffModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "n", "right", "l":
			m.selectFile(m.current + 1)
			return m, nil
		case "shift+tab", "p", "left", "h":
			m.selectFile(m.current - 1)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		vh := m.height - lipgloss.Height(m.header()) - 1
		if vh < 1 {
			vh = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vh)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vh
		}
		m.viewport.SetContent(m.body())
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DiffModel) selectFile(i int) {
	if len(m.files) == 0 {
		return
	}
	m.current = (i + len(m.files)) % len(m.files)
	if m.ready {
		m.viewport.SetContent(m.body())
		m.viewport.GotoTop()
	}
}

func (m DiffModel) View() string {
	if !m.ready {
		return m.header() + "\n" + m.body()
	}
	footer := m.styles.Faint.Render(fmt.Sprintf("%3.f%%  tab/shift+tab: file  ↑/↓: scroll  q: quit", m.viewport.ScrollPercent()*100))
	return m.header() + "\n" + m.viewport.View() + "\n" + footer
}

func (m DiffModel) header() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(m.styles.Header.Render(m.title))
		b.WriteByte('\n')
	}
	b.WriteString(RenderStats(m.summary, m.styles))
	if len(m.files) == 0 {
		return b.String()
	}

	fc := m.files[m.current]
	r := m.results[m.current]
	b.WriteByte('\n')
	b.WriteString(m.styles.File.Render(fmt.Sprintf("[%d/%d] %s (%s)", m.current+1, len(m.files), fc.Filename, fc.Action)))
	b.WriteString("  ")
	b.WriteString(m.styles.Added.Render(fmt.Sprintf("+%d", r.Added)))
	b.WriteByte(' ')
	b.WriteString(m.styles.Removed.Render(fmt.Sprintf("-%d", r.Removed)))
	return b.String()
}

func (m DiffModel) body() string {
	if len(m.files) == 0 {
		return m.styles.Faint.Render("No file changes.")
	}
	return RenderSideBySide(m.results[m.current], m.width, m.styles)
}

// Plain renders every file without the pager, for non-interactive output.
func (m DiffModel) Plain() string {
	var b strings.Builder
	b.WriteString(RenderStats(m.summary, m.styles))
	for i, fc := range m.files {
		b.WriteString("\n\n")
		b.WriteString(m.styles.File.Render(fmt.Sprintf("%s (%s)", fc.Filename, fc.Action)))
		b.WriteByte('\n')
		b.WriteString(RenderSideBySide(m.results[i], m.width, m.styles))
	}
	return b.String()
}
