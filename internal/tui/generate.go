package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ChamsBouzaiene/issuefix/internal/progress"
)

// StepMsg carries a progress step into the program.
type StepMsg progress.Step

// GenerateModel renders the decorative generation stages.
type GenerateModel struct {
	stages  []progress.Stage
	spinner spinner.Model
	step    progress.Step
	styles  Styles
	done    bool
	aborted bool
}

// NewGenerateModel creates a progress view over stages.
func NewGenerateModel(stages []progress.Stage, st Styles) GenerateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return GenerateModel{stages: stages, spinner: s, styles: st}
}

// Aborted reports whether the user quit before the request finished.
func (m GenerateModel) Aborted() bool {
	return m.aborted
}

func (m GenerateModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m GenerateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}

	case StepMsg:
		last := m.step.Index
		m.step = progress.Step(msg)
		if m.step.Done && m.step.Err != nil {
			m.step.Index = last
		}
		if m.step.Done {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	default:
		var cmd tea.Cmd
		if !m.done {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m GenerateModel) View() string {
	var b strings.Builder
	for i, st := range m.stages {
		switch {
		case (m.done && m.step.Err == nil) || i < m.step.Index:
			b.WriteString(m.styles.Success.Render("✓ " + st.Label))
		case i == m.step.Index && m.done:
			b.WriteString(m.styles.Error.Render("✗ " + st.Label))
		case i == m.step.Index:
			b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), st.Label))
		default:
			b.WriteString(m.styles.Faint.Render("  " + st.Label))
		}
		b.WriteByte('\n')
	}
	if m.done && m.step.Err != nil {
		b.WriteString(m.styles.Error.Render("Error: " + m.step.Err.Error()))
		b.WriteByte('\n')
	}
	return b.String()
}
