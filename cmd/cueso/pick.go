package main

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cueso/cueso/pkg/searchplay"
)

const skipOption = "None of these"

var (
	pickTitleStyle    = lipgloss.NewStyle().Bold(true)
	pickCursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	pickSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	pickDetailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pickHelpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginTop(1)
)

type pickKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

var pickKeys = pickKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
}

// pickService shows an interactive selector over the find_content matches and
// returns the chosen service name, or "" when the user declines.
func pickService(matches []searchplay.Match) (string, error) {
	p := tea.NewProgram(pickModel{
		title:   "Where should it play?",
		matches: matches,
	})

	model, err := p.Run()
	if err != nil {
		return "", err
	}

	pm := model.(pickModel)
	if !pm.selected || pm.cursor >= len(pm.matches) {
		return "", nil
	}
	return pm.matches[pm.cursor].ServiceName, nil
}

type pickModel struct {
	title    string
	matches  []searchplay.Match
	cursor   int
	selected bool
}

func (m pickModel) Init() tea.Cmd { return nil }

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	// The skip entry sits one past the last match.
	last := len(m.matches)

	switch {
	case key.Matches(keyMsg, pickKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, pickKeys.Down):
		if m.cursor < last {
			m.cursor++
		}
	case key.Matches(keyMsg, pickKeys.Select):
		m.selected = true
		return m, tea.Quit
	case key.Matches(keyMsg, pickKeys.Quit):
		return m, tea.Quit
	}

	return m, nil
}

func (m pickModel) View() string {
	rows := make([]string, 0, len(m.matches)+3)
	rows = append(rows, pickTitleStyle.Render(m.title), "")

	for i, match := range m.matches {
		rows = append(rows, m.renderRow(i, match.ServiceName, pickDetailStyle.Render(" ("+match.MediaType+")")))
	}
	rows = append(rows, m.renderRow(len(m.matches), skipOption, ""))

	rows = append(rows, pickHelpStyle.Render("↑/↓ move · enter select · esc cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

func (m pickModel) renderRow(i int, label, detail string) string {
	if m.cursor == i {
		return pickCursorStyle.Render("> ") + pickSelectedStyle.Render(label) + detail
	}
	return "  " + label + detail
}
