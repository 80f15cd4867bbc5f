package ui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// PickerItem is one selectable command.
type PickerItem struct {
	Name        string
	Description string
}

type pickerModel struct {
	title    string
	items    []PickerItem
	cursor   int
	selected string
	quit     bool
}

func newPickerModel(title string, items []PickerItem) pickerModel {
	return pickerModel{title: title, items: items}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.items) > 0 {
			m.selected = m.items[m.cursor].Name
		}
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.quit = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(Bold(m.title))
	b.WriteString("\n\n")
	for i, item := range m.items {
		cursor := "  "
		name := item.Name
		if i == m.cursor {
			cursor = Accent("> ")
			name = Accent(name)
		}
		fmt.Fprintf(&b, "%s%-10s %s\n", cursor, name, Dim(item.Description))
	}
	b.WriteString("\n")
	b.WriteString(Dim("↑/↓ to move, enter to select, q to quit"))
	b.WriteString("\n")
	return b.String()
}

// Pick shows an interactive list and returns the chosen item's name, or ""
// when the user quits.
func Pick(title string, items []PickerItem, in io.Reader, out io.Writer) (string, error) {
	p := tea.NewProgram(newPickerModel(title, items), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("running command picker: %w", err)
	}
	m := final.(pickerModel)
	if m.quit {
		return "", nil
	}
	return m.selected, nil
}
