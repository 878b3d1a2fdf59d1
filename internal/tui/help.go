package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type helpModel struct {
	keys  keyMap
	width int
}

func newHelpModel() helpModel {
	return helpModel{
		keys:  defaultKeyMap(),
		width: 80,
	}
}

func (m *helpModel) SetWidth(width int) {
	m.width = width
}

// View returns the full help text shown in the chat pane on /help.
func (m helpModel) View() string {
	var b strings.Builder

	b.WriteString(helpTitleStyle.Render("sudar help"))
	b.WriteString("\n\n")

	b.WriteString(helpSectionStyle.Render("keys"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  send message\n", helpKeyStyle.Render("enter")))
	b.WriteString(fmt.Sprintf("  %s  cancel the running turn\n", helpKeyStyle.Render("esc")))
	b.WriteString(fmt.Sprintf("  %s  switch focus between input and chat\n", helpKeyStyle.Render("tab")))
	b.WriteString(fmt.Sprintf("  %s  toggle the documents panel\n", helpKeyStyle.Render("ctrl+d")))
	b.WriteString(fmt.Sprintf("  %s  quit\n", helpKeyStyle.Render("ctrl+q")))

	b.WriteString("\n")

	b.WriteString(helpSectionStyle.Render("commands"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /new             start a fresh conversation"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /chat <id>       open a saved conversation"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /flow <name>     doubt_clearance or worksheet_generation"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /upload <path>   send a document into ingestion"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /docs            show or refresh the documents panel"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /help            this text"))
	b.WriteString("\n")

	b.WriteString("\n")
	b.WriteString(helpFooterStyle.Render("ctrl+q quit | esc cancel | enter send"))

	return b.String()
}

type keyMap struct {
	Quit       key.Binding
	Enter      key.Binding
	Cancel     key.Binding
	FocusNext  key.Binding
	ToggleDocs key.Binding
	Clear      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("ctrl+q", "quit"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send message"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel turn"),
		),
		FocusNext: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch focus"),
		),
		ToggleDocs: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "documents panel"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear notices"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Cancel, k.FocusNext, k.ToggleDocs, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.Cancel, k.FocusNext, k.ToggleDocs, k.Clear, k.Quit},
	}
}

// Minimal transparent styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#BD93F9"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6"))

	helpDescriptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6272A4"))

	helpFooterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#44475A")).
			Italic(true)
)
