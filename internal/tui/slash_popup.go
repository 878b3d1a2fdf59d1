package tui

import (
	"strings"

	"sudar-cli/internal/app"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

type slashPopupItem struct {
	Label       string
	Description string
	InsertText  string
}

func (m *MainModel) updateSlashPopupState() {
	key, items := m.slashPopupState()
	if key != m.slashPopupKey {
		m.slashPopupKey = key
		m.slashPopupIndex = 0
	}
	if len(items) == 0 {
		m.slashPopupIndex = 0
		return
	}
	if m.slashPopupIndex < 0 {
		m.slashPopupIndex = 0
	}
	if m.slashPopupIndex >= len(items) {
		m.slashPopupIndex = len(items) - 1
	}
}

func (m *MainModel) slashPopupItems() []slashPopupItem {
	_, items := m.slashPopupState()
	return items
}

func (m *MainModel) slashPopupState() (key string, items []slashPopupItem) {
	raw := strings.TrimLeft(m.input.Value(), " \t")
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return "", nil
	}
	if strings.ContainsAny(raw, "\n\r") {
		return "", nil
	}

	trimmed := strings.TrimSpace(raw)
	hasSpace := strings.ContainsAny(raw, " \t")
	endsWithSpace := strings.HasSuffix(raw, " ") || strings.HasSuffix(raw, "\t")
	parts := strings.Fields(trimmed)
	if len(parts) == 0 {
		return "", nil
	}

	cmdToken := parts[0]
	if cmdToken == "/" {
		cmdToken = ""
	}

	baseCommands := []slashPopupItem{
		{Label: "/new", Description: "start a fresh conversation", InsertText: "/new"},
		{Label: "/chat", Description: "open a saved conversation", InsertText: "/chat "},
		{Label: "/flow", Description: "switch conversation flow", InsertText: "/flow "},
		{Label: "/upload", Description: "ingest a document", InsertText: "/upload "},
		{Label: "/docs", Description: "documents panel", InsertText: "/docs"},
		{Label: "/help", Description: "keys and commands", InsertText: "/help"},
	}

	if len(parts) == 1 && !hasSpace {
		prefix := strings.ToLower(cmdToken)
		key = "cmd:" + prefix
		for _, cmd := range baseCommands {
			if strings.HasPrefix(strings.ToLower(cmd.Label), prefix) {
				items = append(items, cmd)
			}
		}
		return key, items
	}

	if strings.EqualFold(cmdToken, "/flow") && (len(parts) == 2 || (len(parts) == 1 && endsWithSpace)) {
		argPrefix := ""
		if len(parts) == 2 {
			argPrefix = strings.ToLower(parts[1])
		}
		key = "flow:" + argPrefix

		opts := []struct {
			value app.FlowType
			desc  string
		}{
			{value: app.FlowDoubtClearance, desc: "conversational Q&A"},
			{value: app.FlowWorksheetGeneration, desc: "research + worksheet"},
		}
		for _, opt := range opts {
			if argPrefix == "" || strings.HasPrefix(string(opt.value), argPrefix) {
				items = append(items, slashPopupItem{
					Label:       string(opt.value),
					Description: opt.desc,
					InsertText:  "/flow " + string(opt.value),
				})
			}
		}
		return key, items
	}

	return "", nil
}

// completeSlashPopup replaces the input with the selected completion.
func (m *MainModel) completeSlashPopup() bool {
	items := m.slashPopupItems()
	if len(items) == 0 {
		return false
	}
	idx := m.slashPopupIndex
	if idx < 0 || idx >= len(items) {
		idx = 0
	}
	m.input.SetValue(items[idx].InsertText)
	m.input.CursorEnd()
	m.updateSlashPopupState()
	return true
}

func (m *MainModel) moveSlashPopup(delta int) bool {
	items := m.slashPopupItems()
	if len(items) == 0 {
		return false
	}
	m.slashPopupIndex += delta
	if m.slashPopupIndex < 0 {
		m.slashPopupIndex = len(items) - 1
	}
	if m.slashPopupIndex >= len(items) {
		m.slashPopupIndex = 0
	}
	return true
}

func (m *MainModel) renderSlashPopup(width int) string {
	items := m.slashPopupItems()
	if len(items) == 0 {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent)
	hintStyle := lipgloss.NewStyle().Foreground(m.theme.TextMuted)
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent2)
	labelStyle := lipgloss.NewStyle().Foreground(m.theme.TextPrimary)
	descStyle := lipgloss.NewStyle().Foreground(m.theme.TextMuted)

	idx := m.slashPopupIndex
	if idx < 0 || idx >= len(items) {
		idx = 0
	}

	labelW := 24
	if width > 0 && labelW > width/2 {
		labelW = width / 2
	}
	if labelW < 10 {
		labelW = 10
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("commands"))
	b.WriteString(" ")
	b.WriteString(hintStyle.Render("↑/↓ select · tab complete"))
	b.WriteString("\n")

	for i, item := range items {
		prefix := "  "
		style := labelStyle
		if i == idx {
			prefix = "› "
			style = activeStyle
		}
		label := truncate.StringWithTail(item.Label, uint(labelW), "…")
		descW := width - 4 - labelW
		if descW < 0 {
			descW = 0
		}
		desc := truncate.StringWithTail(item.Description, uint(descW), "…")
		line := prefix + style.Render(label)
		if strings.TrimSpace(desc) != "" {
			line += " " + descStyle.Render(desc)
		}
		b.WriteString(line)
		if i < len(items)-1 {
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Padding(0, 1).
		Width(width).
		Render(b.String())
}
