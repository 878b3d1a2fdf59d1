package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sudar-cli/internal/app"
)

// wizard steps, in order.
const (
	stepPlatformURL = iota
	stepAgentURL
	stepToken
	stepTeacherID
	stepConfirm
)

var wizardSteps = []struct {
	Title       string
	Placeholder string
	Help        string
}{
	{"Platform URL", "http://localhost:8000", "The Sudar platform API (chats, documents, ingestion)."},
	{"Agent URL", "http://localhost:8001", "The conversational agent endpoint."},
	{"Auth token", "paste your token", "Bearer token for both services. Leave empty to use SUDAR_TOKEN."},
	{"Teacher ID", "teacher-…", "Your teacher account id on the platform."},
}

// SetupWizard walks through the connection settings and writes the config
// file. Used by `sudar init`.
type SetupWizard struct {
	step       int
	cfg        *app.Config
	configPath string
	statusMsg  string
	input      textinput.Model
	saved      bool
	done       bool
	width      int
	height     int
}

func NewSetupWizard(cfg *app.Config, configPath string) *SetupWizard {
	s := &SetupWizard{
		cfg:        cfg,
		configPath: configPath,
		input:      textinput.New(),
	}
	s.loadStep()
	s.input.Focus()
	return s
}

func (s *SetupWizard) Init() tea.Cmd {
	return textinput.Blink
}

// loadStep seeds the input with the config's current value for the step.
func (s *SetupWizard) loadStep() {
	s.input.Placeholder = wizardSteps[s.step].Placeholder
	switch s.step {
	case stepPlatformURL:
		s.input.SetValue(s.cfg.PlatformURL)
	case stepAgentURL:
		s.input.SetValue(s.cfg.AgentURL)
	case stepToken:
		s.input.SetValue(s.cfg.AuthToken)
	case stepTeacherID:
		s.input.SetValue(s.cfg.TeacherID)
	}
	s.input.CursorEnd()
}

func (s *SetupWizard) storeStep() {
	val := strings.TrimSpace(s.input.Value())
	switch s.step {
	case stepPlatformURL:
		if val != "" {
			s.cfg.PlatformURL = val
		}
	case stepAgentURL:
		if val != "" {
			s.cfg.AgentURL = val
		}
	case stepToken:
		s.cfg.AuthToken = val
	case stepTeacherID:
		s.cfg.TeacherID = val
	}
}

func (s *SetupWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			s.done = true
			return s, tea.Quit

		case "enter":
			if s.step < stepConfirm {
				s.storeStep()
				s.step++
				if s.step < stepConfirm {
					s.loadStep()
				}
				return s, nil
			}
			if err := app.SaveConfig(*s.cfg, s.configPath); err != nil {
				s.statusMsg = fmt.Sprintf("could not save: %v", err)
				return s, nil
			}
			s.saved = true
			s.done = true
			return s, tea.Quit

		case "up":
			if s.step > 0 {
				if s.step < stepConfirm {
					s.storeStep()
				}
				s.step--
				s.loadStep()
			}
			return s, nil

		default:
			if s.step < stepConfirm {
				s.input, cmd = s.input.Update(msg)
				return s, cmd
			}
		}

	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}

	return s, cmd
}

func (s *SetupWizard) View() string {
	if s.done {
		return ""
	}

	header := wizardHeaderStyle.Render(" sudar setup ")
	progress := wizardProgress(s.step)

	var body string
	if s.step < stepConfirm {
		step := wizardSteps[s.step]
		body = fmt.Sprintf("Step %d of %d: %s\n\n%s\n\n%s\n", s.step+1, stepConfirm+1, step.Title, step.Help, s.input.View())
	} else {
		token := s.cfg.AuthToken
		if len(token) > 8 {
			token = token[:4] + "…" + token[len(token)-4:]
		}
		if token == "" {
			token = "(from environment)"
		}
		body = fmt.Sprintf(`Step %d of %d: Confirm

  platform   %s
  agent      %s
  token      %s
  teacher    %s

Enter saves, ↑ goes back.
`, stepConfirm+1, stepConfirm+1, s.cfg.PlatformURL, s.cfg.AgentURL, token, s.cfg.TeacherID)
	}

	if s.statusMsg != "" {
		body += "\n" + wizardErrorStyle.Render(s.statusMsg) + "\n"
	}

	help := wizardHelpStyle.Render("↑ back  |  Enter confirm  |  Esc cancel")
	return header + "\n\n" + progress + "\n\n" + body + "\n" + help
}

func (s *SetupWizard) Saved() bool { return s.saved }

func wizardProgress(step int) string {
	total := stepConfirm + 1
	filled := (step + 1) * 40 / total
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", 40-filled)
	return wizardProgressStyle.Render(bar)
}

var (
	wizardHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#1f6feb")).
				Padding(0, 2)

	wizardProgressStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#4ECDC4"))

	wizardErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ff7a7a"))

	wizardHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)
