package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sudar-cli/internal/app"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusChat
)

// notice is a transient system line shown under the transcript: command
// feedback, ingestion progress, turn failures.
type notice struct {
	Text  string
	IsErr bool
	Time  time.Time
}

type spinMsg struct{}

type streamEventMsg struct {
	turnID string
	ev     app.StreamEvent
	ok     bool
}

type jobUpdateMsg struct {
	update app.JobUpdate
	ok     bool
}

type documentsMsg struct {
	set app.DocumentSet
	err error
}

type historyMsg struct {
	chatID   string
	messages []app.Message
	err      error
}

type uploadStartedMsg struct {
	jobID string
	file  string
	err   error
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type MainModel struct {
	app     *app.Application
	session *app.Session

	theme    Theme
	help     helpModel
	markdown *MarkdownRenderer

	width  int
	height int
	ready  bool

	focus focusArea

	input  textarea.Model
	chatVP viewport.Model

	showDocs bool
	docs     app.DocumentSet
	docsErr  string

	turn       *app.Turn
	notices    []notice
	spinnerPos int

	slashPopupKey   string
	slashPopupIndex int
}

func NewMainModel(application *app.Application, session *app.Session) *MainModel {
	ta := textarea.New()
	ta.Placeholder = "Ask, or type /help. Enter sends."
	ta.Focus()
	ta.CharLimit = 8000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false

	// Keep textarea styling minimal; we style the input container instead.
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()

	t := NewTheme()
	m := &MainModel{
		app:      application,
		session:  session,
		theme:    t,
		help:     newHelpModel(),
		markdown: NewMarkdownRenderer(t),
		width:    100,
		height:   30,
		focus:    focusInput,
		input:    ta,
	}

	m.pushNotice(fmt.Sprintf("sudar ready. chat %s, %s flow. /help for commands.",
		shortID(session.ChatID), session.Flow), false)

	if os.Getenv("SUDAR_SHOW_DOCS") == "1" {
		m.showDocs = true
	}

	return m
}

func (m *MainModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.waitJobUpdate()}
	if m.showDocs {
		cmds = append(cmds, m.fetchDocuments(false))
	}
	return tea.Batch(cmds...)
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(m.width)

		layout := m.computeLayout()
		if !m.ready {
			m.chatVP = viewport.New(layout.ChatW, layout.ChatH)
			m.chatVP.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.chatVP.Width = layout.ChatW
			m.chatVP.Height = layout.ChatH
		}
		m.input.SetWidth(max(10, layout.InputW))
		m.updateChatViewport()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.help.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.help.keys.Cancel):
			if m.session.State() == app.StateSending {
				m.session.Cancel()
				m.turn = nil
				m.pushNotice("turn cancelled.", false)
				m.updateChatViewport()
			}
			return m, nil

		case key.Matches(msg, m.help.keys.ToggleDocs):
			m.showDocs = !m.showDocs
			if m.showDocs {
				return m, m.fetchDocuments(false)
			}
			return m, nil

		case key.Matches(msg, m.help.keys.FocusNext):
			// Tab completes the command popup when it is open.
			if m.focus == focusInput && m.completeSlashPopup() {
				return m, nil
			}
			if m.focus == focusInput {
				m.focus = focusChat
				m.input.Blur()
			} else {
				m.focus = focusInput
				m.input.Focus()
			}
			return m, nil

		case key.Matches(msg, m.help.keys.Clear):
			m.notices = nil
			m.updateChatViewport()
			return m, nil

		case key.Matches(msg, m.help.keys.Enter):
			if m.focus != focusInput {
				return m, nil
			}
			return m, m.onEnter()

		case msg.Type == tea.KeyUp:
			if m.focus == focusInput && m.moveSlashPopup(-1) {
				return m, nil
			}
			if m.focus == focusChat {
				m.chatVP.LineUp(1)
				return m, nil
			}
		case msg.Type == tea.KeyDown:
			if m.focus == focusInput && m.moveSlashPopup(1) {
				return m, nil
			}
			if m.focus == focusChat {
				m.chatVP.LineDown(1)
				return m, nil
			}
		case msg.Type == tea.KeyPgUp:
			m.chatVP.ViewUp()
			return m, nil
		case msg.Type == tea.KeyPgDown:
			m.chatVP.ViewDown()
			return m, nil
		}

	case streamEventMsg:
		return m.onStreamEvent(msg)

	case jobUpdateMsg:
		return m.onJobUpdate(msg)

	case documentsMsg:
		if msg.err != nil {
			m.docsErr = msg.err.Error()
		} else {
			m.docs = msg.set
			m.docsErr = ""
		}
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.pushNotice("could not load chat: "+msg.err.Error(), true)
		} else {
			m.session.SwitchChat(msg.chatID, msg.messages)
			m.turn = nil
			m.pushNotice(fmt.Sprintf("opened chat %s (%d messages).", shortID(msg.chatID), len(msg.messages)), false)
		}
		m.updateChatViewport()
		m.chatVP.GotoBottom()
		return m, nil

	case uploadStartedMsg:
		if msg.err != nil {
			m.pushNotice("upload failed: "+msg.err.Error(), true)
		} else {
			m.pushNotice(fmt.Sprintf("ingesting %s (job %s)…", msg.file, shortID(msg.jobID)), false)
		}
		m.updateChatViewport()
		return m, nil

	case spinMsg:
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		if m.session.State() == app.StateSending {
			return m, m.spinTick()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.updateSlashPopupState()

	m.chatVP, cmd = m.chatVP.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *MainModel) View() string {
	if !m.ready {
		return "…"
	}

	layout := m.computeLayout()
	top := m.renderTopBar()
	main := m.renderMain(layout)
	input := m.renderInputArea(layout)
	footer := m.renderFooter()
	return lipgloss.JoinVertical(lipgloss.Left, top, main, input, footer)
}

func (m *MainModel) onEnter() tea.Cmd {
	val := strings.TrimSpace(m.input.Value())
	if val == "" {
		return nil
	}
	m.input.Reset()

	if strings.HasPrefix(val, "/") {
		cmd := m.handleCommand(val)
		m.updateChatViewport()
		m.chatVP.GotoBottom()
		return cmd
	}

	turn, err := m.session.Send(context.Background(), val)
	if err != nil {
		m.pushNotice(err.Error(), true)
		m.updateChatViewport()
		m.chatVP.GotoBottom()
		return nil
	}
	m.turn = turn
	m.spinnerPos = 0
	m.updateChatViewport()
	m.chatVP.GotoBottom()
	return tea.Batch(m.waitStreamEvent(), m.spinTick())
}

func (m *MainModel) handleCommand(val string) tea.Cmd {
	cmd, arg, _ := strings.Cut(val, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		m.pushNotice(m.help.View(), false)
		return nil

	case "/new":
		m.session.SwitchChat("", nil)
		m.turn = nil
		m.pushNotice("started chat "+shortID(m.session.ChatID)+".", false)
		return nil

	case "/chat":
		if arg == "" {
			m.pushNotice("usage: /chat <id>", true)
			return nil
		}
		return m.fetchHistory(arg)

	case "/flow":
		flow, ok := app.ParseFlow(arg)
		if !ok {
			m.pushNotice("usage: /flow doubt_clearance | worksheet_generation", true)
			return nil
		}
		if m.session.State() == app.StateSending {
			m.pushNotice("finish or cancel the current turn first.", true)
			return nil
		}
		m.session.Flow = flow
		m.pushNotice("flow set to "+string(flow)+".", false)
		return nil

	case "/upload":
		if arg == "" {
			m.pushNotice("usage: /upload <path>", true)
			return nil
		}
		return m.startUpload(arg)

	case "/docs":
		m.showDocs = true
		return m.fetchDocuments(true)

	default:
		m.pushNotice("unknown command "+cmd+". /help lists commands.", true)
		return nil
	}
}

func (m *MainModel) onStreamEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	if m.turn == nil || msg.turnID != m.turn.ID {
		return m, nil
	}
	if !msg.ok {
		// Channel closed; the terminal event already moved the session to idle.
		m.turn = nil
		m.updateChatViewport()
		return m, nil
	}

	switch m.session.Apply(msg.turnID, msg.ev) {
	case app.OutcomeFinalized:
		m.turn = nil
	case app.OutcomeFailed:
		m.turn = nil
		m.pushNotice("turn failed: "+msg.ev.Content, true)
	}
	m.updateChatViewport()
	m.chatVP.GotoBottom()

	if m.turn != nil {
		return m, m.waitStreamEvent()
	}
	return m, nil
}

func (m *MainModel) onJobUpdate(msg jobUpdateMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		return m, nil
	}

	job := msg.update.Job
	var cmds []tea.Cmd
	switch {
	case msg.update.Terminal && job.Status == app.JobCompleted:
		m.pushNotice(fmt.Sprintf("%s ingested.", job.FileName), false)
	case msg.update.Terminal:
		reason := job.Message
		if reason == "" {
			reason = string(job.Status)
		}
		m.pushNotice(fmt.Sprintf("%s ingestion failed: %s", job.FileName, reason), true)
	default:
		m.pushNotice(fmt.Sprintf("%s: %s", job.FileName, job.Status), false)
	}

	if msg.update.RefreshDocuments {
		m.app.Platform.InvalidateDocuments(m.docScope())
		if m.showDocs {
			cmds = append(cmds, m.fetchDocuments(true))
		}
	}
	m.updateChatViewport()
	cmds = append(cmds, m.waitJobUpdate())
	return m, tea.Batch(cmds...)
}

func (m *MainModel) waitStreamEvent() tea.Cmd {
	turn := m.turn
	return func() tea.Msg {
		if turn == nil {
			return nil
		}
		ev, ok := <-turn.Events
		return streamEventMsg{turnID: turn.ID, ev: ev, ok: ok}
	}
}

func (m *MainModel) waitJobUpdate() tea.Cmd {
	updates := m.app.Tracker.Updates()
	return func() tea.Msg {
		update, ok := <-updates
		return jobUpdateMsg{update: update, ok: ok}
	}
}

func (m *MainModel) fetchDocuments(force bool) tea.Cmd {
	scope := m.docScope()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		set, err := m.app.Platform.Documents(ctx, scope, force)
		return documentsMsg{set: set, err: err}
	}
}

func (m *MainModel) fetchHistory(chatID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		records, err := m.app.Platform.ChatHistory(ctx, chatID)
		if err != nil {
			return historyMsg{chatID: chatID, err: err}
		}
		return historyMsg{chatID: chatID, messages: app.ReconcileHistory(records)}
	}
}

func (m *MainModel) startUpload(path string) tea.Cmd {
	req := app.UploadRequest{
		Path:        path,
		ChatID:      m.session.ChatID,
		ClassroomID: m.session.ClassroomID,
		SubjectID:   m.session.SubjectID,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		jobID, err := m.app.Tracker.Register(ctx, req)
		return uploadStartedMsg{jobID: jobID, file: filepath.Base(path), err: err}
	}
}

func (m *MainModel) docScope() app.DocumentScope {
	return app.DocumentScope{
		ClassroomID: m.session.ClassroomID,
		SubjectID:   m.session.SubjectID,
		ChatID:      m.session.ChatID,
	}
}

func (m *MainModel) spinTick() tea.Cmd {
	d := 90 * time.Millisecond
	if os.Getenv("SUDAR_REDUCE_MOTION") == "1" {
		d = 250 * time.Millisecond
	}
	return tea.Tick(d, func(_ time.Time) tea.Msg { return spinMsg{} })
}

func (m *MainModel) pushNotice(text string, isErr bool) {
	m.notices = append(m.notices, notice{Text: text, IsErr: isErr, Time: time.Now()})
	if len(m.notices) > 50 {
		m.notices = m.notices[len(m.notices)-50:]
	}
}

type layoutInfo struct {
	TopH  int
	FootH int

	MainH int

	ChatW int
	ChatH int

	DocsW int
	DocsH int

	InputH int
	InputW int
}

func (m *MainModel) computeLayout() layoutInfo {
	top := 1
	foot := 1
	inputH := 3
	mainH := m.height - top - foot - inputH
	if mainH < 3 {
		mainH = 3
	}

	showDocs := m.showDocs && m.width >= 100
	chatW := m.width
	docsW := 0
	if showDocs {
		gap := 1
		chatW = int(float64(m.width-gap) * 0.66)
		if chatW < 50 {
			chatW = 50
		}
		docsW = m.width - gap - chatW
		if docsW < 30 {
			docsW = 30
			chatW = m.width - gap - docsW
		}
	}

	return layoutInfo{
		TopH: top, FootH: foot, MainH: mainH,
		ChatW: chatW, ChatH: mainH,
		DocsW: docsW, DocsH: mainH,
		InputH: inputH,
		InputW: chatW - 4,
	}
}

func (m *MainModel) renderTopBar() string {
	left := m.theme.TopBarTitle.Render("sudar") + " " +
		m.theme.TopBarBadge.Render(strings.ToUpper(string(m.session.Flow))) + " " +
		m.theme.TopBarMeta.Render("chat "+shortID(m.session.ChatID))

	var status string
	if m.session.State() == app.StateSending {
		text := m.session.StatusText()
		if text == "" {
			text = "Thinking…"
		}
		if p := m.session.ActivePhase(); p != "" {
			text = string(p) + ": " + text
		}
		status = m.theme.Spinner.Render(spinnerFrames[m.spinnerPos] + " " + text)
	} else {
		status = m.theme.TopBarMeta.Render("Ready")
	}
	right := m.theme.TopBarMeta.Render(time.Now().Format("15:04"))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	a := gap / 2
	b := gap - a
	return m.theme.TopBar.Render(left + strings.Repeat(" ", a) + status + strings.Repeat(" ", b) + right)
}

func (m *MainModel) renderFooter() string {
	hints := "Tab focus  Ctrl+D docs  Esc cancel  Ctrl+L clear  Ctrl+Q quit"
	if m.width < 80 {
		hints = "Ctrl+D docs  Esc cancel  Ctrl+Q quit"
	}
	return m.theme.Footer.Width(m.width).Render(hints)
}

func (m *MainModel) renderInputArea(l layoutInfo) string {
	box := m.theme.InputBox
	if m.focus == focusInput {
		box = m.theme.InputBoxF
	}
	input := box.Width(max(10, l.ChatW-2)).Render(m.input.View())
	if m.focus == focusInput {
		if popup := m.renderSlashPopup(max(24, l.ChatW-4)); popup != "" {
			return popup + "\n" + input
		}
	}
	return input
}

func (m *MainModel) renderMain(l layoutInfo) string {
	chatPane := m.renderChatPane(l)
	if l.DocsW > 0 {
		docsPane := m.renderDocsPane(l)
		sep := m.theme.PaneDivider.Render("│")
		return lipgloss.JoinHorizontal(lipgloss.Top, chatPane, sep, docsPane)
	}
	return chatPane
}

func (m *MainModel) renderChatPane(l layoutInfo) string {
	title := "Chat"
	if m.focus == focusChat {
		title = m.theme.PaneTitleF.Render(title)
	} else {
		title = m.theme.PaneTitle.Render(title)
	}
	box := m.theme.Pane
	if m.focus == focusChat {
		box = m.theme.PaneFocused
	}
	return box.Width(l.ChatW).Height(l.ChatH).Render(title + "\n" + m.chatVP.View())
}

func (m *MainModel) updateChatViewport() {
	chatWidth := m.computeLayout().ChatW - 2
	if chatWidth < 20 {
		chatWidth = 20
	}

	var b strings.Builder
	for _, msg := range m.session.Messages() {
		b.WriteString(m.renderMessage(msg, chatWidth))
		b.WriteString("\n\n")
	}
	if live := m.renderLiveTurn(chatWidth); live != "" {
		b.WriteString(live)
		b.WriteString("\n\n")
	}
	for _, n := range m.notices {
		style := m.theme.RoleSys
		if n.IsErr {
			style = m.theme.RoleErr
		}
		b.WriteString(style.Render("· ") + lipgloss.NewStyle().Foreground(m.theme.TextMuted).Width(chatWidth).Render(n.Text))
		b.WriteString("\n")
	}
	m.chatVP.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *MainModel) renderMessage(msg app.Message, width int) string {
	var roleStyle lipgloss.Style
	var roleLabel string
	switch msg.Role {
	case app.RoleUser:
		roleStyle = m.theme.RoleYou
		roleLabel = "YOU"
	default:
		roleStyle = m.theme.RoleAI
		roleLabel = "SUDAR"
	}

	header := roleStyle.Render(roleLabel) + " " + m.theme.TopBarMeta.Render(msg.CreatedAt.Format("15:04"))

	if msg.Role == app.RoleAssistant && msg.Phases != nil {
		return header + "\n" + m.renderWorksheet(msg, width)
	}

	var body string
	if msg.Role == app.RoleAssistant {
		body = m.markdown.Render(msg.Content, width)
	} else {
		body = lipgloss.NewStyle().Foreground(m.theme.TextPrimary).Width(width).Render(msg.Content)
	}
	return header + "\n" + body
}

// renderWorksheet shows the research summary folded above the generated
// worksheet, the way the web client stacks the two phase cards.
func (m *MainModel) renderWorksheet(msg app.Message, width int) string {
	var b strings.Builder

	if r := msg.Phases.Research; r != nil {
		b.WriteString(m.theme.PhaseDone.Render("✓ research"))
		b.WriteString("\n")
		b.WriteString(m.renderPhaseAux(r, width))
		if r.Text != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(m.theme.TextMuted).Width(width).Render(r.Text))
			b.WriteString("\n")
		}
	}
	if g := msg.Phases.Generation; g != nil {
		b.WriteString(m.theme.PhaseDone.Render("✓ generation"))
		if g.Artifact != "" {
			b.WriteString(" " + m.theme.PhaseAux.Render("→ "+g.Artifact))
		}
		b.WriteString("\n")
		b.WriteString(m.markdown.Render(g.Text, width))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *MainModel) renderPhaseAux(r *app.PhaseResult, width int) string {
	var b strings.Builder
	if len(r.SearchQueries) > 0 {
		b.WriteString(m.theme.PhaseAux.Render("  searched: "+oneLine(strings.Join(r.SearchQueries, ", "), width-12)) + "\n")
	}
	if len(r.Sources) > 0 {
		b.WriteString(m.theme.PhaseAux.Render(fmt.Sprintf("  %d sources", len(r.Sources))) + "\n")
	}
	for _, call := range r.ToolCalls {
		b.WriteString(m.theme.PhaseAux.Render("  ⚒ "+oneLine(call.Tool+" "+call.Input, width-6)) + "\n")
	}
	return b.String()
}

// renderLiveTurn shows the in-flight buffers below the transcript. Streaming
// text stays unstyled; markdown is rendered only once a message finalizes.
func (m *MainModel) renderLiveTurn(width int) string {
	if m.session.State() != app.StateSending {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.RoleAI.Render("SUDAR") + " " + m.theme.TopBarMeta.Render("streaming"))
	b.WriteString("\n")

	buffers := m.session.Live().Buffers()
	if len(buffers) == 0 {
		b.WriteString(m.theme.PhaseAux.Render("waiting for the agent…"))
		return b.String()
	}

	for _, buf := range buffers {
		if m.session.Flow == app.FlowWorksheetGeneration {
			marker := "… "
			style := m.theme.PhaseActive
			if buf.Complete {
				marker = "✓ "
				style = m.theme.PhaseDone
			}
			title := marker + string(buf.Name)
			if buf.Status != "" && !buf.Complete {
				title += " · " + buf.Status
			}
			b.WriteString(style.Render(title))
			b.WriteString("\n")
			b.WriteString(m.renderPhaseAux(buf.Result(), width))
		}
		if text := buf.Text(); text != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(m.theme.TextPrimary).Width(width).Render(text))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *MainModel) renderDocsPane(l layoutInfo) string {
	title := m.theme.PaneTitle.Render("Documents")
	inner := max(12, l.DocsW-4)

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	if m.docsErr != "" {
		b.WriteString(m.theme.JobErr.Render(oneLine(m.docsErr, inner)))
		b.WriteString("\n")
	}

	if jobs := m.app.Tracker.Jobs(); len(jobs) > 0 {
		b.WriteString(m.theme.PaneTitle.Render("ingesting"))
		b.WriteString("\n")
		for _, job := range jobs {
			line := fmt.Sprintf("%s %s", job.FileName, job.Status)
			b.WriteString(m.theme.JobNeutral.Render("  " + oneLine(line, inner)))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.theme.PaneTitle.Render("materials"))
	b.WriteString("\n")
	if len(m.docs.Inputs) == 0 {
		b.WriteString(m.theme.JobNeutral.Render("  none yet. /upload <path>"))
		b.WriteString("\n")
	}
	for _, doc := range m.docs.Inputs {
		b.WriteString(m.theme.JobOK.Render("  " + oneLine(doc.Name, inner)))
		b.WriteString("\n")
	}

	if len(m.docs.Outputs) > 0 {
		b.WriteString(m.theme.PaneTitle.Render("generated"))
		b.WriteString("\n")
		for _, doc := range m.docs.Outputs {
			b.WriteString(m.theme.JobOK.Render("  " + oneLine(doc.Name, inner)))
			b.WriteString("\n")
		}
	}

	return m.theme.Pane.Width(l.DocsW).Height(l.DocsH).Render(strings.TrimRight(b.String(), "\n"))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func oneLine(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
	if maxRunes <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 1 {
		return string(r[:maxRunes])
	}
	return string(r[:maxRunes-1]) + "…"
}
