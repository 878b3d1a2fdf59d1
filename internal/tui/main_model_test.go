package tui

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"sudar-cli/internal/app"
)

type stubOpener struct{}

func (stubOpener) OpenStream(ctx context.Context, req app.StreamRequest) (<-chan app.StreamEvent, error) {
	events := make(chan app.StreamEvent)
	close(events)
	return events, nil
}

func newTestModel(t *testing.T) *MainModel {
	t.Helper()
	logger := app.NewLogger(io.Discard)
	application := &app.Application{
		Config:   app.DefaultConfig(),
		Logger:   logger,
		Platform: app.NewPlatformClient("http://unused", "", "teacher-1", nil, logger),
		Tracker:  app.NewIngestionJobTracker(nil, logger, time.Hour, 1),
	}
	session := app.NewSession("chat-1", "class-1", "subject-1", app.FlowDoubtClearance, stubOpener{}, logger)
	m := NewMainModel(application, session)
	m.notices = nil
	return m
}

func lastNotice(t *testing.T, m *MainModel) notice {
	t.Helper()
	if len(m.notices) == 0 {
		t.Fatal("no notice pushed")
	}
	return m.notices[len(m.notices)-1]
}

func TestUnknownCommandPushesErrorNotice(t *testing.T) {
	m := newTestModel(t)
	m.handleCommand("/frobnicate")

	n := lastNotice(t, m)
	if !n.IsErr || !strings.Contains(n.Text, "/frobnicate") {
		t.Fatalf("unexpected notice: %+v", n)
	}
}

func TestFlowCommandSwitchesFlow(t *testing.T) {
	m := newTestModel(t)
	m.handleCommand("/flow worksheet_generation")

	if m.session.Flow != app.FlowWorksheetGeneration {
		t.Fatalf("flow = %q", m.session.Flow)
	}
	if lastNotice(t, m).IsErr {
		t.Fatal("flow switch reported as error")
	}

	m.handleCommand("/flow essay")
	if !lastNotice(t, m).IsErr {
		t.Fatal("bad flow name must push an error notice")
	}
	if m.session.Flow != app.FlowWorksheetGeneration {
		t.Fatalf("bad flow name changed flow to %q", m.session.Flow)
	}
}

func TestNewCommandStartsFreshChat(t *testing.T) {
	m := newTestModel(t)
	old := m.session.ChatID
	m.handleCommand("/new")

	if m.session.ChatID == old || m.session.ChatID == "" {
		t.Fatalf("chat id not replaced: %q", m.session.ChatID)
	}
	if len(m.session.Messages()) != 0 {
		t.Fatal("fresh chat must start empty")
	}
}

func TestCommandArgumentsAreRequired(t *testing.T) {
	m := newTestModel(t)
	for _, cmd := range []string{"/chat", "/upload"} {
		m.handleCommand(cmd)
		if !lastNotice(t, m).IsErr {
			t.Fatalf("%s without argument must push an error notice", cmd)
		}
	}
}

func TestRenderLiveTurnEmptyWhenIdle(t *testing.T) {
	m := newTestModel(t)
	if got := m.renderLiveTurn(60); got != "" {
		t.Fatalf("idle live render = %q", got)
	}
}

func TestOneLineCollapsesAndTruncates(t *testing.T) {
	if got := oneLine("a\nb   c", 20); got != "a b c" {
		t.Fatalf("oneLine = %q", got)
	}
	if got := oneLine("abcdefgh", 5); got != "abcd…" {
		t.Fatalf("truncated = %q", got)
	}
	if got := oneLine("abc", 0); got != "" {
		t.Fatalf("zero width = %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("short"); got != "short" {
		t.Fatalf("shortID = %q", got)
	}
}
