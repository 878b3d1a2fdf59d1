package app

import (
	"io"
	"reflect"
	"testing"
	"time"
)

func TestReconcileHistoryMapsRoles(t *testing.T) {
	now := time.Now()
	records := []HistoryRecord{
		{Role: "user", Content: "explain photosynthesis", Timestamp: now},
		{Role: "agent", Content: "Plants convert light", FlowType: FlowDoubtClearance, Timestamp: now},
		{Role: "router", Content: "routing note", Timestamp: now},
	}

	msgs := ReconcileHistory(records)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "explain photosynthesis" {
		t.Fatalf("user message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "Plants convert light" {
		t.Fatalf("agent message: %+v", msgs[1])
	}
	// Non-user roles all replay as assistant entries.
	if msgs[2].Role != RoleAssistant {
		t.Fatalf("router role mapped to %q", msgs[2].Role)
	}
	if msgs[1].Phases != nil {
		t.Fatal("doubt clearance replay must not carry phases")
	}
}

func TestReconcileHistoryRebuildsWorksheetPhases(t *testing.T) {
	records := []HistoryRecord{
		{
			Role:       "agent",
			FlowType:   FlowWorksheetGeneration,
			Research:   "Found 3 sources",
			Generation: "# Worksheet",
			Metadata: map[string]any{
				"research": map[string]any{
					"search_queries": []any{"photosynthesis basics"},
					"sources":        []any{"https://example.edu/bio"},
				},
				"generation": map[string]any{
					"artifact": "worksheet.pdf",
				},
			},
		},
	}

	msgs := ReconcileHistory(records)
	msg := msgs[0]
	if msg.Phases == nil || msg.Phases.Research == nil || msg.Phases.Generation == nil {
		t.Fatalf("phases missing: %+v", msg.Phases)
	}
	if msg.Phases.Research.Text != "Found 3 sources" {
		t.Fatalf("research = %q", msg.Phases.Research.Text)
	}
	if !reflect.DeepEqual(msg.Phases.Research.SearchQueries, []string{"photosynthesis basics"}) {
		t.Fatalf("search queries = %v", msg.Phases.Research.SearchQueries)
	}
	if msg.Phases.Generation.Artifact != "worksheet.pdf" {
		t.Fatalf("artifact = %q", msg.Phases.Generation.Artifact)
	}
	// Empty persisted content falls back to the generation text.
	if msg.Content != "# Worksheet" {
		t.Fatalf("content = %q", msg.Content)
	}
}

// A replayed worksheet message must be indistinguishable from the message
// the live stream finalizes for the same turn.
func TestReplayMatchesLiveFinalization(t *testing.T) {
	opener := &fakeOpener{}
	s := NewSession("chat-1", "class-1", "subject-1", FlowWorksheetGeneration, opener, NewLogger(io.Discard))
	turn := mustSend(t, s, "make a worksheet")

	researchMeta := map[string]any{
		"search_queries": []any{"photosynthesis basics"},
		"sources":        []any{"https://example.edu/bio"},
	}
	for _, ev := range []StreamEvent{
		{Type: EventPhaseChange, Phase: PhaseResearch},
		{Type: EventToken, Phase: PhaseResearch, Content: "Found 3 sources"},
		{Type: EventMetadata, Phase: PhaseResearch, Metadata: researchMeta},
		{Type: EventPhaseComplete, Phase: PhaseResearch},
		{Type: EventToken, Phase: PhaseGeneration, Content: "# Worksheet"},
		{Type: EventDone},
	} {
		s.Apply(turn.ID, ev)
	}
	live := s.Messages()[1]

	replayed := ReconcileHistory([]HistoryRecord{{
		Role:       "agent",
		FlowType:   FlowWorksheetGeneration,
		Research:   "Found 3 sources",
		Generation: "# Worksheet",
		Metadata:   map[string]any{"research": researchMeta},
	}})[0]

	if !reflect.DeepEqual(live.Phases.Research, replayed.Phases.Research) {
		t.Fatalf("research diverged:\nlive:     %+v\nreplayed: %+v", live.Phases.Research, replayed.Phases.Research)
	}
	if live.Phases.Generation.Text != replayed.Phases.Generation.Text {
		t.Fatalf("generation diverged: %q vs %q", live.Phases.Generation.Text, replayed.Phases.Generation.Text)
	}
	if live.Content != replayed.Content {
		t.Fatalf("content diverged: %q vs %q", live.Content, replayed.Content)
	}
}

func TestReconcileHistoryEmptyLog(t *testing.T) {
	if msgs := ReconcileHistory(nil); len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}
