package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func collectEvents(t *testing.T, events <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("stream did not close, collected %d events", len(out))
		}
	}
}

func TestParseEventStreamDecodesFramesInOrder(t *testing.T) {
	raw := "data: {\"type\":\"start\"}\n\n" +
		": keep-alive comment\n" +
		"data: {\"type\":\"token\",\"content\":\"Plants\"}\n\n" +
		"data: {\"type\":\"token\",\"content\":\" convert light\"}\n\n" +
		"data: {\"type\":\"done\"}\n\n"

	var got []StreamEvent
	terminal := ParseEventStream(strings.NewReader(raw), NewLogger(io.Discard), func(ev StreamEvent) bool {
		got = append(got, ev)
		return true
	})

	if !terminal {
		t.Fatal("terminal event not reported")
	}
	want := []EventType{EventStart, EventToken, EventToken, EventDone}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, ev := range got {
		if ev.Type != want[i] {
			t.Fatalf("event %d type = %q, want %q", i, ev.Type, want[i])
		}
	}
	if got[1].Content+got[2].Content != "Plants convert light" {
		t.Fatalf("token contents = %q %q", got[1].Content, got[2].Content)
	}
}

func TestParseEventStreamSkipsMalformedFrames(t *testing.T) {
	raw := "data: {not json}\n\n" +
		"data: {\"content\":\"no type\"}\n\n" +
		"event: message\n" +
		"data: {\"type\":\"token\",\"content\":\"ok\"}\n\n" +
		"data: {\"type\":\"done\"}\n\n"

	var got []StreamEvent
	terminal := ParseEventStream(strings.NewReader(raw), NewLogger(io.Discard), func(ev StreamEvent) bool {
		got = append(got, ev)
		return true
	})

	if !terminal {
		t.Fatal("terminal event not reported")
	}
	if len(got) != 2 || got[0].Content != "ok" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestParseEventStreamReportsSilentClosure(t *testing.T) {
	raw := "data: {\"type\":\"token\",\"content\":\"partial\"}\n\n"

	terminal := ParseEventStream(strings.NewReader(raw), NewLogger(io.Discard), func(StreamEvent) bool { return true })
	if terminal {
		t.Fatal("closure without done/error must not count as terminal")
	}
}

func TestParseEventStreamStopsWhenEmitDeclines(t *testing.T) {
	raw := "data: {\"type\":\"token\",\"content\":\"a\"}\n\n" +
		"data: {\"type\":\"token\",\"content\":\"b\"}\n\n"

	var got int
	terminal := ParseEventStream(strings.NewReader(raw), NewLogger(io.Discard), func(StreamEvent) bool {
		got++
		return false
	})
	if terminal || got != 1 {
		t.Fatalf("terminal=%v emitted=%d", terminal, got)
	}
}

func TestOpenStreamDeliversEventsAndCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		var req StreamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Query != "explain photosynthesis" || req.FlowType != FlowDoubtClearance {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range []string{
			`{"type":"start"}`,
			`{"type":"token","content":"hi"}`,
			`{"type":"done"}`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", frame)
		}
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, "tok", NewLogger(io.Discard))
	events, err := client.OpenStream(context.Background(), StreamRequest{
		ChatID:   "chat-1",
		Query:    "explain photosynthesis",
		FlowType: FlowDoubtClearance,
	})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 3 || got[2].Type != EventDone {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestOpenStreamSynthesizesErrorOnSilentClosure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"partial\"}\n\n")
		// Connection drops here with no done or error frame.
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, "", NewLogger(io.Discard))
	events, err := client.OpenStream(context.Background(), StreamRequest{ChatID: "chat-1"})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	got := collectEvents(t, events)
	last := got[len(got)-1]
	if last.Type != EventError {
		t.Fatalf("last event = %+v, want synthesized error", last)
	}
}

func TestOpenStreamSynthesizesErrorOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewAgentClient(srv.URL, "", NewLogger(io.Discard))
	events, err := client.OpenStream(context.Background(), StreamRequest{ChatID: "chat-1"})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 1 || got[0].Type != EventError {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestOpenStreamSynthesizesErrorWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listens on this address anymore

	client := NewAgentClient(srv.URL, "", NewLogger(io.Discard))
	events, err := client.OpenStream(context.Background(), StreamRequest{ChatID: "chat-1"})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 1 || got[0].Type != EventError {
		t.Fatalf("unexpected events: %+v", got)
	}
}
