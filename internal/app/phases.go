package app

import "strings"

// ToolCall records one tool invocation observed during a turn.
type ToolCall struct {
	Tool   string `json:"tool"`
	Input  string `json:"input,omitempty"`
	Result string `json:"result,omitempty"`
}

// PhaseBuffer accumulates one phase of an in-flight turn: the streamed text
// plus the structured fields reported alongside it. Text is append-only and
// freezes once the phase completes.
type PhaseBuffer struct {
	Name     Phase
	Complete bool

	Status        string
	SearchQueries []string
	Sources       []string
	ToolCalls     []ToolCall
	Artifact      string

	text strings.Builder
}

func (b *PhaseBuffer) Text() string {
	return b.text.String()
}

func (b *PhaseBuffer) appendText(s string) {
	if b.Complete {
		return
	}
	b.text.WriteString(s)
}

func (b *PhaseBuffer) applyMetadata(md map[string]any) {
	if q, ok := md["search_queries"]; ok {
		b.SearchQueries = append(b.SearchQueries, stringsFromAny(q)...)
	}
	if src, ok := md["sources"]; ok {
		b.Sources = append(b.Sources, stringsFromAny(src)...)
	}
	if calls, ok := md["tool_calls"]; ok {
		b.ToolCalls = append(b.ToolCalls, toolCallsFromAny(calls)...)
	}
	if a, ok := md["artifact"].(string); ok && a != "" {
		b.Artifact = a
	}
}

// Result snapshots the buffer into the immutable form carried on a finalized
// Message.
func (b *PhaseBuffer) Result() *PhaseResult {
	return &PhaseResult{
		Text:          b.Text(),
		SearchQueries: b.SearchQueries,
		Sources:       b.Sources,
		ToolCalls:     b.ToolCalls,
		Artifact:      b.Artifact,
	}
}

// PhaseAccumulator routes token, status, tool and metadata events into
// per-phase buffers. Events with no phase tag (doubt clearance) land in one
// implicit buffer named for the session's flow.
type PhaseAccumulator struct {
	flow    FlowType
	order   []Phase
	buffers map[Phase]*PhaseBuffer
}

func NewPhaseAccumulator(flow FlowType) *PhaseAccumulator {
	return &PhaseAccumulator{
		flow:    flow,
		buffers: map[Phase]*PhaseBuffer{},
	}
}

func (a *PhaseAccumulator) resolve(p Phase) *PhaseBuffer {
	if p == "" {
		p = Phase(a.flow)
	}
	b, ok := a.buffers[p]
	if !ok {
		b = &PhaseBuffer{Name: p}
		a.buffers[p] = b
		a.order = append(a.order, p)
	}
	return b
}

func (a *PhaseAccumulator) ApplyToken(p Phase, text string) {
	a.resolve(p).appendText(text)
}

func (a *PhaseAccumulator) ApplyStatus(p Phase, status string) {
	a.resolve(p).Status = status
}

func (a *PhaseAccumulator) ApplyToolCall(p Phase, call ToolCall) {
	b := a.resolve(p)
	b.ToolCalls = append(b.ToolCalls, call)
}

// ApplyToolResult attaches a result to the most recent unresolved tool call
// in the phase. A result with no matching call is kept as its own entry
// rather than dropped.
func (a *PhaseAccumulator) ApplyToolResult(p Phase, result string) {
	b := a.resolve(p)
	for i := len(b.ToolCalls) - 1; i >= 0; i-- {
		if b.ToolCalls[i].Result == "" {
			b.ToolCalls[i].Result = result
			return
		}
	}
	b.ToolCalls = append(b.ToolCalls, ToolCall{Result: result})
}

func (a *PhaseAccumulator) ApplyMetadata(p Phase, md map[string]any) {
	a.resolve(p).applyMetadata(md)
}

func (a *PhaseAccumulator) MarkPhaseComplete(p Phase) {
	a.resolve(p).Complete = true
}

// Buffer returns the named buffer, or nil if the phase never produced events.
func (a *PhaseAccumulator) Buffer(p Phase) *PhaseBuffer {
	if p == "" {
		p = Phase(a.flow)
	}
	return a.buffers[p]
}

// Buffers returns all buffers in first-seen order.
func (a *PhaseAccumulator) Buffers() []*PhaseBuffer {
	out := make([]*PhaseBuffer, 0, len(a.order))
	for _, p := range a.order {
		out = append(out, a.buffers[p])
	}
	return out
}

// JoinedText concatenates all buffers in first-seen order. Used to finalize
// single-buffer flows, where a stray phase tag must not lose text.
func (a *PhaseAccumulator) JoinedText() string {
	var b strings.Builder
	for _, p := range a.order {
		b.WriteString(a.buffers[p].Text())
	}
	return b.String()
}

func stringsFromAny(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	}
	return nil
}

func toolCallsFromAny(v any) []ToolCall {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]ToolCall, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		call := ToolCall{}
		if s, ok := m["tool"].(string); ok {
			call.Tool = s
		}
		if s, ok := m["input"].(string); ok {
			call.Input = s
		}
		if s, ok := m["result"].(string); ok {
			call.Result = s
		}
		out = append(out, call)
	}
	return out
}
