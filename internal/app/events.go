package app

// EventType discriminates the stream event union coming from the agent
// endpoint. Unknown values are preserved so the consumer can log and skip.
type EventType string

const (
	EventStart         EventType = "start"
	EventStatus        EventType = "status"
	EventToken         EventType = "token"
	EventPhaseChange   EventType = "phase_change"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventMetadata      EventType = "metadata"
	EventPhaseComplete EventType = "phase_complete"
	EventDone          EventType = "done"
	EventError         EventType = "error"
)

// Phase tags a stream event with the agent phase that produced it. Only
// worksheet-generation turns carry phase tags; doubt-clearance events leave
// it empty.
type Phase string

const (
	PhaseResearch   Phase = "research"
	PhaseGeneration Phase = "generation"
)

// FlowType selects the conversation flow for a chat session.
type FlowType string

const (
	FlowDoubtClearance      FlowType = "doubt_clearance"
	FlowWorksheetGeneration FlowType = "worksheet_generation"
)

func ParseFlow(s string) (FlowType, bool) {
	switch FlowType(s) {
	case FlowDoubtClearance, FlowWorksheetGeneration:
		return FlowType(s), true
	}
	return "", false
}

// StreamEvent is one decoded frame of the agent event stream.
type StreamEvent struct {
	Type     EventType      `json:"type"`
	Content  string         `json:"content,omitempty"`
	Phase    Phase          `json:"phase,omitempty"`
	Tool     string         `json:"tool,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Terminal reports whether the event ends the turn's stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
