package app

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PhaseResult is the frozen form of a PhaseBuffer carried on a finalized
// Message.
type PhaseResult struct {
	Text          string
	SearchQueries []string
	Sources       []string
	ToolCalls     []ToolCall
	Artifact      string
}

// MessagePhases holds the per-phase payloads of a worksheet-generation reply.
// Either side may be nil when the agent skipped that phase.
type MessagePhases struct {
	Research   *PhaseResult
	Generation *PhaseResult
}

// Message is one finalized chat entry. User content is set once at send time;
// assistant messages are built exactly once, from the live buffers on done or
// from a persisted record on history load, and never mutated afterwards.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Phases    *MessagePhases
	Metadata  map[string]any
	CreatedAt time.Time
}
