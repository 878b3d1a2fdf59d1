package app

import (
	"time"

	"github.com/google/uuid"
)

// HistoryRecord is one persisted entry from the chat-history endpoint: a
// flat chronological log where agent entries carry the flow type and, for
// worksheet generation, separate research and generation payloads.
type HistoryRecord struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	FlowType   FlowType       `json:"flow_type,omitempty"`
	Research   string         `json:"research,omitempty"`
	Generation string         `json:"generation,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ReconcileHistory replays persisted records into the exact Message shape
// the live path finalizes, auxiliary phase fields included, so rendering
// never distinguishes a replayed message from a just-finalized one.
func ReconcileHistory(records []HistoryRecord) []Message {
	msgs := make([]Message, 0, len(records))
	for _, rec := range records {
		if rec.Role == "user" {
			msgs = append(msgs, Message{
				ID:        uuid.NewString(),
				Role:      RoleUser,
				Content:   rec.Content,
				CreatedAt: rec.Timestamp,
			})
			continue
		}

		// Everything else (agent, researcher, generator, router) replays as
		// a single assistant entry.
		msg := Message{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Content:   rec.Content,
			Metadata:  rec.Metadata,
			CreatedAt: rec.Timestamp,
		}
		if rec.FlowType == FlowWorksheetGeneration {
			phases := &MessagePhases{}
			if rec.Research != "" || phaseMetadata(rec.Metadata, PhaseResearch) != nil {
				phases.Research = replayPhase(PhaseResearch, rec.Research, rec.Metadata)
			}
			if rec.Generation != "" || phaseMetadata(rec.Metadata, PhaseGeneration) != nil {
				phases.Generation = replayPhase(PhaseGeneration, rec.Generation, rec.Metadata)
			}
			msg.Phases = phases
			if msg.Content == "" {
				switch {
				case phases.Generation != nil && phases.Generation.Text != "":
					msg.Content = phases.Generation.Text
				case phases.Research != nil:
					msg.Content = phases.Research.Text
				}
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// replayPhase rebuilds a phase result through the same buffer type the live
// path uses, so both paths extract metadata identically.
func replayPhase(p Phase, text string, md map[string]any) *PhaseResult {
	b := &PhaseBuffer{Name: p}
	b.appendText(text)
	if sub := phaseMetadata(md, p); sub != nil {
		b.applyMetadata(sub)
	}
	return b.Result()
}

// phaseMetadata extracts the per-phase sub-map persisted under the phase
// name, e.g. metadata["research"]["search_queries"].
func phaseMetadata(md map[string]any, p Phase) map[string]any {
	if md == nil {
		return nil
	}
	sub, ok := md[string(p)].(map[string]any)
	if !ok {
		return nil
	}
	return sub
}
