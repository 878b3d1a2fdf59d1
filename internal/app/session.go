package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionState int

const (
	StateIdle SessionState = iota
	StateSending
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

// Turn is one in-flight send: its identifier and the event source the UI
// pumps. The identifier guards the session against events from a stream that
// was canceled or replaced.
type Turn struct {
	ID     string
	Events <-chan StreamEvent
}

// ApplyOutcome tells the UI what an applied event did to the session.
type ApplyOutcome int

const (
	// OutcomeNone: stale or unknown event, nothing changed.
	OutcomeNone ApplyOutcome = iota
	// OutcomeUpdated: live buffers or status changed.
	OutcomeUpdated
	// OutcomeFinalized: the turn completed and one assistant message was appended.
	OutcomeFinalized
	// OutcomeFailed: the turn failed and its live buffers were discarded.
	OutcomeFailed
)

// Session owns one conversation: its chat identity, the finalized message
// list and the live buffers of the in-flight turn, if any. All methods must
// be called from the UI loop; the stream goroutine only feeds the turn
// channel, never touches session state.
type Session struct {
	ChatID      string
	ClassroomID string
	SubjectID   string
	Flow        FlowType

	opener StreamOpener
	logger *Logger

	state       SessionState
	messages    []Message
	acc         *PhaseAccumulator
	turnID      string
	turnCancel  context.CancelFunc
	activePhase Phase
	statusText  string
	turnMeta    map[string]any
}

func NewSession(chatID, classroomID, subjectID string, flow FlowType, opener StreamOpener, logger *Logger) *Session {
	if chatID == "" {
		chatID = uuid.NewString()
	}
	return &Session{
		ChatID:      chatID,
		ClassroomID: classroomID,
		SubjectID:   subjectID,
		Flow:        flow,
		opener:      opener,
		logger:      logger,
		acc:         NewPhaseAccumulator(flow),
	}
}

func (s *Session) State() SessionState { return s.state }

// Messages returns the finalized message list, oldest first.
func (s *Session) Messages() []Message { return s.messages }

// Live returns the in-flight turn's accumulator for rendering. Empty when idle.
func (s *Session) Live() *PhaseAccumulator { return s.acc }

func (s *Session) ActivePhase() Phase { return s.activePhase }

func (s *Session) StatusText() string { return s.statusText }

// Send appends the user message optimistically, resets the live buffers and
// opens the stream. Valid only when idle; the user message is kept even if a
// later transport failure ends the turn, so the input can be retried.
func (s *Session) Send(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.state != StateIdle {
		return nil, ErrTurnInFlight
	}

	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	})

	s.acc = NewPhaseAccumulator(s.Flow)
	s.turnMeta = map[string]any{}
	s.activePhase = ""
	s.statusText = ""

	turnCtx, cancel := context.WithCancel(ctx)
	events, err := s.opener.OpenStream(turnCtx, StreamRequest{
		ChatID:      s.ChatID,
		ClassroomID: s.ClassroomID,
		SubjectID:   s.SubjectID,
		Query:       text,
		FlowType:    s.Flow,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	s.state = StateSending
	s.turnID = uuid.NewString()
	s.turnCancel = cancel
	return &Turn{ID: s.turnID, Events: events}, nil
}

// Apply routes one stream event into the session. Events carrying a turn ID
// other than the current one belong to a canceled or replaced stream and are
// dropped without touching state.
func (s *Session) Apply(turnID string, ev StreamEvent) ApplyOutcome {
	if s.state != StateSending || turnID != s.turnID {
		return OutcomeNone
	}

	switch ev.Type {
	case EventStart:
		if ev.Content != "" {
			s.statusText = ev.Content
		}
		return OutcomeUpdated
	case EventStatus:
		s.statusText = ev.Content
		s.acc.ApplyStatus(ev.Phase, ev.Content)
		return OutcomeUpdated
	case EventToken:
		s.acc.ApplyToken(ev.Phase, ev.Content)
		return OutcomeUpdated
	case EventPhaseChange:
		// UI emphasis only; token routing follows each event's own tag.
		s.activePhase = ev.Phase
		return OutcomeUpdated
	case EventToolCall:
		s.acc.ApplyToolCall(ev.Phase, ToolCall{Tool: ev.Tool, Input: ev.Content})
		return OutcomeUpdated
	case EventToolResult:
		s.acc.ApplyToolResult(ev.Phase, ev.Content)
		return OutcomeUpdated
	case EventMetadata:
		for k, v := range ev.Metadata {
			s.turnMeta[k] = v
		}
		s.acc.ApplyMetadata(ev.Phase, ev.Metadata)
		return OutcomeUpdated
	case EventPhaseComplete:
		s.acc.MarkPhaseComplete(ev.Phase)
		return OutcomeUpdated
	case EventDone:
		s.finalize()
		return OutcomeFinalized
	case EventError:
		s.logger.Warn("turn failed", map[string]interface{}{"chat_id": s.ChatID, "reason": ev.Content})
		s.clearLive()
		return OutcomeFailed
	default:
		s.logger.Warn("ignoring unknown stream event", map[string]interface{}{"type": string(ev.Type)})
		return OutcomeNone
	}
}

// finalize builds exactly one assistant message from the live buffers and
// appends it, then returns the session to idle.
func (s *Session) finalize() {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
	}
	if len(s.turnMeta) > 0 {
		msg.Metadata = s.turnMeta
	}

	if s.Flow == FlowWorksheetGeneration {
		phases := &MessagePhases{}
		if b := s.acc.Buffer(PhaseResearch); b != nil {
			phases.Research = b.Result()
		}
		if b := s.acc.Buffer(PhaseGeneration); b != nil {
			phases.Generation = b.Result()
		}
		msg.Phases = phases
		// Fallback content mirrors whichever buffer is populated, preferring
		// generation, so single-buffer consumers keep working.
		switch {
		case phases.Generation != nil && phases.Generation.Text != "":
			msg.Content = phases.Generation.Text
		case phases.Research != nil:
			msg.Content = phases.Research.Text
		}
	} else {
		msg.Content = s.acc.JoinedText()
	}

	s.messages = append(s.messages, msg)
	s.clearLive()
}

func (s *Session) clearLive() {
	if s.turnCancel != nil {
		s.turnCancel()
		s.turnCancel = nil
	}
	s.acc = NewPhaseAccumulator(s.Flow)
	s.turnID = ""
	s.activePhase = ""
	s.statusText = ""
	s.turnMeta = nil
	s.state = StateIdle
}

// Cancel closes the in-flight turn's transport and discards its live buffers
// without appending a message. Canceling an idle session is a no-op.
func (s *Session) Cancel() {
	if s.state != StateSending {
		return
	}
	s.clearLive()
}

// SwitchChat cancels any in-flight turn, adopts the new chat identity and
// installs the reconciled history as the message list. An empty chatID
// starts a fresh conversation.
func (s *Session) SwitchChat(chatID string, history []Message) {
	s.Cancel()
	if chatID == "" {
		chatID = uuid.NewString()
	}
	s.ChatID = chatID
	s.messages = history
}
