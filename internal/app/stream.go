package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StreamRequest is the body of one turn sent to the agent endpoint.
type StreamRequest struct {
	ChatID      string   `json:"chat_id"`
	ClassroomID string   `json:"classroom_id"`
	SubjectID   string   `json:"subject_id"`
	Query       string   `json:"query"`
	FlowType    FlowType `json:"flow_type"`
}

// StreamOpener opens one event stream per turn. The returned channel closes
// after a terminal event; canceling the context closes the transport and
// stops delivery.
type StreamOpener interface {
	OpenStream(ctx context.Context, req StreamRequest) (<-chan StreamEvent, error)
}

// AgentClient talks to the agent's SSE chat endpoint.
type AgentClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Logger  *Logger
}

func NewAgentClient(baseURL, token string, logger *Logger) *AgentClient {
	// No client-level timeout: a stream stays open for the whole turn and is
	// ended by the caller's context or the transport itself.
	return &AgentClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{},
		Logger:  logger,
	}
}

// OpenStream starts the request in the background and returns immediately.
// Connection failures, non-200 responses and a transport that closes without
// a terminal event all surface as an error event on the channel, never as a
// silent close.
func (c *AgentClient) OpenStream(ctx context.Context, req StreamRequest) (<-chan StreamEvent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	events := make(chan StreamEvent, 64)
	go func() {
		defer close(events)

		send := func(ev StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		resp, err := c.HTTP.Do(httpReq)
		if err != nil {
			if ctx.Err() == nil {
				c.Logger.Error("agent stream connection failed", map[string]interface{}{"chat_id": req.ChatID, "err": err.Error()})
				send(StreamEvent{Type: EventError, Content: "could not reach the agent, try again"})
			}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			c.Logger.Error("agent stream rejected", map[string]interface{}{"chat_id": req.ChatID, "status": resp.Status, "body": string(snippet)})
			send(StreamEvent{Type: EventError, Content: fmt.Sprintf("agent returned %s", resp.Status)})
			return
		}

		terminal := ParseEventStream(resp.Body, c.Logger, send)
		if !terminal && ctx.Err() == nil {
			// The transport closed mid-turn. Treat silent closure as an error
			// so the session never sticks in Sending.
			c.Logger.Warn("agent stream closed without terminal event", map[string]interface{}{"chat_id": req.ChatID})
			send(StreamEvent{Type: EventError, Content: "connection to the agent was lost"})
		}
	}()
	return events, nil
}

// ParseEventStream decodes SSE frames (`data: <json>` lines separated by
// blank lines) from r and hands each decoded event to emit, in arrival
// order. Malformed frames are logged and skipped, never aborting the stream.
// Parsing stops after a terminal event or when emit returns false; the
// return value reports whether a terminal event was seen.
func ParseEventStream(r io.Reader, logger *Logger, emit func(StreamEvent) bool) bool {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// event:/id:/retry: fields are unused; the type travels in the JSON.
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}

		var ev StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			logger.Warn("skipping undecodable stream frame", map[string]interface{}{"err": err.Error()})
			continue
		}
		if ev.Type == "" {
			logger.Warn("skipping stream frame without type", nil)
			continue
		}

		if !emit(ev) {
			return false
		}
		if ev.Terminal() {
			return true
		}
	}
	if err := sc.Err(); err != nil {
		logger.Warn("stream read error", map[string]interface{}{"err": err.Error()})
	}
	return false
}
