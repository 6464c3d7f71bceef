package entity

import (
	"encoding/json"
	"fmt"
)

// EventType identifies a stream event emitted during a chat request.
type EventType string

const (
	EventConnected EventType = "connected"
	EventThinking  EventType = "thinking"
	EventToolStart EventType = "tool_start"
	EventToolDone  EventType = "tool_done"
	EventTextChunk EventType = "text_chunk"
	EventAnswer    EventType = "answer"
	EventSession   EventType = "session"
	EventError     EventType = "error"
)

// StreamEvent is the wire unit of the streaming transport. The JSON encoding
// is canonical: only the fields belonging to the event type are emitted, so
// Parse(Marshal(e)) returns an equal event.
type StreamEvent struct {
	Type      EventType
	SessionID string         // connected, session
	Turn      int            // thinking
	Message   string         // thinking, error
	Tools     []string       // tool_start
	Labels    []string       // tool_start
	Info      *ToolCallInfo  // tool_done
	Text      string         // text_chunk, answer
	ToolCalls []ToolCallInfo // answer
}

// MarshalJSON emits the canonical encoding for the event's type.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": e.Type}
	switch e.Type {
	case EventConnected, EventSession:
		m["sessionId"] = e.SessionID
	case EventThinking:
		m["turn"] = e.Turn
		m["message"] = e.Message
	case EventToolStart:
		m["tools"] = emptyIfNil(e.Tools)
		m["labels"] = emptyIfNil(e.Labels)
	case EventToolDone:
		m["info"] = e.Info
	case EventTextChunk:
		m["text"] = e.Text
	case EventAnswer:
		m["text"] = e.Text
		calls := e.ToolCalls
		if calls == nil {
			calls = []ToolCallInfo{}
		}
		m["toolCalls"] = calls
	case EventError:
		m["message"] = e.Message
	default:
		return nil, fmt.Errorf("unknown event type: %q", e.Type)
	}
	return json.Marshal(m)
}

// UnmarshalJSON restores an event from its canonical encoding.
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      EventType      `json:"type"`
		SessionID string         `json:"sessionId"`
		Turn      int            `json:"turn"`
		Message   string         `json:"message"`
		Tools     []string       `json:"tools"`
		Labels    []string       `json:"labels"`
		Info      *ToolCallInfo  `json:"info"`
		Text      string         `json:"text"`
		ToolCalls []ToolCallInfo `json:"toolCalls"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = StreamEvent{
		Type:      raw.Type,
		SessionID: raw.SessionID,
		Turn:      raw.Turn,
		Message:   raw.Message,
		Tools:     raw.Tools,
		Labels:    raw.Labels,
		Info:      raw.Info,
		Text:      raw.Text,
		ToolCalls: raw.ToolCalls,
	}
	if e.Type == EventAnswer && e.ToolCalls == nil {
		e.ToolCalls = []ToolCallInfo{}
	}
	if e.Type == EventToolStart {
		if e.Tools == nil {
			e.Tools = []string{}
		}
		if e.Labels == nil {
			e.Labels = []string{}
		}
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
