package entity

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, e StreamEvent) StreamEvent {
	t.Helper()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got StreamEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return got
}

func TestEventRoundTrip(t *testing.T) {
	info := &ToolCallInfo{Name: "get_profile", Label: "Fetching profile", DurationMs: 42, CacheHit: true}
	events := []StreamEvent{
		{Type: EventConnected, SessionID: "abc"},
		{Type: EventThinking, Turn: 2, Message: "Processing tool results…"},
		{Type: EventToolStart, Tools: []string{"get_profile"}, Labels: []string{"Fetching profile"}},
		{Type: EventToolDone, Info: info},
		{Type: EventTextChunk, Text: "hello"},
		{Type: EventAnswer, Text: "done", ToolCalls: []ToolCallInfo{*info}},
		{Type: EventSession, SessionID: "abc"},
		{Type: EventError, Message: "boom"},
	}

	for _, e := range events {
		got := roundTrip(t, e)
		want := e
		// Canonical form: answer always carries a toolCalls array.
		if want.Type == EventAnswer && want.ToolCalls == nil {
			want.ToolCalls = []ToolCallInfo{}
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch for %s:\n got %+v\nwant %+v", e.Type, got, want)
		}
	}
}

func TestEventAnswerEmptyToolCallsEncodesAsArray(t *testing.T) {
	data, err := json.Marshal(StreamEvent{Type: EventAnswer, Text: "hi"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"toolCalls":[]`) {
		t.Fatalf("encoding = %s, want empty toolCalls array", data)
	}
}

func TestEventEncodingOmitsForeignFields(t *testing.T) {
	data, err := json.Marshal(StreamEvent{Type: EventTextChunk, Text: "x", SessionID: "leak"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "leak") {
		t.Fatalf("encoding = %s, leaked a field not belonging to the type", data)
	}
}

func TestEventUnknownTypeRejected(t *testing.T) {
	if _, err := json.Marshal(StreamEvent{Type: "bogus"}); err == nil {
		t.Fatal("unknown event type marshalled")
	}
}
