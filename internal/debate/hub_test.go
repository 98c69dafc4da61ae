package debate

import (
	"encoding/json"
	"errors"
	"testing"
)

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	buf, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return buf
}

func TestHubControlsFollowAnyStatusSequence(t *testing.T) {
	h := NewHub(DefaultScrollThreshold)
	events := []struct {
		name string
		data any
	}{
		{EventConversationStatus, map[string]any{"active": true}},
		{EventLongOperationStatus, map[string]any{"is_active": true}},
		{EventConversationStatus, map[string]any{"active": false}},
		{EventConversationStatus, map[string]any{"active": false, "is_long_ollama_operation_active": false}},
		{EventLongOperationStatus, map[string]any{"is_active": true}},
		{EventLongOperationStatus, map[string]any{"is_active": false}},
	}
	wantActive := []bool{true, true, false, false, false, false}
	wantLong := []bool{false, true, true, false, true, false}
	for i, ev := range events {
		if _, err := h.Handle(ev.name, raw(t, ev.data)); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if h.Status.Active != wantActive[i] || h.Status.LongOperationActive != wantLong[i] {
			t.Fatalf("event %d: unexpected status %+v", i, h.Status)
		}
		c := h.Controls()
		if c.Start != (!wantActive[i] && !wantLong[i]) || c.Stop != wantActive[i] {
			t.Fatalf("event %d: unexpected controls %+v", i, c)
		}
	}
}

func TestHubStatusFalseHidesIndicatorsKeepsStreams(t *testing.T) {
	h := NewHub(DefaultScrollThreshold)
	h.Handle(EventTopicInfo, raw(t, TopicPayload{Topic: "cats", ForLabel: "For cats", AgainstLabel: "Against cats"}))
	h.Handle(EventConversationStatus, raw(t, map[string]any{"active": true}))
	h.Handle(EventTypingIndicator, raw(t, TypingIndicator{Speaker: "For cats", Typing: true}))
	h.Handle(EventTypingIndicator, raw(t, TypingIndicator{Speaker: "Against cats", Typing: true}))
	h.Handle(EventTypingIndicator, raw(t, TypingIndicator{Speaker: "Evaluator", Typing: true}))
	h.Handle(EventStreamMessage, raw(t, StreamChunk{Speaker: "Against cats", Message: "tail", MessageID: "9"}))

	h.Handle(EventConversationStatus, raw(t, map[string]any{"active": false}))
	if len(h.Indicators.Typing()) != 0 {
		t.Fatalf("expected all typing indicators hidden, got %v", h.Indicators.Typing())
	}
	if h.Renderer.Active() != 1 {
		t.Fatalf("expected in-flight stream kept after stop")
	}
	h.Handle(EventStreamMessage, raw(t, StreamChunk{Speaker: "Against cats", Message: " end", MessageID: "9", Done: true}))
	if h.Renderer.Active() != 0 || h.View.Entries()[0].Content != "tail end" {
		t.Fatalf("expected trailing stream finalized, got %q", h.View.Entries()[0].Content)
	}
}

func TestHubMalformedEventsIgnored(t *testing.T) {
	h := NewHub(DefaultScrollThreshold)
	cases := []struct {
		name string
		data string
	}{
		{EventConversationStatus, `{}`},
		{EventConversationStatus, `not json`},
		{EventStreamMessage, `{"speaker":"x","message":"y"}`},
		{EventSessionInit, `{"session_id":""}`},
		{EventModelsUpdated, `{"instance_name":"ollama9","models":[]}`},
		{EventTypingIndicator, `null`},
	}
	for _, c := range cases {
		out, err := h.Handle(c.name, json.RawMessage(c.data))
		if !errors.Is(err, ErrMalformedEvent) {
			t.Fatalf("%s %s: expected malformed error, got %v", c.name, c.data, err)
		}
		if out.Handled {
			t.Fatalf("%s: expected malformed event not handled", c.name)
		}
	}
	if h.Status.Active || h.View.Len() != 0 {
		t.Fatalf("expected state untouched by malformed events")
	}
	if out, err := h.Handle("unknown_event", json.RawMessage(`{}`)); err != nil || out.Handled {
		t.Fatalf("expected unknown events silently ignored")
	}
}

func TestHubSessionAndMaxTurnsOutcome(t *testing.T) {
	h := NewHub(DefaultScrollThreshold)
	out, err := h.Handle(EventSessionInit, json.RawMessage(`{"session_id":"abc","max_turns":4}`))
	if err != nil {
		t.Fatalf("expected session_init accepted, got %v", err)
	}
	if out.SessionID != "abc" || out.MaxTurns != 4 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestHubHistoryReplay(t *testing.T) {
	h := NewHub(DefaultScrollThreshold)
	h.Handle(EventNewMessage, raw(t, Message{Speaker: "Human", Message: "old"}))
	msgs := []Message{{Speaker: "Human", Message: "a"}, {Speaker: "For position", Message: "b"}, {Speaker: "Against position", Message: "c"}}
	h.Handle(EventConversationHistory, raw(t, ConversationHistory{Messages: msgs}))
	if h.View.Len() != 3 {
		t.Fatalf("expected 3 entries after replay, got %d", h.View.Len())
	}
	if h.View.Entries()[1].Role != RoleFor || h.View.Entries()[2].Role != RoleAgainst {
		t.Fatalf("expected replayed roles classified against default labels")
	}
	h.Handle(EventConversationHistory, raw(t, ConversationHistory{}))
	if h.View.Len() != 3 {
		t.Fatalf("expected empty history to keep the view")
	}
}

func TestHubLongOperationFinished(t *testing.T) {
	h := NewHub(DefaultScrollThreshold)
	h.SetLongOperation(true)
	h.Models.BeginDelete(InstanceFor, "qwen3:1.7b")
	out, err := h.Handle(EventLongOperationStatus, json.RawMessage(`{"is_active":false}`))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !out.OperationFinished || h.Models.Status(InstanceFor) != OperationFinishedStatus {
		t.Fatalf("expected finished notice, got %+v %q", out, h.Models.Status(InstanceFor))
	}
	if h.Status.LongOperationActive {
		t.Fatalf("expected server to override optimistic flag")
	}
}

func TestHubResetDropsInFlightStreams(t *testing.T) {
	h := NewHub(DefaultScrollThreshold)
	h.Handle(EventStreamMessage, raw(t, StreamChunk{Speaker: "For cats", Message: "head", MessageID: "7"}))
	h.Reset()
	if h.Renderer.Active() != 0 || h.View.Len() != 0 {
		t.Fatalf("expected view and streams cleared, active=%d len=%d", h.Renderer.Active(), h.View.Len())
	}
	h.Handle(EventStreamMessage, raw(t, StreamChunk{Speaker: "For cats", Message: "tail", MessageID: "7", Done: true}))
	if h.View.Len() != 1 || h.View.Entries()[0].Content != "tail" {
		t.Fatalf("expected trailing chunk in a fresh entry, got %d entries", h.View.Len())
	}

	h.Handle(EventStreamMessage, raw(t, StreamChunk{Speaker: "Against cats", Message: "partial", MessageID: "8"}))
	h.Handle(EventConversationHistory, raw(t, ConversationHistory{Messages: []Message{{Speaker: "Human", Message: "hi"}}}))
	if _, ok := h.Renderer.Lookup("8"); ok {
		t.Fatalf("expected history replay to drop in-flight streams")
	}
}
