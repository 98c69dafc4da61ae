package debate

import (
	"encoding/json"
	"strings"
)

// Push event names emitted by the debate server.
const (
	EventSessionInit           = "session_init"
	EventConversationHistory   = "conversation_history"
	EventTopicInfo             = "topic_info"
	EventTopicUpdated          = "topic_updated"
	EventTypingIndicator       = "typing_indicator"
	EventNewMessage            = "new_message"
	EventStreamMessage         = "stream_message"
	EventConversationStatus    = "conversation_status"
	EventLongOperationStatus   = "long_ollama_operation_status"
	EventModelsInfo            = "models_info"
	EventModelsUpdated         = "models_updated"
	EventModelSelectionUpdated = "model_selection_updated"
)

// Message is a finalized conversation turn, both on the wire and in history responses.
type Message struct {
	Speaker string `json:"speaker"`
	Message string `json:"message"`
}

type SessionInit struct {
	SessionID string `json:"session_id"`
	MaxTurns  *int   `json:"max_turns,omitempty"`
}

type ConversationHistory struct {
	Messages []Message `json:"messages"`
}

type TopicPayload struct {
	Topic        string `json:"topic"`
	ForLabel     string `json:"for_label"`
	AgainstLabel string `json:"against_label"`
}

type TypingIndicator struct {
	Speaker string `json:"speaker"`
	Typing  bool   `json:"typing"`
}

// StreamChunk is one token chunk of an in-flight message. Done marks the last chunk.
type StreamChunk struct {
	Speaker   string `json:"speaker"`
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
	Done      bool   `json:"done"`
}

type ConversationStatus struct {
	Active              *bool `json:"active"`
	LongOperationActive *bool `json:"is_long_ollama_operation_active,omitempty"`
}

type LongOperationStatus struct {
	IsActive *bool `json:"is_active"`
}

type ModelsInfo struct {
	Ollama1Models        []string `json:"ollama1_models"`
	Ollama2Models        []string `json:"ollama2_models"`
	PullableModels       []string `json:"pullable_models"`
	DefaultModel         string   `json:"default_model"`
	SelectedForModel     string   `json:"selected_for_model"`
	SelectedAgainstModel string   `json:"selected_against_model"`
	MaxTurns             *int     `json:"max_turns,omitempty"`
}

type ModelsUpdated struct {
	InstanceName string   `json:"instance_name"`
	Models       []string `json:"models"`
}

type ModelSelectionUpdated struct {
	SelectedForModel     *string `json:"selected_for_model,omitempty"`
	SelectedAgainstModel *string `json:"selected_against_model,omitempty"`
}

// decodePayload unmarshals data into T and runs check on the result.
// Any failure is reported as ErrMalformedEvent.
func decodePayload[T any](data json.RawMessage, check func(T) bool) (T, error) {
	var out T
	if len(data) == 0 || strings.TrimSpace(string(data)) == "null" {
		return out, ErrMalformedEvent
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, ErrMalformedEvent
	}
	if check != nil && !check(out) {
		return out, ErrMalformedEvent
	}
	return out, nil
}
