package debate

import (
	"encoding/json"
	"strings"
)

// Outcome tells the shell which side effects an event needs beyond state changes.
type Outcome struct {
	SessionID         string
	MaxTurns          int
	TitleChanged      bool
	StatusChanged     bool
	OperationFinished bool
	Handled           bool
}

// Hub routes push events to the client components. All methods run on the
// single UI loop.
type Hub struct {
	Topic      TopicState
	Status     DebateStatus
	Indicators *Indicators
	View       *Conversation
	Renderer   *Renderer
	Models     *ModelManager
}

func NewHub(scrollThreshold int) *Hub {
	h := &Hub{
		Topic:      DefaultTopic(),
		Indicators: NewIndicators(),
		Models:     NewModelManager(),
	}
	h.View = NewConversation(&h.Topic, h.Indicators, scrollThreshold)
	h.Renderer = NewRenderer(h.View)
	return h
}

// Controls returns the enablement for the current status.
func (h *Hub) Controls() Enablement {
	return Controls(h.Status)
}

// Handle applies one event. Malformed payloads return ErrMalformedEvent and
// leave every component untouched; unknown events are ignored.
func (h *Hub) Handle(name string, data json.RawMessage) (Outcome, error) {
	var out Outcome
	switch name {
	case EventSessionInit:
		p, err := decodePayload(data, func(p SessionInit) bool { return strings.TrimSpace(p.SessionID) != "" })
		if err != nil {
			return out, err
		}
		out.SessionID = strings.TrimSpace(p.SessionID)
		if p.MaxTurns != nil {
			out.MaxTurns = *p.MaxTurns
		}
	case EventConversationHistory:
		p, err := decodePayload[ConversationHistory](data, nil)
		if err != nil {
			return out, err
		}
		h.ReplaceHistory(p.Messages)
	case EventTopicInfo, EventTopicUpdated:
		p, err := decodePayload[TopicPayload](data, nil)
		if err != nil {
			return out, err
		}
		h.Topic = TopicState{Topic: p.Topic, ForLabel: p.ForLabel, AgainstLabel: p.AgainstLabel}
		out.TitleChanged = true
	case EventTypingIndicator:
		p, err := decodePayload(data, func(p TypingIndicator) bool { return p.Speaker != "" })
		if err != nil {
			return out, err
		}
		h.Indicators.Set(Classify(p.Speaker, h.Topic), p.Typing)
	case EventNewMessage:
		p, err := decodePayload(data, func(p Message) bool { return p.Speaker != "" })
		if err != nil {
			return out, err
		}
		h.View.AppendMessage(p)
	case EventStreamMessage:
		p, err := decodePayload(data, func(p StreamChunk) bool { return p.MessageID != "" })
		if err != nil {
			return out, err
		}
		h.Renderer.Handle(p)
	case EventConversationStatus:
		p, err := decodePayload(data, func(p ConversationStatus) bool { return p.Active != nil })
		if err != nil {
			return out, err
		}
		h.Status.Active = *p.Active
		if p.LongOperationActive != nil {
			h.Status.LongOperationActive = *p.LongOperationActive
		}
		if !h.Status.Active {
			// In-flight streams are left to finish on their own done chunk.
			h.Indicators.HideAll()
		}
		out.StatusChanged = true
	case EventLongOperationStatus:
		p, err := decodePayload(data, func(p LongOperationStatus) bool { return p.IsActive != nil })
		if err != nil {
			return out, err
		}
		h.SetLongOperation(*p.IsActive)
		out.StatusChanged = true
		if !*p.IsActive {
			out.OperationFinished = h.Models.FinishOperations()
		}
	case EventModelsInfo:
		p, err := decodePayload[ModelsInfo](data, nil)
		if err != nil {
			return out, err
		}
		h.Models.ApplyInfo(p)
		if p.MaxTurns != nil {
			out.MaxTurns = *p.MaxTurns
		}
	case EventModelsUpdated:
		p, err := decodePayload(data, func(p ModelsUpdated) bool {
			_, ok := ParseInstance(p.InstanceName)
			return ok
		})
		if err != nil {
			return out, err
		}
		inst, _ := ParseInstance(p.InstanceName)
		h.Models.ApplyUpdate(inst, p.Models)
	case EventModelSelectionUpdated:
		p, err := decodePayload[ModelSelectionUpdated](data, nil)
		if err != nil {
			return out, err
		}
		h.Models.ApplySelection(p.SelectedForModel, p.SelectedAgainstModel)
	default:
		return out, nil
	}
	out.Handled = true
	return out, nil
}

// SetLongOperation records a long-operation flag, either optimistic or from the server.
func (h *Hub) SetLongOperation(active bool) {
	h.Status.LongOperationActive = active
}

// ReplaceHistory rebuilds the view from a fetched history.
func (h *Hub) ReplaceHistory(msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	h.Renderer.Drop()
	h.View.Replay(msgs)
}

// Reset clears the local view after the server confirmed a reset.
func (h *Hub) Reset() {
	h.Renderer.Drop()
	h.View.Clear()
}
