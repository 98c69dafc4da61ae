package debate

import "strings"

const (
	defaultForLabel     = "For position"
	defaultAgainstLabel = "Against position"
)

// TopicState is the server-owned topic and position labels.
type TopicState struct {
	Topic        string
	ForLabel     string
	AgainstLabel string
}

func DefaultTopic() TopicState {
	return TopicState{ForLabel: defaultForLabel, AgainstLabel: defaultAgainstLabel}
}

func (t TopicState) Title() string {
	if strings.TrimSpace(t.Topic) == "" {
		return "LLM Debate"
	}
	return "LLM Debate: " + t.Topic
}

// NormalizeTopic trims a submitted topic and rejects empty input.
func NormalizeTopic(raw string) (string, error) {
	topic := strings.TrimSpace(raw)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	return topic, nil
}
