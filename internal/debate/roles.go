package debate

import "strings"

// Role is the styling class a speaker maps to.
type Role string

const (
	RoleHuman     Role = "human"
	RoleEvaluator Role = "evaluator"
	RoleSystem    Role = "system"
	RoleFor       Role = "for"
	RoleAgainst   Role = "against"
	RoleGeneric   Role = "generic"
)

const (
	SpeakerHuman     = "Human"
	SpeakerEvaluator = "Evaluator"
	SpeakerSystem    = "System"
)

// Classify maps a speaker name to its role. Agent labels are matched against the
// current position labels first and then by their "For "/"Against " prefix.
func Classify(speaker string, topic TopicState) Role {
	switch speaker {
	case SpeakerHuman:
		return RoleHuman
	case SpeakerEvaluator:
		return RoleEvaluator
	case SpeakerSystem:
		return RoleSystem
	}
	if (topic.ForLabel != "" && speaker == topic.ForLabel) || strings.HasPrefix(speaker, "For ") {
		return RoleFor
	}
	if (topic.AgainstLabel != "" && speaker == topic.AgainstLabel) || strings.HasPrefix(speaker, "Against ") {
		return RoleAgainst
	}
	return RoleGeneric
}
