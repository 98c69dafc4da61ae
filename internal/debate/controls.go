package debate

import (
	"strconv"
	"strings"
)

const (
	MinTurns = 1
	MaxTurns = 5
)

// DebateStatus is the server-reported activity. Neither flag is inferred locally,
// except the optimistic long-operation flag set when a pull or delete is sent.
type DebateStatus struct {
	Active              bool
	LongOperationActive bool
}

func (s DebateStatus) Label() string {
	if s.Active {
		return "Active"
	}
	return "Idle"
}

// Enablement is the full set of control states for one DebateStatus.
type Enablement struct {
	Start            bool
	Stop             bool
	Reset            bool
	SettingsToggle   bool
	ModelSelect      bool
	MaxTurns         bool
	PullDelete       bool
	TopicFormVisible bool
	SettingsDimmed   bool
}

// Controls is the only place control enablement is decided.
func Controls(s DebateStatus) Enablement {
	idle := !s.Active && !s.LongOperationActive
	return Enablement{
		Start:            idle,
		Stop:             s.Active,
		Reset:            true,
		SettingsToggle:   !s.Active,
		ModelSelect:      idle,
		MaxTurns:         idle,
		PullDelete:       idle,
		TopicFormVisible: !s.Active,
		SettingsDimmed:   !idle,
	}
}

// ValidateStart checks the start preconditions and returns the parsed turn count.
func ValidateStart(forModel, againstModel, maxTurns string) (int, error) {
	if strings.TrimSpace(forModel) == "" || strings.TrimSpace(againstModel) == "" {
		return 0, ErrModelsNotSelected
	}
	turns, err := strconv.Atoi(strings.TrimSpace(maxTurns))
	if err != nil || turns < MinTurns || turns > MaxTurns {
		return 0, ErrInvalidMaxTurns
	}
	return turns, nil
}
