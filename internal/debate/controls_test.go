package debate

import (
	"errors"
	"testing"
)

func TestControlsTable(t *testing.T) {
	for _, active := range []bool{false, true} {
		for _, longOp := range []bool{false, true} {
			e := Controls(DebateStatus{Active: active, LongOperationActive: longOp})
			idle := !active && !longOp
			if e.Start != idle || e.ModelSelect != idle || e.MaxTurns != idle || e.PullDelete != idle {
				t.Fatalf("active=%v longOp=%v: unexpected settings enablement %+v", active, longOp, e)
			}
			if e.Stop != active {
				t.Fatalf("active=%v longOp=%v: expected stop=%v", active, longOp, active)
			}
			if !e.Reset {
				t.Fatalf("expected reset always enabled")
			}
			if e.SettingsToggle != !active || e.TopicFormVisible != !active {
				t.Fatalf("active=%v: unexpected toggle/topic form %+v", active, e)
			}
			if e.SettingsDimmed != !idle {
				t.Fatalf("active=%v longOp=%v: unexpected dimming", active, longOp)
			}
		}
	}
}

func TestValidateStart(t *testing.T) {
	if _, err := ValidateStart("", "b", "3"); !errors.Is(err, ErrModelsNotSelected) {
		t.Fatalf("expected missing model error, got %v", err)
	}
	for _, raw := range []string{"0", "6", "x", "", "2.5"} {
		if _, err := ValidateStart("a", "b", raw); !errors.Is(err, ErrInvalidMaxTurns) {
			t.Fatalf("max_turns %q: expected invalid error, got %v", raw, err)
		}
	}
	turns, err := ValidateStart("a", "b", " 5 ")
	if err != nil || turns != 5 {
		t.Fatalf("expected 5 turns, got %d (%v)", turns, err)
	}
}
