package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"llmdebate/internal/api"
	"llmdebate/internal/config"
	"llmdebate/internal/debate"
	"llmdebate/internal/session"
	"llmdebate/internal/transport"
)

type harness struct {
	m    model
	hits *atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	store, err := session.NewStore(session.StoreTypeMemory)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	boot := session.NewBootstrap(store)
	if err := boot.Assign(context.Background(), "sid-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	cfg := config.Default()
	cfg.Server.URL = srv.URL
	m := newModel(cfg, deps{api: api.New(srv.URL, time.Second), session: boot})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return &harness{m: m, hits: &hits}
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	if !ok {
		t.Fatalf("expected model from Update, got %T", next)
	}
	return out
}

func event(t *testing.T, name string, payload any) transport.Event {
	t.Helper()
	buf, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	return transport.Event{Name: name, Data: buf}
}

func (h *harness) loadModels(t *testing.T) {
	h.m = update(t, h.m, event(t, debate.EventModelsInfo, debate.ModelsInfo{
		Ollama1Models:  []string{"gemma3:4b", "qwen3:1.7b"},
		Ollama2Models:  []string{"gemma3:4b"},
		PullableModels: []string{"gemma3:4b", "qwen3:1.7b", "llama3.2:3b"},
		DefaultModel:   "gemma3:4b",
	}))
}

func TestPullDuringDebateBlocked(t *testing.T) {
	h := newHarness(t)
	h.loadModels(t)
	h.m = update(t, h.m, event(t, debate.EventConversationStatus, map[string]any{"active": true}))

	cmd := h.m.requestPull(debate.InstanceFor, "llama3.2:3b")
	if cmd != nil {
		t.Fatalf("expected no command while a debate is active")
	}
	if h.m.modal != modalAlert || h.m.alertText != debate.ErrBusy.Error() {
		t.Fatalf("expected busy alert, got modal=%d text=%q", h.m.modal, h.m.alertText)
	}
	if h.m.hub.Status.LongOperationActive {
		t.Fatalf("expected no optimistic flag when blocked")
	}
	if h.hits.Load() != 0 {
		t.Fatalf("expected no HTTP request, got %d", h.hits.Load())
	}
}

func TestPullDispatchSetsOptimisticFlag(t *testing.T) {
	h := newHarness(t)
	h.loadModels(t)

	cmd := h.m.requestPull(debate.InstanceAgainst, "qwen3:1.7b")
	if cmd == nil {
		t.Fatalf("expected pull command")
	}
	if !h.m.hub.Status.LongOperationActive || h.m.hub.Controls().Start {
		t.Fatalf("expected optimistic long operation to disable start")
	}
	if h.m.hub.Models.Status(debate.InstanceAgainst) != "Pulling qwen3:1.7b..." {
		t.Fatalf("unexpected status %q", h.m.hub.Models.Status(debate.InstanceAgainst))
	}
	done, ok := cmd().(modelOpDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("expected successful pull, got %#v", done)
	}
	if h.hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", h.hits.Load())
	}
}

func TestModelOpFailureRevertsOptimisticFlag(t *testing.T) {
	h := newHarness(t)
	h.loadModels(t)
	h.m.requestPull(debate.InstanceFor, "llama3.2:3b")

	h.m = update(t, h.m, modelOpDoneMsg{
		op:    opPull,
		inst:  debate.InstanceFor,
		model: "llama3.2:3b",
		err:   &api.AppError{Path: "/api/pull_model", Message: "registry unreachable"},
	})
	if h.m.hub.Status.LongOperationActive {
		t.Fatalf("expected optimistic flag reverted after failure")
	}
	if h.m.modal != modalAlert || h.m.alertText != "registry unreachable" {
		t.Fatalf("expected application error alert, got %q", h.m.alertText)
	}
	if !strings.HasPrefix(h.m.hub.Models.Status(debate.InstanceFor), "Error:") {
		t.Fatalf("expected error status, got %q", h.m.hub.Models.Status(debate.InstanceFor))
	}
}

func TestStartInvalidMaxTurnsFocusesField(t *testing.T) {
	h := newHarness(t)
	h.loadModels(t)
	h.m.maxTurns.SetValue("9")

	if cmd := h.m.beginStart(); cmd != nil {
		t.Fatalf("expected start to be blocked")
	}
	if h.m.modal != modalAlert || h.m.alertFocus != focusMaxTurns {
		t.Fatalf("expected max turns alert")
	}
	h.m = update(t, h.m, tea.KeyMsg{Type: tea.KeyEnter})
	if h.m.modal != modalNone || h.m.activeTab != tabModels || h.m.settingsIndex != maxTurnsRow {
		t.Fatalf("expected focus moved to max turns, tab=%d row=%d", h.m.activeTab, h.m.settingsIndex)
	}
	if !h.m.maxTurns.Focused() {
		t.Fatalf("expected max turns input focused")
	}
	if h.hits.Load() != 0 {
		t.Fatalf("expected no request")
	}
}

func TestStartRequiresBothModels(t *testing.T) {
	h := newHarness(t)
	if cmd := h.m.beginStart(); cmd != nil {
		t.Fatalf("expected start to be blocked without models")
	}
	if h.m.alertText != debate.ErrModelsNotSelected.Error() || h.m.alertFocus != focusNone {
		t.Fatalf("unexpected alert %q", h.m.alertText)
	}
}

func TestStartShowsBusyLabelUntilDone(t *testing.T) {
	h := newHarness(t)
	h.loadModels(t)
	cmd := h.m.beginStart()
	if cmd == nil || !h.m.busy[controlStart] {
		t.Fatalf("expected start dispatched with busy label")
	}
	if !strings.Contains(h.m.renderControls(), "Starting...") {
		t.Fatalf("expected busy label rendered")
	}
	h.m = update(t, h.m, commandDoneMsg{control: controlStart, err: errors.New("connection refused")})
	if h.m.busy[controlStart] {
		t.Fatalf("expected label restored after failure")
	}
	if !strings.Contains(h.m.statusLine, "connection refused") {
		t.Fatalf("expected error logged, got %q", h.m.statusLine)
	}
}

func TestKeysInertWhileDebateActive(t *testing.T) {
	h := newHarness(t)
	h.loadModels(t)
	h.m = update(t, h.m, event(t, debate.EventConversationStatus, map[string]any{"active": true}))

	h.m = update(t, h.m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if h.m.busy[controlStart] || h.m.modal != modalNone {
		t.Fatalf("expected start key inert while active")
	}
	h.m = update(t, h.m, tea.KeyMsg{Type: tea.KeyTab})
	if h.m.activeTab != tabHelp {
		t.Fatalf("expected Models tab skipped while active, got %d", h.m.activeTab)
	}
	if h.m.topicInput.Focused() {
		t.Fatalf("expected topic form hidden while active")
	}
}

func TestEmptyTopicMarkedInvalid(t *testing.T) {
	h := newHarness(t)
	h.m.topicInput.SetValue("   ")
	cmd := h.m.submitTopic()
	if cmd == nil || !h.m.topicInvalid {
		t.Fatalf("expected invalid marker with clear timer")
	}
	if h.m.busy[controlTopic] {
		t.Fatalf("expected no request for empty topic")
	}
	h.m = update(t, h.m, clearTopicInvalidMsg{seq: h.m.topicSeq})
	if h.m.topicInvalid {
		t.Fatalf("expected invalid marker cleared")
	}
}

func TestTopicSuccessClearsConversation(t *testing.T) {
	h := newHarness(t)
	h.m = update(t, h.m, event(t, debate.EventNewMessage, debate.Message{Speaker: "Human", Message: "hi"}))
	h.m.topicInput.SetValue("cats")
	h.m.busy[controlTopic] = true
	h.m = update(t, h.m, commandDoneMsg{control: controlTopic, resp: api.Response{Status: "success"}})
	if h.m.hub.View.Len() != 0 || h.m.topicInput.Value() != "" {
		t.Fatalf("expected conversation and input cleared")
	}
}

func TestTopicEventHighlightsTitle(t *testing.T) {
	h := newHarness(t)
	h.m = update(t, h.m, event(t, debate.EventTopicUpdated, debate.TopicPayload{Topic: "cats", ForLabel: "For cats", AgainstLabel: "Against cats"}))
	if !h.m.highlight {
		t.Fatalf("expected title highlight")
	}
	if !strings.Contains(h.m.renderHeader(), "LLM Debate: cats") {
		t.Fatalf("expected topic in header")
	}
	h.m = update(t, h.m, clearHighlightMsg{seq: h.m.highlightSeq - 1})
	if !h.m.highlight {
		t.Fatalf("expected stale clear ignored")
	}
	h.m = update(t, h.m, clearHighlightMsg{seq: h.m.highlightSeq})
	if h.m.highlight {
		t.Fatalf("expected highlight cleared")
	}
}

func TestSessionInitAdoptsID(t *testing.T) {
	h := newHarness(t)
	h.m = update(t, h.m, event(t, debate.EventSessionInit, debate.SessionInit{SessionID: "sid-2"}))
	if h.m.session.Current() != "sid-2" {
		t.Fatalf("expected session id adopted, got %q", h.m.session.Current())
	}
}

func TestTimelineKeepsPositionWhenScrolledUp(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 40; i++ {
		h.m = update(t, h.m, event(t, debate.EventNewMessage, debate.Message{Speaker: "Human", Message: fmt.Sprintf("message %d", i)}))
	}
	if !h.m.timeline.AtBottom() {
		t.Fatalf("expected timeline to follow new messages")
	}
	h.m.timeline.GotoTop()
	h.m = update(t, h.m, event(t, debate.EventNewMessage, debate.Message{Speaker: "Human", Message: "late"}))
	if h.m.timeline.YOffset != 0 {
		t.Fatalf("expected scroll position kept, got offset %d", h.m.timeline.YOffset)
	}
	h.m.timeline.GotoBottom()
	h.m = update(t, h.m, event(t, debate.EventNewMessage, debate.Message{Speaker: "Human", Message: "later"}))
	if !h.m.timeline.AtBottom() {
		t.Fatalf("expected follow resumed near the bottom")
	}
}

func TestMalformedEventIgnored(t *testing.T) {
	h := newHarness(t)
	h.m = update(t, h.m, transport.Event{Name: debate.EventConversationStatus, Data: json.RawMessage(`{"nope":1}`)})
	if h.m.hub.Status.Active || h.m.modal != modalNone {
		t.Fatalf("expected malformed event to change nothing")
	}
}

func TestCycleString(t *testing.T) {
	opts := []string{"a", "b", "c"}
	if got := cycleString(opts, "a", -1); got != "c" {
		t.Fatalf("expected wrap to c, got %q", got)
	}
	if got := cycleString(opts, "", 1); got != "a" {
		t.Fatalf("expected first option from empty, got %q", got)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	name := "模型-qwen3:1.7b-量化"
	for limit := 1; limit < len(name); limit++ {
		got := truncate(name, limit)
		if !utf8.ValidString(got) {
			t.Fatalf("limit %d: invalid UTF-8 %q", limit, got)
		}
		if n := utf8.RuneCountInString(got); n > limit {
			t.Fatalf("limit %d: got %d runes", limit, n)
		}
	}
	if got := truncate("héllo", 5); got != "héllo" {
		t.Fatalf("expected short text untouched, got %q", got)
	}
}
