package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"llmdebate/internal/api"
	"llmdebate/internal/debate"
	"llmdebate/internal/session"
)

type control string

const (
	controlStart control = "start"
	controlStop  control = "stop"
	controlReset control = "reset"
	controlTopic control = "topic"
)

// idle and busy labels shown on the command buttons.
var controlLabels = map[control][2]string{
	controlStart: {"Start", "Starting..."},
	controlStop:  {"Stop", "Stopping..."},
	controlReset: {"Reset", "Resetting..."},
	controlTopic: {"Set Topic", "Setting..."},
}

type modelOp string

const (
	opPull   modelOp = "pull"
	opDelete modelOp = "delete"
)

type commandDoneMsg struct {
	control control
	resp    api.Response
	err     error
}

type modelOpDoneMsg struct {
	op    modelOp
	inst  debate.Instance
	model string
	resp  api.Response
	err   error
}

type historyLoadedMsg struct {
	messages []debate.Message
	err      error
}

type sessionSavedMsg struct {
	err error
}

type clearTopicInvalidMsg struct{ seq int }

type clearHighlightMsg struct{ seq int }

type clearOpStatusMsg struct{ seq int }

const (
	topicInvalidFor = 3 * time.Second
	highlightFor    = time.Second
	opStatusFor     = 3 * time.Second
	persistTimeout  = 5 * time.Second
)

func clearAfter(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

func waitLinkMsg(ch <-chan any) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func runCommand(c control, call func(ctx context.Context) (api.Response, error)) tea.Cmd {
	return func() tea.Msg {
		resp, err := call(context.Background())
		return commandDoneMsg{control: c, resp: resp, err: err}
	}
}

func (m model) startCmd(req api.StartRequest) tea.Cmd {
	client := m.api
	return runCommand(controlStart, func(ctx context.Context) (api.Response, error) {
		return client.Start(ctx, req)
	})
}

func (m model) stopCmd(sessionID string) tea.Cmd {
	client := m.api
	return runCommand(controlStop, func(ctx context.Context) (api.Response, error) {
		return client.Stop(ctx, sessionID)
	})
}

func (m model) resetCmd(sessionID string) tea.Cmd {
	client := m.api
	return runCommand(controlReset, func(ctx context.Context) (api.Response, error) {
		return client.Reset(ctx, sessionID)
	})
}

func (m model) topicCmd(sessionID, topic string) tea.Cmd {
	client := m.api
	return runCommand(controlTopic, func(ctx context.Context) (api.Response, error) {
		return client.SetTopic(ctx, sessionID, topic)
	})
}

func (m model) modelOpCmd(op modelOp, sessionID string, inst debate.Instance, name string) tea.Cmd {
	client := m.api
	req := api.ModelRequest{SessionID: sessionID, InstanceName: string(inst), ModelName: name}
	return func() tea.Msg {
		var (
			resp api.Response
			err  error
		)
		if op == opPull {
			resp, err = client.PullModel(context.Background(), req)
		} else {
			resp, err = client.DeleteModel(context.Background(), req)
		}
		return modelOpDoneMsg{op: op, inst: inst, model: name, resp: resp, err: err}
	}
}

func (m model) historyCmd(sessionID string) tea.Cmd {
	client := m.api
	return func() tea.Msg {
		msgs, err := client.Conversation(context.Background(), sessionID)
		return historyLoadedMsg{messages: msgs, err: err}
	}
}

func persistSessionCmd(b *session.Bootstrap) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		return sessionSavedMsg{err: b.Persist(ctx)}
	}
}
