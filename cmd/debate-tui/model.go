package main

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"llmdebate/internal/api"
	"llmdebate/internal/config"
	"llmdebate/internal/debate"
	"llmdebate/internal/session"
	"llmdebate/internal/transport"
)

type tabID int

const (
	tabDebate tabID = iota
	tabModels
	tabHelp
)

type modalKind int

const (
	modalNone modalKind = iota
	modalAlert
	modalDeleteConfirm
	modalQuit
)

type alertFocus int

const (
	focusNone alertFocus = iota
	focusMaxTurns
)

type rowKind int

const (
	rowSelect rowKind = iota
	rowMaxTurns
	rowModel
	rowPull
)

const maxTurnsRow = 2

type settingsRow struct {
	kind  rowKind
	inst  debate.Instance
	model string
	entry debate.ModelEntry
}

type deps struct {
	api     *api.Client
	session *session.Bootstrap
	link    *transport.Client
	inbound <-chan any
}

type model struct {
	cfg     *config.Config
	api     *api.Client
	session *session.Bootstrap
	link    *transport.Client
	inbound <-chan any

	hub *debate.Hub

	busy          map[control]bool
	topicInvalid  bool
	topicSeq      int
	highlight     bool
	highlightSeq  int
	opStatusSeq   int
	connected     bool
	connInfo      string
	modal         modalKind
	alertText     string
	alertFocus    alertFocus
	pendingDelete settingsRow
	activeTab     tabID
	settingsIndex int
	statusLine    string
	logs          []string

	width  int
	height int

	topicInput textinput.Model
	maxTurns   textinput.Model
	timeline   viewport.Model
	spinner    spinner.Model

	theme uiTheme
}

func newModel(cfg *config.Config, d deps) model {
	topic := textinput.New()
	topic.Prompt = "❯ "
	topic.CharLimit = 300
	topic.Placeholder = "Enter a debate topic and press Enter"
	topic.Focus()

	turns := textinput.New()
	turns.Prompt = ""
	turns.CharLimit = 2
	turns.Width = 4
	turns.SetValue("3")

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true
	timeline.MouseWheelDelta = 3

	return model{
		cfg:        cfg,
		api:        d.api,
		session:    d.session,
		link:       d.link,
		inbound:    d.inbound,
		hub:        debate.NewHub(cfg.UI.ScrollThreshold),
		busy:       map[control]bool{},
		statusLine: "connecting...",
		logs:       []string{},
		activeTab:  tabDebate,
		topicInput: topic,
		maxTurns:   turns,
		timeline:   timeline,
		spinner:    sp,
		theme:      newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.SetWindowTitle(m.hub.Topic.Title()),
		waitLinkMsg(m.inbound),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case transport.Status:
		m.connected = msg.Connected
		if msg.Connected {
			m.connInfo = ""
			m.statusLine = "connected to " + m.cfg.Server.URL
			m.appendLog("push channel connected")
		} else {
			m.connInfo = compactSingleLine(msg.Info, 120)
			m.statusLine = "reconnecting..."
			m.appendLog("push channel down: " + m.connInfo)
			log.Printf("push channel down: %s", msg.Info)
		}
		cmds = append(cmds, waitLinkMsg(m.inbound))
	case transport.Event:
		cmds = append(cmds, m.handleEvent(msg)...)
		m.renderPanes()
		cmds = append(cmds, waitLinkMsg(m.inbound))
	case commandDoneMsg:
		m.busy[msg.control] = false
		if msg.err != nil {
			var appErr *api.AppError
			if msg.control == controlTopic && errors.As(msg.err, &appErr) {
				m.showAlert(appErr.Error(), focusNone)
			}
			m.logError(fmt.Errorf("%s: %w", msg.control, msg.err))
			break
		}
		switch msg.control {
		case controlReset:
			m.hub.Reset()
		case controlTopic:
			m.hub.View.Clear()
			m.topicInput.SetValue("")
		}
		m.statusLine = fmt.Sprintf("%s: %s", msg.control, nullCoalesce(msg.resp.Status, "ok"))
		m.appendLog(m.statusLine)
		m.renderPanes()
	case modelOpDoneMsg:
		if msg.err != nil {
			// The server never started the operation, so nothing will clear the optimistic flag.
			m.hub.SetLongOperation(false)
			m.hub.Models.SetStatus(msg.inst, "Error: "+compactSingleLine(msg.err.Error(), 120))
			var appErr *api.AppError
			if errors.As(msg.err, &appErr) {
				m.showAlert(appErr.Error(), focusNone)
			}
			m.logError(fmt.Errorf("%s %s on %s: %w", msg.op, msg.model, msg.inst, msg.err))
			break
		}
		m.appendLog(fmt.Sprintf("%s %s on %s accepted: %s", msg.op, msg.model, msg.inst, nullCoalesce(msg.resp.Message, msg.resp.Status)))
	case historyLoadedMsg:
		if msg.err != nil {
			m.logError(fmt.Errorf("load history: %w", msg.err))
			break
		}
		m.hub.ReplaceHistory(msg.messages)
		m.statusLine = fmt.Sprintf("history loaded (%d messages)", len(msg.messages))
		m.renderPanes()
	case sessionSavedMsg:
		if msg.err != nil {
			m.logError(fmt.Errorf("persist session: %w", msg.err))
		}
	case clearTopicInvalidMsg:
		if msg.seq == m.topicSeq {
			m.topicInvalid = false
		}
	case clearHighlightMsg:
		if msg.seq == m.highlightSeq {
			m.highlight = false
		}
	case clearOpStatusMsg:
		if msg.seq == m.opStatusSeq {
			m.hub.Models.ClearFinished()
		}
	case tea.FocusMsg:
		if m.link != nil && !m.link.Connected() {
			m.link.Nudge()
			m.appendLog("terminal focused, reconnecting now")
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPanes()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		if m.modal != modalNone || m.activeTab != tabDebate {
			break
		}
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		m.observeScroll()
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.modal != modalNone {
			cmds = append(cmds, m.handleModalKey(msg))
			return m, tea.Batch(cmds...)
		}
		switch msg.String() {
		case "esc":
			if m.activeTab == tabDebate {
				m.beginQuitConfirm()
			} else {
				m.switchTab(tabDebate)
			}
			return m, tea.Batch(cmds...)
		case "tab":
			m.switchTab(m.nextTab(1))
			return m, tea.Batch(cmds...)
		case "shift+tab":
			m.switchTab(m.nextTab(-1))
			return m, tea.Batch(cmds...)
		}
		switch m.activeTab {
		case tabDebate:
			cmds = append(cmds, m.handleDebateKey(msg))
		case tabModels:
			cmds = append(cmds, m.handleModelsKey(msg))
		}
	}
	return m, tea.Batch(cmds...)
}

// handleEvent applies one push event and returns the side-effect commands it needs.
func (m *model) handleEvent(ev transport.Event) []tea.Cmd {
	m.observeScroll()
	wasActive := m.hub.Status.Active
	out, err := m.hub.Handle(ev.Name, ev.Data)
	if err != nil {
		log.Printf("ignoring %s: %v", ev.Name, err)
		return nil
	}
	if !out.Handled {
		log.Printf("ignoring unknown event %q", ev.Name)
		return nil
	}

	var cmds []tea.Cmd
	if out.SessionID != "" {
		m.session.Adopt(out.SessionID)
		m.appendLog("session " + out.SessionID)
		cmds = append(cmds, persistSessionCmd(m.session))
	}
	if out.MaxTurns > 0 {
		m.maxTurns.SetValue(strconv.Itoa(clampInt(out.MaxTurns, debate.MinTurns, debate.MaxTurns)))
	}
	if out.TitleChanged {
		m.highlight = true
		m.highlightSeq++
		cmds = append(cmds,
			tea.SetWindowTitle(m.hub.Topic.Title()),
			clearAfter(highlightFor, clearHighlightMsg{seq: m.highlightSeq}),
		)
	}
	if out.OperationFinished {
		m.opStatusSeq++
		cmds = append(cmds, clearAfter(opStatusFor, clearOpStatusMsg{seq: m.opStatusSeq}))
	}
	if out.StatusChanged && wasActive != m.hub.Status.Active {
		m.appendLog("debate " + strings.ToLower(m.hub.Status.Label()))
	}
	m.syncFocus()
	return cmds
}

func (m *model) handleModalKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch m.modal {
	case modalQuit:
		switch key {
		case "y", "Y", "enter":
			return tea.Quit
		case "n", "N", "esc":
			m.modal = modalNone
			m.statusLine = "quit canceled"
		}
	case modalAlert:
		switch key {
		case "enter", "esc", " ":
			m.dismissAlert()
		}
	case modalDeleteConfirm:
		switch key {
		case "y", "Y", "enter":
			m.modal = modalNone
			return m.confirmDelete()
		case "n", "N", "esc":
			m.modal = modalNone
			m.statusLine = "delete canceled"
		}
	}
	return nil
}

func (m *model) handleDebateKey(msg tea.KeyMsg) tea.Cmd {
	enable := m.hub.Controls()
	switch msg.String() {
	case "ctrl+s":
		return m.beginStart()
	case "ctrl+x":
		if !enable.Stop || m.busy[controlStop] {
			return nil
		}
		sid := m.requireSession()
		if sid == "" {
			return nil
		}
		m.busy[controlStop] = true
		return m.stopCmd(sid)
	case "ctrl+r":
		if !enable.Reset || m.busy[controlReset] {
			return nil
		}
		sid := m.requireSession()
		if sid == "" {
			return nil
		}
		m.busy[controlReset] = true
		return m.resetCmd(sid)
	case "ctrl+l":
		sid := m.requireSession()
		if sid == "" {
			return nil
		}
		m.statusLine = "loading history..."
		return m.historyCmd(sid)
	case "enter":
		if !enable.TopicFormVisible {
			return nil
		}
		return m.submitTopic()
	case "pgup", "ctrl+b":
		m.timeline.LineUp(8)
		m.observeScroll()
		return nil
	case "pgdown", "ctrl+f":
		m.timeline.LineDown(8)
		m.observeScroll()
		return nil
	case "up":
		if !m.topicInput.Focused() || strings.TrimSpace(m.topicInput.Value()) == "" {
			m.timeline.LineUp(3)
			m.observeScroll()
			return nil
		}
	case "down":
		if !m.topicInput.Focused() || strings.TrimSpace(m.topicInput.Value()) == "" {
			m.timeline.LineDown(3)
			m.observeScroll()
			return nil
		}
	case "home":
		m.timeline.GotoTop()
		m.observeScroll()
		return nil
	case "end":
		m.timeline.GotoBottom()
		m.observeScroll()
		return nil
	}
	if !enable.TopicFormVisible || m.busy[controlTopic] {
		return nil
	}
	var cmd tea.Cmd
	m.topicInput, cmd = m.topicInput.Update(msg)
	return cmd
}

func (m *model) handleModelsKey(msg tea.KeyMsg) tea.Cmd {
	rows := m.settingsRows()
	m.settingsIndex = clampInt(m.settingsIndex, 0, len(rows)-1)
	row := rows[m.settingsIndex]
	enable := m.hub.Controls()

	switch msg.String() {
	case "up":
		m.settingsIndex = maxInt(0, m.settingsIndex-1)
		m.syncFocus()
		return nil
	case "down":
		m.settingsIndex = minInt(len(rows)-1, m.settingsIndex+1)
		m.syncFocus()
		return nil
	case "left", "right":
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		switch row.kind {
		case rowSelect:
			if !enable.ModelSelect {
				return nil
			}
			next := cycleString(m.hub.Models.Available(row.inst), m.hub.Models.Selected(row.inst), delta)
			if err := m.hub.Models.Select(row.inst, next); err != nil {
				m.logError(err)
				return nil
			}
			m.statusLine = fmt.Sprintf("%s model: %s", row.inst.Side(), nullCoalesce(next, "(none)"))
		case rowMaxTurns:
			if !enable.MaxTurns {
				return nil
			}
			current, err := strconv.Atoi(strings.TrimSpace(m.maxTurns.Value()))
			if err != nil {
				current = debate.MinTurns
				delta = 0
			}
			m.maxTurns.SetValue(strconv.Itoa(clampInt(current+delta, debate.MinTurns, debate.MaxTurns)))
		}
		return nil
	case "enter":
		if row.kind == rowPull {
			return m.requestPull(row.inst, row.model)
		}
		return nil
	case "d", "delete":
		if row.kind == rowModel {
			m.requestDelete(row)
		}
		return nil
	}
	if row.kind == rowMaxTurns && enable.MaxTurns {
		var cmd tea.Cmd
		m.maxTurns, cmd = m.maxTurns.Update(msg)
		return cmd
	}
	return nil
}

// beginStart validates locally and dispatches /api/start.
func (m *model) beginStart() tea.Cmd {
	if !m.hub.Controls().Start || m.busy[controlStart] {
		return nil
	}
	sid := m.requireSession()
	if sid == "" {
		return nil
	}
	forModel := m.hub.Models.Selected(debate.InstanceFor)
	againstModel := m.hub.Models.Selected(debate.InstanceAgainst)
	turns, err := debate.ValidateStart(forModel, againstModel, m.maxTurns.Value())
	if err != nil {
		focus := focusNone
		if errors.Is(err, debate.ErrInvalidMaxTurns) {
			focus = focusMaxTurns
		}
		m.showAlert(err.Error(), focus)
		return nil
	}
	m.busy[controlStart] = true
	return m.startCmd(api.StartRequest{
		SessionID:    sid,
		ForModel:     forModel,
		AgainstModel: againstModel,
		MaxTurns:     turns,
	})
}

func (m *model) submitTopic() tea.Cmd {
	if m.busy[controlTopic] {
		return nil
	}
	sid := m.requireSession()
	if sid == "" {
		return nil
	}
	topic, err := debate.NormalizeTopic(m.topicInput.Value())
	if err != nil {
		m.topicInvalid = true
		m.topicSeq++
		return clearAfter(topicInvalidFor, clearTopicInvalidMsg{seq: m.topicSeq})
	}
	m.busy[controlTopic] = true
	return m.topicCmd(sid, topic)
}

func (m *model) requestPull(inst debate.Instance, name string) tea.Cmd {
	if err := m.hub.Models.CheckOperation(m.hub.Status); err != nil {
		m.showAlert(err.Error(), focusNone)
		return nil
	}
	sid := m.requireSession()
	if sid == "" {
		return nil
	}
	m.hub.SetLongOperation(true)
	m.hub.Models.BeginPull(inst, name)
	m.appendLog(fmt.Sprintf("pulling %s on %s", name, inst))
	return m.modelOpCmd(opPull, sid, inst, name)
}

func (m *model) requestDelete(row settingsRow) {
	if err := m.hub.Models.CheckOperation(m.hub.Status); err != nil {
		m.showAlert(err.Error(), focusNone)
		return
	}
	if !row.entry.Deletable {
		m.statusLine = debate.ErrProtectedModel.Error()
		return
	}
	m.pendingDelete = row
	m.modal = modalDeleteConfirm
}

func (m *model) confirmDelete() tea.Cmd {
	row := m.pendingDelete
	m.pendingDelete = settingsRow{}
	if err := m.hub.Models.CheckOperation(m.hub.Status); err != nil {
		m.showAlert(err.Error(), focusNone)
		return nil
	}
	sid := m.requireSession()
	if sid == "" {
		return nil
	}
	if err := m.hub.Models.BeginDelete(row.inst, row.model); err != nil {
		m.logError(err)
		return nil
	}
	m.hub.SetLongOperation(true)
	m.appendLog(fmt.Sprintf("deleting %s on %s", row.model, row.inst))
	return m.modelOpCmd(opDelete, sid, row.inst, row.model)
}

// requireSession returns the session id, or "" with a status hint while none is known.
func (m *model) requireSession() string {
	sid := m.session.Current()
	if sid == "" {
		m.statusLine = "waiting for session from server..."
	}
	return sid
}

func (m *model) showAlert(text string, focus alertFocus) {
	m.modal = modalAlert
	m.alertText = text
	m.alertFocus = focus
	m.appendLog("alert: " + text)
}

func (m *model) dismissAlert() {
	m.modal = modalNone
	if m.alertFocus == focusMaxTurns {
		m.activeTab = tabModels
		m.settingsIndex = maxTurnsRow
	}
	m.alertFocus = focusNone
	m.syncFocus()
}

func (m *model) beginQuitConfirm() {
	m.modal = modalQuit
	m.statusLine = "quit?"
}

func (m *model) nextTab(delta int) tabID {
	tabs := []tabID{tabDebate, tabModels, tabHelp}
	idx := int(m.activeTab)
	for range tabs {
		idx = (idx + delta + len(tabs)) % len(tabs)
		if tabs[idx] != tabModels || m.hub.Controls().SettingsToggle {
			return tabs[idx]
		}
	}
	return m.activeTab
}

func (m *model) switchTab(tab tabID) {
	m.activeTab = tab
	m.syncFocus()
	m.renderPanes()
}

// syncFocus keeps keyboard focus on the input that matches the visible view.
func (m *model) syncFocus() {
	if m.activeTab == tabDebate && m.hub.Controls().TopicFormVisible {
		m.topicInput.Focus()
	} else {
		m.topicInput.Blur()
	}
	if m.activeTab == tabModels && m.settingsIndex == maxTurnsRow {
		m.maxTurns.Focus()
	} else {
		m.maxTurns.Blur()
	}
}

func (m *model) settingsRows() []settingsRow {
	rows := []settingsRow{
		{kind: rowSelect, inst: debate.InstanceFor},
		{kind: rowSelect, inst: debate.InstanceAgainst},
		{kind: rowMaxTurns},
	}
	for _, inst := range debate.Instances() {
		for _, e := range m.hub.Models.Entries(inst) {
			rows = append(rows, settingsRow{kind: rowModel, inst: inst, model: e.Name, entry: e})
		}
		for _, name := range m.hub.Models.PullOptions(inst) {
			rows = append(rows, settingsRow{kind: rowPull, inst: inst, model: name})
		}
	}
	return rows
}

// observeScroll feeds the viewport position into the follow-scroll policy.
func (m *model) observeScroll() {
	m.hub.View.Observe(m.timeline.TotalLineCount(), m.timeline.Height, m.timeline.YOffset)
}

func (m *model) appendLog(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	m.logs = append(m.logs, fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), compactSingleLine(trimmed, 220)))
	if len(m.logs) > 50 {
		m.logs = m.logs[len(m.logs)-50:]
	}
}

func (m *model) logError(err error) {
	if err == nil {
		return
	}
	log.Printf("error: %v", err)
	m.appendLog("error: " + err.Error())
	m.statusLine = "error: " + compactSingleLine(err.Error(), 160)
}
