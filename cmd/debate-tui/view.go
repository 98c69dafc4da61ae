package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"llmdebate/internal/debate"
)

type uiTheme struct {
	root         lipgloss.Style
	header       lipgloss.Style
	title        lipgloss.Style
	titlePulse   lipgloss.Style
	tabActive    lipgloss.Style
	tabInactive  lipgloss.Style
	panel        lipgloss.Style
	panelTitle   lipgloss.Style
	footer       lipgloss.Style
	status       lipgloss.Style
	errorStatus  lipgloss.Style
	inputPanel   lipgloss.Style
	inputInvalid lipgloss.Style
	helpText     lipgloss.Style
	button       lipgloss.Style
	buttonBusy   lipgloss.Style
	disabled     lipgloss.Style
	settingKey   lipgloss.Style
	settingValue lipgloss.Style
	settingPick  lipgloss.Style
	badge        lipgloss.Style
	active       lipgloss.Style
	idle         lipgloss.Style
	thinking     lipgloss.Style
	modal        lipgloss.Style
	role         map[debate.Role]lipgloss.Style
}

func newTheme() uiTheme {
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	gold := lipgloss.Color("#ffd166")
	bg := lipgloss.Color("#120924")
	panelBg := lipgloss.Color("#1b0f35")
	text := lipgloss.Color("#f3f3ff")
	muted := lipgloss.Color("#9ca3d8")
	dim := lipgloss.Color("#4b4470")

	return uiTheme{
		root: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		title:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		titlePulse: lipgloss.NewStyle().Foreground(lipgloss.Color("#22062f")).Background(gold).Bold(true),
		tabActive: lipgloss.NewStyle().
			Background(pink).
			Foreground(lipgloss.Color("#22062f")).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Background(lipgloss.Color("#2a184a")).
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(mint).
			Bold(true),
		footer: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		inputPanel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		inputInvalid: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		helpText:     lipgloss.NewStyle().Foreground(muted),
		button:       lipgloss.NewStyle().Foreground(lipgloss.Color("#22062f")).Background(blue).Padding(0, 1),
		buttonBusy:   lipgloss.NewStyle().Foreground(lipgloss.Color("#22062f")).Background(gold).Padding(0, 1),
		disabled:     lipgloss.NewStyle().Foreground(dim),
		settingKey:   lipgloss.NewStyle().Foreground(blue),
		settingValue: lipgloss.NewStyle().Foreground(text),
		settingPick:  lipgloss.NewStyle().Foreground(pink).Bold(true),
		badge:        lipgloss.NewStyle().Foreground(lipgloss.Color("#22062f")).Background(mint).Padding(0, 1),
		active:       lipgloss.NewStyle().Foreground(mint).Bold(true),
		idle:         lipgloss.NewStyle().Foreground(muted),
		thinking:     lipgloss.NewStyle().Foreground(gold).Italic(true),
		modal: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(blue).
			Padding(1, 2),
		role: map[debate.Role]lipgloss.Style{
			debate.RoleHuman:     lipgloss.NewStyle().Foreground(mint).Bold(true),
			debate.RoleFor:       lipgloss.NewStyle().Foreground(blue).Bold(true),
			debate.RoleAgainst:   lipgloss.NewStyle().Foreground(pink).Bold(true),
			debate.RoleEvaluator: lipgloss.NewStyle().Foreground(gold).Bold(true),
			debate.RoleSystem:    lipgloss.NewStyle().Foreground(muted).Bold(true),
			debate.RoleGeneric:   lipgloss.NewStyle().Foreground(text).Bold(true),
		},
	}
}

func (m model) View() string {
	if m.modal != modalNone {
		return m.theme.root.Render(m.renderModal())
	}
	out := lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderContent(), m.renderFooter())
	return m.theme.root.Render(out)
}

func (m *model) renderHeader() string {
	tabs := []struct {
		id    tabID
		label string
	}{
		{tabDebate, "Debate"},
		{tabModels, "Models"},
		{tabHelp, "Help"},
	}
	segments := make([]string, 0, len(tabs)+3)
	titleStyle := m.theme.title
	if m.highlight {
		titleStyle = m.theme.titlePulse
	}
	segments = append(segments, titleStyle.Render(m.hub.Topic.Title())+" ")
	settingsOpen := m.hub.Controls().SettingsToggle
	for _, tab := range tabs {
		style := m.theme.tabInactive
		if tab.id == m.activeTab {
			style = m.theme.tabActive
		} else if tab.id == tabModels && !settingsOpen {
			style = m.theme.disabled
		}
		segments = append(segments, style.Render(tab.label))
	}
	statusStyle := m.theme.idle
	if m.hub.Status.Active {
		statusStyle = m.theme.active
	}
	segments = append(segments, " "+statusStyle.Render(m.hub.Status.Label()))
	conn := m.theme.errorStatus.Render(" ○ reconnecting")
	if m.connected {
		conn = m.theme.status.Render(" ● live")
	}
	segments = append(segments, conn)
	joined := lipgloss.JoinHorizontal(lipgloss.Left, segments...)
	return m.theme.header.Width(maxInt(20, m.width-4)).Render(joined)
}

func (m *model) renderContent() string {
	contentHeight := maxInt(8, m.height-10)
	contentWidth := maxInt(40, m.width-4)

	switch m.activeTab {
	case tabDebate:
		body := []string{
			m.renderTopicLine(),
			m.timeline.View(),
			m.renderIndicators(),
			m.renderControls(),
		}
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight - m.topicFormHeight())
		out := panel.Render(strings.Join(body, "\n"))
		if m.hub.Controls().TopicFormVisible {
			out = lipgloss.JoinVertical(lipgloss.Left, out, m.renderTopicForm())
		}
		return out
	case tabModels:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		return panel.Render(m.theme.panelTitle.Render("Model Settings") + "\n" + m.renderSettings())
	case tabHelp:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		return panel.Render(m.theme.panelTitle.Render("LLM Debate Help") + "\n" + m.renderHelp())
	default:
		return ""
	}
}

func (m *model) topicFormHeight() int {
	if m.hub.Controls().TopicFormVisible {
		return 3
	}
	return 0
}

func (m *model) renderTopicLine() string {
	t := m.hub.Topic
	line := fmt.Sprintf("Topic: %s · ", nullCoalesce(t.Topic, "(none)"))
	return m.theme.panelTitle.Render(line) +
		m.theme.role[debate.RoleFor].Render(nullCoalesce(t.ForLabel, "For")) +
		m.theme.helpText.Render(" vs ") +
		m.theme.role[debate.RoleAgainst].Render(nullCoalesce(t.AgainstLabel, "Against"))
}

func (m *model) renderIndicators() string {
	typing := m.hub.Indicators.Typing()
	if len(typing) == 0 {
		return ""
	}
	parts := make([]string, 0, len(typing))
	for _, role := range typing {
		parts = append(parts, m.theme.role[role].Render(m.roleLabel(role)+" is typing"))
	}
	return m.spinner.View() + " " + strings.Join(parts, m.theme.helpText.Render(" · "))
}

func (m *model) roleLabel(role debate.Role) string {
	switch role {
	case debate.RoleFor:
		return nullCoalesce(m.hub.Topic.ForLabel, "For")
	case debate.RoleAgainst:
		return nullCoalesce(m.hub.Topic.AgainstLabel, "Against")
	case debate.RoleEvaluator:
		return debate.SpeakerEvaluator
	default:
		return string(role)
	}
}

func (m *model) renderButton(c control, key string, enabled bool) string {
	labels := controlLabels[c]
	if m.busy[c] {
		return m.theme.buttonBusy.Render(labels[1])
	}
	label := fmt.Sprintf("%s %s", key, labels[0])
	if !enabled {
		return m.theme.disabled.Render("[" + label + "]")
	}
	return m.theme.button.Render(label)
}

func (m *model) renderControls() string {
	enable := m.hub.Controls()
	buttons := []string{
		m.renderButton(controlStart, "^S", enable.Start),
		m.renderButton(controlStop, "^X", enable.Stop),
		m.renderButton(controlReset, "^R", enable.Reset),
		m.theme.helpText.Render("^L reload history"),
	}
	return strings.Join(buttons, " ")
}

func (m *model) renderTopicForm() string {
	contentWidth := maxInt(40, m.width-4)
	style := m.theme.inputPanel
	view := m.topicInput.View()
	if m.topicInvalid {
		style = m.theme.inputInvalid
		view += "  " + m.theme.errorStatus.Render(debate.ErrEmptyTopic.Error())
	}
	view += "  " + m.renderButton(controlTopic, "⏎", true)
	return style.Width(contentWidth).Render(view)
}

func (m *model) renderTimeline() string {
	entries := m.hub.View.Entries()
	if len(entries) == 0 {
		return m.theme.helpText.Render("No messages yet. Set a topic, pick models and press Ctrl+S to start.")
	}
	width := maxInt(20, m.timeline.Width-2)
	var b strings.Builder
	for _, e := range entries {
		style, ok := m.theme.role[e.Role]
		if !ok {
			style = m.theme.role[debate.RoleGeneric]
		}
		header := m.theme.helpText.Render(e.Timestamp.Format("15:04:05")) + " " + style.Render(e.Speaker)
		if e.Thinking {
			header += " " + m.theme.thinking.Render("Thinking...")
		}
		b.WriteString(header)
		b.WriteString("\n")
		if body := strings.TrimSpace(e.Content); body != "" {
			b.WriteString(wordwrap.String(body, width))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *model) renderSettings() string {
	rows := m.settingsRows()
	enable := m.hub.Controls()
	idx := clampInt(m.settingsIndex, 0, len(rows)-1)

	var b strings.Builder
	if enable.SettingsDimmed {
		b.WriteString(m.theme.errorStatus.Render("Settings are locked while a debate or model operation is running."))
	} else {
		b.WriteString(m.theme.helpText.Render("↑/↓ select · ←/→ change · Enter pull · d delete"))
	}
	b.WriteString("\n\n")

	var lastInst debate.Instance
	for i, row := range rows {
		if (row.kind == rowModel || row.kind == rowPull) && row.inst != lastInst {
			lastInst = row.inst
			b.WriteString("\n" + m.theme.panelTitle.Render(fmt.Sprintf("%s (%s side)", row.inst, row.inst.Side())))
			if status := m.hub.Models.Status(row.inst); status != "" {
				b.WriteString("  " + m.theme.status.Render(status))
			}
			b.WriteString("\n")
		}
		label, value, enabled := m.settingsRowText(row, enable)
		labelStyle := m.theme.settingKey
		valueStyle := m.theme.settingValue
		prefix := "  "
		if !enabled {
			labelStyle = m.theme.disabled
			valueStyle = m.theme.disabled
		}
		if i == idx {
			labelStyle = m.theme.settingPick
			valueStyle = m.theme.settingPick
			prefix = "▶ "
		}
		b.WriteString(prefix + labelStyle.Render(fmt.Sprintf("%-16s", label)) + " " + valueStyle.Render(value) + "\n")
	}
	return strings.TrimSpace(b.String())
}

func (m *model) settingsRowText(row settingsRow, enable debate.Enablement) (label, value string, enabled bool) {
	switch row.kind {
	case rowSelect:
		value = nullCoalesce(m.hub.Models.Selected(row.inst), "(none)")
		if pending := m.hub.Models.Pending(row.inst); pending != "" {
			value += " (waiting for " + pending + ")"
		}
		return row.inst.Side() + " model", value, enable.ModelSelect
	case rowMaxTurns:
		return "Max turns", m.maxTurns.View(), enable.MaxTurns
	case rowModel:
		value = row.model
		if row.entry.IsDefault {
			value += " " + m.theme.badge.Render("Default")
		} else {
			value += "  [d delete]"
		}
		return "installed", value, enable.PullDelete
	default:
		return "pull", row.model + "  [enter]", enable.PullDelete
	}
}

func (m *model) renderHelp() string {
	lines := []string{
		"Keys",
		"- Tab / Shift+Tab: switch views (Models is closed while a debate runs)",
		"- Enter: set the debate topic when the topic form is shown",
		"- Ctrl+S start · Ctrl+X stop · Ctrl+R reset · Ctrl+L reload history",
		"- Scroll: PgUp/PgDn, Up/Down (topic empty), Home/End, mouse wheel",
		"- Esc: quit prompt (from Debate) or back to Debate",
		"- Ctrl+C: quit",
		"",
		fmt.Sprintf("Server: %s · session: %s", m.cfg.Server.URL, nullCoalesce(m.session.Current(), "pending")),
	}
	if m.connInfo != "" {
		lines = append(lines, "Last transport error: "+m.connInfo)
	}
	lines = append(lines, "", "Recent log")
	if len(m.logs) == 0 {
		lines = append(lines, "- (empty)")
	}
	for _, line := range m.logs {
		lines = append(lines, "- "+line)
	}
	return m.theme.helpText.Render(strings.Join(lines, "\n"))
}

func (m *model) renderFooter() string {
	contentWidth := maxInt(40, m.width-4)
	statusStyle := m.theme.status
	lower := strings.ToLower(m.statusLine)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		statusStyle = m.theme.errorStatus
	}
	line := statusStyle.Render(compactSingleLine(m.statusLine, 180))
	hints := m.theme.helpText.Render("Keys: Tab views · Enter topic · ^S start · ^X stop · ^R reset · ^L history · Esc quit prompt")
	return m.theme.footer.Width(contentWidth).Render(line + "\n" + hints)
}

func (m *model) renderModal() string {
	canvasWidth := maxInt(40, m.width-4)
	canvasHeight := maxInt(12, m.height-4)
	modalWidth := clampInt(int(float64(canvasWidth)*0.56), 42, 78)
	if modalWidth > canvasWidth-2 {
		modalWidth = canvasWidth - 2
	}

	var body string
	switch m.modal {
	case modalQuit:
		body = strings.Join([]string{
			m.theme.errorStatus.Render("QUIT?"),
			m.theme.helpText.Render("Are you sure you want to leave the debate?"),
			"",
			m.theme.settingPick.Render("[Y / Enter] Quit") + "    " + m.theme.helpText.Render("[N / Esc] Return"),
		}, "\n")
	case modalDeleteConfirm:
		row := m.pendingDelete
		body = strings.Join([]string{
			m.theme.errorStatus.Render("DELETE MODEL?"),
			m.theme.helpText.Render(fmt.Sprintf("Delete %s from %s?", row.model, row.inst)),
			"",
			m.theme.settingPick.Render("[Y / Enter] Delete") + "    " + m.theme.helpText.Render("[N / Esc] Cancel"),
		}, "\n")
	default:
		body = strings.Join([]string{
			m.theme.errorStatus.Render("NOTICE"),
			wordwrap.String(m.alertText, maxInt(20, modalWidth-6)),
			"",
			m.theme.settingPick.Render("[Enter] OK"),
		}, "\n")
	}
	panel := m.theme.modal.Width(modalWidth).Render(body)
	return lipgloss.Place(
		canvasWidth,
		canvasHeight,
		lipgloss.Center,
		lipgloss.Center,
		panel,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("#120924")),
	)
}

// renderPanes refreshes the timeline, following the bottom only when the
// conversation asked for it.
func (m *model) renderPanes() {
	prevYOffset := m.timeline.YOffset
	contentHeight := maxInt(8, m.height-10)
	contentWidth := maxInt(40, m.width-4)

	m.timeline.Width = maxInt(20, contentWidth-4)
	m.timeline.Height = maxInt(3, contentHeight-m.topicFormHeight()-5)
	m.timeline.SetContent(m.renderTimeline())
	if m.hub.View.TakeScrollRequest() {
		m.timeline.GotoBottom()
	} else {
		m.timeline.SetYOffset(prevYOffset)
	}
}

func (m *model) resize() {
	contentWidth := maxInt(40, m.width-4)
	m.topicInput.Width = maxInt(20, contentWidth-24)
}
