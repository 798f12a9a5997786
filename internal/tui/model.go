// Package tui is the forgectl terminal client: a settings form over
// the provider credentials and the Asana integration, plus a webhook
// panel driven by the lifecycle controller.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Strob0t/TaskForge/internal/domain/provider"
	"github.com/Strob0t/TaskForge/internal/domain/settings"
	"github.com/Strob0t/TaskForge/internal/domain/webhook"
	"github.com/Strob0t/TaskForge/internal/form"
	"github.com/Strob0t/TaskForge/internal/port/notifier"
	api "github.com/Strob0t/TaskForge/internal/port/settingsapi"
	"github.com/Strob0t/TaskForge/internal/reconcile"
	"github.com/Strob0t/TaskForge/internal/statecache"
	"github.com/Strob0t/TaskForge/internal/webhookflow"
)

var (
	styleHeader    = lipgloss.NewStyle().Bold(true)
	styleSection   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleMuted     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleKey       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	styleStatusOK  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleStatusErr = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleStatusWrn = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

type field struct {
	key    form.Key
	label  string
	secret bool
	input  textinput.Model
}

type model struct {
	client api.API

	tracker       *form.Tracker
	engine        *reconcile.Engine
	flow          *webhookflow.Controller
	settingsCache *statecache.Cache[*settings.Settings]
	statusCache   *statecache.Cache[*webhook.Status]
	toasts        chan notifier.Notification

	fields []field
	focus  int

	status string
	level  notifier.Level
	saving bool
	loaded bool
	width  int
	height int
}

type settingsLoadedMsg struct {
	settings *settings.Settings
	err      error
}

type statusLoadedMsg struct {
	err error
}

type submitDoneMsg struct {
	result reconcile.Result
}

type webhookDoneMsg struct {
	err error
}

type toastMsg notifier.Notification

// New builds the forgectl model around a settings API client.
func New(client api.API, settingsCache *statecache.Cache[*settings.Settings], statusCache *statecache.Cache[*webhook.Status]) tea.Model {
	toasts := make(chan notifier.Notification, 16)
	sink := notifier.Func(func(_ context.Context, n notifier.Notification) {
		select {
		case toasts <- n:
		default:
		}
	})

	tracker := form.NewTracker()
	m := model{
		client:        client,
		tracker:       tracker,
		engine:        reconcile.NewEngine(client, tracker, sink),
		flow:          webhookflow.NewController(client, settingsCache, statusCache, sink),
		settingsCache: settingsCache,
		statusCache:   statusCache,
		toasts:        toasts,
		status:        "loading settings",
	}
	m.buildFields()
	return m
}

func (m *model) buildFields() {
	add := func(key form.Key, label string, secret bool) {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		if secret {
			in.EchoMode = textinput.EchoPassword
			in.Placeholder = "(not set)"
		}
		m.fields = append(m.fields, field{key: key, label: label, secret: secret, input: in})
	}

	for _, id := range provider.All {
		add(form.TokenKey(id), string(id)+" token", true)
		add(form.HostKey(id), string(id)+" host", false)
	}
	add(form.KeyAsanaToken, "asana token", true)
	add(form.KeyAsanaAgentUser, "asana agent user", false)
	add(form.KeyAsanaWorkspace, "asana workspace", false)
	add(form.KeyAsanaProject, "asana project", false)

	m.fields[0].input.Focus()
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadSettingsCmd(), m.refreshStatusCmd(), m.waitToastCmd())
}

func (m model) loadSettingsCmd() tea.Cmd {
	return func() tea.Msg {
		s, err := m.settingsCache.Get(context.Background())
		return settingsLoadedMsg{settings: s, err: err}
	}
}

func (m model) refreshStatusCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.flow.RefreshStatus(context.Background())
		return statusLoadedMsg{err: err}
	}
}

func (m model) submitCmd(snap reconcile.Snapshot) tea.Cmd {
	return func() tea.Msg {
		res := m.engine.Submit(context.Background(), snap)
		if res.CredentialsSent || res.IntegrationSent {
			m.settingsCache.Invalidate()
		}
		return submitDoneMsg{result: res}
	}
}

func (m model) createWebhookCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.flow.Create(context.Background())
		return webhookDoneMsg{err: err}
	}
}

func (m model) deleteWebhookCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.flow.Delete(context.Background())
		return webhookDoneMsg{err: err}
	}
}

func (m model) waitToastCmd() tea.Cmd {
	return func() tea.Msg {
		return toastMsg(<-m.toasts)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case settingsLoadedMsg:
		if msg.err != nil {
			m.status = "failed to load settings: " + msg.err.Error()
			m.level = notifier.LevelError
			return m, nil
		}
		m.applySettings(msg.settings)
		if !m.loaded {
			m.loaded = true
			m.status = "settings loaded"
			m.level = notifier.LevelInfo
		}
		return m, nil

	case statusLoadedMsg:
		if msg.err != nil {
			m.status = "webhook status: " + msg.err.Error()
			m.level = notifier.LevelError
		}
		return m, nil

	case submitDoneMsg:
		m.saving = false
		if msg.result.CredentialsSent || msg.result.IntegrationSent {
			return m, m.loadSettingsCmd()
		}
		m.status = "nothing to save"
		m.level = notifier.LevelInfo
		return m, nil

	case webhookDoneMsg:
		cmds := []tea.Cmd{m.refreshStatusCmd()}
		if msg.err == nil {
			cmds = append(cmds, m.loadSettingsCmd())
		}
		return m, tea.Batch(cmds...)

	case toastMsg:
		m.status = msg.Message
		m.level = msg.Level
		return m, m.waitToastCmd()

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "tab", "down":
		m.moveFocus(1)
		return m, nil

	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil

	case "ctrl+s":
		if m.saving {
			return m, nil
		}
		if m.tracker.IsClean() {
			m.status = "no changes to save"
			m.level = notifier.LevelInfo
			return m, nil
		}
		m.saving = true
		m.status = "saving"
		m.level = notifier.LevelInfo
		return m, m.submitCmd(m.snapshot())

	case "ctrl+w":
		if !m.flow.CanMutate() {
			m.status = "webhook action unavailable"
			m.level = notifier.LevelError
			return m, nil
		}
		m.status = "registering webhook"
		m.level = notifier.LevelInfo
		return m, m.createWebhookCmd()

	case "ctrl+x":
		if !m.flow.CanMutate() {
			m.status = "webhook action unavailable"
			m.level = notifier.LevelError
			return m, nil
		}
		m.status = "removing webhook"
		m.level = notifier.LevelInfo
		return m, m.deleteWebhookCmd()

	case "ctrl+r":
		m.status = "refreshing"
		m.level = notifier.LevelInfo
		m.settingsCache.Invalidate()
		m.statusCache.Invalidate()
		return m, tea.Batch(m.loadSettingsCmd(), m.refreshStatusCmd())
	}

	f := &m.fields[m.focus]
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	if isEditKey(msg) {
		m.tracker.MarkTouched(f.key, f.input.Value() != "")
	}
	return m, cmd
}

// isEditKey filters navigation keys out of the touch tracking so that
// moving the cursor through a field never marks it dirty.
func isEditKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace, tea.KeyBackspace, tea.KeyDelete, tea.KeyCtrlU, tea.KeyCtrlK:
		return true
	default:
		return false
	}
}

func (m *model) moveFocus(delta int) {
	m.fields[m.focus].input.Blur()
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	m.fields[m.focus].input.Focus()
}

// applySettings refreshes placeholders and prefills from the read
// model. Untouched fields follow the server; a touched field keeps the
// user's edit until it is submitted.
func (m *model) applySettings(s *settings.Settings) {
	for i := range m.fields {
		f := &m.fields[i]
		if m.tracker.Touched(f.key) {
			continue
		}
		switch {
		case f.key == form.KeyAsanaToken:
			f.input.Placeholder = secretPlaceholder(s.Asana.AccessTokenSet)
		case f.key == form.KeyAsanaAgentUser:
			f.input.SetValue(s.Asana.AgentUserID)
		case f.key == form.KeyAsanaWorkspace:
			f.input.SetValue(s.Asana.WorkspaceID)
		case f.key == form.KeyAsanaProject:
			f.input.SetValue(s.Asana.ProjectID)
		default:
			for _, id := range provider.All {
				ps := s.Providers[id]
				if f.key == form.TokenKey(id) {
					f.input.Placeholder = secretPlaceholder(ps.TokenSet)
				}
				if f.key == form.HostKey(id) {
					f.input.SetValue(ps.Host)
				}
			}
		}
	}
}

func secretPlaceholder(set bool) string {
	if set {
		return "(set, leave empty to keep)"
	}
	return "(not set)"
}

// snapshot collects the raw form values for the reconcile engine.
func (m model) snapshot() reconcile.Snapshot {
	snap := reconcile.Snapshot{Providers: make(map[provider.ID]reconcile.ProviderInput)}
	values := make(map[form.Key]string, len(m.fields))
	for _, f := range m.fields {
		values[f.key] = f.input.Value()
	}
	for _, id := range provider.All {
		if m.tracker.Touched(form.TokenKey(id)) || m.tracker.Touched(form.HostKey(id)) {
			snap.Providers[id] = reconcile.ProviderInput{
				Token: values[form.TokenKey(id)],
				Host:  values[form.HostKey(id)],
			}
		}
	}
	snap.Asana = reconcile.AsanaInput{
		AccessToken: values[form.KeyAsanaToken],
		AgentUserID: values[form.KeyAsanaAgentUser],
		WorkspaceID: values[form.KeyAsanaWorkspace],
		ProjectID:   values[form.KeyAsanaProject],
	}
	return snap
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTop())
	b.WriteString("\n\n")
	b.WriteString(m.renderForm())
	b.WriteString("\n")
	b.WriteString(m.renderWebhookPanel())
	b.WriteString("\n")
	b.WriteString(m.help())
	return b.String()
}

func (m model) renderTop() string {
	left := styleHeader.Render("forgectl") + " " + styleMuted.Render("settings")
	st := m.status
	styled := styleStatusOK.Render(st)
	switch m.level {
	case notifier.LevelError:
		styled = styleStatusErr.Render(st)
	case notifier.LevelInfo:
		styled = styleMuted.Render(st)
	}
	return left + " | " + styled
}

func (m model) renderForm() string {
	var b strings.Builder
	section := ""
	for i, f := range m.fields {
		sec := sectionOf(f.key)
		if sec != section {
			if section != "" {
				b.WriteString("\n")
			}
			b.WriteString(styleSection.Render(sec) + "\n")
			section = sec
		}
		label := fmt.Sprintf("%-18s", f.label)
		if i == m.focus {
			label = styleKey.Render(label)
		}
		dirty := " "
		if m.tracker.Touched(f.key) {
			dirty = "*"
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", dirty, label, f.input.View()))
	}
	return b.String()
}

func sectionOf(key form.Key) string {
	if strings.HasPrefix(string(key), "asana.") {
		return "Asana integration"
	}
	return "Git providers"
}

func (m model) renderWebhookPanel() string {
	state := m.flow.DisplayState()
	var b strings.Builder
	b.WriteString(styleSection.Render("Webhook") + "\n")

	label, style := describeState(state)
	b.WriteString("state: " + style.Render(label) + "\n")

	if st, ok := m.statusCache.Peek(); ok && st != nil {
		if st.ErrorMessage != "" {
			b.WriteString(styleStatusErr.Render(st.ErrorMessage) + "\n")
		}
		if st.IsRegistered {
			b.WriteString(styleMuted.Render("target: "+st.TargetURL) + "\n")
		}
	}
	return b.String()
}

func describeState(state webhook.DisplayState) (string, lipgloss.Style) {
	switch state {
	case webhook.StateChecking:
		return "checking", styleMuted
	case webhook.StateNeedsConfig:
		return "needs configuration", styleStatusWrn
	case webhook.StateError:
		return "error", styleStatusErr
	case webhook.StateActive:
		return "active", styleStatusOK
	case webhook.StateInactive:
		return "registered (inactive)", styleStatusWrn
	default:
		return "not registered", styleMuted
	}
}

// webhookActionLabel names the create action for the current state: once a
// webhook exists the same key recreates it (delete matching, then register).
func webhookActionLabel(state webhook.DisplayState) string {
	switch state {
	case webhook.StateActive, webhook.StateInactive:
		return "Recreate webhook"
	default:
		return "Register webhook"
	}
}

func (m model) help() string {
	var b strings.Builder
	b.WriteString(styleKey.Render("[Tab]"))
	b.WriteString(" Next  ")
	b.WriteString(styleKey.Render("[Ctrl+S]"))
	b.WriteString(" Save  ")
	b.WriteString(styleKey.Render("[Ctrl+W]"))
	b.WriteString(" " + webhookActionLabel(m.flow.DisplayState()) + "  ")
	b.WriteString(styleKey.Render("[Ctrl+X]"))
	b.WriteString(" Remove webhook  ")
	b.WriteString(styleKey.Render("[Ctrl+R]"))
	b.WriteString(" Reload  ")
	b.WriteString(styleKey.Render("[Esc]"))
	b.WriteString(" Quit")
	return b.String()
}

// Run starts the forgectl TUI program.
func Run(client api.API, settingsCache *statecache.Cache[*settings.Settings], statusCache *statecache.Cache[*webhook.Status]) error {
	p := tea.NewProgram(New(client, settingsCache, statusCache), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
