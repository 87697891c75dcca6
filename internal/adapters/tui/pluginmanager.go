package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lunatic-run/plugin/internal/lifecycle"
	"github.com/lunatic-run/plugin/internal/plugin"
	"github.com/lunatic-run/plugin/internal/registry"
)

// PluginItem is one registered plugin, as shown in the plugin list.
type PluginItem struct {
	Name         string
	Version      string
	Capabilities []string
	Dependencies []string
}

func (p PluginItem) Title() string {
	return fmt.Sprintf("🔌 %s v%s", p.Name, p.Version)
}

func (p PluginItem) Description() string {
	if len(p.Capabilities) == 0 {
		return "(no declared capabilities)"
	}
	return strings.Join(p.Capabilities, ", ")
}

func (p PluginItem) FilterValue() string {
	return p.Name + " " + strings.Join(p.Capabilities, " ")
}

// PluginManagerModel is a read-only live view over a Registry: every
// registered plugin, its declared capabilities, and its dependency list.
// There is no install/uninstall/enable/disable here — the registry only ever
// grows, by design, and mutation happens through the CLI's install path
// writing to the ledger the daemon reads at startup.
type PluginManagerModel struct {
	list  list.Model
	items []PluginItem

	dispatcher *lifecycle.Dispatcher

	width, height int
	showDetails   bool
	selected      *PluginItem

	keys pluginManagerKeyMap
}

type pluginManagerKeyMap struct {
	Details key.Binding
	Refresh key.Binding
	Back    key.Binding
}

func defaultPluginManagerKeyMap() pluginManagerKeyMap {
	return pluginManagerKeyMap{
		Details: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Refresh: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// NewPluginManagerModel snapshots reg's currently registered plugins.
// dispatcher is optional; when set, the view's footer shows its recent
// lifecycle notifications.
func NewPluginManagerModel(reg *registry.Registry, dispatcher *lifecycle.Dispatcher) *PluginManagerModel {
	items := snapshotItems(reg)

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(primaryColor).BorderForeground(primaryColor)

	listItems := make([]list.Item, len(items))
	for i, it := range items {
		listItems[i] = it
	}
	l := list.New(listItems, delegate, 80, 15)
	l.Title = "🔌 Registered Plugins"
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return &PluginManagerModel{
		list:       l,
		items:      items,
		dispatcher: dispatcher,
		keys:       defaultPluginManagerKeyMap(),
	}
}

func snapshotItems(reg *registry.Registry) []PluginItem {
	plugins := reg.All()
	items := make([]PluginItem, 0, len(plugins))
	for _, p := range plugins {
		items = append(items, PluginItem{
			Name:         p.Info.Name,
			Version:      p.Info.Version.String(),
			Capabilities: capabilityLabels(p.Info.Capabilities),
			Dependencies: dependencyLabels(p.Info.Dependencies),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func capabilityLabels(caps []plugin.Capability) []string {
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		switch c.Kind {
		case plugin.CapabilityHostFunctions:
			out = append(out, string(c.Kind)+":"+c.Namespace)
		case plugin.CapabilityFilesystem:
			out = append(out, string(c.Kind)+":"+strings.Join(c.Paths, ","))
		default:
			out = append(out, string(c.Kind))
		}
	}
	return out
}

func dependencyLabels(deps []plugin.PluginDependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		constraint := ""
		if d.VersionReq != nil {
			constraint = d.VersionReq.String()
		}
		out = append(out, fmt.Sprintf("%s %s", d.Name, constraint))
	}
	return out
}

// Init initializes the plugin manager.
func (m *PluginManagerModel) Init() tea.Cmd {
	return nil
}

// Update handles plugin manager updates.
func (m *PluginManagerModel) Update(msg tea.Msg) (*PluginManagerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetWidth(msg.Width - 4)
		m.list.SetHeight(msg.Height - 8)

	case tea.KeyMsg:
		if m.showDetails {
			if key.Matches(msg, m.keys.Back) {
				m.showDetails = false
				m.selected = nil
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Details):
			if item, ok := m.list.SelectedItem().(PluginItem); ok {
				m.selected = &item
				m.showDetails = true
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Refresh re-snapshots reg's registered plugins into the list.
func (m *PluginManagerModel) Refresh(reg *registry.Registry) {
	m.items = snapshotItems(reg)
	listItems := make([]list.Item, len(m.items))
	for i, it := range m.items {
		listItems[i] = it
	}
	m.list.SetItems(listItems)
}

// View renders the plugin manager.
func (m *PluginManagerModel) View(width, height int) string {
	if m.width == 0 {
		m.width = width
		m.height = height
		m.list.SetWidth(width - 4)
		m.list.SetHeight(height - 8)
	}

	if m.showDetails && m.selected != nil {
		return m.renderDetails()
	}

	helpBar := subtitleStyle.Render("[enter] details | [R] refresh | [/] search")

	sections := []string{m.list.View()}
	if events := m.renderRecentEvents(); events != "" {
		sections = append(sections, events)
	}
	sections = append(sections, "", helpBar)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *PluginManagerModel) renderRecentEvents() string {
	if m.dispatcher == nil {
		return ""
	}
	recent := m.dispatcher.RecentEvents()
	if len(recent) == 0 {
		return ""
	}

	start := 0
	if len(recent) > 8 {
		start = len(recent) - 8
	}

	var lines []string
	for _, r := range recent[start:] {
		status := "dispatched"
		if r.Err != nil {
			status = "failed"
		}
		lines = append(lines, fmt.Sprintf("%s  %s → %s", renderStatus(status), r.Plugin, r.Export))
	}

	return boxStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			append([]string{subtitleStyle.Render("Recent lifecycle events")}, lines...)...,
		),
	)
}

func (m *PluginManagerModel) renderDetails() string {
	p := m.selected
	header := titleStyle.Render(fmt.Sprintf("🔌 Plugin: %s", p.Name))

	caps := "(none)"
	if len(p.Capabilities) > 0 {
		caps = "• " + strings.Join(p.Capabilities, "\n  • ")
	}
	deps := "(none)"
	if len(p.Dependencies) > 0 {
		deps = "• " + strings.Join(p.Dependencies, "\n  • ")
	}

	details := fmt.Sprintf(`
Name:         %s
Version:      %s

Capabilities:
  %s

Dependencies:
  %s
`,
		p.Name, p.Version, caps, deps,
	)

	helpBar := subtitleStyle.Render("[Esc] back")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		boxStyle.Width(m.width-4).Render(details),
		"",
		helpBar,
	)
}
