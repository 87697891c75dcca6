// Package tui implements the Bubble Tea terminal user interface.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lunatic-run/plugin/internal/lifecycle"
	"github.com/lunatic-run/plugin/internal/registry"
)

// Model is the root TUI state. There is a single view: the registered
// plugins in reg, live. There is nothing else to tab between — lunaticplugd
// has no dashboard, task queue, or log stream, only a plugin registry.
type Model struct {
	width, height int
	help          help.Model
	keys          keyMap
	pluginManager *PluginManagerModel
	reg           *registry.Registry
	initialized   bool
}

// keyMap defines the root key bindings.
type keyMap struct {
	Quit key.Binding
	Help key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Help},
	}
}

var defaultKeyMap = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// NewModel creates the root TUI model over reg. dispatcher is optional.
func NewModel(reg *registry.Registry, dispatcher *lifecycle.Dispatcher) Model {
	return Model{
		help:          help.New(),
		keys:          defaultKeyMap,
		pluginManager: NewPluginManagerModel(reg, dispatcher),
		reg:           reg,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.pluginManager.Init(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.initialized = true

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, key.NewBinding(key.WithKeys("R"))):
			m.pluginManager.Refresh(m.reg)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.pluginManager, cmd = m.pluginManager.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.initialized {
		return "Loading..."
	}

	header := titleStyle.Render("lunaticplugd — plugin registry")
	contentHeight := m.height - 4
	content := m.pluginManager.View(m.width, contentHeight)
	helpView := m.help.View(m.keys)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, helpView)
}
