package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lunatic-run/plugin/internal/adapters/tui"
	"github.com/lunatic-run/plugin/internal/lifecycle"
	"github.com/lunatic-run/plugin/internal/logging"
	"github.com/lunatic-run/plugin/internal/registry"
)

var uiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Open the terminal user interface",
	Long: `Open the interactive terminal user interface (TUI).

The TUI shows every plugin currently recorded in the install ledger,
compiled against its own wazero runtime exactly as the daemon would load
them, with their declared capabilities and dependencies.`,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, cfg, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	reg := registry.New(ctx)
	defer reg.Close(ctx)

	if _, err := registry.LoadInstalled(ctx, reg, store, cfg.Registry.PluginDir); err != nil {
		return fmt.Errorf("loading installed plugins: %w", err)
	}

	dispatcher := lifecycle.New(reg.Engine(), reg.LifecyclePlugins(), logging.NopLogger{})
	for _, pl := range reg.LifecyclePlugins() {
		dispatcher.Dispatch(ctx, lifecycle.Event{Kind: lifecycle.ModuleLoaded, ModuleName: pl.Info.Name})
	}

	model := tui.NewModel(reg, dispatcher)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	return nil
}
