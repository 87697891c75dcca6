package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lunatic-run/plugin/internal/config"
	"github.com/lunatic-run/plugin/internal/registry"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Manage wasm plugins",
	Long:  `Install, list, and inspect the wasm plugins lunaticplugd loads at startup.`,
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugins",
	Long:  `List every plugin recorded in the local install ledger.`,
	RunE:  runPluginList,
}

var pluginInstallCmd = &cobra.Command{
	Use:   "install [path-to-wasm]",
	Short: "Install a plugin from a local wasm file",
	Long: `Copy a compiled wasm module into the plugin directory and record it
in the install ledger. The running daemon picks up newly installed plugins on
its next restart; installation here never touches a live daemon process.`,
	Args: cobra.ExactArgs(1),
	RunE: runPluginInstall,
}

var pluginUninstallCmd = &cobra.Command{
	Use:   "uninstall [name]",
	Short: "Uninstall a plugin",
	Long:  `Remove a plugin's wasm file and its install-ledger entry.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginUninstall,
}

var pluginInfoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show plugin ledger information",
	Long:  `Display the install-ledger record for a plugin.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginInfo,
}

func init() {
	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginInstallCmd)
	pluginCmd.AddCommand(pluginUninstallCmd)
	pluginCmd.AddCommand(pluginInfoCmd)
}

func openLedger() (*registry.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	store, err := registry.OpenStore(cfg.Registry.LedgerPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening install ledger: %w", err)
	}
	return store, cfg, nil
}

func runPluginList(cmd *cobra.Command, args []string) error {
	store, _, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListInstalled()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("(no plugins installed)")
		return nil
	}

	fmt.Println("Name                 | Version | SHA256 (12)  | Signed | Installed")
	fmt.Println("---------------------|---------|--------------|--------|-------------------")
	for _, r := range records {
		signed := "no"
		if r.SignatureVerified {
			signed = "yes"
		}
		hashPrefix := r.SHA256
		if len(hashPrefix) > 12 {
			hashPrefix = hashPrefix[:12]
		}
		fmt.Printf("%-20s | %-7s | %-12s | %-6s | %s\n",
			r.Name, r.Version, hashPrefix, signed, r.InstalledAt.Format(time.RFC3339))
	}
	return nil
}

func runPluginInstall(cmd *cobra.Command, args []string) error {
	srcPath := args[0]
	wasm, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}

	store, cfg, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	name := pluginNameFromPath(srcPath)
	installed, err := store.IsInstalled(name)
	if err != nil {
		return err
	}
	if installed && cfg.Registry.RejectReinstall {
		return fmt.Errorf("plugin %q is already installed; uninstall first to replace it", name)
	}

	if err := os.MkdirAll(cfg.Registry.PluginDir, 0755); err != nil {
		return fmt.Errorf("creating plugin directory: %w", err)
	}
	destPath := filepath.Join(cfg.Registry.PluginDir, name+".wasm")
	if err := os.WriteFile(destPath, wasm, 0644); err != nil {
		return fmt.Errorf("writing plugin file: %w", err)
	}

	hash := registry.HashWasm(wasm)
	if err := store.RecordInstall(name, "0.0.0", hash, false, time.Now()); err != nil {
		return err
	}

	fmt.Printf("✓ plugin %q installed (%s)\n", name, destPath)
	return nil
}

func runPluginUninstall(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, cfg, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	installed, err := store.IsInstalled(name)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("plugin %q is not installed", name)
	}

	wasmPath := filepath.Join(cfg.Registry.PluginDir, name+".wasm")
	if err := os.Remove(wasmPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing plugin file: %w", err)
	}
	if err := store.RemoveInstall(name); err != nil {
		return err
	}

	fmt.Printf("✓ plugin %q uninstalled\n", name)
	return nil
}

func runPluginInfo(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, _, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListInstalled()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Name == name {
			fmt.Printf("Plugin:     %s\n", r.Name)
			fmt.Printf("Version:    %s\n", r.Version)
			fmt.Printf("SHA256:     %s\n", r.SHA256)
			fmt.Printf("Signed:     %v\n", r.SignatureVerified)
			fmt.Printf("Installed:  %s\n", r.InstalledAt.Format(time.RFC3339))
			return nil
		}
	}
	fmt.Printf("plugin %q not found\n", name)
	return nil
}

func pluginNameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
