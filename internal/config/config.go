// Package config provides typed configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Core     CoreConfig     `mapstructure:"core"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Registry RegistryConfig `mapstructure:"registry"`
	Dev      DevConfig      `mapstructure:"dev"`
}

// CoreConfig holds core daemon settings.
type CoreConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// EngineConfig holds wazero engine settings.
type EngineConfig struct {
	// MemoryLimitPages is a per-instance linear-memory limit in pages, 0
	// meaning unbounded. It is loaded and checked by Validate (must not be
	// negative); the registry does not apply it to the wazero runtime it builds.
	MemoryLimitPages int `mapstructure:"memory_limit_pages"`
	// CompilationCacheDir names a directory for wazero's compiled-module
	// cache. It is loaded only; the registry does not configure a cache from it.
	CompilationCacheDir string `mapstructure:"compilation_cache_dir"`
}

// RegistryConfig holds plugin-registry and install-ledger settings.
type RegistryConfig struct {
	PluginDir      string `mapstructure:"plugin_dir"`
	LedgerPath     string `mapstructure:"ledger_path"`
	RejectReinstall bool  `mapstructure:"reject_reinstall"`
}

// DevConfig holds development settings.
type DevConfig struct {
	Debug bool `mapstructure:"debug"`
}

// Load loads configuration from environment and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := loadEnvFile(v); err != nil {
		// .env file is optional, don't fail
		_ = err
	}

	v.SetEnvPrefix("LUNATIC")
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := loadConfigFile(v); err != nil {
		// Config file is optional
		_ = err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("core.data_dir", getDefaultDataDir())
	v.SetDefault("core.log_level", "info")
	v.SetDefault("core.log_json", false)

	v.SetDefault("engine.memory_limit_pages", 0)
	v.SetDefault("engine.compilation_cache_dir", "")

	v.SetDefault("registry.plugin_dir", filepath.Join(getDefaultDataDir(), "plugins"))
	v.SetDefault("registry.ledger_path", filepath.Join(getDefaultDataDir(), "registry.db"))
	v.SetDefault("registry.reject_reinstall", true)

	v.SetDefault("dev.debug", false)
}

// bindEnvVars binds environment variables to config keys.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("core.data_dir", "LUNATIC_DATA_DIR")
	_ = v.BindEnv("core.log_level", "LUNATIC_LOG_LEVEL")
	_ = v.BindEnv("core.log_json", "LUNATIC_LOG_JSON")

	_ = v.BindEnv("engine.memory_limit_pages", "LUNATIC_MEMORY_LIMIT_PAGES")
	_ = v.BindEnv("engine.compilation_cache_dir", "LUNATIC_COMPILATION_CACHE_DIR")

	_ = v.BindEnv("registry.plugin_dir", "LUNATIC_PLUGIN_DIR")
	_ = v.BindEnv("registry.ledger_path", "LUNATIC_LEDGER_PATH")
	_ = v.BindEnv("registry.reject_reinstall", "LUNATIC_REJECT_REINSTALL")

	_ = v.BindEnv("dev.debug", "LUNATIC_DEBUG")
}

// loadEnvFile loads .env file if it exists.
func loadEnvFile(v *viper.Viper) error {
	if _, err := os.Stat(".env"); err == nil {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		return v.MergeInConfig()
	}
	return nil
}

// loadConfigFile loads config.yaml if it exists.
func loadConfigFile(v *viper.Viper) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	lunaticDir := filepath.Join(home, ".lunatic")
	v.AddConfigPath(lunaticDir)
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	return v.MergeInConfig()
}

// getDefaultDataDir returns the default data directory.
func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lunatic/data"
	}
	return filepath.Join(home, ".lunatic", "data")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.MemoryLimitPages < 0 {
		return fmt.Errorf("engine.memory_limit_pages must not be negative")
	}
	if c.Registry.PluginDir == "" {
		return fmt.Errorf("registry.plugin_dir must not be empty")
	}
	return nil
}
