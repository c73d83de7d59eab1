package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds all application configuration
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	State    StateConfig    `mapstructure:"state"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Browser  BrowserConfig  `mapstructure:"browser"`
}

// CatalogConfig holds the first-party catalog service configuration
type CatalogConfig struct {
	URL string `mapstructure:"url"`
}

// MetadataConfig holds the metadata service (Bangumi) configuration
type MetadataConfig struct {
	URL       string `mapstructure:"url"`
	UserAgent string `mapstructure:"user_agent"` // Bangumi rejects requests without one
	WebURL    string `mapstructure:"web_url"`    // public site hosting subject pages
}

// HTTPConfig holds transport settings shared by both remote clients
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// StateConfig locates the durable local state (session token, list order).
// An empty Path keeps everything in memory.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig tunes the fetch fan-out
type SyncConfig struct {
	Workers int `mapstructure:"workers"` // concurrent per-list fetches
}

// BrowserConfig selects how subject pages are opened.
// An empty Command uses the system default handler.
type BrowserConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			URL: "https://api.spie.cc",
		},
		Metadata: MetadataConfig{
			URL:       "https://api.bgm.tv",
			UserAgent: "animetrack/1.0 (https://github.com/spiecc/animetrack)",
			WebURL:    "https://bgm.tv",
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		State: StateConfig{
			Path: filepath.Join(defaultDataPath(), "state.db"),
		},
		Sync: SyncConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			File:       filepath.Join(defaultDataPath(), "animetrack.log"),
			Level:      "INFO",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "animetrack")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "animetrack")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "animetrack")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "animetrack")
	}
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.New(), defaultConfigPath(), ".")
}

// LoadConfigFrom loads configuration using v, searching the given directories
// for config.yaml. Missing files fall back to defaults.
func LoadConfigFrom(v *viper.Viper, dirs ...string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	// Environment variable overrides (ANIMETRACK_CATALOG_URL, ...)
	v.SetEnvPrefix("ANIMETRACK")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can override keys
// that are absent from the config file.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("catalog.url", cfg.Catalog.URL)
	v.SetDefault("metadata.url", cfg.Metadata.URL)
	v.SetDefault("metadata.user_agent", cfg.Metadata.UserAgent)
	v.SetDefault("metadata.web_url", cfg.Metadata.WebURL)
	v.SetDefault("http.timeout", cfg.HTTP.Timeout)
	v.SetDefault("state.path", cfg.State.Path)
	v.SetDefault("sync.workers", cfg.Sync.Workers)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("browser.command", cfg.Browser.Command)
	v.SetDefault("browser.args", cfg.Browser.Args)
}

// SaveConfig writes cfg to config.yaml in the default config directory
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(viper.New(), cfg, defaultConfigPath())
}

// SaveConfigTo writes cfg to dir/config.yaml
func SaveConfigTo(v *viper.Viper, cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("catalog.url", cfg.Catalog.URL)
	v.Set("metadata.url", cfg.Metadata.URL)
	v.Set("metadata.user_agent", cfg.Metadata.UserAgent)
	v.Set("metadata.web_url", cfg.Metadata.WebURL)
	v.Set("http.timeout", cfg.HTTP.Timeout.String())
	v.Set("state.path", cfg.State.Path)
	v.Set("sync.workers", cfg.Sync.Workers)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.Set("logging.max_backups", cfg.Logging.MaxBackups)
	v.Set("browser.command", cfg.Browser.Command)
	v.Set("browser.args", cfg.Browser.Args)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configuration that can't work
func (c *Config) Validate() error {
	if c.Catalog.URL == "" {
		return fmt.Errorf("catalog.url is required")
	}
	if c.Metadata.URL == "" {
		return fmt.Errorf("metadata.url is required")
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive, got %d", c.Sync.Workers)
	}
	return nil
}
