package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"inkwell/internal/errors"

	"gopkg.in/yaml.v3"
)

// Filter is a named set of file extensions offered by the file dialogs.
// The extension "*" matches every file.
type Filter struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
}

// Config represents the application configuration structure.
type Config struct {
	Gateway struct {
		Addr    string   `yaml:"addr"`    // Listen address for the UI command surface
		Token   string   `yaml:"token"`   // Shared token the UI must present; empty disables the check
		Origins []string `yaml:"origins"` // Allowed WebSocket origin patterns
	} `yaml:"gateway"`
	Dialogs struct {
		StartDir    string   `yaml:"start_dir"`    // Initial dialog location, not a restriction
		OpenFilters []Filter `yaml:"open_filters"` // Filters offered when opening
		SaveFilters []Filter `yaml:"save_filters"` // Filters offered when saving
	} `yaml:"dialogs"`
	Editor struct {
		Workers              int    `yaml:"workers"`                // Blocking worker pool size
		FileMode             string `yaml:"file_mode"`              // Octal permissions for newly created files
		WatchExternalChanges bool   `yaml:"watch_external_changes"` // Notify the UI when the file changes on disk
	} `yaml:"editor"`
	Window struct {
		Title  string  `yaml:"title"`
		Width  float32 `yaml:"width"`
		Height float32 `yaml:"height"`
	} `yaml:"window"`
	Log struct {
		Level string `yaml:"level"` // debug, info, warn or error
		JSON  bool   `yaml:"json"`
		File  string `yaml:"file"` // Optional file to tee log lines into
	} `yaml:"log"`
}

// DefaultPath returns ~/.config/inkwell/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewConfigError("could not determine home directory", "", errors.ConfigNotFound, err)
	}
	return filepath.Join(home, ".config", "inkwell", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "error reading config file %s", path)
	}

	// Fields absent from the file keep their defaults; lists present in the
	// file replace the default lists wholesale.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Gateway.Addr = "127.0.0.1:1421"
	cfg.Gateway.Origins = []string{"localhost", "localhost:*", "127.0.0.1", "127.0.0.1:*", "[::1]", "[::1]:*", "tauri.localhost", "wails.localhost"}

	cfg.Dialogs.OpenFilters = []Filter{
		{Name: "Markdown", Extensions: []string{"md", "markdown", "txt"}},
		{Name: "All Files", Extensions: []string{"*"}},
	}
	cfg.Dialogs.SaveFilters = []Filter{
		{Name: "Markdown", Extensions: []string{"md"}},
		{Name: "Text", Extensions: []string{"txt"}},
		{Name: "All Files", Extensions: []string{"*"}},
	}

	cfg.Editor.Workers = 4
	cfg.Editor.FileMode = "0644"
	cfg.Editor.WatchExternalChanges = true

	cfg.Window.Title = "Inkwell"
	cfg.Window.Width = 480
	cfg.Window.Height = 120

	cfg.Log.Level = "info"

	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrInvalidConfig
	}

	if _, _, err := net.SplitHostPort(c.Gateway.Addr); err != nil {
		return errors.NewConfigError("invalid listen address", "gateway.addr", errors.InvalidConfig, err)
	}

	if c.Editor.Workers < 1 {
		return errors.NewConfigError("must be at least 1", "editor.workers", errors.InvalidConfig, nil)
	}

	if _, err := c.FileMode(); err != nil {
		return err
	}

	for i, f := range c.Dialogs.OpenFilters {
		if err := validateFilter(f); err != nil {
			return errors.NewConfigError("invalid filter", fmt.Sprintf("dialogs.open_filters[%d]", i), errors.InvalidConfig, err)
		}
	}
	for i, f := range c.Dialogs.SaveFilters {
		if err := validateFilter(f); err != nil {
			return errors.NewConfigError("invalid filter", fmt.Sprintf("dialogs.save_filters[%d]", i), errors.InvalidConfig, err)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewConfigError("unknown level "+strconv.Quote(c.Log.Level), "log.level", errors.InvalidConfig, nil)
	}

	return nil
}

func validateFilter(f Filter) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(f.Extensions) == 0 {
		return fmt.Errorf("%s: at least one extension is required", f.Name)
	}
	for _, ext := range f.Extensions {
		if ext == "" || strings.ContainsAny(ext, `/\{},[]`) {
			return fmt.Errorf("%s: bad extension %q", f.Name, ext)
		}
	}
	return nil
}

// FileMode parses Editor.FileMode as octal permissions.
func (c *Config) FileMode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(strings.TrimPrefix(c.Editor.FileMode, "0o"), 8, 32)
	if err != nil || mode > 0o777 {
		return 0, errors.NewConfigError("expected octal permissions such as 0644", "editor.file_mode", errors.InvalidConfig, err)
	}
	return os.FileMode(mode), nil
}

// StartDir returns the dialog start directory with a leading ~ expanded.
// An empty result means "let the dialog decide".
func (c *Config) StartDir() string {
	dir := c.Dialogs.StartDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir
}
