package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all swipesort configuration
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Triage  TriageConfig  `toml:"triage"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
}

// BackendConfig tells the triage client where the backend lives
type BackendConfig struct {
	URL      string `toml:"url"`
	Timeout  string `toml:"timeout"`   // Go duration, e.g. "15s"
	RetryMax int    `toml:"retry_max"` // retries for idempotent GETs only
}

// TriageConfig tunes the accept/reject loop
type TriageConfig struct {
	TransitionDelay string `toml:"transition_delay"` // swipe animation length
	OnMoveFailure   string `toml:"on_move_failure"`  // hold, advance
}

// ServerConfig holds the reference backend settings
type ServerConfig struct {
	Listen       string   `toml:"listen"`
	Root         string   `toml:"root"`
	DryRun       bool     `toml:"dry_run"`
	OperationLog string   `toml:"operation_log"`
	Watch        bool     `toml:"watch"` // invalidate folder cache on fs events
	Protected    []string `toml:"protected"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:      "http://127.0.0.1:8080",
			Timeout:  "15s",
			RetryMax: 3,
		},
		Triage: TriageConfig{
			TransitionDelay: "300ms",
			OnMoveFailure:   "hold",
		},
		Server: ServerConfig{
			Listen:    "127.0.0.1:8080",
			Root:      "",
			Watch:     true,
			Protected: []string{},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}

	return filepath.Join(configDir, "swipesort", "config.toml"), nil
}

// Load reads the default config file, creating it with defaults if it doesn't exist
func Load() (*Config, error) {
	configFile, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configFile)
}

// LoadFrom reads the config at path, creating it with defaults if it doesn't exist
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := SaveTo(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	// Start from defaults so missing keys keep their default value
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to the default location
func Save(cfg *Config) error {
	configFile, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, configFile)
}

// SaveTo writes the config to path
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks the settings the triage client depends on
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend url: %q", c.Backend.URL)
	}

	if _, err := c.BackendTimeout(); err != nil {
		return err
	}

	if c.Backend.RetryMax < 0 {
		return fmt.Errorf("invalid retry_max: %d (must be >= 0)", c.Backend.RetryMax)
	}

	if _, err := c.TransitionDelay(); err != nil {
		return err
	}

	validPolicies := map[string]bool{
		"hold":    true,
		"advance": true,
	}
	if !validPolicies[c.Triage.OnMoveFailure] {
		return fmt.Errorf("invalid on_move_failure: %s (must be hold or advance)", c.Triage.OnMoveFailure)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn or error)", c.Log.Level)
	}

	return nil
}

// ValidateServer checks the settings the reference backend depends on
func (c *Config) ValidateServer() error {
	if c.Server.Root == "" {
		return fmt.Errorf("no server root configured")
	}

	info, err := os.Stat(c.Server.Root)
	if err != nil {
		return fmt.Errorf("server root %s: %w", c.Server.Root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("server root %s is not a directory", c.Server.Root)
	}

	if c.Server.Listen == "" {
		return fmt.Errorf("no listen address configured")
	}

	return nil
}

// BackendTimeout parses the backend request timeout
func (c *Config) BackendTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid backend timeout %q: %w", c.Backend.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid backend timeout %q: must be positive", c.Backend.Timeout)
	}
	return d, nil
}

// TransitionDelay parses the swipe animation length
func (c *Config) TransitionDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Triage.TransitionDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid transition_delay %q: %w", c.Triage.TransitionDelay, err)
	}
	// The controller treats a zero delay as unset, so it is refused here
	if d <= 0 {
		return 0, fmt.Errorf("invalid transition_delay %q: must be positive", c.Triage.TransitionDelay)
	}
	return d, nil
}

// OperationLogPath returns the move log location, defaulting under the user's home
func (c *Config) OperationLogPath() string {
	if c.Server.OperationLog != "" {
		return c.Server.OperationLog
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local/share/swipesort/operations.log")
}

// SetServerRoot points the reference backend at path after checking it is a directory
func (c *Config) SetServerRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	c.Server.Root = abs
	return nil
}
