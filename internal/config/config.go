package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all researchdesk configuration.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant"`
	UI        UIConfig        `yaml:"ui"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AssistantConfig locates the assistant service.
// Empty timeouts mean the call may run indefinitely.
type AssistantConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AskTimeout    string `yaml:"ask_timeout"`
	IngestTimeout string `yaml:"ingest_timeout"`
	HealthTimeout string `yaml:"health_timeout"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	DarkMode bool   `yaml:"dark_mode"`
	Markdown bool   `yaml:"markdown"` // render assistant replies as markdown
	Greeting string `yaml:"greeting"`
}

// UploadsConfig configures document selection.
type UploadsConfig struct {
	AllowedTypes []string `yaml:"allowed_types"`
	WatchDir     string   `yaml:"watch_dir"` // drop folder, empty = disabled
	MaxBytes     int64    `yaml:"max_bytes"` // 0 = unlimited
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no logging
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Dir        string          `yaml:"dir"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Endpoint:      "http://127.0.0.1:8000",
			HealthTimeout: "3s",
		},
		UI: UIConfig{
			Markdown: true,
		},
		Uploads: UploadsConfig{
			AllowedTypes: []string{".pdf"},
			MaxBytes:     50 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(DefaultDir(), "logs"),
		},
	}
}

// DefaultDir is ~/.researchdesk, or ./.researchdesk when no home is known.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".researchdesk"
	}
	return filepath.Join(home, ".researchdesk")
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads a .env file from the working directory if present, then the
// YAML config at path, then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RESEARCHDESK_ENDPOINT"); v != "" {
		c.Assistant.Endpoint = v
	}
	if v := os.Getenv("RESEARCHDESK_ASK_TIMEOUT"); v != "" {
		c.Assistant.AskTimeout = v
	}
	if v := os.Getenv("RESEARCHDESK_INGEST_TIMEOUT"); v != "" {
		c.Assistant.IngestTimeout = v
	}
	if v := os.Getenv("RESEARCHDESK_WATCH_DIR"); v != "" {
		c.Uploads.WatchDir = v
	}
	if isTruthy(os.Getenv("RESEARCHDESK_DEBUG")) {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
	if isTruthy(os.Getenv("RESEARCHDESK_DARK_MODE")) {
		c.UI.DarkMode = true
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parseOptionalDuration treats an empty string as "no limit".
func parseOptionalDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// GetAskTimeout returns the Ask timeout; 0 means none.
func (c *Config) GetAskTimeout() time.Duration {
	d, _ := parseOptionalDuration(c.Assistant.AskTimeout)
	return d
}

// GetIngestTimeout returns the Ingest timeout; 0 means none.
func (c *Config) GetIngestTimeout() time.Duration {
	d, _ := parseOptionalDuration(c.Assistant.IngestTimeout)
	return d
}

// GetHealthTimeout returns the health probe timeout.
func (c *Config) GetHealthTimeout() time.Duration {
	d, err := parseOptionalDuration(c.Assistant.HealthTimeout)
	if err != nil || d == 0 {
		return 3 * time.Second
	}
	return d
}

// IsAllowedUpload reports whether name has one of the allowed extensions.
// An empty allow-list accepts everything.
func (c *Config) IsAllowedUpload(name string) bool {
	if len(c.Uploads.AllowedTypes) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, t := range c.Uploads.AllowedTypes {
		if strings.ToLower(t) == ext {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Assistant.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid assistant endpoint %q: must be an absolute http(s) URL", c.Assistant.Endpoint)
	}

	for name, v := range map[string]string{
		"ask_timeout":    c.Assistant.AskTimeout,
		"ingest_timeout": c.Assistant.IngestTimeout,
		"health_timeout": c.Assistant.HealthTimeout,
	} {
		if _, err := parseOptionalDuration(v); err != nil {
			return fmt.Errorf("invalid assistant.%s: %w", name, err)
		}
	}

	for _, t := range c.Uploads.AllowedTypes {
		if !strings.HasPrefix(t, ".") {
			return fmt.Errorf("invalid upload type %q: must start with '.'", t)
		}
	}
	if c.Uploads.MaxBytes < 0 {
		return fmt.Errorf("invalid uploads.max_bytes: %d", c.Uploads.MaxBytes)
	}
	return nil
}
