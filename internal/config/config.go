package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendHomeAssistant = "homeassistant"
	BackendHue           = "hue"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig           `yaml:"log"`
	Picker          PickerConfig        `yaml:"picker"`
	Button          ButtonConfig        `yaml:"button"`
	Backend         string              `yaml:"backend"`
	HomeAssistant   HomeAssistantConfig `yaml:"homeassistant"`
	Hue             HueConfig           `yaml:"hue"`
	Database        DatabaseConfig      `yaml:"database"`
	Ledger          LedgerConfig        `yaml:"ledger"`
	EventBus        EventBusConfig      `yaml:"eventbus"`
	Healthcheck     HealthcheckConfig   `yaml:"healthcheck"`
	Script          string              `yaml:"script"`
	ShutdownTimeout Duration            `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops

	// Dir is the directory relative paths are resolved against (the config
	// file's directory, or the working directory without a file).
	Dir string `yaml:"-"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the configured level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// PickerConfig configures the external color picker
type PickerConfig struct {
	Path    string   `yaml:"path"`
	Timeout Duration `yaml:"timeout"` // 0 = no timeout
}

// ButtonConfig holds defaults for button settings
type ButtonConfig struct {
	Delay         Duration `yaml:"delay"`      // Long-press threshold
	ShowValue     string   `yaml:"show_value"` // hex, rgb or none
	ThumbnailSize int      `yaml:"thumbnail_size"`
}

// HomeAssistantConfig holds the default Home Assistant target
type HomeAssistantConfig struct {
	URL          string   `yaml:"url"`
	Token        string   `yaml:"token"`
	Lights       string   `yaml:"lights"` // comma-separated entity ids
	Timeout      Duration `yaml:"timeout"`
	RateLimitRPS float64  `yaml:"rate_limit_rps"`
}

// HueConfig contains Hue bridge connection settings
type HueConfig struct {
	Bridge  string   `yaml:"bridge"`
	Token   string   `yaml:"token"`
	Lights  string   `yaml:"lights"` // comma-separated v1 light ids
	Timeout Duration `yaml:"timeout"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 1)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultPickerName is the picker executable looked up next to the plugin.
func DefaultPickerName() string {
	if runtime.GOOS == "windows" {
		return "pick-color.exe"
	}
	return "pick-color"
}

// Load reads and parses the configuration file. A missing file is not an
// error: the plugin runs on defaults and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, err
		}
		cfg.Dir = filepath.Dir(path)
	case errors.Is(err, fs.ErrNotExist):
		cfg.Dir = "."
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills the Home Assistant target from URL, TOKEN and ENTITY_ID when
// the file leaves it empty.
func applyEnv(cfg *Config) {
	if cfg.HomeAssistant.URL == "" {
		cfg.HomeAssistant.URL = os.Getenv("URL")
	}
	if cfg.HomeAssistant.Token == "" {
		cfg.HomeAssistant.Token = os.Getenv("TOKEN")
	}
	if cfg.HomeAssistant.Lights == "" {
		cfg.HomeAssistant.Lights = os.Getenv("ENTITY_ID")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Picker.Path == "" {
		cfg.Picker.Path = DefaultPickerName()
	}
	if !filepath.IsAbs(cfg.Picker.Path) {
		cfg.Picker.Path = filepath.Join(cfg.Dir, cfg.Picker.Path)
	}
	// Picker timeout defaults to 0 (none), no need to set

	if cfg.Button.Delay == 0 {
		cfg.Button.Delay = Duration(200 * time.Millisecond)
	}
	if cfg.Button.ShowValue == "" {
		cfg.Button.ShowValue = "hex"
	}
	if cfg.Button.ThumbnailSize == 0 {
		cfg.Button.ThumbnailSize = 72
	}

	if cfg.Backend == "" {
		cfg.Backend = BackendHomeAssistant
	}
	cfg.HomeAssistant.URL = strings.TrimRight(cfg.HomeAssistant.URL, "/")
	if cfg.HomeAssistant.Timeout == 0 {
		cfg.HomeAssistant.Timeout = Duration(10 * time.Second)
	}
	if cfg.HomeAssistant.RateLimitRPS == 0 {
		cfg.HomeAssistant.RateLimitRPS = 10.0
	}
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(10 * time.Second)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "deckcolor.sqlite"
	}
	if cfg.Database.Path != ":memory:" && !filepath.IsAbs(cfg.Database.Path) {
		cfg.Database.Path = filepath.Join(cfg.Dir, cfg.Database.Path)
	}

	if cfg.Script != "" && !filepath.IsAbs(cfg.Script) {
		cfg.Script = filepath.Join(cfg.Dir, cfg.Script)
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "127.0.0.1"
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate rejects settings the plugin cannot run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendHomeAssistant:
	case BackendHue:
		if c.Hue.Bridge == "" {
			return fmt.Errorf("hue.bridge is required for backend %q", BackendHue)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.Button.ShowValue {
	case "hex", "rgb", "none":
	default:
		return fmt.Errorf("button.show_value must be hex, rgb or none, got %q", c.Button.ShowValue)
	}
	if c.Button.Delay.Duration() < 0 {
		return fmt.Errorf("button.delay must not be negative")
	}
	if c.Button.ThumbnailSize < 0 {
		return fmt.Errorf("button.thumbnail_size must be positive")
	}
	return nil
}

// DefaultLights returns the light list used by buttons that set none.
func (c *Config) DefaultLights() string {
	if c.Backend == BackendHue {
		return c.Hue.Lights
	}
	return c.HomeAssistant.Lights
}

// GetShutdownTimeout returns the shutdown timeout
func (c *Config) GetShutdownTimeout() time.Duration {
	return c.ShutdownTimeout.Duration()
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
