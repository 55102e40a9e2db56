package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	v "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sebfried/menubarmaid/internal/event"
	"github.com/sebfried/menubarmaid/internal/logging"
	"github.com/sebfried/menubarmaid/internal/screenshot"
	"github.com/sebfried/menubarmaid/internal/watcher"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Database DatabaseConfig    `yaml:"database"`
	Desktop  DesktopConfig     `yaml:"desktop"`
	IPC      IPCConfig         `yaml:"ipc"`
	Webhooks []WebhookEndpoint `yaml:"webhooks"`
	Logging  logging.Config    `yaml:"logging"`
	App      AppConfig         `yaml:"app"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	// Token, when set, is required as a bearer token on /api routes.
	Token     string        `yaml:"token"`
	Keepalive time.Duration `yaml:"keepalive"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// BackupInterval of zero disables scheduled backups.
	BackupInterval  time.Duration `yaml:"backup_interval"`
	BackupDir       string        `yaml:"backup_dir"`
	BackupRetention int           `yaml:"backup_retention"`
}

// DesktopConfig describes the watched directory.
type DesktopConfig struct {
	Path          string        `yaml:"path"`
	Match         string        `yaml:"match"`
	Stability     time.Duration `yaml:"stability"`
	CheckInterval time.Duration `yaml:"check_interval"`
	Debounce      time.Duration `yaml:"debounce"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	Reconcile     string        `yaml:"reconcile"`
	Probe         bool          `yaml:"probe"`
	BufferSize    int           `yaml:"buffer_size"`
}

// WatcherOptions converts the desktop section into watcher options.
func (d DesktopConfig) WatcherOptions() watcher.Options {
	return watcher.Options{
		Stability:     d.Stability,
		CheckInterval: d.CheckInterval,
		Debounce:      d.Debounce,
		PollInterval:  d.PollInterval,
		Reconcile:     d.Reconcile,
		Probe:         d.Probe,
	}
}

// IPCConfig holds the desktop socket settings.
type IPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Socket  string `yaml:"socket"`
}

// WebhookEndpoint is one outbound notification target.
type WebhookEndpoint struct {
	Name   string   `yaml:"name"`
	URL    string   `yaml:"url"`
	Type   string   `yaml:"type"`
	Events []string `yaml:"events"`
}

// AppConfig controls the macOS app bundle relaunch.
type AppConfig struct {
	Bundle   bool   `yaml:"bundle"`
	AppName  string `yaml:"app_name"`
	BundleID string `yaml:"bundle_id"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := defaultDataDir()
	return &Config{
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      3000,
			BasePath:  "/",
			Keepalive: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path:            filepath.Join(dataDir, "menubarmaid.db"),
			BackupDir:       filepath.Join(dataDir, "backups"),
			BackupRetention: 7,
		},
		Desktop: DesktopConfig{
			Path:          filepath.Join(home, "Desktop"),
			Match:         screenshot.RuleStrict,
			Stability:     watcher.DefaultStability,
			CheckInterval: watcher.DefaultCheckInterval,
			Debounce:      watcher.DefaultDebounce,
			Reconcile:     watcher.DefaultReconcile,
			BufferSize:    screenshot.DefaultRecentCapacity,
		},
		IPC: IPCConfig{
			Enabled: true,
			Socket:  filepath.Join(dataDir, "menubarmaid.sock"),
		},
		Logging: logging.DefaultConfig(),
		App: AppConfig{
			AppName:  "menubarmaid",
			BundleID: "com.sebfried.menubarmaid",
		},
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "menubarmaid")
}

// DefaultPath returns the config file location used when MBM_CONFIG_PATH
// is unset.
func DefaultPath() string {
	if p := os.Getenv("MBM_CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load reads config from a YAML file (if it exists), then a .env file in the
// working directory (if it exists), and overrides with environment variables.
// Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	// PORT is honoured for compatibility; MBM_PORT wins when both are set.
	for _, key := range []string{"PORT", "MBM_PORT"} {
		if v := os.Getenv(key); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			c.Server.Port = port
		}
	}
	if v := os.Getenv("MBM_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("MBM_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("MBM_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("MBM_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MBM_BACKUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MBM_BACKUP_INTERVAL: %w", err)
		}
		c.Database.BackupInterval = d
	}
	if v := os.Getenv("MBM_DESKTOP_PATH"); v != "" {
		c.Desktop.Path = v
	}
	if v := os.Getenv("MBM_MATCH"); v != "" {
		c.Desktop.Match = v
	}
	if v := os.Getenv("MBM_RECONCILE"); v != "" {
		c.Desktop.Reconcile = v
	}
	if v := os.Getenv("MBM_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MBM_POLL_INTERVAL: %w", err)
		}
		c.Desktop.PollInterval = d
	}
	if v := os.Getenv("MBM_BUFFER_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MBM_BUFFER_SIZE: %w", err)
		}
		c.Desktop.BufferSize = n
	}
	if v := os.Getenv("MBM_IPC_SOCKET"); v != "" {
		c.IPC.Socket = v
	}
	if v := os.Getenv("MBM_IPC_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MBM_IPC_ENABLED: %w", err)
		}
		c.IPC.Enabled = b
	}
	if v := os.Getenv("MBM_BUNDLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MBM_BUNDLE: %w", err)
		}
		c.App.Bundle = b
	}
	if v := os.Getenv("MBM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MBM_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("MBM_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	return nil
}

var (
	webhookTypes = []any{"generic", "discord", "slack", "gotify"}
	basePathRe   = regexp.MustCompile(`^/[A-Za-z0-9/_.-]*$`)
)

// webhookEvents are the event types a webhook endpoint may subscribe to.
var webhookEvents = []any{
	string(event.ScreenshotsUpdated),
	string(event.ScreenshotDetected),
	string(event.ShortcutActivated),
}

func (c *Config) validate() error {
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	c.Desktop.Path = expandHome(c.Desktop.Path)
	c.Database.Path = expandHome(c.Database.Path)
	c.Database.BackupDir = expandHome(c.Database.BackupDir)
	c.IPC.Socket = expandHome(c.IPC.Socket)

	err := v.ValidateStruct(c,
		v.Field(&c.Server),
		v.Field(&c.Database),
		v.Field(&c.Desktop),
		v.Field(&c.IPC),
		v.Field(&c.Webhooks),
		v.Field(&c.Logging),
	)
	if err != nil {
		return err
	}
	for i := range c.Webhooks {
		if c.Webhooks[i].Type == "" {
			c.Webhooks[i].Type = "generic"
		}
	}
	return nil
}

// Validate implements validation.Validatable.
func (s ServerConfig) Validate() error {
	return v.ValidateStruct(&s,
		v.Field(&s.Host, v.Required),
		v.Field(&s.Port, v.Required, v.Min(1), v.Max(65535)),
		v.Field(&s.BasePath, v.When(s.BasePath != "", v.Match(basePathRe))),
		v.Field(&s.Keepalive, v.Required, v.Min(time.Second)),
	)
}

// Validate implements validation.Validatable.
func (d DatabaseConfig) Validate() error {
	return v.ValidateStruct(&d,
		v.Field(&d.Path, v.Required),
		v.Field(&d.BackupInterval, v.When(d.BackupInterval != 0, v.Min(time.Minute))),
		v.Field(&d.BackupDir, v.Required),
		v.Field(&d.BackupRetention, v.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (d DesktopConfig) Validate() error {
	return v.ValidateStruct(&d,
		v.Field(&d.Path, v.Required),
		v.Field(&d.Match, v.By(func(any) error {
			_, err := screenshot.RuleByName(d.Match)
			return err
		})),
		v.Field(&d.Stability, v.Min(time.Duration(0))),
		v.Field(&d.CheckInterval, v.Min(time.Duration(0))),
		v.Field(&d.Debounce, v.Min(time.Duration(0))),
		v.Field(&d.PollInterval, v.Min(time.Duration(0))),
		v.Field(&d.Reconcile, v.By(func(any) error { return watcher.ValidateSchedule(d.Reconcile) })),
		v.Field(&d.BufferSize, v.Required, v.Min(1)),
	)
}

// Validate implements validation.Validatable.
func (i IPCConfig) Validate() error {
	return v.ValidateStruct(&i, v.Field(&i.Socket, v.When(i.Enabled, v.Required)))
}

// Validate implements validation.Validatable.
func (w WebhookEndpoint) Validate() error {
	return v.ValidateStruct(&w,
		v.Field(&w.URL, v.Required, is.URL),
		v.Field(&w.Type, v.In(webhookTypes...)),
		v.Field(&w.Events, v.Each(v.In(webhookEvents...))),
	)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
