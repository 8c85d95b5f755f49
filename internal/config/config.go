package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/tabtrail/config.yaml"

// Config holds all tabtrail configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Router  RouterConfig  `yaml:"router"`
	Capture CaptureConfig `yaml:"capture"`
	Storage StorageConfig `yaml:"storage"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Browser BrowserConfig `yaml:"browser"`
	Logging LoggingConfig `yaml:"logging"`
}

type IndexConfig struct {
	StorageKey    string `yaml:"storage_key"`
	MaxEntries    int    `yaml:"max_entries"`
	RetentionDays int    `yaml:"retention_days"`
}

type RouterConfig struct {
	ThrottleMillis int `yaml:"throttle_ms"`
	EventBuffer    int `yaml:"event_buffer"`
}

type CaptureConfig struct {
	IgnoredSchemes    []string `yaml:"ignored_schemes"`
	PlaceholderTokens []string `yaml:"placeholder_tokens"`
	MinURLLength      int      `yaml:"min_url_length"`
	DenylistDomains   []string `yaml:"denylist_domains"`
}

type StorageConfig struct {
	Backend           string `yaml:"backend"`
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	PebbleDir         string `yaml:"pebble_dir"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type DaemonConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxRequestSize int    `yaml:"max_request_size"`
}

type BrowserConfig struct {
	CDPURL   string `yaml:"cdp_url"`
	ExecPath string `yaml:"exec_path"`
	Headless bool   `yaml:"headless"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"`
	File  string `yaml:"file"`
}

// Load reads the YAML file at path over DefaultConfig and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	// A zero or negative ceiling would evict everything on the first write.
	if cfg.Index.MaxEntries <= 0 {
		cfg.Index.MaxEntries = DefaultMaxEntries
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "", "sqlite", "pebble", "memory":
	default:
		return fmt.Errorf("invalid storage.backend %q", c.Storage.Backend)
	}
	switch c.Logging.Mode {
	case "", "console", "structured", "json":
	default:
		return fmt.Errorf("invalid logging.mode %q", c.Logging.Mode)
	}
	if c.Router.ThrottleMillis < 0 {
		return fmt.Errorf("invalid router.throttle_ms %d", c.Router.ThrottleMillis)
	}
	if c.Index.RetentionDays < 0 {
		return fmt.Errorf("invalid index.retention_days %d", c.Index.RetentionDays)
	}
	if c.Daemon.Port < 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("invalid daemon.port %d", c.Daemon.Port)
	}
	return nil
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, rest), nil
}

// LoadOrCreate is LoadOrCreateAt for DefaultConfigPath.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads path, writing the defaults there first when the
// file does not exist yet.
func LoadOrCreateAt(path string) (*Config, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return Load(path)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := cfg.WriteFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteFile saves c as YAML, creating parent directories as needed.
func (c *Config) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// SQLitePath returns the absolute path of the SQLite database file.
func (c StorageConfig) SQLitePath() (string, error) {
	dir, err := ExpandPath(c.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.SQLiteFile), nil
}

// PebblePath returns the absolute path of the pebble data directory.
func (c StorageConfig) PebblePath() (string, error) {
	dir, err := ExpandPath(c.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.PebbleDir), nil
}

// Addr returns the host:port the daemon listens on.
func (c DaemonConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
