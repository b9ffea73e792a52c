// Package config loads catalog configuration from defaults, an
// optional YAML file and CATALOG_* environment variables, in that
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location when set.
const ConfigPathEnvVar = "CATALOG_CONFIG"

// DefaultConfigPaths is searched in order; the first file that exists
// wins.
var DefaultConfigPaths = []string{
	"catalog.yaml",
	"catalog.yml",
}

const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Data    DataConfig    `koanf:"data"`
	Store   StoreConfig   `koanf:"store"`
	Lock    LockConfig    `koanf:"lock"`
	Logging LoggingConfig `koanf:"logging"`
}

// DataConfig locates the documents one producer works with.
type DataConfig struct {
	// Dir anchors the relative paths below.
	Dir string `koanf:"dir"`

	// CatalogFile is the materialized catalog document.
	CatalogFile string `koanf:"catalog_file"`

	// EventLog is this producer's own append target.
	EventLog string `koanf:"event_log"`

	// PeerLogs are other producers' logs folded in on reconcile.
	// Entries may be absolute or relative to Dir.
	PeerLogs []string `koanf:"peer_logs"`

	// Origin names this producer in the events it records.
	Origin string `koanf:"origin"`
}

type StoreConfig struct {
	// Backend selects where materialized entries live: file, memory
	// or postgres.
	Backend string `koanf:"backend"`

	PostgresDSN string `koanf:"postgres_dsn"`
}

type LockConfig struct {
	// Timeout bounds the wait for a document lock; zero waits until
	// the calling context expires.
	Timeout time.Duration `koanf:"timeout"`

	RetryInterval time.Duration `koanf:"retry_interval"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	origin, err := os.Hostname()
	if err != nil || strings.TrimSpace(origin) == "" {
		origin = "local"
	}

	return &Config{
		Data: DataConfig{
			Dir:         "data",
			CatalogFile: "catalog.json",
			EventLog:    "events.json",
			PeerLogs:    []string{},
			Origin:      origin,
		},
		Store: StoreConfig{
			Backend: BackendFile,
		},
		Lock: LockConfig{
			Timeout:       10 * time.Second,
			RetryInterval: 50 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from three layers: struct defaults,
// then an optional YAML file, then environment variables. Variables
// use the CATALOG_ prefix with __ separating nested keys, so
// CATALOG_DATA__EVENT_LOG maps to data.event_log.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("CATALOG_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "CATALOG_")
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sliceConfigPaths lists the koanf paths decoded as string lists.
// Environment variables deliver them as single comma-separated
// strings, so they are split before unmarshalling.
var sliceConfigPaths = []string{
	"data.peer_logs",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		// Lists from the YAML file or the defaults pass through.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		str, ok := val.(string)
		if !ok || str == "" {
			continue
		}
		parts := strings.Split(str, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("store.backend %q: must be file, memory or postgres", c.Store.Backend)
	}
	if c.Store.Backend == BackendPostgres && strings.TrimSpace(c.Store.PostgresDSN) == "" {
		return fmt.Errorf("store.postgres_dsn is required when store.backend is postgres")
	}
	if strings.TrimSpace(c.Data.EventLog) == "" {
		return fmt.Errorf("data.event_log must not be empty")
	}
	if strings.TrimSpace(c.Data.Origin) == "" {
		return fmt.Errorf("data.origin must not be empty")
	}
	if c.Lock.Timeout < 0 || c.Lock.RetryInterval < 0 {
		return fmt.Errorf("lock timings must not be negative")
	}
	return nil
}

// CatalogPath is the materialized catalog document, anchored at Dir.
func (d DataConfig) CatalogPath() string {
	return d.join(d.CatalogFile)
}

// EventLogPath is this producer's own log, anchored at Dir.
func (d DataConfig) EventLogPath() string {
	return d.join(d.EventLog)
}

// PeerLogPaths resolves every peer log, anchoring relative entries at
// Dir and keeping absolute ones as given.
func (d DataConfig) PeerLogPaths() []string {
	out := make([]string, 0, len(d.PeerLogs))
	for _, p := range d.PeerLogs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, d.join(p))
	}
	return out
}

func (d DataConfig) join(p string) string {
	if filepath.IsAbs(p) || d.Dir == "" {
		return p
	}
	return filepath.Join(d.Dir, p)
}
