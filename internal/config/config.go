// Package config provides configuration management for noetctl: where a
// network's documents live (local directory or Git remote), which
// persistent cache backend to commit into, and the event-bus endpoint to
// fan committed events out on. Mirrors the teacher's defaults-then-overlay
// YAML shape (internal/config.LoadFromYAML), retargeted at the belief
// graph compiler's own knobs instead of the HTTP server's.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ali01/noetgraph/internal/cache/pgcache"
	"github.com/ali01/noetgraph/internal/git"
	"gopkg.in/yaml.v3"
)

// Config holds all noetctl configuration loaded from YAML.
type Config struct {
	Server ServerConfig `yaml:"server"` // query-surface HTTP settings
	Source SourceConfig `yaml:"source"` // where a network's documents live
	Cache  CacheConfig  `yaml:"cache"`  // persistent store selection
	Redis  RedisConfig  `yaml:"redis"`  // event bus endpoint
}

// ServerConfig holds the read-only query API's HTTP settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SourceConfig selects how documents are collected for a network root.
type SourceConfig struct {
	// Kind is "directory" or "git".
	Kind string `yaml:"kind"`

	// Directory is the filesystem root to walk when Kind is "directory".
	// When Kind is "git", it is ignored in favor of Git.LocalPath.
	Directory string `yaml:"directory"`

	// Git carries the remote repository settings when Kind is "git".
	Git git.Config `yaml:"git"`

	// Extensions restricts which file extensions are collected as
	// documents (e.g. [".md"]). Empty means the source package's default.
	Extensions []string `yaml:"extensions"`
}

// CacheConfig selects and configures the persistent BeliefSource backend a
// compiled network is committed into.
type CacheConfig struct {
	// Backend is one of "memory", "sqlite", "bolt", "postgres".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path (or ":memory:") for the sqlite
	// backend.
	SQLitePath string `yaml:"sqlite_path"`

	// BoltPath is the database file path for the bolt backend.
	BoltPath string `yaml:"bolt_path"`

	// Postgres carries connection settings for the postgres backend.
	Postgres pgcache.Config `yaml:"postgres"`
}

// RedisConfig carries the event bus's Redis settings. Addr and Password are
// not passed to internal/eventbus.NewClient, which takes its address and
// password from the REDIS_ADDR and REDIS_PASSWORD environment variables.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	// Publish enables fanning committed events out over the bus after
	// every compile; disabled by default so a one-shot `parse` run
	// doesn't require a reachable Redis.
	Publish bool `yaml:"publish"`
}

// DefaultConfig returns configuration with sensible defaults: a local
// "./network" directory source committed into an on-disk sqlite cache.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Source: SourceConfig{
			Kind:      "directory",
			Directory: "./network",
			Git: git.Config{
				Branch:       "main",
				LocalPath:    "data/network-clone",
				SyncInterval: 5 * time.Minute,
				AutoSync:     true,
				ShallowClone: true,
				SingleBranch: true,
			},
		},
		Cache: CacheConfig{
			Backend:    "sqlite",
			SQLitePath: "noetgraph.db",
			BoltPath:   "noetgraph.bolt",
			Postgres: pgcache.Config{
				Host:    "localhost",
				Port:    5432,
				User:    "noetgraph",
				DBName:  "noetgraph",
				SSLMode: "disable",
			},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// LoadFromYAML loads configuration from a YAML file, overlaid onto
// DefaultConfig so a config file only needs to name what it overrides.
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is controlled by application
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Source.Kind {
	case "directory":
		if c.Source.Directory == "" {
			return fmt.Errorf("source.directory is required when source.kind is \"directory\"")
		}
	case "git":
		if err := c.Source.Git.Validate(); err != nil {
			return fmt.Errorf("source git config validation failed: %w", err)
		}
	default:
		return fmt.Errorf("source.kind must be \"directory\" or \"git\", got %q", c.Source.Kind)
	}

	switch c.Cache.Backend {
	case "memory", "sqlite", "bolt", "postgres":
	default:
		return fmt.Errorf("cache.backend must be one of memory, sqlite, bolt, postgres, got %q", c.Cache.Backend)
	}

	return nil
}
