package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/aevon-lab/project-dimsync/internal/core/entity"
	"github.com/aevon-lab/project-dimsync/internal/load"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "DIMSYNC_"

// Config represents the top-level application config plus the resolved
// entity registry.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Entities EntitiesConfig `koanf:"entities"`
	Load     LoadConfig     `koanf:"load"`
	Sync     SyncConfig     `koanf:"sync"`
	Logging  LoggingConfig  `koanf:"logging"`

	// Registry is populated by Load after parsing entity files.
	Registry *entity.Registry `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Type         string `koanf:"type"` // postgres | memory
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type EntitiesConfig struct {
	ConfigDir       string `koanf:"config_dir"`
	RequireEntities bool   `koanf:"require_entities"`
}

type LoadConfig struct {
	BatchMode   string      `koanf:"batch_mode"` // per_record | all_or_nothing
	FailFast    bool        `koanf:"fail_fast"`
	WorkerCount int         `koanf:"worker_count"`
	NullSafe    bool        `koanf:"null_safe"`
	Retry       RetryConfig `koanf:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int    `koanf:"max_attempts"`
	InitialInterval string `koanf:"initial_interval"`
	MaxInterval     string `koanf:"max_interval"`
}

type SyncConfig struct {
	Enabled        bool   `koanf:"enabled"`
	CronInterval   string `koanf:"cron_interval"` // parsed and validated on startup
	BatchSize      int    `koanf:"batch_size"`
	CheckpointName string `koanf:"checkpoint_name"`
}

type LoggingConfig struct {
	Level      string `koanf:"level"`  // debug | info | warn | error
	Format     string `koanf:"format"` // text | json
	File       string `koanf:"file"`   // optional rotating file sink
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database.type %q (must be postgres or memory)", c.Database.Type)
	}

	if strings.TrimSpace(c.Entities.ConfigDir) == "" {
		return fmt.Errorf("entities.config_dir is required")
	}

	if _, err := c.Load.Options(); err != nil {
		return err
	}
	if c.Load.WorkerCount <= 0 {
		return fmt.Errorf("load.worker_count must be > 0")
	}
	if c.Load.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("load.retry.max_attempts must be > 0")
	}

	if _, err := c.Sync.Interval(); err != nil {
		return err
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be > 0")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q (must be text or json)", c.Logging.Format)
	}
	return nil
}

// Options converts the load section into orchestrator options.
func (c LoadConfig) Options() (load.Options, error) {
	mode, err := load.ParseBatchMode(c.BatchMode)
	if err != nil {
		return load.Options{}, fmt.Errorf("invalid load.batch_mode: %w", err)
	}
	initial, err := time.ParseDuration(c.Retry.InitialInterval)
	if err != nil {
		return load.Options{}, fmt.Errorf("invalid load.retry.initial_interval %q: %w", c.Retry.InitialInterval, err)
	}
	maxInterval, err := time.ParseDuration(c.Retry.MaxInterval)
	if err != nil {
		return load.Options{}, fmt.Errorf("invalid load.retry.max_interval %q: %w", c.Retry.MaxInterval, err)
	}
	return load.Options{
		BatchMode:   mode,
		FailFast:    c.FailFast,
		WorkerCount: c.WorkerCount,
		NullSafe:    c.NullSafe,
		Retry: load.RetryPolicy{
			MaxAttempts:     c.Retry.MaxAttempts,
			InitialInterval: initial,
			MaxInterval:     maxInterval,
		},
	}, nil
}

// Interval parses the sync cron interval.
func (c SyncConfig) Interval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.CronInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid sync cron interval %q: %w", c.CronInterval, err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("sync cron interval must be > 0")
	}
	return interval, nil
}

// Load parses config from file + env, validates it, then loads and validates
// entity definitions.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                 8080,
		"server.host":                 "0.0.0.0",
		"server.max_body_size_mb":     4,
		"server.mode":                 "release",
		"database.type":               "postgres",
		"database.dsn":                "postgres://localhost:5432/dimsync?sslmode=disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     25,
		"database.auto_migrate":       true,
		"entities.config_dir":         "./config/entities",
		"entities.require_entities":   true,
		"load.batch_mode":             string(load.PerRecord),
		"load.fail_fast":              false,
		"load.worker_count":           8,
		"load.null_safe":              true,
		"load.retry.max_attempts":     3,
		"load.retry.initial_interval": "50ms",
		"load.retry.max_interval":     "2s",
		"sync.enabled":                true,
		"sync.cron_interval":          "1m",
		"sync.batch_size":             5000,
		"sync.checkpoint_name":        "staging",
		"logging.level":               "info",
		"logging.format":              "text",
		"logging.file":                "",
		"logging.max_size_mb":         100,
		"logging.max_backups":         5,
		"logging.max_age_days":        30,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// DIMSYNC_SERVER__PORT=9090 overrides server.port
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := entity.LoadDir(cfg.Entities.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity definitions: %w", err)
	}
	if cfg.Entities.RequireEntities && registry.Len() == 0 {
		return nil, fmt.Errorf("no entity definitions found in %q", cfg.Entities.ConfigDir)
	}
	cfg.Registry = registry

	return &cfg, nil
}
