// Package config loads seqctl configuration from an optional YAML file and
// DOCNUM_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Retry    RetryConfig
	Log      LogConfig
	// Branches maps branch IDs to their printed prefix.
	Branches map[string]string
}

// StorageConfig selects the sequence store.
type StorageConfig struct {
	Driver string // memory, postgres, redis
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32

	// StatementTimeout and LockTimeout apply to configuration saves.
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RetryConfig bounds allocation retries on version conflicts.
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	PreferIncrement bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// Load reads configuration. Priority (highest to lowest):
// 1. Environment variables with DOCNUM_ prefix (e.g. DOCNUM_DATABASE_DSN)
// 2. file, or seqctl.yaml in the working directory or /etc/docnum when file is empty
// 3. Built-in defaults
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("seqctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/docnum")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("DOCNUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("storage.driver")),
		},
		Database: DatabaseConfig{
			DSN:      v.GetString("database.dsn"),
			MaxConns: v.GetInt32("database.max_conns"),
			MinConns: v.GetInt32("database.min_conns"),

			StatementTimeout: v.GetDuration("database.statement_timeout"),
			LockTimeout:      v.GetDuration("database.lock_timeout"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("redis.addr"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Retry: RetryConfig{
			MaxAttempts:     v.GetInt("retry.max_attempts"),
			InitialBackoff:  v.GetDuration("retry.initial_backoff"),
			MaxBackoff:      v.GetDuration("retry.max_backoff"),
			PreferIncrement: v.GetBool("retry.prefer_increment"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Branches: v.GetStringMapString("branches"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.statement_timeout", 10*time.Second)
	v.SetDefault("database.lock_timeout", 2*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "docnum")
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff", 10*time.Millisecond)
	v.SetDefault("retry.max_backoff", 200*time.Millisecond)
	v.SetDefault("retry.prefer_increment", true)
	v.SetDefault("log.level", "info")
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		return fmt.Errorf("retry.max_backoff must not be below retry.initial_backoff")
	}
	_, err := c.BranchDirectory()
	return err
}

// BranchDirectory returns the configured branch prefixes.
func (c *Config) BranchDirectory() (numerator.StaticBranches, error) {
	out := make(numerator.StaticBranches, len(c.Branches))
	for raw, prefix := range c.Branches {
		branchID, err := id.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("branches: %w", err)
		}
		out[branchID] = prefix
	}
	return out, nil
}
