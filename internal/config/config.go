// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultListenAddr   = ":8080"
	DefaultPlexPort     = 32400
	DefaultDatabaseType = "sqlite"
	DefaultDatabasePath = "./data/plexbrr.db"
	DefaultPollInterval = 30 * time.Second
	DefaultLockPath     = "./data/plexbrr.lock"
	DefaultLogLevel     = "info"
)

var (
	ErrMissingPlexHost  = errors.New("plex host is required")
	ErrMissingPlexPort  = errors.New("plex port is required")
	ErrMissingPlexToken = errors.New("plex token is required")
)

// Config represents the main configuration structure
type Config struct {
	LogLevel string         `toml:"log_level" env:"PLEXBRR__LOG_LEVEL"`
	Server   ServerConfig   `toml:"server"`
	Plex     PlexConfig     `toml:"plex"`
	Database DatabaseConfig `toml:"database"`
	Monitor  MonitorConfig  `toml:"monitor"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr" env:"PLEXBRR__LISTEN_ADDR"`
}

// PlexConfig holds the media server connection parameters
type PlexConfig struct {
	Host  string `toml:"host" env:"PLEXBRR__PLEX_HOST"`
	Port  int    `toml:"port" env:"PLEXBRR__PLEX_PORT"`
	Token string `toml:"token" env:"PLEXBRR__PLEX_TOKEN"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Type     string `toml:"type" env:"PLEXBRR__DB_TYPE"`
	Path     string `toml:"path" env:"PLEXBRR__DB_PATH"`
	Host     string `toml:"host" env:"PLEXBRR__DB_HOST"`
	Port     int    `toml:"port" env:"PLEXBRR__DB_PORT"`
	User     string `toml:"user" env:"PLEXBRR__DB_USER"`
	Password string `toml:"password" env:"PLEXBRR__DB_PASSWORD"`
	Name     string `toml:"name" env:"PLEXBRR__DB_NAME"`
}

// MonitorConfig holds activity poller configuration
type MonitorConfig struct {
	Interval Duration `toml:"interval" env:"PLEXBRR__MONITOR_INTERVAL"`
	LockPath string   `toml:"lock_path" env:"PLEXBRR__MONITOR_LOCK_PATH"`
	// Retention is how long stored history is kept, zero keeps everything
	Retention Duration `toml:"retention" env:"PLEXBRR__MONITOR_RETENTION"`
}

// Duration is a time.Duration decoded from strings like "30s"
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns a configuration populated with default values
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Server: ServerConfig{
			ListenAddr: DefaultListenAddr,
		},
		Plex: PlexConfig{
			Port: DefaultPlexPort,
		},
		Database: DatabaseConfig{
			Type: DefaultDatabaseType,
			Path: DefaultDatabasePath,
		},
		Monitor: MonitorConfig{
			Interval: Duration(DefaultPollInterval),
			LockPath: DefaultLockPath,
		},
	}
}

// LoadConfig loads the configuration from a TOML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error decoding config file: %w", err)
	}

	// Override with environment variables if they exist
	if err := LoadEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	return config, nil
}

// Load reads the config file when it exists and falls back to defaults plus
// environment overrides otherwise.
func Load(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}

	config := Default()
	if err := LoadEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}
	return config, nil
}

// HasRequiredEnvVars reports whether the PMS connection can be configured from the environment alone
func HasRequiredEnvVars() bool {
	return os.Getenv("PLEXBRR__PLEX_HOST") != "" && os.Getenv("PLEXBRR__PLEX_TOKEN") != ""
}

// LoadEnvOverrides checks for environment variables and overrides config values
func LoadEnvOverrides(config *Config) error {
	if env := os.Getenv("PLEXBRR__LOG_LEVEL"); env != "" {
		config.LogLevel = env
	}

	// Server
	if env := os.Getenv("PLEXBRR__LISTEN_ADDR"); env != "" {
		config.Server.ListenAddr = env
	}

	// Plex
	if env := os.Getenv("PLEXBRR__PLEX_HOST"); env != "" {
		config.Plex.Host = env
	}
	if env := os.Getenv("PLEXBRR__PLEX_PORT"); env != "" {
		port, err := strconv.Atoi(env)
		if err != nil {
			return fmt.Errorf("invalid PLEXBRR__PLEX_PORT %q: %w", env, err)
		}
		config.Plex.Port = port
	}
	if env := os.Getenv("PLEXBRR__PLEX_TOKEN"); env != "" {
		config.Plex.Token = env
	}

	// Database
	if env := os.Getenv("PLEXBRR__DB_TYPE"); env != "" {
		config.Database.Type = env
	}
	if env := os.Getenv("PLEXBRR__DB_PATH"); env != "" {
		config.Database.Path = env
	}
	if env := os.Getenv("PLEXBRR__DB_HOST"); env != "" {
		config.Database.Host = env
	}
	if env := os.Getenv("PLEXBRR__DB_PORT"); env != "" {
		if port, err := strconv.Atoi(env); err == nil {
			config.Database.Port = port
		}
	}
	if env := os.Getenv("PLEXBRR__DB_USER"); env != "" {
		config.Database.User = env
	}
	if env := os.Getenv("PLEXBRR__DB_PASSWORD"); env != "" {
		config.Database.Password = env
	}
	if env := os.Getenv("PLEXBRR__DB_NAME"); env != "" {
		config.Database.Name = env
	}

	// Monitor
	if env := os.Getenv("PLEXBRR__MONITOR_INTERVAL"); env != "" {
		var interval Duration
		if err := interval.UnmarshalText([]byte(env)); err != nil {
			return err
		}
		config.Monitor.Interval = interval
	}
	if env := os.Getenv("PLEXBRR__MONITOR_LOCK_PATH"); env != "" {
		config.Monitor.LockPath = env
	}
	if env := os.Getenv("PLEXBRR__MONITOR_RETENTION"); env != "" {
		var retention Duration
		if err := retention.UnmarshalText([]byte(env)); err != nil {
			return err
		}
		config.Monitor.Retention = retention
	}

	return nil
}

// Validate checks that the media server connection is fully specified
func (c *Config) Validate() error {
	var errs []error
	if c.Plex.Host == "" {
		errs = append(errs, ErrMissingPlexHost)
	}
	if c.Plex.Port == 0 {
		errs = append(errs, ErrMissingPlexPort)
	}
	if c.Plex.Token == "" {
		errs = append(errs, ErrMissingPlexToken)
	}
	return errors.Join(errs...)
}
