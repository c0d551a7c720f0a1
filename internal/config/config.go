// Package config provides YAML-based configuration loading for the manager.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level manager configuration, loaded from beam.yaml.
type Config struct {
	Tag       string          `yaml:"tag"`    // application tag prefixed to notifications
	Listen    string          `yaml:"listen"` // HTTP listen address
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Directory DirectoryConfig `yaml:"directory"`
	Ticketing TicketingConfig `yaml:"ticketing"`
	Digest    DigestConfig    `yaml:"digest"`
}

// DatabaseConfig selects the embedded or networked store backend.
type DatabaseConfig struct {
	Backend  string `yaml:"backend"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`    // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// AuthConfig holds inbound authentication settings.
type AuthConfig struct {
	// Prefix is the entitlement application prefix; entitlements of the
	// form "{prefix}/analyst" and "{prefix}/admin" gate dashboard access.
	Prefix string `yaml:"prefix"`
	// ReplayWindow is the maximum age, in seconds, of a signed request's
	// Date header.
	ReplayWindow int `yaml:"replay_window"`
}

// DirectoryConfig points at the directory service used to resolve people
// and projects.
type DirectoryConfig struct {
	URL string `yaml:"url"`
}

// TicketingConfig points at the external ticketing system.
type TicketingConfig struct {
	URL string `yaml:"url"`
}

// DigestConfig schedules the daily unclaimed-case digest notification.
type DigestConfig struct {
	Schedule string `yaml:"schedule"` // 5-field cron expression; empty disables
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Tag == "" {
		c.Tag = "beam"
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Database.Backend == "" {
		c.Database.Backend = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "beam.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Auth.Prefix == "" {
		c.Auth.Prefix = c.Tag
	}
	if c.Auth.ReplayWindow == 0 {
		c.Auth.ReplayWindow = 300
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Backend {
	case "sqlite":
	case "mysql":
		if c.Database.Database == "" {
			errs = append(errs, "database.database is required for mysql")
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.backend %q not supported", c.Database.Backend))
	}
	if c.Auth.ReplayWindow < 0 {
		errs = append(errs, "auth.replay_window must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
