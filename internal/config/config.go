package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	App       AppConfig       `yaml:"app"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the persistence slot backend.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // sqlite, postgres or memory
	SlotKey  string         `yaml:"slot_key"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	Migrations string `yaml:"migrations"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type AppConfig struct {
	// Timezone is the IANA zone used for calendar bucketing (week starts,
	// chart dates). Empty means UTC.
	Timezone    string `yaml:"timezone"`
	DisableSeed bool   `yaml:"disable_seed"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DSN returns a PostgreSQL connection string.
func (d PostgresConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves the configured timezone.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

// Default returns the configuration used for any value the file leaves out.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage: StorageConfig{
			Driver:   DriverSQLite,
			SlotKey:  "workouts",
			SQLite:   SQLiteConfig{Path: "ironlog.db"},
			Postgres: PostgresConfig{Port: 5432, Migrations: "migrations"},
		},
		Tailscale: TailscaleConfig{Hostname: "ironlog", StateDir: "tsnet-state"},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix IRONLOG_ and underscore-separated paths:
//
//	IRONLOG_SERVER_HOST, IRONLOG_SERVER_PORT,
//	IRONLOG_STORAGE_DRIVER, IRONLOG_STORAGE_SLOT_KEY, IRONLOG_SQLITE_PATH,
//	IRONLOG_DB_HOST, IRONLOG_DB_PORT, IRONLOG_DB_NAME,
//	IRONLOG_DB_USER, IRONLOG_DB_PASSWORD, IRONLOG_DB_SSLMODE,
//	IRONLOG_TAILSCALE_ENABLED, IRONLOG_TAILSCALE_HOSTNAME,
//	IRONLOG_TIMEZONE, IRONLOG_DISABLE_SEED
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("IRONLOG_SERVER_HOST", &cfg.Server.Host)
	setInt("IRONLOG_SERVER_PORT", &cfg.Server.Port)

	setString("IRONLOG_STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("IRONLOG_STORAGE_SLOT_KEY", &cfg.Storage.SlotKey)
	setString("IRONLOG_SQLITE_PATH", &cfg.Storage.SQLite.Path)

	pg := &cfg.Storage.Postgres
	setString("IRONLOG_DB_HOST", &pg.Host)
	setInt("IRONLOG_DB_PORT", &pg.Port)
	setString("IRONLOG_DB_NAME", &pg.Name)
	setString("IRONLOG_DB_USER", &pg.User)
	setString("IRONLOG_DB_PASSWORD", &pg.Password)
	setString("IRONLOG_DB_SSLMODE", &pg.SSLMode)

	setBool("IRONLOG_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	setString("IRONLOG_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)

	setString("IRONLOG_TIMEZONE", &cfg.App.Timezone)
	setBool("IRONLOG_DISABLE_SEED", &cfg.App.DisableSeed)
}

func (c *Config) validate() error {
	if !c.Tailscale.Enabled && c.Server.Port == 0 {
		return errors.New("server.port is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return errors.New("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Storage.SlotKey == "" {
		return errors.New("storage.slot_key is required")
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required")
		}
	case DriverPostgres:
		pg := c.Storage.Postgres
		if pg.Host == "" {
			return errors.New("storage.postgres.host is required")
		}
		if pg.Port == 0 {
			return errors.New("storage.postgres.port is required")
		}
		if pg.Name == "" {
			return errors.New("storage.postgres.name is required")
		}
		if pg.User == "" {
			return errors.New("storage.postgres.user is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	return nil
}
