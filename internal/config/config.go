package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/meltforce/gzclp/internal/gzclp"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Hevy      HevyConfig      `yaml:"hevy"`
	Program   ProgramConfig   `yaml:"program"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// HevyConfig holds the Hevy API credentials. BaseURL defaults to the public API.
type HevyConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type ProgramConfig struct {
	Unit gzclp.WeightUnit `yaml:"unit"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix GZCLP_ and underscore-separated paths:
//
//	GZCLP_SERVER_HOST, GZCLP_SERVER_PORT,
//	GZCLP_DB_HOST, GZCLP_DB_PORT, GZCLP_DB_NAME,
//	GZCLP_DB_USER, GZCLP_DB_PASSWORD, GZCLP_DB_SSLMODE,
//	GZCLP_AUTH_API_KEY, GZCLP_HEVY_API_KEY, GZCLP_HEVY_BASE_URL,
//	GZCLP_UNIT, GZCLP_TAILSCALE_ENABLED, GZCLP_TAILSCALE_HOSTNAME
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GZCLP_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GZCLP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GZCLP_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("GZCLP_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("GZCLP_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("GZCLP_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("GZCLP_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("GZCLP_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("GZCLP_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("GZCLP_HEVY_API_KEY"); v != "" {
		cfg.Hevy.APIKey = v
	}
	if v := os.Getenv("GZCLP_HEVY_BASE_URL"); v != "" {
		cfg.Hevy.BaseURL = v
	}
	if v := os.Getenv("GZCLP_UNIT"); v != "" {
		cfg.Program.Unit = gzclp.WeightUnit(v)
	}
	if v := os.Getenv("GZCLP_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("GZCLP_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Hevy.BaseURL == "" {
		cfg.Hevy.BaseURL = "https://api.hevyapp.com"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "gzclp"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	unit, err := gzclp.ParseUnit(string(c.Program.Unit))
	if err != nil {
		return fmt.Errorf("program.unit: %w", err)
	}
	c.Program.Unit = unit
	return nil
}
