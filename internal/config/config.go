package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither the flag nor LEDGER_CONFIG is set.
const DefaultConfigPath = "config.yaml"

// Defaults applied to missing configuration values.
const (
	// DefaultServerAddr is the HTTP listen address.
	DefaultServerAddr = ":8318"
	// DefaultJWTExpiry is the token lifetime.
	DefaultJWTExpiry = 24 * time.Hour
	// DefaultLogLevel is the logrus level name.
	DefaultLogLevel = "info"
)

// ErrMissingDSN indicates no database DSN was configured.
var ErrMissingDSN = errors.New("config: missing database dsn")

// AppConfig holds process-level options resolved from command-line flags.
type AppConfig struct {
	ConfigPath string
}

// Config mirrors the YAML configuration file.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	JWT      JWTFileConfig  `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

// DatabaseConfig configures the relational datastore.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// JWTFileConfig is the raw jwt section as written in YAML.
type JWTFileConfig struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// RedisConfig configures the optional MFA challenge store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures logrus output.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// LedgerConfig tunes the gift card ledger.
type LedgerConfig struct {
	ConflictRetries int `yaml:"conflict-retries"`
}

// JWTConfig is the parsed token configuration.
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// ResolveConfigPath picks the config path from the flag value, LEDGER_CONFIG, or the default.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("LEDGER_CONFIG")); env != "" {
		return env
	}
	return DefaultConfigPath
}

// ConfigExists reports whether the config file is present.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads the YAML file at path and applies environment overrides and defaults.
// A missing file yields defaults so the service can run purely from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDatabaseDSN returns the configured DSN or ErrMissingDSN.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	if cfg.Database.DSN == "" {
		return "", ErrMissingDSN
	}
	return cfg.Database.DSN, nil
}

// LoadJWTConfig returns the parsed jwt section.
func LoadJWTConfig(path string) (JWTConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return JWTConfig{}, err
	}
	return cfg.JWTConfig()
}

// JWTConfig parses the jwt section.
func (c *Config) JWTConfig() (JWTConfig, error) {
	out := JWTConfig{Secret: c.JWT.Secret, Expiry: DefaultJWTExpiry}
	if out.Secret == "" {
		return out, errors.New("config: missing jwt secret")
	}
	if raw := strings.TrimSpace(c.JWT.Expiry); raw != "" {
		d, errParse := time.ParseDuration(raw)
		if errParse != nil {
			return out, fmt.Errorf("config: invalid jwt expiry %q: %w", raw, errParse)
		}
		if d > 0 {
			out.Expiry = d
		}
	}
	return out, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	cfg.Database.DSN = strings.TrimSpace(cfg.Database.DSN)
	cfg.JWT.Secret = strings.TrimSpace(cfg.JWT.Secret)
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Ledger.ConflictRetries < 0 {
		cfg.Ledger.ConflictRetries = 0
	}
}
