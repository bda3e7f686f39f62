package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"financas/internal/core"
	"financas/internal/log"
)

type Config struct {
	// Backend selection
	DataBackend string `toml:"data_backend"`

	// Database
	SQLiteDBPath string        `toml:"sqlite_db_path"`
	PollInterval time.Duration `toml:"poll_interval"`

	// AMQP change fan-out, optional
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`

	// Domain
	Categories      []string `toml:"categories"`
	DefaultCategory string   `toml:"default_category"`
	Timezone        string   `toml:"timezone"`

	// Status API
	StatusAddr string `toml:"status_addr"`

	LogLevel string `toml:"log_level"`

	// Owner is the signed-in identity for CLI sessions.
	Owner string `toml:"owner"`
}

func defaults() *Config {
	return &Config{
		DataBackend:     "sqlite",
		SQLiteDBPath:    "./data/financas.db",
		PollInterval:    0,
		AMQPExchange:    "financas.changes",
		Categories:      append([]string(nil), core.DefaultCategoryNames...),
		DefaultCategory: core.DefaultCategory,
		Timezone:        "Local",
		StatusAddr:      "127.0.0.1:8081",
		LogLevel:        "info",
	}
}

// Load reads the configuration from the environment over the defaults.
func Load() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile layers a TOML file between the defaults and the environment.
// An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", cfg.PollInterval)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)

	cfg.Categories = getEnvList("CATEGORIES", cfg.Categories)
	cfg.DefaultCategory = getEnv("DEFAULT_CATEGORY", cfg.DefaultCategory)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)

	cfg.StatusAddr = getEnv("STATUS_ADDR", cfg.StatusAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Owner = getEnv("FINANCAS_OWNER", cfg.Owner)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.PollInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must not be negative", c.PollInterval))
	} else if c.PollInterval > 0 && c.PollInterval < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be at least 100ms or 0 to disable", c.PollInterval))
	} else if c.PollInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be at most 24 hours", c.PollInterval))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.DataBackend == "memory" {
			errors = append(errors, "AMQP change fan-out requires the sqlite backend")
		}
	}

	if strings.TrimSpace(c.DefaultCategory) == "" {
		errors = append(errors, "default category cannot be empty")
	}
	for i, name := range c.Categories {
		if strings.TrimSpace(name) == "" {
			errors = append(errors, fmt.Sprintf("category %d is empty", i+1))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	// Validate status address
	if _, port, err := net.SplitHostPort(c.StatusAddr); err != nil {
		errors = append(errors, fmt.Sprintf("invalid status address '%s': %v", c.StatusAddr, err))
	} else if p, err := strconv.Atoi(port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", port))
	} else if p < 1 || p > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", p))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location resolves Timezone; call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CategorySet builds the closed category set from Categories and
// DefaultCategory.
func (c *Config) CategorySet() core.Categories {
	return core.NewCategories(c.Categories, c.DefaultCategory)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blank entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
