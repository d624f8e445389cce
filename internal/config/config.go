// Package config loads the goodnews runtime configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// Config holds the static process configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	Sweep    SweepConfig    `yaml:"sweep,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

type ServerConfig struct {
	Port string `yaml:"port,omitempty"`
}

type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SweepConfig holds how often each family's due transitions are applied.
// A zero interval disables the periodic job for that family.
type SweepConfig struct {
	Article       time.Duration `yaml:"article,omitempty"`
	Listing       time.Duration `yaml:"listing,omitempty"`
	Advertisement time.Duration `yaml:"advertisement,omitempty"`
}

type LogConfig struct {
	Format string `yaml:"format,omitempty"` // "json" or "text"
	Level  string `yaml:"level,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Path: "goodnews.db"},
		Sweep: SweepConfig{
			Article:       time.Minute,
			Listing:       time.Hour,
			Advertisement: time.Hour,
		},
		Log: LogConfig{Format: "text", Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is not empty) and the environment. A .env file in the working
// directory is loaded first; variables already set win over it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SWEEP_ARTICLE_INTERVAL", &c.Sweep.Article},
		{"SWEEP_LISTING_INTERVAL", &c.Sweep.Listing},
		{"SWEEP_ADVERTISEMENT_INTERVAL", &c.Sweep.Advertisement},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	return nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	nonNegative := validation.Min(time.Duration(0))
	return validation.Errors{
		"server.port":         validation.Validate(c.Server.Port, validation.Required),
		"database.path":       validation.Validate(c.Database.Path, validation.Required),
		"log.format":          validation.Validate(c.Log.Format, validation.In("json", "text")),
		"log.level":           validation.Validate(c.Log.Level, validation.In("debug", "info", "warn", "error")),
		"sweep.article":       validation.Validate(c.Sweep.Article, nonNegative),
		"sweep.listing":       validation.Validate(c.Sweep.Listing, nonNegative),
		"sweep.advertisement": validation.Validate(c.Sweep.Advertisement, nonNegative),
	}.Filter()
}

// SweepIntervals returns the sweep interval of every family.
func (c *Config) SweepIntervals() map[domain.Family]time.Duration {
	return map[domain.Family]time.Duration{
		domain.FamilyArticle:       c.Sweep.Article,
		domain.FamilyListing:       c.Sweep.Listing,
		domain.FamilyAdvertisement: c.Sweep.Advertisement,
	}
}

// SlogLevel maps Log.Level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
