// Package config loads the fact-check service configuration.
//
// Values come from built-in defaults, then an optional YAML file, then
// environment variables with the FACTCHECK_ prefix. The Detection section
// holds the operator settings that can change at runtime; see Runtime.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mangomango3x/Discord-fact-check/internal/llm"
	"github.com/mangomango3x/Discord-fact-check/internal/storage"
)

// Config holds all configuration settings for the service.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Storage   StorageConfig    `yaml:"storage"`
	Providers []ProviderConfig `yaml:"providers"`
	Detection Settings         `yaml:"detection"`
	Patterns  PatternsConfig   `yaml:"patterns"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host     string `yaml:"host"`      // default: 127.0.0.1
	Port     int    `yaml:"port"`      // default: 8080
	APIToken string `yaml:"api_token"` // empty disables auth on the API

	// RequestsPerSecond and Burst bound each client on the HTTP API.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// IdentitySalt anonymizes author IDs stored in the event log.
	IdentitySalt string `yaml:"identity_salt"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Engine         string `yaml:"engine"`    // file, sqlite, postgres, redis, memory (default: sqlite)
	DataPath       string `yaml:"data_path"` // directory for file and sqlite (default: ./data)
	DSN            string `yaml:"dsn"`       // postgres connection string
	RedisURL       string `yaml:"redis_url"`
	RedisNamespace string `yaml:"redis_namespace"`

	// BackupSchedule snapshots the sqlite database on a cron spec. Empty
	// disables snapshots. BackupDir defaults to DataPath/backups.
	BackupSchedule string `yaml:"backup_schedule"`
	BackupDir      string `yaml:"backup_dir"`
}

// SQLitePath is the database file used by the sqlite engine.
func (s StorageConfig) SQLitePath() string {
	return filepath.Join(s.DataPath, "factcheck.db")
}

// BackupPath is the directory sqlite snapshots are written to.
func (s StorageConfig) BackupPath() string {
	if s.BackupDir != "" {
		return s.BackupDir
	}
	return filepath.Join(s.DataPath, "backups")
}

// ProviderConfig is one analysis provider, in priority order.
type ProviderConfig struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"` // pawan, openai, anthropic, gemini, ollama
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Model   string   `yaml:"model"`
	Timeout Duration `yaml:"timeout"`
}

// LLM converts the entry for the provider factory.
func (p ProviderConfig) LLM() llm.Config {
	return llm.Config{
		Name:    p.Name,
		Kind:    p.Kind,
		APIKey:  p.APIKey,
		BaseURL: p.BaseURL,
		Model:   p.Model,
		Timeout: p.Timeout.Duration(),
	}
}

// PatternsConfig controls pattern expiry and the background jobs.
type PatternsConfig struct {
	MaxAge        Duration `yaml:"max_age"`        // default: 720h
	HalfLife      Duration `yaml:"half_life"`      // default: 336h
	EventCapacity int      `yaml:"event_capacity"` // default: 100
	PruneSchedule string   `yaml:"prune_schedule"` // cron spec, default: @daily
	FlushSchedule string   `yaml:"flush_schedule"` // cron spec, default: @every 1m
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: info
	Format string `yaml:"format"` // json or console (default: json)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8080,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Storage: StorageConfig{
			Engine:         storage.EngineSQLite,
			DataPath:       "./data",
			RedisNamespace: "factcheck:",
			BackupSchedule: "@hourly",
		},
		Providers: []ProviderConfig{
			{Name: llm.KindPawan, Kind: llm.KindPawan},
			{Name: llm.KindOpenAI, Kind: llm.KindOpenAI},
			{Name: llm.KindGemini, Kind: llm.KindGemini},
		},
		Detection: DefaultSettings(),
		Patterns: PatternsConfig{
			MaxAge:        Duration(30 * 24 * time.Hour),
			HalfLife:      Duration(14 * 24 * time.Hour),
			EventCapacity: 100,
			PruneSchedule: "@daily",
			FlushSchedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty; a named file that does
// not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := cfg.mergeYAML(data); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeYAML decodes data over the current values. A providers list in the
// file replaces the default list.
func (c *Config) mergeYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	return nil
}

// applyEnv overrides values from FACTCHECK_* environment variables.
func (c *Config) applyEnv() {
	c.Server.Host = getEnv("FACTCHECK_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("FACTCHECK_PORT", c.Server.Port)
	c.Server.APIToken = getEnv("FACTCHECK_API_TOKEN", c.Server.APIToken)
	c.Server.IdentitySalt = getEnv("FACTCHECK_IDENTITY_SALT", c.Server.IdentitySalt)

	c.Storage.Engine = getEnv("FACTCHECK_STORAGE_ENGINE", c.Storage.Engine)
	c.Storage.DataPath = getEnv("FACTCHECK_DATA_PATH", c.Storage.DataPath)
	c.Storage.DSN = getEnv("FACTCHECK_POSTGRES_DSN", c.Storage.DSN)
	c.Storage.RedisURL = getEnv("FACTCHECK_REDIS_URL", c.Storage.RedisURL)
	c.Storage.BackupSchedule = getEnv("FACTCHECK_BACKUP_SCHEDULE", c.Storage.BackupSchedule)

	c.Logging.Level = getEnv("FACTCHECK_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("FACTCHECK_LOG_FORMAT", c.Logging.Format)

	d := &c.Detection
	d.Enabled = getEnvBool("FACTCHECK_AUTO_DETECT", d.Enabled)
	d.TruthinessThreshold = getEnvFloat("FACTCHECK_TRUTHINESS_THRESHOLD", d.TruthinessThreshold)
	d.ConfidenceThreshold = getEnvFloat("FACTCHECK_CONFIDENCE_THRESHOLD", d.ConfidenceThreshold)
	d.MinMessageLength = getEnvInt("FACTCHECK_MIN_MESSAGE_LENGTH", d.MinMessageLength)
	d.AutoCheckWindow = Duration(getEnvDuration("FACTCHECK_AUTO_CHECK_WINDOW", d.AutoCheckWindow.Duration()))
	d.AutoCheckMax = getEnvInt("FACTCHECK_AUTO_CHECK_MAX", d.AutoCheckMax)

	c.Patterns.MaxAge = Duration(getEnvDuration("FACTCHECK_PATTERN_MAX_AGE", c.Patterns.MaxAge.Duration()))

	// Per-kind credentials fill providers that do not set their own.
	for i := range c.Providers {
		p := &c.Providers[i]
		kind := strings.ToUpper(p.Kind)
		if p.APIKey == "" {
			p.APIKey = getEnv("FACTCHECK_"+kind+"_API_KEY", "")
		}
		if p.BaseURL == "" {
			p.BaseURL = getEnv("FACTCHECK_"+kind+"_BASE_URL", "")
		}
		p.Model = getEnv("FACTCHECK_"+kind+"_MODEL", p.Model)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	// Port 0 picks a free port.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port must be 0-65535, got %d", c.Server.Port))
	}
	switch c.Storage.Engine {
	case storage.EngineFile, storage.EngineSQLite, storage.EngineMemory:
	case storage.EnginePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage dsn is required for postgres"))
		}
	case storage.EngineRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage redis_url is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage engine %q", c.Storage.Engine))
	}

	names := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Kind == "" {
			errs = append(errs, fmt.Errorf("provider %d: kind is required", i))
		}
		name := p.Name
		if name == "" {
			name = p.Kind
			c.Providers[i].Name = name
		}
		if names[name] {
			errs = append(errs, fmt.Errorf("provider %q configured twice", name))
		}
		names[name] = true
	}

	if c.Patterns.MaxAge <= 0 {
		errs = append(errs, errors.New("patterns max_age must be positive"))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format))
	}
	if err := c.Detection.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ProviderConfigs returns the provider list for the llm factory.
func (c *Config) ProviderConfigs() []llm.Config {
	out := make([]llm.Config, len(c.Providers))
	for i, p := range c.Providers {
		out[i] = p.LLM()
	}
	return out
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}
