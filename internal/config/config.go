package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/quartalhq/quartal/internal/batch"
	"github.com/quartalhq/quartal/internal/extraction"
	"github.com/quartalhq/quartal/pkg/database"
	"github.com/quartalhq/quartal/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvQuartalEnv             = "QUARTAL_ENV"
	EnvQuartalShutdownTimeout = "QUARTAL_SHUTDOWN_TIMEOUT"
	EnvQuartalVersion         = "QUARTAL_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "QUARTAL_DB_HOST",
	Port:            "QUARTAL_DB_PORT",
	Name:            "QUARTAL_DB_NAME",
	User:            "QUARTAL_DB_USER",
	Password:        "QUARTAL_DB_PASSWORD",
	SSLMode:         "QUARTAL_DB_SSL_MODE",
	MaxOpenConns:    "QUARTAL_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "QUARTAL_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "QUARTAL_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "QUARTAL_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "QUARTAL_STORAGE_CONTAINER_NAME",
	ConnectionString: "QUARTAL_STORAGE_CONNECTION_STRING",
}

var extractionEnv = &extraction.Env{
	APIKey:    "QUARTAL_EXTRACTION_API_KEY",
	Model:     "QUARTAL_EXTRACTION_MODEL",
	MaxTokens: "QUARTAL_EXTRACTION_MAX_TOKENS",
	Timeout:   "QUARTAL_EXTRACTION_TIMEOUT",
}

var batchEnv = &batch.Env{
	Workers:       "QUARTAL_BATCH_WORKERS",
	UploadTimeout: "QUARTAL_BATCH_UPLOAD_TIMEOUT",
}

// Config is the root configuration for the Quartal service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	Extraction      extraction.Config `toml:"extraction"`
	Batch           batch.Config      `toml:"batch"`
	API             APIConfig         `toml:"api"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the QUARTAL_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvQuartalEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Extraction.Merge(&overlay.Extraction)
	c.Batch.Merge(&overlay.Batch)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Extraction.Finalize(extractionEnv); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.Batch.Finalize(batchEnv); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvQuartalShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvQuartalVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvQuartalEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
