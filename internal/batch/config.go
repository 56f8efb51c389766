package batch

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds batch processing parameters.
type Config struct {
	Workers       int    `toml:"workers"`
	UploadTimeout string `toml:"upload_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Workers       string
	UploadTimeout string
}

// UploadTimeoutDuration returns UploadTimeout as a time.Duration.
func (c *Config) UploadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.UploadTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.UploadTimeout != "" {
		c.UploadTimeout = overlay.UploadTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.UploadTimeout == "" {
		c.UploadTimeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.Workers = n
			}
		}
	}
	if env.UploadTimeout != "" {
		if v := os.Getenv(env.UploadTimeout); v != "" {
			c.UploadTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", c.Workers)
	}
	if _, err := time.ParseDuration(c.UploadTimeout); err != nil {
		return fmt.Errorf("invalid upload_timeout: %w", err)
	}
	return nil
}
