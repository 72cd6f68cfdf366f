package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		Secret       string        `yaml:"secret"`
		SecureCookie bool          `yaml:"secure_cookie"`
		SessionTTL   time.Duration `yaml:"session_ttl"`
	} `yaml:"auth"`
	RateLimit struct {
		MaxAttempts int           `yaml:"max_attempts"`
		Window      time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`
	Bootstrap struct {
		AdminEmail    string `yaml:"admin_email"`
		AdminName     string `yaml:"admin_name"`
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"bootstrap"`
}

// LoadConfig reads configuration from the specified YAML file. Secrets may be
// overridden (or supplied entirely) through the environment: AUTH_SECRET and
// DATABASE_URL take precedence over the file values.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if v := os.Getenv("AUTH_SECRET"); v != "" {
		config.Auth.Secret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}

	config.applyDefaults()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if c.RateLimit.MaxAttempts == 0 {
		c.RateLimit.MaxAttempts = 5
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
}

// Validate rejects configurations the server cannot safely start with.
// A missing auth secret is fatal here, never a per-request failure.
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth secret is required (auth.secret or AUTH_SECRET)")
	}
	if c.Database.URL == "" {
		return errors.New("database url is required (database.url or DATABASE_URL)")
	}
	return nil
}
