package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yigit/substitutions/internal/domain"
)

// DefaultConfigPath is used when CONFIG_PATH is not set
const DefaultConfigPath = "configs/config.yaml"

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Source struct {
		// Location is an http(s) URL or a local file path of the rules document
		Location        string `yaml:"location" env:"SOURCE_LOCATION"`
		Timeout         string `yaml:"timeout" env:"SOURCE_TIMEOUT"`
		Watch           bool   `yaml:"watch" env:"SOURCE_WATCH"`
		RefreshInterval string `yaml:"refresh_interval" env:"SOURCE_REFRESH_INTERVAL"`
		MaxBodyBytes    int64  `yaml:"max_body_bytes" env:"SOURCE_MAX_BODY_BYTES"`
	} `yaml:"source"`

	Merge struct {
		KeyStyle string `yaml:"key_style" env:"MERGE_KEY_STYLE"`
	} `yaml:"merge"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables.
// A missing file is not an error; defaults and env vars still apply.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Source.Location = "public/list.json"
	config.Source.Timeout = "10s"
	config.Source.Watch = true
	config.Source.MaxBodyBytes = 5 << 20

	config.Merge.KeyStyle = string(domain.KeyStyleCanonical)

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if strings.TrimSpace(config.Source.Location) == "" {
		return fmt.Errorf("source location is required")
	}

	if _, err := time.ParseDuration(config.Source.Timeout); err != nil {
		return fmt.Errorf("invalid source timeout format: %w", err)
	}

	if config.Source.RefreshInterval != "" {
		d, err := time.ParseDuration(config.Source.RefreshInterval)
		if err != nil {
			return fmt.Errorf("invalid source refresh interval format: %w", err)
		}
		if d < time.Second {
			return fmt.Errorf("source refresh interval must be at least 1s, got %s", d)
		}
	}

	if config.Source.MaxBodyBytes <= 0 {
		return fmt.Errorf("source max body bytes must be positive")
	}

	if _, err := domain.ParseKeyStyle(config.Merge.KeyStyle); err != nil {
		return err
	}

	return nil
}

// KeyStyle returns the parsed merge key style. Call after LoadConfig.
func (c *Config) KeyStyle() domain.KeyStyle {
	style, err := domain.ParseKeyStyle(c.Merge.KeyStyle)
	if err != nil {
		return domain.KeyStyleCanonical
	}
	return style
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
