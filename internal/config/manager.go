package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultAPIBaseURL is used when neither the config file nor the environment
// names a backend.
const DefaultAPIBaseURL = "http://localhost:5000"

// Config holds the user's persistent preferences.
type Config struct {
	APIBaseURL   string `json:"api_base_url" validate:"required,url"`
	DefaultModel string `json:"default_model,omitempty"`
	Theme        string `json:"theme,omitempty" validate:"omitempty,oneof=light dark system"`
	MaxRetries   int    `json:"max_retries" validate:"gte=0,lte=5"`
	CacheTTL     int    `json:"cache_ttl_seconds" validate:"gte=0"` // 0 disables the local query cache
	Output       string `json:"output,omitempty" validate:"omitempty,oneof=table json yaml"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	return &Config{
		APIBaseURL: DefaultAPIBaseURL,
		Theme:      "system",
		MaxRetries: 2,
		CacheTTL:   300,
		Output:     "table",
	}
}

// CacheTTLDuration is CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a manager rooted at <user config dir>/issuefix.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return NewManagerAt(filepath.Join(configDir, "issuefix")), nil
}

// NewManagerAt creates a manager rooted at dir.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// Dir is the directory holding config.json, the session file and the cache.
func (m *Manager) Dir() string {
	return m.configDir
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the configuration from disk, filling unset fields from Defaults.
// If the file does not exist, it returns Defaults and no error.
func (m *Manager) Load() (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(m.GetConfigPath())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}
	return cfg, nil
}

// Save validates cfg and writes it with owner-only permissions.
func (m *Manager) Save(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.GetConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}

// ApplyEnv overrides cfg with ISSUEFIX_* environment variables. Invalid
// numeric values are reported and leave the field untouched.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("ISSUEFIX_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("ISSUEFIX_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if v := os.Getenv("ISSUEFIX_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("ISSUEFIX_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("ISSUEFIX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ISSUEFIX_RETRIES %q: %w", v, err)
		}
		cfg.MaxRetries = n
	}
	if v := os.Getenv("ISSUEFIX_CACHE_TTL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ISSUEFIX_CACHE_TTL %q: %w", v, err)
		}
		cfg.CacheTTL = n
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg's field constraints.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Set updates a single field by its JSON key. Used by `issuefix config set`.
func Set(cfg *Config, key, value string) error {
	switch key {
	case "api_base_url":
		cfg.APIBaseURL = value
	case "default_model":
		cfg.DefaultModel = value
	case "theme":
		cfg.Theme = value
	case "output":
		cfg.Output = value
	case "max_retries", "cache_ttl_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		if key == "max_retries" {
			cfg.MaxRetries = n
		} else {
			cfg.CacheTTL = n
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return Validate(cfg)
}
