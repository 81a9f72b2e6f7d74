// Package config loads blockdraft workspace configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the blockdraft configuration
type Config struct {
	Title     string                `yaml:"title"`
	Server    ServerConfig          `yaml:"server"`
	Storage   StorageConfig         `yaml:"storage"`
	Editor    EditorConfig          `yaml:"editor"`
	Preview   PreviewConfig         `yaml:"preview"`
	Variables VariablesConfig       `yaml:"variables"`
	Sinks     map[string]SinkConfig `yaml:"sinks,omitempty"`
	API       *APIConfig            `yaml:"api,omitempty"`
	Ignore    []string              `yaml:"ignore"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// StorageConfig selects where saved templates live
type StorageConfig struct {
	Driver string `yaml:"driver"`         // "sqlite", "postgres", or "memory"
	Path   string `yaml:"path,omitempty"` // For sqlite: database file path (default: ./blockdraft.db)
	DSN    string `yaml:"dsn,omitempty"`  // For postgres: connection string (env vars expanded)
}

// GetDriver returns the storage driver (default: "sqlite")
func (s StorageConfig) GetDriver() string {
	if s.Driver == "" {
		return "sqlite"
	}
	return s.Driver
}

// GetPath returns the sqlite database path (default: "blockdraft.db")
func (s StorageConfig) GetPath() string {
	if s.Path == "" {
		return "blockdraft.db"
	}
	return s.Path
}

// GetDSN returns the postgres connection string with environment variable expansion
func (s StorageConfig) GetDSN() string {
	if s.DSN == "" {
		return ""
	}
	return os.ExpandEnv(s.DSN)
}

// EditorConfig holds editing-session configuration
type EditorConfig struct {
	HistoryLimit int `yaml:"history_limit,omitempty"` // Undo depth (default: 50)
}

// GetHistoryLimit returns the undo depth (default: 50)
func (e EditorConfig) GetHistoryLimit() int {
	if e.HistoryLimit <= 0 {
		return 50
	}
	return e.HistoryLimit
}

// PreviewConfig holds preview rendering configuration
type PreviewConfig struct {
	Theme string `yaml:"theme,omitempty"` // "light", "dark", or "auto" (default: "auto")
}

// GetTheme returns the preview theme (default: "auto")
func (p PreviewConfig) GetTheme() string {
	switch p.Theme {
	case "light", "dark", "auto":
		return p.Theme
	}
	return "auto"
}

// VariablesConfig advertises the variables the surrounding CRM can
// resolve, plus sample values substituted into previews.
type VariablesConfig struct {
	Catalog []string          `yaml:"catalog,omitempty"` // Known identifiers (e.g., customerName)
	Sample  map[string]string `yaml:"sample,omitempty"`  // Sample values for preview substitution
}

// GetSample returns the sample dictionary, never nil
func (v VariablesConfig) GetSample() map[string]string {
	if v.Sample == nil {
		return map[string]string{}
	}
	return v.Sample
}

// SinkConfig defines a delivery destination for exported templates
type SinkConfig struct {
	Type    string `yaml:"type"`              // "file", "stdout", "email", "webhook", or "slack"
	Path    string `yaml:"path,omitempty"`    // For file: output path
	Format  string `yaml:"format,omitempty"`  // "json" or "html" (default: "json")
	To      string `yaml:"to,omitempty"`      // For email: recipient address
	Subject string `yaml:"subject,omitempty"` // For email: subject line
	URL     string `yaml:"url,omitempty"`     // For webhook/slack: endpoint (env vars expanded)
	Secret  string `yaml:"secret,omitempty"`  // For webhook: X-Blockdraft-Secret header value (env vars expanded)
	Channel string `yaml:"channel,omitempty"` // For slack: channel name (e.g., "#quotes")
}

// GetFormat returns the export format (default: "json")
func (s SinkConfig) GetFormat() string {
	if s.Format == "" {
		return "json"
	}
	return s.Format
}

// GetURL returns the webhook URL with environment variable expansion
func (s SinkConfig) GetURL() string {
	if s.URL == "" {
		return ""
	}
	return os.ExpandEnv(s.URL)
}

// GetSecret returns the webhook secret with environment variable expansion
func (s SinkConfig) GetSecret() string {
	if s.Secret == "" {
		return ""
	}
	return os.ExpandEnv(s.Secret)
}

// APIConfig holds REST API configuration
type APIConfig struct {
	CORS      *CORSConfig      `yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// CORSConfig holds CORS configuration for the API
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty"` // Allowed origins (e.g., ["http://localhost:3000", "*"])
}

// RateLimitConfig holds rate limiting configuration for the API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // Rate limit in requests per second (default: 10)
	Burst             int     `yaml:"burst,omitempty"`               // Burst size (default: 20)
	MaxTrackedIPs     int     `yaml:"max_tracked_ips,omitempty"`     // Maximum number of client IPs tracked at once (default: 10000)
}

// GetCORSOrigins returns the configured CORS origins, or nil if not configured
func (c *APIConfig) GetCORSOrigins() []string {
	if c == nil || c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10)
func (c *APIConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20)
func (c *APIConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 20
	}
	return c.RateLimit.Burst
}

// GetMaxTrackedIPs returns the maximum number of client IPs the rate
// limiter tracks before evicting the least recently seen (default: 10000)
func (c *APIConfig) GetMaxTrackedIPs() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.MaxTrackedIPs <= 0 {
		return 10000
	}
	return c.RateLimit.MaxTrackedIPs
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title: "Blockdraft",
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "blockdraft.db",
		},
		Editor: EditorConfig{
			HistoryLimit: 50,
		},
		Preview: PreviewConfig{
			Theme: "auto",
		},
		Ignore: []string{
			"drafts/**",
		},
	}
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML on top of the defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadFromDir looks for blockdraft.yaml or blockdraft.yml in the given
// directory. If neither is found, returns the default configuration.
func LoadFromDir(dir string) (*Config, error) {
	yamlPath := filepath.Join(dir, "blockdraft.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return Load(yamlPath)
	}

	ymlPath := filepath.Join(dir, "blockdraft.yml")
	return Load(ymlPath)
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
