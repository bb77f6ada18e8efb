package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAssets is the static manifest cached by the relay at install time.
var DefaultAssets = []string{
	"/",
	"/index.html",
	"/todo.css",
	"/todo.js",
	"/manifest.json",
	"/favicon.ico",
}

// Config holds user preferences
type Config struct {
	ServerURL            string        `yaml:"server_url" json:"server_url"`
	DataDir              string        `yaml:"data_dir" json:"data_dir"`
	CloudSync            bool          `yaml:"cloud_sync" json:"cloud_sync"`             // Opt-in remote sync
	EncryptionPassphrase string        `yaml:"encryption_passphrase,omitempty" json:"-"` // Seals remote documents when set
	RequestTimeout       time.Duration `yaml:"request_timeout" json:"request_timeout"`   // Per network call
	ProbeInterval        time.Duration `yaml:"probe_interval" json:"probe_interval"`     // Connectivity probe period

	// Relay asset cache
	CacheVersion string   `yaml:"cache_version" json:"cache_version"`
	OriginURL    string   `yaml:"origin_url" json:"origin_url"`
	Assets       []string `yaml:"assets" json:"assets"`
	Shell        string   `yaml:"shell" json:"shell"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// HomeDir returns ~/.ironhabit, or an empty string when there is no home.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".ironhabit")
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dataDir := getEnv("IRONHABIT_DATA_DIR", HomeDir())
	logPath := ""
	if dataDir != "" {
		logPath = filepath.Join(dataDir, "logs", "ironhabit.log")
	}

	return &Config{
		ServerURL:            getEnv("IRONHABIT_SERVER", "http://localhost:8080"),
		DataDir:              dataDir,
		CloudSync:            getEnv("IRONHABIT_CLOUD_SYNC", "true") == "true",
		EncryptionPassphrase: os.Getenv("IRONHABIT_PASSPHRASE"),
		RequestTimeout:       10 * time.Second,
		ProbeInterval:        15 * time.Second,
		CacheVersion:         "ironhabit-v7",
		OriginURL:            getEnv("IRONHABIT_ORIGIN", "http://localhost:8080"),
		Assets:               append([]string(nil), DefaultAssets...),
		Shell:                "/index.html",
		LogLevel:             getEnv("IRONHABIT_LOG_LEVEL", "INFO"),
		LogFile:              getEnv("IRONHABIT_LOG_FILE", logPath),
		LogConsole:           getEnv("IRONHABIT_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// DBPath is the SQLite file shared by the local store and the relay cache.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "ironhabit.db")
}

// Path returns the location of config.yaml.
func (c *Config) Path() string {
	return filepath.Join(c.DataDir, "config.yaml")
}

// Load loads config from ~/.ironhabit/config.yaml
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("cannot determine data directory")
	}
	return LoadFile(cfg.Path())
}

// LoadFile reads path on top of the defaults. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment wins over the file for secrets
	if p := os.Getenv("IRONHABIT_PASSPHRASE"); p != "" {
		cfg.EncryptionPassphrase = p
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 15 * time.Second
	}
	if len(c.Assets) == 0 {
		c.Assets = append([]string(nil), DefaultAssets...)
	}
	if c.Shell == "" {
		c.Shell = "/index.html"
	}
	if c.CacheVersion == "" {
		c.CacheVersion = "ironhabit-v7"
	}
}

// Save saves config to <data_dir>/config.yaml
func (c *Config) Save() error {
	return c.SaveFile(c.Path())
}

// SaveFile writes the config as YAML to path.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
