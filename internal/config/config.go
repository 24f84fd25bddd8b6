package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Public shelf cache configuration
	PublicShelf PublicShelfConfig `yaml:"public_shelf" json:"public_shelf"`

	// Listening history configuration
	History HistoryConfig `yaml:"history" json:"history"`

	// Catalog lookup client configuration
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" env:"SONAR_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" json:"port" env:"SONAR_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"SONAR_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"SONAR_WRITE_TIMEOUT" default:"30s"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors" env:"SONAR_ENABLE_CORS" default:"true"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Type         string `yaml:"type" json:"type" env:"DATABASE_TYPE" default:"sqlite"`
	DataDir      string `yaml:"data_dir" json:"data_dir" env:"SONAR_DATA_DIR" default:"./sonar-data"`
	DatabasePath string `yaml:"database_path" json:"database_path" env:"SONAR_DATABASE_PATH"`
	Host         string `yaml:"host" json:"host" env:"POSTGRES_HOST" default:"localhost"`
	Port         int    `yaml:"port" json:"port" env:"POSTGRES_PORT" default:"5432"`
	Username     string `yaml:"username" json:"username" env:"POSTGRES_USER" default:"sonar"`
	Password     string `yaml:"password" json:"-" env:"POSTGRES_PASSWORD"`
	Database     string `yaml:"database" json:"database" env:"POSTGRES_DB" default:"sonar"`
	LogQueries   bool   `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES" default:"false"`
}

// PublicShelfConfig controls the read-only public shelf cache
type PublicShelfConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl" json:"cache_ttl" env:"SONAR_PUBLIC_CACHE_TTL" default:"30s"`
	MaxCachedOwners int           `yaml:"max_cached_owners" json:"max_cached_owners" env:"SONAR_PUBLIC_CACHE_MAX" default:"256"`
}

// HistoryConfig controls listening history behavior
type HistoryConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit" env:"SONAR_HISTORY_LIMIT" default:"50"`
}

// CatalogConfig holds music catalog API client configuration
type CatalogConfig struct {
	Enabled            bool          `yaml:"enabled" json:"enabled" env:"SONAR_CATALOG_ENABLED" default:"true"`
	BaseURL            string        `yaml:"base_url" json:"base_url" env:"SONAR_CATALOG_BASE_URL" default:"https://api.spotify.com/v1"`
	TokenURL           string        `yaml:"token_url" json:"token_url" env:"SONAR_CATALOG_TOKEN_URL" default:"https://accounts.spotify.com/api/token"`
	ClientID           string        `yaml:"client_id" json:"client_id" env:"SONAR_CATALOG_CLIENT_ID"`
	ClientSecret       string        `yaml:"client_secret" json:"-" env:"SONAR_CATALOG_CLIENT_SECRET"`
	RequestTimeout     time.Duration `yaml:"request_timeout" json:"request_timeout" env:"SONAR_CATALOG_TIMEOUT" default:"15s"`
	SearchLimit        int           `yaml:"search_limit" json:"search_limit" env:"SONAR_CATALOG_SEARCH_LIMIT" default:"5"`
	CacheDurationHours int           `yaml:"cache_duration_hours" json:"cache_duration_hours" env:"SONAR_CATALOG_CACHE_HOURS" default:"168"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" env:"SONAR_LOG_LEVEL" default:"info"`
}

// ConfigManager manages application configuration with hot-reload support
type ConfigManager struct {
	config     *Config
	configPath string
	watchers   []ConfigWatcher
	mu         sync.RWMutex
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config)

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config:   DefaultConfig(),
		watchers: make([]ConfigWatcher, 0),
	}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			Type:     "sqlite",
			DataDir:  "./sonar-data",
			Host:     "localhost",
			Port:     5432,
			Username: "sonar",
			Database: "sonar",
		},
		PublicShelf: PublicShelfConfig{
			CacheTTL:        30 * time.Second,
			MaxCachedOwners: 256,
		},
		History: HistoryConfig{
			DefaultLimit: 50,
		},
		Catalog: CatalogConfig{
			Enabled:            true,
			BaseURL:            "https://api.spotify.com/v1",
			TokenURL:           "https://accounts.spotify.com/api/token",
			RequestTimeout:     15 * time.Second,
			SearchLimit:        5,
			CacheDurationHours: 168,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration using the global manager
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}

// Get returns the current configuration from the global manager
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// LoadConfig loads configuration from file and environment variables
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldConfig := *cm.config
	cm.configPath = configPath

	// Start with default configuration
	newConfig := DefaultConfig()

	// Load from file if it exists
	if configPath != "" && fileExists(configPath) {
		if err := loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Apply environment overrides on top of file values
	applyEnvOverrides(newConfig)

	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cm.config = newConfig

	// Notify watchers outside of internal state changes
	for _, watcher := range cm.watchers {
		watcher(&oldConfig, newConfig)
	}

	return nil
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigPath returns the path the configuration was loaded from
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// AddWatcher registers a callback invoked after every successful reload
func (cm *ConfigManager) AddWatcher(watcher ConfigWatcher) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.watchers = append(cm.watchers, watcher)
}

// Reload re-reads the configuration from the original path
func (cm *ConfigManager) Reload() error {
	cm.mu.RLock()
	path := cm.configPath
	cm.mu.RUnlock()
	return cm.LoadConfig(path)
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("database.type must be sqlite or postgres, got %q", c.Database.Type)
	}
	if c.PublicShelf.CacheTTL < 0 {
		return fmt.Errorf("public_shelf.cache_ttl must not be negative")
	}
	if c.PublicShelf.MaxCachedOwners < 1 {
		return fmt.Errorf("public_shelf.max_cached_owners must be at least 1")
	}
	if c.History.DefaultLimit < 1 {
		return fmt.Errorf("history.default_limit must be at least 1")
	}
	if c.Catalog.SearchLimit < 1 || c.Catalog.SearchLimit > 50 {
		return fmt.Errorf("catalog.search_limit must be between 1 and 50")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps SONAR_* style environment variables onto the config.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Host, "SONAR_HOST")
	setInt(&cfg.Server.Port, "SONAR_PORT")
	setDuration(&cfg.Server.ReadTimeout, "SONAR_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "SONAR_WRITE_TIMEOUT")
	setBool(&cfg.Server.EnableCORS, "SONAR_ENABLE_CORS")

	setString(&cfg.Database.Type, "DATABASE_TYPE")
	setString(&cfg.Database.DataDir, "SONAR_DATA_DIR")
	setString(&cfg.Database.DatabasePath, "SONAR_DATABASE_PATH")
	setString(&cfg.Database.Host, "POSTGRES_HOST")
	setInt(&cfg.Database.Port, "POSTGRES_PORT")
	setString(&cfg.Database.Username, "POSTGRES_USER")
	setString(&cfg.Database.Password, "POSTGRES_PASSWORD")
	setString(&cfg.Database.Database, "POSTGRES_DB")
	setBool(&cfg.Database.LogQueries, "DB_LOG_QUERIES")

	setDuration(&cfg.PublicShelf.CacheTTL, "SONAR_PUBLIC_CACHE_TTL")
	setInt(&cfg.PublicShelf.MaxCachedOwners, "SONAR_PUBLIC_CACHE_MAX")

	setInt(&cfg.History.DefaultLimit, "SONAR_HISTORY_LIMIT")

	setBool(&cfg.Catalog.Enabled, "SONAR_CATALOG_ENABLED")
	setString(&cfg.Catalog.BaseURL, "SONAR_CATALOG_BASE_URL")
	setString(&cfg.Catalog.TokenURL, "SONAR_CATALOG_TOKEN_URL")
	setString(&cfg.Catalog.ClientID, "SONAR_CATALOG_CLIENT_ID")
	setString(&cfg.Catalog.ClientSecret, "SONAR_CATALOG_CLIENT_SECRET")
	setDuration(&cfg.Catalog.RequestTimeout, "SONAR_CATALOG_TIMEOUT")
	setInt(&cfg.Catalog.SearchLimit, "SONAR_CATALOG_SEARCH_LIMIT")
	setInt(&cfg.Catalog.CacheDurationHours, "SONAR_CATALOG_CACHE_HOURS")

	setString(&cfg.Logging.Level, "SONAR_LOG_LEVEL")
}

func setString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}

func setBool(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*target = parsed
		}
	}
}

func setDuration(target *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*target = parsed
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
