package config

import (
	"fmt"
	"slices"
	"time"
)

// Config is the root configuration of the rally service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Feed    FeedConfig    `mapstructure:"feed"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig selects the entity store backend.
type StorageConfig struct {
	// Driver is one of "sqlite", "badger" or "file".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite file, badger directory or JSON file. Empty means
	// in-memory for sqlite and badger.
	Path string `mapstructure:"path"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeedConfig holds credentials for the remote timing feed (OAuth2 client
// credentials flow).
type FeedConfig struct {
	BaseURL      string   `mapstructure:"base_url"`
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverFile   = "file"
)

// Defaults.
const (
	DefaultAddr          = ":8080"
	DefaultReadTimeout   = 30 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultStorageDriver = DriverSQLite
	DefaultStoragePath   = "rally.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

var (
	validDrivers = []string{DriverSQLite, DriverBadger, DriverFile}
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if !slices.Contains(validDrivers, c.Storage.Driver) {
		return fmt.Errorf("storage.driver %q: want one of %v", c.Storage.Driver, validDrivers)
	}
	if c.Storage.Driver == DriverFile && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %q driver", DriverFile)
	}
	if !slices.Contains(validLevels, c.Log.Level) {
		return fmt.Errorf("log.level %q: want one of %v", c.Log.Level, validLevels)
	}
	if !slices.Contains(validFormats, c.Log.Format) {
		return fmt.Errorf("log.format %q: want one of %v", c.Log.Format, validFormats)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	return nil
}

// FeedConfigured reports whether enough feed settings are present to sync.
func (c *Config) FeedConfigured() bool {
	return c.Feed.BaseURL != "" && c.Feed.TokenURL != "" && c.Feed.ClientID != ""
}
