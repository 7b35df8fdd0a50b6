// Package config provides configuration management for amm-core using
// Viper. It supports configuration from files, environment variables, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort         = 8080
	defaultServerTimeout      = 30 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultMaxOpenConns       = 25
	defaultMaxIdleConns       = 10
	defaultConnMaxIdleTime    = 30 * time.Minute
	defaultScannerBatchSize   = 1000
	defaultSystemLoadLimit    = 15.0
	defaultMaxHeavyIO         = 2
	defaultMaxNormal          = 8
	defaultIdleInterval       = 5 * time.Minute
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Paths       PathsConfig       `mapstructure:"paths"`
	Extensions  ExtensionsConfig  `mapstructure:"extensions"`
	Import      ImportConfig      `mapstructure:"import"`
	Scanner     ScannerConfig     `mapstructure:"scanner"`
	AcoustID    AcoustIDConfig    `mapstructure:"acoustid"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration for the ambient
// /healthz, /status, /plugins surface exposed by `amm serve`.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CronSchedule, if non-empty, runs a full pipeline pass
	// (TaskManager.RunPipeline) on this cron expression in addition to the
	// TaskManager's own inactivity-based idle loop. 6-field robfig/cron
	// syntax (seconds minute hour dom month dow), e.g. "0 */15 * * * *" for
	// every 15 minutes. Empty disables cron-driven runs.
	CronSchedule string `mapstructure:"cron_schedule"`
}

// DatabaseConfig holds database connection configuration. Reused from the
// teacher almost verbatim since GORM driver selection is identical.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// PathsConfig names the directories the pipeline reads from and writes to.
type PathsConfig struct {
	Import  string `mapstructure:"import"`  // inbox the Scanner/Importer watch
	Process string `mapstructure:"process"` // working area for in-flight conversions
	Export  string `mapstructure:"export"`  // not read by any component; the Sorter's library root is Music
	Music   string `mapstructure:"music"`   // library root for already-sorted audio
	Art     string `mapstructure:"art"`     // cover-art cache
	Base    string `mapstructure:"base"`    // base directory other relative paths resolve against
}

// ExtensionsConfig lists importable audio file extensions. It is loaded and
// defaulted, but neither the Importer nor the Scanner reads it: the import
// walk admits every regular file.
type ExtensionsConfig struct {
	Import []string `mapstructure:"import"`
}

// ImportConfig tunes Importer behavior.
type ImportConfig struct {
	Clean       bool     `mapstructure:"clean"`         // loaded but not read by any task; the Importer deletes no files
	MaxFileSize ByteSize `mapstructure:"max_file_size"` // files larger than this are left in the import dir untouched; 0 = unlimited
}

// ScannerConfig tunes Scanner batching (spec.md §4.6).
type ScannerConfig struct {
	ScannerBatchSize int `mapstructure:"scanner_batch_size"`
}

// AcoustIDConfig holds the AcoustID API key. No component in this build
// reads it: ArtGetter's Cover Art Archive lookups need no key.
// APIKey is masq-redacted in logs (see internal/observability).
type AcoustIDConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ConcurrencyConfig mirrors the ConcurrencyController's tunables
// (spec.md §5): the system load ceiling above which new work is shed, and
// the heavy_io/normal semaphore sizes.
type ConcurrencyConfig struct {
	SystemLoadLimit float64  `mapstructure:"system_load_limit"`
	MaxHeavyIO      int      `mapstructure:"max_heavy_io"`
	MaxNormal       int      `mapstructure:"max_normal"`
	IdleInterval    Duration `mapstructure:"idle_interval"` // e.g. "5m"; accepts the teacher's extended d/w units too
}

// LoggingConfig holds logging configuration, reused from the teacher.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`

	// RequestLogging, when true, logs every HTTP request `serve` handles
	// regardless of status code. When false, only requests that error
	// (status >= 400) are logged, matching observability.IsRequestLoggingEnabled's
	// default-off posture for a single-user daemon.
	RequestLogging bool `mapstructure:"request_logging"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with AMM_ and use underscores for
// nesting. Example: AMM_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/amm")
		v.AddConfigPath("$HOME/.amm")
	}

	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cron_schedule", "")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "amm.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Paths defaults
	v.SetDefault("paths.base", "./data")
	v.SetDefault("paths.import", "./data/import")
	v.SetDefault("paths.process", "./data/process")
	v.SetDefault("paths.export", "./data/export")
	v.SetDefault("paths.music", "./data/music")
	v.SetDefault("paths.art", "./data/art")

	// Extensions defaults
	v.SetDefault("extensions.import", []string{"mp3", "flac", "m4a", "ogg", "opus", "wav"})

	// Import defaults
	v.SetDefault("import.clean", false)

	// Scanner defaults
	v.SetDefault("scanner.scanner_batch_size", defaultScannerBatchSize)

	// AcoustID defaults
	v.SetDefault("acoustid.api_key", "")

	// Concurrency defaults
	v.SetDefault("concurrency.system_load_limit", defaultSystemLoadLimit)
	v.SetDefault("concurrency.max_heavy_io", defaultMaxHeavyIO)
	v.SetDefault("concurrency.max_normal", defaultMaxNormal)
	v.SetDefault("concurrency.idle_interval", defaultIdleInterval)

	// Import defaults
	v.SetDefault("import.max_file_size", "0")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.request_logging", false)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Paths.Base == "" {
		return fmt.Errorf("paths.base is required")
	}
	if c.Paths.Import == "" {
		return fmt.Errorf("paths.import is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Scanner.ScannerBatchSize < 1 {
		return fmt.Errorf("scanner.scanner_batch_size must be at least 1")
	}
	if c.Concurrency.MaxHeavyIO < 1 {
		return fmt.Errorf("concurrency.max_heavy_io must be at least 1")
	}
	if c.Concurrency.MaxNormal < 1 {
		return fmt.Errorf("concurrency.max_normal must be at least 1")
	}
	if c.Concurrency.SystemLoadLimit <= 0 {
		return fmt.Errorf("concurrency.system_load_limit must be positive")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
