package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the fertigation controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Server     ServerConfig     `yaml:"server"`
	Session    SessionConfig    `yaml:"session"`
	Locks      LockConfig       `yaml:"locks"`
	Storage    StorageConfig    `yaml:"storage"`
	Hardware   HardwareConfig   `yaml:"hardware"`
	Sampler    SamplerConfig    `yaml:"sampler"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ControllerConfig identifies this controller instance.
type ControllerConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Host      string              `yaml:"host"`
	Port      int                 `yaml:"port"`
	TLS       TLSConfig           `yaml:"tls"`
	Timeouts  ServerTimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig          `yaml:"cors"`
	StaticDir string              `yaml:"static_dir"`
	// MaxScheduleBody caps the request body size for schedule writes, in bytes.
	MaxScheduleBody int64 `yaml:"max_schedule_body"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ServerTimeoutConfig contains HTTP timeout settings in seconds.
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// SessionConfig contains session lifecycle settings.
type SessionConfig struct {
	// TimeoutMinutes is the idle timeout after which a session is torn down.
	TimeoutMinutes int `yaml:"timeout_minutes"`
	// SweepIntervalMinutes is how often the expiry sweep runs.
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

// LockConfig contains resource edit-lock settings.
type LockConfig struct {
	// TimeoutMinutes is the lock expiry age. 0 disables expiry entirely.
	TimeoutMinutes int `yaml:"timeout_minutes"`
	// SweepIntervalMinutes is how often the expiry sweep runs.
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

// StorageConfig contains filesystem layout settings for persisted state.
type StorageConfig struct {
	// DataDir is the root under which all persisted state lives.
	DataDir string `yaml:"data_dir"`
	// UsersDir holds one JSON file per user account.
	UsersDir string `yaml:"users_dir"`
	// SchedulesDir holds one JSON file per schedule plus the index file.
	SchedulesDir string `yaml:"schedules_dir"`
	// LockFile holds the full active-lock array, rewritten on every mutation.
	LockFile string `yaml:"lock_file"`
}

// HardwareConfig contains board IO settings.
type HardwareConfig struct {
	// BoardConfig is the path to the read-only board IO description file.
	BoardConfig string `yaml:"board_config"`
	// Adaptor selects the GPIO platform: "raspi" or "mock".
	Adaptor string `yaml:"adaptor"`
}

// SamplerConfig contains input polling settings.
type SamplerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// DatabaseConfig contains SQLite settings for the audit log and
// input sample history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	// TopicPrefix is prepended to all published and subscribed topics.
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// TelemetryConfig contains InfluxDB settings for sample history export.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FERTIGATE_SECTION_KEY
// For example: FERTIGATE_SERVER_PORT, FERTIGATE_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults. The session,
// lock, queue and body-size defaults match the values the controller has
// always shipped with.
func defaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			ID:   "fertigate-001",
			Name: "Fertigate",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			StaticDir:       "./data/www",
			MaxScheduleBody: 10 * 1024,
		},
		Session: SessionConfig{
			TimeoutMinutes:       15,
			SweepIntervalMinutes: 1,
		},
		Locks: LockConfig{
			TimeoutMinutes:       30,
			SweepIntervalMinutes: 5,
		},
		Storage: StorageConfig{
			DataDir:      "./data",
			UsersDir:     "./data/users",
			SchedulesDir: "./data/daily_schedules",
			LockFile:     "./data/locks/active_locks.json",
		},
		Hardware: HardwareConfig{
			BoardConfig: "./data/board_config.json",
			Adaptor:     "mock",
		},
		Sampler: SamplerConfig{
			IntervalSeconds: 1,
		},
		Database: DatabaseConfig{
			Path:        "./data/fertigate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fertigate-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "fertigate",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FERTIGATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FERTIGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FERTIGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("FERTIGATE_STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("FERTIGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("FERTIGATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FERTIGATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FERTIGATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("FERTIGATE_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure found, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Controller.ID == "" {
		errs = append(errs, "controller.id is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.MaxScheduleBody < 1 {
		errs = append(errs, "server.max_schedule_body must be positive")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "" {
			errs = append(errs, "server.tls requires cert_file and key_file when enabled")
		}
	}

	if c.Session.TimeoutMinutes < 1 {
		errs = append(errs, "session.timeout_minutes must be at least 1")
	}
	if c.Session.SweepIntervalMinutes < 1 {
		errs = append(errs, "session.sweep_interval_minutes must be at least 1")
	}

	// Lock timeout 0 is meaningful (expiry disabled); negative is not.
	if c.Locks.TimeoutMinutes < 0 {
		errs = append(errs, "locks.timeout_minutes must not be negative")
	}
	if c.Locks.SweepIntervalMinutes < 1 {
		errs = append(errs, "locks.sweep_interval_minutes must be at least 1")
	}

	if c.Storage.DataDir == "" {
		errs = append(errs, "storage.data_dir is required")
	}
	if c.Storage.UsersDir == "" {
		errs = append(errs, "storage.users_dir is required")
	}
	if c.Storage.SchedulesDir == "" {
		errs = append(errs, "storage.schedules_dir is required")
	}
	if c.Storage.LockFile == "" {
		errs = append(errs, "storage.lock_file is required")
	}

	if c.Hardware.BoardConfig == "" {
		errs = append(errs, "hardware.board_config is required")
	}
	switch c.Hardware.Adaptor {
	case "raspi", "mock":
	default:
		errs = append(errs, "hardware.adaptor must be \"raspi\" or \"mock\"")
	}

	if c.Sampler.IntervalSeconds < 1 {
		errs = append(errs, "sampler.interval_seconds must be at least 1")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Token == "" {
			errs = append(errs, "telemetry.token is required when telemetry is enabled (set FERTIGATE_TELEMETRY_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SessionTimeout returns the session idle timeout as a Duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// SessionSweepInterval returns the session sweep interval as a Duration.
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalMinutes) * time.Minute
}

// LockTimeout returns the lock expiry age as a Duration. Zero disables expiry.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Locks.TimeoutMinutes) * time.Minute
}

// LockSweepInterval returns the lock sweep interval as a Duration.
func (c *Config) LockSweepInterval() time.Duration {
	return time.Duration(c.Locks.SweepIntervalMinutes) * time.Minute
}

// SampleInterval returns the input polling interval as a Duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Sampler.IntervalSeconds) * time.Second
}

// ReadTimeout returns the HTTP read timeout as a Duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// WriteTimeout returns the HTTP write timeout as a Duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// IdleTimeout returns the HTTP idle timeout as a Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}

// IndexFile returns the path of the schedule index file inside SchedulesDir.
func (c *Config) IndexFile() string {
	return filepath.Join(c.Storage.SchedulesDir, "schedule_index.json")
}

// RequiredDirs lists every directory that must exist before the controller
// can serve. Created at startup; failure to create any of them is fatal.
func (c *Config) RequiredDirs() []string {
	return []string{
		c.Storage.DataDir,
		c.Storage.UsersDir,
		c.Storage.SchedulesDir,
		filepath.Dir(c.Storage.LockFile),
		filepath.Dir(c.Database.Path),
		c.Server.StaticDir,
	}
}
