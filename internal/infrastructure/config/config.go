package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// Sensor types understood by the sensor factory.
const (
	SensorTypeSysfs = "sysfs"
	SensorTypeMQTT  = "mqtt"
)

// Config is the root configuration structure for the thermal monitor daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Monitors  []MonitorConfig `yaml:"monitors"`
	Database  DatabaseConfig  `yaml:"database"`
	History   HistoryConfig   `yaml:"history"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MonitorConfig describes one thermal monitor.
//
// The polling properties are pointers so an absent key can be told apart
// from an explicit zero. Their presence is checked by thermal.LoadConfig
// when the monitor starts, not by Validate.
type MonitorConfig struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`

	// PollTimeMS is the normal polling interval in milliseconds.
	PollTimeMS *int64 `yaml:"poll_time_ms"`

	// HotPollTimeMS is the polling interval used at or above HotCritTemp.
	HotPollTimeMS *int64 `yaml:"hot_poll_time_ms"`

	// HotCritTemp is the threshold in sensor units.
	HotCritTemp *int64 `yaml:"hot_crit_temp"`

	// ReadTimeoutMS bounds a single sensor read. Zero uses the monitor default.
	ReadTimeoutMS int `yaml:"read_timeout_ms"`

	Sensor SensorConfig `yaml:"sensor"`
}

// SensorConfig selects and configures a monitor's temperature source.
type SensorConfig struct {
	// Type is "sysfs" or "mqtt".
	Type string `yaml:"type"`

	// Path is the sysfs attribute for the sysfs sensor,
	// e.g. /sys/class/thermal/thermal_zone0/temp.
	Path string `yaml:"path"`

	// Divisor scales raw sysfs values (1000 turns millidegrees into degrees).
	// Zero or one leaves values unchanged.
	Divisor int64 `yaml:"divisor"`

	// Topic is the MQTT topic carrying readings for the mqtt sensor.
	Topic string `yaml:"topic"`

	// MaxAgeSeconds marks cached MQTT readings stale. Zero disables the check.
	MaxAgeSeconds int `yaml:"max_age_seconds"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HistoryConfig controls reading history and toggle persistence.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionDays is how long readings are kept. Zero keeps them forever.
	RetentionDays int `yaml:"retention_days"`

	// RetentionSchedule is the cron expression for the pruning job.
	RetentionSchedule string `yaml:"retention_schedule"`

	// RestoreState re-applies the last operator toggle on startup.
	RestoreState bool `yaml:"restore_state"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	Dashboard DashboardConfig  `yaml:"dashboard"`
}

// DashboardConfig controls the built-in status page served at "/".
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir serves the dashboard from disk instead of the embedded copy.
	Dir string `yaml:"dir"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig        `yaml:"jwt"`
	Operators []OperatorConfig `yaml:"operators"`
}

// OperatorConfig is an account allowed to obtain write tokens.
// PasswordHash is an Argon2id PHC string (see "thermalmon hash-password").
type OperatorConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// JWTConfig contains JWT token settings.
// An empty secret leaves the write endpoints unauthenticated.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: THERMALMON_SECTION_KEY
// For example: THERMALMON_DATABASE_PATH, THERMALMON_API_PORT
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Thermal Monitor",
		},
		Database: DatabaseConfig{
			Path:        "./data/thermalmon.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		History: HistoryConfig{
			Enabled:           true,
			RetentionDays:     30,
			RetentionSchedule: "@daily",
			RestoreState:      true,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "thermalmon",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Dashboard: DashboardConfig{Enabled: true},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: THERMALMON_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("THERMALMON_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("THERMALMON_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("THERMALMON_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("THERMALMON_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("THERMALMON_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("THERMALMON_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("THERMALMON_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("THERMALMON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("THERMALMON_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if len(c.Monitors) == 0 {
		errs = append(errs, "at least one monitor is required")
	}
	seen := make(map[string]bool, len(c.Monitors))
	for i, m := range c.Monitors {
		errs = append(errs, m.validate(i, seen)...)
	}

	if c.History.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when history is enabled")
	}
	if c.History.RetentionDays < 0 {
		errs = append(errs, "history.retention_days must not be negative")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// The secret is optional; without it the write endpoints are open.
	const minJWTSecretLength = 32
	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if len(c.Security.Operators) > 0 && c.Security.JWT.Secret == "" {
		errs = append(errs, "security.operators requires security.jwt.secret")
	}
	for i, op := range c.Security.Operators {
		if op.Username == "" || op.PasswordHash == "" {
			errs = append(errs, fmt.Sprintf("security.operators[%d]: username and password_hash are required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (m MonitorConfig) validate(i int, seen map[string]bool) []string {
	var errs []string
	prefix := fmt.Sprintf("monitors[%d]", i)

	switch {
	case m.Name == "":
		errs = append(errs, prefix+".name is required")
	case strings.ContainsAny(m.Name, "/+#"):
		errs = append(errs, prefix+".name must not contain '/', '+' or '#'")
	case seen[m.Name]:
		errs = append(errs, fmt.Sprintf("%s.name %q is duplicated", prefix, m.Name))
	default:
		seen[m.Name] = true
	}

	if m.ReadTimeoutMS < 0 {
		errs = append(errs, prefix+".read_timeout_ms must not be negative")
	}

	switch m.Sensor.Type {
	case SensorTypeSysfs:
		if m.Sensor.Path == "" {
			errs = append(errs, prefix+".sensor.path is required for sysfs sensors")
		}
		if m.Sensor.Divisor < 0 {
			errs = append(errs, prefix+".sensor.divisor must not be negative")
		}
	case SensorTypeMQTT:
		if m.Sensor.Topic == "" {
			errs = append(errs, prefix+".sensor.topic is required for mqtt sensors")
		}
		if m.Sensor.MaxAgeSeconds < 0 {
			errs = append(errs, prefix+".sensor.max_age_seconds must not be negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("%s.sensor.type %q is not supported", prefix, m.Sensor.Type))
	}

	return errs
}

// IsEnabled reports whether the monitor should be started.
// Monitors are enabled unless explicitly disabled.
func (m MonitorConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Property implements thermal.PropertySource.
func (m MonitorConfig) Property(name string) (int64, bool) {
	var v *int64
	switch name {
	case thermal.PropPollTime:
		v = m.PollTimeMS
	case thermal.PropHotPollTime:
		v = m.HotPollTimeMS
	case thermal.PropHotCritTemp:
		v = m.HotCritTemp
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// ReadTimeout returns the per-read timeout as a Duration (zero means default).
func (m MonitorConfig) ReadTimeout() time.Duration {
	return time.Duration(m.ReadTimeoutMS) * time.Millisecond
}

// MaxAge returns the MQTT sensor staleness bound as a Duration.
func (s SensorConfig) MaxAge() time.Duration {
	return time.Duration(s.MaxAgeSeconds) * time.Second
}

// Monitor returns the configuration of the named monitor.
func (c *Config) Monitor(name string) (MonitorConfig, bool) {
	for _, m := range c.Monitors {
		if m.Name == name {
			return m, true
		}
	}
	return MonitorConfig{}, false
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
