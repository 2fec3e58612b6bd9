package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Mode         ModeConfig         `mapstructure:"mode"`
	Completeness CompletenessConfig `mapstructure:"completeness"`
	Statistics   StatisticsConfig   `mapstructure:"statistics"`
	Batch        BatchConfig        `mapstructure:"batch"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Influx       InfluxConfig       `mapstructure:"influx"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	Host           string  `mapstructure:"host"`
	CacheSize      int     `mapstructure:"cache_size"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type HTTPConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig selects where the reporting-mode table and consent conditions
// live. Driver is "sqlite" or "postgres"; consents are only read from postgres.
type DatabaseConfig struct {
	Driver            string `mapstructure:"driver"`
	Path              string `mapstructure:"path"`
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Name              string `mapstructure:"name"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	SSLMode           string `mapstructure:"ssl_mode"`
	MaxConnections    int    `mapstructure:"max_connections"`
	ConnectionTimeout int    `mapstructure:"connection_timeout"`
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.ConnectionTimeout,
	)
}

type TelemetryConfig struct {
	URL            string        `mapstructure:"url"`
	Hts            string        `mapstructure:"hts"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type ModeConfig struct {
	MinReadings int           `mapstructure:"min_readings"`
	MaxAge      time.Duration `mapstructure:"max_age"`
	CacheSize   int           `mapstructure:"cache_size"`
	Location    string        `mapstructure:"location"`
}

type CompletenessConfig struct {
	Window          time.Duration `mapstructure:"window"`
	Lookback        time.Duration `mapstructure:"lookback"`
	MissingFraction float64       `mapstructure:"missing_fraction"`
}

type StatisticsConfig struct {
	SpikeMinStdDev   float64 `mapstructure:"spike_min_std_dev"`
	SpikeMinReadings int     `mapstructure:"spike_min_readings"`
	WaterYearPadding bool    `mapstructure:"water_year_padding"`
	From             string  `mapstructure:"from"`
	To               string  `mapstructure:"to"`
}

type BatchConfig struct {
	Workers      int           `mapstructure:"workers"`
	PointTimeout time.Duration `mapstructure:"point_timeout"`
	RunDeadline  time.Duration `mapstructure:"run_deadline"`
	PointsFile   string        `mapstructure:"points_file"`
}

type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	CompletenessSpec string `mapstructure:"completeness_spec"`
	ModeRefreshSpec  string `mapstructure:"mode_refresh_spec"`
	StatisticsSpec   string `mapstructure:"statistics_spec"`
}

type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
//
// $VAR references in the file are expanded before parsing, and any key can be
// overridden with a WATERUSE_ prefixed variable (e.g. WATERUSE_BATCH_WORKERS).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("WATERUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewReader([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks the values the service cannot run without.
func (c *Config) Validate() error {
	if c.Telemetry.URL == "" {
		return errors.New("telemetry url cannot be empty")
	}
	if c.Telemetry.RequestTimeout <= 0 {
		return errors.New("telemetry request timeout must be greater than 0")
	}
	if c.Telemetry.MaxRetries < 0 {
		return errors.New("telemetry max retries cannot be negative")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("database host and name are required for postgres")
		}
	default:
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Mode.MinReadings < 0 {
		return errors.New("mode min readings cannot be negative")
	}
	if c.Mode.CacheSize <= 0 {
		return errors.New("mode cache size must be greater than 0")
	}
	if _, err := time.LoadLocation(c.Mode.Location); err != nil {
		return fmt.Errorf("invalid mode location: %w", err)
	}

	if c.Completeness.Window <= 0 {
		return errors.New("completeness window must be greater than 0")
	}
	if c.Completeness.MissingFraction <= 0 || c.Completeness.MissingFraction > 1 {
		return fmt.Errorf("missing fraction must be in (0, 1]: %v", c.Completeness.MissingFraction)
	}

	if c.Batch.Workers <= 0 {
		return errors.New("batch workers must be greater than 0")
	}

	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Bucket == "") {
		return errors.New("influx url and bucket are required when influx is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka brokers and topic are required when kafka is enabled")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 50051)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.cache_size", 1000)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.mode", "release")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "wateruse.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.connection_timeout", 5)

	v.SetDefault("telemetry.url", "http://wateruse.ecan.govt.nz")
	v.SetDefault("telemetry.hts", "WaterUse.hts")
	v.SetDefault("telemetry.request_timeout", "30s")
	v.SetDefault("telemetry.max_retries", 3)
	v.SetDefault("telemetry.retry_base_delay", "1s")
	v.SetDefault("telemetry.rate_limit", 10.0)
	v.SetDefault("telemetry.rate_limit_burst", 5)

	v.SetDefault("mode.min_readings", 30)
	v.SetDefault("mode.max_age", "1344h") // 8 weeks
	v.SetDefault("mode.cache_size", 10000)
	v.SetDefault("mode.location", "UTC")

	v.SetDefault("completeness.window", "168h")
	v.SetDefault("completeness.lookback", "8760h")
	v.SetDefault("completeness.missing_fraction", 1.0)

	v.SetDefault("statistics.spike_min_std_dev", 0.0)
	v.SetDefault("statistics.spike_min_readings", 0)
	v.SetDefault("statistics.water_year_padding", true)
	v.SetDefault("statistics.from", "")
	v.SetDefault("statistics.to", "")

	v.SetDefault("batch.workers", 8)
	v.SetDefault("batch.point_timeout", "5m")
	v.SetDefault("batch.run_deadline", "6h")
	v.SetDefault("batch.points_file", "points.yaml")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.completeness_spec", "0 6 * * 1")
	v.SetDefault("scheduler.mode_refresh_spec", "0 2 1 */2 *")
	v.SetDefault("scheduler.statistics_spec", "")

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.org", "wateruse")
	v.SetDefault("influx.bucket", "wateruse-qa")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "wateruse-missing-data")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
