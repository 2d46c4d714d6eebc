package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	API     APIServerConfig `mapstructure:"api"     yaml:"api"`
	Engine  EngineConfig    `mapstructure:"engine"  yaml:"engine"`
	Metrics MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig       `mapstructure:"log"     yaml:"log"`
}

// APIServerConfig holds HTTP API server configuration
type APIServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"         yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"        yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"       yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        yaml:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"    yaml:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    yaml:"shutdown_timeout"`
	CORS              bool          `mapstructure:"cors"                yaml:"cors"`
	CORSOrigins       []string      `mapstructure:"cors_origins"        yaml:"cors_origins"`
	// EventHeartbeat is the keep-alive interval of SSE streams.
	EventHeartbeat time.Duration `mapstructure:"event_heartbeat" yaml:"event_heartbeat"`
}

// EngineConfig holds timer engine configuration
type EngineConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"  yaml:"tick_interval"  env:"ENGINE_TICK_INTERVAL"`
	MaxOvertime   int           `mapstructure:"max_overtime"   yaml:"max_overtime"   env:"ENGINE_MAX_OVERTIME"`
	PoolSize      int           `mapstructure:"pool_size"      yaml:"pool_size"      env:"ENGINE_POOL_SIZE"`
	InitialTimers int           `mapstructure:"initial_timers" yaml:"initial_timers" env:"ENGINE_INITIAL_TIMERS"`
	MinTimers     int           `mapstructure:"min_timers"     yaml:"min_timers"     env:"ENGINE_MIN_TIMERS"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"         yaml:"enabled"         env:"METRICS_ENABLED"`
	Path           string        `mapstructure:"path"            yaml:"path"            env:"METRICS_PATH"`
	ReportInterval time.Duration `mapstructure:"report_interval" yaml:"report_interval" env:"METRICS_REPORT_INTERVAL"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// Load loads configuration from file and environment. An empty path uses
// defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetEnvPrefix("COUNTDOWN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.read_header_timeout", "5s")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.idle_timeout", "120s")
	v.SetDefault("api.max_header_bytes", 1048576)
	v.SetDefault("api.shutdown_timeout", "10s")
	v.SetDefault("api.cors", false)
	v.SetDefault("api.event_heartbeat", "15s")

	v.SetDefault("engine.tick_interval", "1s")
	v.SetDefault("engine.max_overtime", 0)
	v.SetDefault("engine.pool_size", 0)
	v.SetDefault("engine.initial_timers", 1)
	v.SetDefault("engine.min_timers", 1)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.report_interval", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return errors.Join(
		c.validateAPI(),
		c.validateEngine(),
		c.validateMetrics(),
	)
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.ListenAddr) == "" {
		return fmt.Errorf("api.listen_addr is required")
	}
	if c.API.ShutdownTimeout <= 0 {
		return fmt.Errorf("api.shutdown_timeout must be positive")
	}
	if c.API.EventHeartbeat <= 0 {
		return fmt.Errorf("api.event_heartbeat must be positive")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine.tick_interval must be positive")
	}
	if c.Engine.MaxOvertime < 0 {
		return fmt.Errorf("engine.max_overtime must not be negative, got %d", c.Engine.MaxOvertime)
	}
	if c.Engine.PoolSize < 0 {
		return fmt.Errorf("engine.pool_size must not be negative, got %d", c.Engine.PoolSize)
	}
	if c.Engine.MinTimers < 0 {
		return fmt.Errorf("engine.min_timers must not be negative, got %d", c.Engine.MinTimers)
	}
	if c.Engine.InitialTimers < c.Engine.MinTimers {
		return fmt.Errorf("engine.initial_timers (%d) must be at least engine.min_timers (%d)",
			c.Engine.InitialTimers, c.Engine.MinTimers)
	}
	if c.Engine.PoolSize > 0 && c.Engine.PoolSize < c.Engine.InitialTimers {
		return fmt.Errorf("engine.pool_size (%d) cannot run the %d initial timers",
			c.Engine.PoolSize, c.Engine.InitialTimers)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", c.Metrics.Path)
	}
	if c.Metrics.ReportInterval <= 0 {
		return fmt.Errorf("metrics.report_interval must be positive")
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		API: APIServerConfig{
			ListenAddr:        ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
			ShutdownTimeout:   10 * time.Second,
			EventHeartbeat:    15 * time.Second,
		},
		Engine: EngineConfig{
			TickInterval:  time.Second,
			InitialTimers: 1,
			MinTimers:     1,
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			Path:           "/metrics",
			ReportInterval: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}
