// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Relay    RelayConfig    `mapstructure:"relay"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents the observer HTTP server configuration
type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// SecurityConfig represents HTTP security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// RelayConfig represents the two relay endpoints and the hand-off policy
type RelayConfig struct {
	Receive       ChannelConfig `mapstructure:"receive"`
	Transmit      ChannelConfig `mapstructure:"transmit"`
	OverrunPolicy string        `mapstructure:"overrun_policy"`
	EnforceTiming bool          `mapstructure:"enforce_timing"`
	EventBuffer   int           `mapstructure:"event_buffer"`
}

// ChannelConfig represents one serial endpoint
type ChannelConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	Parity      string        `mapstructure:"parity"`
	StopBits    int           `mapstructure:"stop_bits"`
	Mode        string        `mapstructure:"mode"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// Load loads configuration from file and environment variables. An empty
// path searches the default locations; a missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/serial-relay")
	}

	// Environment variable support
	v.SetEnvPrefix("SERIAL_RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Relay defaults
	v.SetDefault("relay.receive.port", "/dev/ttyUSB0")
	v.SetDefault("relay.receive.baud_rate", 9600)
	v.SetDefault("relay.receive.parity", "none")
	v.SetDefault("relay.receive.stop_bits", 1)
	v.SetDefault("relay.receive.mode", "rx")
	v.SetDefault("relay.receive.read_timeout", "50ms")

	v.SetDefault("relay.transmit.port", "/dev/ttyUSB1")
	v.SetDefault("relay.transmit.baud_rate", 115200)
	v.SetDefault("relay.transmit.parity", "none")
	v.SetDefault("relay.transmit.stop_bits", 1)
	v.SetDefault("relay.transmit.mode", "tx")
	v.SetDefault("relay.transmit.read_timeout", "50ms")

	v.SetDefault("relay.overrun_policy", "block")
	v.SetDefault("relay.enforce_timing", true)
	v.SetDefault("relay.event_buffer", 256)

	// App defaults
	v.SetDefault("app.name", "serial-relay")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Enabled {
		if config.Server.Host == "" {
			return fmt.Errorf("server.host is required")
		}
		if config.Server.Port == "" {
			return fmt.Errorf("server.port is required")
		}
	}

	if config.Relay.Receive.Port == "" {
		return fmt.Errorf("relay.receive.port is required")
	}
	if config.Relay.Transmit.Port == "" {
		return fmt.Errorf("relay.transmit.port is required")
	}
	if config.Relay.Receive.Port == config.Relay.Transmit.Port {
		return fmt.Errorf("relay.receive.port and relay.transmit.port must differ")
	}
	if config.Relay.EventBuffer < 0 {
		return fmt.Errorf("relay.event_buffer must not be negative")
	}

	if !oneOf(config.Relay.OverrunPolicy, "block", "drop", "fail") {
		return fmt.Errorf("relay.overrun_policy must be one of: [block drop fail]")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !oneOf(config.App.Environment, validEnvs...) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !oneOf(config.Logging.Level, validLevels...) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
