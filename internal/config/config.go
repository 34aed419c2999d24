// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx, ...) layers .env, YAML file and SNOWGLOBE_ env vars over the defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// WSPath is the websocket upgrade path.
	WSPath string `koanf:"ws_path"`

	// AllowedOrigins feeds both CORS headers and websocket origin patterns.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// StaticDir optionally serves the controller and display pages from disk.
	StaticDir string `koanf:"static_dir"`

	// QueueSize bounds the inbound event queue feeding the dispatcher.
	QueueSize int `koanf:"queue_size"`

	// SendBuffer bounds each connection's outbound frame buffer.
	SendBuffer int `koanf:"send_buffer"`

	// StatsIntervalMS is the period of the stats broadcast to displays.
	StatsIntervalMS int `koanf:"stats_interval_ms"`

	// RegistrationTimeoutMS is the diagnostic deadline for the register message.
	RegistrationTimeoutMS int `koanf:"registration_timeout_ms"`

	// ShakeIntervalMS is the minimum spacing between accepted shakes per controller.
	ShakeIntervalMS int `koanf:"shake_interval_ms"`

	// MotionThreshold is the totalAcceleration a motion sample must exceed to be forwarded.
	MotionThreshold float64 `koanf:"motion_threshold"`

	// WriteTimeoutMS bounds a single websocket write.
	WriteTimeoutMS int `koanf:"write_timeout_ms"`

	// MaxMessageBytes caps inbound websocket frames.
	MaxMessageBytes int64 `koanf:"max_message_bytes"`

	// MDNSEnabled advertises the relay on the local network.
	MDNSEnabled bool `koanf:"mdns_enabled"`

	// MDNSInstance is the advertised mDNS instance name.
	MDNSInstance string `koanf:"mdns_instance"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":3000",
		WSPath:                "/ws",
		AllowedOrigins:        []string{"*"},
		QueueSize:             4096,
		SendBuffer:            64,
		StatsIntervalMS:       30_000,
		RegistrationTimeoutMS: 5_000,
		ShakeIntervalMS:       1_000,
		MotionThreshold:       15.0,
		WriteTimeoutMS:        10_000,
		MaxMessageBytes:       16 << 10,
		MDNSEnabled:           false,
		MDNSInstance:          "Snow Globe",
	}
}

// StatsInterval returns StatsIntervalMS as a duration.
func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalMS) * time.Millisecond
}

// RegistrationTimeout returns RegistrationTimeoutMS as a duration.
func (c *Config) RegistrationTimeout() time.Duration {
	return time.Duration(c.RegistrationTimeoutMS) * time.Millisecond
}

// ShakeInterval returns ShakeIntervalMS as a duration.
func (c *Config) ShakeInterval() time.Duration {
	return time.Duration(c.ShakeIntervalMS) * time.Millisecond
}

// WriteTimeout returns WriteTimeoutMS as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WSPath == "" || c.WSPath[0] != '/':
		return fmt.Errorf("%w: ws_path must start with /", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.SendBuffer <= 0:
		return fmt.Errorf("%w: send_buffer must be positive", ErrInvalidConfig)
	case c.StatsIntervalMS <= 0:
		return fmt.Errorf("%w: stats_interval_ms must be positive", ErrInvalidConfig)
	case c.RegistrationTimeoutMS <= 0:
		return fmt.Errorf("%w: registration_timeout_ms must be positive", ErrInvalidConfig)
	case c.ShakeIntervalMS < 0:
		return fmt.Errorf("%w: shake_interval_ms must not be negative", ErrInvalidConfig)
	case c.WriteTimeoutMS <= 0:
		return fmt.Errorf("%w: write_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxMessageBytes <= 0:
		return fmt.Errorf("%w: max_message_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}
