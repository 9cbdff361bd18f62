// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Functions that may block accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr is the host:port the image responder binds, e.g. "127.0.0.1:8080".
	Addr string `koanf:"addr"`

	// MetricsAddr is an optional, separate host:port serving /metrics.
	// Empty disables the metrics listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// ShutdownTimeoutMS bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config populated with defaults. Addr has no default; it must
// come from the command line, a file or the environment.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		ShutdownTimeoutMS: 5000,
	}
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
