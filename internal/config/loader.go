package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Environment variable names.
const (
	EnvPrefix     = "IMAGESTUB_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Command-line flag names understood by Load.
const (
	FlagConfig      = "config"
	FlagLogLevel    = "log-level"
	FlagLogFormat   = "log-format"
	FlagMetricsAddr = "metrics-addr"
)

// flagKeys maps command-line flags onto koanf keys.
var flagKeys = map[string]string{
	FlagLogLevel:    "log_level",
	FlagLogFormat:   "log_format",
	FlagMetricsAddr: "metrics_addr",
}

// RegisterFlags declares the flags Load reads on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "path to a YAML config file (overrides $"+EnvConfigFile+")")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn, error")
	fs.String(FlagLogFormat, "", "log format: text or json")
	fs.String(FlagMetricsAddr, "", "host:port for a separate Prometheus /metrics listener")
}

// Load builds a Config by layering defaults, optional file, env vars and
// command-line flags. Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) from --config or IMAGESTUB_CONFIG
//  3. env (prefix IMAGESTUB_)
//  4. flags set on fs and the first positional argument (listen address)
//
// fs may be nil; it must already be parsed.
func Load(ctx context.Context, fs *pflag.FlagSet) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := configPath(fs); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// IMAGESTUB_LOG_LEVEL -> log_level; underscores are kept to match tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if fs != nil {
		if err := applyFlags(k, fs); err != nil {
			return nil, err
		}
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath(fs *pflag.FlagSet) string {
	if fs != nil && fs.Changed(FlagConfig) {
		if path, err := fs.GetString(FlagConfig); err == nil {
			return path
		}
	}
	return os.Getenv(EnvConfigFile)
}

func applyFlags(k *koanf.Koanf, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return fmt.Errorf("%w: flag --%s: %w", ErrLoadConfig, name, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("%w: flag --%s: %w", ErrLoadConfig, name, err)
		}
	}

	switch fs.NArg() {
	case 0:
	case 1:
		if err := k.Set("addr", fs.Arg(0)); err != nil {
			return fmt.Errorf("%w: listen address: %w", ErrLoadConfig, err)
		}
	default:
		return fmt.Errorf("%w: expected one listen address, got %d arguments", ErrInvalidConfig, fs.NArg())
	}
	return nil
}

// Validate checks field values after loading.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("%w: addr %q: %w", ErrInvalidConfig, c.Addr, err)
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("%w: metrics_addr %q: %w", ErrInvalidConfig, c.MetricsAddr, err)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.ShutdownTimeoutMS <= 0 {
		return fmt.Errorf("%w: shutdown_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
