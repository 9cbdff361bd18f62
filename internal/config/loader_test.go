package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/imagestub/internal/config"
	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/pflag"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with only a positional address", func() {
			fs := parseFlags(t, "127.0.0.1:8080")
			cfg, err := config.Load(ctx, fs)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, "127.0.0.1:8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
				convey.So(cfg.MetricsAddr, convey.ShouldBeEmpty)
				convey.So(cfg.ShutdownTimeoutMS, convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When no address is given anywhere", func() {
			cfg, err := config.Load(ctx, parseFlags(t))

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When more than one positional argument is given", func() {
			cfg, err := config.Load(ctx, parseFlags(t, "127.0.0.1:1", "127.0.0.1:2"))

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the positional address is unparseable", func() {
			cfg, err := config.Load(ctx, parseFlags(t, "not-an-address"))

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("IMAGESTUB_ADDR", ":9090")
			_ = os.Setenv("IMAGESTUB_LOG_LEVEL", "debug")
			_ = os.Setenv("IMAGESTUB_METRICS_ADDR", "127.0.0.1:9100")
			_ = os.Setenv("IMAGESTUB_SHUTDOWN_TIMEOUT_MS", "250")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.MetricsAddr, convey.ShouldEqual, "127.0.0.1:9100")
				convey.So(cfg.ShutdownTimeoutMS, convey.ShouldEqual, 250)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: "0.0.0.0:7070"
log_level: warn
log_format: json
shutdown_timeout_ms: 1000
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("IMAGESTUB_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, "0.0.0.0:7070")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.ShutdownTimeoutMS, convey.ShouldEqual, 1000)
			})
		})

		convey.Convey("When file, env and flags all set values", func() {
			yamlContent := `
addr: "0.0.0.0:7070"
log_level: warn
metrics_addr: "127.0.0.1:9100"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("IMAGESTUB_ADDR", ":9090")
			_ = os.Setenv("IMAGESTUB_LOG_LEVEL", "error")
			defer clearConfigEnvVars()

			fs := parseFlags(t, "--config", tmpFile, "--log-level", "debug", "127.0.0.1:8080")
			cfg, err := config.Load(ctx, fs)

			convey.Convey("Then flags should beat env, and env should beat the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, "127.0.0.1:8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.MetricsAddr, convey.ShouldEqual, "127.0.0.1:9100")
			})
		})

		convey.Convey("When env sets the address and no positional is given", func() {
			_ = os.Setenv("IMAGESTUB_ADDR", ":9090")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, parseFlags(t, "--metrics-addr", ":9100"))

			convey.Convey("Then the env address should be used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MetricsAddr, convey.ShouldEqual, ":9100")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.Load(ctx, parseFlags(t, "--config", tmpFile, ":8080"))

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("IMAGESTUB_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, parseFlags(t, ":8080"))

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an invalid numeric environment variable", func() {
			_ = os.Setenv("IMAGESTUB_SHUTDOWN_TIMEOUT_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, parseFlags(t, ":8080"))

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When env sets an empty address", func() {
			yamlContent := `addr: ":7070"`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("IMAGESTUB_CONFIG", tmpFile)
			_ = os.Setenv("IMAGESTUB_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, nil)

			convey.Convey("Then it should return validation error for empty addr", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("imagestub", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func clearConfigEnvVars() {
	envVars := []string{
		"IMAGESTUB_CONFIG",
		"IMAGESTUB_ADDR",
		"IMAGESTUB_LOG_LEVEL",
		"IMAGESTUB_LOG_FORMAT",
		"IMAGESTUB_METRICS_ADDR",
		"IMAGESTUB_SHUTDOWN_TIMEOUT_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "imagestub-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
