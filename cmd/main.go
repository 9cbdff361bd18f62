package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	app "github.com/okian/imagestub/internal/app"
	"github.com/okian/imagestub/internal/config"
	"github.com/okian/imagestub/pkg/logger"
	"github.com/okian/imagestub/pkg/metrics"

	"github.com/spf13/pflag"
)

const (
	programName               = "imagestub"
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process exit, returning the exit status.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		// pflag has already written the error and usage to stderr.
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(ctx, fs)
	if err != nil {
		fmt.Fprintf(stderr, "%s: failed to load config: %v\n", programName, err)
		fs.Usage()
		return 1
	}

	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		fmt.Fprintf(stderr, "%s: failed to initialize logging: %v\n", programName, err)
		return 1
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(stderr, "%s: failed to sync logger: %v\n", programName, err)
		}
	}()

	log := logger.Named(programName)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithAddr(cfg.Addr),
		app.WithMetricsAddr(cfg.MetricsAddr),
		app.WithShutdownTimeout(cfg.ShutdownTimeout()),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start server", logger.Error(err))
		return 1
	}

	go startSystemMetricsUpdater(ctx)

	code := 0
	select {
	case <-ctx.Done():
	case err := <-svc.Err():
		log.Error(ctx, "HTTP server failed", logger.Error(err))
		code = 1
	}

	// The signal context is already done; shut down on a fresh one.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		code = 1
	}
	return code
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [options] <host:port>\n\n", programName)
		fmt.Fprintf(stderr, "Serves a synthetic 512-byte image at GET/HEAD /image.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
