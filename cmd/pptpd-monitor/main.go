// Package main provides the entry point for pptpd-monitor.
//
// pptpd-monitor reads the syslog file pppd writes to, reconstructs PPTP VPN
// sessions from it and prints per-user traffic statistics, either once or
// refreshed periodically.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/shini4i/pptpd-monitor/internal/config"
	"github.com/shini4i/pptpd-monitor/internal/logging"
	"github.com/shini4i/pptpd-monitor/internal/logsource"
	"github.com/shini4i/pptpd-monitor/internal/monitor"
	"github.com/shini4i/pptpd-monitor/internal/probe"
)

// envPrefix is prepended to upper-cased flag names to form environment variables.
const envPrefix = "PPTPD_MONITOR"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var (
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options holds parsed command line state on top of the stored configuration.
type options struct {
	cfg        *config.Config
	configPath string
	json       bool
	saveConfig bool
	debug      bool
	version    bool
}

// parseFlags overlays args and PPTPD_MONITOR_* variables on cfg.
func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, error) {
	opts := &options{cfg: cfg}

	fs := flag.NewFlagSet("pptpd-monitor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "refresh the statistics until interrupted")
	fs.BoolVar(&cfg.Watch, "w", cfg.Watch, "shorthand for -watch")
	fs.IntVar(&cfg.DelaySeconds, "delay", cfg.DelaySeconds, "refresh interval in seconds for -watch")
	fs.IntVar(&cfg.DelaySeconds, "d", cfg.DelaySeconds, "shorthand for -delay")
	fs.StringVar(&cfg.LogFile, "logfile", cfg.LogFile, "syslog file pppd writes to")
	fs.StringVar(&cfg.LogFile, "f", cfg.LogFile, "shorthand for -logfile")
	fs.BoolVar(&cfg.Rotated, "rotated", cfg.Rotated, "also read rotated and compressed generations of the log file")
	fs.BoolVar(&cfg.Rotated, "r", cfg.Rotated, "shorthand for -rotated")
	fs.StringVar(&cfg.Probe, "probe", cfg.Probe, fmt.Sprintf("interface counter source, one of %v", probe.Kinds()))
	fs.BoolVar(&cfg.Follow, "follow", cfg.Follow, "refresh as soon as the log file changes")
	fs.BoolVar(&opts.json, "json", false, "print a JSON report instead of the table")
	fs.BoolVar(&opts.saveConfig, "save-config", false, "store the effective settings as the new defaults")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&opts.version, "version", false, "show version and exit")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(envPrefix)); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	configPath, err := config.Path()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	opts.configPath = configPath

	if opts.version {
		fmt.Fprintf(stdout, "pptpd-monitor %s\n", version)
		return exitOK
	}

	logging.Setup(logging.LevelFromEnv(opts.debug), stderr)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return exitError
	}

	if opts.saveConfig {
		if err := config.Save(opts.configPath, cfg); err != nil {
			slog.Error("Failed to save configuration", "path", opts.configPath, "error", err)
			return exitError
		}
		slog.Info("Configuration saved", "path", opts.configPath)
	}

	counters, err := probe.New(cfg.Probe)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	m := monitor.New(monitor.Options{
		LogFile: cfg.LogFile,
		Rotated: cfg.Rotated,
		Delay:   time.Duration(cfg.DelaySeconds) * time.Second,
		Follow:  cfg.Follow,
		JSON:    opts.json,
	}, counters, stdout)

	slog.Debug("Starting pptpd-monitor", "version", version, "logfile", cfg.LogFile, "watch", cfg.Watch)

	if cfg.Watch {
		err = m.Watch(ctx)
	} else {
		err = m.Run(ctx)
	}

	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return exitOK
	}

	var srcErr *logsource.SourceError
	if errors.As(err, &srcErr) {
		fmt.Fprintln(stderr, srcErr.Error())
		return exitError
	}

	slog.Error("pptpd-monitor failed", "error", err)
	return exitError
}
