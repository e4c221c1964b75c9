package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/wscleanup/internal/cleanup"
	"git.home.luguber.info/inful/wscleanup/internal/config"
	"git.home.luguber.info/inful/wscleanup/internal/sweeper"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"wscleanup.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Clean struct {
		Path []string `short:"p" help:"Additional workspace roots to clean (repeatable)"`
	} `cmd:"" help:"Delete entries matching the configured patterns"`

	Wipeout struct {
		Path []string `short:"p" help:"Additional workspace roots to wipe (repeatable)"`
		Wait bool     `help:"Wait for background deletion to finish before exiting"`
	} `cmd:"" help:"Remove entire workspace roots, ignoring patterns"`

	Sweep struct {
	} `cmd:"" help:"Reclaim leftover renamed-away workspace directories once"`

	Daemon struct {
	} `cmd:"" help:"Run periodic sweeps, reloading configuration on change"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	switch ctx.Command() {
	case "clean":
		if err := runCleanup(cfg, CLI.Clean.Path, false, false); err != nil {
			slog.Error("Cleanup failed", "error", err)
			os.Exit(1)
		}
	case "wipeout":
		if err := runCleanup(cfg, CLI.Wipeout.Path, true, CLI.Wipeout.Wait); err != nil {
			slog.Error("Wipeout failed", "error", err)
			os.Exit(1)
		}
	case "sweep":
		if err := runSweep(cfg); err != nil {
			slog.Error("Sweep failed", "error", err)
			os.Exit(1)
		}
	case "daemon":
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	}
}

// resolveRoots builds the invocation worklist: the configured primary
// workspace, the optional external workspace, and any extra paths from the
// command line.
func resolveRoots(cfg *config.Config, extra []string) (cleanup.StaticRoots, error) {
	var roots cleanup.StaticRoots
	if cfg.Workspace.Path != "" {
		roots = append(roots, cleanup.Root{Path: cfg.Workspace.Path, Node: cfg.Workspace.Node})
	}
	if cfg.Workspace.External != "" {
		roots = append(roots, cleanup.Root{Path: cfg.Workspace.External, Node: cfg.Workspace.Node})
	}
	for _, p := range extra {
		roots = append(roots, cleanup.Root{Path: p, Node: cfg.Workspace.Node})
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no workspace roots configured; set workspace.path or pass --path")
	}
	return roots, nil
}

func runCleanup(cfg *config.Config, extraRoots []string, wipe, wait bool) error {
	roots, err := resolveRoots(cfg, extraRoots)
	if err != nil {
		return err
	}

	policy, err := cfg.RetryPolicy()
	if err != nil {
		return err
	}

	coordinator := cleanup.New(policy)
	report, err := coordinator.Run(context.Background(), cleanup.Request{
		Roots:         roots,
		Rules:         cfg.Rules,
		Wipeout:       wipe || cfg.Cleanup.Wipeout,
		Command:       cfg.Cleanup.Command,
		RunAlways:     cfg.Cleanup.RunAlways,
		FailOnResidue: cfg.Cleanup.FailOnResidue,
	})
	if err != nil {
		return err
	}

	for _, line := range report.Log {
		slog.Info(line)
	}
	if wait {
		coordinator.WaitBackground()
	}

	if !report.Clean() && report.FailOnResidue {
		return fmt.Errorf("cleanup left residue in %d root(s)", countUnclean(report))
	}
	if !report.Clean() {
		slog.Warn("Cleanup left residue; not configured to fail", "roots", countUnclean(report))
	}
	return nil
}

func countUnclean(report *cleanup.Report) int {
	n := 0
	for _, r := range report.Roots {
		if !r.Clean {
			n++
		}
	}
	return n
}

func runSweep(cfg *config.Config) error {
	policy, err := cfg.RetryPolicy()
	if err != nil {
		return err
	}

	out := sweeper.New(cfg.Sweep.BaseDirs, policy).Sweep(context.Background())
	if !out.Clean() {
		return fmt.Errorf("sweep could not remove %d entries", len(out.Failures))
	}
	return nil
}

func runDaemon(cfg *config.Config) error {
	// Create main context for the daemon
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := sweeper.NewDaemon(cfg, CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	slog.Info("Daemon started, waiting for shutdown signal...")
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}
