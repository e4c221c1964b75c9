package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/wscleanup/internal/config"
)

// Daemon runs periodic sweeps and reloads its settings when the
// configuration file changes on disk.
type Daemon struct {
	configPath   string
	scheduler    gocron.Scheduler
	watcher      *fsnotify.Watcher
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration

	mu      sync.Mutex
	sweeper *Sweeper
	jobID   string
}

// NewDaemon creates a sweep daemon from the loaded configuration. configPath
// is watched for changes; edits to sweep settings apply without a restart.
func NewDaemon(cfg *config.Config, configPath string) (*Daemon, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	d := &Daemon{
		configPath:   absPath,
		scheduler:    scheduler,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second, // Debounce rapid file changes
	}
	if err := d.apply(cfg); err != nil {
		watcher.Close()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return d, nil
}

// Start schedules the periodic sweep and begins watching the config file.
func (d *Daemon) Start(ctx context.Context) error {
	// Watch the directory containing the config file (more reliable than
	// watching the file directly).
	if err := d.watcher.Add(filepath.Dir(d.configPath)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	slog.Info("Starting sweep daemon", "config_path", d.configPath)
	d.scheduler.Start()

	go d.watchLoop(ctx)
	go d.reloadLoop(ctx)
	return nil
}

// Stop shuts down the scheduler and the watcher.
func (d *Daemon) Stop(ctx context.Context) error {
	slog.Info("Stopping sweep daemon")
	close(d.stopChan)
	if err := d.watcher.Close(); err != nil {
		slog.Error("Error closing file watcher", "error", err)
	}
	return d.scheduler.Shutdown()
}

// apply installs the sweep settings from cfg, replacing any scheduled job.
func (d *Daemon) apply(cfg *config.Config) error {
	interval, err := cfg.SweepInterval()
	if err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	policy, err := cfg.RetryPolicy()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sweeper = New(cfg.Sweep.BaseDirs, policy)

	if d.jobID != "" {
		for _, job := range d.scheduler.Jobs() {
			if job.ID().String() == d.jobID {
				if err := d.scheduler.RemoveJob(job.ID()); err != nil {
					slog.Warn("Failed to remove previous sweep job", "error", err)
				}
			}
		}
	}

	job, err := d.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.runSweep),
		gocron.WithName("workspace-sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	d.jobID = job.ID().String()

	slog.Info("Sweep schedule applied", "interval", interval, "base_dirs", cfg.Sweep.BaseDirs)
	return nil
}

func (d *Daemon) runSweep() {
	d.mu.Lock()
	s := d.sweeper
	d.mu.Unlock()
	s.Sweep(context.Background())
}

// watchLoop monitors file system events for the config file.
func (d *Daemon) watchLoop(ctx context.Context) {
	configFile := filepath.Base(d.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopChan:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				slog.Debug("Config file change detected", "file", event.Name)
				d.triggerReload()
			} else if event.Op&fsnotify.Remove != 0 {
				slog.Warn("Config file removed", "file", event.Name)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		}
	}
}

// triggerReload coalesces rapid successive changes into one pending reload.
func (d *Daemon) triggerReload() {
	select {
	case d.reloadChan <- struct{}{}:
	default:
	}
}

// reloadLoop debounces reload triggers and re-applies the configuration.
func (d *Daemon) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopChan:
			return
		case <-d.reloadChan:
			time.Sleep(d.debounceTime)

			cfg, err := config.Load(d.configPath)
			if err != nil {
				slog.Error("Config reload failed, keeping previous settings", "error", err)
				continue
			}
			if err := d.apply(cfg); err != nil {
				slog.Error("Could not apply reloaded config", "error", err)
			}
		}
	}
}
