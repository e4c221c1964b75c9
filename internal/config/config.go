// Package config loads and validates the engine configuration from YAML.
// Environment variables are expanded in the file content before unmarshaling,
// and a .env file in the working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/wscleanup/internal/deletion"
	"git.home.luguber.info/inful/wscleanup/internal/errors"
	"git.home.luguber.info/inful/wscleanup/internal/pattern"
	"git.home.luguber.info/inful/wscleanup/internal/retry"
)

// Config represents the application configuration
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Rules     []pattern.Rule  `yaml:"rules,omitempty"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Retry     RetryConfig     `yaml:"retry"`
	Sweep     SweepConfig     `yaml:"sweep"`
}

// WorkspaceConfig addresses the roots a cleanup invocation operates on.
type WorkspaceConfig struct {
	Path     string `yaml:"path"`
	Node     string `yaml:"node,omitempty"`
	External string `yaml:"external,omitempty"` // optional alternate workspace
}

// CleanupConfig selects the deletion mode and the host policy flags the
// engine carries through unevaluated.
type CleanupConfig struct {
	Wipeout       bool   `yaml:"wipeout"`
	Command       string `yaml:"command,omitempty"` // external deletion command template
	RunAlways     bool   `yaml:"run_always"`
	FailOnResidue bool   `yaml:"fail_on_residue"`
}

// RetryConfig configures the bounded retry on locked entries. Durations are
// Go duration strings ("100ms", "1s").
type RetryConfig struct {
	Mode       string `yaml:"mode"`
	Initial    string `yaml:"initial"`
	Max        string `yaml:"max"`
	MaxRetries int    `yaml:"max_retries"`
}

// SweepConfig configures reclamation of leftover rename-away directories.
type SweepConfig struct {
	BaseDirs []string `yaml:"base_dirs,omitempty"`
	Interval string   `yaml:"interval"`
}

// Default returns the configuration used when fields are absent from the file.
func Default() Config {
	return Config{
		Workspace: WorkspaceConfig{Node: "built-in"},
		Cleanup:   CleanupConfig{RunAlways: true},
		Retry:     RetryConfig{Mode: string(retry.BackoffFixed), Initial: "100ms", Max: "1s", MaxRetries: 3},
		Sweep:     SweepConfig{Interval: "1h"},
	}
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Pick up a .env file when present; its absence is not an error.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.ConfigError("configuration file not found").WithContext("path", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate surfaces every configuration error before any deletion is
// attempted: uncompilable patterns, malformed command templates, and
// impossible retry settings are all fatal for the invocation.
func (c *Config) Validate() error {
	if _, err := pattern.Compile(c.Rules); err != nil {
		return err
	}
	if c.Cleanup.Command != "" {
		if _, err := deletion.NewCommand(c.Cleanup.Command); err != nil {
			return err
		}
	}
	policy, err := c.RetryPolicy()
	if err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "invalid retry settings")
	}
	if _, err := c.SweepInterval(); err != nil {
		return err
	}
	return nil
}

// RetryPolicy builds the retry policy from the raw config fields.
func (c *Config) RetryPolicy() (retry.Policy, error) {
	initial, err := parseDuration(c.Retry.Initial, "retry.initial")
	if err != nil {
		return retry.Policy{}, err
	}
	max, err := parseDuration(c.Retry.Max, "retry.max")
	if err != nil {
		return retry.Policy{}, err
	}
	return retry.NewPolicy(retry.BackoffMode(c.Retry.Mode), initial, max, c.Retry.MaxRetries), nil
}

// SweepInterval returns the parsed sweep interval.
func (c *Config) SweepInterval() (time.Duration, error) {
	return parseDuration(c.Sweep.Interval, "sweep.interval")
}

func parseDuration(raw, field string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.ConfigError("invalid duration").WithContext("field", field).WithContext("value", raw)
	}
	if d < 0 {
		return 0, errors.ConfigError("duration cannot be negative").WithContext("field", field).WithContext("value", raw)
	}
	return d, nil
}
