package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/wscleanup/internal/errors"
	"git.home.luguber.info/inful/wscleanup/internal/retry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wscleanup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestLoad_DefaultsApplyWhenFieldsAbsent(t *testing.T) {
	path := writeConfig(t, "workspace:\n  path: /var/build/ws\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "/var/build/ws", cfg.Workspace.Path)
	require.Equal(t, "built-in", cfg.Workspace.Node)
	require.True(t, cfg.Cleanup.RunAlways)

	policy, err := cfg.RetryPolicy()
	require.NoError(t, err)
	require.Equal(t, retry.BackoffFixed, policy.Mode)
	require.Equal(t, 100*time.Millisecond, policy.Initial)
	require.Equal(t, 3, policy.MaxRetries)

	interval, err := cfg.SweepInterval()
	require.NoError(t, err)
	require.Equal(t, time.Hour, interval)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
workspace:
  path: /var/build/ws
  node: agent-7
  external: /mnt/shared/ws
rules:
  - glob: "**/*.log"
  - glob: "logs/keep/**"
    exclude: true
cleanup:
  wipeout: false
  command: "rm -rf %s"
  fail_on_residue: true
retry:
  mode: linear
  initial: 50ms
  max: 500ms
  max_retries: 5
sweep:
  base_dirs: ["/var/build"]
  interval: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Rules, 2)
	require.True(t, cfg.Rules[1].Exclude)
	require.Equal(t, "rm -rf %s", cfg.Cleanup.Command)
	require.True(t, cfg.Cleanup.FailOnResidue)

	policy, err := cfg.RetryPolicy()
	require.NoError(t, err)
	require.Equal(t, retry.BackoffLinear, policy.Mode)
	require.Equal(t, 5, policy.MaxRetries)

	interval, err := cfg.SweepInterval()
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, interval)
	require.Equal(t, []string{"/var/build"}, cfg.Sweep.BaseDirs)
}

func TestLoad_EnvironmentExpansion(t *testing.T) {
	t.Setenv("BUILD_ROOT", "/data/builds")
	path := writeConfig(t, "workspace:\n  path: ${BUILD_ROOT}/ws\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/data/builds/ws", cfg.Workspace.Path)
}

func TestLoad_InvalidPatternFailsValidation(t *testing.T) {
	path := writeConfig(t, "rules:\n  - glob: \"[unclosed\"\n")

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestLoad_CommandWithoutPlaceholderFailsValidation(t *testing.T) {
	path := writeConfig(t, "cleanup:\n  command: \"rm -rf\"\n")

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestLoad_InvalidDurationFailsValidation(t *testing.T) {
	path := writeConfig(t, "retry:\n  initial: \"soon\"\n")

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryConfig))
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "workspace: [\n")

	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryConfig))
}
