package sweeper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/wscleanup/internal/retry"
	"git.home.luguber.info/inful/wscleanup/internal/wipeout"
)

func makeLeftover(t *testing.T, base, name string) string {
	t.Helper()
	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "data.bin"), []byte("x"), 0o600))
	return dir
}

func TestSweep_ReclaimsMarkerDirectories(t *testing.T) {
	base := t.TempDir()
	leftover := makeLeftover(t, base, "workspace"+wipeout.MarkerSuffix+"abc123")
	active := makeLeftover(t, base, "workspace")

	s := New([]string{base}, retry.DefaultPolicy())
	out := s.Sweep(context.Background())

	require.True(t, out.Clean())
	require.NoDirExists(t, leftover)
	require.DirExists(t, active, "live workspaces are never touched")
}

func TestSweep_IgnoresFilesWithMarkerInName(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "notes"+wipeout.MarkerSuffix+"x.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	s := New([]string{base}, retry.DefaultPolicy())
	out := s.Sweep(context.Background())

	require.Zero(t, out.Attempted)
	require.FileExists(t, file)
}

func TestSweep_AbsentBaseDirIsSkipped(t *testing.T) {
	s := New([]string{filepath.Join(t.TempDir(), "gone")}, retry.DefaultPolicy())
	out := s.Sweep(context.Background())

	require.True(t, out.Clean())
	require.Zero(t, out.Attempted)
}

func TestSweep_MultipleBaseDirsAreMerged(t *testing.T) {
	baseA := t.TempDir()
	baseB := t.TempDir()
	leftA := makeLeftover(t, baseA, "ws"+wipeout.MarkerSuffix+"1")
	leftB := makeLeftover(t, baseB, "ws"+wipeout.MarkerSuffix+"2")

	s := New([]string{baseA, baseB}, retry.DefaultPolicy())
	out := s.Sweep(context.Background())

	require.True(t, out.Clean())
	require.NoDirExists(t, leftA)
	require.NoDirExists(t, leftB)
}
