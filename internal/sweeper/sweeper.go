// Package sweeper reclaims renamed-away workspace directories whose
// background deletion never finished, typically because the hosting process
// exited first. It recognizes them by the wipeout marker suffix and needs no
// persistent state: the filesystem itself is the work queue.
package sweeper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/wscleanup/internal/deletion"
	"git.home.luguber.info/inful/wscleanup/internal/logfields"
	"git.home.luguber.info/inful/wscleanup/internal/retry"
	"git.home.luguber.info/inful/wscleanup/internal/wipeout"
)

// Sweeper scans base directories for leftover rename-away directories and
// deletes them.
type Sweeper struct {
	baseDirs []string
	native   *deletion.Native
}

// New builds a sweeper over the given base directories.
func New(baseDirs []string, policy retry.Policy) *Sweeper {
	return &Sweeper{
		baseDirs: baseDirs,
		native:   deletion.NewNative(policy),
	}
}

// Sweep runs one pass over all base directories and returns the merged
// outcome. An unreadable or absent base directory is skipped with a warning;
// sweeping is opportunistic by contract.
func (s *Sweeper) Sweep(ctx context.Context) deletion.Outcome {
	var out deletion.Outcome
	for _, dir := range s.baseDirs {
		out.Merge(s.sweepDir(ctx, dir))
	}
	if out.Attempted > 0 {
		slog.Info("Sweep finished",
			logfields.Attempted(out.Attempted),
			logfields.Removed(out.Removed),
			logfields.Failed(len(out.Failures)))
	}
	return out
}

func (s *Sweeper) sweepDir(ctx context.Context, dir string) deletion.Outcome {
	var out deletion.Outcome
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Cannot read sweep base directory", logfields.Root(dir), logfields.Error(err))
		}
		return out
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return out
		}
		if !entry.IsDir() || !strings.Contains(entry.Name(), wipeout.MarkerSuffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		slog.Debug("Reclaiming leftover wipeout directory", logfields.Root(path))
		out.Merge(s.native.Remove(ctx, path))
	}
	return out
}
