package deletion

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/wscleanup/internal/logfields"
	"git.home.luguber.info/inful/wscleanup/internal/retry"
)

// Native removes entries with os.Remove, bottom-up, retrying each failed
// removal per the policy before demoting it to a recorded failure. The common
// case it absorbs is a file handle released by a child process shortly after
// the build step exits.
type Native struct {
	policy  retry.Policy
	sleeper retry.Sleeper
}

// NewNative builds a native strategy with the given retry policy.
func NewNative(policy retry.Policy) *Native {
	return &Native{policy: policy, sleeper: retry.RealSleeper{}}
}

// WithSleeper injects a sleeper (for deterministic tests).
func (n *Native) WithSleeper(s retry.Sleeper) *Native {
	n.sleeper = s
	return n
}

func (n *Native) Name() string { return "native" }

// Clean walks root and removes every selected entry. Siblings of a failed
// entry are still processed; failures are collected in the outcome.
func (n *Native) Clean(ctx context.Context, root string, sel Selection) Outcome {
	out := Outcome{Root: root}
	walkSelected(ctx, root, sel, &out, func(abs string, _ bool) {
		n.removeTree(ctx, abs, &out)
	})
	return out
}

// Remove deletes path itself together with everything beneath it.
func (n *Native) Remove(ctx context.Context, path string) Outcome {
	out := Outcome{Root: path}
	n.removeTree(ctx, path, &out)
	return out
}

// removeTree removes path and, for directories, everything beneath it,
// bottom-up. Returns true when the whole subtree is gone.
func (n *Native) removeTree(ctx context.Context, path string, out *Outcome) bool {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true
		}
		out.recordFailure(path, err)
		return false
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil && !os.IsNotExist(err) {
			out.recordFailure(path, err)
			return false
		}

		clean := true
		for _, e := range entries {
			if ctx.Err() != nil {
				return false
			}
			if !n.removeTree(ctx, filepath.Join(path, e.Name()), out) {
				clean = false
			}
		}
		if !clean {
			// children already reported; removing the dir would only fail again
			return false
		}
	}

	if err := n.removeWithRetry(ctx, path); err != nil {
		out.recordFailure(path, err)
		return false
	}
	out.recordRemoved()
	return true
}

// removeWithRetry attempts os.Remove, retrying per policy. An entry that
// vanishes between attempts counts as removed.
func (n *Native) removeWithRetry(ctx context.Context, path string) error {
	var lastErr error
	for attempt := 0; attempt <= n.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			n.sleeper.Sleep(ctx, n.policy.Delay(attempt))
			if ctx.Err() != nil {
				return lastErr
			}
		}

		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			if attempt > 0 {
				slog.Debug("Entry removed after retry", logfields.Entry(path), slog.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err
	}
	return lastErr
}
