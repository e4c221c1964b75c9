// Package cleanup is the entry point of the workspace-cleanup engine. The
// coordinator resolves the roots to process, applies pattern rules or
// whole-wipeout per configuration, and aggregates per-root outcomes into one
// invocation report.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/wscleanup/internal/deletion"
	"git.home.luguber.info/inful/wscleanup/internal/logfields"
	"git.home.luguber.info/inful/wscleanup/internal/metrics"
	"git.home.luguber.info/inful/wscleanup/internal/pattern"
	"git.home.luguber.info/inful/wscleanup/internal/retry"
	"git.home.luguber.info/inful/wscleanup/internal/wipeout"
)

// Request carries one invocation's inputs. Rules and flags come from host
// configuration and are read-only for the duration of the run.
type Request struct {
	Roots   Resolver
	Rules   []pattern.Rule
	Wipeout bool   // ignore rules, remove the whole root
	Command string // external command template; when set it replaces native deletion

	// Host policy, carried through unevaluated: the host decides build-status
	// impact from the report.
	RunAlways     bool
	FailOnResidue bool
}

// RootReport is the per-root result.
type RootReport struct {
	Root    Root
	Outcome deletion.Outcome
	Wipeout *wipeout.Result
	Clean   bool
}

// Report is the invocation-level aggregate. Residue in one root never stops
// processing of the others; the report collects everything.
type Report struct {
	Roots         []RootReport
	Log           []string
	RunAlways     bool
	FailOnResidue bool
}

// Clean reports whether every root was fully cleaned.
func (r *Report) Clean() bool {
	for _, root := range r.Roots {
		if !root.Clean {
			return false
		}
	}
	return true
}

// Coordinator runs cleanup invocations. It holds no per-invocation state;
// concurrent Run calls over independent roots are safe.
type Coordinator struct {
	policy   retry.Policy
	sleeper  retry.Sleeper
	recorder metrics.Recorder
	engine   *wipeout.Engine
}

// New builds a coordinator with the given retry policy for native deletion.
func New(policy retry.Policy) *Coordinator {
	c := &Coordinator{
		policy:   policy,
		sleeper:  retry.RealSleeper{},
		recorder: metrics.NoopRecorder{},
	}
	c.engine = wipeout.NewEngine(deletion.NewNative(policy).WithSleeper(c.sleeper))
	return c
}

// WithRecorder injects a metrics recorder.
func (c *Coordinator) WithRecorder(r metrics.Recorder) *Coordinator {
	c.recorder = r
	return c
}

// WithSleeper injects a sleeper for deterministic retry tests.
func (c *Coordinator) WithSleeper(s retry.Sleeper) *Coordinator {
	c.sleeper = s
	c.engine = wipeout.NewEngine(deletion.NewNative(c.policy).WithSleeper(s))
	return c
}

// WaitBackground blocks until background deletions from rename-away wipeouts
// have finished. Builds never call this; tests and orderly shutdowns do.
func (c *Coordinator) WaitBackground() {
	c.engine.WaitBackground()
}

// Run executes one cleanup invocation. Only configuration errors (bad
// pattern, malformed command template) return an error; every filesystem
// failure is data in the report.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Report, error) {
	rules, err := pattern.Compile(req.Rules)
	if err != nil {
		return nil, err
	}

	var strategy deletion.Strategy
	if req.Command != "" {
		strategy, err = deletion.NewCommand(req.Command)
		if err != nil {
			return nil, err
		}
	} else {
		strategy = deletion.NewNative(c.policy).WithSleeper(c.sleeper)
	}

	roots, err := req.Roots.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve cleanup roots: %w", err)
	}

	report := &Report{RunAlways: req.RunAlways, FailOnResidue: req.FailOnResidue}

	for _, root := range roots {
		var rr RootReport
		if req.Wipeout {
			rr = c.wipeRoot(ctx, root)
		} else {
			rr = c.cleanRoot(ctx, strategy, rules, root)
		}
		c.recorder.IncRootOutcome(rr.Clean)
		report.Roots = append(report.Roots, rr)
		report.Log = append(report.Log, rr.Outcome.Log...)
		if summary := summarize(rr); summary != "" {
			report.Log = append(report.Log, summary)
		}
	}

	return report, nil
}

// cleanRoot applies rule-based deletion to one root. An empty rule set
// selects nothing, so the walk is skipped entirely.
func (c *Coordinator) cleanRoot(ctx context.Context, strategy deletion.Strategy, rules *pattern.RuleSet, root Root) RootReport {
	rr := RootReport{Root: root, Clean: true}
	rr.Outcome.Root = root.Path
	if rules.Empty() {
		slog.Debug("No cleanup patterns configured, nothing selected", logfields.Root(root.Path), logfields.Node(root.Node))
		return rr
	}

	start := time.Now()
	rr.Outcome = strategy.Clean(ctx, root.Path, selection(rules))
	rr.Clean = rr.Outcome.Clean()

	c.recorder.ObserveRootCleanupDuration(strategy.Name(), time.Since(start))
	c.recorder.AddEntriesRemoved(strategy.Name(), rr.Outcome.Removed)
	c.recorder.AddEntriesFailed(strategy.Name(), len(rr.Outcome.Failures))

	slog.Info("Workspace cleanup finished",
		logfields.Root(root.Path),
		logfields.Node(root.Node),
		logfields.Strategy(strategy.Name()),
		logfields.Attempted(rr.Outcome.Attempted),
		logfields.Removed(rr.Outcome.Removed),
		logfields.Failed(len(rr.Outcome.Failures)))
	return rr
}

// wipeRoot removes the whole root through the wipeout engine.
func (c *Coordinator) wipeRoot(ctx context.Context, root Root) RootReport {
	start := time.Now()
	res := c.engine.Run(ctx, root.Path)

	rr := RootReport{Root: root, Wipeout: &res, Outcome: res.Outcome, Clean: res.Done()}
	rr.Outcome.Root = root.Path

	c.recorder.ObserveRootCleanupDuration("wipeout", time.Since(start))
	c.recorder.AddEntriesRemoved("wipeout", res.Outcome.Removed)
	c.recorder.AddEntriesFailed("wipeout", len(res.Outcome.Failures))
	switch res.Via {
	case wipeout.StateBackgroundDelete:
		c.recorder.IncWipeout(metrics.PathRenameAway)
	case wipeout.StateInPlaceDelete:
		c.recorder.IncWipeout(metrics.PathInPlace)
	default:
		c.recorder.IncWipeout(metrics.PathAbsent)
	}

	slog.Info("Workspace wipeout finished",
		logfields.Root(root.Path),
		logfields.Node(root.Node),
		slog.String("via", string(res.Via)),
		slog.Bool("done", res.Done()))
	return rr
}

// selection adapts a compiled rule set for the deletion walk. Subtree
// pruning under an included directory is safe only when no exclusion rule
// exists at all.
func selection(rules *pattern.RuleSet) deletion.Selection {
	sel := deletion.Selection{
		Decide: func(rel string, _ bool) deletion.Decision {
			switch rules.Decide(rel) {
			case pattern.VerdictInclude:
				return deletion.DecisionInclude
			case pattern.VerdictExclude:
				return deletion.DecisionExclude
			}
			return deletion.DecisionNone
		},
	}
	if !rules.HasExclusions() {
		sel.Prunable = func(string) bool { return true }
	}
	return sel
}

// summarize produces the one-line residue summary for a root, or "" when the
// root came out clean. Residue entries are listed root-relative in both the
// wipeout and the rule-based case.
func summarize(rr RootReport) string {
	if rr.Clean {
		return ""
	}
	if rr.Wipeout != nil && len(rr.Wipeout.Residue) > 0 {
		return fmt.Sprintf("%s workspace contains: [%s]", rr.Root.Path, strings.Join(rr.Wipeout.Residue, ", "))
	}
	names := make([]string, 0, len(rr.Outcome.Failures))
	for _, f := range rr.Outcome.Failures {
		names = append(names, relativeTo(rr.Root.Path, f.Path))
	}
	return fmt.Sprintf("%s workspace contains: [%s]", rr.Root.Path, strings.Join(names, ", "))
}

// relativeTo rewrites path relative to root, slash-separated. Paths outside
// the root (or unrelatable ones) pass through unchanged.
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
