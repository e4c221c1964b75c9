package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/wscleanup/internal/errors"
	"git.home.luguber.info/inful/wscleanup/internal/pattern"
	"git.home.luguber.info/inful/wscleanup/internal/retry"
)

func newCoordinator() *Coordinator {
	return New(retry.DefaultPolicy()).WithSleeper(&retry.FakeSleeper{})
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestRun_EmptyRulesNoWipeoutIsNoop(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content.txt"))

	report, err := newCoordinator().Run(context.Background(), Request{
		Roots: StaticRoots{{Path: root, Node: "built-in"}},
	})
	require.NoError(t, err)

	require.True(t, report.Clean())
	require.Zero(t, report.Roots[0].Outcome.Attempted)
	require.FileExists(t, filepath.Join(root, "content.txt"), "no inclusion rule matches by default")
}

func TestRun_RuleBasedCleanup(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build.log"))
	writeFile(t, filepath.Join(root, "src", "main.go"))
	writeFile(t, filepath.Join(root, "out", "deep", "junk.log"))

	report, err := newCoordinator().Run(context.Background(), Request{
		Roots: StaticRoots{{Path: root}},
		Rules: []pattern.Rule{{Glob: "**/*.log"}},
	})
	require.NoError(t, err)

	require.True(t, report.Clean())
	require.Equal(t, 2, report.Roots[0].Outcome.Removed)
	require.NoFileExists(t, filepath.Join(root, "build.log"))
	require.NoFileExists(t, filepath.Join(root, "out", "deep", "junk.log"))
	require.FileExists(t, filepath.Join(root, "src", "main.go"))
}

func TestRun_ExclusionOverridesIncludedDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "target", "keep.txt"))
	writeFile(t, filepath.Join(root, "target", "junk.txt"))
	writeFile(t, filepath.Join(root, "target", "classes", "App.class"))

	report, err := newCoordinator().Run(context.Background(), Request{
		Roots: StaticRoots{{Path: root}},
		Rules: []pattern.Rule{
			{Glob: "target"},
			{Glob: "target/keep.txt", Exclude: true},
		},
	})
	require.NoError(t, err)

	require.True(t, report.Clean())
	require.FileExists(t, filepath.Join(root, "target", "keep.txt"), "later exclusion overrides the directory inclusion")
	require.NoFileExists(t, filepath.Join(root, "target", "junk.txt"))
	require.NoDirExists(t, filepath.Join(root, "target", "classes"))
	require.DirExists(t, filepath.Join(root, "target"))
}

func TestRun_ExclusionOverridesIncludeEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep", "precious.txt"))
	writeFile(t, filepath.Join(root, "build.log"))
	writeFile(t, filepath.Join(root, "out", "junk.bin"))

	report, err := newCoordinator().Run(context.Background(), Request{
		Roots: StaticRoots{{Path: root}},
		Rules: []pattern.Rule{
			{Glob: "**"},
			{Glob: "keep/**", Exclude: true},
		},
	})
	require.NoError(t, err)

	require.True(t, report.Clean())
	require.FileExists(t, filepath.Join(root, "keep", "precious.txt"))
	require.NoFileExists(t, filepath.Join(root, "build.log"))
	require.NoDirExists(t, filepath.Join(root, "out"))
}

func TestRun_WipeoutIgnoresRules(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "workspace")
	writeFile(t, filepath.Join(root, "keep.go"))
	writeFile(t, filepath.Join(root, "scratch.log"))

	c := newCoordinator()
	report, err := c.Run(context.Background(), Request{
		Roots:   StaticRoots{{Path: root}},
		Rules:   []pattern.Rule{{Glob: "*.log"}}, // ignored in wipeout mode
		Wipeout: true,
	})
	require.NoError(t, err)
	c.WaitBackground()

	require.True(t, report.Clean())
	require.NoDirExists(t, root)
}

func TestRun_AbsentRootIsSuccess(t *testing.T) {
	root := filepath.Join(t.TempDir(), "never-allocated")

	for _, wipe := range []bool{false, true} {
		report, err := newCoordinator().Run(context.Background(), Request{
			Roots:   StaticRoots{{Path: root}},
			Rules:   []pattern.Rule{{Glob: "**"}},
			Wipeout: wipe,
		})
		require.NoError(t, err)
		require.True(t, report.Clean(), "wipeout=%v", wipe)
		require.Zero(t, report.Roots[0].Outcome.Attempted)
	}
}

func TestRun_AllRootsAttemptedDespiteFailures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions do not block deletion on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	// Parent and child workspaces of a fan-out build: the parent's content is
	// pinned, the children clean up fine. Every root must still be attempted.
	parent := t.TempDir()
	locked := filepath.Join(parent, "pinned")
	writeFile(t, filepath.Join(locked, "held.txt"))
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	childA := t.TempDir()
	writeFile(t, filepath.Join(childA, "a.txt"))
	childB := t.TempDir()
	writeFile(t, filepath.Join(childB, "b.txt"))

	report, err := newCoordinator().Run(context.Background(), Request{
		Roots: StaticRoots{
			{Path: parent, Node: "built-in"},
			{Path: childA, Node: "agent-a"},
			{Path: childB, Node: "agent-b"},
		},
		Rules:         []pattern.Rule{{Glob: "**"}},
		FailOnResidue: true,
	})
	require.NoError(t, err)

	require.False(t, report.Clean())
	require.True(t, report.FailOnResidue, "policy flag passes through for the host")
	require.Len(t, report.Roots, 3)
	require.False(t, report.Roots[0].Clean)
	require.True(t, report.Roots[1].Clean)
	require.True(t, report.Roots[2].Clean)
	require.NoFileExists(t, filepath.Join(childA, "a.txt"))
	require.NoFileExists(t, filepath.Join(childB, "b.txt"))
}

func TestRun_ResidueProducesSummaryLogLine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions do not block deletion on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "pinned")
	writeFile(t, filepath.Join(locked, "held.txt"))
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	report, err := newCoordinator().Run(context.Background(), Request{
		Roots: StaticRoots{{Path: root}},
		Rules: []pattern.Rule{{Glob: "**"}},
	})
	require.NoError(t, err)

	require.False(t, report.Clean())

	// residue is listed root-relative, matching the wipeout summary format
	var sawSummary bool
	for _, line := range report.Log {
		if line == fmt.Sprintf("%s workspace contains: [pinned/held.txt]", root) {
			sawSummary = true
		}
	}
	require.True(t, sawSummary, "expected a residue summary line, got: %v", report.Log)
}

func TestRun_BadPatternAbortsBeforeAnyDeletion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content.txt"))

	report, err := newCoordinator().Run(context.Background(), Request{
		Roots: StaticRoots{{Path: root}},
		Rules: []pattern.Rule{{Glob: "**"}, {Glob: "[unclosed"}},
	})

	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryConfig))
	require.Nil(t, report)
	require.FileExists(t, filepath.Join(root, "content.txt"), "no partial attempt on configuration errors")
}

func TestRun_BadCommandTemplateAbortsBeforeAnyDeletion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "content.txt"))

	_, err := newCoordinator().Run(context.Background(), Request{
		Roots:   StaticRoots{{Path: root}},
		Rules:   []pattern.Rule{{Glob: "**"}},
		Command: "rm -rf", // no placeholder
	})

	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryConfig))
	require.FileExists(t, filepath.Join(root, "content.txt"))
}

func TestRun_ExternalCommandReplacesNativeDeletion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on rm")
	}

	root := t.TempDir()
	name := `\s! Dozen for 5$ only!`
	writeFile(t, filepath.Join(root, name))

	report, err := newCoordinator().Run(context.Background(), Request{
		Roots:   StaticRoots{{Path: root}},
		Rules:   []pattern.Rule{{Glob: "**"}},
		Command: "rm %s",
	})
	require.NoError(t, err)

	require.True(t, report.Clean())
	require.Contains(t, report.Log, "Using command: rm "+filepath.Join(root, name))
	require.NoFileExists(t, filepath.Join(root, name))
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context) ([]Root, error) {
	return nil, fmt.Errorf("agent offline")
}

func TestRun_ResolverErrorSurfaces(t *testing.T) {
	_, err := newCoordinator().Run(context.Background(), Request{Roots: failingResolver{}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "resolve cleanup roots")
}
