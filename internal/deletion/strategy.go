// Package deletion implements the best-effort removal strategies of the
// cleanup engine: a native recursive delete with bounded retry on locked
// entries, and an external-command delete with literal path substitution.
package deletion

import (
	"context"
	"os"
	"path/filepath"
	"sort"
)

// Decision is the per-path verdict of a selection.
type Decision int

const (
	DecisionNone    Decision = iota // no rule matched the path
	DecisionInclude                 // the path is targeted for deletion
	DecisionExclude                 // the path is explicitly protected
)

// Selection decides per entry whether it is targeted for deletion. Paths are
// root-relative and slash-separated. An included directory covers its whole
// subtree, except for descendants the selection explicitly excludes.
type Selection struct {
	// Decide returns the verdict for a single path.
	Decide func(relPath string, isDir bool) Decision

	// Prunable reports whether no exclusion can apply anywhere beneath
	// relPath, allowing an included directory to be removed whole without
	// consulting Decide for its descendants. Nil means never prune.
	Prunable func(relPath string) bool
}

func (s Selection) prunable(relPath string) bool {
	return s.Prunable != nil && s.Prunable(relPath)
}

// SelectAll targets every entry under the root.
var SelectAll = Selection{
	Decide:   func(string, bool) Decision { return DecisionInclude },
	Prunable: func(string) bool { return true },
}

// Strategy removes selected entries beneath a root and reports the result.
// Per-entry failures never abort the run; only configuration errors are
// surfaced before any deletion starts (at construction time).
type Strategy interface {
	Name() string

	// Clean walks root and removes every entry the selection targets. A root
	// that does not exist yields an empty, clean outcome.
	Clean(ctx context.Context, root string, sel Selection) Outcome
}

// walkSelected traverses root and calls remove for every selected entry.
// The remove callback records its own results in out.
func walkSelected(ctx context.Context, root string, sel Selection, out *Outcome, remove func(abs string, isDir bool)) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			out.recordFailure(root, err)
		}
		return
	}
	walkDir(ctx, root, "", entries, false, sel, out, remove)
}

// walkDir applies the selection to each entry. Inclusion is inherited: once a
// directory is selected, every descendant is selected too unless an exclusion
// overrides it. A selected directory is handed over whole only when the
// selection guarantees no exclusion beneath it; otherwise the walk descends,
// decides per path, and removes the directory itself once it has emptied out.
func walkDir(ctx context.Context, root, rel string, entries []os.DirEntry, inherited bool, sel Selection, out *Outcome, remove func(abs string, isDir bool)) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}

		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}
		abs := filepath.Join(root, filepath.FromSlash(childRel))
		isDir := e.IsDir()

		verdict := sel.Decide(childRel, isDir)
		selected := verdict == DecisionInclude || (inherited && verdict != DecisionExclude)

		if selected && (!isDir || sel.prunable(childRel)) {
			remove(abs, isDir)
			continue
		}

		if !isDir {
			continue
		}

		// Descend even into excluded directories: a later rule may
		// re-include entries beneath them.
		children, err := os.ReadDir(abs)
		if err != nil {
			if !os.IsNotExist(err) {
				out.recordFailure(abs, err)
			}
			continue
		}
		walkDir(ctx, root, childRel, children, selected, sel, out, remove)

		if selected {
			rest, err := os.ReadDir(abs)
			if err == nil && len(rest) == 0 {
				remove(abs, true)
			}
		}
	}
}
