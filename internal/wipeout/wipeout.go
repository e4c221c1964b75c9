// Package wipeout removes an entire workspace root. The fast path renames the
// root aside so the path is vacated immediately and reclaims disk space in the
// background; when rename is impossible the engine falls back to deleting in
// place and verifies the root converged to empty.
package wipeout

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/wscleanup/internal/deletion"
	"git.home.luguber.info/inful/wscleanup/internal/logfields"
)

// MarkerSuffix tags renamed-away directories so a later sweep can recognize
// and reclaim them if the hosting process exits before background deletion
// finishes.
const MarkerSuffix = "_ws-cleanup_"

// State is a phase of the wipeout state machine.
type State string

const (
	StateStart            State = "start"
	StateRenameAway       State = "rename-away"
	StateBackgroundDelete State = "background-delete"
	StateInPlaceDelete    State = "in-place-delete"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Result is the terminal outcome of one wipeout run.
type Result struct {
	Path      string
	State     State            // StateDone or StateFailed
	Via       State            // StateBackgroundDelete or StateInPlaceDelete; StateStart when the root was already absent
	RenamedTo string           // set when rename-away succeeded
	Outcome   deletion.Outcome // populated by the in-place fallback
	Residue   []string         // entries remaining when State is StateFailed
}

// Done reports whether the workspace path is vacated (absent or empty).
func (r Result) Done() bool { return r.State == StateDone }

// Engine executes wipeouts. It holds no per-run state; concurrent Run calls
// on independent roots are safe.
type Engine struct {
	native *deletion.Native

	wg sync.WaitGroup
}

// NewEngine builds a wipeout engine using the given native strategy for the
// in-place fallback.
func NewEngine(native *deletion.Native) *Engine {
	return &Engine{native: native}
}

// Run wipes root. An absent root is a trivial success: pre-build and
// post-build hooks may both invoke wipeout on the same workspace.
func (e *Engine) Run(ctx context.Context, root string) Result {
	res := Result{Path: root, Via: StateStart}

	if _, err := os.Lstat(root); err != nil {
		if os.IsNotExist(err) {
			res.State = StateDone
			return res
		}
		// stat failed for another reason; the in-place path will report it
	}

	renamed, err := e.renameAway(root)
	if err == nil {
		res.Via = StateBackgroundDelete
		res.RenamedTo = renamed
		res.State = StateDone
		e.deleteInBackground(renamed)
		return res
	}

	slog.Debug("Rename-away failed, deleting in place", logfields.Root(root), logfields.Error(err))
	return e.inPlace(ctx, root, res)
}

// renameAway moves root to a uniquely suffixed sibling. The suffix carries a
// random component so concurrent wipeouts of recreated workspaces never
// collide on the target name.
func (e *Engine) renameAway(root string) (string, error) {
	target := filepath.Join(filepath.Dir(root), filepath.Base(root)+MarkerSuffix+uuid.NewString())
	if err := os.Rename(root, target); err != nil {
		return "", err
	}
	return target, nil
}

// deleteInBackground reclaims a renamed-away directory outside the critical
// path. The caller does not wait for it; if the process exits first, the
// directory is left behind for the sweeper.
func (e *Engine) deleteInBackground(path string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Background deletion incomplete", logfields.Root(path), logfields.Error(err))
		}
	}()
}

// inPlace deletes the root's contents where they are and verifies convergence
// by re-listing.
func (e *Engine) inPlace(ctx context.Context, root string, res Result) Result {
	res.Via = StateInPlaceDelete
	res.Outcome = e.native.Clean(ctx, root, deletion.SelectAll)

	entries, err := os.ReadDir(root)
	if err != nil && !os.IsNotExist(err) {
		res.State = StateFailed
		res.Residue = []string{root}
		return res
	}
	for _, entry := range entries {
		res.Residue = append(res.Residue, entry.Name())
	}

	if len(res.Residue) == 0 {
		res.State = StateDone
	} else {
		res.State = StateFailed
	}
	return res
}

// WaitBackground blocks until all background deletions started by this engine
// have finished. Tests and orderly shutdowns use it; builds do not.
func (e *Engine) WaitBackground() {
	e.wg.Wait()
}
