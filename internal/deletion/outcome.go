package deletion

import "fmt"

// EntryFailure records a single entry that could not be removed, with the
// reason. Failures are data, not control flow.
type EntryFailure struct {
	Path   string
	Reason string
}

func (f EntryFailure) String() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Reason)
}

// Outcome is the per-root deletion result. It is produced by exactly one
// strategy invocation and afterwards only folded into an aggregate.
type Outcome struct {
	Root      string
	Attempted int
	Removed   int
	Failures  []EntryFailure
	Log       []string
}

// Clean reports whether every attempted entry was removed.
func (o Outcome) Clean() bool {
	return len(o.Failures) == 0
}

// Merge folds another outcome into this one. Counts and failure sets are
// commutative, so merge order never changes the aggregate result.
func (o *Outcome) Merge(other Outcome) {
	o.Attempted += other.Attempted
	o.Removed += other.Removed
	o.Failures = append(o.Failures, other.Failures...)
	o.Log = append(o.Log, other.Log...)
}

func (o *Outcome) recordRemoved() {
	o.Attempted++
	o.Removed++
}

func (o *Outcome) recordFailure(path string, err error) {
	o.Attempted++
	f := EntryFailure{Path: path, Reason: err.Error()}
	o.Failures = append(o.Failures, f)
	o.Log = append(o.Log, fmt.Sprintf("Cannot delete %s", f))
}
