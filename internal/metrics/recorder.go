package metrics

import "time"

// WipeoutPath labels which branch of the wipeout state machine completed a run.
type WipeoutPath string

const (
	PathRenameAway WipeoutPath = "rename_away"
	PathInPlace    WipeoutPath = "in_place"
	PathAbsent     WipeoutPath = "absent"
)

// Recorder defines observability hooks for cleanup runs. Implementations may
// forward to Prometheus, OpenTelemetry, etc. The NoopRecorder default lets
// components skip nil checks.
type Recorder interface {
	ObserveRootCleanupDuration(strategy string, d time.Duration)
	AddEntriesRemoved(strategy string, n int)
	AddEntriesFailed(strategy string, n int)
	IncWipeout(path WipeoutPath)
	IncRootOutcome(clean bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRootCleanupDuration(string, time.Duration) {}
func (NoopRecorder) AddEntriesRemoved(string, int)                   {}
func (NoopRecorder) AddEntriesFailed(string, int)                    {}
func (NoopRecorder) IncWipeout(WipeoutPath)                          {}
func (NoopRecorder) IncRootOutcome(bool)                             {}
