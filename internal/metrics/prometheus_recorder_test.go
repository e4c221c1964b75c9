package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveRootCleanupDuration("native", 150*time.Millisecond)
	pr.AddEntriesRemoved("native", 12)
	pr.AddEntriesFailed("command", 1)
	pr.IncWipeout(PathRenameAway)
	pr.IncWipeout(PathInPlace)
	pr.IncRootOutcome(true)
	pr.IncRootOutcome(false)
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveRootCleanupDuration("native", time.Second)
	r.AddEntriesRemoved("native", 1)
	r.AddEntriesFailed("native", 1)
	r.IncWipeout(PathAbsent)
	r.IncRootOutcome(true)
}
